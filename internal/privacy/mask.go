package privacy

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Mask replaces every detected PII span and every occurrence of the given
// custom terms with a unique placeholder token ([PII_n] for detected spans,
// [VOCAB_n] for custom terms). The returned mapping records token→original
// for Unmask. Longer values are substituted before shorter ones so a span
// nested in a larger one cannot be half-masked.
//
// Mask never fails: when nothing is detected it returns the input unchanged
// with an empty mapping.
func (s *Scanner) Mask(text string, customTerms []string) (string, map[string]string) {
	mapping := make(map[string]string)

	vocabSet := make(map[string]struct{}, len(customTerms))
	values := make(map[string]struct{})
	for _, term := range customTerms {
		if term != "" && strings.Contains(text, term) {
			vocabSet[term] = struct{}{}
			values[term] = struct{}{}
		}
	}
	for cat, matches := range s.Scan(text).Risks {
		// Keyword hits are the deny list's concern, not maskable spans.
		if cat == KeywordCategory {
			continue
		}
		for _, val := range matches {
			values[val] = struct{}{}
		}
	}
	if len(values) == 0 {
		return text, mapping
	}

	// Longest first avoids partial-overlap corruption.
	sorted := make([]string, 0, len(values))
	for v := range values {
		sorted = append(sorted, v)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if len(sorted[i]) != len(sorted[j]) {
			return len(sorted[i]) > len(sorted[j])
		}
		return sorted[i] < sorted[j]
	})

	escaped := make([]string, len(sorted))
	for i, v := range sorted {
		escaped[i] = regexp.QuoteMeta(v)
	}
	pattern, err := regexp.Compile(strings.Join(escaped, "|"))
	if err != nil {
		// Degrade to no mask rather than blocking the pipeline.
		return text, map[string]string{}
	}

	assigned := make(map[string]string, len(sorted))
	var piiN, vocabN int
	masked := pattern.ReplaceAllStringFunc(text, func(val string) string {
		if tok, ok := assigned[val]; ok {
			return tok
		}
		var tok string
		if _, isVocab := vocabSet[val]; isVocab {
			tok = fmt.Sprintf("[VOCAB_%d]", vocabN)
			vocabN++
		} else {
			tok = fmt.Sprintf("[PII_%d]", piiN)
			piiN++
		}
		assigned[val] = tok
		mapping[tok] = val
		return tok
	})

	return masked, mapping
}

// Unmask restores every placeholder token in text to its original value.
// It is a no-op when the mapping is empty; it is correct even when the
// model echoed the tokens inside a different sentence structure.
func Unmask(text string, mapping map[string]string) string {
	if len(mapping) == 0 {
		return text
	}
	result := text
	for token, original := range mapping {
		result = strings.ReplaceAll(result, token, original)
	}
	return result
}
