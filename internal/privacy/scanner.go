package privacy

import (
	"regexp"
	"strings"
)

// KeywordCategory is the category reported for deny-list keyword hits.
const KeywordCategory = "SENSITIVE_KEYWORD"

// categoryPatterns lists detection categories in alternation order.
// Longer or more specific numeric patterns come before shorter ones so the
// leftmost-first alternation cannot half-match a longer span (a 16-digit
// card number must not match as a 12-digit ID plus leftovers).
var categoryPatterns = []struct {
	name string
	expr string
}{
	{"API_KEY", `(?:sk-|pk_|AIza|ghp_|xox[baprs]-)[a-zA-Z0-9_-]{20,}`},
	{"AWS_KEY", `AKIA[0-9A-Z]{16}`},
	{"EMAIL", `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`},
	{"IP_ADDRESS", `\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`},
	{"CREDIT_CARD", `\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}`},
	{"MY_NUMBER", `\d{4}[-\s]?\d{4}[-\s]?\d{4}`},
	// PHONE before ZIP: a ZIP-shaped prefix ("090-1234") would otherwise
	// swallow the first half of a dashed phone number.
	{"PHONE", `\d{2,4}-\d{2,4}-\d{3,4}`},
	{"ZIP", `〒?\d{3}-\d{4}`},
	{"PASSWORD", `(?i:password|passwd|pwd)\s*[:=]\s*\S{6,}`},
	{"ADDRESS", `\d+\s+[A-Za-z ]+(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Lane|Ln|Drive|Dr)\b`},
}

// sensitiveKeywords block transmission outright via CheckDenyList and are
// reported by Scan under KeywordCategory. Matching is case-insensitive.
var sensitiveKeywords = []string{
	"CONFIDENTIAL",
	"NDA",
	"INTERNAL ONLY",
	"機密",
	"社外秘",
	"SECRET",
	"PRIVATE",
	"DO NOT SHARE",
	"取扱注意",
}

// ScanResult reports what a privacy scan found.
type ScanResult struct {
	HasRisks  bool                `json:"hasRisks"`
	Risks     map[string][]string `json:"risks"`
	RiskCount int                 `json:"riskCount"`
}

// Scanner detects PII spans and sensitive keywords in text.
type Scanner struct {
	combined *regexp.Regexp
	keywords []string // pre-uppercased
}

// NewScanner compiles the combined detection pattern.
func NewScanner() *Scanner {
	groups := make([]string, len(categoryPatterns))
	for i, p := range categoryPatterns {
		groups[i] = "(?P<" + p.name + ">" + p.expr + ")"
	}
	upper := make([]string, len(sensitiveKeywords))
	for i, kw := range sensitiveKeywords {
		upper[i] = strings.ToUpper(kw)
	}
	return &Scanner{
		combined: regexp.MustCompile(strings.Join(groups, "|")),
		keywords: upper,
	}
}

// Scan runs the combined pattern plus the keyword list over text and
// returns matches grouped by category. Duplicate matches are collapsed.
func (s *Scanner) Scan(text string) ScanResult {
	risks := make(map[string][]string)
	seen := make(map[string]map[string]struct{})

	names := s.combined.SubexpNames()
	for _, m := range s.combined.FindAllStringSubmatchIndex(text, -1) {
		for gi, name := range names {
			if name == "" {
				continue
			}
			start, end := m[2*gi], m[2*gi+1]
			if start < 0 {
				continue
			}
			val := text[start:end]
			if seen[name] == nil {
				seen[name] = make(map[string]struct{})
			}
			if _, dup := seen[name][val]; dup {
				continue
			}
			seen[name][val] = struct{}{}
			risks[name] = append(risks[name], val)
		}
	}

	textUpper := strings.ToUpper(text)
	for i, kw := range s.keywords {
		if strings.Contains(textUpper, kw) {
			risks[KeywordCategory] = append(risks[KeywordCategory], sensitiveKeywords[i])
		}
	}

	count := 0
	for _, v := range risks {
		count += len(v)
	}
	return ScanResult{HasRisks: count > 0, Risks: risks, RiskCount: count}
}

// CheckDenyList reports whether text contains any sensitive keyword.
// Unlike Scan, a hit here is an unconditional block: the caller must not
// send the text to the external service at all.
func (s *Scanner) CheckDenyList(text string) (bool, string) {
	textUpper := strings.ToUpper(text)
	for i, kw := range s.keywords {
		if strings.Contains(textUpper, kw) {
			return true, sensitiveKeywords[i]
		}
	}
	return false, ""
}
