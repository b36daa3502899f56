// Package prompt maps a 0-100 transformation intensity onto system
// prompts. Pure functions only; no I/O.
package prompt

import "fmt"

// Band boundaries on the 0-100 intensity spectrum.
const (
	LightMax  = 40
	MediumMax = 70
	RichMax   = 90 // above is Deep
)

// Canonical three-stage levels.
const (
	ResolvedLight  = 30
	ResolvedMedium = 60
	ResolvedRich   = 100
)

// Temperature is fixed across all bands.
const Temperature = 0.3

// Config is everything the caller needs for one generation call.
type Config struct {
	SystemPrompt string
	Temperature  float64
}

// For returns the generation config for a level, clamped to [0, 100].
// Instructions deliberately assign no role, so they do not fight a system
// instruction already present in the downstream chat. An optional user
// addendum is appended verbatim.
func For(level int, userPrompt string) Config {
	if level < 0 {
		level = 0
	}
	if level > 100 {
		level = 100
	}

	var base string
	switch {
	case level <= LightMax:
		base = "入力文を整形してください。\n" +
			"・誤字脱字と句読点を修正\n" +
			"・曖昧な表現を明確化\n" +
			"・元の意図とトーンは維持\n" +
			"出力は整形後のテキストのみ。説明不要。"
	case level <= MediumMax:
		base = "入力文をプロンプトとして整形してください。\n" +
			"・構造を整理し、要点を明確に\n" +
			"・冗長な表現を簡潔に\n" +
			"・必要なら箇条書きに変換\n" +
			"出力は整形後のテキストのみ。説明不要。"
	case level <= RichMax:
		base = "入力文を強化してください。\n" +
			"・不足している情報を推測して補完\n" +
			"・論理構造を改善\n" +
			"・具体例や詳細を追加可\n" +
			"出力は強化後のテキストのみ。説明不要。"
	default:
		base = "入力文を深く解釈し再構築してください。\n" +
			"・行間を読み、真意を抽出\n" +
			"・欠けているリンクを推測\n" +
			"・洞察を加えて昇華させる\n" +
			"出力は再構築後のテキストのみ。説明不要。"
	}

	if userPrompt != "" {
		base = fmt.Sprintf("%s\n\n追加指示: %s", base, userPrompt)
	}
	return Config{SystemPrompt: base, Temperature: Temperature}
}

// Label names the band a level falls into.
func Label(level int) string {
	switch {
	case level <= LightMax:
		return "Light"
	case level <= MediumMax:
		return "Medium"
	case level <= RichMax:
		return "Rich"
	default:
		return "Deep"
	}
}

// ResolveLevel normalizes an arbitrary level to the three canonical
// stages used as cache variant keys.
func ResolveLevel(level int) int {
	if level <= 45 {
		return ResolvedLight
	}
	if level <= 75 {
		return ResolvedMedium
	}
	return ResolvedRich
}
