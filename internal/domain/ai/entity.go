package ai

import "strings"

// Label enum
type Label string

const (
	LabelAI    Label = "AI"
	LabelReal  Label = "Real"
	LabelError Label = "Error"
)

// Verdict value object hasil klasifikasi
type Verdict struct {
	Label      Label   `json:"label"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// Authoritative reports whether the verdict carries a known label. A
// non-authoritative verdict describes a classification failure in Reason.
func (v Verdict) Authoritative() bool {
	return v.Label == LabelAI || v.Label == LabelReal
}

// Degraded builds the sentinel verdict for a failed classification.
func Degraded(reason string) Verdict {
	return Verdict{
		Label:      LabelError,
		Confidence: 0,
		Reason:     "Error in LLM analysis: " + reason,
	}
}

// NormalizeLabel maps model wording to a known label.
func NormalizeLabel(s string) (Label, bool) {
	n := strings.ToLower(strings.TrimSpace(s))
	n = strings.NewReplacer("-", " ", "_", " ").Replace(n)
	n = strings.Join(strings.Fields(n), " ")
	switch n {
	case "ai", "ai generated", "generated", "synthetic", "fake", "artificial":
		return LabelAI, true
	case "real", "not ai generated", "not ai", "authentic", "human", "genuine", "human made":
		return LabelReal, true
	}
	return "", false
}
