package prompt

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bryanwahyu/aidentify/internal/domain/ai"
)

type rawVerdict struct {
	Label      *string         `json:"label"`
	Confidence json.RawMessage `json:"confidence"`
	Reason     *string         `json:"reason"`
}

// ParseVerdict turns model output into a Verdict. It never fails: anything
// unusable becomes a degraded verdict describing the problem.
func ParseVerdict(text string) ai.Verdict {
	obj, ok := extractJSONObject(stripFences(text))
	if !ok {
		return ai.Degraded("response is not a JSON object")
	}
	var raw rawVerdict
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return ai.Degraded(fmt.Sprintf("invalid JSON: %v", err))
	}
	if raw.Label == nil {
		return ai.Degraded("missing label")
	}
	label, ok := ai.NormalizeLabel(*raw.Label)
	if !ok {
		return ai.Degraded(fmt.Sprintf("unknown label %q", *raw.Label))
	}
	conf, err := parseConfidence(raw.Confidence)
	if err != nil {
		return ai.Degraded(err.Error())
	}
	reason := ""
	if raw.Reason != nil {
		reason = strings.TrimSpace(*raw.Reason)
	}
	if reason == "" {
		return ai.Degraded("missing reason")
	}
	return ai.Verdict{Label: label, Confidence: conf, Reason: reason}
}

func parseConfidence(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, fmt.Errorf("missing confidence")
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		// some models quote numbers or send percentages
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, fmt.Errorf("invalid confidence %s", string(raw))
		}
		s = strings.TrimSpace(s)
		pct := strings.HasSuffix(s, "%")
		v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid confidence %q", s)
		}
		if pct {
			v /= 100
		}
		f = v
	}
	if math.IsNaN(f) {
		return 0, fmt.Errorf("invalid confidence NaN")
	}
	if f > 1 && f <= 100 {
		f /= 100
	}
	return math.Max(0, math.Min(1, f)), nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// extractJSONObject returns the first balanced {...} block, honoring strings.
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inStr, esc := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
