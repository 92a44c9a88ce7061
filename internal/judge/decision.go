package judge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chadiek/interview-demo/internal/interview"
)

// ExtractJSON pulls a JSON object out of raw model text. Models wrap their
// output in markdown fences or chatter more often than not, so the parse is
// layered: strip fences, try the whole string, then fall back to the first
// balanced top-level object.
func ExtractJSON(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = stripFences(s)
	if json.Valid([]byte(s)) {
		return s, nil
	}
	if obj, ok := firstBalancedObject(s); ok && json.Valid([]byte(obj)) {
		return obj, nil
	}
	return "", fmt.Errorf("no JSON object in model output")
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// firstBalancedObject scans for the first '{' and returns the substring up to
// its matching '}', honoring strings and escapes.
func firstBalancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inStr := false
	esc := false
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

// ParseDecision decodes a raw model reply into a turn decision. The result
// is unvalidated; callers apply interview.NormalizeDecision.
func ParseDecision(raw string) (interview.TurnDecision, error) {
	obj, err := ExtractJSON(raw)
	if err != nil {
		return interview.TurnDecision{}, err
	}
	var dec interview.TurnDecision
	if err := json.Unmarshal([]byte(obj), &dec); err != nil {
		return interview.TurnDecision{}, fmt.Errorf("decode decision: %w", err)
	}
	return dec, nil
}
