// Package strictjson parses JSON out of LLM text responses.
// Models frequently wrap their output in Markdown code fences or pad it
// with prose; callers that prompted for strict JSON use Unmarshal to get
// at the payload anyway.
package strictjson

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Unmarshal decodes raw model output into v. It first strips optional
// ```json fences, then falls back to extracting the first balanced JSON
// object from the text.
func Unmarshal(raw string, v any) error {
	cleaned := stripFences(raw)
	if err := json.Unmarshal([]byte(cleaned), v); err == nil {
		return nil
	}

	obj := firstObject(cleaned)
	if obj == "" {
		return fmt.Errorf("no JSON object in model response")
	}
	if err := json.Unmarshal([]byte(obj), v); err != nil {
		return fmt.Errorf("parse model JSON: %w", err)
	}
	return nil
}

// stripFences removes Markdown code-fence wrapping if present.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// firstObject returns the first balanced {...} block in s, honoring
// string literals and escapes, or "" when none exists.
func firstObject(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}
