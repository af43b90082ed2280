package target

import (
	"bytes"
	"encoding/json"
	"strings"
)

// answerKeys are checked in order on JSON object responses.
var answerKeys = []string{"answer", "response", "output", "text", "content", "message", "result", "reply", "data"}

// ExtractAnswer pulls the textual answer out of a target response body.
// JSON strings, well-known keys and OpenAI-style choices are understood;
// anything else is returned as trimmed text.
func ExtractAnswer(body []byte) (string, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "", false
	}

	var doc any
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return string(trimmed), true
	}

	if s, ok := find(doc, 0); ok {
		return s, true
	}

	switch v := doc.(type) {
	case nil:
		return "", false
	case map[string]any:
		if len(v) == 0 {
			return "", false
		}
	case []any:
		if len(v) == 0 {
			return "", false
		}
	}
	return string(trimmed), true
}

const maxDepth = 4

func find(v any, depth int) (string, bool) {
	if depth > maxDepth {
		return "", false
	}

	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case []any:
		if len(t) == 0 {
			return "", false
		}
		return find(t[0], depth+1)
	case map[string]any:
		if choices, ok := t["choices"].([]any); ok && len(choices) > 0 {
			if choice, ok := choices[0].(map[string]any); ok {
				if s, ok := find(choice["message"], depth+1); ok {
					return s, true
				}
				if s, ok := find(choice["text"], depth+1); ok {
					return s, true
				}
			}
		}
		for _, key := range answerKeys {
			if val, ok := t[key]; ok {
				if s, ok := find(val, depth+1); ok {
					return s, true
				}
			}
		}
	}
	return "", false
}
