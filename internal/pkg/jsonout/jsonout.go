// Package jsonout pulls a JSON document out of free-form model output.
package jsonout

import "strings"

// Extract strips markdown code fences and surrounding prose, returning the
// outermost JSON object or array found in s. If none is found the trimmed
// input is returned unchanged.
func Extract(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			// drop the language tag line
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return s
	}
	closing := byte('}')
	if s[start] == '[' {
		closing = ']'
	}
	end := strings.LastIndexByte(s, closing)
	if end < start {
		return s
	}
	return s[start : end+1]
}
