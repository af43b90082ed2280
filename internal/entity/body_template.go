package entity

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	json5 "github.com/yosuke-furukawa/json5/encoding/json5"
)

type TemplateKind int

const (
	TemplateRaw TemplateKind = iota
	TemplateStructured
)

// BodyTemplate is a request-body template normalized once at load time.
// It holds either opaque bytes or a decoded JSON tree.
type BodyTemplate struct {
	kind  TemplateKind
	raw   []byte
	value any
}

func RawTemplate(raw []byte) BodyTemplate {
	return BodyTemplate{kind: TemplateRaw, raw: bytes.Clone(raw)}
}

func StructuredTemplate(value any) BodyTemplate {
	return BodyTemplate{kind: TemplateStructured, value: DeepCopy(value)}
}

// ParseBodyTemplate decodes strict JSON first, then the loose dialect
// (single quotes, trailing commas, True/False/None). Anything else stays Raw.
func ParseBodyTemplate(text string) BodyTemplate {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return StructuredTemplate(map[string]any{})
	}

	if v, err := ParseStrict([]byte(trimmed)); err == nil {
		return BodyTemplate{kind: TemplateStructured, value: v}
	}
	if v, err := ParseLoose([]byte(trimmed)); err == nil {
		return BodyTemplate{kind: TemplateStructured, value: v}
	}
	return RawTemplate([]byte(text))
}

func (t BodyTemplate) Kind() TemplateKind { return t.kind }

func (t BodyTemplate) IsStructured() bool { return t.kind == TemplateStructured }

// Value returns a deep copy of the structured tree.
func (t BodyTemplate) Value() any {
	return DeepCopy(t.value)
}

func (t BodyTemplate) Raw() []byte {
	return bytes.Clone(t.raw)
}

// String renders the template for storage and prompts.
func (t BodyTemplate) String() string {
	if t.kind == TemplateRaw {
		return string(t.raw)
	}
	b, err := json.Marshal(t.value)
	if err != nil {
		return ""
	}
	return string(b)
}

// ParseStrict decodes a single JSON value and rejects trailing data.
func ParseStrict(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("unexpected data after JSON value")
	}
	return v, nil
}

// ParseLoose accepts JSON5 plus Python-style literals.
func ParseLoose(data []byte) (any, error) {
	var v any
	if err := json5.Unmarshal([]byte(normalizeLiterals(string(data))), &v); err != nil {
		return nil, err
	}
	return v, nil
}

var literalReplacements = map[string]string{
	"True":  "true",
	"False": "false",
	"None":  "null",
}

// normalizeLiterals rewrites bare True/False/None outside quoted strings and
// turns single-quoted strings into double-quoted ones.
func normalizeLiterals(s string) string {
	var out strings.Builder
	out.Grow(len(s))

	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '"':
			i = copyDoubleQuoted(&out, s, i)
		case c == '\'':
			i = requoteSingleQuoted(&out, s, i)
		case isIdentStart(c):
			j := i
			for j < len(s) && isIdentPart(s[j]) {
				j++
			}
			word := s[i:j]
			if repl, ok := literalReplacements[word]; ok {
				out.WriteString(repl)
			} else {
				out.WriteString(word)
			}
			i = j
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String()
}

// copyDoubleQuoted writes the string starting at s[start] unchanged and
// returns the index just past its closing quote.
func copyDoubleQuoted(out *strings.Builder, s string, start int) int {
	out.WriteByte('"')
	i := start + 1
	for i < len(s) {
		c := s[i]
		if c == '\\' && i+1 < len(s) {
			out.WriteString(s[i : i+2])
			i += 2
			continue
		}
		out.WriteByte(c)
		i++
		if c == '"' {
			break
		}
	}
	return i
}

// requoteSingleQuoted writes the single-quoted string starting at s[start]
// as a double-quoted one: \' becomes ' and a bare " is escaped.
func requoteSingleQuoted(out *strings.Builder, s string, start int) int {
	out.WriteByte('"')
	i := start + 1
	for i < len(s) {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s):
			if s[i+1] == '\'' {
				out.WriteByte('\'')
			} else {
				out.WriteString(s[i : i+2])
			}
			i += 2
		case c == '"':
			out.WriteString(`\"`)
			i++
		case c == '\'':
			out.WriteByte('"')
			return i + 1
		default:
			out.WriteByte(c)
			i++
		}
	}
	return i
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// DeepCopy clones maps and slices of a decoded JSON tree.
func DeepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = DeepCopy(val)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, val := range t {
			s[i] = DeepCopy(val)
		}
		return s
	default:
		return t
	}
}
