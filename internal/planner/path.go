package planner

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/futig/benchwatch/internal/entity"
)

// Segment is one step of a field path: a map key or a list index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

func (s Segment) String() string {
	if s.IsIndex {
		return "[" + strconv.Itoa(s.Index) + "]"
	}
	return s.Key
}

// ParsePath parses dotted paths with bracketed indices, e.g.
// "messages[0].content" or "input.query".
func ParsePath(path string) ([]Segment, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, entity.NewValidationError("question_path", entity.ErrMissingField)
	}

	var segs []Segment
	for _, part := range strings.Split(path, ".") {
		if part == "" {
			return nil, invalidPath(path, "empty segment")
		}

		name, rest, _ := strings.Cut(part, "[")
		if name != "" {
			segs = append(segs, Segment{Key: name})
		}
		if rest == "" {
			if strings.Contains(part, "]") {
				return nil, invalidPath(path, "unbalanced bracket")
			}
			continue
		}

		// rest is "0]" or "0][1]"
		for _, idx := range strings.Split(rest, "[") {
			numStr, tail, ok := strings.Cut(idx, "]")
			if !ok || tail != "" {
				return nil, invalidPath(path, "unbalanced bracket")
			}
			n, err := strconv.Atoi(numStr)
			if err != nil || n < 0 {
				return nil, invalidPath(path, fmt.Sprintf("bad index %q", numStr))
			}
			segs = append(segs, Segment{Index: n, IsIndex: true})
		}
	}
	return segs, nil
}

func invalidPath(path, reason string) error {
	return entity.NewValidationError("question_path", fmt.Errorf("%w: %s: %s", entity.ErrInvalidFormat, path, reason))
}

// SetPath writes value at segs inside root, creating maps and lists on the
// way. root is modified in place when it is a container; the returned tree
// must be used since a nil root is replaced.
func SetPath(root any, segs []Segment, value any) (any, error) {
	if len(segs) == 0 {
		return value, nil
	}
	seg := segs[0]

	if seg.IsIndex {
		if root == nil {
			root = []any{}
		}
		list, ok := root.([]any)
		if !ok {
			return nil, conflict(seg, root)
		}
		for len(list) <= seg.Index {
			list = append(list, nil)
		}
		child, err := SetPath(list[seg.Index], segs[1:], value)
		if err != nil {
			return nil, err
		}
		list[seg.Index] = child
		return list, nil
	}

	if root == nil {
		root = map[string]any{}
	}
	m, ok := root.(map[string]any)
	if !ok {
		return nil, conflict(seg, root)
	}
	child, err := SetPath(m[seg.Key], segs[1:], value)
	if err != nil {
		return nil, err
	}
	m[seg.Key] = child
	return m, nil
}

func conflict(seg Segment, got any) error {
	return entity.NewValidationError("question_path",
		fmt.Errorf("%w: segment %s cannot be applied to %T", entity.ErrInvalidFormat, seg, got))
}
