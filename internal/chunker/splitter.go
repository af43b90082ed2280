package chunker

import (
	"fmt"

	"github.com/futig/benchwatch/internal/entity"
)

// DefaultSeparators lists cut points from strongest to weakest.
var DefaultSeparators = []string{
	"\n\n",
	"\n",
	". ",
	"! ",
	"? ",
	"; ",
	" ",
}

// Splitter cuts text into windows of at most Size runes. Consecutive
// windows share exactly Overlap runes.
type Splitter struct {
	Size       int
	Overlap    int
	Separators []string
}

func NewSplitter(size, overlap int) (*Splitter, error) {
	s := &Splitter{Size: size, Overlap: overlap, Separators: DefaultSeparators}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Splitter) Validate() error {
	if s.Size <= 0 {
		return entity.NewValidationError("chunk_size", fmt.Errorf("%w: must be positive, got %d", entity.ErrInvalidParameter, s.Size))
	}
	if s.Overlap < 0 || s.Overlap >= s.Size {
		return entity.NewValidationError("chunk_overlap", fmt.Errorf("%w: must be in [0, %d), got %d", entity.ErrInvalidParameter, s.Size, s.Overlap))
	}
	return nil
}

// Split returns the windows of text in order.
func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	var out []string
	start := 0
	for {
		end := min(start+s.Size, n)
		if end < n {
			end = s.cut(runes, start, end)
		}

		out = append(out, string(runes[start:end]))
		if end >= n {
			return out
		}
		start = end - s.Overlap
	}
}

// cut moves end back to the strongest separator that still leaves the
// window longer than the overlap and at least half full.
func (s *Splitter) cut(runes []rune, start, end int) int {
	lowest := max(start+s.Overlap+1, start+s.Size/2)
	if lowest > end {
		return end
	}

	for _, sep := range s.Separators {
		sr := []rune(sep)
		for p := end; p >= lowest; p-- {
			if p-len(sr) < start {
				break
			}
			if hasSuffixAt(runes, p, sr) {
				return p
			}
		}
	}
	return end
}

func hasSuffixAt(runes []rune, p int, sep []rune) bool {
	if p < len(sep) {
		return false
	}
	for i := range sep {
		if runes[p-len(sep)+i] != sep[i] {
			return false
		}
	}
	return true
}
