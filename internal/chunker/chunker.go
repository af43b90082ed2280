// Package chunker turns uploaded documents into overlapping text chunks.
package chunker

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/futig/benchwatch/internal/entity"
)

type Chunker struct {
	splitter *Splitter
	now      func() time.Time
}

func New(size, overlap int) (*Chunker, error) {
	s, err := NewSplitter(size, overlap)
	if err != nil {
		return nil, err
	}
	return &Chunker{splitter: s, now: time.Now}, nil
}

// Chunk extracts the text of a file and splits it. A file that yields no
// chunks is an error.
func (c *Chunker) Chunk(filename string, data []byte) ([]entity.Chunk, error) {
	text, err := Extract(filename, data)
	if err != nil {
		return nil, err
	}

	parts := c.splitter.Split(text)
	createdAt := c.now().UTC()
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")

	chunks := make([]entity.Chunk, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		chunks = append(chunks, entity.Chunk{
			Content: part,
			Source:  filename,
			Index:   len(chunks),
			Metadata: map[string]string{
				"format":     format,
				"chunk_size": strconv.Itoa(c.splitter.Size),
				"overlap":    strconv.Itoa(c.splitter.Overlap),
			},
			CreatedAt: createdAt,
		})
	}

	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", entity.ErrNoChunks, filename)
	}
	return chunks, nil
}
