package chunker

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/futig/benchwatch/internal/entity"
)

func buildDOCX(t *testing.T, paragraphs ...string) []byte {
	t.Helper()

	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	w.Write([]byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body.String() + `</w:body></w:document>`))
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     []byte
		want     Format
	}{
		{"pdf magic", "whatever.bin", []byte("%PDF-1.7 ..."), FormatPDF},
		{"zip magic", "report", []byte("PK\x03\x04rest"), FormatDOCX},
		{"markdown", "README.md", []byte("# Title"), FormatText},
		{"txt", "notes.TXT", []byte("hi"), FormatText},
		{"unknown", "data.csv", []byte("a,b"), FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFormat(tt.filename, tt.data); got != tt.want {
				t.Errorf("DetectFormat() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     []byte
		want     string
		wantErr  error
	}{
		{
			name:     "plain text normalizes line endings",
			filename: "a.txt",
			data:     []byte("line one\r\nline two\r\n"),
			want:     "line one\nline two",
		},
		{
			name:     "docx paragraphs",
			filename: "manual.docx",
			data:     buildDOCX(t, "First paragraph.", "Second paragraph."),
			want:     "First paragraph.\n\nSecond paragraph.",
		},
		{
			name:     "generic fallback accepts text",
			filename: "data.csv",
			data:     []byte("a,b\n1,2"),
			want:     "a,b\n1,2",
		},
		{
			name:     "binary with unknown extension",
			filename: "blob.bin",
			data:     []byte{0x00, 0x01, 0x02, 0xff},
			wantErr:  entity.ErrUnsupported,
		},
		{
			name:     "corrupt pdf",
			filename: "broken.pdf",
			data:     []byte("%PDF-1.4\nthis is not a pdf"),
			wantErr:  entity.ErrInvalidFile,
		},
		{
			name:     "corrupt docx",
			filename: "broken.docx",
			data:     []byte("PK\x03\x04garbage"),
			wantErr:  entity.ErrInvalidFile,
		},
		{
			name:     "empty",
			filename: "empty.txt",
			data:     nil,
			wantErr:  entity.ErrInvalidFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.filename, tt.data)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Extract() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Extract() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChunkerChunk(t *testing.T) {
	c, err := New(60, 10)
	if err != nil {
		t.Fatal(err)
	}
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	chunks, err := c.Chunk("guide.md", []byte(sample))
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want several", len(chunks))
	}

	for i, ch := range chunks {
		if ch.Index != i {
			t.Errorf("chunk %d has index %d", i, ch.Index)
		}
		if ch.Source != "guide.md" {
			t.Errorf("chunk %d source = %q", i, ch.Source)
		}
		if ch.Metadata["format"] != "md" || ch.Metadata["overlap"] != "10" {
			t.Errorf("chunk %d metadata = %v", i, ch.Metadata)
		}
		if !ch.CreatedAt.Equal(fixed) {
			t.Errorf("chunk %d created_at = %v", i, ch.CreatedAt)
		}
	}
}

func TestChunkerNoChunks(t *testing.T) {
	c, _ := New(100, 0)

	_, err := c.Chunk("blank.txt", []byte("   \n\n  "))
	if !errors.Is(err, entity.ErrNoChunks) {
		t.Fatalf("Chunk() error = %v, want ErrNoChunks", err)
	}
}
