package chunker

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	pdf "github.com/ledongthuc/pdf"
	"github.com/unidoc/unioffice/document"

	"github.com/futig/benchwatch/internal/entity"
)

type Format string

const (
	FormatPDF     Format = "pdf"
	FormatDOCX    Format = "docx"
	FormatText    Format = "text"
	FormatUnknown Format = "unknown"
)

// DetectFormat sniffs magic bytes first and falls back to the extension.
func DetectFormat(filename string, data []byte) Format {
	switch {
	case isPDF(data):
		return FormatPDF
	case isZip(data):
		return FormatDOCX
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	case ".txt", ".md", ".markdown":
		return FormatText
	}
	return FormatUnknown
}

// Extract returns the plain text of a document.
func Extract(filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: %s is empty", entity.ErrInvalidFile, filename)
	}

	var (
		text string
		err  error
	)
	switch DetectFormat(filename, data) {
	case FormatPDF:
		text, err = extractPDF(data)
	case FormatDOCX:
		text, err = extractDOCX(data)
	case FormatText:
		if !isProbablyText(data) {
			return "", fmt.Errorf("%w: %s does not look like text", entity.ErrInvalidFile, filename)
		}
		text = string(data)
	default:
		if !isProbablyText(data) {
			return "", fmt.Errorf("%w: %s", entity.ErrUnsupported, filename)
		}
		text = string(data)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", entity.ErrInvalidFile, filename, err)
	}

	return normalizeText(text), nil
}

func isPDF(b []byte) bool {
	return len(b) >= 5 && string(b[:5]) == "%PDF-"
}

func isZip(b []byte) bool {
	return len(b) >= 4 && b[0] == 'P' && b[1] == 'K' && b[2] == 3 && b[3] == 4
}

func isProbablyText(b []byte) bool {
	sample := b[:min(len(b), 4096)]
	if bytes.IndexByte(sample, 0) >= 0 {
		return false
	}
	good := 0
	for _, c := range sample {
		if c == '\n' || c == '\r' || c == '\t' || (c >= 0x20 && c != 0x7F) {
			good++
		}
	}
	return float64(good)/float64(len(sample)) > 0.9
}

func extractPDF(data []byte) (text string, err error) {
	// the pdf reader panics on some malformed xref tables
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parse panic: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf reader: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plaintext: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("pdf read: %w", err)
	}
	return string(b), nil
}

// extractDOCX reads paragraphs through unioffice and falls back to
// scanning word/document.xml when the package cannot be opened.
func extractDOCX(data []byte) (string, error) {
	doc, err := document.Read(bytes.NewReader(data), int64(len(data)))
	if err == nil {
		defer doc.Close()
		var sb strings.Builder
		for _, p := range doc.Paragraphs() {
			for _, r := range p.Runs() {
				sb.WriteString(r.Text())
			}
			sb.WriteString("\n\n")
		}
		if text := strings.TrimSpace(sb.String()); text != "" {
			return text, nil
		}
	}

	text, xmlErr := extractDocumentXML(data)
	if xmlErr != nil {
		if err != nil {
			return "", fmt.Errorf("docx: %v; %w", err, xmlErr)
		}
		return "", xmlErr
	}
	return text, nil
}

func extractDocumentXML(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open zip: %w", err)
	}

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()
		return wordXMLText(rc)
	}
	return "", fmt.Errorf("word/document.xml not found")
}

// wordXMLText collects <w:t> runs and breaks lines at </w:p>.
func wordXMLText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var sb strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			inText = t.Name.Local == "t"
		case xml.EndElement:
			if t.Name.Local == "t" {
				inText = false
			}
			if t.Name.Local == "p" {
				sb.WriteString("\n\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("no text in document.xml")
	}
	return text, nil
}

func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ToValidUTF8(s, "")
	return strings.TrimSpace(s)
}
