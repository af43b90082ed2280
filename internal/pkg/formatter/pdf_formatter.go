package formatter

import (
	"bytes"
	"os"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfContentType   = "application/pdf"
	pdfFileExtension = ".pdf"

	// pdfFontName is the gofpdf family name of the UTF-8 font.
	pdfFontName = "DejaVuSans"

	// Runtime layout copies fonts next to the binary.
	pdfFontRuntimePath = "ttf/DejaVuSans.ttf"

	pdfFontSourcePath = "internal/pkg/formatter/ttf/DejaVuSans.ttf"
)

type PDFFormatter struct {
	fontPaths []string
}

func NewPDFFormatter() *PDFFormatter {
	return &PDFFormatter{
		fontPaths: []string{pdfFontRuntimePath, pdfFontSourcePath},
	}
}

func (mf *PDFFormatter) resolveFontPath() string {
	for _, p := range mf.fontPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (mf *PDFFormatter) Format(report *Report) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(report.Title(), true)
	pdf.AddPage()

	fontName := "Arial"
	// Core fonts are cp1252 only; without the bundled font text is transcoded.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if fontPath := mf.resolveFontPath(); fontPath != "" {
		pdf.AddUTF8Font(pdfFontName, "", fontPath)
		pdf.AddUTF8Font(pdfFontName, "B", fontPath)
		pdf.AddUTF8Font(pdfFontName, "I", fontPath)
		fontName = pdfFontName
		tr = func(s string) string { return s }
	}

	pdf.SetFont(fontName, "B", 18)
	pdf.MultiCell(0, 9, tr(report.Title()), "", "", false)
	pdf.Ln(2)

	pdf.SetFont(fontName, "", 11)
	pdf.MultiCell(0, 6, tr(report.Summary()), "", "", false)
	pdf.Ln(4)

	for i, res := range report.Results {
		pdf.SetFont(fontName, "B", 12)
		pdf.MultiCell(0, 6, tr(resultHeading(i, res)), "", "", false)

		pdf.SetFont(fontName, "I", 9)
		pdf.MultiCell(0, 5, tr(resultMeta(res)), "", "", false)

		pdf.SetFont(fontName, "", 10)
		pdf.MultiCell(0, 5, tr("Reference answer: "+res.ReferenceAnswer), "", "", false)
		pdf.MultiCell(0, 5, tr("Target answer: "+res.TargetAnswer), "", "", false)
		pdf.Ln(3)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (mf *PDFFormatter) ContentType() string {
	return pdfContentType
}

func (mf *PDFFormatter) FileExtension() string {
	return pdfFileExtension
}
