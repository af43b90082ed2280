package formatter

import (
	"bytes"

	"github.com/unidoc/unioffice/document"
)

const (
	docxContentType   = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	docxFileExtension = ".docx"
)

type DOCXFormatter struct{}

func NewDOCXFormatter() *DOCXFormatter {
	return &DOCXFormatter{}
}

func (mf *DOCXFormatter) Format(report *Report) ([]byte, error) {
	doc := document.New()
	defer doc.Close()

	titlePar := doc.AddParagraph()
	titlePar.SetStyle("Heading1")
	titlePar.AddRun().AddText(report.Title())

	doc.AddParagraph().AddRun().AddText(report.Summary())

	for i, res := range report.Results {
		heading := doc.AddParagraph()
		heading.SetStyle("Heading2")
		heading.AddRun().AddText(resultHeading(i, res))

		meta := doc.AddParagraph().AddRun()
		meta.Properties().SetItalic(true)
		meta.AddText(resultMeta(res))

		addLabeled(doc, "Reference answer: ", res.ReferenceAnswer)
		addLabeled(doc, "Target answer: ", res.TargetAnswer)
	}

	var buf bytes.Buffer
	if err := doc.Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func addLabeled(doc *document.Document, label, text string) {
	par := doc.AddParagraph()
	labelRun := par.AddRun()
	labelRun.Properties().SetBold(true)
	labelRun.AddText(label)
	par.AddRun().AddText(text)
}

func (mf *DOCXFormatter) ContentType() string {
	return docxContentType
}

func (mf *DOCXFormatter) FileExtension() string {
	return docxFileExtension
}
