package formatter

import (
	"bytes"
	"fmt"
	"strings"
)

const (
	markdownContentType   = "text/markdown; charset=utf-8"
	markdownFileExtension = ".md"
)

var cellReplacer = strings.NewReplacer("|", `\|`, "\r\n", "<br>", "\n", "<br>")

type MarkdownFormatter struct{}

func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

func (mf *MarkdownFormatter) Format(report *Report) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n\n%s\n", report.Title(), report.Summary())
	if len(report.Results) == 0 {
		return buf.Bytes(), nil
	}

	buf.WriteString("\n| # | Time | Difficulty | Outcome | Hallucination | Helpfulness | Question | Target answer |\n")
	buf.WriteString("|---|---|---|---|---|---|---|---|\n")
	for i, res := range report.Results {
		fmt.Fprintf(&buf, "| %d | %s | %s | %s | %s | %s | %s | %s |\n",
			i+1,
			res.CreatedAt.UTC().Format("2006-01-02 15:04"),
			res.Difficulty,
			res.Outcome,
			scoreText(res.HallucinationScore),
			scoreText(res.HelpfulnessScore),
			cell(res.Question),
			cell(res.TargetAnswer),
		)
	}
	return buf.Bytes(), nil
}

func cell(s string) string {
	return cellReplacer.Replace(strings.TrimSpace(s))
}

func (mf *MarkdownFormatter) ContentType() string {
	return markdownContentType
}

func (mf *MarkdownFormatter) FileExtension() string {
	return markdownFileExtension
}
