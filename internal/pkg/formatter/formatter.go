// Package formatter renders test result reports for download.
package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/futig/benchwatch/internal/entity"
)

const baseTitle = "Benchmark results"

// Report is the exportable view of a project's results, newest first.
type Report struct {
	ProjectID   string
	ProjectName string
	GeneratedAt time.Time
	Results     []*entity.TestResult
}

func (r *Report) Title() string {
	if r.ProjectName != "" {
		return fmt.Sprintf("%s: %s", baseTitle, r.ProjectName)
	}
	return fmt.Sprintf("%s: %s", baseTitle, r.ProjectID)
}

// Summary is the one-line pass rate shown under the title.
func (r *Report) Summary() string {
	total := len(r.Results)
	if total == 0 {
		return "No results recorded yet."
	}
	passed := 0
	for _, res := range r.Results {
		if res.Passed {
			passed++
		}
	}
	return fmt.Sprintf("Passed %d of %d (%.0f%%). Generated %s.",
		passed, total, float64(passed)*100/float64(total), r.GeneratedAt.UTC().Format(time.RFC3339))
}

type Formatter interface {
	Format(report *Report) ([]byte, error)
	ContentType() string
	FileExtension() string
}

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Create(format entity.ResultFormat) (Formatter, error) {
	switch format {
	case entity.FormatMarkdown:
		return NewMarkdownFormatter(), nil
	case entity.FormatDOCX:
		return NewDOCXFormatter(), nil
	case entity.FormatPDF:
		return NewPDFFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func scoreText(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(*v)
}

func resultHeading(i int, res *entity.TestResult) string {
	return fmt.Sprintf("%d. %s", i+1, strings.TrimSpace(res.Question))
}

func resultMeta(res *entity.TestResult) string {
	return fmt.Sprintf("Outcome: %s | Hallucination: %s | Helpfulness: %s | Difficulty: %s | %s",
		res.Outcome,
		scoreText(res.HallucinationScore),
		scoreText(res.HelpfulnessScore),
		res.Difficulty,
		res.CreatedAt.UTC().Format(time.RFC3339),
	)
}
