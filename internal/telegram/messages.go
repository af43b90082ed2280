package telegram

import (
	"fmt"
	"strings"
	"time"

	"github.com/futig/benchwatch/internal/entity"
)

const (
	msgRunFinished = `📊 Benchmark run for %q (%s)

State: %s
QA pairs: %d
Results: %d (passed %d, skipped %d, judge errors %d)
Pass rate: %s
Duration: %s`

	msgIngestionFinished = `📥 Ingestion for project %s finished: %s

Files: %d of %d processed
Chunks: %d
QA pairs: %d`

	msgIngestionErrorLine = "\n⚠️ %s: %s"
)

// FormatRunSummary renders a test run report for a chat message.
func FormatRunSummary(project *entity.Project, report *entity.RunReport) string {
	name := report.ProjectID
	if project != nil && project.Name != "" {
		name = project.Name
	}

	return fmt.Sprintf(msgRunFinished,
		name,
		report.ProjectID,
		report.State,
		report.Pairs,
		report.Results,
		report.Passed,
		report.Skipped,
		report.JudgeFails,
		passRate(report.Passed, report.Results),
		report.FinishedAt.Sub(report.StartedAt).Round(time.Second),
	)
}

// FormatIngestionSummary renders a final ingestion status, listing per-file errors.
func FormatIngestionSummary(status *entity.IngestionStatus) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, msgIngestionFinished,
		status.ProjectID,
		status.State,
		status.FilesProcessed,
		status.FilesTotal,
		status.ChunksGenerated,
		status.QAPairsGenerated,
	)
	for _, fe := range status.Errors {
		fmt.Fprintf(&sb, msgIngestionErrorLine, fe.Filename, fe.Error)
	}
	return sb.String()
}

func passRate(passed, total int) string {
	if total == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.0f%%", float64(passed)*100/float64(total))
}
