package testrun

import (
	"context"
	"time"

	"github.com/futig/benchwatch/internal/entity"
)

type ProjectGetter interface {
	Get(ctx context.Context, id string) (*entity.Project, error)
}

type QASource interface {
	LatestQAPairs(ctx context.Context, projectID string) (*entity.QASet, error)
}

type ResultStore interface {
	SaveBatch(ctx context.Context, projectID string, results []*entity.TestResult, testedAt time.Time) error
}

type Planner interface {
	Plan(ctx context.Context, tmpl entity.BodyTemplate, question, path string) (any, error)
}

type Invoker interface {
	Invoke(ctx context.Context, req *entity.TargetRequest) *entity.TargetResponse
}

type Judge interface {
	Evaluate(ctx context.Context, question, reference, answer string) entity.Verdict
}

type Notifier interface {
	RunFinished(ctx context.Context, project *entity.Project, report *entity.RunReport)
}

type Metrics interface {
	RunFinished(state string, elapsed time.Duration)
	RunSkipped(reason string)
	Result(outcome string)
}
