package results

import (
	"context"
	"fmt"
	"time"

	"github.com/futig/benchwatch/internal/entity"
	"github.com/futig/benchwatch/internal/pkg/formatter"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// exportLimit caps the rows rendered into one downloadable report.
const exportLimit = 1000

type ProjectGetter interface {
	Get(ctx context.Context, id string) (*entity.Project, error)
}

type ResultReader interface {
	Count(ctx context.Context, projectID string) (int, error)
	List(ctx context.Context, projectID string, limit, offset int) ([]*entity.TestResult, error)
}

// ExportFile is a rendered report ready to be served.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

type ResultsUsecase struct {
	projects   ProjectGetter
	results    ResultReader
	formatters *formatter.Factory
	now        func() time.Time
}

func NewUsecase(projects ProjectGetter, results ResultReader, formatters *formatter.Factory) *ResultsUsecase {
	return &ResultsUsecase{
		projects:   projects,
		results:    results,
		formatters: formatters,
		now:        time.Now,
	}
}

// ListResults returns one page of a project's results, newest first.
func (uc *ResultsUsecase) ListResults(ctx context.Context, req *entity.ListResultsRequest) (*entity.ListResultsResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := uc.projects.Get(ctx, req.ProjectID); err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}

	total, err := uc.results.Count(ctx, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("count results: %w", err)
	}

	pagination := entity.NewPagination(req.Page, req.PageSize, total)
	if req.Page > 1 && req.Page > pagination.TotalPages {
		return nil, fmt.Errorf("%w: page %d of %d", entity.ErrPageOutOfRange, req.Page, pagination.TotalPages)
	}

	rows := []*entity.TestResult{}
	if total > 0 {
		rows, err = uc.results.List(ctx, req.ProjectID, req.PageSize, req.Offset())
		if err != nil {
			return nil, fmt.Errorf("list results: %w", err)
		}
	}

	return &entity.ListResultsResponse{
		ProjectID:  req.ProjectID,
		Results:    rows,
		Pagination: pagination,
	}, nil
}

// Export renders the newest results of a project in the requested format.
func (uc *ResultsUsecase) Export(ctx context.Context, projectID string, format entity.ResultFormat) (*ExportFile, error) {
	if !format.IsValid() {
		return nil, entity.NewValidationError("format", fmt.Errorf("%w: %q", entity.ErrInvalidParameter, format))
	}

	project, err := uc.projects.Get(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}

	rows, err := uc.results.List(ctx, projectID, exportLimit, 0)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}

	f, err := uc.formatters.Create(format)
	if err != nil {
		return nil, entity.NewValidationError("format", err)
	}

	report := &formatter.Report{
		ProjectID:   project.ID,
		ProjectName: project.Name,
		GeneratedAt: uc.now(),
		Results:     rows,
	}
	data, err := f.Format(report)
	if err != nil {
		return nil, fmt.Errorf("format %s report: %w", format, err)
	}

	ctxzap.Info(ctx, "results exported",
		zap.String("project_id", projectID),
		zap.String("format", string(format)),
		zap.Int("rows", len(rows)),
	)

	return &ExportFile{
		Filename:    "results-" + project.ID + f.FileExtension(),
		ContentType: f.ContentType(),
		Data:        data,
	}, nil
}
