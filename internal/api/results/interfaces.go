package results

import (
	"context"

	"github.com/futig/benchwatch/internal/entity"
	resultsuc "github.com/futig/benchwatch/internal/usecase/results"
)

type ResultsUsecase interface {
	ListResults(ctx context.Context, req *entity.ListResultsRequest) (*entity.ListResultsResponse, error)
	Export(ctx context.Context, projectID string, format entity.ResultFormat) (*resultsuc.ExportFile, error)
}
