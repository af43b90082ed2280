package ingestion

import (
	"context"

	"github.com/futig/benchwatch/internal/entity"
)

type IngestionUsecase interface {
	Trigger(ctx context.Context, req *entity.TriggerIngestionRequest) (*entity.IngestionStatus, error)
	GetStatus(ctx context.Context, projectID string) (*entity.IngestionStatus, error)
}
