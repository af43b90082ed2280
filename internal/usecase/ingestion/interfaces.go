package ingestion

import (
	"context"

	"github.com/futig/benchwatch/internal/entity"
	"github.com/futig/benchwatch/internal/worker"
)

type ProjectGetter interface {
	Get(ctx context.Context, id string) (*entity.Project, error)
}

type DocumentStore interface {
	SaveStatus(ctx context.Context, status *entity.IngestionStatus) error
	GetStatus(ctx context.Context, projectID string) (*entity.IngestionStatus, error)
	SaveChunks(ctx context.Context, set *entity.ChunkSet) (string, error)
	SaveQAPairs(ctx context.Context, set *entity.QASet) (string, error)
}

type Chunker interface {
	Chunk(filename string, data []byte) ([]entity.Chunk, error)
}

type Synthesizer interface {
	Generate(ctx context.Context, text string, n int) ([]entity.QAPair, error)
}

type Scheduler interface {
	Submit(id string, task worker.Task) error
}

type Callback interface {
	SendIngestionFinished(ctx context.Context, callbackURL string, requestID string, status *entity.IngestionStatus)
	SendError(ctx context.Context, callbackURL string, requestID string, message string, details map[string]any)
}

type Notifier interface {
	IngestionFinished(ctx context.Context, status *entity.IngestionStatus)
}

type Metrics interface {
	IngestionFile(ok bool)
	IngestionFinished(state string)
}
