package entity

import "time"

type IngestionState string

const (
	IngestionProcessing          IngestionState = "processing"
	IngestionCompleted           IngestionState = "completed"
	IngestionCompletedWithErrors IngestionState = "completed_with_errors"
	IngestionFailed              IngestionState = "failed"
)

func (s IngestionState) IsFinal() bool {
	return s != IngestionProcessing && s != ""
}

type FileError struct {
	Filename string `json:"filename" bson:"filename"`
	Error    string `json:"error" bson:"error"`
}

// IngestionStatus is the one mutable aggregate of an ingestion run,
// keyed by project id and replaced on each trigger.
type IngestionStatus struct {
	ProjectID        string         `json:"project_id" bson:"project_id"`
	OwnerID          string         `json:"owner_id" bson:"owner_id"`
	State            IngestionState `json:"status" bson:"status"`
	FilesTotal       int            `json:"files_total" bson:"files_total"`
	FilesProcessed   int            `json:"files_processed" bson:"files_processed"`
	ChunksGenerated  int            `json:"chunks_generated" bson:"chunks_generated"`
	QAPairsGenerated int            `json:"qa_pairs_generated" bson:"qa_pairs_generated"`
	Errors           []FileError    `json:"errors" bson:"errors"`
	ChunkDocID       string         `json:"chunk_doc_id,omitempty" bson:"chunk_doc_id,omitempty"`
	QADocID          string         `json:"qa_doc_id,omitempty" bson:"qa_doc_id,omitempty"`
	Error            string         `json:"error,omitempty" bson:"error,omitempty"`
	StartedAt        time.Time      `json:"started_at" bson:"started_at"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

// FinalState derives the terminal state from per-file outcomes.
func FinalState(filesTotal, filesProcessed int) IngestionState {
	switch {
	case filesProcessed == 0:
		return IngestionFailed
	case filesProcessed < filesTotal:
		return IngestionCompletedWithErrors
	default:
		return IngestionCompleted
	}
}

type ChunkSet struct {
	ProjectID      string    `bson:"project_id"`
	OwnerID        string    `bson:"owner_id"`
	FilesProcessed int       `bson:"files_processed"`
	Chunks         []Chunk   `bson:"chunks"`
	CreatedAt      time.Time `bson:"created_at"`
}

type QASet struct {
	ProjectID      string    `bson:"project_id"`
	OwnerID        string    `bson:"owner_id"`
	FilesProcessed int       `bson:"files_processed"`
	QAPairs        []QAPair  `bson:"qa_pairs"`
	CreatedAt      time.Time `bson:"created_at"`
}

type IngestionRequest struct {
	ProjectID   string
	OwnerID     string
	CallbackURL string
	RequestID   string
	Files       []FileData
}
