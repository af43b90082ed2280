package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/futig/benchwatch/internal/config"
	"github.com/futig/benchwatch/internal/entity"
	"github.com/futig/benchwatch/internal/pkg/logger"
	"github.com/futig/benchwatch/internal/pkg/validator"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// finalizeTimeout bounds the best-effort status write on the failure path.
const finalizeTimeout = 10 * time.Second

// IngestionUsecase turns uploaded documents into a stored QA set.
type IngestionUsecase struct {
	cfg       config.IngestionConfig
	projects  ProjectGetter
	documents DocumentStore
	chunker   Chunker
	synth     Synthesizer
	scheduler Scheduler
	callback  Callback
	notifier  Notifier
	metrics   Metrics
	validator *validator.Validator
	logger    *zap.Logger
	now       func() time.Time
}

// NewUsecase creates a new ingestion use case
func NewUsecase(
	cfg config.IngestionConfig,
	projects ProjectGetter,
	documents DocumentStore,
	chunker Chunker,
	synth Synthesizer,
	scheduler Scheduler,
	callback Callback,
	notifier Notifier,
	metrics Metrics,
	validator *validator.Validator,
	logger *zap.Logger,
) *IngestionUsecase {
	return &IngestionUsecase{
		cfg:       cfg,
		projects:  projects,
		documents: documents,
		chunker:   chunker,
		synth:     synth,
		scheduler: scheduler,
		callback:  callback,
		notifier:  notifier,
		metrics:   metrics,
		validator: validator,
		logger:    logger,
		now:       time.Now,
	}
}

// Trigger validates the upload, records a processing status and queues the
// ingestion job. The returned status is the one visible to pollers.
func (uc *IngestionUsecase) Trigger(
	ctx context.Context,
	req *entity.TriggerIngestionRequest,
) (*entity.IngestionStatus, error) {
	ctx = logger.WithAction(ctx, "trigger_ingestion")

	if err := uc.validator.ValidateTrigger(req); err != nil {
		return nil, err
	}

	project, err := uc.projects.Get(ctx, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}

	files, err := uc.prepareFileData(ctx, req.Files)
	if err != nil {
		return nil, entity.NewValidationError("files", fmt.Errorf("%w: %v", entity.ErrInvalidFile, err))
	}

	job := &entity.IngestionRequest{
		ProjectID:   project.ID,
		OwnerID:     ownerOf(req.OwnerID, project),
		CallbackURL: req.CallbackURL,
		RequestID:   uuid.New().String(),
		Files:       files,
	}

	status := uc.newStatus(job)
	if err := uc.documents.SaveStatus(ctx, status); err != nil {
		return nil, &entity.PersistenceError{ProjectID: job.ProjectID, Stage: "save_status", Err: err}
	}

	jobCtx := logger.AddFields(logger.Detach(ctx),
		zap.String("project_id", job.ProjectID),
		zap.String("ingestion_id", job.RequestID),
	)
	err = uc.scheduler.Submit(job.RequestID, func(workerCtx context.Context) {
		runCtx := ctxzap.ToContext(workerCtx, ctxzap.Extract(jobCtx))
		if _, err := uc.Run(runCtx, job); err != nil {
			ctxzap.Error(runCtx, "ingestion run failed", zap.Error(err))
			if job.CallbackURL != "" {
				uc.callback.SendError(runCtx, job.CallbackURL, job.RequestID, "ingestion failed", map[string]any{
					"project_id": job.ProjectID,
					"error":      err.Error(),
				})
			}
		}
	})
	if err != nil {
		ctxzap.Warn(ctx, "ingestion job rejected",
			zap.String("project_id", job.ProjectID),
			zap.Error(err),
		)
		uc.fail(ctx, status, err)
		return status, fmt.Errorf("enqueue ingestion: %w", err)
	}

	ctxzap.Info(ctx, "ingestion queued",
		zap.String("project_id", job.ProjectID),
		zap.String("ingestion_id", job.RequestID),
		zap.Int("files", len(files)),
	)

	return status, nil
}

// Ingest runs the pipeline synchronously for already-read files.
func (uc *IngestionUsecase) Ingest(ctx context.Context, job *entity.IngestionRequest) (*entity.IngestionStatus, error) {
	if len(job.Files) == 0 {
		return nil, entity.NewValidationError("files", entity.ErrMissingField)
	}

	project, err := uc.projects.Get(ctx, job.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	job.OwnerID = ownerOf(job.OwnerID, project)
	if job.RequestID == "" {
		job.RequestID = uuid.New().String()
	}

	return uc.Run(ctx, job)
}

// Run processes every file of the job. A failing file is recorded in the
// status and the remaining files are still processed.
func (uc *IngestionUsecase) Run(ctx context.Context, job *entity.IngestionRequest) (status *entity.IngestionStatus, err error) {
	ctx = logger.AddFields(ctx, zap.String("project_id", job.ProjectID))
	status = uc.newStatus(job)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ingestion panic: %v", r)
			uc.fail(ctx, status, err)
		}
	}()

	if err := uc.documents.SaveStatus(ctx, status); err != nil {
		err = &entity.PersistenceError{ProjectID: job.ProjectID, Stage: "save_status", Err: err}
		uc.fail(ctx, status, err)
		return status, err
	}

	var (
		chunks []entity.Chunk
		pairs  []entity.QAPair
	)
	for _, file := range job.Files {
		if err := ctx.Err(); err != nil {
			uc.fail(ctx, status, err)
			return status, err
		}

		fileChunks, filePairs, err := uc.processFile(ctx, file)
		if err != nil {
			ctxzap.Warn(ctx, "file ingestion failed",
				zap.String("file", file.Filename),
				zap.Error(err),
			)
			status.Errors = append(status.Errors, entity.FileError{Filename: file.Filename, Error: err.Error()})
			uc.metrics.IngestionFile(false)
		} else {
			status.FilesProcessed++
			status.ChunksGenerated += len(fileChunks)
			status.QAPairsGenerated += len(filePairs)
			chunks = append(chunks, fileChunks...)
			pairs = append(pairs, filePairs...)
			uc.metrics.IngestionFile(true)
		}

		if err := uc.documents.SaveStatus(ctx, status); err != nil {
			err = &entity.PersistenceError{ProjectID: job.ProjectID, Stage: "save_status", Err: err}
			uc.fail(ctx, status, err)
			return status, err
		}
	}

	createdAt := uc.now()
	if len(chunks) > 0 {
		id, err := uc.documents.SaveChunks(ctx, &entity.ChunkSet{
			ProjectID:      job.ProjectID,
			OwnerID:        job.OwnerID,
			FilesProcessed: status.FilesProcessed,
			Chunks:         chunks,
			CreatedAt:      createdAt,
		})
		if err != nil {
			err = &entity.PersistenceError{ProjectID: job.ProjectID, Stage: "save_chunks", Err: err}
			uc.fail(ctx, status, err)
			return status, err
		}
		status.ChunkDocID = id
	}

	if len(pairs) > 0 {
		id, err := uc.documents.SaveQAPairs(ctx, &entity.QASet{
			ProjectID:      job.ProjectID,
			OwnerID:        job.OwnerID,
			FilesProcessed: status.FilesProcessed,
			QAPairs:        pairs,
			CreatedAt:      createdAt,
		})
		if err != nil {
			err = &entity.PersistenceError{ProjectID: job.ProjectID, Stage: "save_qa_pairs", Err: err}
			uc.fail(ctx, status, err)
			return status, err
		}
		status.QADocID = id
	}

	status.State = entity.FinalState(status.FilesTotal, status.FilesProcessed)
	if status.State == entity.IngestionFailed {
		status.Error = "no files could be processed"
	}
	completedAt := uc.now()
	status.CompletedAt = &completedAt

	if err := uc.documents.SaveStatus(ctx, status); err != nil {
		return status, &entity.PersistenceError{ProjectID: job.ProjectID, Stage: "save_status", Err: err}
	}

	ctxzap.Info(ctx, "ingestion finished",
		zap.String("state", string(status.State)),
		zap.Int("files_processed", status.FilesProcessed),
		zap.Int("files_total", status.FilesTotal),
		zap.Int("chunks", status.ChunksGenerated),
		zap.Int("qa_pairs", status.QAPairsGenerated),
	)
	uc.finished(ctx, job, status)

	return status, nil
}

// GetStatus returns the latest ingestion status of a project.
func (uc *IngestionUsecase) GetStatus(ctx context.Context, projectID string) (*entity.IngestionStatus, error) {
	if projectID == "" {
		return nil, entity.NewValidationError("project_id", entity.ErrMissingField)
	}

	status, err := uc.documents.GetStatus(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("get ingestion status: %w", err)
	}
	return status, nil
}

// processFile chunks one document and synthesizes pairs from its first
// MaxChunksPerFile chunks. A chunk whose synthesis fails is skipped.
func (uc *IngestionUsecase) processFile(ctx context.Context, file entity.FileData) ([]entity.Chunk, []entity.QAPair, error) {
	chunks, err := uc.chunker.Chunk(file.Filename, file.Content)
	if err != nil {
		return nil, nil, err
	}

	selected := chunks
	if uc.cfg.MaxChunksPerFile > 0 && len(selected) > uc.cfg.MaxChunksPerFile {
		selected = selected[:uc.cfg.MaxChunksPerFile]
	}

	var pairs []entity.QAPair
	for _, chunk := range selected {
		generated, err := uc.synth.Generate(ctx, chunk.Content, uc.cfg.QuestionsPerChunk)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			ctxzap.Warn(ctx, "qa synthesis failed for chunk",
				zap.String("file", file.Filename),
				zap.Int("chunk_index", chunk.Index),
				zap.Error(err),
			)
			continue
		}
		pairs = append(pairs, generated...)
	}

	ctxzap.Debug(ctx, "file ingested",
		zap.String("file", file.Filename),
		zap.Int("chunks", len(chunks)),
		zap.Int("qa_pairs", len(pairs)),
	)
	return chunks, pairs, nil
}

func (uc *IngestionUsecase) newStatus(job *entity.IngestionRequest) *entity.IngestionStatus {
	return &entity.IngestionStatus{
		ProjectID:  job.ProjectID,
		OwnerID:    job.OwnerID,
		State:      entity.IngestionProcessing,
		FilesTotal: len(job.Files),
		Errors:     []entity.FileError{},
		StartedAt:  uc.now(),
	}
}

// fail marks the status failed and stores it best-effort, even when ctx is
// already cancelled.
func (uc *IngestionUsecase) fail(ctx context.Context, status *entity.IngestionStatus, cause error) {
	status.State = entity.IngestionFailed
	status.Error = cause.Error()
	completedAt := uc.now()
	status.CompletedAt = &completedAt

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()
	if err := uc.documents.SaveStatus(saveCtx, status); err != nil {
		ctxzap.Error(ctx, "failed to store failed ingestion status",
			zap.String("project_id", status.ProjectID),
			zap.Error(errors.Join(cause, err)),
		)
	}
	uc.metrics.IngestionFinished(string(status.State))
}

func (uc *IngestionUsecase) finished(ctx context.Context, job *entity.IngestionRequest, status *entity.IngestionStatus) {
	uc.metrics.IngestionFinished(string(status.State))
	uc.notifier.IngestionFinished(ctx, status)
	if job.CallbackURL != "" {
		uc.callback.SendIngestionFinished(ctx, job.CallbackURL, job.RequestID, status)
	}
}

func ownerOf(ownerID string, project *entity.Project) string {
	if ownerID != "" {
		return ownerID
	}
	return project.OwnerID
}
