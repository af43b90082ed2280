package ingestion

import (
	"errors"
	"net/http"

	"github.com/futig/benchwatch/internal/api/response"
	"github.com/futig/benchwatch/internal/config"
	"github.com/futig/benchwatch/internal/entity"
	"github.com/futig/benchwatch/internal/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type Handler struct {
	usecase IngestionUsecase
	cfg     config.FileUploadConfig
}

func NewHandler(usecase IngestionUsecase, cfg config.FileUploadConfig) *Handler {
	return &Handler{
		usecase: usecase,
		cfg:     cfg,
	}
}

// TriggerIngestion handles POST /projects/{project_id}/ingestions
func (h *Handler) TriggerIngestion(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "project_id")
	ctx := logger.AddFields(r.Context(),
		zap.String("project_id", projectID),
		zap.String("action", "TriggerIngestion"),
	)

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadSize)
	if err := r.ParseMultipartForm(h.cfg.MaxUploadSize); err != nil {
		response.Error(ctx, w, http.StatusBadRequest, "invalid form data or size too large", err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	req := entity.TriggerIngestionRequest{
		ProjectID:   projectID,
		OwnerID:     r.FormValue("owner_id"),
		CallbackURL: r.FormValue("callback_url"),
		Files:       r.MultipartForm.File["files"],
	}

	ctxzap.Info(ctx, "triggering ingestion", zap.Int("file_count", len(req.Files)))

	status, err := h.usecase.Trigger(ctx, &req)
	if err != nil {
		response.HandleError(ctx, w, err)
		return
	}

	response.JSON(w, http.StatusAccepted, &entity.TriggerIngestionResponse{
		Status:    "accepted",
		Message:   "ingestion is being processed",
		Ingestion: status,
	})
}

// GetStatus handles GET /projects/{project_id}/ingestion
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "project_id")
	ctx := logger.AddFields(r.Context(),
		zap.String("project_id", projectID),
		zap.String("action", "GetIngestionStatus"),
	)

	status, err := h.usecase.GetStatus(ctx, projectID)
	if err != nil {
		if errors.Is(err, entity.ErrStatusNotFound) {
			response.Error(ctx, w, http.StatusNotFound, "no ingestion recorded for project", nil)
			return
		}
		response.HandleError(ctx, w, err)
		return
	}

	response.JSON(w, http.StatusOK, status)
}
