package results

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/futig/benchwatch/internal/api/response"
	"github.com/futig/benchwatch/internal/entity"
	"github.com/futig/benchwatch/internal/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type Handler struct {
	usecase ResultsUsecase
}

func NewHandler(usecase ResultsUsecase) *Handler {
	return &Handler{usecase: usecase}
}

// ListResults handles GET /projects/{project_id}/results
func (h *Handler) ListResults(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "project_id")
	ctx := logger.AddFields(r.Context(),
		zap.String("project_id", projectID),
		zap.String("action", "ListResults"),
	)

	page, err := intParam(r, "page")
	if err != nil {
		response.Error(ctx, w, http.StatusBadRequest, "invalid page", err)
		return
	}
	pageSize, err := intParam(r, "page_size")
	if err != nil {
		response.Error(ctx, w, http.StatusBadRequest, "invalid page_size", err)
		return
	}

	resp, err := h.usecase.ListResults(ctx, &entity.ListResultsRequest{
		ProjectID: projectID,
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		response.HandleError(ctx, w, err)
		return
	}

	ctxzap.Debug(ctx, "results listed",
		zap.Int("count", len(resp.Results)),
		zap.Int("total", resp.Pagination.Total),
	)
	response.JSON(w, http.StatusOK, resp)
}

// Export handles GET /projects/{project_id}/results/export
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "project_id")
	ctx := logger.AddFields(r.Context(),
		zap.String("project_id", projectID),
		zap.String("action", "ExportResults"),
	)

	format := entity.ResultFormat(r.URL.Query().Get("format"))
	if format == "" {
		format = entity.FormatMarkdown
	}

	file, err := h.usecase.Export(ctx, projectID, format)
	if err != nil {
		response.HandleError(ctx, w, err)
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(file.Data)
}

func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", entity.ErrInvalidParameter, name)
	}
	return v, nil
}
