package monitor

import (
	"context"
	"net/http"

	"github.com/futig/benchwatch/internal/api/response"
	"github.com/futig/benchwatch/internal/entity"
	"github.com/futig/benchwatch/internal/pkg/logger"
	"github.com/go-chi/chi/v5"
)

type Monitor interface {
	RunCycle(ctx context.Context) (*entity.CycleReport, error)
}

type Handler struct {
	monitor Monitor
}

func NewHandler(monitor Monitor) *Handler {
	return &Handler{monitor: monitor}
}

// RegisterRoutes registers monitor routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/monitor/cycles", h.RunCycle)
}

// RunCycle handles POST /monitor/cycles. Runs are dispatched to the worker
// pool; the response lists what was dispatched, not run outcomes.
func (h *Handler) RunCycle(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "RunMonitorCycle")

	report, err := h.monitor.RunCycle(ctx)
	if err != nil {
		response.HandleError(ctx, w, err)
		return
	}

	response.JSON(w, http.StatusAccepted, report)
}
