package ingestion

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers ingestion routes under /projects/{project_id}
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/ingestions", h.TriggerIngestion)
	r.Get("/ingestion", h.GetStatus)
}
