package results

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers result routes under /projects/{project_id}
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/results", h.ListResults)
	r.Get("/results/export", h.Export)
}
