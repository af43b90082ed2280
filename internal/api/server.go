package api

import (
	"net/http"
	"time"

	"github.com/futig/benchwatch/internal/api/docs"
	ingestionapi "github.com/futig/benchwatch/internal/api/ingestion"
	"github.com/futig/benchwatch/internal/api/middleware"
	monitorapi "github.com/futig/benchwatch/internal/api/monitor"
	resultsapi "github.com/futig/benchwatch/internal/api/results"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// SetupRouter creates and configures the HTTP router
func SetupRouter(
	ingestionHandler *ingestionapi.Handler,
	resultsHandler *resultsapi.Handler,
	monitorHandler *monitorapi.Handler,
	observer middleware.HTTPObserver,
	gatherer prometheus.Gatherer,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimiddleware.Recoverer)                 // Recover from panics
	r.Use(chimiddleware.RequestID)                 // Add request ID
	r.Use(middleware.Logger(logger))               // Log requests
	r.Use(middleware.Metrics(observer))            // Request latency
	r.Use(middleware.CORS)                         // Handle CORS
	r.Use(chimiddleware.Timeout(60 * time.Second)) // Default timeout

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Swagger documentation endpoints
	docs.RegisterRoutes(r)

	// Register routes
	r.Route("/projects/{project_id}", func(r chi.Router) {
		ingestionapi.RegisterRoutes(r, ingestionHandler)
		resultsapi.RegisterRoutes(r, resultsHandler)
	})
	monitorapi.RegisterRoutes(r, monitorHandler)

	return r
}
