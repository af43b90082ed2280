package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerAccessLine(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	r := chi.NewRouter()
	r.Use(Logger(zap.New(core)))
	r.Get("/projects/{project_id}/results", func(w http.ResponseWriter, r *http.Request) {
		ctxzap.Info(r.Context(), "inside handler")
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/projects/p-1/results", nil))

	if got := logs.FilterMessage("inside handler").Len(); got != 1 {
		t.Fatalf("handler log lines = %d, want request logger in context", got)
	}

	access := logs.FilterMessage("HTTP request handled").All()
	if len(access) != 1 {
		t.Fatalf("access lines = %d, want 1", len(access))
	}
	entry := access[0]
	if entry.Level != zapcore.WarnLevel {
		t.Errorf("level = %s, want warn for 404", entry.Level)
	}
	fields := entry.ContextMap()
	if fields["project_id"] != "p-1" {
		t.Errorf("project_id = %v", fields["project_id"])
	}
	if fields["status"] != int64(http.StatusNotFound) {
		t.Errorf("status = %v", fields["status"])
	}
}

func TestAccessLevel(t *testing.T) {
	tests := []struct {
		path   string
		status int
		want   zapcore.Level
	}{
		{"/projects/p/results", http.StatusOK, zapcore.InfoLevel},
		{"/health", http.StatusOK, zapcore.DebugLevel},
		{"/metrics", http.StatusOK, zapcore.DebugLevel},
		{"/projects/p/ingestions", http.StatusBadRequest, zapcore.WarnLevel},
		{"/health", http.StatusServiceUnavailable, zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		if got := accessLevel(tt.path, tt.status); got != tt.want {
			t.Errorf("accessLevel(%s, %d) = %s, want %s", tt.path, tt.status, got, tt.want)
		}
	}
}
