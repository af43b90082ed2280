package response

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/futig/benchwatch/internal/entity"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "project not found", err: fmt.Errorf("get project: %w", entity.ErrProjectNotFound), want: http.StatusNotFound},
		{name: "status not found", err: entity.ErrStatusNotFound, want: http.StatusNotFound},
		{name: "page out of range", err: entity.ErrPageOutOfRange, want: http.StatusNotFound},
		{name: "queue full", err: fmt.Errorf("enqueue: %w", entity.ErrQueueFull), want: http.StatusServiceUnavailable},
		{name: "validation", err: entity.NewValidationError("page", entity.ErrInvalidParameter), want: http.StatusBadRequest},
		{name: "file too large", err: entity.ErrFileTooLarge, want: http.StatusBadRequest},
		{name: "persistence", err: &entity.PersistenceError{Stage: "save", Err: errors.New("down")}, want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, _ := Status(tt.err); got != tt.want {
				t.Errorf("Status() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHandleErrorHidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleError(context.Background(), rec, errors.New("pq: password authentication failed"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("code = %d", rec.Code)
	}
	var body entity.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Message != "internal server error" {
		t.Errorf("message = %q", body.Message)
	}
}
