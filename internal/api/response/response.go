// Package response writes JSON bodies and maps domain errors to HTTP codes.
package response

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/futig/benchwatch/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func Error(ctx context.Context, w http.ResponseWriter, status int, message string, err error) {
	if status >= http.StatusInternalServerError {
		ctxzap.Error(ctx, message, zap.Error(err))
	} else {
		ctxzap.Warn(ctx, message, zap.Error(err))
	}

	body := entity.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	}
	if err != nil && status < http.StatusInternalServerError {
		body.Message = message + ": " + err.Error()
	}
	JSON(w, status, body)
}

// HandleError responds with the status matching err.
func HandleError(ctx context.Context, w http.ResponseWriter, err error) {
	status, message := Status(err)
	Error(ctx, w, status, message, err)
}

func Status(err error) (int, string) {
	switch {
	case errors.Is(err, entity.ErrProjectNotFound),
		errors.Is(err, entity.ErrStatusNotFound):
		return http.StatusNotFound, "resource not found"
	case errors.Is(err, entity.ErrPageOutOfRange):
		return http.StatusNotFound, "page out of range"
	case errors.Is(err, entity.ErrQueueFull),
		errors.Is(err, entity.ErrPoolStopped):
		return http.StatusServiceUnavailable, "service busy, retry later"
	case entity.KindOf(err) == entity.KindValidation,
		errors.Is(err, entity.ErrInvalidParameter),
		errors.Is(err, entity.ErrMissingField):
		return http.StatusBadRequest, "invalid request"
	case errors.Is(err, entity.ErrInvalidFile),
		errors.Is(err, entity.ErrFileTooLarge),
		errors.Is(err, entity.ErrTooManyFiles),
		errors.Is(err, entity.ErrInvalidExtension),
		errors.Is(err, entity.ErrTotalSizeTooLarge):
		return http.StatusBadRequest, "invalid file"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
