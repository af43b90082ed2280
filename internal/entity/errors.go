package entity

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	// Project errors
	ErrProjectNotFound = errors.New("project not found")

	// Ingestion errors
	ErrStatusNotFound = errors.New("ingestion status not found")
	ErrNoQAPairs      = errors.New("no qa pairs available")
	ErrNoChunks       = errors.New("no chunks extracted")
	ErrUnsupported    = errors.New("unsupported document format")

	// File errors
	ErrInvalidFile       = errors.New("invalid file")
	ErrFileTooLarge      = errors.New("file too large")
	ErrTooManyFiles      = errors.New("too many files")
	ErrInvalidExtension  = errors.New("invalid file extension")
	ErrTotalSizeTooLarge = errors.New("total file size too large")

	// Scheduling errors
	ErrQueueFull     = errors.New("job queue is full")
	ErrPoolStopped   = errors.New("worker pool is stopped")
	ErrAlreadyLocked = errors.New("project run already in progress")

	// Validation errors
	ErrMissingField     = errors.New("required field is missing")
	ErrInvalidFormat    = errors.New("invalid format")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrPageOutOfRange   = errors.New("page out of range")
)

// ErrorKind enumerates the closed set of pipeline failure classes.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindCollaborator
	KindInvocation
	KindPersistence
	KindTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindCollaborator:
		return "collaborator"
	case KindInvocation:
		return "invocation"
	case KindPersistence:
		return "persistence"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// ValidationError reports malformed config, templates or files. Never retried.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %v", e.Err)
	}
	return fmt.Sprintf("validation: %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// CollaboratorError reports a failed generation or judging call.
type CollaboratorError struct {
	Op  string
	Err error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("collaborator %s: %v", e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// InvocationError reports a non-2xx or transport failure against a target.
type InvocationError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *InvocationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("invoke %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("invoke %s: %v", e.URL, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// PersistenceError reports a failed store write. Always propagated.
type PersistenceError struct {
	ProjectID string
	Stage     string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s (project %s): %v", e.Stage, e.ProjectID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// TimeoutError reports a run abandoned after exceeding its budget.
type TimeoutError struct {
	ProjectID string
	Err       error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("run for project %s timed out: %v", e.ProjectID, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// KindOf classifies err into one of the ErrorKind variants.
func KindOf(err error) ErrorKind {
	var (
		ve *ValidationError
		ce *CollaboratorError
		ie *InvocationError
		pe *PersistenceError
		te *TimeoutError
	)
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &ve):
		return KindValidation
	case errors.As(err, &ce):
		return KindCollaborator
	case errors.As(err, &ie):
		return KindInvocation
	case errors.As(err, &pe):
		return KindPersistence
	case errors.As(err, &te):
		return KindTimeout
	default:
		return KindUnknown
	}
}

func NewValidationError(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

func NewCollaboratorError(op string, err error) error {
	return &CollaboratorError{Op: op, Err: err}
}

func NewPersistenceError(projectID, stage string, err error) error {
	return &PersistenceError{ProjectID: projectID, Stage: stage, Err: err}
}
