package apperror

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrValidation     = errors.New("Validation Error")
	ErrConflict       = errors.New("conflict")
	ErrForbidden      = errors.New("forbidden")
	ErrCooldown       = errors.New("cooldown active")
	ErrPartialFailure = errors.New("partial failure")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error

	// Remaining is set on cooldown errors so the caller can tell the
	// user how long they must wait before retrying.
	Remaining time.Duration

	// OrphanID is set on partial-failure errors: the id of the record
	// that WAS created before the follow-up write failed. It exists for
	// logging and for callers that want to link to the orphan record.
	OrphanID string
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Cooldown returns an AppError for an operation attempted before its
// cooldown window elapsed. The remaining wait is carried on the error so
// the UI can display it.
func Cooldown(what string, remaining time.Duration) *AppError {
	return &AppError{
		Err:       ErrCooldown,
		Message:   fmt.Sprintf("%s is on cooldown for another %s", what, remaining.Round(time.Second)),
		Remaining: remaining,
	}
}

// PartialFailure returns an AppError for a multi-step write that committed
// its first step but failed a follow-up step. The orphan record's id is
// attached; no automatic compensation is attempted here — the reconciler
// repairs these out of band.
func PartialFailure(message, orphanID string) *AppError {
	return &AppError{
		Err:      ErrPartialFailure,
		Message:  message,
		OrphanID: orphanID,
	}
}
