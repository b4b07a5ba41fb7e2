package handler

// Response helpers. Every error leaving the API has the same shape:
//
//	{"error": "conflict", "message": "username taken", ...}
//
// so clients parse one format regardless of status code. The mapping
// from domain errors to HTTP lives here and only here — the service
// layer never sees a status code.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/askwall/internal/apperror"
)

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`

	// RetryAfterSeconds accompanies cooldown errors.
	RetryAfterSeconds int64 `json:"retryAfterSeconds,omitempty"`
}

// writeJSON sends a JSON response. Headers and status must go out before
// the first body byte; after that an encode failure can only be logged.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to HTTP.
//
// errors.Is walks the whole wrap chain, so a service error like
// fmt.Errorf("publishing: %w", apperror.Conflict(...)) still maps to 409.
// The cooldown branch also emits a Retry-After header, which is what
// well-behaved clients key their countdown UI off.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
			errorType = "forbidden"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
			errorType = "conflict"
		case errors.Is(err, apperror.ErrCooldown):
			status = http.StatusTooManyRequests
			errorType = "cooldown"
		case errors.Is(err, apperror.ErrPartialFailure):
			// The answer WAS created; the client should refetch, not
			// retry the publish.
			status = http.StatusAccepted
			errorType = "partial_failure"
		}

		resp := ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
			Field:   appErr.Field,
		}
		if appErr.Remaining > 0 {
			secs := int64(appErr.Remaining.Seconds())
			resp.RetryAfterSeconds = secs
			w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
		}
		writeJSON(w, status, resp)
		return
	}

	// Unknown error: generic 500. The raw message could carry SQL or
	// paths — it stays in the logs, not the response.
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// decodeValid decodes a JSON body into dst and runs struct-tag
// validation on it. Returns false after writing the error response, so
// handlers can bail with a bare return.
func decodeValid(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return false
	}
	if err := v.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		resp := ErrorResponse{Error: "validation_error", Message: "request validation failed"}
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			resp.Field = fieldErrs[0].Field()
			resp.Message = "invalid value for " + fieldErrs[0].Field()
		}
		writeJSON(w, http.StatusBadRequest, resp)
		return false
	}
	return true
}
