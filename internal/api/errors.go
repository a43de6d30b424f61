// Package api provides the HTTP handlers of the GoLocal API and its
// standardized error envelope.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/onnwee/golocal/internal/middleware"
)

// Error codes returned in the envelope. Clients switch on these, never on
// the message, which is user-facing Portuguese text.
const (
	ErrCodeValidation      = "validation_error"
	ErrCodeBadRequest      = "bad_request"
	ErrCodeAuthFailed      = "auth_failed" // no device identity, or a rejected token
	ErrCodeNotFound        = "not_found"
	ErrCodeMissingLocation = "missing_location" // map action on a place without coordinates
	ErrCodeSuperseded      = "superseded"       // a newer request from the same device won
	ErrCodeRateLimited     = "rate_limited"
	ErrCodePersistence     = "persistence_error"
	ErrCodeInternal        = "internal_error"
)

var statusByCode = map[string]int{
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeAuthFailed:      http.StatusUnauthorized,
	ErrCodeNotFound:        http.StatusNotFound,
	ErrCodeSuperseded:      http.StatusConflict,
	ErrCodeMissingLocation: http.StatusUnprocessableEntity,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
	// The store being down is transient; clients may retry the toggle.
	ErrCodePersistence: http.StatusServiceUnavailable,
}

// ErrorResponse is the body of every error: {"error": {"code", "message"}}.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the machine-readable code and the display message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError writes the error envelope and records code for the request log.
//
//	api.WriteError(w, r.Context(), http.StatusNotFound, api.ErrCodeNotFound, "Lugar não encontrado")
func WriteError(w http.ResponseWriter, ctx context.Context, status int, code, message string) {
	middleware.SetErrorCode(ctx, code)
	writeJSON(w, ctx, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, ctx context.Context, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// StatusCodeMapping returns the HTTP status for an error code. Unknown codes
// map to 500.
func StatusCodeMapping(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// writeCode writes an error whose status follows StatusCodeMapping.
func writeCode(w http.ResponseWriter, r *http.Request, code, message string) {
	WriteError(w, r.Context(), StatusCodeMapping(code), code, message)
}
