package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sipico/apptokens/internal/apptoken"
)

// Standard error codes for API responses.
const (
	// ErrCodeInvalidRequest indicates a malformed request body or path.
	ErrCodeInvalidRequest = "invalid_request"

	// ErrCodeInvalidCredentials indicates a failed login.
	ErrCodeInvalidCredentials = "invalid_credentials"

	// ErrCodeServiceUnavailable indicates the request has no usable session.
	ErrCodeServiceUnavailable = "service_unavailable"

	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound = "not_found"

	// ErrCodeInternalError indicates a server error.
	ErrCodeInternalError = "internal_error"
)

// APIError is the standard error response format for JSON APIs.
type APIError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// WriteError writes a JSON error response with the given status code, error code, and message.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteErrorWithHint(w, status, code, message, "")
}

// WriteErrorWithHint writes a JSON error response with an optional hint for resolving the error.
func WriteErrorWithHint(w http.ResponseWriter, status int, code, message, hint string) {
	writeJSON(w, status, APIError{
		Error:   code,
		Message: message,
		Hint:    hint,
	})
}

// writeJSON writes v as a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Encoding errors are not critical since headers are already sent
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// writeManagerError maps token manager errors to HTTP responses.
func writeManagerError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, apptoken.ErrServiceUnavailable):
		WriteErrorWithHint(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable,
			"No active session for this request",
			"Log in with your account password; app passwords cannot list or create tokens")
	case errors.Is(err, apptoken.ErrNotFound):
		WriteError(w, http.StatusNotFound, ErrCodeNotFound, "Token not found")
	default:
		logger.Error("token operation failed", "operation", op, "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal server error")
	}
}
