package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sipico/apptokens/internal/metrics"
)

// BasicMiddleware authenticates "Authorization: Basic" requests carrying an
// app password. Requests already authenticated by a session are passed through.
func BasicMiddleware(v *Validator, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if UserIDFromContext(r.Context()) != "" {
				next.ServeHTTP(w, r)
				return
			}

			loginName, password, ok := r.BasicAuth()
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			tok, err := v.ValidateAppPassword(r.Context(), loginName, password)
			if err != nil {
				if errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrMissingCredentials) {
					metrics.RecordAuthFailure("invalid_app_password")
					logger.Warn("invalid app password attempt", "login_name", loginName, "remote_addr", r.RemoteAddr)
					writeJSONError(w, http.StatusUnauthorized, "invalid credentials")
					return
				}
				logger.Error("failed to validate app password", "error", err)
				writeJSONError(w, http.StatusInternalServerError, "internal error")
				return
			}

			ctx := WithUserID(r.Context(), tok.OwnerID)
			ctx = WithLoginName(ctx, tok.LoginName)
			ctx = WithToken(ctx, tok)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser rejects requests that no authenticator has claimed.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserIDFromContext(r.Context()) == "" {
			metrics.RecordAuthFailure("unauthenticated")
			writeJSONError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeJSONError writes a JSON error response
func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Encoding errors are not critical for error responses
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message}) //nolint:errcheck
}
