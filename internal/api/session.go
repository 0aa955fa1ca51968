package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sipico/apptokens/internal/metrics"
	"github.com/sipico/apptokens/internal/middleware"
	"github.com/sipico/apptokens/internal/session"
	"github.com/sipico/apptokens/internal/storage"
)

// maxDeviceNameLen bounds the User-Agent derived name of session tokens.
const maxDeviceNameLen = 64

// LoginRequest is the request body for POST /login
type LoginRequest struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

// HandleLogin authenticates with the account password and starts a session.
// POST /login
// Body: {"user": "...", "password": "..."}
//
// The session is backed by a session-derived token whose secret is the session
// id. The login password is cached on it, sealed under that id, so app
// passwords created from this session inherit it.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	logger := middleware.Logger(r.Context(), h.logger)

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON")
		return
	}
	if req.User == "" || req.Password == "" {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "user and password are required")
		return
	}

	uid, err := h.storage.VerifyUser(r.Context(), req.User, req.Password)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidCredentials) {
			metrics.RecordAuthFailure("invalid_login")
			logger.Warn("failed login attempt", "user", req.User, "remote_addr", r.RemoteAddr)
			WriteError(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, "Invalid user or password")
			return
		}
		logger.Error("failed to verify user", "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal server error")
		return
	}

	sess, err := h.sessions.CreateSession(r.Context(), uid, req.User)
	if err != nil {
		logger.Error("failed to create session", "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal server error")
		return
	}

	password := req.Password
	if _, err := h.storage.CreateToken(r.Context(), sess.ID, uid, req.User, &password, deviceName(r), storage.KindSessionDerived); err != nil {
		h.sessions.DeleteSession(r.Context(), sess.ID)
		logger.Error("failed to create session token", "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal server error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    sess.ID,
		Path:     "/",
		MaxAge:   int(h.sessions.Timeout().Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	logger.Info("login successful", "user", uid)
	writeJSON(w, http.StatusOK, map[string]string{"user": uid})
}

// HandleLogout ends the current session and revokes its token.
// POST /logout
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	logger := middleware.Logger(r.Context(), h.logger)

	if sessionID, ok := session.SessionIDFromContext(r.Context()); ok {
		if err := h.storage.InvalidateToken(r.Context(), sessionID); err != nil {
			logger.Error("failed to revoke session token", "error", err)
			WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal server error")
			return
		}
		h.sessions.DeleteSession(r.Context(), sessionID)
		logger.Info("logout")
	}

	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	writeJSON(w, http.StatusOK, map[string]any{})
}

// deviceName labels a session token after the client that opened it.
func deviceName(r *http.Request) string {
	name := strings.TrimSpace(r.UserAgent())
	if name == "" {
		return "Browser session"
	}
	if len(name) > maxDeviceNameLen {
		name = name[:maxDeviceNameLen]
	}
	return name
}
