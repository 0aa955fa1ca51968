package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sipico/apptokens/internal/auth"
	"github.com/sipico/apptokens/internal/middleware"
)

// maxTokenNameLen bounds user supplied token names.
const maxTokenNameLen = 120

// CreateTokenRequest is the request body for POST /settings/personal/authtokens
type CreateTokenRequest struct {
	Name string `json:"name"`
}

// UpdateTokenRequest is the request body for PUT /settings/personal/authtokens/{id}
type UpdateTokenRequest struct {
	Scope map[string]bool `json:"scope"`
}

// HandleListTokens returns the caller's tokens.
// GET /settings/personal/authtokens
func (h *Handler) HandleListTokens(w http.ResponseWriter, r *http.Request) {
	views, err := h.manager.List(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		writeManagerError(w, middleware.Logger(r.Context(), h.logger), "list", err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// HandleCreateToken creates an app password from the current session.
// POST /settings/personal/authtokens
// Body: {"name": "..."}
// The plaintext credential is in the response and is never shown again.
func (h *Handler) HandleCreateToken(w http.ResponseWriter, r *http.Request) {
	var req CreateTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "name is required")
		return
	}
	if len(name) > maxTokenNameLen {
		WriteErrorWithHint(w, http.StatusBadRequest, ErrCodeInvalidRequest, "name is too long",
			"Use at most "+strconv.Itoa(maxTokenNameLen)+" characters")
		return
	}

	created, err := h.manager.Create(r.Context(), auth.UserIDFromContext(r.Context()), name)
	if err != nil {
		writeManagerError(w, middleware.Logger(r.Context(), h.logger), "create", err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

// HandleUpdateToken replaces the scope of a token.
// PUT /settings/personal/authtokens/{id}
// Body: {"scope": {"filesystem": true}}
func (h *Handler) HandleUpdateToken(w http.ResponseWriter, r *http.Request) {
	id, ok := tokenID(w, r)
	if !ok {
		return
	}

	var req UpdateTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON")
		return
	}
	if req.Scope == nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "scope is required")
		return
	}

	if err := h.manager.Update(r.Context(), auth.UserIDFromContext(r.Context()), id, req.Scope); err != nil {
		writeManagerError(w, middleware.Logger(r.Context(), h.logger), "update", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{})
}

// HandleDeleteToken revokes a token.
// DELETE /settings/personal/authtokens/{id}
func (h *Handler) HandleDeleteToken(w http.ResponseWriter, r *http.Request) {
	id, ok := tokenID(w, r)
	if !ok {
		return
	}

	if err := h.manager.Destroy(r.Context(), auth.UserIDFromContext(r.Context()), id); err != nil {
		writeManagerError(w, middleware.Logger(r.Context(), h.logger), "destroy", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{})
}

// tokenID parses the {id} path parameter, writing a 400 on failure.
func tokenID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid token ID")
		return 0, false
	}
	return id, true
}
