package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// SetLogLevelRequest is the request body for POST /api/loglevel
type SetLogLevelRequest struct {
	Level string `json:"level"`
}

// HandleSetLogLevel changes runtime log level
// POST /api/loglevel
// Body: {"level": "debug|info|warn|error"}
func (h *Handler) HandleSetLogLevel(w http.ResponseWriter, r *http.Request) {
	var req SetLogLevelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON")
		return
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(req.Level)); err != nil || req.Level == "" {
		WriteErrorWithHint(w, http.StatusBadRequest, ErrCodeInvalidRequest,
			"Invalid level", "Use one of: debug, info, warn, error")
		return
	}

	h.logLevel.Set(level)
	h.logger.Info("log level changed", "new_level", level.String())

	writeJSON(w, http.StatusOK, map[string]string{"level": level.String()})
}
