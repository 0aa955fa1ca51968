// Package api exposes the token service over HTTP: login sessions, the
// personal app password endpoints, health probes and operator endpoints.
package api

import (
	"context"
	"log/slog"

	"github.com/sipico/apptokens/internal/apptoken"
	"github.com/sipico/apptokens/internal/auth"
	"github.com/sipico/apptokens/internal/session"
	"github.com/sipico/apptokens/internal/storage"
)

// TokenManager is the token lifecycle surface used by the handlers.
type TokenManager interface {
	List(ctx context.Context, userID string) ([]apptoken.TokenView, error)
	Create(ctx context.Context, userID, name string) (*apptoken.Created, error)
	Update(ctx context.Context, userID string, id int64, scope map[string]bool) error
	Destroy(ctx context.Context, userID string, id int64) error
}

// Handler serves the HTTP API.
type Handler struct {
	storage   storage.Storage
	manager   TokenManager
	sessions  *session.Store
	validator *auth.Validator
	logger    *slog.Logger
	logLevel  *slog.LevelVar
}

// NewHandler creates an API handler.
func NewHandler(store storage.Storage, manager TokenManager, sessions *session.Store, logLevel *slog.LevelVar, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if logLevel == nil {
		logLevel = new(slog.LevelVar)
	}

	return &Handler{
		storage:   store,
		manager:   manager,
		sessions:  sessions,
		validator: auth.NewValidator(store),
		logger:    logger,
		logLevel:  logLevel,
	}
}
