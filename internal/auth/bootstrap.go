package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sipico/apptokens/internal/storage"
)

// UserCreator is the subset of the user store used for seeding.
type UserCreator interface {
	CreateUser(ctx context.Context, uid, password string) error
}

// Bootstrap seeds an initial account so a fresh deployment can log in.
// An empty uid disables seeding. An existing account is left untouched.
func Bootstrap(ctx context.Context, users UserCreator, uid, password string, logger *slog.Logger) error {
	if uid == "" {
		return nil
	}
	if password == "" {
		return errors.New("bootstrap password required when bootstrap user is set")
	}

	err := users.CreateUser(ctx, uid, password)
	switch {
	case errors.Is(err, storage.ErrDuplicate):
		logger.Debug("bootstrap user already exists", "uid", uid)
		return nil
	case err != nil:
		return fmt.Errorf("failed to create bootstrap user: %w", err)
	}

	logger.Info("bootstrap user created", "uid", uid)
	return nil
}
