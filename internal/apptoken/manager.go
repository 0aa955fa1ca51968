// Package apptoken manages the lifecycle of app passwords: listing a user's
// tokens, deriving new ones from the login session, updating scope and revoking.
package apptoken

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sipico/apptokens/internal/activity"
	"github.com/sipico/apptokens/internal/metrics"
	"github.com/sipico/apptokens/internal/storage"
)

// SessionContext supplies the session identifier of the in-flight request.
type SessionContext interface {
	CurrentSessionID(ctx context.Context) (string, error)
}

// CredentialGenerator produces new app password strings.
type CredentialGenerator interface {
	Generate() (string, error)
}

// Manager orchestrates token operations on behalf of an authenticated user.
// It holds no per-request state and is safe for concurrent use when its
// collaborators are.
type Manager struct {
	store    storage.TokenStore
	sessions SessionContext
	gen      CredentialGenerator
	notifier activity.Notifier
	logger   *slog.Logger
}

// NewManager creates a Manager. A nil logger uses slog.Default().
func NewManager(store storage.TokenStore, sessions SessionContext, gen CredentialGenerator, notifier activity.Notifier, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:    store,
		sessions: sessions,
		gen:      gen,
		notifier: notifier,
		logger:   logger,
	}
}

// currentSessionToken resolves the request's session to its token.
// Both failure modes collapse into ErrServiceUnavailable.
func (m *Manager) currentSessionToken(ctx context.Context) (string, *storage.Token, error) {
	sessionID, err := m.sessions.CurrentSessionID(ctx)
	if err != nil {
		m.logger.Debug("no session for request", "error", err)
		return "", nil, ErrServiceUnavailable
	}

	tok, err := m.store.GetTokenBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidToken) {
			return "", nil, ErrServiceUnavailable
		}
		return "", nil, fmt.Errorf("failed to resolve session token: %w", err)
	}

	return sessionID, tok, nil
}

// List returns every token owned by userID. The token backing the current
// session is flagged current and cannot be deleted.
func (m *Manager) List(ctx context.Context, userID string) ([]TokenView, error) {
	_, current, err := m.currentSessionToken(ctx)
	if err != nil {
		recordOutcome("list", err)
		return nil, err
	}

	tokens, err := m.store.GetTokensByOwner(ctx, userID)
	if err != nil {
		recordOutcome("list", err)
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}

	views := make([]TokenView, 0, len(tokens))
	for _, t := range tokens {
		v := newView(t)
		if t.ID == current.ID {
			v.Current = true
		} else {
			v.CanDelete = true
		}
		views = append(views, v)
	}

	recordOutcome("list", nil)
	return views, nil
}

// Create derives a new app password named name from the current session.
// The login password cached on the session token, if any, is carried over so
// the new credential can unlock the same resources.
func (m *Manager) Create(ctx context.Context, userID, name string) (*Created, error) {
	sessionID, sessionToken, err := m.currentSessionToken(ctx)
	if err != nil {
		recordOutcome("create", err)
		return nil, err
	}

	loginName := sessionToken.LoginName

	var cached *string
	secret, err := m.store.GetCachedSecret(ctx, sessionToken, sessionID)
	switch {
	case errors.Is(err, storage.ErrNoCachedSecret):
		// Token-based logins have no password to carry over.
	case err != nil:
		recordOutcome("create", err)
		return nil, fmt.Errorf("failed to read cached password: %w", err)
	default:
		cached = &secret
	}

	credential, err := m.gen.Generate()
	if err != nil {
		recordOutcome("create", err)
		return nil, fmt.Errorf("failed to generate credential: %w", err)
	}

	tok, err := m.store.CreateToken(ctx, credential, userID, loginName, cached, name, storage.KindPermanent)
	if err != nil {
		recordOutcome("create", err)
		return nil, fmt.Errorf("failed to create token: %w", err)
	}

	view := newView(tok)
	view.CanDelete = true

	m.publishActivity(ctx, userID, activity.SubjectTokenCreated)

	m.logger.Info("app password created", "user", userID, "token_id", tok.ID)
	recordOutcome("create", nil)

	return &Created{
		Token:       credential,
		LoginName:   loginName,
		DeviceToken: view,
	}, nil
}

// Update replaces the scope of token id. Only the filesystem key is kept.
// Returns ErrNotFound if the token is missing or owned by someone else.
func (m *Manager) Update(ctx context.Context, userID string, id int64, scope map[string]bool) error {
	tok, err := m.store.GetTokenByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidToken) {
			recordOutcome("update", ErrNotFound)
			return ErrNotFound
		}
		recordOutcome("update", err)
		return fmt.Errorf("failed to get token: %w", err)
	}

	if tok.OwnerID != userID {
		recordOutcome("update", ErrNotFound)
		return ErrNotFound
	}

	tok.Scope = allowedScope(scope)

	if err := m.store.UpdateToken(ctx, tok); err != nil {
		if errors.Is(err, storage.ErrInvalidToken) {
			// Deleted between read and write.
			recordOutcome("update", ErrNotFound)
			return ErrNotFound
		}
		recordOutcome("update", err)
		return fmt.Errorf("failed to update token: %w", err)
	}

	m.publishActivity(ctx, userID, activity.SubjectTokenUpdated)

	recordOutcome("update", nil)
	return nil
}

// Destroy revokes token id if userID owns it. A missing or foreign token is
// not reported.
func (m *Manager) Destroy(ctx context.Context, userID string, id int64) error {
	if err := m.store.InvalidateTokenForOwner(ctx, userID, id); err != nil {
		recordOutcome("destroy", err)
		return fmt.Errorf("failed to invalidate token: %w", err)
	}

	m.publishActivity(ctx, userID, activity.SubjectTokenDeleted)

	recordOutcome("destroy", nil)
	return nil
}

// publishActivity emits an audit event authored by userID about their own account.
// Failures are logged and never reach the caller.
func (m *Manager) publishActivity(ctx context.Context, userID string, subject activity.Subject) {
	ev := activity.Event{
		App:          activity.AppSettings,
		Type:         activity.TypeSecurity,
		AffectedUser: userID,
		Author:       userID,
		Subject:      subject,
	}

	err := m.notifier.Publish(ctx, ev)
	switch {
	case err == nil:
	case errors.Is(err, activity.ErrPublishUnsupported):
		m.logger.Warn("could not publish activity", "subject", string(subject), "error", err)
	default:
		m.logger.Error("failed to publish activity", "subject", string(subject), "error", err)
	}
}

// allowedScope copies only recognized scope keys.
func allowedScope(in map[string]bool) map[string]bool {
	return map[string]bool{
		storage.ScopeFilesystem: in[storage.ScopeFilesystem],
	}
}

func recordOutcome(operation string, err error) {
	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, ErrServiceUnavailable):
		outcome = "unavailable"
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
	}
	metrics.RecordTokenOperation(operation, outcome)
}
