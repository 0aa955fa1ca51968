// Package mockstore provides a configurable mock implementation of storage interfaces for testing.
//
// The MockStorage type uses function fields for each method, allowing tests to customize behavior
// as needed while providing sensible defaults for methods that aren't customized.
package mockstore

import (
	"context"
	"time"

	"github.com/sipico/apptokens/internal/storage"
)

// MockStorage is a configurable mock implementation of storage.Storage and storage.TokenStore.
// Each method can be customized by setting the corresponding function field.
// If a function field is nil, the method returns a sensible default value.
type MockStorage struct {
	// Token lookups
	GetTokensByOwnerFunc  func(ctx context.Context, ownerID string) ([]*storage.Token, error)
	GetTokenBySessionFunc func(ctx context.Context, sessionID string) (*storage.Token, error)
	GetTokenFunc          func(ctx context.Context, token string) (*storage.Token, error)
	GetTokenByIDFunc      func(ctx context.Context, id int64) (*storage.Token, error)
	GetCachedSecretFunc   func(ctx context.Context, t *storage.Token, sessionID string) (string, error)

	// Token mutations
	CreateTokenFunc              func(ctx context.Context, secret, ownerID, loginName string, cachedSecret *string, name string, kind storage.Kind) (*storage.Token, error)
	UpdateTokenFunc              func(ctx context.Context, t *storage.Token) error
	UpdateTokenActivityFunc      func(ctx context.Context, t *storage.Token, now time.Time) error
	InvalidateTokenFunc          func(ctx context.Context, token string) error
	InvalidateTokenForOwnerFunc  func(ctx context.Context, ownerID string, id int64) error
	DeleteStaleSessionTokensFunc func(ctx context.Context, before time.Time) (int64, error)

	// Users
	CreateUserFunc func(ctx context.Context, uid, password string) error
	VerifyUserFunc func(ctx context.Context, loginName, password string) (string, error)

	// Lifecycle
	PingFunc  func(ctx context.Context) error
	CloseFunc func() error
}

// GetTokensByOwner lists tokens owned by ownerID.
func (m *MockStorage) GetTokensByOwner(ctx context.Context, ownerID string) ([]*storage.Token, error) {
	if m.GetTokensByOwnerFunc != nil {
		return m.GetTokensByOwnerFunc(ctx, ownerID)
	}
	return []*storage.Token{}, nil
}

// GetTokenBySession resolves the session-derived token for sessionID.
func (m *MockStorage) GetTokenBySession(ctx context.Context, sessionID string) (*storage.Token, error) {
	if m.GetTokenBySessionFunc != nil {
		return m.GetTokenBySessionFunc(ctx, sessionID)
	}
	return nil, storage.ErrInvalidToken
}

// GetToken retrieves a token by plaintext.
func (m *MockStorage) GetToken(ctx context.Context, token string) (*storage.Token, error) {
	if m.GetTokenFunc != nil {
		return m.GetTokenFunc(ctx, token)
	}
	return nil, storage.ErrInvalidToken
}

// GetTokenByID retrieves a token by ID.
func (m *MockStorage) GetTokenByID(ctx context.Context, id int64) (*storage.Token, error) {
	if m.GetTokenByIDFunc != nil {
		return m.GetTokenByIDFunc(ctx, id)
	}
	return nil, storage.ErrInvalidToken
}

// GetCachedSecret returns the cached login password of t.
func (m *MockStorage) GetCachedSecret(ctx context.Context, t *storage.Token, sessionID string) (string, error) {
	if m.GetCachedSecretFunc != nil {
		return m.GetCachedSecretFunc(ctx, t, sessionID)
	}
	return "", storage.ErrNoCachedSecret
}

// CreateToken stores a new token.
func (m *MockStorage) CreateToken(ctx context.Context, secret, ownerID, loginName string, cachedSecret *string, name string, kind storage.Kind) (*storage.Token, error) {
	if m.CreateTokenFunc != nil {
		return m.CreateTokenFunc(ctx, secret, ownerID, loginName, cachedSecret, name, kind)
	}
	return &storage.Token{
		ID:           1,
		OwnerID:      ownerID,
		LoginName:    loginName,
		Name:         name,
		Kind:         kind,
		Scope:        storage.DefaultScope(),
		TokenHash:    storage.HashToken(secret),
		CreatedAt:    time.Now(),
		LastActivity: time.Now(),
	}, nil
}

// UpdateToken persists name and scope of t.
func (m *MockStorage) UpdateToken(ctx context.Context, t *storage.Token) error {
	if m.UpdateTokenFunc != nil {
		return m.UpdateTokenFunc(ctx, t)
	}
	return nil
}

// UpdateTokenActivity touches the token's last activity.
func (m *MockStorage) UpdateTokenActivity(ctx context.Context, t *storage.Token, now time.Time) error {
	if m.UpdateTokenActivityFunc != nil {
		return m.UpdateTokenActivityFunc(ctx, t, now)
	}
	return nil
}

// InvalidateToken deletes a token by plaintext.
func (m *MockStorage) InvalidateToken(ctx context.Context, token string) error {
	if m.InvalidateTokenFunc != nil {
		return m.InvalidateTokenFunc(ctx, token)
	}
	return nil
}

// InvalidateTokenForOwner deletes a token if ownerID owns it.
func (m *MockStorage) InvalidateTokenForOwner(ctx context.Context, ownerID string, id int64) error {
	if m.InvalidateTokenForOwnerFunc != nil {
		return m.InvalidateTokenForOwnerFunc(ctx, ownerID, id)
	}
	return nil
}

// DeleteStaleSessionTokens expires idle session tokens.
func (m *MockStorage) DeleteStaleSessionTokens(ctx context.Context, before time.Time) (int64, error) {
	if m.DeleteStaleSessionTokensFunc != nil {
		return m.DeleteStaleSessionTokensFunc(ctx, before)
	}
	return 0, nil
}

// CreateUser registers an account.
func (m *MockStorage) CreateUser(ctx context.Context, uid, password string) error {
	if m.CreateUserFunc != nil {
		return m.CreateUserFunc(ctx, uid, password)
	}
	return nil
}

// VerifyUser checks login credentials.
func (m *MockStorage) VerifyUser(ctx context.Context, loginName, password string) (string, error) {
	if m.VerifyUserFunc != nil {
		return m.VerifyUserFunc(ctx, loginName, password)
	}
	return "", storage.ErrInvalidCredentials
}

// Ping checks the database connection.
func (m *MockStorage) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

// Close closes the storage.
func (m *MockStorage) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}
