// Package storage provides types and interfaces for SQLite persistence operations.
package storage

import (
	"context"
	"time"
)

// TokenStore is durable keyed storage of token records.
type TokenStore interface {
	GetTokensByOwner(ctx context.Context, ownerID string) ([]*Token, error)
	GetTokenBySession(ctx context.Context, sessionID string) (*Token, error)
	GetToken(ctx context.Context, token string) (*Token, error)
	GetTokenByID(ctx context.Context, id int64) (*Token, error)
	GetCachedSecret(ctx context.Context, t *Token, sessionID string) (string, error)
	CreateToken(ctx context.Context, secret, ownerID, loginName string, cachedSecret *string, name string, kind Kind) (*Token, error)
	UpdateToken(ctx context.Context, t *Token) error
	UpdateTokenActivity(ctx context.Context, t *Token, now time.Time) error
	InvalidateToken(ctx context.Context, token string) error
	InvalidateTokenForOwner(ctx context.Context, ownerID string, id int64) error
	DeleteStaleSessionTokens(ctx context.Context, before time.Time) (int64, error)
}

// UserStore holds login credentials for account owners.
type UserStore interface {
	CreateUser(ctx context.Context, uid, password string) error
	VerifyUser(ctx context.Context, loginName, password string) (string, error)
}

// Storage defines the interface for SQLite persistence operations.
type Storage interface {
	TokenStore
	UserStore

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}
