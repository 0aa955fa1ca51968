package auth

import (
	"context"

	"github.com/sipico/apptokens/internal/storage"
)

// ctxKey is a private type for context keys to prevent collisions.
type ctxKey int

const (
	userIDKey    ctxKey = iota // stores string (authenticated owner id)
	loginNameKey               // stores string (login name used to authenticate)
	tokenKey                   // stores *storage.Token (app password used, if any)
)

// WithUserID records the authenticated user in ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated user, or "" if none.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// WithLoginName records the login name the user authenticated with.
func WithLoginName(ctx context.Context, loginName string) context.Context {
	return context.WithValue(ctx, loginNameKey, loginName)
}

// LoginNameFromContext returns the login name, or "" if none.
func LoginNameFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(loginNameKey).(string); ok {
		return v
	}
	return ""
}

// WithToken records the app password token used for this request.
func WithToken(ctx context.Context, token *storage.Token) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// TokenFromContext returns the app password token, or nil for session requests.
func TokenFromContext(ctx context.Context) *storage.Token {
	if v, ok := ctx.Value(tokenKey).(*storage.Token); ok {
		return v
	}
	return nil
}
