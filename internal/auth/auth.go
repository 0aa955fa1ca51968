// Package auth authenticates requests made with app passwords and carries the
// authenticated identity through the request context.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/sipico/apptokens/internal/storage"
)

// Errors for authentication failures.
var (
	// ErrMissingCredentials indicates no credentials were provided.
	ErrMissingCredentials = errors.New("auth: missing credentials")
	// ErrInvalidCredentials indicates the login name or app password is wrong.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
)

// TokenLookup is the subset of the token store used for authentication.
type TokenLookup interface {
	GetToken(ctx context.Context, token string) (*storage.Token, error)
	UpdateTokenActivity(ctx context.Context, t *storage.Token, now time.Time) error
}

// Validator checks app passwords against the token store.
type Validator struct {
	tokens TokenLookup
	now    func() time.Time
}

// NewValidator creates a new Validator.
func NewValidator(tokens TokenLookup) *Validator {
	return &Validator{tokens: tokens, now: time.Now}
}

// ValidateAppPassword returns the token matching password when it was issued
// to loginName. Successful validations touch the token's last activity.
func (v *Validator) ValidateAppPassword(ctx context.Context, loginName, password string) (*storage.Token, error) {
	if loginName == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	tok, err := v.tokens.GetToken(ctx, password)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidToken) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	// Session tokens are only valid through their cookie.
	if tok.Kind != storage.KindPermanent || tok.LoginName != loginName {
		return nil, ErrInvalidCredentials
	}

	// Activity bookkeeping must not block authentication.
	_ = v.tokens.UpdateTokenActivity(ctx, tok, v.now()) //nolint:errcheck

	return tok, nil
}
