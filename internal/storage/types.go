package storage

import "time"

// Kind distinguishes the live login session token from long-lived app passwords.
type Kind int

const (
	// KindSessionDerived is the token backing a browser/client login session.
	KindSessionDerived Kind = 0
	// KindPermanent is an app password created explicitly by the user.
	KindPermanent Kind = 1
)

// ScopeFilesystem is the only scope key read or written by the token manager.
const ScopeFilesystem = "filesystem"

// Token is a persisted device/application credential.
type Token struct {
	ID        int64
	OwnerID   string
	LoginName string
	Name      string
	Kind      Kind
	Scope     map[string]bool
	TokenHash string
	// PasswordEncrypted holds the login password sealed under a key derived
	// from the plaintext token. Nil when the login had no retrievable password.
	PasswordEncrypted []byte
	CreatedAt         time.Time
	LastActivity      time.Time
}

// DefaultScope returns the scope assigned to newly created tokens.
func DefaultScope() map[string]bool {
	return map[string]bool{ScopeFilesystem: true}
}
