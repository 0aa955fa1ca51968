package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// dummyHash is compared against when a login name is unknown, so unknown
// and known users both pay one bcrypt comparison.
var dummyHash = sync.OnceValue(func() string {
	hash, err := HashPassword("unknown-user")
	if err != nil {
		panic(fmt.Sprintf("storage: failed to hash dummy password: %v", err))
	}
	return hash
})

// CreateUser stores a user with a bcrypt hash of password.
// Returns ErrDuplicate if the uid is taken.
func (s *SQLiteStorage) CreateUser(ctx context.Context, uid, password string) error {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return errors.New("uid required")
	}
	if password == "" {
		return errors.New("password required")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO users (uid, password_hash) VALUES (?, ?)", uid, hash); err != nil {
		var sqliteErr *sqlite.Error
		if errors.As(err, &sqliteErr) && (sqliteErr.Code()&0xFF) == sqlite3.SQLITE_CONSTRAINT {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// VerifyUser checks a login name/password pair and returns the user's uid.
// Returns ErrInvalidCredentials for an unknown user or a wrong password.
func (s *SQLiteStorage) VerifyUser(ctx context.Context, loginName, password string) (string, error) {
	var uid, hash string
	err := s.db.QueryRowContext(ctx,
		"SELECT uid, password_hash FROM users WHERE uid = ?", strings.TrimSpace(loginName)).
		Scan(&uid, &hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = VerifyPassword(password, dummyHash()) //nolint:errcheck
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to look up user: %w", err)
	}

	if err := VerifyPassword(password, hash); err != nil {
		return "", ErrInvalidCredentials
	}

	return uid, nil
}
