package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const tokenColumns = "id, owner_id, login_name, name, kind, scope, token_hash, password_encrypted, last_activity, created_at"

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanToken(row rowScanner) (*Token, error) {
	var (
		t            Token
		scopeJSON    string
		lastActivity int64
	)
	if err := row.Scan(&t.ID, &t.OwnerID, &t.LoginName, &t.Name, &t.Kind, &scopeJSON,
		&t.TokenHash, &t.PasswordEncrypted, &lastActivity, &t.CreatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(scopeJSON), &t.Scope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scope: %w", err)
	}
	if t.Scope == nil {
		t.Scope = map[string]bool{}
	}
	if lastActivity > 0 {
		t.LastActivity = time.Unix(lastActivity, 0).UTC()
	}

	return &t, nil
}

// CreateToken stores a new token whose plaintext is secret.
// The cached login password, when present, is sealed under a key derived from
// secret so that only a holder of the plaintext token can read it back.
// Returns ErrDuplicate if a token with this hash already exists.
func (s *SQLiteStorage) CreateToken(ctx context.Context, secret, ownerID, loginName string, cachedSecret *string, name string, kind Kind) (*Token, error) {
	if secret == "" {
		return nil, errors.New("token secret required")
	}
	if ownerID == "" {
		return nil, errors.New("owner required")
	}

	var encrypted []byte
	if cachedSecret != nil {
		var err error
		encrypted, err = EncryptSecret(*cachedSecret, DeriveTokenKey(s.encryptionKey, secret))
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt cached password: %w", err)
		}
	}

	scopeJSON, err := json.Marshal(DefaultScope())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scope: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO tokens (owner_id, login_name, name, kind, scope, token_hash, password_encrypted, last_activity) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		ownerID, loginName, name, kind, string(scopeJSON), HashToken(secret), encrypted, time.Now().Unix())
	if err != nil {
		// The extended error code for UNIQUE constraint is 2067
		var sqliteErr *sqlite.Error
		if errors.As(err, &sqliteErr) {
			if sqliteErr.Code() == 2067 || (sqliteErr.Code()&0xFF) == sqlite3.SQLITE_CONSTRAINT {
				return nil, ErrDuplicate
			}
		}
		return nil, fmt.Errorf("failed to create token: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get insert ID: %w", err)
	}

	return s.GetTokenByID(ctx, id)
}

// GetTokenByID retrieves a token by ID.
// Returns ErrInvalidToken if the token doesn't exist.
func (s *SQLiteStorage) GetTokenByID(ctx context.Context, id int64) (*Token, error) {
	t, err := scanToken(s.db.QueryRowContext(ctx,
		"SELECT "+tokenColumns+" FROM tokens WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to get token by ID: %w", err)
	}
	return t, nil
}

// GetToken retrieves a token by its plaintext value.
// This is used during app password authentication.
// Returns ErrInvalidToken if no token matches.
func (s *SQLiteStorage) GetToken(ctx context.Context, token string) (*Token, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	t, err := scanToken(s.db.QueryRowContext(ctx,
		"SELECT "+tokenColumns+" FROM tokens WHERE token_hash = ?", HashToken(token)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to get token by hash: %w", err)
	}
	return t, nil
}

// GetTokenBySession resolves a session identifier to its session-derived token.
// Session tokens use the session id as their plaintext secret.
func (s *SQLiteStorage) GetTokenBySession(ctx context.Context, sessionID string) (*Token, error) {
	return s.GetToken(ctx, sessionID)
}

// GetTokensByOwner returns all tokens owned by ownerID.
// Returns empty slice if the owner has no tokens.
func (s *SQLiteStorage) GetTokensByOwner(ctx context.Context, ownerID string) ([]*Token, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+tokenColumns+" FROM tokens WHERE owner_id = ? ORDER BY id ASC", ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tokens: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	tokens := make([]*Token, 0)
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan token row: %w", err)
		}
		tokens = append(tokens, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tokens: %w", err)
	}

	return tokens, nil
}

// GetCachedSecret returns the login password cached on t.
// sessionID is the plaintext token the password was sealed under.
// Returns ErrNoCachedSecret when the token was created without a password.
func (s *SQLiteStorage) GetCachedSecret(_ context.Context, t *Token, sessionID string) (string, error) {
	if t == nil || len(t.PasswordEncrypted) == 0 {
		return "", ErrNoCachedSecret
	}
	if HashToken(sessionID) != t.TokenHash {
		return "", ErrInvalidToken
	}

	password, err := DecryptSecret(t.PasswordEncrypted, DeriveTokenKey(s.encryptionKey, sessionID))
	if err != nil {
		return "", fmt.Errorf("failed to decrypt cached password: %w", err)
	}
	return password, nil
}

// UpdateToken persists the mutable fields of t (name and scope).
// Returns ErrInvalidToken if the row no longer exists.
func (s *SQLiteStorage) UpdateToken(ctx context.Context, t *Token) error {
	scope := t.Scope
	if scope == nil {
		scope = map[string]bool{}
	}
	scopeJSON, err := json.Marshal(scope)
	if err != nil {
		return fmt.Errorf("failed to marshal scope: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE tokens SET name = ?, scope = ? WHERE id = ?",
		t.Name, string(scopeJSON), t.ID)
	if err != nil {
		return fmt.Errorf("failed to update token: %w", err)
	}

	return requireRowAffected(result)
}

// UpdateTokenActivity records now as the token's last activity.
func (s *SQLiteStorage) UpdateTokenActivity(ctx context.Context, t *Token, now time.Time) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE tokens SET last_activity = ? WHERE id = ?",
		now.Unix(), t.ID)
	if err != nil {
		return fmt.Errorf("failed to update token activity: %w", err)
	}
	if err := requireRowAffected(result); err != nil {
		return err
	}

	t.LastActivity = time.Unix(now.Unix(), 0).UTC()
	return nil
}

// InvalidateToken deletes the token whose plaintext is token.
// Deleting an unknown token is not an error.
func (s *SQLiteStorage) InvalidateToken(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM tokens WHERE token_hash = ?", HashToken(token)); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}
	return nil
}

// InvalidateTokenForOwner deletes token id only if it belongs to ownerID.
// A missing or foreign token is a silent no-op.
func (s *SQLiteStorage) InvalidateTokenForOwner(ctx context.Context, ownerID string, id int64) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM tokens WHERE id = ? AND owner_id = ?", id, ownerID); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}
	return nil
}

// DeleteStaleSessionTokens removes session-derived tokens idle since before.
// App passwords are never expired here.
func (s *SQLiteStorage) DeleteStaleSessionTokens(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM tokens WHERE kind = ? AND last_activity < ?",
		KindSessionDerived, before.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale session tokens: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

func requireRowAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrInvalidToken
	}
	return nil
}
