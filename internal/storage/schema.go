// Package storage handles all database operations for the app token service.
package storage

import (
	"database/sql"
	"fmt"
)

// InitSchema creates all required tables and indexes.
// This is idempotent - safe to call multiple times.
func InitSchema(db *sql.DB) error {
	ddlStatements := []string{
		// users table: account owners and their bcrypt password hashes
		`CREATE TABLE IF NOT EXISTS users (
			uid TEXT PRIMARY KEY,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		// tokens table: session-derived tokens and app passwords
		`CREATE TABLE IF NOT EXISTS tokens (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			owner_id TEXT NOT NULL,
			login_name TEXT NOT NULL,
			name TEXT NOT NULL,
			kind INTEGER NOT NULL CHECK (kind IN (0, 1)),
			scope TEXT NOT NULL,
			token_hash TEXT NOT NULL UNIQUE,
			password_encrypted BLOB,
			last_activity INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		// Index on token_hash for authentication and session lookups
		`CREATE INDEX IF NOT EXISTS idx_tokens_hash ON tokens(token_hash)`,

		// Index on owner_id for listing a user's tokens
		`CREATE INDEX IF NOT EXISTS idx_tokens_owner ON tokens(owner_id)`,
	}

	// Execute each DDL statement
	for _, stmt := range ddlStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute DDL: %w", err)
		}
	}

	return nil
}
