package storage

import (
	"database/sql"
	"fmt"
)

// pragmas are applied once per connection before the schema is created.
// WAL lets readers proceed during a write; busy_timeout waits on locks for
// up to five seconds instead of failing with SQLITE_BUSY.
var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA foreign_keys = ON",
}

// SQLiteStorage is the SQLite-backed Storage holding users and tokens.
type SQLiteStorage struct {
	db *sql.DB
	// encryptionKey is the server key that per-token keys are derived from.
	encryptionKey []byte
}

var _ Storage = (*SQLiteStorage)(nil)

// New opens the token database at dbPath (":memory:" in tests) and creates
// the schema. encryptionKey must be 32 bytes.
func New(dbPath string, encryptionKey []byte) (*SQLiteStorage, error) {
	if len(encryptionKey) != 32 {
		return nil, ErrInvalidKey
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: writes to tokens are serialized, and a ":memory:"
	// database only exists on the connection that created it.
	db.SetMaxOpenConns(1)

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close() //nolint:errcheck
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if err := InitSchema(db); err != nil {
		_ = db.Close() //nolint:errcheck
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db, encryptionKey: encryptionKey}, nil
}

// Close releases the database.
func (s *SQLiteStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// getDB exposes the connection to package tests.
func (s *SQLiteStorage) getDB() *sql.DB {
	return s.db
}
