package storage

import (
	"context"
	"fmt"
)

// Ping reports whether the token table is reachable. It backs /ready, so a
// database that opened but lost its schema also counts as not ready.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tokens").Scan(&n); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}
