package storage

import (
	"bytes"
	"context"
	"testing"
)

// testKey is a fixed 32-byte server key for tests.
var testKey = bytes.Repeat([]byte{0x42}, 32)

// newTestStorage opens an in-memory store and registers cleanup.
func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	s, err := New(":memory:", testKey)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// mustCreateToken creates a token or fails the test.
func mustCreateToken(t *testing.T, s *SQLiteStorage, secret, owner string, password *string, kind Kind) *Token {
	t.Helper()

	tok, err := s.CreateToken(context.Background(), secret, owner, owner, password, "device "+secret, kind)
	if err != nil {
		t.Fatalf("CreateToken(%q) failed: %v", secret, err)
	}
	return tok
}

func strPtr(s string) *string { return &s }
