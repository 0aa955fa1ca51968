// Package session tracks browser login sessions and exposes the current
// session identifier to the token manager.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"
)

// CookieName is the cookie carrying the session identifier.
const CookieName = "session"

// DefaultTimeout is used when a Store is created with a zero timeout.
const DefaultTimeout = 24 * time.Hour

// ErrSessionUnavailable is returned when a request carries no active session.
var ErrSessionUnavailable = errors.New("session: no active session")

// Session represents a browser login session.
type Session struct {
	ID        string
	UserID    string
	LoginName string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Store manages sessions in memory. It is safe for concurrent use.
type Store struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	timeout  time.Duration
	now      func() time.Time
}

// NewStore creates a session store.
func NewStore(timeout time.Duration) *Store {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Store{
		sessions: make(map[string]*Session),
		timeout:  timeout,
		now:      time.Now,
	}
}

// Timeout returns the session lifetime.
func (s *Store) Timeout() time.Duration {
	return s.timeout
}

// CreateSession starts a session for userID.
func (s *Store) CreateSession(_ context.Context, userID, loginName string) (*Session, error) {
	// 32 bytes = 64 hex chars
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}

	now := s.now()
	sess := &Session{
		ID:        hex.EncodeToString(b),
		UserID:    userID,
		LoginName: loginName,
		CreatedAt: now,
		ExpiresAt: now.Add(s.timeout),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	return sess, nil
}

// GetSession retrieves a live session by ID. Expired sessions are removed.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if s.now().After(sess.ExpiresAt) {
		s.DeleteSession(ctx, id)
		return nil, false
	}

	return sess, true
}

// DeleteSession removes a session.
func (s *Store) DeleteSession(_ context.Context, id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Cleanup removes expired sessions and returns how many were dropped.
func (s *Store) Cleanup(_ context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if now.After(sess.ExpiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

type ctxKey int

const sessionIDKey ctxKey = iota

// WithSessionID returns a context carrying the current session identifier.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionIDFromContext returns the session identifier stored in ctx.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok && id != ""
}

// Context supplies the identifier of the session attached to a request.
type Context struct{}

// CurrentSessionID returns the session id from ctx or ErrSessionUnavailable.
func (Context) CurrentSessionID(ctx context.Context) (string, error) {
	id, ok := SessionIDFromContext(ctx)
	if !ok {
		return "", ErrSessionUnavailable
	}
	return id, nil
}
