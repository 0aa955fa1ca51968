package apptoken

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sipico/apptokens/internal/activity"
	"github.com/sipico/apptokens/internal/credential"
	"github.com/sipico/apptokens/internal/session"
	"github.com/sipico/apptokens/internal/storage"
	"github.com/sipico/apptokens/internal/testutil/mockstore"
)

var credentialPattern = regexp.MustCompile(`^[A-Za-z0-9]{5}-[A-Za-z0-9]{5}-[A-Za-z0-9]{5}-[A-Za-z0-9]{5}-[A-Za-z0-9]{5}$`)

// recordingNotifier captures published events and returns err.
type recordingNotifier struct {
	mu     sync.Mutex
	events []activity.Event
	err    error
}

func (n *recordingNotifier) Publish(_ context.Context, ev activity.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.err
}

func (n *recordingNotifier) subjects() []activity.Subject {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]activity.Subject, 0, len(n.events))
	for _, ev := range n.events {
		out = append(out, ev.Subject)
	}
	return out
}

type fixedGenerator struct {
	value string
	err   error
}

func (g fixedGenerator) Generate() (string, error) { return g.value, g.err }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// sessionCtx returns a context carrying session id s1.
func sessionCtx() context.Context {
	return session.WithSessionID(context.Background(), "s1")
}

// aliceStore models session s1 -> token 1 (session-derived) plus app password 2.
func aliceStore() *mockstore.MockStorage {
	sessionToken := &storage.Token{ID: 1, OwnerID: "alice", LoginName: "alice@example.com", Name: "Firefox", Kind: storage.KindSessionDerived, Scope: storage.DefaultScope()}
	phone := &storage.Token{ID: 2, OwnerID: "alice", LoginName: "alice@example.com", Name: "My Phone", Kind: storage.KindPermanent, Scope: storage.DefaultScope()}

	return &mockstore.MockStorage{
		GetTokenBySessionFunc: func(_ context.Context, sessionID string) (*storage.Token, error) {
			if sessionID == "s1" {
				return sessionToken, nil
			}
			return nil, storage.ErrInvalidToken
		},
		GetTokensByOwnerFunc: func(_ context.Context, ownerID string) ([]*storage.Token, error) {
			if ownerID == "alice" {
				return []*storage.Token{sessionToken, phone}, nil
			}
			return []*storage.Token{}, nil
		},
		GetTokenByIDFunc: func(_ context.Context, id int64) (*storage.Token, error) {
			switch id {
			case 1:
				return sessionToken, nil
			case 2:
				return phone, nil
			}
			return nil, storage.ErrInvalidToken
		},
	}
}

func newTestManager(store storage.TokenStore, notifier activity.Notifier) *Manager {
	return NewManager(store, session.Context{}, credential.NewGenerator(), notifier, discardLogger())
}

func TestList_MarksCurrentSessionToken(t *testing.T) {
	t.Parallel()
	m := newTestManager(aliceStore(), &recordingNotifier{})

	views, err := m.List(sessionCtx(), "alice")
	require.NoError(t, err)
	require.Len(t, views, 2)

	assert.Equal(t, int64(1), views[0].ID)
	assert.True(t, views[0].Current)
	assert.False(t, views[0].CanDelete)

	assert.Equal(t, int64(2), views[1].ID)
	assert.False(t, views[1].Current)
	assert.True(t, views[1].CanDelete)
}

func TestList_ExactlyOneCurrent(t *testing.T) {
	t.Parallel()
	sessionToken := &storage.Token{ID: 7, OwnerID: "bob", Kind: storage.KindSessionDerived}
	owned := []*storage.Token{
		{ID: 3, OwnerID: "bob", Kind: storage.KindPermanent},
		sessionToken,
		{ID: 9, OwnerID: "bob", Kind: storage.KindPermanent},
		{ID: 11, OwnerID: "bob", Kind: storage.KindSessionDerived},
	}
	store := &mockstore.MockStorage{
		GetTokenBySessionFunc: func(context.Context, string) (*storage.Token, error) { return sessionToken, nil },
		GetTokensByOwnerFunc:  func(context.Context, string) ([]*storage.Token, error) { return owned, nil },
	}

	views, err := newTestManager(store, &recordingNotifier{}).List(sessionCtx(), "bob")
	require.NoError(t, err)
	require.Len(t, views, len(owned))

	current := 0
	for i, v := range views {
		assert.Equal(t, owned[i].ID, v.ID, "store order is preserved")
		if v.Current {
			current++
			assert.Equal(t, int64(7), v.ID)
			assert.False(t, v.CanDelete)
		} else {
			assert.True(t, v.CanDelete)
		}
	}
	assert.Equal(t, 1, current)
}

func TestList_ServiceUnavailable(t *testing.T) {
	t.Parallel()

	t.Run("no session", func(t *testing.T) {
		t.Parallel()
		m := newTestManager(aliceStore(), &recordingNotifier{})
		_, err := m.List(context.Background(), "alice")
		assert.ErrorIs(t, err, ErrServiceUnavailable)
	})

	t.Run("session without token", func(t *testing.T) {
		t.Parallel()
		m := newTestManager(aliceStore(), &recordingNotifier{})
		ctx := session.WithSessionID(context.Background(), "expired")
		_, err := m.List(ctx, "alice")
		assert.ErrorIs(t, err, ErrServiceUnavailable)
	})
}

func TestList_StoreError(t *testing.T) {
	t.Parallel()
	dbErr := errors.New("database is locked")
	store := aliceStore()
	store.GetTokensByOwnerFunc = func(context.Context, string) ([]*storage.Token, error) { return nil, dbErr }

	_, err := newTestManager(store, &recordingNotifier{}).List(sessionCtx(), "alice")
	assert.ErrorIs(t, err, dbErr)
	assert.NotErrorIs(t, err, ErrServiceUnavailable)
}

func TestCreate(t *testing.T) {
	t.Parallel()
	store := aliceStore()
	store.GetCachedSecretFunc = func(_ context.Context, tok *storage.Token, sessionID string) (string, error) {
		assert.Equal(t, int64(1), tok.ID)
		assert.Equal(t, "s1", sessionID)
		return "hunter2", nil
	}

	var (
		gotSecret, gotOwner, gotLogin, gotName string
		gotCached                              *string
		gotKind                                storage.Kind
	)
	store.CreateTokenFunc = func(_ context.Context, secret, ownerID, loginName string, cachedSecret *string, name string, kind storage.Kind) (*storage.Token, error) {
		gotSecret, gotOwner, gotLogin, gotCached, gotName, gotKind = secret, ownerID, loginName, cachedSecret, name, kind
		return &storage.Token{ID: 3, OwnerID: ownerID, LoginName: loginName, Name: name, Kind: kind, Scope: storage.DefaultScope(), LastActivity: time.Unix(1700000000, 0)}, nil
	}
	notifier := &recordingNotifier{}

	created, err := newTestManager(store, notifier).Create(sessionCtx(), "alice", "Laptop")
	require.NoError(t, err)

	assert.Regexp(t, credentialPattern, created.Token)
	assert.Len(t, created.Token, 29)
	assert.Equal(t, created.Token, gotSecret)
	assert.Equal(t, "alice@example.com", created.LoginName)

	assert.Equal(t, "alice", gotOwner)
	assert.Equal(t, "alice@example.com", gotLogin)
	assert.Equal(t, "Laptop", gotName)
	assert.Equal(t, storage.KindPermanent, gotKind)
	require.NotNil(t, gotCached)
	assert.Equal(t, "hunter2", *gotCached)

	assert.Equal(t, int64(3), created.DeviceToken.ID)
	assert.True(t, created.DeviceToken.CanDelete)
	assert.False(t, created.DeviceToken.Current)
	assert.Equal(t, int64(1700000000), created.DeviceToken.LastActivity)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, activity.Event{
		App:          "settings",
		Type:         "security",
		AffectedUser: "alice",
		Author:       "alice",
		Subject:      activity.SubjectTokenCreated,
	}, notifier.events[0])
}

func TestCreate_NoCachedSecret(t *testing.T) {
	t.Parallel()
	store := aliceStore()
	var cachedWasNil bool
	store.CreateTokenFunc = func(_ context.Context, secret, ownerID, loginName string, cachedSecret *string, name string, kind storage.Kind) (*storage.Token, error) {
		cachedWasNil = cachedSecret == nil
		return &storage.Token{ID: 3, OwnerID: ownerID, Name: name, Kind: kind}, nil
	}

	created, err := newTestManager(store, &recordingNotifier{}).Create(sessionCtx(), "alice", "CLI")
	require.NoError(t, err)
	assert.NotEmpty(t, created.Token)
	assert.True(t, cachedWasNil)
}

func TestCreate_ServiceUnavailableDoesNotWrite(t *testing.T) {
	t.Parallel()
	store := aliceStore()
	store.CreateTokenFunc = func(context.Context, string, string, string, *string, string, storage.Kind) (*storage.Token, error) {
		t.Error("CreateToken must not be called without a session")
		return nil, errors.New("unexpected")
	}
	notifier := &recordingNotifier{}
	m := newTestManager(store, notifier)

	_, err := m.Create(context.Background(), "alice", "x")
	assert.ErrorIs(t, err, ErrServiceUnavailable)

	_, err = m.Create(session.WithSessionID(context.Background(), "gone"), "alice", "x")
	assert.ErrorIs(t, err, ErrServiceUnavailable)

	assert.Empty(t, notifier.events)
}

func TestCreate_Failures(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")

	t.Run("cached secret error", func(t *testing.T) {
		t.Parallel()
		store := aliceStore()
		store.GetCachedSecretFunc = func(context.Context, *storage.Token, string) (string, error) {
			return "", storage.ErrDecryption
		}
		_, err := newTestManager(store, &recordingNotifier{}).Create(sessionCtx(), "alice", "x")
		assert.ErrorIs(t, err, storage.ErrDecryption)
	})

	t.Run("generator error", func(t *testing.T) {
		t.Parallel()
		m := NewManager(aliceStore(), session.Context{}, fixedGenerator{err: boom}, &recordingNotifier{}, discardLogger())
		_, err := m.Create(sessionCtx(), "alice", "x")
		assert.ErrorIs(t, err, boom)
	})

	t.Run("store error", func(t *testing.T) {
		t.Parallel()
		store := aliceStore()
		store.CreateTokenFunc = func(context.Context, string, string, string, *string, string, storage.Kind) (*storage.Token, error) {
			return nil, boom
		}
		notifier := &recordingNotifier{}
		_, err := newTestManager(store, notifier).Create(sessionCtx(), "alice", "x")
		assert.ErrorIs(t, err, boom)
		assert.Empty(t, notifier.events)
	})
}

func TestUpdate_WhitelistsScope(t *testing.T) {
	t.Parallel()
	store := aliceStore()
	var persisted *storage.Token
	store.UpdateTokenFunc = func(_ context.Context, tok *storage.Token) error {
		persisted = tok
		return nil
	}
	notifier := &recordingNotifier{}

	err := newTestManager(store, notifier).Update(sessionCtx(), "alice", 2, map[string]bool{
		"filesystem": true,
		"admin":      true,
		"sharing":    false,
	})
	require.NoError(t, err)

	require.NotNil(t, persisted)
	assert.Equal(t, map[string]bool{"filesystem": true}, persisted.Scope)
	assert.Equal(t, []activity.Subject{activity.SubjectTokenUpdated}, notifier.subjects())
}

func TestUpdate_DisableFilesystem(t *testing.T) {
	t.Parallel()
	store := aliceStore()
	var persisted *storage.Token
	store.UpdateTokenFunc = func(_ context.Context, tok *storage.Token) error {
		persisted = tok
		return nil
	}

	require.NoError(t, newTestManager(store, &recordingNotifier{}).Update(context.Background(), "alice", 2, map[string]bool{"filesystem": false}))
	assert.Equal(t, map[string]bool{"filesystem": false}, persisted.Scope)
}

func TestUpdate_NotFound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		userID string
		id     int64
	}{
		{name: "missing token", userID: "alice", id: 99},
		{name: "foreign token", userID: "mallory", id: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := aliceStore()
			store.UpdateTokenFunc = func(context.Context, *storage.Token) error {
				t.Error("UpdateToken must not be called")
				return nil
			}
			notifier := &recordingNotifier{}

			err := newTestManager(store, notifier).Update(sessionCtx(), tt.userID, tt.id, map[string]bool{"filesystem": true})
			assert.ErrorIs(t, err, ErrNotFound)
			assert.Empty(t, notifier.events)
		})
	}
}

func TestUpdate_RowVanished(t *testing.T) {
	t.Parallel()
	store := aliceStore()
	store.UpdateTokenFunc = func(context.Context, *storage.Token) error { return storage.ErrInvalidToken }

	err := newTestManager(store, &recordingNotifier{}).Update(sessionCtx(), "alice", 2, map[string]bool{"filesystem": true})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDestroy_PassesOwner(t *testing.T) {
	t.Parallel()
	var gotOwner string
	var gotID int64
	store := &mockstore.MockStorage{
		InvalidateTokenForOwnerFunc: func(_ context.Context, ownerID string, id int64) error {
			gotOwner, gotID = ownerID, id
			return nil
		},
	}
	notifier := &recordingNotifier{}

	require.NoError(t, newTestManager(store, notifier).Destroy(context.Background(), "alice", 2))
	assert.Equal(t, "alice", gotOwner)
	assert.Equal(t, int64(2), gotID)
	assert.Equal(t, []activity.Subject{activity.SubjectTokenDeleted}, notifier.subjects())
}

func TestDestroy_StoreError(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	store := &mockstore.MockStorage{
		InvalidateTokenForOwnerFunc: func(context.Context, string, int64) error { return boom },
	}

	err := newTestManager(store, &recordingNotifier{}).Destroy(context.Background(), "alice", 2)
	assert.ErrorIs(t, err, boom)
}

func TestPublishFailureDoesNotChangeOutcome(t *testing.T) {
	t.Parallel()

	for _, pubErr := range []error{activity.ErrPublishUnsupported, errors.New("activity backend down")} {
		t.Run(pubErr.Error(), func(t *testing.T) {
			t.Parallel()
			notifier := &recordingNotifier{err: pubErr}
			m := newTestManager(aliceStore(), notifier)

			_, err := m.Create(sessionCtx(), "alice", "x")
			assert.NoError(t, err)
			assert.NoError(t, m.Update(sessionCtx(), "alice", 2, map[string]bool{"filesystem": true}))
			assert.NoError(t, m.Destroy(sessionCtx(), "alice", 2))

			assert.Equal(t, []activity.Subject{
				activity.SubjectTokenCreated,
				activity.SubjectTokenUpdated,
				activity.SubjectTokenDeleted,
			}, notifier.subjects())
		})
	}
}

func TestPublishDisabledBackend(t *testing.T) {
	t.Parallel()
	m := newTestManager(aliceStore(), activity.NewCounting(activity.Disabled{}))
	assert.NoError(t, m.Destroy(context.Background(), "alice", 2))
}
