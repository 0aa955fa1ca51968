package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sipico/apptokens/internal/apptoken"
	"github.com/sipico/apptokens/internal/auth"
	"github.com/sipico/apptokens/internal/session"
	"github.com/sipico/apptokens/internal/testutil/mockstore"
)

// fakeManager is a func-field TokenManager.
type fakeManager struct {
	ListFunc    func(ctx context.Context, userID string) ([]apptoken.TokenView, error)
	CreateFunc  func(ctx context.Context, userID, name string) (*apptoken.Created, error)
	UpdateFunc  func(ctx context.Context, userID string, id int64, scope map[string]bool) error
	DestroyFunc func(ctx context.Context, userID string, id int64) error
}

func (f *fakeManager) List(ctx context.Context, userID string) ([]apptoken.TokenView, error) {
	if f.ListFunc != nil {
		return f.ListFunc(ctx, userID)
	}
	return []apptoken.TokenView{}, nil
}

func (f *fakeManager) Create(ctx context.Context, userID, name string) (*apptoken.Created, error) {
	if f.CreateFunc != nil {
		return f.CreateFunc(ctx, userID, name)
	}
	return &apptoken.Created{}, nil
}

func (f *fakeManager) Update(ctx context.Context, userID string, id int64, scope map[string]bool) error {
	if f.UpdateFunc != nil {
		return f.UpdateFunc(ctx, userID, id, scope)
	}
	return nil
}

func (f *fakeManager) Destroy(ctx context.Context, userID string, id int64) error {
	if f.DestroyFunc != nil {
		return f.DestroyFunc(ctx, userID, id)
	}
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHandler(store *mockstore.MockStorage, manager TokenManager) *Handler {
	if store == nil {
		store = &mockstore.MockStorage{}
	}
	if manager == nil {
		manager = &fakeManager{}
	}
	return NewHandler(store, manager, session.NewStore(time.Hour), nil, discardLogger())
}

// asUser returns req authenticated as userID, as the session middleware would.
func asUser(req *http.Request, userID string) *http.Request {
	return req.WithContext(auth.WithUserID(req.Context(), userID))
}

// serve routes req through the public router.
func serve(h *Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.NewRouter().ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	return nil
}

func newTestSession(t *testing.T, h *Handler, userID string) *session.Session {
	t.Helper()
	sess, err := h.sessions.CreateSession(context.Background(), userID, userID)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return sess
}
