package session

import (
	"net/http"

	"github.com/sipico/apptokens/internal/auth"
)

// Middleware attaches the session named by the session cookie, if any, to the
// request context together with its user. Requests without a live session pass
// through unchanged so other authenticators can run.
func Middleware(store *Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(CookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			sess, ok := store.GetSession(r.Context(), cookie.Value)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithSessionID(r.Context(), sess.ID)
			ctx = auth.WithUserID(ctx, sess.UserID)
			ctx = auth.WithLoginName(ctx, sess.LoginName)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
