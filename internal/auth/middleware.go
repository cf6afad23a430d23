package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	httperrors "gitea.jw6.us/james/teamtasks/internal/http/errors"
	"gitea.jw6.us/james/teamtasks/internal/store"
)

type userKey struct{}

// WithUser returns a copy of ctx carrying the signed-in user.
func WithUser(ctx context.Context, user *store.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the user placed by RequireSession or RequireAPIAuth.
func UserFromContext(ctx context.Context) (*store.User, bool) {
	u, _ := ctx.Value(userKey{}).(*store.User)
	return u, u != nil
}

// RequireSession loads the user from the session cookie or redirects to the
// login page.
func (s *Service) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.sessions.CurrentUserID(r)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		user, err := s.store.Users.GetByID(r.Context(), id)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				httperrors.LogError(r, "load session user", err)
			}
			s.sessions.Clear(w)
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// RequireAPIAuth accepts a bearer token or, failing that, the session cookie.
func (s *Service) RequireAPIAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.apiUserID(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", `Bearer realm="teamtasks"`)
			httperrors.JSONError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		user, err := s.store.Users.GetByID(r.Context(), id)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				httperrors.LogError(r, "load api user", err)
			}
			httperrors.JSONError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

func (s *Service) apiUserID(r *http.Request) (uuid.UUID, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			return uuid.Nil, false
		}
		id, err := s.tokens.Parse(strings.TrimSpace(raw))
		if err != nil {
			return uuid.Nil, false
		}
		return id, true
	}
	return s.sessions.CurrentUserID(r)
}
