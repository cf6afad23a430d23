// Package csrf implements double-submit tokens for the HTML forms.
package csrf

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"net/url"

	"gitea.jw6.us/james/teamtasks/internal/config"
)

type contextKey struct{}

const (
	cookieName = "teamtasks_csrf"
	headerName = "X-CSRF-Token"
	// FieldName is the hidden form field templates must submit.
	FieldName = "_csrf"
)

// Middleware makes sure every visitor has a token cookie and rejects
// state-changing requests whose header or form token does not match it.
func Middleware(cfg *config.Config) func(http.Handler) http.Handler {
	secure := true
	if base, err := url.Parse(cfg.BaseURL); err == nil && base.Scheme != "https" {
		secure = false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := ensureToken(w, r, secure)
			if err != nil {
				http.Error(w, "failed to issue csrf token", http.StatusInternalServerError)
				return
			}
			if mutating(r.Method) && !matches(submitted(r), token) {
				http.Error(w, "invalid csrf token", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, token)))
		})
	}
}

func ensureToken(w http.ResponseWriter, r *http.Request, secure bool) (string, error) {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := base64.RawURLEncoding.EncodeToString(buf)
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	return token, nil
}

func submitted(r *http.Request) string {
	if v := r.Header.Get(headerName); v != "" {
		return v
	}
	return r.FormValue(FieldName)
}

func matches(provided, token string) bool {
	return provided != "" && subtle.ConstantTimeCompare([]byte(provided), []byte(token)) == 1
}

// TokenFromContext returns the CSRF token associated with the request.
func TokenFromContext(ctx context.Context) string {
	v, _ := ctx.Value(contextKey{}).(string)
	return v
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
