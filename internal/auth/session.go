package auth

import (
	"crypto/sha256"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"

	"gitea.jw6.us/james/teamtasks/internal/config"
)

const (
	sessionCookie = "teamtasks_session"
	stateCookie   = "teamtasks_oauth_state"
	sessionTTL    = 7 * 24 * time.Hour
	stateTTL      = 10 * time.Minute
)

type sessionValue struct {
	UserID string `json:"user_id"`
	Exp    int64  `json:"exp"`
}

type stateValue struct {
	State string `json:"state"`
	Nonce string `json:"nonce"`
}

// SessionManager manages web UI sessions.
type SessionManager struct {
	codec  *securecookie.SecureCookie
	secure bool
}

func NewSessionManager(cfg *config.Config) *SessionManager {
	hash := sha256.Sum256([]byte(cfg.Session.Secret))
	sc := securecookie.New(hash[:], hash[:])
	sc.MaxAge(int(sessionTTL / time.Second))
	sc.SetSerializer(securecookie.JSONEncoder{})

	secure := true
	if base, err := url.Parse(cfg.BaseURL); err == nil && base.Scheme != "https" {
		secure = false
	}
	return &SessionManager{codec: sc, secure: secure}
}

// Issue sets the session cookie for a user.
func (m *SessionManager) Issue(w http.ResponseWriter, userID uuid.UUID) error {
	expires := time.Now().Add(sessionTTL)
	encoded, err := m.codec.Encode(sessionCookie, sessionValue{UserID: userID.String(), Exp: expires.Unix()})
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    encoded,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear removes the session cookie.
func (m *SessionManager) Clear(w http.ResponseWriter) {
	m.expire(w, sessionCookie)
}

func (m *SessionManager) expire(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
	})
}

// CurrentUserID extracts the user ID from the request session if present.
func (m *SessionManager) CurrentUserID(r *http.Request) (uuid.UUID, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return uuid.Nil, false
	}
	var value sessionValue
	if err := m.codec.Decode(sessionCookie, c.Value, &value); err != nil {
		return uuid.Nil, false
	}
	if time.Unix(value.Exp, 0).Before(time.Now()) {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(value.UserID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (m *SessionManager) issueState(w http.ResponseWriter, v stateValue) error {
	encoded, err := m.codec.Encode(stateCookie, v)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    encoded,
		Path:     "/auth",
		Expires:  time.Now().Add(stateTTL),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// takeState reads and clears the OAuth state cookie.
func (m *SessionManager) takeState(w http.ResponseWriter, r *http.Request) (stateValue, bool) {
	c, err := r.Cookie(stateCookie)
	if err != nil {
		return stateValue{}, false
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/auth", MaxAge: -1, HttpOnly: true, Secure: m.secure})
	var v stateValue
	if err := m.codec.Decode(stateCookie, c.Value, &v); err != nil {
		return stateValue{}, false
	}
	return v, true
}
