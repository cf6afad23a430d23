package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	httperrors "gitea.jw6.us/james/teamtasks/internal/http/errors"
	"gitea.jw6.us/james/teamtasks/internal/store"
)

type oidcClient struct {
	verifier *oidc.IDTokenVerifier
	oauth    oauth2.Config
}

type idClaims struct {
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified"`
	Name          string `json:"name"`
}

// provider discovers the issuer once and caches the result. A failed
// discovery is retried on the next request.
func (s *Service) provider(ctx context.Context) (*oidcClient, error) {
	s.oidcMu.Lock()
	defer s.oidcMu.Unlock()
	if s.oidc != nil {
		return s.oidc, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	p, err := oidc.NewProvider(ctx, s.cfg.OAuth.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("discover issuer: %w", err)
	}
	s.oidc = &oidcClient{
		verifier: p.Verifier(&oidc.Config{ClientID: s.cfg.OAuth.ClientID}),
		oauth: oauth2.Config{
			ClientID:     s.cfg.OAuth.ClientID,
			ClientSecret: s.cfg.OAuth.ClientSecret,
			Endpoint:     p.Endpoint(),
			RedirectURL:  s.cfg.BaseURL + s.cfg.OAuth.RedirectPath,
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
	}
	return s.oidc, nil
}

// BeginOAuth redirects to the identity provider.
func (s *Service) BeginOAuth(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.OAuthEnabled() {
		http.NotFound(w, r)
		return
	}
	client, err := s.provider(r.Context())
	if err != nil {
		httperrors.InternalError(w, r, err, "oidc provider")
		return
	}
	st := stateValue{State: uuid.NewString(), Nonce: uuid.NewString()}
	if err := s.sessions.issueState(w, st); err != nil {
		httperrors.InternalError(w, r, err, "oauth state cookie")
		return
	}
	http.Redirect(w, r, client.oauth.AuthCodeURL(st.State, oidc.Nonce(st.Nonce)), http.StatusFound)
}

// HandleOAuthCallback completes the flow, provisions the user on first
// sign-in and starts a session.
func (s *Service) HandleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.OAuthEnabled() {
		http.NotFound(w, r)
		return
	}
	st, ok := s.sessions.takeState(w, r)
	if !ok || st.State == "" || r.URL.Query().Get("state") != st.State {
		httperrors.BadRequestError(w, r, errors.New("state mismatch"), "invalid sign-in state")
		return
	}
	if e := r.URL.Query().Get("error"); e != "" {
		httperrors.BadRequestError(w, r, fmt.Errorf("provider error: %s", e), "sign-in was cancelled")
		return
	}

	ctx := r.Context()
	client, err := s.provider(ctx)
	if err != nil {
		httperrors.InternalError(w, r, err, "oidc provider")
		return
	}
	token, err := client.oauth.Exchange(ctx, r.URL.Query().Get("code"))
	if err != nil {
		httperrors.BadRequestError(w, r, err, "could not complete sign-in")
		return
	}
	rawID, ok := token.Extra("id_token").(string)
	if !ok {
		httperrors.BadRequestError(w, r, errors.New("missing id_token"), "could not complete sign-in")
		return
	}
	idToken, err := client.verifier.Verify(ctx, rawID)
	if err != nil {
		httperrors.BadRequestError(w, r, err, "could not complete sign-in")
		return
	}
	if idToken.Nonce != st.Nonce {
		httperrors.BadRequestError(w, r, errors.New("nonce mismatch"), "invalid sign-in state")
		return
	}

	var claims idClaims
	if err := idToken.Claims(&claims); err != nil {
		httperrors.BadRequestError(w, r, err, "could not complete sign-in")
		return
	}
	if claims.Email == "" || (claims.EmailVerified != nil && !*claims.EmailVerified) {
		httperrors.BadRequestError(w, r, errors.New("email missing or unverified"), "a verified email is required")
		return
	}
	email, err := normalizeEmail(claims.Email)
	if err != nil {
		httperrors.BadRequestError(w, r, err, "a verified email is required")
		return
	}

	user, err := s.store.Users.UpsertOAuthUser(ctx, idToken.Subject, email, claims.Name)
	if errors.Is(err, store.ErrConflict) {
		http.Error(w, "an account with this email already exists; sign in with your password", http.StatusConflict)
		return
	}
	if err != nil {
		httperrors.InternalError(w, r, err, "upsert oauth user")
		return
	}
	if _, err := s.store.Settings.Insert(ctx, store.DefaultSettings(user.ID)); err != nil {
		httperrors.LogError(r, "init settings", err)
	}
	if err := s.store.Users.TouchLogin(ctx, user.ID); err != nil {
		httperrors.LogError(r, "touch login", err)
	}
	if err := s.sessions.Issue(w, user.ID); err != nil {
		httperrors.InternalError(w, r, err, "issue session")
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}
