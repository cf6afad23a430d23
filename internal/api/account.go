package api

import (
	"net/http"
	"time"

	httperrors "gitea.jw6.us/james/teamtasks/internal/http/errors"
	"gitea.jw6.us/james/teamtasks/internal/store"
)

type credentials struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	FullName        string `json:"fullName,omitempty"`
	ConfirmPassword string `json:"confirmPassword,omitempty"`
}

// TokenResponse is returned by the sign-up and token endpoints.
type TokenResponse struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
	User      store.User `json:"user"`
}

func (h *Handler) signUp(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeJSON(w, r, &in); err != nil {
		badRequest(w, r, err)
		return
	}
	user, err := h.Auth.SignUp(r.Context(), in.Email, in.FullName, in.Password, in.ConfirmPassword)
	if err != nil {
		writeError(w, r, err, "sign up")
		return
	}
	h.respondToken(w, r, user, http.StatusCreated)
}

func (h *Handler) token(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeJSON(w, r, &in); err != nil {
		badRequest(w, r, err)
		return
	}
	user, err := h.Auth.SignIn(r.Context(), in.Email, in.Password)
	if err != nil {
		writeError(w, r, err, "sign in")
		return
	}
	h.respondToken(w, r, user, http.StatusOK)
}

func (h *Handler) respondToken(w http.ResponseWriter, r *http.Request, user *store.User, status int) {
	token, exp, err := h.Auth.IssueToken(user)
	if err != nil {
		httperrors.JSONInternalError(w, r, err, "issue token")
		return
	}
	httperrors.WriteJSON(w, status, TokenResponse{Token: token, ExpiresAt: exp, User: *user})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	httperrors.WriteJSON(w, http.StatusOK, currentUser(r))
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var in struct {
		FullName string `json:"fullName"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		badRequest(w, r, err)
		return
	}
	if err := h.Auth.UpdateProfile(r.Context(), currentUser(r).ID, in.FullName); err != nil {
		writeError(w, r, err, "update profile")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		badRequest(w, r, err)
		return
	}
	if err := h.Auth.ChangePassword(r.Context(), currentUser(r).ID, in.Password, in.ConfirmPassword); err != nil {
		writeError(w, r, err, "change password")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.Users.List(r.Context())
	if err != nil {
		writeError(w, r, err, "list users")
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, users)
}

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.Profiles.Settings(r.Context(), currentUser(r).ID)
	if err != nil {
		writeError(w, r, err, "load settings")
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, s)
}

func (h *Handler) putSettings(w http.ResponseWriter, r *http.Request) {
	var in store.Settings
	if err := decodeJSON(w, r, &in); err != nil {
		badRequest(w, r, err)
		return
	}
	in.UserID = currentUser(r).ID
	s, err := h.Profiles.UpdateSettings(r.Context(), in)
	if err != nil {
		writeError(w, r, err, "update settings")
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, s)
}
