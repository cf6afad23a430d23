package ui

import (
	stderrors "errors"
	"net/http"
	"strings"

	"gitea.jw6.us/james/teamtasks/internal/auth"
	"gitea.jw6.us/james/teamtasks/internal/http/errors"
	"gitea.jw6.us/james/teamtasks/internal/store"
)

func (h *Handler) publicData(r *http.Request, screen Screen) map[string]any {
	return h.withFlash(r, map[string]any{
		"Title":        screen.String(),
		"Nav":          Nav{Screen: screen},
		"OAuthEnabled": h.cfg.OAuthEnabled(),
		"Email":        "",
		"FullName":     "",
	})
}

func (h *Handler) signedIn(r *http.Request) bool {
	_, ok := h.svc.Auth.Sessions().CurrentUserID(r)
	return ok
}

// LoginPage shows the sign-in form.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if h.signedIn(r) {
		http.Redirect(w, r, ScreenDashboard.Path(), http.StatusFound)
		return
	}
	h.render(w, r, "login.html", h.publicData(r, ScreenLogin))
}

// Login checks the password and starts a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		errors.BadRequestError(w, r, err, "invalid form")
		return
	}
	email := strings.TrimSpace(r.FormValue("email"))
	user, err := h.svc.Auth.SignIn(r.Context(), email, r.FormValue("password"))
	if err != nil {
		if !stderrors.Is(err, auth.ErrInvalidCredentials) {
			errors.LogError(r, "sign in", err)
		}
		data := h.publicData(r, ScreenLogin)
		data["FlashError"] = auth.ErrInvalidCredentials.Error()
		data["Email"] = email
		w.WriteHeader(http.StatusUnauthorized)
		h.render(w, r, "login.html", data)
		return
	}
	h.startSession(w, r, user)
}

// SignUpPage shows the registration form.
func (h *Handler) SignUpPage(w http.ResponseWriter, r *http.Request) {
	if h.signedIn(r) {
		http.Redirect(w, r, ScreenDashboard.Path(), http.StatusFound)
		return
	}
	h.render(w, r, "signup.html", h.publicData(r, ScreenSignUp))
}

// SignUp registers a password account and signs it in.
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		errors.BadRequestError(w, r, err, "invalid form")
		return
	}
	email := strings.TrimSpace(r.FormValue("email"))
	fullName := strings.TrimSpace(r.FormValue("full_name"))
	user, err := h.svc.Auth.SignUp(r.Context(), email, fullName, r.FormValue("password"), r.FormValue("confirm_password"))
	if err != nil {
		status := http.StatusBadRequest
		switch {
		case stderrors.Is(err, auth.ErrEmailTaken):
			status = http.StatusConflict
		case stderrors.Is(err, auth.ErrPasswordTooShort),
			stderrors.Is(err, auth.ErrPasswordMismatch),
			stderrors.Is(err, auth.ErrInvalidEmail):
		default:
			errors.InternalError(w, r, err, "sign up")
			return
		}
		data := h.publicData(r, ScreenSignUp)
		data["FlashError"] = err.Error()
		data["Email"] = email
		data["FullName"] = fullName
		w.WriteHeader(status)
		h.render(w, r, "signup.html", data)
		return
	}
	h.startSession(w, r, user)
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, user *store.User) {
	if err := h.svc.Auth.Sessions().Issue(w, user.ID); err != nil {
		errors.InternalError(w, r, err, "issue session")
		return
	}
	h.markOnline(r, user.ID)
	http.Redirect(w, r, ScreenDashboard.Path(), http.StatusFound)
}
