package ui

import (
	stderrors "errors"
	"net/http"

	"gitea.jw6.us/james/teamtasks/internal/auth"
	"gitea.jw6.us/james/teamtasks/internal/http/errors"
	"gitea.jw6.us/james/teamtasks/internal/store"
)

func (h *Handler) Settings(w http.ResponseWriter, r *http.Request) {
	user, data := h.page(r, Nav{Screen: ScreenSettings})
	settings, err := h.svc.Profiles.Settings(r.Context(), user.ID)
	if err != nil {
		errors.LogError(r, "load settings", err)
		d := store.DefaultSettings(user.ID)
		settings = &d
	}
	data["Settings"] = settings
	data["MinPasswordLength"] = auth.MinPasswordLength
	data["OAuthOnly"] = user.PasswordHash == nil
	h.render(w, r, "settings.html", data)
}

// UpdateSettings saves the notification toggles. Unchecked boxes are absent
// from the form and read as false.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		errors.BadRequestError(w, r, err, "invalid form")
		return
	}
	checked := func(name string) bool { return r.PostForm.Get(name) != "" }
	_, err := h.svc.Profiles.UpdateSettings(r.Context(), store.Settings{
		UserID:             user.ID,
		EmailNotifications: checked("email_notifications"),
		PushNotifications:  checked("push_notifications"),
		TaskReminders:      checked("task_reminders"),
		ChatNotifications:  checked("chat_notifications"),
		NotificationSound:  checked("notification_sound"),
		MessageSound:       checked("message_sound"),
	})
	if err != nil {
		errors.InternalError(w, r, err, "update settings")
		return
	}
	h.redirect(w, r, ScreenSettings.Path(), map[string]string{"status": "Settings saved"})
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	if err := h.svc.Auth.UpdateProfile(r.Context(), user.ID, r.FormValue("full_name")); err != nil {
		errors.InternalError(w, r, err, "update profile")
		return
	}
	h.redirect(w, r, ScreenSettings.Path(), map[string]string{"status": "Profile updated"})
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	err := h.svc.Auth.ChangePassword(r.Context(), user.ID, r.FormValue("password"), r.FormValue("confirm_password"))
	switch {
	case err == nil:
		h.redirect(w, r, ScreenSettings.Path(), map[string]string{"status": "Password changed"})
	case stderrors.Is(err, auth.ErrPasswordTooShort), stderrors.Is(err, auth.ErrPasswordMismatch):
		h.redirect(w, r, ScreenSettings.Path(), map[string]string{"error": err.Error()})
	default:
		errors.InternalError(w, r, err, "change password")
	}
}

// UploadPhoto replaces the profile photo.
func (h *Handler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	if err := h.parseUpload(w, r); err != nil {
		if stderrors.Is(err, errUploadTooLarge) {
			h.redirect(w, r, ScreenSettings.Path(), map[string]string{"error": err.Error()})
			return
		}
		errors.BadRequestError(w, r, err, "invalid form")
		return
	}
	f, fh, err := r.FormFile("photo")
	if err != nil {
		h.redirect(w, r, ScreenSettings.Path(), map[string]string{"error": errMissingFile.Error()})
		return
	}
	defer f.Close()

	_, err = h.svc.Profiles.SetPhoto(r.Context(), user.ID, fh.Filename, fh.Header.Get("Content-Type"), f)
	switch {
	case err == nil:
		h.redirect(w, r, ScreenSettings.Path(), map[string]string{"status": "Photo updated"})
	case stderrors.Is(err, auth.ErrNotAnImage):
		h.redirect(w, r, ScreenSettings.Path(), map[string]string{"error": err.Error()})
	default:
		errors.InternalError(w, r, err, "upload photo")
	}
}
