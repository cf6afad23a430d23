package ui

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"gitea.jw6.us/james/teamtasks/internal/auth"
	"gitea.jw6.us/james/teamtasks/internal/http/csrf"
	"gitea.jw6.us/james/teamtasks/internal/http/errors"
	"gitea.jw6.us/james/teamtasks/internal/metrics"
	"gitea.jw6.us/james/teamtasks/internal/store"
	"gitea.jw6.us/james/teamtasks/internal/team"
)

// page builds the common template data for a signed-in screen and records
// the visit as a presence heartbeat.
func (h *Handler) page(r *http.Request, nav Nav) (*store.User, map[string]any) {
	user, _ := auth.UserFromContext(r.Context())
	h.markOnline(r, user.ID)

	data := h.withFlash(r, map[string]any{
		"Title": nav.Screen.String(),
		"User":  user,
		"Nav":   nav,
		"Menu":  MenuScreens,
	})
	return user, data
}

func (h *Handler) markOnline(r *http.Request, userID uuid.UUID) {
	if err := h.store.Presence.Upsert(r.Context(), userID, true, h.now().UTC()); err != nil {
		errors.LogWarn(r, "presence heartbeat", err)
		return
	}
	metrics.ObservePresence(true)
}

// roster loads the team without the viewer. Failures are logged and give an
// empty roster.
func (h *Handler) roster(r *http.Request, viewer *store.User) []team.Member {
	users, err := h.store.Users.List(r.Context())
	if err != nil {
		errors.LogError(r, "load users", err)
		return nil
	}
	presence, err := h.store.Presence.List(r.Context())
	if err != nil {
		errors.LogError(r, "load presence", err)
	}
	unread, err := h.svc.Chat.UnreadCounts(r.Context(), viewer.ID)
	if err != nil {
		errors.LogError(r, "load unread counts", err)
	}
	return team.Without(team.WithUnread(team.Assemble(users, presence), unread), viewer.ID)
}

// names maps user ids to display names.
func (h *Handler) names(r *http.Request) (map[uuid.UUID]string, []store.User) {
	users, err := h.store.Users.List(r.Context())
	if err != nil {
		errors.LogError(r, "load users", err)
	}
	out := make(map[uuid.UUID]string, len(users))
	for _, u := range users {
		out[u.ID] = u.DisplayName()
	}
	return out, users
}

// withFlash adds flash messages and CSRF token to template data.
func (h *Handler) withFlash(r *http.Request, data map[string]any) map[string]any {
	q := r.URL.Query()
	if status := q.Get("status"); status != "" {
		data["FlashMessage"] = status
	}
	if err := q.Get("error"); err != "" {
		data["FlashError"] = err
	}
	if csrfToken := csrf.TokenFromContext(r.Context()); csrfToken != "" {
		data["CSRFToken"] = csrfToken
	}
	return data
}

// redirect redirects to a path with query parameters.
func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, path string, params map[string]string) {
	q := url.Values{}
	for k, v := range params {
		if v != "" {
			q.Set(k, v)
		}
	}
	location := path
	if encoded := q.Encode(); encoded != "" {
		if u, err := url.Parse(path); err == nil && u.RawQuery != "" {
			location += "&" + encoded
		} else {
			location += "?" + encoded
		}
	}
	http.Redirect(w, r, location, http.StatusFound)
}

var errUploadTooLarge = stderrors.New("file is too large")

// parseUpload parses a form that may carry files, refusing bodies over the
// configured upload limit. Plain url-encoded forms pass through.
func (h *Handler) parseUpload(w http.ResponseWriter, r *http.Request) error {
	limit := h.cfg.MaxUploadBytes
	if limit > 0 {
		if r.ContentLength > limit {
			return errUploadTooLarge
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	err := r.ParseMultipartForm(8 << 20)
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil, stderrors.Is(err, http.ErrNotMultipart):
		return nil
	case stderrors.As(err, &tooLarge):
		return errUploadTooLarge
	}
	return err
}

// render executes a template and writes the response.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	tmpl, ok := h.templates[name]
	if !ok {
		errors.InternalError(w, r, fmt.Errorf("template not found"), fmt.Sprintf("template %q not found", name))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, name, data); err != nil {
		errors.InternalError(w, r, err, fmt.Sprintf("template render error for %q", name))
	}
}
