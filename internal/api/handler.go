// Package api serves the JSON API used by taskctl and other polling clients.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"gitea.jw6.us/james/teamtasks/internal/auth"
	"gitea.jw6.us/james/teamtasks/internal/calendar"
	"gitea.jw6.us/james/teamtasks/internal/chat"
	"gitea.jw6.us/james/teamtasks/internal/events"
	httperrors "gitea.jw6.us/james/teamtasks/internal/http/errors"
	"gitea.jw6.us/james/teamtasks/internal/store"
	"gitea.jw6.us/james/teamtasks/internal/tasks"
)

// Deps are the services the API is built on.
type Deps struct {
	Auth           *auth.Service
	Profiles       *auth.Profiles
	Store          *store.Store
	Tasks          *tasks.Service
	Chat           *chat.Service
	Calendar       *calendar.Service
	Broker         events.Broker
	MaxUploadBytes int64
}

type Handler struct {
	Deps
	now func() time.Time
}

func NewHandler(d Deps) *Handler {
	if d.MaxUploadBytes <= 0 {
		d.MaxUploadBytes = 25 << 20
	}
	return &Handler{Deps: d, now: time.Now}
}

// PublicRoutes registers the unauthenticated endpoints.
func (h *Handler) PublicRoutes(r chi.Router) {
	r.Post("/api/auth/signup", h.signUp)
	r.Post("/api/auth/token", h.token)
}

// Routes registers the authenticated endpoints. The caller applies
// auth.RequireAPIAuth.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/api/me", h.me)
	r.Put("/api/me/profile", h.updateProfile)
	r.Put("/api/me/password", h.changePassword)
	r.Get("/api/users", h.listUsers)

	r.Get("/api/tasks", h.listTasks)
	r.Post("/api/tasks", h.createTask)
	r.Get("/api/tasks/{id}", h.getTask)
	r.Patch("/api/tasks/{id}", h.updateTaskStatus)
	r.Delete("/api/tasks/{id}", h.deleteTask)
	r.Post("/api/tasks/{id}/comments", h.addComment)
	r.Post("/api/tasks/{id}/attachments", h.addAttachment)

	r.Put("/api/presence", h.setPresence)
	r.Get("/api/team", h.team)

	r.Get("/api/chat/unread", h.unread)
	r.Get("/api/chat/{userID}", h.openThread)
	r.Post("/api/chat/{userID}", h.sendMessage)

	r.Get("/api/calendar", h.month)
	r.Post("/api/calendar/events", h.createEvent)
	r.Delete("/api/calendar/events/{id}", h.deleteEvent)
	r.Get("/calendar.ics", h.exportICal)

	r.Get("/api/settings", h.getSettings)
	r.Put("/api/settings", h.putSettings)

	r.Get("/api/stream", h.stream)
}

func currentUser(r *http.Request) *store.User {
	u, _ := auth.UserFromContext(r.Context())
	return u
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// statusFor maps service errors to HTTP statuses. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrEmailTaken), errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrPasswordTooShort),
		errors.Is(err, auth.ErrPasswordMismatch),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrNotAnImage),
		errors.Is(err, calendar.ErrInvalidEvent),
		errors.Is(err, tasks.ErrInvalidStatus),
		errors.Is(err, tasks.ErrInvalidPriority),
		errors.Is(err, tasks.ErrEmptyComment),
		errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, chat.ErrSelfMessage):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, err error, action string) {
	status := statusFor(err)
	switch status {
	case http.StatusInternalServerError:
		httperrors.JSONInternalError(w, r, err, action)
	case http.StatusNotFound:
		httperrors.JSONError(w, status, "not found")
	default:
		httperrors.JSONError(w, status, err.Error())
	}
}

func badRequest(w http.ResponseWriter, r *http.Request, err error) {
	httperrors.LogWarn(r, "bad request", err)
	httperrors.JSONError(w, http.StatusBadRequest, err.Error())
}
