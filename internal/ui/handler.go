package ui

import (
	"html/template"
	"net/http"
	"time"

	"gitea.jw6.us/james/teamtasks/internal/auth"
	"gitea.jw6.us/james/teamtasks/internal/calendar"
	"gitea.jw6.us/james/teamtasks/internal/chat"
	"gitea.jw6.us/james/teamtasks/internal/config"
	"gitea.jw6.us/james/teamtasks/internal/http/errors"
	"gitea.jw6.us/james/teamtasks/internal/store"
	"gitea.jw6.us/james/teamtasks/internal/tasks"
	"gitea.jw6.us/james/teamtasks/internal/team"
)

// Services are the domain services the pages call into.
type Services struct {
	Auth     *auth.Service
	Profiles *auth.Profiles
	Tasks    *tasks.Service
	Chat     *chat.Service
	Calendar *calendar.Service
}

// Handler serves server-rendered HTML pages.
type Handler struct {
	cfg       *config.Config
	store     *store.Store
	svc       Services
	templates map[string]*template.Template
	now       func() time.Time
}

func NewHandler(cfg *config.Config, store *store.Store, svc Services) *Handler {
	return &Handler{cfg: cfg, store: store, svc: svc, templates: templates, now: time.Now}
}

// Home is the signed-in landing page with a summary of the user's work.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	user, data := h.page(r, Nav{Screen: ScreenHome})

	created, err := h.svc.Tasks.Created(r.Context(), user.ID)
	if err != nil {
		errors.LogError(r, "load created tasks", err)
	}
	assigned, err := h.svc.Tasks.Assigned(r.Context(), user.ID)
	if err != nil {
		errors.LogError(r, "load assigned tasks", err)
	}
	members := h.roster(r, user)

	now := h.now()
	data["CreatedCount"] = len(created)
	data["AssignedCount"] = len(assigned)
	data["AssignedCounts"] = tasks.Count(assigned, now)
	data["OnlineCount"] = team.Online(members)
	data["TeamCount"] = len(members)
	h.render(w, r, "home.html", data)
}

// Logout marks the user offline and drops the session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	h.svc.Auth.MarkOffline(r.Context(), user.ID)
	h.svc.Auth.Sessions().Clear(w)
	http.Redirect(w, r, ScreenLogin.Path(), http.StatusFound)
}
