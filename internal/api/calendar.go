package api

import (
	"net/http"

	"github.com/google/uuid"

	"gitea.jw6.us/james/teamtasks/internal/calendar"
	"gitea.jw6.us/james/teamtasks/internal/events"
	httperrors "gitea.jw6.us/james/teamtasks/internal/http/errors"
	"gitea.jw6.us/james/teamtasks/internal/store"
)

// MonthView is the body of GET /api/calendar.
type MonthView struct {
	calendar.Month
	Prev string `json:"prev"`
	Next string `json:"next"`
}

func (h *Handler) month(w http.ResponseWriter, r *http.Request) {
	ref, err := calendar.ParseMonth(r.URL.Query().Get("month"), h.now())
	if err != nil {
		badRequest(w, r, err)
		return
	}
	m, err := h.Calendar.Month(r.Context(), ref)
	if err != nil {
		writeError(w, r, err, "load calendar")
		return
	}
	if m.Events == nil {
		m.Events = []store.CalendarEvent{}
	}
	httperrors.WriteJSON(w, http.StatusOK, MonthView{Month: *m, Prev: m.Grid.Prev(), Next: m.Grid.Next()})
}

func (h *Handler) createEvent(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Title       string          `json:"title"`
		EventType   store.EventType `json:"eventType"`
		EventDate   string          `json:"eventDate"`
		MeetingLink string          `json:"meetingLink"`
		Notes       string          `json:"notes"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		badRequest(w, r, err)
		return
	}
	ev, err := h.Calendar.Create(r.Context(), currentUser(r).ID, calendar.NewEvent{
		Title:       in.Title,
		EventType:   in.EventType,
		EventDate:   in.EventDate,
		MeetingLink: in.MeetingLink,
		Notes:       in.Notes,
	})
	if err != nil {
		writeError(w, r, err, "create event")
		return
	}
	h.announceEvent(r, *ev)
	httperrors.WriteJSON(w, http.StatusCreated, ev)
}

// announceEvent pushes a new event to everyone else on the team.
func (h *Handler) announceEvent(r *http.Request, ev store.CalendarEvent) {
	if h.Broker == nil {
		return
	}
	users, err := h.Store.Users.List(r.Context())
	if err != nil {
		httperrors.LogWarn(r, "list users for calendar push", err)
		return
	}
	ids := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	events.Notifier{Broker: h.Broker}.CalendarEvent(r.Context(), ev, ids)
}

func (h *Handler) deleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, r, err)
		return
	}
	if err := h.Calendar.Delete(r.Context(), currentUser(r).ID, id); err != nil {
		writeError(w, r, err, "delete event")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) exportICal(w http.ResponseWriter, r *http.Request) {
	events, err := h.Calendar.All(r.Context())
	if err != nil {
		httperrors.InternalError(w, r, err, "export calendar")
		return
	}
	users, err := h.Store.Users.List(r.Context())
	if err != nil {
		httperrors.InternalError(w, r, err, "export calendar")
		return
	}
	owners := make(map[uuid.UUID]string, len(users))
	for _, u := range users {
		owners[u.ID] = u.DisplayName()
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="teamtasks.ics"`)
	_, _ = w.Write([]byte(calendar.ExportICal(events, owners, h.now())))
}
