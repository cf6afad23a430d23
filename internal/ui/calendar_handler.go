package ui

import (
	stderrors "errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"gitea.jw6.us/james/teamtasks/internal/auth"
	"gitea.jw6.us/james/teamtasks/internal/calendar"
	"gitea.jw6.us/james/teamtasks/internal/http/errors"
	"gitea.jw6.us/james/teamtasks/internal/store"
)

type dayCell struct {
	calendar.Cell
	Today    bool
	Selected bool
	Events   []store.CalendarEvent
	URL      string
}

// Calendar renders the month grid. ?month=YYYY-MM picks the month and
// ?day=YYYY-MM-DD selects a day whose events are listed below the grid.
func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	ref, err := calendar.ParseMonth(r.URL.Query().Get("month"), now)
	if err != nil {
		ref, _ = calendar.ParseMonth("", now)
	}
	month := ref.Format(calendar.MonthLayout)
	nav := Nav{Screen: ScreenCalendar, Month: month}
	user, data := h.page(r, nav)

	var (
		grid   = calendar.MonthGrid(ref)
		events []store.CalendarEvent
	)
	m, err := h.svc.Calendar.Month(r.Context(), ref)
	if err != nil {
		errors.LogError(r, "load calendar", err)
	} else {
		grid, events = m.Grid, m.Events
	}

	today := now.Format(calendar.DateLayout)
	selected := r.URL.Query().Get("day")
	byDay := calendar.ByDay(events)
	weeks := make([][]dayCell, 0, len(grid.Weeks))
	for _, week := range grid.Weeks {
		row := make([]dayCell, 0, len(week))
		for _, c := range week {
			cell := dayCell{Cell: c}
			if !c.Blank() {
				cell.Today = c.Date == today
				cell.Selected = c.Date == selected
				cell.Events = byDay[c.Date]
				cell.URL = nav.URL() + "&day=" + c.Date
			}
			row = append(row, cell)
		}
		weeks = append(weeks, row)
	}

	names, _ := h.names(r)
	data["Grid"] = grid
	data["Weeks"] = weeks
	data["Names"] = names
	data["UserID"] = user.ID
	data["PrevURL"] = nav.WithMonth(grid.Prev()).URL()
	data["NextURL"] = nav.WithMonth(grid.Next()).URL()
	data["Month"] = month
	data["EventTypes"] = []store.EventType{store.EventMeeting, store.EventLeave, store.EventPersonal}
	data["SelectedDay"] = selected
	if selected != "" {
		data["DayEvents"] = calendar.EventsOn(events, selected)
	}
	h.render(w, r, "calendar.html", data)
}

// CreateEvent adds an event owned by the current user.
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		errors.BadRequestError(w, r, err, "invalid form")
		return
	}
	date := r.FormValue("event_date")
	back := Nav{Screen: ScreenCalendar, Month: monthOf(date)}.URL()

	_, err := h.svc.Calendar.Create(r.Context(), user.ID, calendar.NewEvent{
		Title:       r.FormValue("title"),
		EventType:   store.EventType(r.FormValue("event_type")),
		EventDate:   date,
		MeetingLink: r.FormValue("meeting_link"),
		Notes:       r.FormValue("notes"),
	})
	if stderrors.Is(err, calendar.ErrInvalidEvent) {
		h.redirect(w, r, back, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		errors.InternalError(w, r, err, "create event")
		return
	}
	h.redirect(w, r, back, map[string]string{"status": "Event added"})
}

// DeleteEvent removes one of the current user's events.
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid event id", http.StatusBadRequest)
		return
	}
	if err := h.svc.Calendar.Delete(r.Context(), user.ID, id); err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		errors.InternalError(w, r, err, "delete event")
		return
	}
	back := Nav{Screen: ScreenCalendar, Month: monthOf(r.FormValue("event_date"))}.URL()
	h.redirect(w, r, back, map[string]string{"status": "Event deleted"})
}

// monthOf returns the YYYY-MM prefix of a date, or "" when it has none.
func monthOf(date string) string {
	if len(date) >= 7 && date[4] == '-' {
		return date[:7]
	}
	return ""
}
