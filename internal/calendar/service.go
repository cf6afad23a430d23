package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"gitea.jw6.us/james/teamtasks/internal/store"
)

var ErrInvalidEvent = errors.New("invalid calendar event")

// NewEvent is the input of Service.Create.
type NewEvent struct {
	Title       string
	EventType   store.EventType
	EventDate   string
	MeetingLink string
	Notes       string
}

// Validate checks the input and returns the event to insert. The meeting link
// is dropped unless the event is a meeting.
func (in NewEvent) Validate(owner uuid.UUID) (store.CalendarEvent, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return store.CalendarEvent{}, fmt.Errorf("%w: title is required", ErrInvalidEvent)
	}
	if !in.EventType.Valid() {
		return store.CalendarEvent{}, fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, in.EventType)
	}
	date := strings.TrimSpace(in.EventDate)
	if _, err := time.Parse(DateLayout, date); err != nil {
		return store.CalendarEvent{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidEvent)
	}

	ev := store.CalendarEvent{UserID: owner, Title: title, EventType: in.EventType, EventDate: date}
	if link := strings.TrimSpace(in.MeetingLink); link != "" && in.EventType == store.EventMeeting {
		u, err := url.Parse(link)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return store.CalendarEvent{}, fmt.Errorf("%w: meeting link must be an http(s) URL", ErrInvalidEvent)
		}
		ev.MeetingLink = &link
	}
	if notes := strings.TrimSpace(in.Notes); notes != "" {
		ev.Notes = &notes
	}
	return ev, nil
}

// Month is the grid for one month plus its events.
type Month struct {
	Grid   Grid                  `json:"grid"`
	Events []store.CalendarEvent `json:"events"`
}

type Service struct {
	repo store.CalendarRepository
}

func NewService(repo store.CalendarRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Month(ctx context.Context, ref time.Time) (*Month, error) {
	grid := MonthGrid(ref)
	from, to := grid.Range()
	events, err := s.repo.ListRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return &Month{Grid: grid, Events: events}, nil
}

func (s *Service) Create(ctx context.Context, owner uuid.UUID, in NewEvent) (*store.CalendarEvent, error) {
	ev, err := in.Validate(owner)
	if err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, ev)
}

// Delete removes an event. Only the owner may delete it.
func (s *Service) Delete(ctx context.Context, owner, id uuid.UUID) error {
	return s.repo.Delete(ctx, owner, id)
}

func (s *Service) All(ctx context.Context) ([]store.CalendarEvent, error) {
	return s.repo.ListAll(ctx)
}
