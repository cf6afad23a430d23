// Package events fans push notifications out to the users they concern.
// The memory broker serves a single server process; the Redis broker lets
// several replicas share one stream.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Kinds of events pushed to clients.
const (
	KindChatMessage   = "chat.message"
	KindTaskAssigned  = "task.assigned"
	KindCalendarEvent = "calendar.event"
)

// Event is one push notification addressed to a single user.
type Event struct {
	Kind    string          `json:"kind"`
	UserID  uuid.UUID       `json:"userId"`
	Payload json.RawMessage `json:"payload,omitempty"`
	At      time.Time       `json:"at"`
}

// New builds an event with the payload marshalled to JSON.
func New(kind string, user uuid.UUID, payload any) (Event, error) {
	ev := Event{Kind: kind, UserID: user, At: time.Now().UTC()}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Event{}, err
		}
		ev.Payload = raw
	}
	return ev, nil
}

// Broker delivers events to subscribers of the target user.
type Broker interface {
	Publish(ctx context.Context, ev Event) error
	// Subscribe returns a channel of events for user. The channel is closed
	// once ctx is done.
	Subscribe(ctx context.Context, user uuid.UUID) (<-chan Event, error)
	Close() error
}
