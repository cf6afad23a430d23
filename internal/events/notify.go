package events

import (
	"context"
	"log"

	"github.com/google/uuid"

	"gitea.jw6.us/james/teamtasks/internal/store"
)

// Notifier turns domain changes into push events. Publishing is best effort.
type Notifier struct {
	Broker Broker
}

func (n Notifier) TaskAssigned(ctx context.Context, task store.Task) {
	if task.AssignedTo == nil {
		return
	}
	n.publish(ctx, KindTaskAssigned, *task.AssignedTo, task)
}

func (n Notifier) ChatMessage(ctx context.Context, msg store.ChatMessage) {
	n.publish(ctx, KindChatMessage, msg.ReceiverID, msg)
}

func (n Notifier) publish(ctx context.Context, kind string, user uuid.UUID, payload any) {
	if n.Broker == nil {
		return
	}
	ev, err := New(kind, user, payload)
	if err == nil {
		err = n.Broker.Publish(ctx, ev)
	}
	if err != nil {
		log.Printf("[WARN] events: publish %s: %v", kind, err)
	}
}

// CalendarEvent tells every recipient except the owner about a new event.
func (n Notifier) CalendarEvent(ctx context.Context, ev store.CalendarEvent, recipients []uuid.UUID) {
	for _, id := range recipients {
		if id == ev.UserID {
			continue
		}
		n.publish(ctx, KindCalendarEvent, id, ev)
	}
}
