package events

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"
)

const subscriberBuffer = 16

// Memory is an in-process broker. Slow subscribers drop events instead of
// blocking publishers.
type Memory struct {
	mu     sync.Mutex
	subs   map[uuid.UUID]map[chan Event]struct{}
	closed bool
}

func NewMemory() *Memory {
	return &Memory{subs: make(map[uuid.UUID]map[chan Event]struct{})}
}

func (m *Memory) Publish(ctx context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ch := range m.subs[ev.UserID] {
		select {
		case ch <- ev:
		default:
			log.Printf("[WARN] events: dropping %s for user %s, subscriber is full", ev.Kind, ev.UserID)
		}
	}
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, user uuid.UUID) (<-chan Event, error) {
	ch := make(chan Event, subscriberBuffer)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		close(ch)
		return ch, nil
	}
	if m.subs[user] == nil {
		m.subs[user] = make(map[chan Event]struct{})
	}
	m.subs[user][ch] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.remove(user, ch)
	}()
	return ch, nil
}

func (m *Memory) remove(user uuid.UUID, ch chan Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[user][ch]; !ok {
		return
	}
	delete(m.subs[user], ch)
	if len(m.subs[user]) == 0 {
		delete(m.subs, user)
	}
	close(ch)
}

// Close ends every subscription.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for user, chans := range m.subs {
		for ch := range chans {
			close(ch)
		}
		delete(m.subs, user)
	}
	return nil
}
