// Package presence keeps a user's online flag fresh while a client is open.
package presence

import (
	"context"
	"log"
	"sync"
	"time"
)

// Interval between heartbeats while the client is visible.
const Interval = 30 * time.Second

// offlineTimeout bounds the final offline upsert after the run context ends.
const offlineTimeout = 5 * time.Second

// Upserter records the caller's presence.
type Upserter interface {
	SetPresence(ctx context.Context, online bool) error
}

// UpserterFunc adapts a function to Upserter.
type UpserterFunc func(ctx context.Context, online bool) error

func (f UpserterFunc) SetPresence(ctx context.Context, online bool) error { return f(ctx, online) }

// Heartbeat marks the user online on start, repeats while visible and marks
// them offline when stopped. Failed upserts are logged and not retried.
type Heartbeat struct {
	up       Upserter
	interval time.Duration

	mu      sync.Mutex
	visible bool
	ctx     context.Context // set only while Run is active
}

func NewHeartbeat(up Upserter) *Heartbeat {
	return &Heartbeat{up: up, interval: Interval, visible: true}
}

// Run blocks until ctx is done. The first upsert reports the current
// visibility, which is online unless SetVisible(false) came first.
func (h *Heartbeat) Run(ctx context.Context) {
	h.mu.Lock()
	h.ctx = ctx
	visible := h.visible
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		h.ctx = nil
		h.mu.Unlock()
	}()

	h.send(ctx, visible)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			offCtx, cancel := context.WithTimeout(context.Background(), offlineTimeout)
			h.send(offCtx, false)
			cancel()
			return
		case <-ticker.C:
			if h.Visible() {
				h.send(ctx, true)
			}
		}
	}
}

// SetVisible records a visibility change. While Run is active the change is
// upserted right away; otherwise it only affects the next Run.
func (h *Heartbeat) SetVisible(visible bool) {
	h.mu.Lock()
	h.visible = visible
	ctx := h.ctx
	h.mu.Unlock()

	if ctx == nil || ctx.Err() != nil {
		return
	}
	h.send(ctx, visible)
}

func (h *Heartbeat) Visible() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.visible
}

func (h *Heartbeat) send(ctx context.Context, online bool) {
	if err := h.up.SetPresence(ctx, online); err != nil {
		log.Printf("[WARN] presence: upsert online=%t: %v", online, err)
	}
}
