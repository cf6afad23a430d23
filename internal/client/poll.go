package client

import (
	"context"
	"log"
	"time"
)

// Poll calls fn right away and then every interval until ctx is done.
// Errors are logged and polling continues; there is no retry or backoff.
// A call still in flight when ctx ends runs to completion and its result
// is the caller's to drop.
func Poll(ctx context.Context, interval time.Duration, fn func(context.Context) error) {
	run := func() {
		if err := fn(ctx); err != nil && ctx.Err() == nil {
			log.Printf("[WARN] poll: %v", err)
		}
	}

	run()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}
