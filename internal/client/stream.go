package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"gitea.jw6.us/james/teamtasks/internal/events"
)

// ErrStreamClosed is returned by Stream when the server ends the stream.
var ErrStreamClosed = errors.New("event stream closed")

// Stream reads GET /api/stream and calls fn for every event until ctx is
// done or the connection drops. It returns nil only when ctx ends.
func (c *Client) Stream(ctx context.Context, fn func(events.Event)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/stream", nil)
	if err != nil {
		return fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	// Same transport, no overall timeout: the response never completes.
	hc := &http.Client{Transport: c.http.Transport, CheckRedirect: c.http.CheckRedirect, Jar: c.http.Jar}
	resp, err := hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("open stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Status: resp.StatusCode}
		var e struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&e) == nil {
			apiErr.Message = e.Error
		}
		return apiErr
	}

	err = readEvents(resp.Body, fn)
	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return ErrStreamClosed
}

// readEvents parses server-sent events. Comment lines and events without
// a JSON body are skipped.
func readEvents(r io.Reader, fn func(events.Event)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	var data strings.Builder
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if data.Len() > 0 {
				var ev events.Event
				if err := json.Unmarshal([]byte(data.String()), &ev); err == nil {
					fn(ev)
				}
				data.Reset()
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	return sc.Err()
}

// Follow calls fn right away and again whenever the event stream delivers
// an event that match accepts. If the stream cannot be opened or drops, it
// falls back to Poll with the given interval for the rest of ctx.
func (c *Client) Follow(ctx context.Context, interval time.Duration, match func(events.Event) bool, fn func(context.Context) error) {
	run := func() {
		if err := fn(ctx); err != nil && ctx.Err() == nil {
			log.Printf("[WARN] follow: %v", err)
		}
	}

	run()
	err := c.Stream(ctx, func(ev events.Event) {
		if match == nil || match(ev) {
			run()
		}
	})
	if err == nil || ctx.Err() != nil {
		return
	}
	log.Printf("[WARN] follow: %v; polling every %s", err, interval)
	Poll(ctx, interval, fn)
}
