package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"gitea.jw6.us/james/teamtasks/internal/events"
)

func TestReadEvents(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		kinds []string
	}{
		{
			name:  "single event",
			input: "event: chat.message\ndata: {\"kind\":\"chat.message\"}\n\n",
			kinds: []string{"chat.message"},
		},
		{
			name:  "comments and keepalives skipped",
			input: ": connected\n\n: keepalive\n\nevent: task.assigned\ndata: {\"kind\":\"task.assigned\"}\n\n",
			kinds: []string{"task.assigned"},
		},
		{
			name:  "data split over lines",
			input: "data: {\"kind\":\ndata: \"calendar.event\"}\n\n",
			kinds: []string{"calendar.event"},
		},
		{
			name:  "bad json dropped",
			input: "data: {nope\n\ndata: {\"kind\":\"chat.message\"}\n\n",
			kinds: []string{"chat.message"},
		},
		{
			name:  "unterminated event ignored",
			input: "data: {\"kind\":\"chat.message\"}\n",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var kinds []string
			if err := readEvents(strings.NewReader(tc.input), func(ev events.Event) {
				kinds = append(kinds, ev.Kind)
			}); err != nil {
				t.Fatalf("readEvents() error = %v", err)
			}
			if !reflect.DeepEqual(kinds, tc.kinds) {
				t.Errorf("kinds = %v, want %v", kinds, tc.kinds)
			}
		})
	}
}

func TestFollowUsesStream(t *testing.T) {
	var gotAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/stream" {
			http.NotFound(w, r)
			return
		}
		gotAuth.Store(r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": connected\n\n")
		fmt.Fprintf(w, "event: %s\ndata: {\"kind\":%q}\n\n", events.KindTaskAssigned, events.KindTaskAssigned)
		fmt.Fprintf(w, "event: %s\ndata: {\"kind\":%q}\n\n", events.KindChatMessage, events.KindChatMessage)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var calls atomic.Int32
	done := make(chan struct{})
	go func() {
		New(srv.URL, "tok").Follow(ctx, time.Hour, func(ev events.Event) bool {
			return ev.Kind == events.KindChatMessage
		}, func(context.Context) error {
			if calls.Add(1) == 2 {
				cancel()
			}
			return nil
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Follow did not react to the streamed event")
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("calls = %d, want 2 (initial fetch and one matching event)", n)
	}
	if got, _ := gotAuth.Load().(string); got != "Bearer tok" {
		t.Errorf("Authorization = %q", got)
	}
}

func TestFollowFallsBackToPolling(t *testing.T) {
	testCases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "stream unsupported",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusNotImplemented)
				fmt.Fprint(w, `{"error":"streaming not supported"}`)
			},
		},
		{
			name: "stream ends",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/event-stream")
				fmt.Fprint(w, ": connected\n\n")
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			var calls atomic.Int32
			done := make(chan struct{})
			go func() {
				New(srv.URL, "tok").Follow(ctx, 10*time.Millisecond, nil, func(context.Context) error {
					if calls.Add(1) == 4 {
						cancel()
					}
					return nil
				})
				close(done)
			}()

			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("Follow did not fall back to polling")
			}
			if n := calls.Load(); n < 4 {
				t.Errorf("calls = %d, want at least 4", n)
			}
		})
	}
}

func TestStreamErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"authentication required"}`)
	}))
	defer srv.Close()

	err := New(srv.URL, "").Stream(context.Background(), func(events.Event) {
		t.Error("no events expected")
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Stream() error = %v, want ErrUnauthorized", err)
	}
}
