package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestMiddlewareLimitsPerIP(t *testing.T) {
	l := New(Options{Rate: rate.Every(time.Hour), Burst: 2})
	defer l.Close()

	h := l.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 2; i++ {
		if code := send("10.0.0.1:1234"); code != http.StatusNoContent {
			t.Fatalf("request %d got %d", i, code)
		}
	}
	if code := send("10.0.0.1:9999"); code != http.StatusTooManyRequests {
		t.Errorf("third request got %d, want 429", code)
	}
	if code := send("10.0.0.2:1234"); code != http.StatusNoContent {
		t.Errorf("other client got %d", code)
	}
}

func TestClientIP(t *testing.T) {
	testCases := []struct {
		name    string
		trusted []string
		remote  string
		xff     string
		realIP  string
		want    string
	}{
		{name: "no proxies configured trusts headers", remote: "10.0.0.1:80", xff: "203.0.113.5, 10.0.0.1", want: "203.0.113.5"},
		{name: "untrusted peer ignores headers", trusted: []string{"192.168.0.0/16"}, remote: "10.0.0.1:80", xff: "203.0.113.5", want: "10.0.0.1"},
		{name: "trusted peer uses xff", trusted: []string{"10.0.0.1"}, remote: "10.0.0.1:80", xff: "203.0.113.5", want: "203.0.113.5"},
		{name: "trusted peer falls back to x-real-ip", trusted: []string{"10.0.0.0/8"}, remote: "10.1.2.3:80", realIP: "198.51.100.7", want: "198.51.100.7"},
		{name: "garbage xff", remote: "10.0.0.9:80", xff: "not-an-ip", want: "10.0.0.9"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l := New(Options{Rate: 1, Burst: 1, TrustedProxies: tc.trusted})
			defer l.Close()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			if tc.realIP != "" {
				req.Header.Set("X-Real-IP", tc.realIP)
			}
			if got := l.ClientIP(req); got != tc.want {
				t.Errorf("ClientIP() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestEvictsLeastRecentlySeen(t *testing.T) {
	l := New(Options{Rate: 1, Burst: 1, MaxClients: 2})
	defer l.Close()

	l.Allow("a")
	time.Sleep(time.Millisecond)
	l.Allow("b")
	time.Sleep(time.Millisecond)
	l.Allow("c")

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.buckets["a"]; ok {
		t.Error("oldest client was not evicted")
	}
	if len(l.buckets) != 2 {
		t.Errorf("tracking %d clients, want 2", len(l.buckets))
	}
}
