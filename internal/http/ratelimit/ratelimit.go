// Package ratelimit throttles requests per client IP with token buckets.
package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const defaultMaxClients = 10000

// Options configures a Limiter.
type Options struct {
	// Rate is the sustained number of requests per second per client.
	Rate rate.Limit
	// Burst is how many requests a client may make at once.
	Burst int
	// IdleTTL is how long an unused client bucket is kept.
	IdleTTL time.Duration
	// TrustedProxies lists CIDRs or single IPs whose forwarding headers are
	// believed. When empty, forwarding headers are believed from anyone.
	TrustedProxies []string
	// MaxClients caps the number of tracked clients; the least recently
	// seen is evicted first.
	MaxClients int
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter tracks one token bucket per client IP.
type Limiter struct {
	opts    Options
	trusted []*net.IPNet

	mu      sync.Mutex
	buckets map[string]*bucket

	stop     chan struct{}
	stopOnce sync.Once
}

func New(opts Options) *Limiter {
	if opts.MaxClients <= 0 {
		opts.MaxClients = defaultMaxClients
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 10 * time.Minute
	}
	l := &Limiter{
		opts:    opts,
		trusted: parseNetworks(opts.TrustedProxies),
		buckets: make(map[string]*bucket),
		stop:    make(chan struct{}),
	}
	go l.sweep()
	return l
}

func parseNetworks(entries []string) []*net.IPNet {
	var nets []*net.IPNet
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				continue
			}
			if ip.To4() != nil {
				entry += "/32"
			} else {
				entry += "/128"
			}
		}
		if _, n, err := net.ParseCIDR(entry); err == nil {
			nets = append(nets, n)
		}
	}
	return nets
}

// Close stops the background sweeper.
func (l *Limiter) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Allow reports whether a request from ip may proceed now.
func (l *Limiter) Allow(ip string) bool {
	return l.bucketFor(ip).Allow()
}

func (l *Limiter) bucketFor(ip string) *rate.Limiter {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.buckets[ip]; ok {
		b.lastSeen = now
		return b.limiter
	}
	if len(l.buckets) >= l.opts.MaxClients {
		l.evictLRU()
	}
	b := &bucket{limiter: rate.NewLimiter(l.opts.Rate, l.opts.Burst), lastSeen: now}
	l.buckets[ip] = b
	return b.limiter
}

func (l *Limiter) evictLRU() {
	var victim string
	var oldest time.Time
	for ip, b := range l.buckets {
		if victim == "" || b.lastSeen.Before(oldest) {
			victim, oldest = ip, b.lastSeen
		}
	}
	delete(l.buckets, victim)
}

func (l *Limiter) sweep() {
	ticker := time.NewTicker(l.opts.IdleTTL)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case now := <-ticker.C:
			l.mu.Lock()
			for ip, b := range l.buckets {
				if now.Sub(b.lastSeen) > l.opts.IdleTTL {
					delete(l.buckets, ip)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Middleware rejects over-limit requests with 429 and a Retry-After hint.
func (l *Limiter) Middleware() func(http.Handler) http.Handler {
	retryAfter := "1"
	if l.opts.Rate > 0 && l.opts.Rate < 1 {
		retryAfter = strconv.Itoa(int(1/float64(l.opts.Rate) + 0.5))
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(l.ClientIP(r)) {
				w.Header().Set("Retry-After", retryAfter)
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the caller's address, reading X-Forwarded-For and
// X-Real-IP only when the direct peer is a trusted proxy.
func (l *Limiter) ClientIP(r *http.Request) string {
	peer := hostIP(r.RemoteAddr)
	if len(l.trusted) > 0 && !l.isTrusted(peer) {
		return peer.String()
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
		return ip.String()
	}
	return peer.String()
}

func (l *Limiter) isTrusted(ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, n := range l.trusted {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func hostIP(addr string) net.IP {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return net.ParseIP(host)
	}
	return net.ParseIP(addr)
}
