package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)


var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "teamtasks_http_requests_total",
		Help: "Total number of HTTP requests processed.",
	}, []string{"method", "route"})

	httpErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "teamtasks_http_errors_total",
		Help: "Total number of HTTP requests resulting in server errors.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "teamtasks_http_request_duration_seconds",
		Help:    "Histogram of latencies for HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	dbLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "teamtasks_db_latency_seconds",
		Help:    "Histogram of database operation latencies.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "route"})

	presenceUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "teamtasks_presence_updates_total",
		Help: "Presence upserts received, by reported state.",
	}, []string{"state"})

	attachmentUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "teamtasks_attachment_uploads_total",
		Help: "Attachment uploads attempted, by outcome.",
	}, []string{"outcome"})

	chatMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "teamtasks_chat_messages_total",
		Help: "Direct messages sent.",
	})

	streamSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "teamtasks_stream_subscribers",
		Help: "Open server-sent event streams.",
	})
)

// Middleware counts and times every request. The route label is the chi
// pattern once routing has run, so /api/tasks/{id} is one series.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			route := routePattern(r)
			status := strconv.Itoa(ww.Status())
			httpRequestsTotal.WithLabelValues(r.Method, route).Inc()
			httpRequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
			if ww.Status() >= http.StatusInternalServerError {
				httpErrorsTotal.WithLabelValues(r.Method, route, status).Inc()
			}
		})
	}
}

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveDBLatency records a database call, labelled with the route that
// issued it when ctx belongs to a routed request.
func ObserveDBLatency(ctx context.Context, operation string, start time.Time) {
	route := routeFromContext(ctx)
	dbLatency.WithLabelValues(operation, route).Observe(time.Since(start).Seconds())
}

// ObservePresence counts a presence upsert.
func ObservePresence(online bool) {
	state := "offline"
	if online {
		state = "online"
	}
	presenceUpdates.WithLabelValues(state).Inc()
}

// ObserveAttachmentUpload counts an attachment upload by outcome ("ok" or "failed").
func ObserveAttachmentUpload(ok bool) {
	outcome := "failed"
	if ok {
		outcome = "ok"
	}
	attachmentUploads.WithLabelValues(outcome).Inc()
}

func ObserveChatMessage() {
	chatMessages.Inc()
}

// StreamOpened tracks an SSE subscriber; call the returned func when it closes.
func StreamOpened() func() {
	streamSubscribers.Inc()
	return streamSubscribers.Dec
}

func routeFromContext(ctx context.Context) string {
	if rctx := chi.RouteContext(ctx); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := strings.TrimSpace(rctx.RoutePattern()); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
