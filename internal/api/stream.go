package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	httperrors "gitea.jw6.us/james/teamtasks/internal/http/errors"
	"gitea.jw6.us/james/teamtasks/internal/metrics"
)

const keepAliveInterval = 25 * time.Second

// stream pushes the caller's events as server-sent events until the client
// goes away or the broker shuts down.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok || h.Broker == nil {
		httperrors.JSONError(w, http.StatusNotImplemented, "streaming not supported")
		return
	}

	user := currentUser(r)
	ch, err := h.Broker.Subscribe(r.Context(), user.ID)
	if err != nil {
		httperrors.JSONInternalError(w, r, err, "subscribe")
		return
	}
	done := metrics.StreamOpened()
	defer done()

	// The server's WriteTimeout would otherwise end the stream.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				httperrors.LogWarn(r, "encode event", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
