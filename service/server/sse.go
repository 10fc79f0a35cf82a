package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/brojonat/tipjar/service/metrics"
	natspkg "github.com/brojonat/tipjar/service/nats"
	"github.com/brojonat/tipjar/service/tipjar"
)

const sseKeepalive = 10 * time.Second

// handleStreamTips streams tips for the jar as Server-Sent Events.
// GET /api/v1/stream/tips
func handleStreamTips(subscriber natspkg.Subscriber, settings tipjar.Settings, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		flusher, _ := w.(http.Flusher)
		flush := func() {
			if flusher != nil {
				flusher.Flush()
			}
		}

		events, err := subscriber.Subscribe(ctx, settings.TipJarID)
		if err != nil {
			logger.ErrorContext(ctx, "failed to subscribe to tips", "error", err)
			writeError(w, "failed to subscribe", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		if m != nil {
			m.RecordSSEConnectionChange(1)
			defer m.RecordSSEConnectionChange(-1)
		}

		logger.DebugContext(ctx, "SSE client connected", "remote_addr", r.RemoteAddr)

		fmt.Fprintf(w, "event: connected\ndata: {\"tip_jar_id\":%q}\n\n", settings.TipJarID)
		flush()

		keepalive := time.NewTicker(sseKeepalive)
		defer keepalive.Stop()

		for {
			select {
			case <-keepalive.C:
				fmt.Fprintf(w, ": keepalive\n\n")
				flush()

			case event, ok := <-events:
				if !ok {
					return
				}
				data, err := json.Marshal(event)
				if err != nil {
					logger.WarnContext(ctx, "failed to marshal tip event", "error", err)
					continue
				}
				fmt.Fprintf(w, "event: tip\ndata: %s\n\n", data)
				flush()
				if m != nil {
					m.RecordSSEEventSent("tip")
				}

			case <-ctx.Done():
				logger.DebugContext(ctx, "SSE client disconnected", "remote_addr", r.RemoteAddr)
				return
			}
		}
	})
}
