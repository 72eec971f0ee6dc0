package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gfranca/conta-gateway-go/internal/domain"
	"github.com/gfranca/conta-gateway-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Session events (SSE)
// ============================================================

// sessionEventsHandler streams session lifecycle events over SSE. Each
// surface opens one stream and re-renders its auth-dependent UI on every
// event, so sign-out in one tab propagates to all of them.
func sessionEventsHandler(sessions *service.SessionManager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming unsupported")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		// Buffered so a slow consumer drops events instead of blocking
		// the publisher; the surface re-reads /v1/session on reconnect.
		events := make(chan domain.SessionEvent, 8)
		unsub := sessions.Subscribe(func(e domain.SessionEvent) {
			select {
			case events <- e:
			default:
				logger.Warn("session event dropped for slow stream consumer")
			}
		})
		defer unsub()

		// Tell the surface the current state right away so it doesn't
		// wait for the next transition.
		writeSSE(w, "state", map[string]bool{"signed_in": sessions.Session() != nil})
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case e := <-events:
				writeSSE(w, string(e.Kind), eventView(e))
				flusher.Flush()
			}
		}
	}
}

// eventView strips the tokens out before an event crosses to a surface.
func eventView(e domain.SessionEvent) map[string]any {
	view := map[string]any{"at": e.At}
	if e.Session != nil {
		view["user_id"] = e.Session.UserID
		view["email"] = e.Session.Email
	}
	return view
}

func writeSSE(w http.ResponseWriter, event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
}
