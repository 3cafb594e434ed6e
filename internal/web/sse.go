// Package web is a thin SSE adapter over the Update Stream. It exists as a
// reference consumer for spec-conforming browser clients; nothing in the
// core engine loop depends on it, and cmd/agentctl's plain JSON-lines
// consumer works without ever importing this package.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/pocketomega/agentrt/internal/stream"
)

// sseWriter wraps an http.ResponseWriter with SSE event writing and client
// disconnect detection.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	ctx     context.Context
}

// newSSEWriter prepares SSE headers and returns a writer, or nil if the
// response writer does not support streaming.
func newSSEWriter(w http.ResponseWriter, r *http.Request) *sseWriter {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return nil
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	return &sseWriter{w: w, flusher: flusher, ctx: r.Context()}
}

// send writes one SSE event. It returns false once the client has
// disconnected, which the caller uses to stop draining the Producer.
func (s *sseWriter) send(event string, data any) bool {
	select {
	case <-s.ctx.Done():
		return false
	default:
	}
	payload, err := json.Marshal(data)
	if err != nil {
		log.Printf("[web] marshal event %s: %v", event, err)
		return false
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		log.Printf("[web] write event %s (client disconnected?): %v", event, err)
		return false
	}
	s.flusher.Flush()
	return true
}

// StreamHandler serves one Update Stream as a text/event-stream response,
// translating each stream.Event's Type into the SSE event name and its Data
// into the event payload. It returns once producer's channel closes or the
// client disconnects, whichever comes first.
func StreamHandler(producer *stream.Producer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sw := newSSEWriter(w, r)
		if sw == nil {
			return
		}

		for event := range producer.Events() {
			if !sw.send(string(event.Type), sseEvent{
				AgentID:   event.AgentID,
				Phase:     event.Phase,
				Iteration: event.Iteration,
				Timestamp: event.Timestamp.UnixMilli(),
				Data:      event.Data,
			}) {
				return
			}
		}
	}
}

// sseEvent is the JSON payload sent with every SSE frame.
type sseEvent struct {
	AgentID   string         `json:"agent_id"`
	Phase     string         `json:"phase"`
	Iteration int            `json:"iteration"`
	Timestamp int64          `json:"timestamp_ms"`
	Data      map[string]any `json:"data,omitempty"`
}
