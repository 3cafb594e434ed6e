package web

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocketomega/agentrt/internal/stream"
)

func TestStreamHandler_WritesEventsAsSSEFrames(t *testing.T) {
	producer := stream.NewProducer(4)
	producer.Emit(stream.New(stream.TypeInit, "agent-1", "plan", 0, map[string]any{"goal": "demo"}))
	producer.Emit(stream.New(stream.TypeCompleted, "agent-1", "complete", 1, nil))
	producer.Close()

	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	rec := httptest.NewRecorder()

	StreamHandler(producer)(rec, req)

	resp := rec.Result()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "event: init")
	assert.Contains(t, body, "event: completed")
	assert.Contains(t, body, `"agent_id":"agent-1"`)
}

func TestStreamHandler_StopsWhenClientDisconnects(t *testing.T) {
	producer := stream.NewProducer(4)
	done := make(chan struct{})

	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	ctx, cancel := context.WithCancel(req.Context())
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	go func() {
		StreamHandler(producer)(rec, req)
		close(done)
	}()

	cancel()
	// The handler only notices a cancellation the next time it tries to send,
	// same as the sseWriter it is built on — emit one more event to unblock it.
	producer.Emit(stream.New(stream.TypeStepStart, "agent-1", "act", 1, nil))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler did not return after client disconnect")
	}
	producer.Close()
}

func TestSSEWriter_Send_FormatsEventAndDataLines(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	sw := newSSEWriter(rec, req)
	require.NotNil(t, sw)

	ok := sw.send("init", sseEvent{AgentID: "a1", Phase: "plan"})
	assert.True(t, ok)

	scanner := bufio.NewScanner(strings.NewReader(rec.Body.String()))
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.Len(t, lines, 2)
	assert.Equal(t, "event: init", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "data: "))
}
