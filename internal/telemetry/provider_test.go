package telemetry

import (
	"context"
	"testing"
)

func TestProvider_SnapshotReflectsRecordedCounters(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	p.RecordIteration(ctx, "agent-1")
	p.RecordIteration(ctx, "agent-1")
	p.RecordCost(ctx, "agent-1", 0.25)
	p.RecordCost(ctx, "agent-1", -1) // skipped
	p.RecordToolCall(ctx, "agent-1")

	snap, err := p.Snapshot(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := snap["agent_iterations_total"]; got != int64(2) {
		t.Errorf("expected 2 iterations, got %v", got)
	}
	if got := snap["agent_cost_total"]; got != float64(0.25) {
		t.Errorf("expected cost 0.25, got %v", got)
	}
	if got := snap["agent_tool_calls_total"]; got != int64(1) {
		t.Errorf("expected 1 tool call, got %v", got)
	}
}

func TestProvider_StartStepRecordsStepDuration(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	_, end := p.StartStep(ctx, "agent-1", "step-1", "tool_call")
	end(true)

	snap, err := p.Snapshot(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hist, ok := snap["agent_step_duration_seconds"].(map[string]any)
	if !ok {
		t.Fatalf("expected histogram summary, got %T: %v", snap["agent_step_duration_seconds"], snap["agent_step_duration_seconds"])
	}
	if hist["count"] != uint64(1) {
		t.Errorf("expected count 1, got %v", hist["count"])
	}
}

func TestProvider_ShutdownIsIdempotentWithSnapshot(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()
	p.RecordIteration(ctx, "agent-1")
	if _, err := p.Snapshot(ctx); err != nil {
		t.Fatalf("unexpected error before shutdown: %v", err)
	}
	if err := p.Shutdown(ctx); err != nil {
		t.Errorf("unexpected error on shutdown: %v", err)
	}
}
