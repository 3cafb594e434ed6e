package tool

import (
	"context"
	"testing"
	"time"

	"github.com/pocketomega/agentrt/agentcore"
)

func TestExecutor_Execute_Success(t *testing.T) {
	r := NewRegistry()
	r.Register(newStubTool("greet", agentcore.CapabilityReadOnly))
	exec := NewExecutor(r)

	step := agentcore.PlanStep{ToolName: "greet", Arguments: map[string]any{}}
	result, err := exec.Execute(context.Background(), step, agentcore.Context{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success || result.ToolUsed != "greet" {
		t.Errorf("unexpected result: %+v", result)
	}
	if result.Metadata["execution_id"] == nil {
		t.Error("expected execution_id in metadata")
	}
}

func TestExecutor_Execute_ToolNotFound(t *testing.T) {
	r := NewRegistry()
	exec := NewExecutor(r)

	step := agentcore.PlanStep{ToolName: "missing"}
	_, err := exec.Execute(context.Background(), step, agentcore.Context{})
	if err == nil {
		t.Fatal("expected error for missing tool")
	}
}

func TestExecutor_Execute_RequiredParamMissing(t *testing.T) {
	r := NewRegistry()
	tl := newStubTool("write_file", agentcore.CapabilityWritable)
	tl.meta.Properties = map[string]agentcore.ParameterSchema{
		"path": {Type: "string"},
	}
	tl.meta.Required = []string{"path"}
	r.Register(tl)
	exec := NewExecutor(r)

	step := agentcore.PlanStep{ToolName: "write_file", Arguments: map[string]any{}}
	result, err := exec.Execute(context.Background(), step, agentcore.Context{})
	if err != nil {
		t.Fatalf("validation failures should not be Go errors: %v", err)
	}
	if result.Success {
		t.Error("expected failure for missing required parameter")
	}
}

func TestExecutor_Execute_PathTraversalRejectedForWritable(t *testing.T) {
	r := NewRegistry()
	tl := newStubTool("write_file", agentcore.CapabilityWritable)
	tl.meta.Properties = map[string]agentcore.ParameterSchema{"path": {Type: "string"}}
	r.Register(tl)
	exec := NewExecutor(r)

	step := agentcore.PlanStep{ToolName: "write_file", Arguments: map[string]any{"path": "../../etc/passwd"}}
	result, _ := exec.Execute(context.Background(), step, agentcore.Context{})
	if result.Success {
		t.Error("expected path-traversal argument to be rejected for writable tool")
	}
}

func TestExecutor_Execute_Timeout(t *testing.T) {
	r := NewRegistry()
	tl := newStubTool("slow")
	tl.execDelay = func(ctx context.Context) {
		<-ctx.Done()
	}
	r.Register(tl)
	exec := NewExecutor(r)

	// Use a pre-cancelled-soon context to avoid a real 30s wait in tests:
	// wrap with a short deadline via context so the executor's own timeout
	// isn't what we're exercising — instead confirm behavior is a failed
	// result rather than a panic/hang when the tool blocks on ctx.Done().
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	step := agentcore.PlanStep{ToolName: "slow", Arguments: map[string]any{}}
	result, err := exec.Execute(ctx, step, agentcore.Context{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success {
		t.Error("expected failure when context is cancelled during execution")
	}
}

func TestExecutor_Execute_NetworkRateLimitDelaysNetworkTools(t *testing.T) {
	r := NewRegistry()
	r.Register(newStubTool("fetch", agentcore.CapabilityNetwork))
	exec := NewExecutor(r).WithNetworkRateLimit(5, 1) // 1 immediate call, then a wait

	step := agentcore.PlanStep{ToolName: "fetch", Arguments: map[string]any{}}
	if _, err := exec.Execute(context.Background(), step, agentcore.Context{}); err != nil {
		t.Fatalf("unexpected error on first call: %v", err)
	}

	start := time.Now()
	result, err := exec.Execute(context.Background(), step, agentcore.Context{})
	if err != nil {
		t.Fatalf("unexpected error on second call: %v", err)
	}
	if !result.Success {
		t.Errorf("expected second call to eventually succeed, got %+v", result)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("expected the second call to wait for the token bucket to refill, only waited %v", elapsed)
	}
}

func TestExecutor_Execute_NetworkRateLimitSkipsNonNetworkTools(t *testing.T) {
	r := NewRegistry()
	r.Register(newStubTool("greet", agentcore.CapabilityReadOnly))
	exec := NewExecutor(r).WithNetworkRateLimit(1, 1)

	step := agentcore.PlanStep{ToolName: "greet", Arguments: map[string]any{}}
	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := exec.Execute(context.Background(), step, agentcore.Context{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("non-network tool should never wait on the rate limiter, took %v", elapsed)
	}
}

func TestExecutor_Rollback_Unsupported(t *testing.T) {
	r := NewRegistry()
	r.Register(newStubTool("greet"))
	exec := NewExecutor(r)

	err := exec.Rollback(context.Background(), "greet", "exec-1")
	if err != ErrRollbackUnsupported {
		t.Errorf("expected ErrRollbackUnsupported, got %v", err)
	}
}
