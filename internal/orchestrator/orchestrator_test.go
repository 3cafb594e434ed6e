package orchestrator

import (
	"context"
	"testing"

	"github.com/pocketomega/agentrt/agentcore"
	"github.com/pocketomega/agentrt/internal/engine"
	"github.com/pocketomega/agentrt/internal/llm"
	"github.com/pocketomega/agentrt/internal/memory"
	"github.com/pocketomega/agentrt/internal/planner"
	"github.com/pocketomega/agentrt/internal/replanner"
	"github.com/pocketomega/agentrt/internal/tool"
)

// stubProvider always plans a single reasoning step and answers every
// reasoning call with a fixed string, enough to drive a full plan to
// completion without a real LLM.
type stubProvider struct{ calls int }

func (p *stubProvider) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	p.calls++
	if req.ResponseFormat == "json" {
		return llm.Response{Content: "```json\n{\"goal\":\"g\",\"strategy\":\"step_by_step\",\"steps\":[" +
			"{\"id\":\"step_1\",\"description\":\"think it through\",\"action_type\":\"reasoning\"}" +
			"]}\n```"}, nil
	}
	return llm.Response{Content: "done"}, nil
}
func (p *stubProvider) CompleteStream(ctx context.Context, req llm.Request, onChunk func(llm.StreamChunk)) (llm.Response, error) {
	resp, err := p.Complete(ctx, req)
	onChunk(llm.StreamChunk{Content: resp.Content, Done: true})
	return resp, err
}
func (p *stubProvider) Name() string { return "stub" }

func buildTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	registry := tool.NewRegistry()
	provider := &stubProvider{}
	eng := engine.New(engine.Config{
		Provider:  provider,
		Registry:  registry,
		Planner:   planner.New(provider, registry),
		Replanner: replanner.New(provider),
		Memory:    memory.New(memory.NewInMemoryBackend(50)),
	})
	return New(Config{Engine: eng, BaseWorkspace: t.TempDir()})
}

func TestOrchestrator_RunParallel(t *testing.T) {
	o := buildTestOrchestrator(t)
	results, err := o.RunParallel(context.Background(), []string{"task a", "task b", "task c"}, RunOptions{
		Limits: agentcore.Limits{MaxIterations: 20},
	})
	if err != nil {
		t.Fatalf("RunParallel returned error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, res := range results {
		if res.State.Phase != agentcore.PhaseCompleted {
			t.Errorf("result %d: expected phase completed, got %s", i, res.State.Phase)
		}
	}
	if status := o.AgentStatus(); len(status) != 3 {
		t.Errorf("expected 3 tracked agents, got %d", len(status))
	}
}

func TestOrchestrator_RunSequential_CompletesEachGoal(t *testing.T) {
	o := buildTestOrchestrator(t)
	results, err := o.RunSequential(context.Background(), []string{"task a", "task b"}, RunOptions{
		Limits: agentcore.Limits{MaxIterations: 20},
	})
	if err != nil {
		t.Fatalf("RunSequential returned error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for i, res := range results {
		if res.State.Phase != agentcore.PhaseCompleted {
			t.Errorf("result %d: expected phase completed, got %s", i, res.State.Phase)
		}
	}
}

func TestOrchestrator_RunHierarchical(t *testing.T) {
	o := buildTestOrchestrator(t)
	agg, err := o.RunHierarchical(context.Background(), []string{"sub a", "sub b"}, RunOptions{
		Limits: agentcore.Limits{MaxIterations: 20},
	})
	if err != nil {
		t.Fatalf("RunHierarchical returned error: %v", err)
	}
	if agg.Coordinator.State.Phase != agentcore.PhaseCompleted {
		t.Errorf("expected coordinator phase completed, got %s", agg.Coordinator.State.Phase)
	}
	if len(agg.DelegatedAgents) != 2 {
		t.Fatalf("expected 2 delegated agents, got %d", len(agg.DelegatedAgents))
	}
	for i, res := range agg.DelegatedAgents {
		if res.State.Phase != agentcore.PhaseCompleted {
			t.Errorf("child %d: expected phase completed, got %s", i, res.State.Phase)
		}
	}
	if agg.SuccessCount != 2 {
		t.Errorf("expected success_count 2, got %d", agg.SuccessCount)
	}
}

func TestOrchestrator_CleanupIdle(t *testing.T) {
	o := buildTestOrchestrator(t)
	o.cfg.IdleAge = 0 // every terminal agent is immediately idle-eligible
	if _, err := o.RunParallel(context.Background(), []string{"task a"}, RunOptions{
		Limits: agentcore.Limits{MaxIterations: 20},
	}); err != nil {
		t.Fatalf("RunParallel returned error: %v", err)
	}
	removed := o.CleanupIdle()
	if len(removed) != 1 {
		t.Fatalf("expected 1 agent removed, got %d", len(removed))
	}
	if status := o.AgentStatus(); len(status) != 0 {
		t.Errorf("expected 0 tracked agents after cleanup, got %d", len(status))
	}
}
