package planner

import (
	"context"
	"testing"

	"github.com/pocketomega/agentrt/agentcore"
	"github.com/pocketomega/agentrt/internal/llm"
	"github.com/pocketomega/agentrt/internal/tool"
)

// mockProvider is defined locally per-package, matching the convention
// observed in the teacher's decide_test.go.
type mockProvider struct {
	content string
	err     error
}

func (m *mockProvider) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	if m.err != nil {
		return llm.Response{}, m.err
	}
	return llm.Response{Content: m.content, Usage: llm.Usage{PromptTokens: 10, CompletionTokens: 20}}, nil
}

func (m *mockProvider) CompleteStream(ctx context.Context, req llm.Request, onChunk func(llm.StreamChunk)) (llm.Response, error) {
	return m.Complete(ctx, req)
}

func (m *mockProvider) Name() string { return "mock" }

func TestSelectStrategy(t *testing.T) {
	cases := []struct {
		goal      string
		biteSized bool
		want      agentcore.Strategy
	}{
		{"fix", false, agentcore.StrategyStepByStep}, // short goal override
		{"Please debug why the production service keeps crashing under load", false, agentcore.StrategyDebugging},
		{"Research and compare the leading vector database options for our retrieval pipeline", false, agentcore.StrategyResearch},
		{"Optimize the hot path in the request handler to reduce p99 latency meaningfully", false, agentcore.StrategyOptimize},
		{"Explore a prototype integration with the new billing provider before committing", false, agentcore.StrategyExploratory},
		{"Ship the quarterly compliance report to every regional stakeholder by end of week", true, agentcore.StrategyStepByStep},
	}
	for _, c := range cases {
		got := selectStrategy(c.goal, c.biteSized)
		if got != c.want {
			t.Errorf("selectStrategy(%q, %v) = %q, want %q", c.goal, c.biteSized, got, c.want)
		}
	}
}

func TestPlanner_Plan_HappyPath(t *testing.T) {
	content := "```json\n{\"goal\":\"write a file\",\"strategy\":\"step_by_step\",\"steps\":[" +
		"{\"id\":\"step_1\",\"description\":\"write the file\",\"action_type\":\"tool_call\",\"tool_name\":\"write_file\"," +
		"\"arguments\":{\"path\":\"out.txt\",\"content\":\"hi\"}}]}\n```"
	p := New(&mockProvider{content: content}, nil)

	plan, _, err := p.Plan(context.Background(), Request{Goal: "write a file to disk for the user and confirm its contents"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Steps) != 1 {
		t.Fatalf("expected 1 step, got %d", len(plan.Steps))
	}
	if plan.Steps[0].ActionType != agentcore.ActionTypeToolCall {
		t.Errorf("expected tool_call action, got %s", plan.Steps[0].ActionType)
	}
	if plan.Status != agentcore.PlanExecuting {
		t.Errorf("expected plan status executing, got %s", plan.Status)
	}
}

func TestPlanner_Plan_UnknownToolDowngraded(t *testing.T) {
	content := "```json\n{\"steps\":[{\"id\":\"step_1\",\"description\":\"do a thing\",\"action_type\":\"tool_call\",\"tool_name\":\"does_not_exist\"}]}\n```"
	registry := tool.NewRegistry()
	p := New(&mockProvider{content: content}, registry)

	plan, _, err := p.Plan(context.Background(), Request{Goal: "do a thing that requires a tool which is not registered at all"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Steps[0].ActionType != agentcore.ActionTypeReasoning {
		t.Errorf("expected downgrade to reasoning, got %s", plan.Steps[0].ActionType)
	}
	if _, ok := plan.Metadata["planning_warnings"]; !ok {
		t.Error("expected planning_warnings metadata to be set")
	}
}

func TestPlanner_Plan_MalformedJSONRepaired(t *testing.T) {
	content := "```json\n{'goal': 'test', steps: [{'id': 'step_1', 'description': 'do it', 'action_type': 'reasoning',},]}\n```"
	p := New(&mockProvider{content: content}, nil)

	plan, _, err := p.Plan(context.Background(), Request{Goal: "a goal long enough to avoid the short-goal override entirely here"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Steps) != 1 || plan.Steps[0].Description != "do it" {
		t.Fatalf("expected repaired single step plan, got %+v", plan.Steps)
	}
}

func TestPlanner_Plan_FallbackOnUnparseable(t *testing.T) {
	p := New(&mockProvider{content: "this is not json at all and has no fences"}, nil)

	plan, _, err := p.Plan(context.Background(), Request{Goal: "a goal long enough to avoid the short-goal override for this case"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Strategy != agentcore.StrategyFallback {
		t.Errorf("expected fallback strategy, got %s", plan.Strategy)
	}
	if len(plan.Steps) != 3 {
		t.Fatalf("expected 3 fallback steps, got %d", len(plan.Steps))
	}
}

func TestPlanner_Plan_FallbackOnLLMError(t *testing.T) {
	p := New(&mockProvider{err: context.DeadlineExceeded}, nil)

	plan, _, err := p.Plan(context.Background(), Request{Goal: "a goal long enough to avoid the short-goal override for this one too"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Strategy != agentcore.StrategyFallback {
		t.Errorf("expected fallback strategy on llm error, got %s", plan.Strategy)
	}
}

func TestPlanner_Plan_ReturnsUsageForPricing(t *testing.T) {
	content := "```json\n{\"steps\":[{\"id\":\"step_1\",\"description\":\"do it\",\"action_type\":\"reasoning\"}]}\n```"
	p := New(&mockProvider{content: content}, nil)

	_, usage, err := p.Plan(context.Background(), Request{Goal: "a goal long enough to avoid the short-goal override for usage"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if usage.PromptTokens != 10 || usage.CompletionTokens != 20 {
		t.Errorf("expected planning usage to be passed through, got %+v", usage)
	}
}

func TestPlanner_Plan_DuplicateIDsFallBack(t *testing.T) {
	content := "```json\n{\"steps\":[" +
		"{\"id\":\"step_1\",\"description\":\"first\",\"action_type\":\"reasoning\"}," +
		"{\"id\":\"step_1\",\"description\":\"second\",\"action_type\":\"reasoning\"}" +
		"]}\n```"
	p := New(&mockProvider{content: content}, nil)

	plan, _, err := p.Plan(context.Background(), Request{Goal: "a goal long enough to avoid the short-goal override for duplicates"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Strategy != agentcore.StrategyFallback {
		t.Errorf("expected fallback strategy on duplicate ids, got %s", plan.Strategy)
	}
}

func TestPlanner_Plan_CyclicDependenciesFallBack(t *testing.T) {
	content := "```json\n{\"steps\":[" +
		"{\"id\":\"step_1\",\"description\":\"first\",\"action_type\":\"reasoning\",\"dependencies\":[\"step_2\"]}," +
		"{\"id\":\"step_2\",\"description\":\"second\",\"action_type\":\"reasoning\",\"dependencies\":[\"step_1\"]}" +
		"]}\n```"
	p := New(&mockProvider{content: content}, nil)

	plan, _, err := p.Plan(context.Background(), Request{Goal: "a goal long enough to avoid the short-goal override for cycles"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Strategy != agentcore.StrategyFallback {
		t.Errorf("expected fallback strategy on dependency cycle, got %s", plan.Strategy)
	}
}

func TestPlanner_Plan_CostCeilingFallsBack(t *testing.T) {
	content := "```json\n{\"steps\":[" +
		"{\"id\":\"step_1\",\"description\":\"expensive\",\"action_type\":\"reasoning\",\"estimated_cost\":999}" +
		"]}\n```"
	p := New(&mockProvider{content: content}, nil).WithCeilings(0, 1.0)

	plan, _, err := p.Plan(context.Background(), Request{Goal: "a goal long enough to avoid the short-goal override for cost ceiling"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Strategy != agentcore.StrategyFallback {
		t.Errorf("expected fallback strategy on cost ceiling breach, got %s", plan.Strategy)
	}
}

func TestPlanner_Plan_RequiresClarification(t *testing.T) {
	content := "```json\n{\"requires_clarification\":true,\"questions\":[\"which environment?\"]}\n```"
	p := New(&mockProvider{content: content}, nil)

	plan, _, err := p.Plan(context.Background(), Request{Goal: "a goal long enough to avoid the short-goal override for clarification"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Steps) != 1 || plan.Steps[0].ActionType != agentcore.ActionTypeClarification {
		t.Fatalf("expected single clarification step, got %+v", plan.Steps)
	}
}

