package replanner

import (
	"context"
	"testing"

	"github.com/pocketomega/agentrt/agentcore"
	"github.com/pocketomega/agentrt/internal/llm"
)

type mockProvider struct {
	content string
	err     error
}

func (m *mockProvider) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	if m.err != nil {
		return llm.Response{}, m.err
	}
	return llm.Response{Content: m.content, Usage: llm.Usage{PromptTokens: 15, CompletionTokens: 25}}, nil
}

func (m *mockProvider) CompleteStream(ctx context.Context, req llm.Request, onChunk func(llm.StreamChunk)) (llm.Response, error) {
	return m.Complete(ctx, req)
}

func (m *mockProvider) Name() string { return "mock" }

func samplePlan() *agentcore.Plan {
	return &agentcore.Plan{
		Goal:        "do something",
		CurrentStep: 1,
		Status:      agentcore.PlanExecuting,
		Strategy:    agentcore.StrategyStepByStep,
		Metadata:    map[string]any{},
		Steps: []agentcore.PlanStep{
			{ID: "step_1", Description: "first", ActionType: agentcore.ActionTypeReasoning, Status: agentcore.StepCompleted},
			{ID: "step_2", Description: "second", ActionType: agentcore.ActionTypeReasoning, Status: agentcore.StepPending},
			{ID: "step_3", Description: "third", ActionType: agentcore.ActionTypeReasoning, Status: agentcore.StepPending},
		},
	}
}

func TestReplan_ReturnsUsageForPricing(t *testing.T) {
	r := New(&mockProvider{content: "```json\n{\"decision\":\"continue\",\"confidence\":0.8}\n```"})
	_, usage := r.Replan(context.Background(), Request{Plan: samplePlan()})
	if usage.PromptTokens != 15 || usage.CompletionTokens != 25 {
		t.Errorf("expected replanning usage to be passed through, got %+v", usage)
	}
}

func TestReplan_Continue(t *testing.T) {
	r := New(&mockProvider{content: "```json\n{\"decision\":\"continue\",\"confidence\":0.8,\"learnings\":[\"all good\"]}\n```"})
	out, _ := r.Replan(context.Background(), Request{Plan: samplePlan()})
	if out.Decision != DecisionContinue {
		t.Fatalf("expected continue, got %s", out.Decision)
	}
	if len(out.Plan.Steps) != 3 {
		t.Errorf("continue must not touch steps, got %d", len(out.Plan.Steps))
	}
	learnings, _ := out.Plan.Metadata["learnings"].([]string)
	if len(learnings) != 1 {
		t.Errorf("expected learnings recorded, got %v", learnings)
	}
}

func TestReplan_Adjust_PreservesPriorSteps(t *testing.T) {
	content := "```json\n{\"decision\":\"adjust\",\"confidence\":0.7,\"steps\":[" +
		"{\"id\":\"step_2b\",\"description\":\"revised second\",\"action_type\":\"reasoning\"}]}\n```"
	r := New(&mockProvider{content: content})
	plan := samplePlan()
	out, _ := r.Replan(context.Background(), Request{Plan: plan})

	if out.Decision != DecisionAdjust {
		t.Fatalf("expected adjust, got %s", out.Decision)
	}
	if len(out.Plan.Steps) != 2 {
		t.Fatalf("expected 2 steps after adjust (1 preserved + 1 new), got %d", len(out.Plan.Steps))
	}
	if out.Plan.Steps[0].ID != "step_1" {
		t.Errorf("expected step_1 preserved, got %s", out.Plan.Steps[0].ID)
	}
	if out.Plan.Steps[1].ID != "step_2b" {
		t.Errorf("expected replacement step_2b, got %s", out.Plan.Steps[1].ID)
	}
}

func TestReplan_Complete(t *testing.T) {
	r := New(&mockProvider{content: "```json\n{\"decision\":\"complete\",\"confidence\":0.9}\n```"})
	out, _ := r.Replan(context.Background(), Request{Plan: samplePlan()})
	if out.Decision != DecisionComplete || out.Plan.Status != agentcore.PlanCompleted {
		t.Fatalf("expected completed plan, got decision=%s status=%s", out.Decision, out.Plan.Status)
	}
}

func TestReplan_Fail(t *testing.T) {
	r := New(&mockProvider{content: "```json\n{\"decision\":\"fail\",\"confidence\":0.9}\n```"})
	out, _ := r.Replan(context.Background(), Request{Plan: samplePlan()})
	if out.Decision != DecisionFail || out.Plan.Status != agentcore.PlanFailed {
		t.Fatalf("expected failed plan, got decision=%s status=%s", out.Decision, out.Plan.Status)
	}
}

func TestReplan_AskForHelp_InsertsClarificationStep(t *testing.T) {
	r := New(&mockProvider{content: "```json\n{\"decision\":\"ask_for_help\",\"confidence\":0.5}\n```"})
	plan := samplePlan()
	out, _ := r.Replan(context.Background(), Request{Plan: plan})

	if out.Decision != DecisionAskForHelp {
		t.Fatalf("expected ask_for_help, got %s", out.Decision)
	}
	if len(out.Plan.Steps) != 4 {
		t.Fatalf("expected 4 steps after clarification insert, got %d", len(out.Plan.Steps))
	}
	found := false
	for _, s := range out.Plan.Steps {
		if s.ActionType == agentcore.ActionTypeClarification {
			found = true
		}
	}
	if !found {
		t.Error("expected a clarification step to be inserted")
	}
}

func TestReplan_DefaultsToContinueOnLLMError(t *testing.T) {
	r := New(&mockProvider{err: context.DeadlineExceeded})
	out, _ := r.Replan(context.Background(), Request{Plan: samplePlan()})
	if out.Decision != DecisionContinue {
		t.Fatalf("expected default continue on llm error, got %s", out.Decision)
	}
}

func TestReplan_DefaultsToContinueOnUnparseable(t *testing.T) {
	r := New(&mockProvider{content: "not json at all"})
	out, _ := r.Replan(context.Background(), Request{Plan: samplePlan()})
	if out.Decision != DecisionContinue {
		t.Fatalf("expected default continue on unparseable response, got %s", out.Decision)
	}
}

func TestShouldTrigger_ConsecutiveErrors(t *testing.T) {
	triggered, reason := ShouldTrigger(3, 3, nil, 1, 1, LimitUsage{})
	if !triggered || reason != TriggerConsecutiveError {
		t.Fatalf("expected consecutive-error trigger, got %v %s", triggered, reason)
	}
}

func TestShouldTrigger_ObservationFailures(t *testing.T) {
	obs := []agentcore.Observation{
		{StepID: "1", Success: true},
		{StepID: "2", Success: false},
		{StepID: "3", Success: false},
	}
	triggered, reason := ShouldTrigger(0, 3, obs, 1, 1, LimitUsage{})
	if !triggered || reason != TriggerObservationFail {
		t.Fatalf("expected observation-failure trigger, got %v %s", triggered, reason)
	}
}

func TestShouldTrigger_EarlyStall(t *testing.T) {
	triggered, reason := ShouldTrigger(0, 3, nil, 11, 2, LimitUsage{})
	if !triggered || reason != TriggerEarlyStall {
		t.Fatalf("expected early-stall trigger, got %v %s", triggered, reason)
	}
}

func TestShouldTrigger_LimitApproaching(t *testing.T) {
	triggered, reason := ShouldTrigger(0, 3, nil, 1, 1, LimitUsage{CostPercent: 85})
	if !triggered || reason != TriggerLimitApproaching {
		t.Fatalf("expected limit-approaching trigger, got %v %s", triggered, reason)
	}
}

func TestShouldTrigger_NoneWhenHealthy(t *testing.T) {
	triggered, _ := ShouldTrigger(0, 3, nil, 1, 1, LimitUsage{})
	if triggered {
		t.Error("expected no trigger for a healthy run")
	}
}
