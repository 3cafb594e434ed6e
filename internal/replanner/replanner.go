// Package replanner decides, at a trigger point, whether an agent run
// should continue, adjust its plan, finish, fail, or ask for help. It
// mirrors the Planner's one-call, tolerant-parse shape but consumes
// observations and run statistics rather than a bare goal.
package replanner

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/pocketomega/agentrt/agentcore"
	"github.com/pocketomega/agentrt/internal/jsonrepair"
	"github.com/pocketomega/agentrt/internal/llm"
)

// Decision tags the Replanner's verdict.
type Decision string

const (
	DecisionContinue    Decision = "continue"
	DecisionAdjust      Decision = "adjust"
	DecisionComplete    Decision = "complete"
	DecisionFail        Decision = "fail"
	DecisionAskForHelp  Decision = "ask_for_help"
)

// Outcome is the fully-applied result of one replan invocation: the
// (possibly mutated) plan plus the decision that produced it, for the
// engine to log and act on.
type Outcome struct {
	Decision   Decision
	Confidence float64
	Learnings  []string
	Plan       *agentcore.Plan
}

// Request bundles everything the Replanner needs to reach a decision.
type Request struct {
	Plan               *agentcore.Plan
	RecentObservations []agentcore.Observation
	Stats              Stats
	Autonomous         bool
}

// Stats summarizes run progress for the replanning prompt.
type Stats struct {
	Iteration      int
	TotalCost      float64
	TotalToolCalls int
	ConsecErrors   int
}

// Replanner issues one LLM call per invocation to decide how a stalled or
// flagged run should proceed.
type Replanner struct {
	provider llm.Provider
}

// New creates a Replanner backed by provider.
func New(provider llm.Provider) *Replanner {
	return &Replanner{provider: provider}
}

// Replan applies the decision semantics described in the spec's Replanner
// section, mutating req.Plan in place and returning it in Outcome. On
// LLM/parse failure the default decision is continue (conservative). The
// returned llm.Usage reflects the replanning call's token usage (zero if
// the call itself never succeeded), so callers can price it.
func (r *Replanner) Replan(ctx context.Context, req Request) (Outcome, llm.Usage) {
	resp, err := r.provider.Complete(ctx, llm.Request{
		Messages:       r.buildMessages(req),
		Temperature:    0.1,
		ResponseFormat: "json",
	})
	if err != nil {
		log.Printf("[Replanner] llm call failed, defaulting to continue: %v", err)
		return Outcome{Decision: DecisionContinue, Plan: req.Plan}, llm.Usage{}
	}

	raw, err := jsonrepair.Extract(resp.Content)
	if err != nil {
		log.Printf("[Replanner] could not extract json, defaulting to continue: %v", err)
		return Outcome{Decision: DecisionContinue, Plan: req.Plan}, resp.Usage
	}

	decoded, err := decodeTolerant(raw)
	if err != nil {
		log.Printf("[Replanner] could not parse decision json, defaulting to continue: %v", err)
		return Outcome{Decision: DecisionContinue, Plan: req.Plan}, resp.Usage
	}

	return r.apply(decoded, req), resp.Usage
}

func (r *Replanner) buildMessages(req Request) []llm.Message {
	sys := "You are the replanning module of an autonomous agent. Given the current plan, recent " +
		"observations, and run statistics, respond with a single JSON object in a fenced ```json code " +
		"block with fields: decision (one of continue, adjust, complete, fail, ask_for_help), " +
		"confidence (0 to 1), learnings (array of strings), and for decision=adjust, steps (array of " +
		"{id, description, action_type, tool_name, arguments, expected_outcome, dependencies} replacing " +
		"every step from the current one onward)."

	var user strings.Builder
	fmt.Fprintf(&user, "Goal: %s\nStrategy: %s\nCurrent step index: %d of %d\n",
		req.Plan.Goal, req.Plan.Strategy, req.Plan.CurrentStep, len(req.Plan.Steps))
	fmt.Fprintf(&user, "Stats: iteration=%d total_cost=%.4f total_tool_calls=%d consecutive_errors=%d\n",
		req.Stats.Iteration, req.Stats.TotalCost, req.Stats.TotalToolCalls, req.Stats.ConsecErrors)
	fmt.Fprintf(&user, "Recent observations:\n")
	for _, o := range req.RecentObservations {
		status := "ok"
		if !o.Success {
			status = "failed"
		}
		fmt.Fprintf(&user, "- [%s] step %s: %s\n", status, o.StepID, o.Text)
	}

	return []llm.Message{
		{Role: llm.RoleSystem, Content: sys},
		{Role: llm.RoleUser, Content: user.String()},
	}
}

type decodedDecision struct {
	Decision   string         `json:"decision"`
	Confidence float64        `json:"confidence"`
	Learnings  []string       `json:"learnings"`
	Steps      []decodedStep  `json:"steps"`
}

type decodedStep struct {
	ID              string         `json:"id"`
	Description     string         `json:"description"`
	ActionType      string         `json:"action_type"`
	ToolName        string         `json:"tool_name"`
	Arguments       map[string]any `json:"arguments"`
	ExpectedOutcome string         `json:"expected_outcome"`
	Dependencies    []string       `json:"dependencies"`
}

func decodeTolerant(raw string) (decodedDecision, error) {
	var dd decodedDecision
	if err := json.Unmarshal([]byte(raw), &dd); err == nil {
		return dd, nil
	}
	repaired := jsonrepair.Repair(raw)
	if err := json.Unmarshal([]byte(repaired), &dd); err != nil {
		return decodedDecision{}, fmt.Errorf("decode decision json: %w", err)
	}
	return dd, nil
}

// apply mutates req.Plan in place per the decoded decision's semantics and
// returns the resulting Outcome.
func (r *Replanner) apply(dd decodedDecision, req Request) Outcome {
	plan := req.Plan
	decision := Decision(dd.Decision)

	switch decision {
	case DecisionContinue:
		appendLearnings(plan, dd.Learnings)
		return Outcome{Decision: DecisionContinue, Confidence: dd.Confidence, Learnings: dd.Learnings, Plan: plan}

	case DecisionAdjust:
		newSteps := make([]agentcore.PlanStep, 0, len(dd.Steps))
		for i, ds := range dd.Steps {
			if ds.Description == "" {
				continue
			}
			id := ds.ID
			if id == "" {
				id = fmt.Sprintf("step_%d", plan.CurrentStep+i+1)
			}
			actionType := agentcore.ActionType(ds.ActionType)
			switch actionType {
			case agentcore.ActionTypeToolCall, agentcore.ActionTypeReasoning, agentcore.ActionTypeClarification:
			default:
				actionType = agentcore.ActionTypeReasoning
			}
			newSteps = append(newSteps, agentcore.PlanStep{
				ID:              id,
				Description:     ds.Description,
				ActionType:      actionType,
				ToolName:        ds.ToolName,
				Arguments:       ds.Arguments,
				ExpectedOutcome: ds.ExpectedOutcome,
				Dependencies:    ds.Dependencies,
				Status:          agentcore.StepPending,
			})
		}
		if len(newSteps) > 0 {
			plan.ReplaceTail(plan.CurrentStep, newSteps)
		}
		appendLearnings(plan, dd.Learnings)
		return Outcome{Decision: DecisionAdjust, Confidence: dd.Confidence, Learnings: dd.Learnings, Plan: plan}

	case DecisionComplete:
		plan.Status = agentcore.PlanCompleted
		return Outcome{Decision: DecisionComplete, Confidence: dd.Confidence, Learnings: dd.Learnings, Plan: plan}

	case DecisionFail:
		plan.Status = agentcore.PlanFailed
		return Outcome{Decision: DecisionFail, Confidence: dd.Confidence, Learnings: dd.Learnings, Plan: plan}

	case DecisionAskForHelp:
		clarify := agentcore.PlanStep{
			ID:          fmt.Sprintf("step_%d_clarify", plan.CurrentStep+1),
			Description: "Clarify how to proceed before continuing",
			ActionType:  agentcore.ActionTypeClarification,
			Status:      agentcore.StepPending,
		}
		insertAt := plan.CurrentStep + 1
		if insertAt > len(plan.Steps) {
			insertAt = len(plan.Steps)
		}
		tail := append([]agentcore.PlanStep{clarify}, plan.Steps[insertAt:]...)
		plan.ReplaceTail(insertAt, tail)
		appendLearnings(plan, dd.Learnings)
		return Outcome{Decision: DecisionAskForHelp, Confidence: dd.Confidence, Learnings: dd.Learnings, Plan: plan}

	default:
		log.Printf("[Replanner] unknown decision %q, defaulting to continue", dd.Decision)
		appendLearnings(plan, dd.Learnings)
		return Outcome{Decision: DecisionContinue, Confidence: dd.Confidence, Learnings: dd.Learnings, Plan: plan}
	}
}

func appendLearnings(plan *agentcore.Plan, learnings []string) {
	if len(learnings) == 0 {
		return
	}
	if plan.Metadata == nil {
		plan.Metadata = map[string]any{}
	}
	existing, _ := plan.Metadata["learnings"].([]string)
	plan.Metadata["learnings"] = append(existing, learnings...)
}
