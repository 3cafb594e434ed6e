// Package planner turns a goal into an executable agentcore.Plan. It issues
// a single LLM call per planning request, tolerantly parses the response,
// and falls back to a generic three-step plan when the response cannot be
// recovered.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/pocketomega/agentrt/agentcore"
	"github.com/pocketomega/agentrt/internal/jsonrepair"
	"github.com/pocketomega/agentrt/internal/llm"
	"github.com/pocketomega/agentrt/internal/tool"
)

const shortGoalThreshold = 100

// defaultTemperature is the spec's planning_temperature default.
const defaultTemperature = 0.2

// defaultMaxSteps and defaultMaxEstimatedCost bound a single plan's size and
// projected spend before it is ever handed to the engine.
const (
	defaultMaxSteps         = 20
	defaultMaxEstimatedCost = 10.0
)

// Request describes a planning invocation.
type Request struct {
	Goal             string
	Context          agentcore.Context
	PreviousAttempts []string
	Strategy         agentcore.Strategy // optional override; empty means auto-select
	BiteSized        bool
	Autonomous       bool
}

// Planner produces Plans by prompting an llm.Provider and validating its
// response against the registered tool set.
type Planner struct {
	provider         llm.Provider
	registry         *tool.Registry
	temperature      float64
	maxSteps         int
	maxEstimatedCost float64
}

// New creates a Planner backed by provider for LLM calls and registry for
// tool-name/parameter validation, using the spec's planning_temperature
// default.
func New(provider llm.Provider, registry *tool.Registry) *Planner {
	return &Planner{
		provider:         provider,
		registry:         registry,
		temperature:      defaultTemperature,
		maxSteps:         defaultMaxSteps,
		maxEstimatedCost: defaultMaxEstimatedCost,
	}
}

// WithCeilings overrides the plan-level step count and estimated-cost
// ceilings validatePlan rejects a plan against. It returns p for chaining.
func (p *Planner) WithCeilings(maxSteps int, maxEstimatedCost float64) *Planner {
	if maxSteps > 0 {
		p.maxSteps = maxSteps
	}
	if maxEstimatedCost > 0 {
		p.maxEstimatedCost = maxEstimatedCost
	}
	return p
}

// WithTemperature overrides the planning call's sampling temperature. It
// returns p for chaining.
func (p *Planner) WithTemperature(t float64) *Planner {
	p.temperature = t
	return p
}

// Plan produces a Plan for req, falling back to a generic plan if the LLM
// call or response parsing cannot be recovered. The returned llm.Usage
// reflects the single planning call's token usage (zero if the call itself
// never succeeded), so callers can price it even when planning falls back.
func (p *Planner) Plan(ctx context.Context, req Request) (*agentcore.Plan, llm.Usage, error) {
	strategy := req.Strategy
	if strategy == "" {
		strategy = selectStrategy(req.Goal, req.BiteSized)
	}

	resp, err := p.provider.Complete(ctx, llm.Request{
		Messages:       p.buildMessages(req, strategy),
		Temperature:    float32(p.temperature),
		ResponseFormat: "json",
	})
	if err != nil {
		log.Printf("[Planner] llm call failed, using fallback plan: %v", err)
		return fallbackPlan(req.Goal), llm.Usage{}, nil
	}

	raw, err := jsonrepair.Extract(resp.Content)
	if err != nil {
		log.Printf("[Planner] could not extract json, using fallback plan: %v", err)
		return fallbackPlan(req.Goal), resp.Usage, nil
	}

	decoded, err := decodeTolerant(raw)
	if err != nil {
		log.Printf("[Planner] could not parse plan json, using fallback plan: %v", err)
		return fallbackPlan(req.Goal), resp.Usage, nil
	}

	plan := p.fromDecoded(decoded, req.Goal, strategy)
	return plan, resp.Usage, nil
}

func (p *Planner) buildMessages(req Request, strategy agentcore.Strategy) []llm.Message {
	var toolDocs strings.Builder
	if p.registry != nil {
		for _, t := range p.registry.List() {
			meta := t.Metadata()
			fmt.Fprintf(&toolDocs, "- %s: %s\n", meta.Name, meta.Description)
		}
	}

	sys := "You are a planning engine for an autonomous agent. Respond with a single JSON object " +
		"describing a plan, using a fenced ```json code block. Fields: goal, strategy, steps (array of " +
		"{id, description, action_type, tool_name, arguments, expected_outcome, dependencies, " +
		"estimated_cost}), and optionally requires_clarification with a questions array. dependencies " +
		"must reference only other steps' ids, with no circular references."

	var user strings.Builder
	fmt.Fprintf(&user, "Goal: %s\nStrategy: %s\n", req.Goal, strategy)
	if len(req.PreviousAttempts) > 0 {
		fmt.Fprintf(&user, "Previous attempts:\n")
		for _, a := range req.PreviousAttempts {
			fmt.Fprintf(&user, "- %s\n", a)
		}
	}
	if toolDocs.Len() > 0 {
		fmt.Fprintf(&user, "Available tools:\n%s", toolDocs.String())
	}

	return []llm.Message{
		{Role: llm.RoleSystem, Content: sys},
		{Role: llm.RoleUser, Content: user.String()},
	}
}

// selectStrategy scans goal for keywords to pick a strategy family. Short
// goals or bite-sized mode always force step_by_step.
func selectStrategy(goal string, biteSized bool) agentcore.Strategy {
	if biteSized || len(goal) < shortGoalThreshold {
		return agentcore.StrategyStepByStep
	}

	lower := strings.ToLower(goal)
	switch {
	case containsAny(lower, "debug", "fix", "error", "bug", "broken", "crash"):
		return agentcore.StrategyDebugging
	case containsAny(lower, "research", "investigate", "find out", "compare", "survey"):
		return agentcore.StrategyResearch
	case containsAny(lower, "optimize", "speed up", "improve performance", "reduce cost"):
		return agentcore.StrategyOptimize
	case containsAny(lower, "explore", "try", "experiment", "prototype"):
		return agentcore.StrategyExploratory
	default:
		return agentcore.StrategyStepByStep
	}
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// decodedPlan mirrors the JSON shape requested of the LLM.
type decodedPlan struct {
	Goal                  string         `json:"goal"`
	Strategy              string         `json:"strategy"`
	RequiresClarification bool           `json:"requires_clarification"`
	Questions             []string       `json:"questions"`
	Steps                 []decodedStep  `json:"steps"`
}

type decodedStep struct {
	ID              string         `json:"id"`
	Description     string         `json:"description"`
	ActionType      string         `json:"action_type"`
	ToolName        string         `json:"tool_name"`
	Arguments       map[string]any `json:"arguments"`
	ExpectedOutcome string         `json:"expected_outcome"`
	Dependencies    []string       `json:"dependencies"`
	EstimatedCost   float64        `json:"estimated_cost"`
}

// decodeTolerant tries a strict json.Unmarshal first, then retries after
// applying repairJSON's textual fixes.
func decodeTolerant(raw string) (decodedPlan, error) {
	var dp decodedPlan
	if err := json.Unmarshal([]byte(raw), &dp); err == nil {
		return dp, nil
	}
	repaired := jsonrepair.Repair(raw)
	if err := json.Unmarshal([]byte(repaired), &dp); err != nil {
		return decodedPlan{}, fmt.Errorf("decode plan json: %w", err)
	}
	return dp, nil
}

// fromDecoded converts a decodedPlan into an agentcore.Plan, applying
// post-parse validation: unknown tool names are downgraded to reasoning
// steps, missing ids are assigned, unknown action types are rejected down
// to reasoning, and clarification is handled as its own step.
func (p *Planner) fromDecoded(dp decodedPlan, goal string, strategy agentcore.Strategy) *agentcore.Plan {
	if dp.Goal == "" {
		dp.Goal = goal
	}
	if dp.Strategy != "" {
		strategy = agentcore.Strategy(dp.Strategy)
	}

	plan := &agentcore.Plan{
		Goal:     dp.Goal,
		Status:   agentcore.PlanPlanning,
		Strategy: strategy,
		Metadata: map[string]any{},
	}

	if dp.RequiresClarification {
		plan.Steps = []agentcore.PlanStep{{
			ID:          "step_1",
			Description: "Clarify task requirements before proceeding",
			ActionType:  agentcore.ActionTypeClarification,
			Metadata: agentcore.StepMetadata{
				Extra: map[string]any{"questions": dp.Questions},
			},
			Status: agentcore.StepPending,
		}}
		plan.Status = agentcore.PlanExecuting
		return plan
	}

	steps := make([]agentcore.PlanStep, 0, len(dp.Steps))
	warnings := make([]string, 0)
	for i, ds := range dp.Steps {
		if ds.Description == "" {
			continue // a step with no description carries no instructions worth executing
		}
		id := ds.ID
		if id == "" {
			id = fmt.Sprintf("step_%d", i+1)
		}

		actionType := agentcore.ActionType(ds.ActionType)
		switch actionType {
		case agentcore.ActionTypeToolCall, agentcore.ActionTypeReasoning, agentcore.ActionTypeClarification:
		default:
			actionType = agentcore.ActionTypeReasoning
		}

		toolName := ds.ToolName
		if actionType == agentcore.ActionTypeToolCall {
			if p.registry == nil {
				actionType = agentcore.ActionTypeReasoning
				toolName = ""
			} else if t, ok := p.registry.Get(ds.ToolName); !ok {
				warnings = append(warnings, fmt.Sprintf("%s: unknown tool %q, downgraded to reasoning", id, ds.ToolName))
				actionType = agentcore.ActionTypeReasoning
				toolName = ""
			} else {
				meta := t.Metadata()
				for _, req := range meta.Required {
					if _, present := ds.Arguments[req]; !present {
						warnings = append(warnings, fmt.Sprintf("%s: missing required parameter %q for tool %q", id, req, meta.Name))
					}
				}
				for arg := range ds.Arguments {
					if _, known := meta.Properties[arg]; !known {
						warnings = append(warnings, fmt.Sprintf("%s: unknown parameter %q for tool %q", id, arg, meta.Name))
					}
				}
			}
		}

		steps = append(steps, agentcore.PlanStep{
			ID:              id,
			Description:     ds.Description,
			ActionType:      actionType,
			ToolName:        toolName,
			Arguments:       ds.Arguments,
			ExpectedOutcome: ds.ExpectedOutcome,
			Dependencies:    ds.Dependencies,
			EstimatedCost:   ds.EstimatedCost,
			Status:          agentcore.StepPending,
		})
	}

	if len(steps) == 0 {
		return fallbackPlan(goal)
	}

	if err := p.validatePlan(steps); err != nil {
		log.Printf("[Planner] plan failed validation, using fallback plan: %v", err)
		return fallbackPlan(goal)
	}

	if len(warnings) > 0 {
		plan.Metadata["planning_warnings"] = warnings
	}
	plan.Steps = steps
	plan.Status = agentcore.PlanExecuting
	return plan
}

// validatePlan rejects a plan whose step count or total estimated cost
// exceeds the Planner's configured ceilings, whose step ids collide, or
// whose dependencies form a cycle.
func (p *Planner) validatePlan(steps []agentcore.PlanStep) error {
	if len(steps) > p.maxSteps {
		return fmt.Errorf("too many steps: %d > %d", len(steps), p.maxSteps)
	}

	seen := make(map[string]bool, len(steps))
	var totalCost float64
	for _, s := range steps {
		if seen[s.ID] {
			return fmt.Errorf("duplicate step id %q", s.ID)
		}
		seen[s.ID] = true
		totalCost += s.EstimatedCost
	}

	if totalCost > p.maxEstimatedCost {
		return fmt.Errorf("plan too expensive: %.2f > %.2f", totalCost, p.maxEstimatedCost)
	}

	if hasCycle(steps) {
		return fmt.Errorf("circular dependencies detected in plan")
	}

	return nil
}

// hasCycle reports whether steps' Dependencies form a cycle, via DFS with a
// recursion-stack set. Dependencies naming an unknown step id are ignored:
// a dangling reference is not itself a cycle.
func hasCycle(steps []agentcore.PlanStep) bool {
	adj := make(map[string][]string, len(steps))
	for _, s := range steps {
		adj[s.ID] = s.Dependencies
	}

	visited := make(map[string]bool, len(steps))
	onStack := make(map[string]bool, len(steps))

	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		onStack[id] = true
		for _, dep := range adj[id] {
			if _, known := adj[dep]; !known {
				continue
			}
			if !visited[dep] {
				if dfs(dep) {
					return true
				}
			} else if onStack[dep] {
				return true
			}
		}
		onStack[id] = false
		return false
	}

	for _, s := range steps {
		if !visited[s.ID] {
			if dfs(s.ID) {
				return true
			}
		}
	}
	return false
}

// fallbackPlan is the generic three-step plan emitted when an LLM response
// cannot be recovered at all.
func fallbackPlan(goal string) *agentcore.Plan {
	return &agentcore.Plan{
		Goal:     goal,
		Status:   agentcore.PlanExecuting,
		Strategy: agentcore.StrategyFallback,
		Metadata: map[string]any{"fallback_reason": "planner response unparseable"},
		Steps: []agentcore.PlanStep{
			{ID: "step_1", Description: "Analyze the goal and available context", ActionType: agentcore.ActionTypeReasoning, Status: agentcore.StepPending},
			{ID: "step_2", Description: "Execute the most direct approach toward the goal", ActionType: agentcore.ActionTypeReasoning, Status: agentcore.StepPending},
			{ID: "step_3", Description: "Validate the outcome against the goal", ActionType: agentcore.ActionTypeReasoning, Status: agentcore.StepPending},
		},
	}
}
