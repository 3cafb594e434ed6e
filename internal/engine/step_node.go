package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/pocketomega/agentrt/agentcore"
	"github.com/pocketomega/agentrt/internal/budget"
	"github.com/pocketomega/agentrt/internal/cache"
	"github.com/pocketomega/agentrt/internal/core"
	"github.com/pocketomega/agentrt/internal/llm"
	"github.com/pocketomega/agentrt/internal/memory"
	"github.com/pocketomega/agentrt/internal/persistence"
	"github.com/pocketomega/agentrt/internal/replanner"
	"github.com/pocketomega/agentrt/internal/stream"
	"github.com/pocketomega/agentrt/internal/telemetry"
	"github.com/pocketomega/agentrt/internal/tool"
)

// defaultReasoningTemperature is the spec's reasoning_temperature default.
const defaultReasoningTemperature = 0.7

// stepPrep is the work item Prep hands to Exec and Post: the current
// PlanStep, its index in the plan, and the running agent's id.
type stepPrep struct {
	step    agentcore.PlanStep
	index   int
	agentID string
}

// StepNode implements the engine's single-step ACT/OBSERVE cycle: budget
// check, dispatch by action_type, cache read/write, observation append, and
// counter update. It self-loops via ActionAct until the plan completes, a
// budget limit trips, or a replan condition fires.
type StepNode struct {
	registry *tool.Registry
	executor *tool.Executor
	cache    *cache.Cache
	provider llm.Provider
	prices   llm.PriceTable
	enforcer *budget.Enforcer
	memory   *memory.Store
	producer *stream.Producer
	telem    *telemetry.Provider

	maxConsecutiveErrors int
	checkpointInterval   int
	workspacePath        string
	reasoningTemperature float64
}

// StepNodeConfig bundles StepNode's dependencies and tunables.
type StepNodeConfig struct {
	Registry             *tool.Registry
	Executor             *tool.Executor
	Cache                *cache.Cache
	Provider             llm.Provider
	Prices               llm.PriceTable
	Enforcer             *budget.Enforcer
	Memory               *memory.Store
	Producer             *stream.Producer
	Telemetry            *telemetry.Provider // optional; nil disables spans/metrics
	MaxConsecutiveErrors int
	CheckpointInterval   int
	WorkspacePath        string
	ReasoningTemperature float64 // 0 applies the spec's reasoning_temperature default
}

// NewStepNode creates a StepNode from cfg, applying the spec's configuration
// defaults for any zero-valued tunable.
func NewStepNode(cfg StepNodeConfig) *StepNode {
	if cfg.MaxConsecutiveErrors <= 0 {
		cfg.MaxConsecutiveErrors = 3
	}
	if cfg.CheckpointInterval <= 0 {
		cfg.CheckpointInterval = 5
	}
	if cfg.ReasoningTemperature <= 0 {
		cfg.ReasoningTemperature = defaultReasoningTemperature
	}
	return &StepNode{
		registry:             cfg.Registry,
		executor:             cfg.Executor,
		cache:                cfg.Cache,
		provider:             cfg.Provider,
		prices:               cfg.Prices,
		enforcer:             cfg.Enforcer,
		memory:               cfg.Memory,
		producer:             cfg.Producer,
		telem:                cfg.Telemetry,
		maxConsecutiveErrors: cfg.MaxConsecutiveErrors,
		checkpointInterval:   cfg.CheckpointInterval,
		workspacePath:        cfg.WorkspacePath,
		reasoningTemperature: cfg.ReasoningTemperature,
	}
}

// Prep runs the pre-dispatch budget check and fetches the current step. An
// empty return signals Post to route without ever calling Exec, mirroring
// the teacher's ToolNode pattern of a nil-Prep short circuit.
func (n *StepNode) Prep(state *State) []stepPrep {
	if n.enforcer != nil {
		if stop, reason, err := n.enforcer.ShouldStop(); stop {
			state.Agent.Phase = agentcore.PhaseStopped
			state.StopReason = err.Error()
			emit(n.producer, state, stream.TypeLimitReached, map[string]any{"reason": string(reason)})
			return nil
		}
		if warnings := n.enforcer.Snapshot().Warnings(); len(warnings) > 0 {
			emit(n.producer, state, stream.TypeWarning, map[string]any{"warnings": warnings})
		}
	}

	plan := state.Agent.Plan
	if plan == nil || plan.IsComplete() {
		state.Agent.Phase = agentcore.PhaseCompleted
		if plan != nil {
			plan.Status = agentcore.PlanCompleted
		}
		return nil
	}

	step := plan.CurrentPlanStep()
	if step == nil {
		state.Agent.Phase = agentcore.PhaseCompleted
		plan.Status = agentcore.PlanCompleted
		return nil
	}

	step.Advance(agentcore.StepRunning)
	emit(n.producer, state, stream.TypeStepStart, map[string]any{
		"step_id":     step.ID,
		"action_type": string(step.ActionType),
	})
	return []stepPrep{{step: *step, index: plan.CurrentStep, agentID: state.Agent.AgentID}}
}

// Exec dispatches one step: cache lookup, then tool/LLM/clarification
// handling on miss. It never returns a non-nil error for ordinary tool or
// reasoning failures — those are surfaced as a failed ExecutionResult, per
// the spec's propagation policy. A non-nil error here means something the
// engine did not anticipate (e.g. a context cancellation mid tool call).
func (n *StepNode) Exec(ctx context.Context, prep stepPrep) (agentcore.ExecutionResult, error) {
	if n.telem == nil {
		return n.dispatch(ctx, prep.step)
	}
	ctx, end := n.telem.StartStep(ctx, prep.agentID, prep.step.ID, string(prep.step.ActionType))
	result, err := n.dispatch(ctx, prep.step)
	end(err == nil && result.Success)
	return result, err
}

func (n *StepNode) dispatch(ctx context.Context, step agentcore.PlanStep) (agentcore.ExecutionResult, error) {
	switch step.ActionType {
	case agentcore.ActionTypeToolCall:
		return n.execToolCall(ctx, step)
	case agentcore.ActionTypeReasoning:
		return n.execReasoning(ctx, step)
	case agentcore.ActionTypeClarification:
		return n.execClarification(ctx, step)
	default:
		return agentcore.ExecutionResult{Success: false, Error: fmt.Sprintf("unknown action_type %q", step.ActionType)}, nil
	}
}

func (n *StepNode) execToolCall(ctx context.Context, step agentcore.PlanStep) (agentcore.ExecutionResult, error) {
	wsCtx := n.wsContextFromState()

	var key string
	eligible := false
	if n.cache != nil {
		key = cache.Fingerprint(step.ToolName, step.Arguments, n.workspacePath)
		if t, ok := n.registry.Get(step.ToolName); ok {
			eligible = agentcore.CacheEligible(t.Metadata().Capabilities)
		}
		if eligible {
			if result, hit := n.cache.Get(key); hit {
				return result, nil
			}
		}
	}

	result, err := n.executor.Execute(ctx, step, wsCtx)
	if err != nil {
		return agentcore.ExecutionResult{Success: false, Error: err.Error(), ToolUsed: step.ToolName}, nil
	}
	if eligible && result.Success {
		n.cache.Put(key, result, n.workspacePath)
	}
	if n.cache != nil && result.Success {
		if prefix, ok := result.Metadata["invalidate_cache_prefix"].(string); ok && prefix != "" {
			n.cache.InvalidatePrefix(prefix)
		}
	}
	if n.enforcer != nil {
		n.enforcer.SetCacheSize(n.cache.Len())
	}
	return result, nil
}

func (n *StepNode) execReasoning(ctx context.Context, step agentcore.PlanStep) (agentcore.ExecutionResult, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: "You are executing one step of an agent's plan. Respond with the step's result directly."},
		{Role: llm.RoleUser, Content: fmt.Sprintf("Step: %s\nExpected outcome: %s", step.Description, step.ExpectedOutcome)},
	}

	var key string
	if n.cache != nil {
		key = cache.Fingerprint("__reasoning__", map[string]any{"messages": messages, "temperature": n.reasoningTemperature}, n.workspacePath)
		if result, hit := n.cache.Get(key); hit {
			return result, nil
		}
	}

	resp, err := n.provider.Complete(ctx, llm.Request{Messages: messages, Temperature: float32(n.reasoningTemperature)})
	if err != nil {
		return agentcore.ExecutionResult{Success: false, Error: err.Error()}, nil
	}

	result := agentcore.ExecutionResult{
		Success: true,
		Output:  resp.Content,
		Cost:    n.prices.Cost(resp.Usage),
	}
	if n.cache != nil {
		n.cache.Put(key, result, n.workspacePath)
		if n.enforcer != nil {
			n.enforcer.SetCacheSize(n.cache.Len())
		}
	}
	return result, nil
}

func (n *StepNode) execClarification(ctx context.Context, step agentcore.PlanStep) (agentcore.ExecutionResult, error) {
	if n.memory != nil {
		goal := ""
		if qs, ok := step.Metadata.Extra["questions"].([]string); ok && len(qs) > 0 {
			goal = strings.Join(qs, " ")
		}
		if goal != "" {
			if similar, err := n.memory.SimilarTasks(ctx, goal, 1); err == nil && len(similar) > 0 {
				return agentcore.ExecutionResult{
					Success: true,
					Output:  fmt.Sprintf("inferred from similar past task %q: %s", similar[0].Goal, similar[0].Summary),
					Metadata: map[string]any{"clarification_inferred": true},
				}, nil
			}
		}
	}
	return agentcore.ExecutionResult{
		Success:     false,
		Output:      "awaiting clarification from caller",
		NeedsReplan: true,
	}, nil
}

func (n *StepNode) wsContextFromState() agentcore.Context {
	return agentcore.Context{WorkspacePath: n.workspacePath}
}

// ExecFallback turns an unexpected Exec error into a failed ExecutionResult
// rather than letting a retry exhaustion unwind the loop.
func (n *StepNode) ExecFallback(err error) agentcore.ExecutionResult {
	return agentcore.ExecutionResult{Success: false, Error: err.Error()}
}

// Post records the step's observation, updates counters, and decides
// whether to self-loop, replan, or end the run.
func (n *StepNode) Post(state *State, prep []stepPrep, results ...agentcore.ExecutionResult) core.Action {
	if len(prep) == 0 {
		switch state.Agent.Phase {
		case agentcore.PhaseStopped:
			emit(n.producer, state, stream.TypeStopped, map[string]any{"reason": state.StopReason})
			return core.ActionStopped
		case agentcore.PhaseCompleted:
			emit(n.producer, state, stream.TypeCompleted, nil)
			return core.ActionComplete
		default:
			return core.ActionComplete
		}
	}

	step := prep[0].step
	result := results[0]

	if result.ToolUsed != "" {
		emit(n.producer, state, stream.TypeToolResult, map[string]any{"step_id": step.ID, "success": result.Success})
	}
	if !result.Success {
		emit(n.producer, state, stream.TypeStepError, map[string]any{"step_id": step.ID, "error": result.Error})
	} else {
		emit(n.producer, state, stream.TypeStepResult, map[string]any{"step_id": step.ID, "cached": result.Cached})
	}

	obs := agentcore.NewObservation(step, result)
	state.Agent.AppendObservation(obs)
	emit(n.producer, state, stream.TypeObservation, map[string]any{"step_id": obs.StepID, "success": obs.Success})

	state.Agent.Iteration++
	state.Agent.TotalCost += result.Cost
	if result.ToolUsed != "" {
		state.Agent.TotalToolCalls++
	}
	if n.enforcer != nil {
		n.enforcer.RecordIteration()
		costKind := budget.CostKindReasoning
		if result.ToolUsed != "" {
			costKind = budget.CostKindTool
		}
		n.enforcer.RecordCost(costKind, result.Cost)
		if result.ToolUsed != "" {
			n.enforcer.RecordToolCall()
		}
	}
	if n.telem != nil {
		ctx := context.Background()
		n.telem.RecordIteration(ctx, state.Agent.AgentID)
		n.telem.RecordCost(ctx, state.Agent.AgentID, result.Cost)
		if result.ToolUsed != "" {
			n.telem.RecordToolCall(ctx, state.Agent.AgentID)
		}
	}

	if result.Success {
		state.Agent.ConsecErrors = 0
		step.Advance(agentcore.StepCompleted)
	} else {
		state.Agent.ConsecErrors++
		step.Advance(agentcore.StepFailed)
	}
	plan := state.Agent.Plan
	if prep[0].index < len(plan.Steps) {
		plan.Steps[prep[0].index] = step
	}
	plan.CurrentStep++

	if n.checkpointInterval > 0 && state.Agent.Iteration%n.checkpointInterval == 0 {
		n.writeCheckpoint(state)
		emit(n.producer, state, stream.TypeCheckpoint, map[string]any{"iteration": state.Agent.Iteration})
		if n.telem != nil {
			if snap, err := n.telem.Snapshot(context.Background()); err == nil {
				emit(n.producer, state, stream.TypeMetrics, snap)
			}
		}
	}

	if plan.IsComplete() {
		state.Agent.Phase = agentcore.PhaseCompleted
		plan.Status = agentcore.PlanCompleted
		emit(n.producer, state, stream.TypeCompleted, nil)
		return core.ActionComplete
	}

	usage := replanner.LimitUsage{}
	if n.enforcer != nil {
		snap := n.enforcer.Snapshot()
		usage = replanner.LimitUsage{
			IterationsPercent: snap.IterationsPercent,
			CostPercent:       snap.CostPercent,
			ToolCallsPercent:  snap.ToolCallsPercent,
			ElapsedPercent:    snap.ElapsedPercent,
			CacheSizePercent:  snap.CacheSizePercent,
		}
	}
	triggered, _ := replanner.ShouldTrigger(
		state.Agent.ConsecErrors, n.maxConsecutiveErrors,
		recentTail(state.Agent.Observations(), 3),
		state.Agent.Iteration, plan.CurrentStep, usage,
	)

	if result.NeedsReplan || triggered {
		state.Agent.Phase = agentcore.PhaseReplanning
		emit(n.producer, state, stream.TypeReplanning, nil)
		return core.ActionReplan
	}

	return core.ActionAct
}

func (n *StepNode) writeCheckpoint(state *State) {
	cp := persistence.Checkpoint{
		AgentID:            state.Agent.AgentID,
		Phase:              state.Agent.Phase,
		Iteration:          state.Agent.Iteration,
		Plan:               state.Agent.Plan,
		RecentObservations: state.Agent.Observations(),
		BudgetSnapshot:     map[string]any{},
	}
	if n.enforcer != nil {
		snap := n.enforcer.Snapshot()
		cp.BudgetSnapshot = map[string]any{
			"iterations": snap.Iterations,
			"cost":       snap.Cost,
			"tool_calls": snap.ToolCalls,
		}
	}
	persistence.WriteCheckpointBestEffort(persistence.CheckpointPath(n.workspacePath, state.Agent.AgentID), cp)
}

func recentTail(obs []agentcore.Observation, n int) []agentcore.Observation {
	if len(obs) <= n {
		return obs
	}
	return obs[len(obs)-n:]
}
