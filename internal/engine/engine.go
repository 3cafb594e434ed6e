package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/pocketomega/agentrt/agentcore"
	"github.com/pocketomega/agentrt/internal/budget"
	"github.com/pocketomega/agentrt/internal/cache"
	"github.com/pocketomega/agentrt/internal/core"
	"github.com/pocketomega/agentrt/internal/llm"
	"github.com/pocketomega/agentrt/internal/memory"
	"github.com/pocketomega/agentrt/internal/persistence"
	"github.com/pocketomega/agentrt/internal/planner"
	"github.com/pocketomega/agentrt/internal/replanner"
	"github.com/pocketomega/agentrt/internal/stream"
	"github.com/pocketomega/agentrt/internal/telemetry"
	"github.com/pocketomega/agentrt/internal/tool"
)

// defaultObservationHistorySize is the spec's observation_history_size
// default.
const defaultObservationHistorySize = 10

// Config wires the shared, cross-run dependencies an Engine dispatches
// through. Per-run state (AgentState, Execution Cache, Budget Enforcer) is
// constructed fresh by Run, since those are per-agent per the spec's
// shared-resource policy.
type Config struct {
	Provider  llm.Provider
	Registry  *tool.Registry
	Planner   *planner.Planner
	Replanner *replanner.Replanner
	Memory    *memory.Store
	Prices    llm.PriceTable

	MaxConsecutiveErrors   int
	CheckpointInterval     int
	ObservationHistorySize int
	CacheTTL               time.Duration
	CacheMaxEntries        int

	// PlanningTemperature and ReasoningTemperature override the spec's
	// planning_temperature/reasoning_temperature defaults. Zero applies the
	// default on each respective call site.
	PlanningTemperature  float64
	ReasoningTemperature float64

	// NetworkRateLimit, when > 0, caps network-capability tool dispatch to
	// that many calls per second (burst NetworkRateBurst, minimum 1).
	NetworkRateLimit float64
	NetworkRateBurst int

	// Telemetry holds the engine's span/counter provider. Nil is the normal
	// case for callers: New fills in a fresh in-process Provider so spans and
	// metrics are always on. Set explicitly only to share one Provider's
	// aggregation across several Engines (e.g. an Orchestrator running many
	// agents through one process-wide Snapshot).
	Telemetry *telemetry.Provider
}

// Engine runs agents against a shared set of dependencies. One Engine value
// can drive many sequential or concurrent Run calls (concurrent calls use
// independent per-run state; only Registry and Memory are shared mutable
// resources, and both tolerate concurrent use per the spec).
type Engine struct {
	cfg Config
}

// New creates an Engine from cfg, applying the spec's configuration
// defaults for any zero-valued tunable.
func New(cfg Config) *Engine {
	if cfg.MaxConsecutiveErrors <= 0 {
		cfg.MaxConsecutiveErrors = 3
	}
	if cfg.CheckpointInterval <= 0 {
		cfg.CheckpointInterval = 5
	}
	if cfg.ObservationHistorySize <= 0 {
		cfg.ObservationHistorySize = defaultObservationHistorySize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 300 * time.Second
	}
	if cfg.CacheMaxEntries <= 0 {
		cfg.CacheMaxEntries = 100
	}
	if cfg.PlanningTemperature > 0 && cfg.Planner != nil {
		cfg.Planner.WithTemperature(cfg.PlanningTemperature)
	}
	if cfg.Telemetry == nil {
		provider, err := telemetry.New()
		if err != nil {
			// Spans/metrics are an ambient concern, not a correctness one: a
			// broken SDK should never stop an Engine from running agents.
			log.Printf("[Engine] telemetry disabled, failed to initialize: %v", err)
		} else {
			cfg.Telemetry = provider
		}
	}
	return &Engine{cfg: cfg}
}

// RunOptions configures a single agent run.
type RunOptions struct {
	Task          agentcore.Task
	WorkspacePath string
	Limits        agentcore.Limits
	Autonomous    bool
	BiteSized     bool
	Producer      *stream.Producer // optional; a nil producer means no Update Stream consumer
	ExportMetrics bool

	// SeedObservations pre-populates the agent's working observation set
	// before planning starts. The Orchestrator uses this to hand a prior
	// agent's final update to the next agent in a Sequential run, and to
	// seed a Hierarchical child with a snapshot of its coordinator's
	// observations, without handing out a live pointer to either.
	SeedObservations []agentcore.Observation
}

// Result is the terminal outcome of one Run call.
type Result struct {
	State   *agentcore.AgentState
	Metrics persistence.Metrics
}

// Run drives a single agent from initializing through to
// completed/failed/stopped, per the spec's state machine and per-step
// execution order. An uncaught panic anywhere in the loop is recovered as
// an EngineFailure: the run transitions to failed, the panic is logged, and
// State is returned intact for post-mortem rather than propagated.
func (e *Engine) Run(ctx context.Context, opts RunOptions) (res Result, err error) {
	agentID := uuid.NewString()
	state := &State{
		Agent:      agentcore.NewAgentState(agentID, opts.Task, e.cfg.ObservationHistorySize),
		Context:    agentcore.Context{WorkspacePath: opts.WorkspacePath, Limits: opts.Limits},
		Autonomous: opts.Autonomous,
		BiteSized:  opts.BiteSized,
	}

	for _, obs := range opts.SeedObservations {
		state.Agent.AppendObservation(obs)
	}

	enforcer := budget.NewEnforcer(opts.Limits)
	execCache := cache.New(e.cfg.CacheTTL, e.cfg.CacheMaxEntries)
	executor := tool.NewExecutor(e.cfg.Registry)
	if e.cfg.NetworkRateLimit > 0 {
		burst := e.cfg.NetworkRateBurst
		if burst <= 0 {
			burst = 1
		}
		executor = executor.WithNetworkRateLimit(e.cfg.NetworkRateLimit, burst)
	}

	defer func() {
		if r := recover(); r != nil {
			state.Agent.Phase = agentcore.PhaseFailed
			state.FailReason = fmt.Sprintf("engine panic: %v", r)
			state.Agent.Errors = append(state.Agent.Errors, state.FailReason)
			log.Printf("[Engine] recovered panic in agent %s run, transitioning to failed: %v", agentID, r)
			emit(opts.Producer, state, stream.TypeFailed, map[string]any{"reason": state.FailReason})
			err = fmt.Errorf("engine failure: %v", r)
		}
		res = Result{State: state.Agent, Metrics: e.buildMetrics(state, enforcer)}
		if opts.ExportMetrics {
			persistence.ExportBestEffort(opts.WorkspacePath, res.Metrics)
		}
	}()

	emit(opts.Producer, state, stream.TypeInit, map[string]any{"goal": opts.Task.Goal})

	flow := e.buildFlow(executor, execCache, enforcer, opts.Producer, opts.WorkspacePath)
	flow.Run(ctx, state)

	return res, err
}

// buildFlow wires the three phase nodes into the engine's Flow, matching
// spec.md's 4.6 transition table: initializing -> planning -> executing,
// executing self-loops or routes to replanning, replanning returns to
// executing or ends the run.
func (e *Engine) buildFlow(executor *tool.Executor, execCache *cache.Cache, enforcer *budget.Enforcer, producer *stream.Producer, workspacePath string) core.Workflow[State] {
	planNode := core.NewNode[State, planPrep, planOutcome](
		NewPlanNode(e.cfg.Planner, e.cfg.Prices, enforcer, producer), 1,
	)
	stepNode := core.NewNode[State, stepPrep, agentcore.ExecutionResult](
		NewStepNode(StepNodeConfig{
			Registry:             e.cfg.Registry,
			Executor:             executor,
			Cache:                execCache,
			Provider:             e.cfg.Provider,
			Prices:               e.cfg.Prices,
			Enforcer:             enforcer,
			Memory:               e.cfg.Memory,
			Producer:             producer,
			MaxConsecutiveErrors: e.cfg.MaxConsecutiveErrors,
			CheckpointInterval:   e.cfg.CheckpointInterval,
			WorkspacePath:        workspacePath,
			Telemetry:            e.cfg.Telemetry,
			ReasoningTemperature: e.cfg.ReasoningTemperature,
		}), 0,
	)
	replanNode := core.NewNode[State, replanPrep, replanOutcome](
		NewReplanNode(e.cfg.Replanner, e.cfg.Memory, e.cfg.Prices, enforcer, producer), 1,
	)

	planNode.AddSuccessor(stepNode, core.ActionAct)
	stepNode.AddSuccessor(stepNode, core.ActionAct)
	stepNode.AddSuccessor(replanNode, core.ActionReplan)
	replanNode.AddSuccessor(stepNode, core.ActionAct)

	return core.NewFlow[State](planNode)
}

func (e *Engine) buildMetrics(state *State, enforcer *budget.Enforcer) persistence.Metrics {
	snap := enforcer.Snapshot()
	reason := state.FailReason
	if reason == "" {
		reason = state.StopReason
	}
	return persistence.Metrics{
		AgentID:        state.Agent.AgentID,
		FinalPhase:     string(state.Agent.Phase),
		Reason:         reason,
		Iteration:      state.Agent.Iteration,
		TotalCost:      state.Agent.TotalCost,
		CostByKind:     enforcer.CostByKind(),
		TotalToolCalls: state.Agent.TotalToolCalls,
		ElapsedSeconds: snap.Elapsed.Seconds(),
	}
}
