// Package agentcore defines the data model shared by every component of the
// agent runtime: tasks, plans, steps, execution results, observations, and
// the agent's own state. Nothing in this package talks to an LLM, a tool, or
// the filesystem — it is the vocabulary the rest of the runtime shares.
package agentcore

import (
	"time"

	"github.com/google/uuid"
)

// Task is an immutable unit of work submitted to an agent.
type Task struct {
	ID        string
	Goal      string
	CreatedAt time.Time
}

// NewTask creates a Task with a fresh ID and the current creation timestamp.
func NewTask(goal string) Task {
	return Task{
		ID:        uuid.NewString(),
		Goal:      goal,
		CreatedAt: time.Now(),
	}
}

// Limits holds the per-run resource ceilings enforced by the Budget Enforcer.
// A value <= 0 means "unlimited" for that dimension; every consumer of Limits
// must treat that convention as safe (no division by zero, should_stop never
// true because of it).
type Limits struct {
	MaxIterations  int
	MaxCost        float64
	MaxToolCalls   int
	MaxTimeSeconds int
	MaxCacheSize   int
	ToolCacheTTL   time.Duration
}

// Context carries the per-run configuration an Agent Engine executes under.
type Context struct {
	WorkspacePath string
	Limits        Limits
}

// ActionType enumerates the three kinds of work a PlanStep can represent.
type ActionType string

const (
	ActionTypeToolCall      ActionType = "tool_call"
	ActionTypeReasoning     ActionType = "reasoning"
	ActionTypeClarification ActionType = "clarification"
)

// StepStatus enumerates the monotonic lifecycle of a PlanStep.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

// advanceable reports whether a step may move from StepStatus `from` to `to`
// under the spec's monotonic-advance invariant: pending -> running ->
// {completed, failed, skipped}.
func advanceable(from, to StepStatus) bool {
	switch from {
	case StepPending:
		return to == StepRunning || to == StepPending
	case StepRunning:
		return to == StepCompleted || to == StepFailed || to == StepSkipped || to == StepRunning
	default:
		return to == from // terminal states do not advance further
	}
}

// StepMetadata carries planning-time hints that do not affect routing but do
// inform the Replanner and the engine's reflection phase.
type StepMetadata struct {
	SuccessCriteria string
	FailurePolicy   string
	TimeEstimate    time.Duration
	Extra           map[string]any
}

// PlanStep is a single executable unit within a Plan.
type PlanStep struct {
	ID              string
	Description     string
	ActionType      ActionType
	ToolName        string
	Arguments       map[string]any
	ExpectedOutcome string
	Dependencies    []string
	EstimatedCost   float64
	Metadata        StepMetadata
	Status          StepStatus
	Result          *ExecutionResult
}

// Advance transitions the step to `to`, returning false (status unchanged)
// if the transition violates the monotonic-advance invariant.
func (s *PlanStep) Advance(to StepStatus) bool {
	if !advanceable(s.Status, to) {
		return false
	}
	s.Status = to
	return true
}

// Strategy tags the planning prompt family used to produce a Plan.
type Strategy string

const (
	StrategyStepByStep  Strategy = "step_by_step"
	StrategyExploratory Strategy = "exploratory"
	StrategyDebugging   Strategy = "debugging"
	StrategyResearch    Strategy = "research"
	StrategyOptimize    Strategy = "optimization"
	StrategyBiteSized   Strategy = "bite_sized"
	StrategyFallback    Strategy = "fallback"
)

// PlanStatus enumerates the lifecycle of a Plan as a whole.
type PlanStatus string

const (
	PlanPlanning  PlanStatus = "planning"
	PlanExecuting PlanStatus = "executing"
	PlanCompleted PlanStatus = "completed"
	PlanFailed    PlanStatus = "failed"
)

// Plan is an ordered sequence of Steps with a cursor into the current one.
type Plan struct {
	Goal        string
	Steps       []PlanStep
	CurrentStep int
	Status      PlanStatus
	Strategy    Strategy
	Metadata    map[string]any
}

// IsComplete reports whether the plan has been fully walked or has been
// marked complete out of band (e.g. by the Replanner).
func (p *Plan) IsComplete() bool {
	return p.CurrentStep == len(p.Steps) || p.Status == PlanCompleted
}

// CurrentPlanStep returns a pointer to the step at CurrentStep, or nil if the
// plan is already complete.
func (p *Plan) CurrentPlanStep() *PlanStep {
	if p.CurrentStep < 0 || p.CurrentStep >= len(p.Steps) {
		return nil
	}
	return &p.Steps[p.CurrentStep]
}

// ReplaceTail replaces steps at index >= fromIndex with newSteps, preserving
// every step before fromIndex untouched. This is the only mutation a replan
// is allowed to perform on Plan.Steps.
func (p *Plan) ReplaceTail(fromIndex int, newSteps []PlanStep) {
	if fromIndex < 0 {
		fromIndex = 0
	}
	if fromIndex > len(p.Steps) {
		fromIndex = len(p.Steps)
	}
	p.Steps = append(p.Steps[:fromIndex:fromIndex], newSteps...)
}

// ExecutionResult is the outcome of dispatching a single PlanStep, whether
// that dispatch went to a tool, to the LLM for reasoning, or was answered
// from the Execution Cache.
type ExecutionResult struct {
	Success     bool
	Output      string
	Error       string
	ToolUsed    string
	Cost        float64
	Cached      bool
	NeedsReplan bool
	Metadata    map[string]any
}

// Observation is an immutable textual record of a step's outcome, derived
// from its ExecutionResult and the originating PlanStep.
type Observation struct {
	StepID    string
	Text      string
	Success   bool
	CreatedAt time.Time
}

// NewObservation derives an Observation from a completed step and its result.
func NewObservation(step PlanStep, result ExecutionResult) Observation {
	text := result.Output
	if !result.Success {
		text = "error: " + result.Error
	}
	return Observation{
		StepID:    step.ID,
		Text:      text,
		Success:   result.Success,
		CreatedAt: time.Now(),
	}
}

// Capability is a declared property of a tool that governs cache eligibility
// and security checks.
type Capability string

const (
	CapabilityReadOnly    Capability = "read_only"
	CapabilityWritable    Capability = "writable"
	CapabilityDestructive Capability = "destructive"
	CapabilityNetwork     Capability = "network"
	CapabilityExpensive   Capability = "expensive"
	CapabilityFast        Capability = "fast"
	CapabilityBatchable   Capability = "batchable"
	CapabilityStreaming   Capability = "streaming"
)

// HasCapability reports whether caps contains c.
func HasCapability(caps []Capability, c Capability) bool {
	for _, have := range caps {
		if have == c {
			return true
		}
	}
	return false
}

// CacheEligible reports whether a tool with the given capabilities may have
// its results cached at all: only read_only tools (and, separately,
// reasoning output) are eligible. Writable/destructive tools always bypass
// the cache, regardless of any other capability they also declare.
func CacheEligible(caps []Capability) bool {
	if HasCapability(caps, CapabilityWritable) || HasCapability(caps, CapabilityDestructive) {
		return false
	}
	return HasCapability(caps, CapabilityReadOnly)
}

// ParameterSchema describes one property of a ToolMetadata.Parameters schema.
type ParameterSchema struct {
	Type        string // "string", "integer", "number", "boolean", "array", "object"
	Description string
}

// ToolMetadata describes a registered tool for planning, validation, and
// prompt-construction purposes.
type ToolMetadata struct {
	Name         string
	Description  string
	Category     string
	Properties   map[string]ParameterSchema
	Required     []string
	Capabilities []Capability
	Version      string
}

// AgentPhase enumerates the states of the Agent Engine state machine.
type AgentPhase string

const (
	PhaseInitializing AgentPhase = "initializing"
	PhasePlanning     AgentPhase = "planning"
	PhaseExecuting    AgentPhase = "executing"
	PhaseObserving    AgentPhase = "observing"
	PhaseReplanning   AgentPhase = "replanning"
	PhaseCompleted    AgentPhase = "completed"
	PhaseFailed       AgentPhase = "failed"
	PhaseStopped      AgentPhase = "stopped"
)

// AgentState is exclusively owned by its Agent Engine. All mutation happens
// on the engine's single control-loop goroutine; nothing here is safe for
// concurrent access from outside that loop.
type AgentState struct {
	AgentID        string
	Phase          AgentPhase
	Task           Task
	Plan           *Plan
	Iteration      int
	TotalCost      float64
	TotalToolCalls int
	ConsecErrors   int

	observations           []Observation
	observationHistorySize int

	Errors []string
}

// NewAgentState creates an AgentState ready for PLANNING, bounding its
// observation ring buffer at historySize (the spec's observation_history_size).
func NewAgentState(agentID string, task Task, historySize int) *AgentState {
	if historySize <= 0 {
		historySize = 10
	}
	return &AgentState{
		AgentID:                 agentID,
		Phase:                   PhaseInitializing,
		Task:                    task,
		observationHistorySize:  historySize,
		observations:            make([]Observation, 0, historySize),
	}
}

// AppendObservation ring-buffers o onto the working observation set, evicting
// the oldest entry once observationHistorySize is reached.
func (s *AgentState) AppendObservation(o Observation) {
	s.observations = append(s.observations, o)
	if len(s.observations) > s.observationHistorySize {
		overflow := len(s.observations) - s.observationHistorySize
		s.observations = s.observations[overflow:]
	}
}

// Observations returns a copy of the current working observation set.
func (s *AgentState) Observations() []Observation {
	out := make([]Observation, len(s.observations))
	copy(out, s.observations)
	return out
}

// TrimObservations clears the working set down to at most historySize items,
// returning the discarded (oldest) entries so a caller can archive them to
// long-term memory before they are dropped. Used by the Replanner's "adjust"
// path per the observation-bound invariant.
func (s *AgentState) TrimObservations() []Observation {
	if len(s.observations) <= s.observationHistorySize {
		return nil
	}
	overflow := len(s.observations) - s.observationHistorySize
	archived := make([]Observation, overflow)
	copy(archived, s.observations[:overflow])
	s.observations = s.observations[overflow:]
	return archived
}

// CacheEntry is a single memoized value keyed by a canonical Fingerprint.
type CacheEntry struct {
	Value              ExecutionResult
	Timestamp          time.Time
	ContextFingerprint string
}
