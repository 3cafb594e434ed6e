// Package stream defines the Update Stream: the typed event sequence an
// Agent Engine run produces, and a bounded, non-blocking producer for
// consumers (CLIs, web dashboards) that must never be allowed to slow the
// engine's own loop down.
package stream

import "time"

// Type identifies the kind of Update Stream event.
type Type string

const (
	TypeInit                  Type = "init"
	TypePlanning              Type = "planning"
	TypePlanCreated           Type = "plan_created"
	TypeStepStart             Type = "step_start"
	TypeStepResult            Type = "step_result"
	TypeStepError             Type = "step_error"
	TypeObservation           Type = "observation"
	TypeWarning               Type = "warning"
	TypeReplanning            Type = "replanning"
	TypePlanUpdated           Type = "plan_updated"
	TypeLimitReached          Type = "limit_reached"
	TypeStopped               Type = "stopped"
	TypeCompleted             Type = "completed"
	TypeFailed                Type = "failed"
	TypeToolCall              Type = "tool_call"
	TypeToolResult            Type = "tool_result"
	TypeMetrics               Type = "metrics"
	TypeCheckpoint            Type = "checkpoint"
	TypeClarificationInferred Type = "clarification_inferred"
)

// Event is one entry in the Update Stream.
type Event struct {
	Type      Type
	Timestamp time.Time
	AgentID   string
	Phase     string
	Iteration int
	Data      map[string]any
}

// New creates an Event stamped with the current time.
func New(typ Type, agentID, phase string, iteration int, data map[string]any) Event {
	return Event{
		Type:      typ,
		Timestamp: time.Now(),
		AgentID:   agentID,
		Phase:     phase,
		Iteration: iteration,
		Data:      data,
	}
}
