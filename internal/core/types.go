package core

// Action represents the result of a node execution that determines flow control.
type Action string

// Common actions used throughout the graph engine, independent of any
// particular domain wired on top of it.
const (
	ActionContinue Action = "continue"
	ActionEnd      Action = "end"
	ActionSuccess  Action = "success"
	ActionFailure  Action = "failure"
	ActionDefault  Action = "default"

	// Agent engine routing actions — one per PLAN/ACT/OBSERVE/REFLECT phase
	// transition. The engine's Flow wires these as successor edges between
	// phase nodes; see internal/engine.
	ActionPlan     Action = "plan"
	ActionAct      Action = "act"
	ActionObserve  Action = "observe"
	ActionReplan   Action = "replan"
	ActionComplete Action = "complete"
	ActionStopped  Action = "stopped"
)
