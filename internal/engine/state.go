// Package engine implements the Agent Engine state machine: it owns an
// agentcore.AgentState, drives it through PLAN -> ACT -> OBSERVE -> REFLECT,
// and emits Update Stream events at every transition. The phase graph is
// built on the generic internal/core Node/Flow substrate, generalizing the
// teacher's single ReAct decision loop into the spec's five-phase machine.
package engine

import "github.com/pocketomega/agentrt/agentcore"

// State is the shared value threaded through every node in the engine's
// Flow. It wraps the AgentState the caller owns plus the per-run knobs that
// do not belong on AgentState itself.
type State struct {
	Agent      *agentcore.AgentState
	Context    agentcore.Context
	Autonomous bool
	BiteSized  bool

	// StopReason/FailReason carry a human-readable explanation set by
	// whichever node transitions the run to stopped/failed, for the final
	// user-visible failure report.
	StopReason string
	FailReason string
}
