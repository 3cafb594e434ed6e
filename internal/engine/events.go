package engine

import (
	"github.com/pocketomega/agentrt/internal/stream"
)

// emit is a nil-safe convenience wrapper so nodes never need to guard a
// missing producer (e.g. in tests that don't wire one).
func emit(producer *stream.Producer, state *State, typ stream.Type, data map[string]any) {
	if producer == nil {
		return
	}
	producer.Emit(stream.New(typ, state.Agent.AgentID, string(state.Agent.Phase), state.Agent.Iteration, data))
}
