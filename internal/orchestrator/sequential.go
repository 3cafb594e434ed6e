package orchestrator

import (
	"context"
	"fmt"

	"github.com/pocketomega/agentrt/agentcore"
	"github.com/pocketomega/agentrt/internal/engine"
)

// RunSequential runs one agent per goal, one at a time, injecting the final
// observation of agent i as a seed observation into agent i+1 before it
// starts. A failed or cancelled agent's result is still returned; the chain
// continues handing its (partial) final observation forward, matching the
// spec's "surfaced as data, never unwinds" propagation policy.
func (o *Orchestrator) RunSequential(ctx context.Context, goals []string, opts RunOptions) ([]engine.Result, error) {
	results := make([]engine.Result, 0, len(goals))
	var seed []agentcore.Observation

	for i, goal := range goals {
		h, err := o.newAgentWorkspace()
		if err != nil {
			return results, fmt.Errorf("orchestrator: sequential step %d: %w", i, err)
		}
		res, err := o.cfg.Engine.Run(ctx, o.runOpts(h, agentcore.NewTask(goal), opts, seed))
		o.finish(h, res)
		if err != nil {
			return append(results, res), err
		}
		results = append(results, res)
		seed = finalObservationSeed(res)
	}
	return results, nil
}

// finalObservationSeed extracts the last observation an agent recorded so it
// can be handed to the next agent in the chain as a system-provenance seed,
// matching the spec's "injected as a system message" handoff without
// inventing a message role this runtime's Observation type doesn't carry.
func finalObservationSeed(res engine.Result) []agentcore.Observation {
	obs := res.State.Observations()
	if len(obs) == 0 {
		return nil
	}
	last := obs[len(obs)-1]
	return []agentcore.Observation{{
		StepID:    "handoff:" + res.State.AgentID,
		Text:      fmt.Sprintf("previous agent update: %s", last.Text),
		Success:   last.Success,
		CreatedAt: last.CreatedAt,
	}}
}
