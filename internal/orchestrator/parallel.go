package orchestrator

import (
	"context"
	"sync"

	"github.com/pocketomega/agentrt/agentcore"
	"github.com/pocketomega/agentrt/internal/engine"
	"github.com/pocketomega/agentrt/internal/stream"
)

// RunOptions carries the per-run knobs applied uniformly to every agent a
// strategy call launches.
type RunOptions struct {
	Limits        agentcore.Limits
	Autonomous    bool
	BiteSized     bool
	Producer      *stream.Producer // shared across every agent in the batch; nil disables streaming
	ExportMetrics bool
}

func (o *Orchestrator) runOpts(h *AgentHandle, task agentcore.Task, opts RunOptions, seed []agentcore.Observation) engine.RunOptions {
	return engine.RunOptions{
		Task:             task,
		WorkspacePath:    h.WorkspacePath,
		Limits:           opts.Limits,
		Autonomous:       opts.Autonomous,
		BiteSized:        opts.BiteSized,
		Producer:         opts.Producer,
		ExportMetrics:    opts.ExportMetrics,
		SeedObservations: seed,
	}
}

// RunParallel starts one agent per goal concurrently, each under its own
// workspace and with independent resource limits; there is no cross-agent
// sharing during the run. Results are returned in the same order as goals
// once every agent has reached a terminal phase.
func (o *Orchestrator) RunParallel(ctx context.Context, goals []string, opts RunOptions) ([]engine.Result, error) {
	results := make([]engine.Result, len(goals))
	errs := make([]error, len(goals))

	var wg sync.WaitGroup
	for i, goal := range goals {
		h, err := o.newAgentWorkspace()
		if err != nil {
			errs[i] = err
			continue
		}
		wg.Add(1)
		i, goal, h := i, goal, h
		safeGo("parallel-agent", func() {
			defer wg.Done()
			res, err := o.cfg.Engine.Run(ctx, o.runOpts(h, agentcore.NewTask(goal), opts, nil))
			o.finish(h, res)
			results[i] = res
			errs[i] = err
		})
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}
	return results, nil
}
