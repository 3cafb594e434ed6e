package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/pocketomega/agentrt/agentcore"
	"github.com/pocketomega/agentrt/internal/engine"
)

// coordinatorGoal is the fixed goal the spec assigns a Hierarchical run's
// coordinator agent.
const coordinatorGoal = "coordinate these subtasks"

// HierarchicalResult is the aggregated outcome of one hierarchical run: the
// coordinator's final (post-aggregation) result, every delegated child's
// result in subtask order, and a count of how many of those children
// completed successfully.
type HierarchicalResult struct {
	SuccessCount    int
	DelegatedAgents []engine.Result
	Coordinator     engine.Result
}

// RunHierarchical runs a coordinator agent, delegates one child agent per
// subtask (seeded with a value copy of the coordinator's observations so no
// child ever holds a live reference back to the coordinator's state), then
// has the coordinator run an aggregation task seeded with every child's
// final observation once they have all finished.
func (o *Orchestrator) RunHierarchical(ctx context.Context, subtasks []string, opts RunOptions) (HierarchicalResult, error) {
	coordH, err := o.newAgentWorkspace()
	if err != nil {
		return HierarchicalResult{}, fmt.Errorf("orchestrator: hierarchical coordinator workspace: %w", err)
	}

	coordRes, err := o.cfg.Engine.Run(ctx, o.runOpts(coordH, agentcore.NewTask(coordinatorGoal), opts, nil))
	o.finish(coordH, coordRes)
	if err != nil {
		return HierarchicalResult{Coordinator: coordRes}, fmt.Errorf("orchestrator: coordinator run: %w", err)
	}

	snapshot := copyObservations(coordRes.State.Observations())
	childResults, err := o.runChildren(ctx, subtasks, opts, snapshot)
	if err != nil {
		return HierarchicalResult{
			SuccessCount:    countSuccessful(childResults),
			DelegatedAgents: childResults,
			Coordinator:     coordRes,
		}, err
	}

	aggSeed := make([]agentcore.Observation, 0, len(childResults))
	for _, cr := range childResults {
		aggSeed = append(aggSeed, finalObservationSeed(cr)...)
	}

	finalRes, err := o.cfg.Engine.Run(ctx, o.runOpts(coordH, agentcore.NewTask("aggregate results from subtasks"), opts, aggSeed))
	o.finish(coordH, finalRes)
	return HierarchicalResult{
		SuccessCount:    countSuccessful(childResults),
		DelegatedAgents: childResults,
		Coordinator:     finalRes,
	}, err
}

// countSuccessful reports how many results reached the completed phase.
func countSuccessful(results []engine.Result) int {
	n := 0
	for _, r := range results {
		if r.State != nil && r.State.Phase == agentcore.PhaseCompleted {
			n++
		}
	}
	return n
}

// runChildren launches one agent per subtask concurrently, each seeded with
// the same observation snapshot, mirroring RunParallel's concurrency shape
// but with a shared seed instead of an empty one.
func (o *Orchestrator) runChildren(ctx context.Context, subtasks []string, opts RunOptions, seed []agentcore.Observation) ([]engine.Result, error) {
	results := make([]engine.Result, len(subtasks))
	errs := make([]error, len(subtasks))

	var wg sync.WaitGroup
	for i, subtask := range subtasks {
		h, err := o.newAgentWorkspace()
		if err != nil {
			errs[i] = err
			continue
		}
		wg.Add(1)
		i, subtask, h := i, subtask, h
		safeGo("hierarchical-child", func() {
			defer wg.Done()
			res, err := o.cfg.Engine.Run(ctx, o.runOpts(h, agentcore.NewTask(subtask), opts, copyObservations(seed)))
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

func copyObservations(obs []agentcore.Observation) []agentcore.Observation {
	if len(obs) == 0 {
		return nil
	}
	out := make([]agentcore.Observation, len(obs))
	copy(out, obs)
	return out
}
