package engine

import (
	"context"

	"github.com/pocketomega/agentrt/agentcore"
	"github.com/pocketomega/agentrt/internal/budget"
	"github.com/pocketomega/agentrt/internal/core"
	"github.com/pocketomega/agentrt/internal/llm"
	"github.com/pocketomega/agentrt/internal/memory"
	"github.com/pocketomega/agentrt/internal/replanner"
	"github.com/pocketomega/agentrt/internal/stream"
)

type replanPrep struct {
	req replanner.Request
}

// replanOutcome carries the replanning call's Outcome alongside the
// llm.Usage it consumed, so Post can price and record the cost.
type replanOutcome struct {
	outcome replanner.Outcome
	usage   llm.Usage
}

// ReplanNode wraps the Replanner and applies its outcome to the AgentState,
// including archiving observations the replan's "adjust" path trims from
// the working set to long-term memory.
type ReplanNode struct {
	replanner *replanner.Replanner
	memory    *memory.Store
	prices    llm.PriceTable
	enforcer  *budget.Enforcer
	producer  *stream.Producer
}

// NewReplanNode creates a ReplanNode backed by r, pricing each replanning
// call with prices and recording it against enforcer.
func NewReplanNode(r *replanner.Replanner, mem *memory.Store, prices llm.PriceTable, enforcer *budget.Enforcer, producer *stream.Producer) *ReplanNode {
	return &ReplanNode{replanner: r, memory: mem, prices: prices, enforcer: enforcer, producer: producer}
}

func (n *ReplanNode) Prep(state *State) []replanPrep {
	stats := replanner.Stats{
		Iteration:      state.Agent.Iteration,
		TotalCost:      state.Agent.TotalCost,
		TotalToolCalls: state.Agent.TotalToolCalls,
		ConsecErrors:   state.Agent.ConsecErrors,
	}
	return []replanPrep{{req: replanner.Request{
		Plan:               state.Agent.Plan,
		RecentObservations: state.Agent.Observations(),
		Stats:              stats,
		Autonomous:         state.Autonomous,
	}}}
}

func (n *ReplanNode) Exec(ctx context.Context, prep replanPrep) (replanOutcome, error) {
	outcome, usage := n.replanner.Replan(ctx, prep.req)
	return replanOutcome{outcome: outcome, usage: usage}, nil
}

func (n *ReplanNode) ExecFallback(err error) replanOutcome {
	return replanOutcome{outcome: replanner.Outcome{Decision: replanner.DecisionContinue}}
}

func (n *ReplanNode) Post(state *State, prep []replanPrep, results ...replanOutcome) core.Action {
	if len(results) == 0 {
		state.Agent.Phase = agentcore.PhaseExecuting
		return core.ActionAct
	}
	cost := n.prices.Cost(results[0].usage)
	state.Agent.TotalCost += cost
	if n.enforcer != nil {
		n.enforcer.RecordCost(budget.CostKindPlanning, cost)
	}

	outcome := results[0].outcome
	if outcome.Plan != nil {
		state.Agent.Plan = outcome.Plan
	}

	if archived := state.Agent.TrimObservations(); len(archived) > 0 && n.memory != nil {
		n.memory.ArchiveBestEffort(context.Background(), memory.Record{
			TaskID:       state.Agent.Task.ID,
			Goal:         state.Agent.Task.Goal,
			Success:      false,
			Summary:      memory.SummarizeObservations(archived),
			Observations: archived,
			CreatedAt:    state.Agent.Task.CreatedAt,
		})
	}

	emit(n.producer, state, stream.TypePlanUpdated, map[string]any{"decision": string(outcome.Decision)})

	switch outcome.Decision {
	case replanner.DecisionComplete:
		state.Agent.Phase = agentcore.PhaseCompleted
		if state.Agent.Plan != nil {
			state.Agent.Plan.Status = agentcore.PlanCompleted
		}
		emit(n.producer, state, stream.TypeCompleted, nil)
		return core.ActionComplete
	case replanner.DecisionFail:
		state.Agent.Phase = agentcore.PhaseFailed
		if state.Agent.Plan != nil {
			state.Agent.Plan.Status = agentcore.PlanFailed
		}
		state.FailReason = "replanner decided to fail the run"
		emit(n.producer, state, stream.TypeFailed, map[string]any{"reason": state.FailReason})
		return core.ActionFailure
	default: // continue, adjust, ask_for_help all resume execution
		state.Agent.Phase = agentcore.PhaseExecuting
		if outcome.Decision == replanner.DecisionAskForHelp && state.Autonomous {
			emit(n.producer, state, stream.TypeClarificationInferred, nil)
		}
		return core.ActionAct
	}
}
