package engine

import (
	"context"

	"github.com/pocketomega/agentrt/agentcore"
	"github.com/pocketomega/agentrt/internal/budget"
	"github.com/pocketomega/agentrt/internal/core"
	"github.com/pocketomega/agentrt/internal/llm"
	"github.com/pocketomega/agentrt/internal/planner"
	"github.com/pocketomega/agentrt/internal/stream"
)

// planPrep is the single work item PlanNode ever produces: one planning
// request per run.
type planPrep struct {
	req planner.Request
}

// planOutcome carries the planning call's Plan alongside the llm.Usage it
// consumed, so Post can price and record the cost before installing the
// plan on the AgentState.
type planOutcome struct {
	plan  *agentcore.Plan
	usage llm.Usage
}

// PlanNode drives the initializing -> planning -> executing transition: it
// asks the Planner for a Plan, prices the planning call against Prices, and
// installs the Plan on the AgentState.
type PlanNode struct {
	planner  *planner.Planner
	prices   llm.PriceTable
	enforcer *budget.Enforcer
	producer *stream.Producer
}

// NewPlanNode creates a PlanNode backed by p, pricing each planning call
// with prices and recording it against enforcer, emitting events on
// producer.
func NewPlanNode(p *planner.Planner, prices llm.PriceTable, enforcer *budget.Enforcer, producer *stream.Producer) *PlanNode {
	return &PlanNode{planner: p, prices: prices, enforcer: enforcer, producer: producer}
}

func (n *PlanNode) Prep(state *State) []planPrep {
	state.Agent.Phase = agentcore.PhasePlanning
	emit(n.producer, state, stream.TypePlanning, nil)
	return []planPrep{{req: planner.Request{
		Goal:       state.Agent.Task.Goal,
		Context:    state.Context,
		Autonomous: state.Autonomous,
		BiteSized:  state.BiteSized,
	}}}
}

func (n *PlanNode) Exec(ctx context.Context, prep planPrep) (planOutcome, error) {
	plan, usage, err := n.planner.Plan(ctx, prep.req)
	return planOutcome{plan: plan, usage: usage}, err
}

// ExecFallback never fires in practice (Planner.Plan always recovers into a
// fallback plan internally rather than returning an error), but a bare nil
// plan here would leave the run unable to proceed, so fabricate a minimal
// plan tagged with the fallback strategy. Unlike the Planner's own fallback
// plan, it has no steps.
func (n *PlanNode) ExecFallback(err error) planOutcome {
	return planOutcome{plan: &agentcore.Plan{
		Status:   agentcore.PlanFailed,
		Strategy: agentcore.StrategyFallback,
	}}
}

func (n *PlanNode) Post(state *State, prep []planPrep, results ...planOutcome) core.Action {
	if len(results) == 0 || results[0].plan == nil {
		state.Agent.Phase = agentcore.PhaseFailed
		state.FailReason = "planning produced no plan"
		emit(n.producer, state, stream.TypeFailed, map[string]any{"reason": state.FailReason})
		return core.ActionFailure
	}

	outcome := results[0]
	cost := n.prices.Cost(outcome.usage)
	state.Agent.TotalCost += cost
	if n.enforcer != nil {
		n.enforcer.RecordCost(budget.CostKindPlanning, cost)
	}

	plan := outcome.plan
	plan.Status = agentcore.PlanExecuting
	state.Agent.Plan = plan
	state.Agent.Phase = agentcore.PhaseExecuting

	emit(n.producer, state, stream.TypePlanCreated, map[string]any{
		"strategy":   string(plan.Strategy),
		"step_count": len(plan.Steps),
		"cost":       cost,
	})
	return core.ActionAct
}
