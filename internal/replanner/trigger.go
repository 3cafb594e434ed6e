package replanner

import "github.com/pocketomega/agentrt/agentcore"

const (
	observationFailureWindow = 3
	observationFailureCount  = 2
	earlyIterationThreshold  = 10
	earlyStepThreshold       = 3
	limitWarnPercent         = 80.0
)

// TriggerReason names which trigger condition fired.
type TriggerReason string

const (
	TriggerNone             TriggerReason = ""
	TriggerConsecutiveError TriggerReason = "consecutive_errors"
	TriggerObservationFail  TriggerReason = "observation_failures"
	TriggerEarlyStall       TriggerReason = "early_stall"
	TriggerLimitApproaching TriggerReason = "limit_approaching"
)

// LimitUsage reports how close a run is to each budget dimension, as a
// percentage in [0, 100]; a dimension with no configured limit reports 0.
type LimitUsage struct {
	IterationsPercent float64
	CostPercent       float64
	ToolCallsPercent  float64
	ElapsedPercent    float64
	CacheSizePercent  float64
}

func (u LimitUsage) any80() bool {
	return u.IterationsPercent >= limitWarnPercent ||
		u.CostPercent >= limitWarnPercent ||
		u.ToolCallsPercent >= limitWarnPercent ||
		u.ElapsedPercent >= limitWarnPercent ||
		u.CacheSizePercent >= limitWarnPercent
}

// ShouldTrigger evaluates the four trigger conditions in order and returns
// the first that fires. consecErrors and iteration/currentStep come from the
// engine's AgentState; recentObservations should be at most the last
// observationFailureWindow entries in chronological order.
func ShouldTrigger(consecErrors, maxConsecErrors int, recentObservations []agentcore.Observation, iteration, currentStep int, usage LimitUsage) (bool, TriggerReason) {
	if maxConsecErrors > 0 && consecErrors >= maxConsecErrors {
		return true, TriggerConsecutiveError
	}

	tail := recentObservations
	if len(tail) > observationFailureWindow {
		tail = tail[len(tail)-observationFailureWindow:]
	}
	failures := 0
	for _, o := range tail {
		if !o.Success {
			failures++
		}
	}
	if failures >= observationFailureCount {
		return true, TriggerObservationFail
	}

	if iteration > earlyIterationThreshold && currentStep < earlyStepThreshold {
		return true, TriggerEarlyStall
	}

	if usage.any80() {
		return true, TriggerLimitApproaching
	}

	return false, TriggerNone
}
