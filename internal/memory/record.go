// Package memory implements the long-term task archive: completed (or
// failed) runs are recorded, and future planning requests can pull similar
// past tasks and their successful tool sequences back out. Short-term
// working observations live on agentcore.AgentState itself; this package is
// exclusively the longer-lived, cross-run store.
package memory

import (
	"fmt"
	"strings"
	"time"

	"github.com/pocketomega/agentrt/agentcore"
)

// Record is an archived outcome of one completed or failed task run.
type Record struct {
	TaskID       string
	Goal         string
	Strategy     string
	Success      bool
	Summary      string
	ToolSequence []string
	Observations []agentcore.Observation
	CreatedAt    time.Time
}

// SummarizeObservations renders a slice of observations as a compact text
// block suitable for Record.Summary or for injecting into a prompt.
func SummarizeObservations(observations []agentcore.Observation) string {
	if len(observations) == 0 {
		return ""
	}
	var b strings.Builder
	for _, o := range observations {
		status := "ok"
		if !o.Success {
			status = "failed"
		}
		fmt.Fprintf(&b, "[%s] step %s: %s\n", status, o.StepID, o.Text)
	}
	return b.String()
}

// ToolSequenceFrom extracts the ordered list of tool names a completed plan
// actually dispatched, for Record.ToolSequence.
func ToolSequenceFrom(plan *agentcore.Plan) []string {
	var seq []string
	for _, step := range plan.Steps {
		if step.ActionType == agentcore.ActionTypeToolCall && step.ToolName != "" {
			seq = append(seq, step.ToolName)
		}
	}
	return seq
}
