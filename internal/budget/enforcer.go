// Package budget enforces the resource ceilings carried on an
// agentcore.Limits: iteration count, accumulated cost, tool call count,
// wall-clock duration, and cache size. It generalizes the single-agent
// CostGuard (token count + duration) into every dimension the runtime needs
// to police across a full PLAN/ACT/OBSERVE/REFLECT loop.
package budget

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pocketomega/agentrt/agentcore"
)

// CostKind tags a recorded cost by the subsystem that produced it, so
// CostByKind can report spend broken down by source.
type CostKind string

const (
	CostKindPlanning  CostKind = "planning"
	CostKindReasoning CostKind = "reasoning"
	CostKindTool      CostKind = "tool"
)

// Reason identifies which dimension caused a run to stop.
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonIterations   Reason = "max_iterations"
	ReasonCost         Reason = "max_cost"
	ReasonToolCalls    Reason = "max_tool_calls"
	ReasonTime         Reason = "max_time_seconds"
	ReasonCacheSize    Reason = "max_cache_size"
)

// WarnThreshold is the fraction of a limit at which Enforcer starts
// reporting Warnings in its Snapshot.
const WarnThreshold = 0.9

// Enforcer tracks consumption against an agentcore.Limits and reports
// whether a run must stop. Cost and tool-call counters are updated from the
// engine's single control-loop goroutine; Elapsed and Snapshot
// may safely be called concurrently (e.g. from a stream producer) because
// they only read atomics and monotonic clocks.
type Enforcer struct {
	limits    agentcore.Limits
	startTime time.Time

	iterations atomic.Int64
	toolCalls  atomic.Int64
	cacheSize  atomic.Int64
	costMicros atomic.Int64 // cost tracked as micro-units to keep the hot path atomic, integer-only

	kindMu     sync.Mutex
	costByKind map[CostKind]float64
}

// NewEnforcer creates an Enforcer that begins its wall-clock window now.
func NewEnforcer(limits agentcore.Limits) *Enforcer {
	return &Enforcer{
		limits:     limits,
		startTime:  time.Now(),
		costByKind: make(map[CostKind]float64),
	}
}

// RecordIteration counts one PLAN/ACT/OBSERVE/REFLECT cycle.
func (e *Enforcer) RecordIteration() { e.iterations.Add(1) }

// RecordToolCall counts one dispatched tool invocation.
func (e *Enforcer) RecordToolCall() { e.toolCalls.Add(1) }

// RecordCost adds cost (in the provider's native unit, e.g. USD) to the
// running total, tagged by kind so CostByKind can report it broken down by
// source.
func (e *Enforcer) RecordCost(kind CostKind, cost float64) {
	if cost <= 0 {
		return
	}
	e.costMicros.Add(int64(cost * 1e6))
	e.kindMu.Lock()
	e.costByKind[kind] += cost
	e.kindMu.Unlock()
}

// CostByKind returns a copy of the cost accumulated so far, broken down by
// the CostKind it was recorded under.
func (e *Enforcer) CostByKind() map[string]float64 {
	e.kindMu.Lock()
	defer e.kindMu.Unlock()
	out := make(map[string]float64, len(e.costByKind))
	for k, v := range e.costByKind {
		out[string(k)] = v
	}
	return out
}

// SetCacheSize reports the Execution Cache's current entry count, which the
// cache itself owns and reports in rather than the Enforcer estimating.
func (e *Enforcer) SetCacheSize(n int) { e.cacheSize.Store(int64(n)) }

// Iterations returns the number of iterations recorded so far.
func (e *Enforcer) Iterations() int { return int(e.iterations.Load()) }

// ToolCalls returns the number of tool calls recorded so far.
func (e *Enforcer) ToolCalls() int { return int(e.toolCalls.Load()) }

// Cost returns the accumulated cost so far.
func (e *Enforcer) Cost() float64 { return float64(e.costMicros.Load()) / 1e6 }

// Elapsed returns the wall-clock duration since the Enforcer was created.
func (e *Enforcer) Elapsed() time.Duration { return time.Since(e.startTime) }

// ShouldStop reports whether any limit has been breached, and if so which
// one tripped first in the fixed precedence order: iterations, cost, tool
// calls, time, cache size. A limit <= 0 means unlimited and is never
// checked, so a zero-value Limits never trips ShouldStop.
func (e *Enforcer) ShouldStop() (bool, Reason, error) {
	l := e.limits

	if l.MaxIterations > 0 && e.Iterations() >= l.MaxIterations {
		return true, ReasonIterations, fmt.Errorf("iteration budget exceeded: %d / %d", e.Iterations(), l.MaxIterations)
	}
	if l.MaxCost > 0 && e.Cost() >= l.MaxCost {
		return true, ReasonCost, fmt.Errorf("cost budget exceeded: %.4f / %.4f", e.Cost(), l.MaxCost)
	}
	if l.MaxToolCalls > 0 && e.ToolCalls() >= l.MaxToolCalls {
		return true, ReasonToolCalls, fmt.Errorf("tool call budget exceeded: %d / %d", e.ToolCalls(), l.MaxToolCalls)
	}
	if l.MaxTimeSeconds > 0 {
		limit := time.Duration(l.MaxTimeSeconds) * time.Second
		if elapsed := e.Elapsed(); elapsed >= limit {
			return true, ReasonTime, fmt.Errorf("time budget exceeded: %v / %v", elapsed.Round(time.Second), limit)
		}
	}
	if l.MaxCacheSize > 0 && int(e.cacheSize.Load()) >= l.MaxCacheSize {
		return true, ReasonCacheSize, fmt.Errorf("cache size budget exceeded: %d / %d", e.cacheSize.Load(), l.MaxCacheSize)
	}
	return false, ReasonNone, nil
}

// Usage is a point-in-time snapshot of consumption against limits, expressed
// both as raw counts and as a percentage of each configured limit. A
// dimension with no configured limit reports Percent 0 rather than dividing
// by zero.
type Usage struct {
	Iterations        int
	IterationsPercent float64
	Cost              float64
	CostPercent       float64
	ToolCalls         int
	ToolCallsPercent  float64
	Elapsed           time.Duration
	ElapsedPercent    float64
	CacheSize         int
	CacheSizePercent  float64
}

// safePercent returns 100*used/limit, or 0 if limit is <= 0 (unlimited).
func safePercent(used, limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	return 100 * used / limit
}

// Snapshot returns the current Usage against the configured Limits.
func (e *Enforcer) Snapshot() Usage {
	l := e.limits
	elapsed := e.Elapsed()

	return Usage{
		Iterations:        e.Iterations(),
		IterationsPercent: safePercent(float64(e.Iterations()), float64(l.MaxIterations)),
		Cost:              e.Cost(),
		CostPercent:       safePercent(e.Cost(), l.MaxCost),
		ToolCalls:         e.ToolCalls(),
		ToolCallsPercent:  safePercent(float64(e.ToolCalls()), float64(l.MaxToolCalls)),
		Elapsed:           elapsed,
		ElapsedPercent:    safePercent(elapsed.Seconds(), float64(l.MaxTimeSeconds)),
		CacheSize:         int(e.cacheSize.Load()),
		CacheSizePercent:  safePercent(float64(e.cacheSize.Load()), float64(l.MaxCacheSize)),
	}
}

// Warnings returns a human-readable warning for every dimension at or above
// WarnThreshold of its limit, in the same precedence order as ShouldStop.
func (u Usage) Warnings() []string {
	var warnings []string
	if u.IterationsPercent >= WarnThreshold*100 {
		warnings = append(warnings, fmt.Sprintf("iterations at %.0f%% of limit", u.IterationsPercent))
	}
	if u.CostPercent >= WarnThreshold*100 {
		warnings = append(warnings, fmt.Sprintf("cost at %.0f%% of limit", u.CostPercent))
	}
	if u.ToolCallsPercent >= WarnThreshold*100 {
		warnings = append(warnings, fmt.Sprintf("tool calls at %.0f%% of limit", u.ToolCallsPercent))
	}
	if u.ElapsedPercent >= WarnThreshold*100 {
		warnings = append(warnings, fmt.Sprintf("elapsed time at %.0f%% of limit", u.ElapsedPercent))
	}
	if u.CacheSizePercent >= WarnThreshold*100 {
		warnings = append(warnings, fmt.Sprintf("cache size at %.0f%% of limit", u.CacheSizePercent))
	}
	return warnings
}
