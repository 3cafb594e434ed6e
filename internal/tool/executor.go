package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/pocketomega/agentrt/agentcore"
)

// defaultTimeout bounds a tool's Execute call when the tool declares no
// expensive/streaming capability hinting at a longer one.
const defaultTimeout = 30 * time.Second

// expensiveTimeout is used for tools declaring the expensive capability,
// which the spec associates with longer-running operations (e.g. network
// calls, code execution).
const expensiveTimeout = 2 * time.Minute

// Executor dispatches a single PlanStep to its tool: it runs the validation
// pipeline, enforces an execution timeout, records statistics on the
// Registry, and shapes the result with execution_id/execution_time metadata.
type Executor struct {
	registry *Registry
	limiter  *rate.Limiter // nil means unlimited; only network-capability tools pay the wait
}

// NewExecutor creates an Executor dispatching through registry, with no
// rate limit on network-capability tools.
func NewExecutor(registry *Registry) *Executor {
	return &Executor{registry: registry}
}

// WithNetworkRateLimit bounds how often network-capability tools may
// dispatch, at r calls per second with burst capacity burst. It returns e
// for chaining. A nil or zero-valued limiter leaves network tools unbounded,
// same as NewExecutor.
func (e *Executor) WithNetworkRateLimit(r float64, burst int) *Executor {
	if r <= 0 {
		return e
	}
	e.limiter = rate.NewLimiter(rate.Limit(r), burst)
	return e
}

func timeoutFor(meta agentcore.ToolMetadata) time.Duration {
	if agentcore.HasCapability(meta.Capabilities, agentcore.CapabilityExpensive) {
		return expensiveTimeout
	}
	return defaultTimeout
}

// Execute runs the four-stage validation pipeline and, if it passes,
// dispatches to the tool under a timeout. Validation failures and timeouts
// are both returned as a failed ExecutionResult rather than an error — per
// the spec, validation never raises, it returns a result — but a genuinely
// unexpected Go error from the tool (e.g. a context it didn't handle) is
// still propagated as an error.
func (e *Executor) Execute(ctx context.Context, step agentcore.PlanStep, wsCtx agentcore.Context) (agentcore.ExecutionResult, error) {
	t, ok := e.registry.Get(step.ToolName)
	if !ok {
		return agentcore.ExecutionResult{}, fmt.Errorf("%w: %q", ErrNotFound, step.ToolName)
	}

	executionID := uuid.NewString()
	start := time.Now()

	validation := runValidationPipeline(ctx, t, step.Arguments, wsCtx)
	if !validation.Valid {
		result := agentcore.ExecutionResult{
			Success: false,
			Error:   fmt.Sprintf("%v: %v", ErrValidationFailed, validation.Errors),
			Metadata: map[string]any{
				"execution_id":      executionID,
				"validation_errors": validation.Errors,
				"warnings":          validation.Warnings,
			},
		}
		e.registry.recordCall(step.ToolName, false, false, time.Since(start))
		return result, nil
	}

	meta := t.Metadata()
	if e.limiter != nil && agentcore.HasCapability(meta.Capabilities, agentcore.CapabilityNetwork) {
		if err := e.limiter.Wait(ctx); err != nil {
			e.registry.recordCall(step.ToolName, false, false, time.Since(start))
			return agentcore.ExecutionResult{Success: false, Error: fmt.Sprintf("rate limit wait: %v", err)}, nil
		}
	}

	timeout := timeoutFor(meta)
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		result agentcore.ExecutionResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := t.Execute(execCtx, step.Arguments, wsCtx)
		done <- outcome{result, err}
	}()

	var result agentcore.ExecutionResult
	var err error
	select {
	case o := <-done:
		result, err = o.result, o.err
	case <-execCtx.Done():
		result = agentcore.ExecutionResult{
			Success: false,
			Error:   fmt.Sprintf("%v after %v", ErrTimeout, timeout),
		}
	}

	elapsed := time.Since(start)
	if result.Metadata == nil {
		result.Metadata = make(map[string]any)
	}
	result.Metadata["execution_id"] = executionID
	result.Metadata["execution_time"] = elapsed.String()
	if len(validation.Warnings) > 0 {
		result.Metadata["warnings"] = validation.Warnings
	}
	result.ToolUsed = step.ToolName

	e.registry.recordCall(step.ToolName, result.Success, false, elapsed)
	return result, err
}

// Rollback invokes the tool's Rollback hook for a prior execution. Neither
// the executor nor the engine calls it automatically.
func (e *Executor) Rollback(ctx context.Context, toolName, executionID string) error {
	t, ok := e.registry.Get(toolName)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, toolName)
	}
	return t.Rollback(ctx, executionID)
}
