// Package tool defines the Tool contract, the capability-gated validation
// pipeline, and the Registry/Executor that dispatch PlanSteps to concrete
// tools. It generalizes the teacher's tool.Tool interface (name,
// description, schema, execute/init/close) with the spec's capability set,
// dependency ordering, rollback, and per-tool statistics.
package tool

import (
	"context"

	"github.com/pocketomega/agentrt/agentcore"
)

// Tool is the interface every concrete tool implements, native or adapted
// (e.g. from MCP). Execute receives already-validated arguments — the
// Executor runs the validation pipeline before ever calling Execute.
type Tool interface {
	Metadata() agentcore.ToolMetadata

	// Dependencies names other registered tools that must be initialized
	// before this one. Most tools declare none.
	Dependencies() []string

	// ValidateInput runs tool-specific business-logic and resource checks
	// (pipeline stages 3 and 4). Tools with no special rules return a valid
	// ValidationResult unconditionally — this is the default-no-op the spec
	// calls for.
	ValidateInput(ctx context.Context, args map[string]any, wsCtx agentcore.Context) ValidationResult

	Execute(ctx context.Context, args map[string]any, wsCtx agentcore.Context) (agentcore.ExecutionResult, error)

	// Rollback undoes the effects of a prior Execute identified by
	// executionID, if the tool supports it. Tools without rollback support
	// return ErrRollbackUnsupported.
	Rollback(ctx context.Context, executionID string) error

	Init(ctx context.Context) error
	Close() error
}

// ValidationResult is the outcome of one or more validation pipeline stages.
type ValidationResult struct {
	Valid       bool
	Errors      []string
	Warnings    []string
	Suggestions []string
}

// Merge combines two ValidationResults, accumulating errors/warnings from
// both and remaining valid only if both were valid. Used to fold the four
// pipeline stages into one outcome.
func (v ValidationResult) Merge(other ValidationResult) ValidationResult {
	return ValidationResult{
		Valid:       v.Valid && other.Valid,
		Errors:      append(append([]string{}, v.Errors...), other.Errors...),
		Warnings:    append(append([]string{}, v.Warnings...), other.Warnings...),
		Suggestions: append(append([]string{}, v.Suggestions...), other.Suggestions...),
	}
}

// valid is a convenience constructor for a passing ValidationResult.
func valid() ValidationResult { return ValidationResult{Valid: true} }

// invalid is a convenience constructor for a failing ValidationResult with a
// single error message.
func invalid(msg string) ValidationResult {
	return ValidationResult{Valid: false, Errors: []string{msg}}
}
