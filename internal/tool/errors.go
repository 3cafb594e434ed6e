package tool

import "errors"

var (
	// ErrNotFound is returned when a PlanStep names a tool that is not
	// registered.
	ErrNotFound = errors.New("tool: not registered")

	// ErrRollbackUnsupported is returned by Tool.Rollback implementations
	// that do not support undoing their effects.
	ErrRollbackUnsupported = errors.New("tool: rollback not supported")

	// ErrDependencyCycle is returned by Registry.InitAll when a tool's
	// declared dependencies form a cycle.
	ErrDependencyCycle = errors.New("tool: dependency cycle detected")

	// ErrValidationFailed is returned by Executor.Execute when the
	// validation pipeline produced one or more errors.
	ErrValidationFailed = errors.New("tool: validation failed")

	// ErrTimeout is returned when a tool's Execute call exceeds its
	// declared timeout.
	ErrTimeout = errors.New("tool: execution timeout")
)
