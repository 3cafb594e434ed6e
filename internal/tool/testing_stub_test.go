package tool

import (
	"context"

	"github.com/pocketomega/agentrt/agentcore"
)

// stubTool is a minimal Tool implementation shared across this package's
// test files.
type stubTool struct {
	meta         agentcore.ToolMetadata
	deps         []string
	execResult   agentcore.ExecutionResult
	execErr      error
	execDelay    func(ctx context.Context)
	validateFunc func(args map[string]any) ValidationResult
	rollbackErr  error
	initErr      error
	initialized  bool
	closed       bool
}

func (s *stubTool) Metadata() agentcore.ToolMetadata { return s.meta }
func (s *stubTool) Dependencies() []string           { return s.deps }

func (s *stubTool) ValidateInput(_ context.Context, args map[string]any, _ agentcore.Context) ValidationResult {
	if s.validateFunc != nil {
		return s.validateFunc(args)
	}
	return valid()
}

func (s *stubTool) Execute(ctx context.Context, args map[string]any, _ agentcore.Context) (agentcore.ExecutionResult, error) {
	if s.execDelay != nil {
		s.execDelay(ctx)
	}
	return s.execResult, s.execErr
}

func (s *stubTool) Rollback(_ context.Context, _ string) error {
	if s.rollbackErr != nil {
		return s.rollbackErr
	}
	return ErrRollbackUnsupported
}

func (s *stubTool) Init(_ context.Context) error {
	s.initialized = true
	return s.initErr
}

func (s *stubTool) Close() error {
	s.closed = true
	return nil
}

func newStubTool(name string, caps ...agentcore.Capability) *stubTool {
	return &stubTool{
		meta: agentcore.ToolMetadata{
			Name:         name,
			Description:  "stub tool " + name,
			Capabilities: caps,
			Properties:   map[string]agentcore.ParameterSchema{},
		},
		execResult: agentcore.ExecutionResult{Success: true, Output: "ok"},
	}
}
