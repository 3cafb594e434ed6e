package builtin

import (
	"context"
	"fmt"
	"time"

	"github.com/pocketomega/agentrt/agentcore"
	"github.com/pocketomega/agentrt/internal/tool"
)

// CurrentTimeTool reports the current time, optionally in an IANA timezone.
type CurrentTimeTool struct{}

func NewCurrentTimeTool() *CurrentTimeTool { return &CurrentTimeTool{} }

func (t *CurrentTimeTool) Metadata() agentcore.ToolMetadata {
	return agentcore.ToolMetadata{
		Name:        "get_current_time",
		Description: "Return the current date and time, optionally in a given IANA timezone.",
		Category:    "utility",
		Properties: map[string]agentcore.ParameterSchema{
			"timezone": {Type: "string", Description: "IANA timezone name, e.g. America/New_York (optional)."},
		},
		Capabilities: []agentcore.Capability{agentcore.CapabilityReadOnly, agentcore.CapabilityFast},
		Version:      "1.0.0",
	}
}

func (t *CurrentTimeTool) Dependencies() []string { return nil }

func (t *CurrentTimeTool) ValidateInput(_ context.Context, args map[string]any, _ agentcore.Context) tool.ValidationResult {
	if tz, ok := stringArg(args, "timezone"); ok && tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return tool.ValidationResult{Valid: false, Errors: []string{fmt.Sprintf("invalid timezone %q: %v", tz, err)}}
		}
	}
	return tool.ValidationResult{Valid: true}
}

func (t *CurrentTimeTool) Execute(_ context.Context, args map[string]any, _ agentcore.Context) (agentcore.ExecutionResult, error) {
	now := time.Now()

	if tz, ok := stringArg(args, "timezone"); ok && tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return agentcore.ExecutionResult{Success: false, Error: fmt.Sprintf("invalid timezone %q: %v", tz, err)}, nil
		}
		now = now.In(loc)
	}

	return agentcore.ExecutionResult{
		Success: true,
		Output:  now.Format("2006-01-02 15:04:05 MST (Monday)"),
	}, nil
}

func (t *CurrentTimeTool) Rollback(_ context.Context, _ string) error { return tool.ErrRollbackUnsupported }
func (t *CurrentTimeTool) Init(_ context.Context) error               { return nil }
func (t *CurrentTimeTool) Close() error                               { return nil }
