package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pocketomega/agentrt/agentcore"
	"github.com/pocketomega/agentrt/internal/tool"
)

// rawSchema is the subset of JSON Schema an MCP server's InputSchema is
// expected to follow: an object with named properties and a required list.
type rawSchema struct {
	Properties map[string]struct {
		Type        string `json:"type"`
		Description string `json:"description"`
	} `json:"properties"`
	Required []string `json:"required"`
}

// ToolAdapter bridges one MCP server tool to the tool.Tool interface, making
// it indistinguishable from a builtin tool to the planner and executor.
//
// Naming convention: mcp_<serverName>__<toolName>. The double underscore
// cannot appear inside a valid server or tool name, so it never collides.
type ToolAdapter struct {
	serverName string
	info       ToolInfo
	client     *Client
}

// NewToolAdapter creates an adapter for one tool discovered on client's
// server. client must already be connected.
func NewToolAdapter(serverName string, info ToolInfo, client *Client) *ToolAdapter {
	return &ToolAdapter{serverName: serverName, info: info, client: client}
}

// Name returns the fully-qualified tool name: mcp_<server>__<tool>.
func (a *ToolAdapter) Name() string {
	return fmt.Sprintf("mcp_%s__%s", a.serverName, a.info.Name)
}

func (a *ToolAdapter) Metadata() agentcore.ToolMetadata {
	properties := map[string]agentcore.ParameterSchema{}
	var required []string

	if len(a.info.InputSchema) > 0 {
		var schema rawSchema
		if err := json.Unmarshal(a.info.InputSchema, &schema); err == nil {
			for name, p := range schema.Properties {
				properties[name] = agentcore.ParameterSchema{Type: p.Type, Description: p.Description}
			}
			required = schema.Required
		}
	}

	return agentcore.ToolMetadata{
		Name:         a.Name(),
		Description:  a.info.Description,
		Category:     "mcp",
		Properties:   properties,
		Required:     required,
		Capabilities: []agentcore.Capability{agentcore.CapabilityNetwork},
		Version:      "mcp:" + a.serverName,
	}
}

func (a *ToolAdapter) Dependencies() []string { return nil }

func (a *ToolAdapter) ValidateInput(_ context.Context, _ map[string]any, _ agentcore.Context) tool.ValidationResult {
	return tool.ValidationResult{Valid: true}
}

// Execute delegates to the MCP server. Both infrastructure errors and
// server-reported tool errors come back as a failed ExecutionResult rather
// than a Go error, so a misbehaving server cannot abort the run — the
// executor treats it as any other failed tool call and the replanner sees
// it in the observation.
func (a *ToolAdapter) Execute(ctx context.Context, args map[string]any, _ agentcore.Context) (agentcore.ExecutionResult, error) {
	text, err := a.client.CallTool(ctx, a.info.Name, args)
	if err != nil {
		return agentcore.ExecutionResult{Success: false, Error: err.Error()}, nil
	}
	return agentcore.ExecutionResult{Success: true, Output: text}, nil
}

func (a *ToolAdapter) Rollback(_ context.Context, _ string) error {
	return tool.ErrRollbackUnsupported
}

// Init and Close are no-ops: the underlying Client's lifecycle is owned by
// the Manager that registered this adapter, not by the adapter itself.
func (a *ToolAdapter) Init(_ context.Context) error { return nil }
func (a *ToolAdapter) Close() error                 { return nil }
