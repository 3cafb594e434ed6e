package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocketomega/agentrt/agentcore"
	"github.com/pocketomega/agentrt/internal/tool"
)

func TestToolAdapter_Name_JoinsServerAndToolWithDoubleUnderscore(t *testing.T) {
	cases := []struct {
		server, tool, want string
	}{
		{"csv-tool", "read_csv", "mcp_csv-tool__read_csv"},
		{"memory", "store", "mcp_memory__store"},
		{"my_server", "get_weather", "mcp_my_server__get_weather"},
	}
	for _, tc := range cases {
		adapter := NewToolAdapter(tc.server, ToolInfo{Name: tc.tool}, nil)
		assert.Equal(t, tc.want, adapter.Name())
	}
}

func TestToolAdapter_Metadata_ParsesInputSchemaProperties(t *testing.T) {
	schema := json.RawMessage(`{"type":"object","properties":{"q":{"type":"string","description":"query"}},"required":["q"]}`)
	adapter := NewToolAdapter("svc", ToolInfo{Name: "search", Description: "runs a search", InputSchema: schema}, nil)

	meta := adapter.Metadata()
	assert.Equal(t, "mcp_svc__search", meta.Name)
	assert.Equal(t, "runs a search", meta.Description)
	require.Contains(t, meta.Properties, "q")
	assert.Equal(t, "string", meta.Properties["q"].Type)
	assert.Equal(t, []string{"q"}, meta.Required)
}

func TestToolAdapter_Metadata_EmptySchemaYieldsNoProperties(t *testing.T) {
	adapter := NewToolAdapter("svc", ToolInfo{Name: "noop"}, nil)
	meta := adapter.Metadata()
	assert.Empty(t, meta.Properties)
	assert.Empty(t, meta.Required)
}

func TestToolAdapter_Execute_ReturnsFailedResultWhenClientNotConnected(t *testing.T) {
	adapter := NewToolAdapter("svc", ToolInfo{Name: "noop"}, NewClient(ServerConfig{Name: "svc"}))
	result, err := adapter.Execute(context.Background(), map[string]any{}, agentcore.Context{})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestToolAdapter_Rollback_IsUnsupported(t *testing.T) {
	adapter := NewToolAdapter("svc", ToolInfo{Name: "t"}, nil)
	assert.ErrorIs(t, adapter.Rollback(context.Background(), "exec-1"), tool.ErrRollbackUnsupported)
}
