// Package mcp adapts tools exposed by external Model Context Protocol
// servers into this runtime's tool.Tool interface. It is an optional
// registrar: a workspace with no mcp.json never imports this package at
// runtime, and nothing in the core engine loop depends on it.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	sdkclient "github.com/mark3labs/mcp-go/client"
	sdkmcp "github.com/mark3labs/mcp-go/mcp"
)

// ToolInfo captures the metadata of one tool exposed by an MCP server.
type ToolInfo struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

// Client wraps the mcp-go SDK client for a single MCP server connection. It
// is safe for concurrent use.
type Client struct {
	mu    sync.RWMutex
	cfg   ServerConfig
	inner sdkclient.MCPClient
}

// NewClient creates an unconnected Client for cfg. Call Connect before
// ListTools or CallTool.
func NewClient(cfg ServerConfig) *Client {
	return &Client{cfg: cfg}
}

// Connect establishes the transport connection and performs the MCP
// initialize handshake.
func (c *Client) Connect(ctx context.Context) error {
	var inner sdkclient.MCPClient

	switch c.cfg.Transport {
	case "stdio":
		cli, err := sdkclient.NewStdioMCPClient(c.cfg.Command, c.cfg.Env, c.cfg.Args...)
		if err != nil {
			return fmt.Errorf("mcp: start stdio server %q: %w", c.cfg.Name, err)
		}
		inner = cli
	case "sse":
		cli, err := sdkclient.NewSSEMCPClient(c.cfg.URL)
		if err != nil {
			return fmt.Errorf("mcp: create sse client %q: %w", c.cfg.Name, err)
		}
		if err := cli.Start(ctx); err != nil {
			return fmt.Errorf("mcp: start sse client %q: %w", c.cfg.Name, err)
		}
		inner = cli
	default:
		return fmt.Errorf("mcp: unknown transport %q for server %q", c.cfg.Transport, c.cfg.Name)
	}

	_, err := inner.Initialize(ctx, sdkmcp.InitializeRequest{
		Params: sdkmcp.InitializeParams{
			ProtocolVersion: sdkmcp.LATEST_PROTOCOL_VERSION,
			ClientInfo: sdkmcp.Implementation{
				Name:    "agentrt",
				Version: "0.1.0",
			},
		},
	})
	if err != nil {
		_ = inner.Close()
		return fmt.Errorf("mcp: initialize server %q: %w", c.cfg.Name, err)
	}

	c.mu.Lock()
	c.inner = inner
	c.mu.Unlock()
	return nil
}

// ListTools returns metadata for every tool exposed by this server.
func (c *Client) ListTools(ctx context.Context) ([]ToolInfo, error) {
	c.mu.RLock()
	inner := c.inner
	c.mu.RUnlock()
	if inner == nil {
		return nil, fmt.Errorf("mcp: client %q not connected", c.cfg.Name)
	}

	result, err := inner.ListTools(ctx, sdkmcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("mcp: list tools %q: %w", c.cfg.Name, err)
	}

	tools := make([]ToolInfo, 0, len(result.Tools))
	for _, t := range result.Tools {
		schema, err := json.Marshal(t.InputSchema)
		if err != nil {
			schema = json.RawMessage("{}")
		}
		tools = append(tools, ToolInfo{Name: t.Name, Description: t.Description, InputSchema: schema})
	}
	return tools, nil
}

// CallTool invokes a named tool on the server and returns its concatenated
// text content. A server-reported IsError is surfaced as a non-nil error.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	c.mu.RLock()
	inner := c.inner
	c.mu.RUnlock()
	if inner == nil {
		return "", fmt.Errorf("mcp: client %q not connected", c.cfg.Name)
	}

	req := sdkmcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := inner.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("mcp: call tool %q on %q: %w", name, c.cfg.Name, err)
	}

	var parts []string
	for _, content := range result.Content {
		if tc, ok := content.(sdkmcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	text := strings.Join(parts, "\n")
	if result.IsError {
		return "", fmt.Errorf("mcp: tool %q returned error: %s", name, text)
	}
	return text, nil
}

// Close terminates the connection and releases resources. Safe to call on
// an unconnected Client.
func (c *Client) Close() error {
	c.mu.Lock()
	inner := c.inner
	c.inner = nil
	c.mu.Unlock()
	if inner == nil {
		return nil
	}
	return inner.Close()
}
