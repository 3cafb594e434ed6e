package mcp

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/pocketomega/agentrt/internal/tool"
)

// Manager owns the lifecycle of every configured MCP server connection and
// registers each server's tools into a tool.Registry. It is never required:
// a Registry that no Manager has registered into behaves exactly as if MCP
// did not exist.
type Manager struct {
	configPath string

	mu          sync.Mutex
	clients     map[string]*Client
	serverTools map[string][]string // server name -> registered tool names, for Close's bookkeeping
}

// NewManager creates a Manager for the given mcp.json path. No connections
// are established until ConnectAndRegister is called.
func NewManager(configPath string) *Manager {
	return &Manager{
		configPath:  configPath,
		clients:     make(map[string]*Client),
		serverTools: make(map[string][]string),
	}
}

// ConnectAndRegister loads configPath, connects to every configured server,
// and registers a ToolAdapter for each tool the server exposes. Per-server
// failures are collected and do not prevent other servers from connecting —
// one misconfigured MCP server should never take down the rest.
func (m *Manager) ConnectAndRegister(ctx context.Context, registry *tool.Registry) []error {
	configs, err := LoadConfig(m.configPath)
	if err != nil {
		return []error{fmt.Errorf("mcp: load config: %w", err)}
	}

	var errs []error
	for name, cfg := range configs {
		cli := NewClient(cfg)
		if err := cli.Connect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mcp: connect %q: %w", name, err))
			log.Printf("[MCP] connect failed: %s: %v", name, err)
			continue
		}

		tools, err := cli.ListTools(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("mcp: list tools %q: %w", name, err))
			_ = cli.Close()
			continue
		}

		var registered []string
		for _, ti := range tools {
			adapter := NewToolAdapter(name, ti, cli)
			registry.Register(adapter)
			registered = append(registered, adapter.Name())
		}

		m.mu.Lock()
		m.clients[name] = cli
		m.serverTools[name] = registered
		m.mu.Unlock()

		log.Printf("[MCP] connected %s (%s), %d tool(s)", name, cfg.Transport, len(tools))
	}
	return errs
}

// Close unregisters every tool this Manager registered and closes all of
// its server connections. Safe to call once after ConnectAndRegister; a
// nil registry skips unregistration and closes connections only.
func (m *Manager) Close(registry *tool.Registry) {
	m.mu.Lock()
	clients := m.clients
	serverTools := m.serverTools
	m.clients = make(map[string]*Client)
	m.serverTools = make(map[string][]string)
	m.mu.Unlock()

	if registry != nil {
		for _, names := range serverTools {
			for _, name := range names {
				registry.Unregister(name)
			}
		}
	}
	for name, cli := range clients {
		if err := cli.Close(); err != nil {
			log.Printf("[MCP] close error for %q: %v", name, err)
		}
	}
}
