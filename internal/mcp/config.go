package mcp

import (
	"encoding/json"
	"fmt"
	"os"
)

// mcpConfigFile mirrors the top-level structure of an mcp.json file.
type mcpConfigFile struct {
	MCPServers map[string]ServerConfig `json:"mcpServers"`
}

// ServerConfig describes a single MCP server connection. Name is populated
// from the map key in mcp.json, not from a JSON field.
type ServerConfig struct {
	Name      string   // derived from the map key
	Transport string   `json:"transport"` // "stdio" | "sse"
	Command   string   `json:"command,omitempty"`
	Args      []string `json:"args,omitempty"`
	URL       string   `json:"url,omitempty"`
	Env       []string `json:"env,omitempty"`
}

// LoadConfig reads and parses an mcp.json file at path.
func LoadConfig(path string) (map[string]ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mcp: read config %q: %w", path, err)
	}

	var file mcpConfigFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("mcp: parse config %q: %w", path, err)
	}
	if file.MCPServers == nil {
		return map[string]ServerConfig{}, nil
	}
	for key, cfg := range file.MCPServers {
		cfg.Name = key
		file.MCPServers[key] = cfg
	}
	return file.MCPServers, nil
}
