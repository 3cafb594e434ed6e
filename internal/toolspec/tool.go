package toolspec

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"text/template"

	"github.com/pocketomega/agentrt/agentcore"
	"github.com/pocketomega/agentrt/internal/tool"
)

const manifestOutputLimit = 8000

// ManifestTool adapts a Def into a tool.Tool: dispatch renders Command as a
// text/template against the call's arguments and runs the result as a
// shell command inside the workspace, the same process builtin.ShellExecTool
// uses for its own dispatch.
type ManifestTool struct {
	def *Def
	cmd *template.Template
}

// New compiles def's Command template once, so a malformed template fails
// at load time rather than on the manifest's first dispatch.
func New(def *Def) (*ManifestTool, error) {
	tmpl, err := template.New(def.Name).Parse(def.Command)
	if err != nil {
		return nil, fmt.Errorf("toolspec: manifest %q: parse command template: %w", def.Path, err)
	}
	return &ManifestTool{def: def, cmd: tmpl}, nil
}

func (t *ManifestTool) Metadata() agentcore.ToolMetadata {
	properties := make(map[string]agentcore.ParameterSchema, len(t.def.Parameters))
	var required []string
	for name, p := range t.def.Parameters {
		properties[name] = agentcore.ParameterSchema{Type: p.Type, Description: p.Description}
		if p.Required {
			required = append(required, name)
		}
	}
	return agentcore.ToolMetadata{
		Name:         t.def.Name,
		Description:  t.def.Description,
		Category:     t.def.Category,
		Properties:   properties,
		Required:     required,
		Capabilities: t.def.capabilities(),
		Version:      "manifest",
	}
}

func (t *ManifestTool) Dependencies() []string { return nil }

func (t *ManifestTool) ValidateInput(_ context.Context, _ map[string]any, _ agentcore.Context) tool.ValidationResult {
	return tool.ValidationResult{Valid: true}
}

func (t *ManifestTool) Execute(ctx context.Context, args map[string]any, wsCtx agentcore.Context) (agentcore.ExecutionResult, error) {
	var cmdBuf bytes.Buffer
	if err := t.cmd.Execute(&cmdBuf, args); err != nil {
		return agentcore.ExecutionResult{Success: false, Error: fmt.Sprintf("render command: %v", err)}, nil
	}

	shell, flag := "/bin/sh", "-c"
	if runtime.GOOS == "windows" {
		shell, flag = "cmd.exe", "/C"
	}
	execCmd := exec.CommandContext(ctx, shell, flag, cmdBuf.String())
	execCmd.Dir = wsCtx.WorkspacePath

	output, err := execCmd.CombinedOutput()
	text := string(output)
	if len(text) > manifestOutputLimit {
		text = text[:manifestOutputLimit] + "... (truncated)"
	}
	if err != nil {
		return agentcore.ExecutionResult{Success: false, Output: text, Error: err.Error()}, nil
	}
	return agentcore.ExecutionResult{Success: true, Output: text}, nil
}

func (t *ManifestTool) Rollback(ctx context.Context, executionID string) error {
	return tool.ErrRollbackUnsupported
}

func (t *ManifestTool) Init(ctx context.Context) error { return nil }
func (t *ManifestTool) Close() error                   { return nil }
