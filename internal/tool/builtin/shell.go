package builtin

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"unicode/utf8"

	"github.com/pocketomega/agentrt/agentcore"
	"github.com/pocketomega/agentrt/internal/tool"
)

const shellMaxOutputChars = 8000

// dangerousShellPatterns blocks commands that are near-certainly accidental
// damage rather than deliberate task steps. This is a best-effort blocklist,
// not a security boundary — a determined caller can bypass it (encoded
// payloads, find -delete) — its purpose is guarding against LLM-generated
// commands going catastrophically wrong by accident.
var dangerousShellPatterns = []string{
	"rm -rf /", "rm -r -f /", "rm -rf ~", "rm -rf $home",
	"mkfs", "dd if=",
	"shutdown", "reboot", "halt",
	":(){:|:&};:",
	"format c:", "format d:",
}

func containsDangerousPattern(cmd string) string {
	lower := strings.ToLower(cmd)
	for _, pattern := range dangerousShellPatterns {
		if strings.Contains(lower, pattern) {
			return pattern
		}
	}
	return ""
}

// ShellExecTool runs a shell command inside the workspace directory.
// Destructive capability: results are never cached and a ".." in any
// path-typed argument of a writable or destructive tool is a hard validation
// error (a warning for other tools), but
// a shell command string itself is opaque to the path-traversal check — the
// dangerous-pattern blocklist is this tool's own defense instead.
type ShellExecTool struct{}

func NewShellExecTool() *ShellExecTool { return &ShellExecTool{} }

func (t *ShellExecTool) Metadata() agentcore.ToolMetadata {
	return agentcore.ToolMetadata{
		Name:        "shell_exec",
		Description: "Run a shell command inside the workspace directory.",
		Category:    "system",
		Properties: map[string]agentcore.ParameterSchema{
			"command": {Type: "string", Description: "Shell command to run."},
		},
		Required:     []string{"command"},
		Capabilities: []agentcore.Capability{agentcore.CapabilityDestructive, agentcore.CapabilityExpensive},
		Version:      "1.0.0",
	}
}

func (t *ShellExecTool) Dependencies() []string { return nil }

func (t *ShellExecTool) ValidateInput(_ context.Context, args map[string]any, _ agentcore.Context) tool.ValidationResult {
	cmd, _ := stringArg(args, "command")
	if strings.TrimSpace(cmd) == "" {
		return tool.ValidationResult{Valid: false, Errors: []string{"command must not be empty"}}
	}
	if pattern := containsDangerousPattern(cmd); pattern != "" {
		return tool.ValidationResult{Valid: false, Errors: []string{fmt.Sprintf("command blocked: matches dangerous pattern %q", pattern)}}
	}
	return tool.ValidationResult{Valid: true}
}

func (t *ShellExecTool) Execute(ctx context.Context, args map[string]any, wsCtx agentcore.Context) (agentcore.ExecutionResult, error) {
	cmd, _ := stringArg(args, "command")

	shell, flag := "/bin/sh", "-c"
	if runtime.GOOS == "windows" {
		shell, flag = "cmd.exe", "/C"
	}

	execCmd := exec.CommandContext(ctx, shell, flag, cmd)
	execCmd.Dir = wsCtx.WorkspacePath

	output, err := execCmd.CombinedOutput()
	text := string(output)
	if utf8.RuneCountInString(text) > shellMaxOutputChars {
		runes := []rune(text)
		text = string(runes[:shellMaxOutputChars]) + "... (truncated)"
	}

	if err != nil {
		return agentcore.ExecutionResult{
			Success: false,
			Output:  text,
			Error:   err.Error(),
		}, nil
	}
	return agentcore.ExecutionResult{Success: true, Output: text}, nil
}

func (t *ShellExecTool) Rollback(_ context.Context, _ string) error {
	return tool.ErrRollbackUnsupported
}
func (t *ShellExecTool) Init(_ context.Context) error { return nil }
func (t *ShellExecTool) Close() error                 { return nil }
