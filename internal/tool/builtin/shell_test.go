package builtin

import (
	"context"
	"runtime"
	"testing"

	"github.com/pocketomega/agentrt/agentcore"
)

func TestShellExecTool_RunsCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix shell test")
	}
	workspace := t.TempDir()
	st := NewShellExecTool()
	result, err := st.Execute(context.Background(), map[string]any{"command": "echo hello"}, agentcore.Context{WorkspacePath: workspace})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
}

func TestShellExecTool_BlocksDangerousPattern(t *testing.T) {
	st := NewShellExecTool()
	validation := st.ValidateInput(context.Background(), map[string]any{"command": "rm -rf /"}, agentcore.Context{})
	if validation.Valid {
		t.Error("expected dangerous command to fail validation")
	}
}

func TestShellExecTool_RejectsEmptyCommand(t *testing.T) {
	st := NewShellExecTool()
	validation := st.ValidateInput(context.Background(), map[string]any{"command": "   "}, agentcore.Context{})
	if validation.Valid {
		t.Error("expected empty command to fail validation")
	}
}

func TestContainsDangerousPattern_CaseInsensitive(t *testing.T) {
	if containsDangerousPattern("SHUTDOWN now") == "" {
		t.Error("expected case-insensitive match")
	}
}
