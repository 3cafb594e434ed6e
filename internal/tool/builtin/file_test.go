package builtin

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pocketomega/agentrt/agentcore"
)

func TestResolveInWorkspace_Normal(t *testing.T) {
	workspace := t.TempDir()

	tests := []struct {
		name string
		path string
	}{
		{"relative file", "hello.txt"},
		{"nested relative", "sub/dir/file.txt"},
		{"dot path", "./test.txt"},
		{"workspace root", "."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved, err := resolveInWorkspace(tt.path, workspace)
			if err != nil {
				t.Errorf("resolveInWorkspace(%q) unexpected error: %v", tt.path, err)
			}
			if resolved == "" {
				t.Error("resolved path should not be empty")
			}
		})
	}
}

func TestResolveInWorkspace_Traversal(t *testing.T) {
	workspace := t.TempDir()

	tests := []string{
		"../outside.txt",
		"../../etc/passwd",
		"sub/../../escape.txt",
	}
	for _, path := range tests {
		if _, err := resolveInWorkspace(path, workspace); err == nil {
			t.Errorf("expected resolveInWorkspace(%q) to reject escape", path)
		}
	}
}

func TestResolveInWorkspace_PrefixCollision(t *testing.T) {
	workspace := t.TempDir()
	evilSibling := workspace + "-evil"
	if err := os.MkdirAll(evilSibling, 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := resolveInWorkspace(evilSibling+"/attack.txt", workspace); err == nil {
		t.Error("expected prefix-collision sibling directory to be rejected")
	}
}

func TestReadFileTool_ReadsWrittenContent(t *testing.T) {
	workspace := t.TempDir()
	if err := os.WriteFile(filepath.Join(workspace, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	rt := NewReadFileTool()
	result, err := rt.Execute(context.Background(), map[string]any{"path": "a.txt"}, agentcore.Context{WorkspacePath: workspace})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success || result.Output != "hello" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestReadFileTool_MissingFile(t *testing.T) {
	workspace := t.TempDir()
	rt := NewReadFileTool()
	result, _ := rt.Execute(context.Background(), map[string]any{"path": "missing.txt"}, agentcore.Context{WorkspacePath: workspace})
	if result.Success {
		t.Error("expected failure for missing file")
	}
}

func TestWriteFileTool_CreatesFile(t *testing.T) {
	workspace := t.TempDir()
	wt := NewWriteFileTool()
	result, err := wt.Execute(context.Background(), map[string]any{"path": "hello.txt", "content": "hi"}, agentcore.Context{WorkspacePath: workspace})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	data, err := os.ReadFile(filepath.Join(workspace, "hello.txt"))
	if err != nil {
		t.Fatalf("expected file to exist: %v", err)
	}
	if string(data) != "hi" {
		t.Errorf("unexpected content: %q", data)
	}
}

func TestWriteFileTool_RejectsOversizedContent(t *testing.T) {
	workspace := t.TempDir()
	wt := NewWriteFileTool()
	huge := make([]byte, maxWriteSize+1)
	validation := wt.ValidateInput(context.Background(), map[string]any{"path": "big.txt", "content": string(huge)}, agentcore.Context{WorkspacePath: workspace})
	if validation.Valid {
		t.Error("expected oversized content to fail validation")
	}
}

func TestListFilesTool_ListsEntries(t *testing.T) {
	workspace := t.TempDir()
	if err := os.WriteFile(filepath.Join(workspace, "a.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(workspace, "subdir"), 0o755); err != nil {
		t.Fatal(err)
	}

	lt := NewListFilesTool()
	result, err := lt.Execute(context.Background(), map[string]any{"path": "."}, agentcore.Context{WorkspacePath: workspace})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if !strings.Contains(result.Output, "a.txt") || !strings.Contains(result.Output, "subdir") {
		t.Errorf("expected listing to contain both entries, got %q", result.Output)
	}
}

func TestListFilesTool_EmptyDirectory(t *testing.T) {
	workspace := t.TempDir()
	lt := NewListFilesTool()
	result, _ := lt.Execute(context.Background(), map[string]any{"path": "."}, agentcore.Context{WorkspacePath: workspace})
	if result.Output != "(empty directory)" {
		t.Errorf("expected empty directory marker, got %q", result.Output)
	}
}
