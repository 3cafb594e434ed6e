package builtin

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pocketomega/agentrt/agentcore"
	"github.com/pocketomega/agentrt/internal/tool"
)

const (
	maxFileSize  = 1 << 20 // 1MB read limit
	maxWriteSize = 1 << 20 // 1MB write limit, rejected before any filesystem access
	maxListItems = 100
)

// ReadFileTool reads a file's contents from within the workspace sandbox.
type ReadFileTool struct{}

func NewReadFileTool() *ReadFileTool { return &ReadFileTool{} }

func (t *ReadFileTool) Metadata() agentcore.ToolMetadata {
	return agentcore.ToolMetadata{
		Name:        "read_file",
		Description: "Read the contents of a file within the workspace.",
		Category:    "filesystem",
		Properties: map[string]agentcore.ParameterSchema{
			"path": {Type: "string", Description: "File path, relative to the workspace or absolute within it."},
		},
		Required:     []string{"path"},
		Capabilities: []agentcore.Capability{agentcore.CapabilityReadOnly, agentcore.CapabilityFast},
		Version:      "1.0.0",
	}
}

func (t *ReadFileTool) Dependencies() []string { return nil }

func (t *ReadFileTool) ValidateInput(_ context.Context, _ map[string]any, _ agentcore.Context) tool.ValidationResult {
	return tool.ValidationResult{Valid: true}
}

func (t *ReadFileTool) Execute(_ context.Context, args map[string]any, wsCtx agentcore.Context) (agentcore.ExecutionResult, error) {
	pathArg, _ := stringArg(args, "path")

	path, err := resolveInWorkspace(pathArg, wsCtx.WorkspacePath)
	if err != nil {
		return agentcore.ExecutionResult{Success: false, Error: err.Error()}, nil
	}

	// Open first, then stat: avoids a TOCTOU race between a Stat and a
	// subsequent ReadFile where the file could be replaced in between.
	f, err := os.Open(path)
	if err != nil {
		return agentcore.ExecutionResult{Success: false, Error: fmt.Sprintf("file not found: %s", path)}, nil
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return agentcore.ExecutionResult{Success: false, Error: fmt.Sprintf("stat failed: %v", err)}, nil
	}
	if info.IsDir() {
		return agentcore.ExecutionResult{Success: false, Error: "path is a directory, use list_files instead"}, nil
	}
	if info.Size() > maxFileSize {
		return agentcore.ExecutionResult{Success: false, Error: fmt.Sprintf("file too large (%d bytes), limit %d", info.Size(), maxFileSize)}, nil
	}

	data, err := io.ReadAll(io.LimitReader(f, maxFileSize))
	if err != nil {
		return agentcore.ExecutionResult{Success: false, Error: fmt.Sprintf("read failed: %v", err)}, nil
	}

	return agentcore.ExecutionResult{Success: true, Output: string(data)}, nil
}

func (t *ReadFileTool) Rollback(_ context.Context, _ string) error { return tool.ErrRollbackUnsupported }
func (t *ReadFileTool) Init(_ context.Context) error               { return nil }
func (t *ReadFileTool) Close() error                               { return nil }

// WriteFileTool writes (creating or overwriting) a file within the
// workspace sandbox.
type WriteFileTool struct{}

func NewWriteFileTool() *WriteFileTool { return &WriteFileTool{} }

func (t *WriteFileTool) Metadata() agentcore.ToolMetadata {
	return agentcore.ToolMetadata{
		Name:        "write_file",
		Description: "Write content to a file within the workspace, creating or overwriting it.",
		Category:    "filesystem",
		Properties: map[string]agentcore.ParameterSchema{
			"path":    {Type: "string", Description: "File path, relative to the workspace or absolute within it."},
			"content": {Type: "string", Description: "Content to write."},
		},
		Required:     []string{"path", "content"},
		Capabilities: []agentcore.Capability{agentcore.CapabilityWritable},
		Version:      "1.0.0",
	}
}

func (t *WriteFileTool) Dependencies() []string { return nil }

func (t *WriteFileTool) ValidateInput(_ context.Context, args map[string]any, _ agentcore.Context) tool.ValidationResult {
	content, _ := stringArg(args, "content")
	if len(content) > maxWriteSize {
		return tool.ValidationResult{Valid: false, Errors: []string{fmt.Sprintf("content too large (%d bytes), limit %d", len(content), maxWriteSize)}}
	}
	return tool.ValidationResult{Valid: true}
}

func (t *WriteFileTool) Execute(_ context.Context, args map[string]any, wsCtx agentcore.Context) (agentcore.ExecutionResult, error) {
	pathArg, _ := stringArg(args, "path")
	content, _ := stringArg(args, "content")

	path, err := resolveInWorkspace(pathArg, wsCtx.WorkspacePath)
	if err != nil {
		return agentcore.ExecutionResult{Success: false, Error: err.Error()}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return agentcore.ExecutionResult{Success: false, Error: fmt.Sprintf("create directory failed: %v", err)}, nil
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return agentcore.ExecutionResult{Success: false, Error: fmt.Sprintf("write failed: %v", err)}, nil
	}

	return agentcore.ExecutionResult{
		Success: true,
		Output:  fmt.Sprintf("wrote %s (%d bytes)", path, len(content)),
		Metadata: map[string]any{
			"invalidate_cache_prefix": "read_file:",
		},
	}, nil
}

func (t *WriteFileTool) Rollback(_ context.Context, _ string) error {
	return tool.ErrRollbackUnsupported
}
func (t *WriteFileTool) Init(_ context.Context) error { return nil }
func (t *WriteFileTool) Close() error                 { return nil }

// ListFilesTool lists the contents of a directory within the workspace
// sandbox.
type ListFilesTool struct{}

func NewListFilesTool() *ListFilesTool { return &ListFilesTool{} }

func (t *ListFilesTool) Metadata() agentcore.ToolMetadata {
	return agentcore.ToolMetadata{
		Name:        "list_files",
		Description: "List files and subdirectories under a workspace directory.",
		Category:    "filesystem",
		Properties: map[string]agentcore.ParameterSchema{
			"path": {Type: "string", Description: "Directory path, relative to the workspace or absolute within it."},
		},
		Required:     []string{"path"},
		Capabilities: []agentcore.Capability{agentcore.CapabilityReadOnly, agentcore.CapabilityFast},
		Version:      "1.0.0",
	}
}

func (t *ListFilesTool) Dependencies() []string { return nil }

func (t *ListFilesTool) ValidateInput(_ context.Context, _ map[string]any, _ agentcore.Context) tool.ValidationResult {
	return tool.ValidationResult{Valid: true}
}

func (t *ListFilesTool) Execute(_ context.Context, args map[string]any, wsCtx agentcore.Context) (agentcore.ExecutionResult, error) {
	pathArg, _ := stringArg(args, "path")

	path, err := resolveInWorkspace(pathArg, wsCtx.WorkspacePath)
	if err != nil {
		return agentcore.ExecutionResult{Success: false, Error: err.Error()}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return agentcore.ExecutionResult{Success: false, Error: fmt.Sprintf("directory not found: %s", path)}, nil
	}

	var sb strings.Builder
	count := 0
	for _, entry := range entries {
		if count >= maxListItems {
			fmt.Fprintf(&sb, "... (%d total, showing first %d)\n", len(entries), maxListItems)
			break
		}
		tag := "file"
		if entry.IsDir() {
			tag = "dir"
		}
		fmt.Fprintf(&sb, "%s\t%s\n", tag, entry.Name())
		count++
	}
	if count == 0 {
		return agentcore.ExecutionResult{Success: true, Output: "(empty directory)"}, nil
	}
	return agentcore.ExecutionResult{Success: true, Output: sb.String()}, nil
}

func (t *ListFilesTool) Rollback(_ context.Context, _ string) error {
	return tool.ErrRollbackUnsupported
}
func (t *ListFilesTool) Init(_ context.Context) error { return nil }
func (t *ListFilesTool) Close() error                 { return nil }
