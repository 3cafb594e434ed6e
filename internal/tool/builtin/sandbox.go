// Package builtin provides concrete tool.Tool implementations sandboxed to
// an agentcore.Context's workspace path: file I/O and directory listing,
// plus git, HTTP, web search, shell, time and web-reader tools.
// The sandbox resolution logic is adapted directly from the teacher's
// file-tool path guard.
package builtin

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// resolveInWorkspace resolves path against workspaceDir and rejects any
// result that escapes it, after resolving symlinks on both sides. This is
// the executor's workspace sandbox contract (spec §4.3): path-typed
// arguments must resolve under workspace_path even through symlinks.
func resolveInWorkspace(path, workspaceDir string) (string, error) {
	var resolved string
	switch {
	case filepath.IsAbs(path):
		resolved = filepath.Clean(path)
	case workspaceDir != "":
		resolved = filepath.Clean(filepath.Join(workspaceDir, path))
	default:
		resolved = filepath.Clean(path)
	}

	if workspaceDir == "" {
		return resolved, nil
	}

	absWorkspace, err := filepath.Abs(workspaceDir)
	if err != nil {
		return "", fmt.Errorf("resolve workspace directory: %w", err)
	}
	realWorkspace, err := filepath.EvalSymlinks(absWorkspace)
	if err != nil {
		realWorkspace = absWorkspace // workspace doesn't exist on disk yet
	}

	absResolved, err := filepath.Abs(resolved)
	if err != nil {
		return "", fmt.Errorf("resolve target path: %w", err)
	}
	realResolved, _ := resolveExisting(absResolved)

	// On Windows, EvalSymlinks returns canonical casing only for existing
	// paths; fold both sides to lowercase so the prefix check below is
	// case-insensitive regardless of whether the target already exists.
	if runtime.GOOS == "windows" {
		realWorkspace = strings.ToLower(realWorkspace)
		realResolved = strings.ToLower(realResolved)
	}

	if realResolved != realWorkspace &&
		!strings.HasPrefix(realResolved, realWorkspace+string(os.PathSeparator)) {
		return "", fmt.Errorf("path %q escapes workspace %q", path, workspaceDir)
	}

	return resolved, nil
}

// resolveExisting resolves symlinks for an existing path, or for its parent
// directory when the path itself does not exist yet (e.g. a file about to
// be created), preventing a symlink inside the workspace from pointing
// outside it undetected.
func resolveExisting(path string) (string, error) {
	if real, err := filepath.EvalSymlinks(path); err == nil {
		return real, nil
	}
	if real, err := filepath.EvalSymlinks(filepath.Dir(path)); err == nil {
		return filepath.Join(real, filepath.Base(path)), nil
	}
	return path, nil
}

func stringArg(args map[string]any, name string) (string, bool) {
	v, ok := args[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
