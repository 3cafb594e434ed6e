package builtin

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pocketomega/agentrt/agentcore"
	"github.com/pocketomega/agentrt/internal/tool"
)

const gitTimeout = 10 * time.Second

var allowedGitCommands = map[string]bool{
	"status": true, "diff": true, "log": true,
	"branch": true, "stash": true, "show": true,
}

// dangerousGitArgs are git-level flags that write to disk or escape the
// workspace. Shell metacharacters are not listed: exec.Command never goes
// through a shell, so they reach git as literal argv entries.
var dangerousGitArgs = []string{
	"--exec", "--upload-pack", "--receive-pack",
	"--output", "--output-directory",
	"--no-index", "--work-tree", "--git-dir",
}

// GitInfoTool runs read-only git queries scoped to the workspace directory.
type GitInfoTool struct{}

func NewGitInfoTool() *GitInfoTool { return &GitInfoTool{} }

func (t *GitInfoTool) Metadata() agentcore.ToolMetadata {
	return agentcore.ToolMetadata{
		Name:        "git_info",
		Description: "Run a read-only git query: status, diff, log, branch, stash, or show.",
		Category:    "vcs",
		Properties: map[string]agentcore.ParameterSchema{
			"command": {Type: "string", Description: "one of status, diff, log, branch, stash, show"},
			"path":    {Type: "string", Description: "optional: scope the query to this path"},
			"args":    {Type: "string", Description: "optional: extra whitespace-separated arguments"},
		},
		Required:     []string{"command"},
		Capabilities: []agentcore.Capability{agentcore.CapabilityReadOnly, agentcore.CapabilityFast},
		Version:      "1.0.0",
	}
}

func (t *GitInfoTool) Dependencies() []string { return nil }

func (t *GitInfoTool) ValidateInput(_ context.Context, args map[string]any, _ agentcore.Context) tool.ValidationResult {
	command, _ := stringArg(args, "command")
	if !allowedGitCommands[command] {
		return tool.ValidationResult{Valid: false, Errors: []string{fmt.Sprintf("unsupported command %q, allowed: status/diff/log/branch/stash/show", command)}}
	}
	extra, _ := stringArg(args, "args")
	for _, token := range splitGitArgs(extra) {
		if isDangerousGitArg(token) {
			return tool.ValidationResult{Valid: false, Errors: []string{fmt.Sprintf("argument %q is not permitted", token)}}
		}
	}
	return tool.ValidationResult{Valid: true}
}

// isDangerousGitArg checks a single token against dangerousGitArgs using
// prefix matching to also catch --output=file.txt and --work-tree=/foo.
func isDangerousGitArg(token string) bool {
	lower := strings.ToLower(token)
	if strings.HasPrefix(lower, "-c") && !strings.HasPrefix(lower, "--") {
		return true
	}
	for _, bad := range dangerousGitArgs {
		if lower == bad || strings.HasPrefix(lower, bad+"=") {
			return true
		}
	}
	return false
}

func splitGitArgs(args string) []string {
	trimmed := strings.TrimSpace(args)
	if trimmed == "" {
		return nil
	}
	return strings.Fields(trimmed)
}

func (t *GitInfoTool) Execute(ctx context.Context, args map[string]any, wsCtx agentcore.Context) (agentcore.ExecutionResult, error) {
	command, _ := stringArg(args, "command")
	path := strings.TrimSpace(firstString(args, "path"))
	extra := splitGitArgs(firstString(args, "args"))

	var cmdArgs []string
	switch command {
	case "status":
		cmdArgs = gitWithDefault(command, extra, "--short")
		cmdArgs = appendPathScope(cmdArgs, path)
	case "diff":
		cmdArgs = gitWithDefault(command, extra, "--stat")
		cmdArgs = appendPathScope(cmdArgs, path)
	case "log":
		cmdArgs = gitWithDefault(command, extra, "--oneline", "-20")
		cmdArgs = appendPathScope(cmdArgs, path)
	case "branch":
		cmdArgs = gitWithDefault(command, extra, "-a")
	case "stash":
		cmdArgs = []string{"stash", "list"}
	case "show":
		cmdArgs = append([]string{"show"}, extra...)
	}

	ctx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", cmdArgs...)
	cmd.Dir = wsCtx.WorkspacePath
	cmd.Env = filterEnv(os.Environ())

	output, err := cmd.CombinedOutput()
	text := safeRuneTruncate(strings.TrimSpace(string(output)), shellMaxOutputChars)

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return agentcore.ExecutionResult{Success: false, Error: fmt.Sprintf("git command timed out after %v: %s", gitTimeout, text)}, nil
		}
		return agentcore.ExecutionResult{Success: false, Output: text, Error: err.Error()}, nil
	}
	return agentcore.ExecutionResult{Success: true, Output: text}, nil
}

func gitWithDefault(command string, userArgs []string, fallback ...string) []string {
	if len(userArgs) > 0 {
		return append([]string{command}, userArgs...)
	}
	return append([]string{command}, fallback...)
}

func appendPathScope(cmdArgs []string, path string) []string {
	if path == "" {
		return cmdArgs
	}
	return append(cmdArgs, "--", path)
}

func firstString(args map[string]any, name string) string {
	s, _ := stringArg(args, name)
	return s
}

func (t *GitInfoTool) Rollback(_ context.Context, _ string) error { return tool.ErrRollbackUnsupported }
func (t *GitInfoTool) Init(_ context.Context) error               { return nil }
func (t *GitInfoTool) Close() error                               { return nil }

// safeRuneTruncate truncates s to maxRunes runes, preserving valid UTF-8 and
// appending a note of how many runes were dropped.
func safeRuneTruncate(s string, maxRunes int) string {
	count := 0
	for i := range s {
		count++
		if count > maxRunes {
			totalRunes := maxRunes + utf8.RuneCountInString(s[i:])
			return s[:i] + fmt.Sprintf("\n... (truncated, %d characters total)", totalRunes)
		}
	}
	return s
}

var sensitiveEnvSuffixes = []string{
	"_KEY", "_SECRET", "_TOKEN", "_PASSWORD", "_PASSWD",
	"_PASSPHRASE", "_CREDENTIALS", "_AUTH", "_DSN",
}

var sensitiveEnvPrefixes = []string{
	"DATABASE_URL", "REDIS_URL", "MONGO_URL",
}

// filterEnv returns a copy of env with variables that look like secrets
// removed, so a git subprocess never inherits them.
func filterEnv(env []string) []string {
	filtered := make([]string, 0, len(env))
	for _, e := range env {
		parts := strings.SplitN(e, "=", 2)
		if len(parts) < 2 {
			continue
		}
		nameUpper := strings.ToUpper(parts[0])

		sensitive := false
		for _, suffix := range sensitiveEnvSuffixes {
			if strings.HasSuffix(nameUpper, suffix) {
				sensitive = true
				break
			}
		}
		if !sensitive {
			for _, prefix := range sensitiveEnvPrefixes {
				if strings.HasPrefix(nameUpper, prefix) {
					sensitive = true
					break
				}
			}
		}
		if !sensitive {
			filtered = append(filtered, e)
		}
	}
	return filtered
}
