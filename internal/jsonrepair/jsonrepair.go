// Package jsonrepair provides tolerant extraction and textual repair of JSON
// embedded in free-form LLM output, shared by the Planner and the
// Replanner. Adapted from the teacher's fenced-YAML-extraction and
// backslash-repair idiom, generalized to JSON.
package jsonrepair

import (
	"fmt"
	"regexp"
	"strings"
)

// Extract pulls a JSON document out of raw LLM output, preferring a fenced
// ```json code block, then a bare ``` block, then the whole string.
func Extract(content string) (string, error) {
	if idx := strings.Index(content, "```json"); idx >= 0 {
		rest := content[idx+7:]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end]), nil
		}
		return "", fmt.Errorf("unclosed ```json code block")
	}
	if idx := strings.Index(content, "```"); idx >= 0 {
		rest := content[idx+3:]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end]), nil
		}
		return "", fmt.Errorf("unclosed ``` code block")
	}
	return strings.TrimSpace(content), nil
}

var (
	trailingComma  = regexp.MustCompile(`,(\s*[}\]])`)
	singleQuoted   = regexp.MustCompile(`'([^']*)'`)
	unquotedKey    = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)(\s*:)`)
	windowsPathRaw = regexp.MustCompile(`"([A-Za-z]:\\[^"]*)"`)
)

// Repair attempts a sequence of textual repairs commonly needed to recover
// JSON an LLM produced slightly wrong: trailing commas before a closing
// bracket, single-quoted strings, unquoted object keys, and Windows-path
// backslashes inside double-quoted values (the same fix the teacher applies
// to YAML, generalized to JSON).
func Repair(s string) string {
	s = trailingComma.ReplaceAllString(s, "$1")
	s = windowsPathRaw.ReplaceAllStringFunc(s, func(match string) string {
		inner := match[1 : len(match)-1]
		return `"` + strings.ReplaceAll(inner, `\`, `/`) + `"`
	})
	s = unquotedKey.ReplaceAllString(s, `$1"$2"$3`)
	s = singleQuoted.ReplaceAllString(s, `"$1"`)
	return s
}
