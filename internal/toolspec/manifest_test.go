package toolspec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestScanDir_MissingToolsDirIsNotAnError(t *testing.T) {
	defs, errs := ScanDir(t.TempDir())
	assert.Empty(t, defs)
	assert.Empty(t, errs)
}

func TestScanDir_LoadsValidManifest(t *testing.T) {
	ws := t.TempDir()
	writeManifest(t, filepath.Join(ws, "tools"), "word_count.yaml", `
name: word_count
description: Count words in a file.
category: text
capabilities: [read_only, fast]
parameters:
  path:
    type: string
    description: file to count
    required: true
command: "wc -w {{.path}}"
`)

	defs, errs := ScanDir(ws)
	require.Empty(t, errs)
	require.Len(t, defs, 1)
	assert.Equal(t, "word_count", defs[0].Name)
	assert.Equal(t, "wc -w {{.path}}", defs[0].Command)
}

func TestScanDir_CollectsErrorsWithoutAbortingScan(t *testing.T) {
	ws := t.TempDir()
	toolsDir := filepath.Join(ws, "tools")
	writeManifest(t, toolsDir, "bad.yaml", "name: missing_fields\n")
	writeManifest(t, toolsDir, "good.yaml", `
name: good_tool
description: a fine tool
command: "echo hi"
`)

	defs, errs := ScanDir(ws)
	require.Len(t, errs, 1)
	require.Len(t, defs, 1)
	assert.Equal(t, "good_tool", defs[0].Name)
}

func TestManifestTool_Metadata_MapsRequiredParameters(t *testing.T) {
	def := &Def{
		Name:        "greet",
		Description: "says hi",
		Command:     "echo hi {{.name}}",
		Parameters: map[string]ParamDef{
			"name": {Type: "string", Required: true},
		},
		Capabilities: []string{"read_only", "not_a_real_capability"},
	}
	mt, err := New(def)
	require.NoError(t, err)

	meta := mt.Metadata()
	assert.Equal(t, []string{"name"}, meta.Required)
	assert.Len(t, meta.Capabilities, 1, "unrecognized capability should be skipped")
}

func TestManifestTool_New_RejectsUnparsableTemplate(t *testing.T) {
	def := &Def{Name: "bad", Description: "x", Command: "echo {{.unterminated"}
	_, err := New(def)
	assert.Error(t, err)
}
