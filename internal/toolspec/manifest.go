// Package toolspec loads declarative tool definitions from YAML manifest
// files under a workspace's tools/ directory and adapts each into a
// tool.Tool the Registry can dispatch like any builtin. A Watcher keeps the
// Registry in sync as manifest files are added, edited, or removed.
package toolspec

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/pocketomega/agentrt/agentcore"
)

const manifestDir = "tools"

// ParamDef describes one declared argument in a manifest's parameters block.
type ParamDef struct {
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
	Required    bool   `yaml:"required"`
}

// Def is one tool manifest: everything ManifestTool needs to register as a
// tool.Tool and to shell out when dispatched.
type Def struct {
	Name         string              `yaml:"name"`
	Description  string              `yaml:"description"`
	Category     string              `yaml:"category"`
	Capabilities []string            `yaml:"capabilities"`
	Parameters   map[string]ParamDef `yaml:"parameters"`
	Command      string              `yaml:"command"` // text/template source; fields are the declared parameter names
	Path         string              `yaml:"-"`        // absolute path of the manifest file this Def was loaded from
}

// Capabilities as the agentcore type, skipping any name this runtime does
// not recognize rather than failing the whole manifest.
func (d *Def) capabilities() []agentcore.Capability {
	known := map[string]agentcore.Capability{
		"read_only":  agentcore.CapabilityReadOnly,
		"writable":   agentcore.CapabilityWritable,
		"destructive": agentcore.CapabilityDestructive,
		"network":    agentcore.CapabilityNetwork,
		"expensive":  agentcore.CapabilityExpensive,
		"fast":       agentcore.CapabilityFast,
		"batchable":  agentcore.CapabilityBatchable,
		"streaming":  agentcore.CapabilityStreaming,
	}
	out := make([]agentcore.Capability, 0, len(d.Capabilities))
	for _, c := range d.Capabilities {
		if ac, ok := known[c]; ok {
			out = append(out, ac)
		}
	}
	return out
}

func (d *Def) validate() error {
	if d.Name == "" {
		return fmt.Errorf("toolspec: manifest %q: name is required", d.Path)
	}
	if d.Description == "" {
		return fmt.Errorf("toolspec: manifest %q: description is required", d.Path)
	}
	if d.Command == "" {
		return fmt.Errorf("toolspec: manifest %q: command is required", d.Path)
	}
	return nil
}

// ScanDir reads every *.yaml/*.yml file under <workspaceDir>/tools/ and
// returns the Defs that parse and validate. A missing tools/ directory is
// not an error — it returns an empty slice. Per-file errors are collected
// rather than aborting the scan, so one bad manifest does not hide the rest.
func ScanDir(workspaceDir string) ([]*Def, []error) {
	dir := filepath.Join(workspaceDir, manifestDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, []error{fmt.Errorf("toolspec: scan %q: %w", dir, err)}
	}

	var defs []*Def
	var errs []error
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		def, err := loadFile(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		defs = append(defs, def)
	}
	return defs, errs
}

func loadFile(path string) (*Def, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("toolspec: read %q: %w", path, err)
	}
	var def Def
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("toolspec: parse %q: %w", path, err)
	}
	def.Path = path
	if err := def.validate(); err != nil {
		return nil, err
	}
	return &def, nil
}
