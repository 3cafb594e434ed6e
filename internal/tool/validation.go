package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/pocketomega/agentrt/agentcore"
)

// buildJSONSchema renders a ToolMetadata's declared parameters as a JSON
// Schema document, suitable for compilation by jsonschema.Compiler.
func buildJSONSchema(meta agentcore.ToolMetadata) map[string]any {
	properties := make(map[string]any, len(meta.Properties))
	for name, p := range meta.Properties {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		properties[name] = prop
	}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(meta.Required) > 0 {
		schema["required"] = meta.Required
	}
	return schema
}

// validateSchema is pipeline stage 1: required parameters present, unknown
// parameters allowed but warned, each value's shape matches its declared
// type. It compiles the tool's declared parameter schema fresh on every call
// via santhosh-tekuri/jsonschema/v6 — tool schemas are small and validation
// is off the hot path relative to an LLM round trip, so there is no need to
// cache compiled schemas.
func validateSchema(meta agentcore.ToolMetadata, args map[string]any) ValidationResult {
	schemaDoc := buildJSONSchema(meta)

	c := jsonschema.NewCompiler()
	resourceName := "tool:" + meta.Name
	if err := c.AddResource(resourceName, schemaDoc); err != nil {
		return invalid(fmt.Sprintf("internal schema error for tool %q: %v", meta.Name, err))
	}
	compiled, err := c.Compile(resourceName)
	if err != nil {
		return invalid(fmt.Sprintf("internal schema compile error for tool %q: %v", meta.Name, err))
	}

	// jsonschema.Validate works against decoded JSON values (map[string]any
	// with JSON-compatible leaves), so round-trip args through encoding/json
	// to normalize them (e.g. int -> float64) the same way a wire payload
	// would arrive.
	raw, err := json.Marshal(args)
	if err != nil {
		return invalid(fmt.Sprintf("arguments not JSON-serializable: %v", err))
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return invalid(fmt.Sprintf("arguments not JSON-decodable: %v", err))
	}

	result := valid()
	if err := compiled.Validate(decoded); err != nil {
		result = invalid(err.Error())
	}

	for name := range args {
		if _, declared := meta.Properties[name]; !declared {
			result.Warnings = append(result.Warnings, fmt.Sprintf("unknown parameter %q", name))
		}
	}
	return result
}

// dangerousFunctionNames flags argument strings that name functions commonly
// used to break out of an intended sandbox.
var dangerousFunctionNames = []string{
	"eval(", "exec(", "os.system", "subprocess.", "__import__", "child_process",
}

// injectionSigils flags template/script injection markers in argument
// strings.
var injectionSigils = []string{"{{", "${", "<script", "$(", "`"}

// validateSecurity is pipeline stage 2: flags path-traversal markers,
// injection sigils, and dangerous function names in string arguments; hard
// errors a ".." path segment for any writable-capability tool.
func validateSecurity(meta agentcore.ToolMetadata, args map[string]any) ValidationResult {
	result := valid()
	writable := agentcore.HasCapability(meta.Capabilities, agentcore.CapabilityWritable) ||
		agentcore.HasCapability(meta.Capabilities, agentcore.CapabilityDestructive)

	for name, v := range args {
		s, ok := v.(string)
		if !ok {
			continue
		}
		isPathLike := strings.Contains(strings.ToLower(name), "path") || strings.Contains(strings.ToLower(name), "file")

		if isPathLike && strings.Contains(s, "..") {
			if writable {
				result = result.Merge(invalid(fmt.Sprintf("path argument %q contains '..' segment, rejected for writable tool %q", name, meta.Name)))
			} else {
				result.Warnings = append(result.Warnings, fmt.Sprintf("path argument %q contains '..' segment", name))
			}
		}
		for _, sigil := range injectionSigils {
			if strings.Contains(s, sigil) {
				result.Warnings = append(result.Warnings, fmt.Sprintf("argument %q contains possible injection sigil %q", name, sigil))
			}
		}
		for _, fn := range dangerousFunctionNames {
			if strings.Contains(s, fn) {
				result.Warnings = append(result.Warnings, fmt.Sprintf("argument %q references dangerous function %q", name, fn))
			}
		}
	}
	return result
}

// runValidationPipeline runs all four validation stages in order and
// accumulates their results. Stages 3 (business logic) and 4 (resources)
// are delegated to the tool itself via ValidateInput; a tool with no
// special rules returns a passing result for both, satisfying the spec's
// "default no-op" requirement without any special-casing here.
func runValidationPipeline(ctx context.Context, t Tool, args map[string]any, wsCtx agentcore.Context) ValidationResult {
	meta := t.Metadata()
	result := validateSchema(meta, args)
	result = result.Merge(validateSecurity(meta, args))
	result = result.Merge(t.ValidateInput(ctx, args, wsCtx))
	return result
}
