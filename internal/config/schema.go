package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	kerrors "github.com/x45dev/keyops/internal/errors"
)

// settingsSchema validates the keyops.yaml structure before unmarshaling,
// so typos surface as field-level messages instead of silent zero values.
const settingsSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "expiry_days":     {"type": "integer", "minimum": 1},
    "rekey_globs":     {"type": "array", "items": {"type": "string", "minLength": 1}},
    "audit_globs":     {"type": "array", "items": {"type": "string", "minLength": 1}},
    "redact_globs":    {"type": "array", "items": {"type": "string", "minLength": 1}},
    "extensions":      {"type": "array", "items": {"type": "string", "pattern": "^\\."}},
    "output_dir":      {"type": "string", "minLength": 1},
    "redact_marker":   {"type": "string", "minLength": 1},
    "tool_timeout_ms": {"type": "integer", "minimum": 100},
    "age_key_file":    {"type": "string"},
    "gnupg_home":      {"type": "string"}
  }
}`

// ValidateSchema checks raw keyops.yaml content against the settings schema.
func ValidateSchema(data []byte) error {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return kerrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters",
		}
	}
	if doc == nil {
		// Empty file, nothing to validate.
		return nil
	}

	jsonDoc, err := json.Marshal(normalizeYAML(doc))
	if err != nil {
		return fmt.Errorf("failed to convert configuration for validation: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(settingsSchema),
		gojsonschema.NewBytesLoader(jsonDoc),
	)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return kerrors.ConfigError{
			Field:      "keyops.yaml",
			Message:    strings.Join(problems, "; "),
			Suggestion: "Valid keys: expiry_days, rekey_globs, audit_globs, redact_globs, extensions, output_dir, redact_marker, tool_timeout_ms, age_key_file, gnupg_home",
		}
	}

	return nil
}

// normalizeYAML converts yaml.v3 map[interface{}]interface{} trees (possible
// in nested documents) into JSON-marshalable map[string]interface{}.
func normalizeYAML(v interface{}) interface{} {
	switch val := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[fmt.Sprintf("%v", k)] = normalizeYAML(item)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = normalizeYAML(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = normalizeYAML(item)
		}
		return out
	default:
		return v
	}
}
