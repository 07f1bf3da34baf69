package agent

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// mcpSchema describes the shape of an MCP server configuration file as the
// Claude Code CLI accepts it: a top-level mcpServers object mapping server
// names to command/url definitions.
const mcpSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["mcpServers"],
	"properties": {
		"mcpServers": {
			"type": "object",
			"minProperties": 1,
			"additionalProperties": {
				"type": "object",
				"properties": {
					"command": {"type": "string"},
					"args": {"type": "array", "items": {"type": "string"}},
					"env": {"type": "object", "additionalProperties": {"type": "string"}},
					"url": {"type": "string"},
					"type": {"type": "string", "enum": ["stdio", "sse", "http"]}
				},
				"anyOf": [
					{"required": ["command"]},
					{"required": ["url"]}
				]
			}
		}
	}
}`

// ValidateMCPFile checks that an MCP server configuration file is valid
// JSON matching the expected schema. Called at startup for every zone that
// references one; a failure here is a configuration error and fatal.
func ValidateMCPFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read MCP server file '%s': %w", path, err)
	}

	schemaDoc, err := jsonschema.UnmarshalJSON(strings.NewReader(mcpSchema))
	if err != nil {
		return fmt.Errorf("failed to parse MCP schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("mcp-config.schema.json", schemaDoc); err != nil {
		return fmt.Errorf("failed to register MCP schema: %w", err)
	}
	schema, err := compiler.Compile("mcp-config.schema.json")
	if err != nil {
		return fmt.Errorf("failed to compile MCP schema: %w", err)
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("MCP server file '%s' is not valid JSON: %w", path, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("MCP server file '%s' failed validation: %w", path, err)
	}
	return nil
}
