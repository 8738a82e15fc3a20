package llm

import (
	"encoding/json"
	"fmt"

	"github.com/swaggest/jsonschema-go"
)

// SchemaFromStruct generates a JSON Schema from a Go struct using the
// swaggest/jsonschema-go reflector. Tool parameter schemas are the main
// consumer; see NewToolFromStruct.
//
// Example:
//
//	type ReadFileArgs struct {
//	    Path  string `json:"path" jsonschema:"required" description:"File path to read"`
//	    Limit int    `json:"limit,omitempty" minimum:"0"`
//	}
//	schema, err := SchemaFromStruct(ReadFileArgs{})
func SchemaFromStruct(structType interface{}) (interface{}, error) {
	reflector := jsonschema.Reflector{}

	schema, err := reflector.Reflect(structType)
	if err != nil {
		return nil, fmt.Errorf("failed to reflect struct to JSON schema: %w", err)
	}

	return schema, nil
}

// SchemaFromStructAsMap generates a JSON Schema as map[string]interface{}
// from a Go struct, for providers that take schemas as generic maps.
func SchemaFromStructAsMap(structType interface{}) (map[string]interface{}, error) {
	schema, err := SchemaFromStruct(structType)
	if err != nil {
		return nil, err
	}

	jsonBytes, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema to JSON: %w", err)
	}

	var schemaMap map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &schemaMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema JSON to map: %w", err)
	}

	return schemaMap, nil
}

// NewToolFromStruct creates a Tool whose parameter schema is reflected from
// a Go struct, so argument documents assembled from tool-call deltas can be
// decoded straight into the same struct.
func NewToolFromStruct(name, description string, structType interface{}) (Tool, error) {
	schema, err := SchemaFromStructAsMap(structType)
	if err != nil {
		return Tool{}, fmt.Errorf("failed to generate schema for tool %s: %w", name, err)
	}

	return NewTool(name, description, schema), nil
}
