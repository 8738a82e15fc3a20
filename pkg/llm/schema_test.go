package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchArgs struct {
	Pattern string `json:"pattern" jsonschema:"required" description:"Regex pattern to search for"`
	Path    string `json:"path,omitempty" description:"Directory to search in"`
	Limit   int    `json:"limit,omitempty" minimum:"1"`
}

func TestSchemaFromStructAsMap(t *testing.T) {
	schemaMap, err := SchemaFromStructAsMap(searchArgs{})
	require.NoError(t, err)

	properties, ok := schemaMap["properties"].(map[string]interface{})
	require.True(t, ok, "schema should expose properties")

	assert.Contains(t, properties, "pattern")
	assert.Contains(t, properties, "path")
	assert.Contains(t, properties, "limit")
}

func TestNewToolFromStruct(t *testing.T) {
	tool, err := NewToolFromStruct("search", "Search file contents", searchArgs{})
	require.NoError(t, err)

	assert.Equal(t, "function", tool.Type)
	assert.Equal(t, "search", tool.Function.Name)
	assert.Equal(t, "Search file contents", tool.Function.Description)
	require.NotNil(t, tool.Function.Parameters)

	params, ok := tool.Function.Parameters.(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, params, "properties")
}
