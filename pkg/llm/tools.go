// Tool definition types for function calling
package llm

// Tool defines a function the model may invoke
type Tool struct {
	Type     string       `json:"type"` // always "function" for current providers
	Function ToolFunction `json:"function"`
}

// ToolFunction describes the callable function behind a tool
type ToolFunction struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Parameters  interface{} `json:"parameters,omitempty"` // JSON Schema object
}

// NewTool creates a function tool with the given name, description and
// JSON Schema parameters (see SchemaFromStruct for generating the schema)
func NewTool(name, description string, parameters interface{}) Tool {
	return Tool{
		Type: "function",
		Function: ToolFunction{
			Name:        name,
			Description: description,
			Parameters:  parameters,
		},
	}
}
