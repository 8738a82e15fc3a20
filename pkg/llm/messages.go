// Message types for provider-agnostic conversations
package llm

// MessageRole defines the role of a message participant
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// Message represents a single conversation turn. Content is plain text;
// assistant turns may additionally carry tool calls, and tool turns carry
// the id of the call they answer.
type Message struct {
	Role       MessageRole `json:"role"`
	Content    string      `json:"content,omitempty"`
	Reasoning  string      `json:"reasoning,omitempty"`
	ToolCalls  []ToolCall  `json:"tool_calls,omitempty"`
	ToolCallID string      `json:"tool_call_id,omitempty"`
}

// NewTextMessage creates a message with plain text content
func NewTextMessage(role MessageRole, text string) Message {
	return Message{Role: role, Content: text}
}

// NewToolResultMessage creates a tool-role message answering a tool call
func NewToolResultMessage(toolCallID, result string) Message {
	return Message{Role: RoleTool, ToolCallID: toolCallID, Content: result}
}

// HasToolCalls checks if the message contains any tool calls
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// GetToolCallByName returns the first tool call with the given name
func (m Message) GetToolCallByName(name string) (*ToolCall, bool) {
	for i := range m.ToolCalls {
		if m.ToolCalls[i].Name == name {
			return &m.ToolCalls[i], true
		}
	}
	return nil, false
}
