// Core request and response types
package llm

import "encoding/json"

// ChatRequest represents a chat completion request (provider-agnostic)
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Tools       []Tool    `json:"tools,omitempty"`
	Temperature *float32  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
	TopP        *float32  `json:"top_p,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

// ChatResponse represents a chat completion response (provider-agnostic)
type ChatResponse struct {
	ID         string     `json:"id"`
	Model      string     `json:"model"`
	Message    Message    `json:"message"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	StopReason StopReason `json:"stop_reason,omitempty"`
	Usage      Usage      `json:"usage,omitempty"`
}

// Usage represents canonical token usage information. Providers that report
// prompt/completion counts are mapped onto input/output by the normalizers.
type Usage struct {
	InputTokens      int `json:"input_tokens"`
	OutputTokens     int `json:"output_tokens"`
	CacheReadTokens  int `json:"cache_read_tokens,omitempty"`
	CacheWriteTokens int `json:"cache_write_tokens,omitempty"`
}

// IsZero reports whether both primary token counts are unset
func (u Usage) IsZero() bool {
	return u.InputTokens == 0 && u.OutputTokens == 0
}

// TotalTokens returns the combined input and output token count
func (u Usage) TotalTokens() int {
	return u.InputTokens + u.OutputTokens
}

// ToolCall represents a finalized tool invocation requested by the model
type ToolCall struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// InputJSON renders the call input as a JSON document, "{}" when empty
func (t ToolCall) InputJSON() string {
	if len(t.Input) == 0 {
		return "{}"
	}
	data, err := json.Marshal(t.Input)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// WantsToolExecution checks if this response asks the caller to execute tools
func (r ChatResponse) WantsToolExecution() bool {
	return r.StopReason == StopReasonToolUse || len(r.ToolCalls) > 0
}

// IsComplete checks if this response is final and requires no tool execution
func (r ChatResponse) IsComplete() bool {
	return r.StopReason == StopReasonEndTurn || r.StopReason == StopReasonMaxTokens ||
		r.StopReason == StopReasonStopSequence
}
