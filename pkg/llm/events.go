// Package llm provides abstractions for Large Language Model clients
// events.go defines the canonical streaming event model

package llm

// EventType identifies the kind of canonical stream event
type EventType string

const (
	// EventText carries an increment of assistant-visible text
	EventText EventType = "text"
	// EventReasoning carries an increment of hidden "thinking" text
	EventReasoning EventType = "reasoning"
	// EventToolCallStart opens a three-phase tool-call assembly
	EventToolCallStart EventType = "tool_call_start"
	// EventToolCallDelta carries a fragment of a tool call's JSON arguments
	EventToolCallDelta EventType = "tool_call_delta"
	// EventToolCallEnd closes a three-phase tool-call assembly
	EventToolCallEnd EventType = "tool_call_end"
	// EventToolCall carries a whole tool call emitted atomically
	EventToolCall EventType = "tool_call"
	// EventUsage carries a token-usage snapshot
	EventUsage EventType = "usage"
	// EventEnd terminates the completion with a stop reason
	EventEnd EventType = "end"
	// EventError terminates the completion with an in-band failure
	EventError EventType = "error"
)

// StopReason indicates why the model stopped generating
type StopReason string

const (
	StopReasonEndTurn      StopReason = "end_turn"
	StopReasonToolUse      StopReason = "tool_use"
	StopReasonMaxTokens    StopReason = "max_tokens"
	StopReasonStopSequence StopReason = "stop_sequence"
	StopReasonError        StopReason = "error"
)

// StreamEvent represents a single canonical event in a streaming completion.
// Exactly one EventEnd (or terminal EventError) is emitted per logical
// completion; no events follow it.
type StreamEvent struct {
	Type EventType `json:"type"`

	// Content holds the text or reasoning delta for EventText/EventReasoning
	Content string `json:"content,omitempty"`

	// Tool-call fields. ToolCallID is stable and unique within one completion
	// and correlates start/delta/end events (or keys an atomic tool_call).
	ToolCallID        string         `json:"tool_call_id,omitempty"`
	ToolName          string         `json:"tool_name,omitempty"`
	ArgumentsFragment string         `json:"arguments_fragment,omitempty"`
	ToolInput         map[string]any `json:"tool_input,omitempty"`

	Usage      *Usage           `json:"usage,omitempty"`
	StopReason StopReason       `json:"stop_reason,omitempty"`
	Err        *StructuredError `json:"error,omitempty"`
}

// IsText returns true if this is a text delta event
func (e StreamEvent) IsText() bool {
	return e.Type == EventText
}

// IsReasoning returns true if this is a reasoning delta event
func (e StreamEvent) IsReasoning() bool {
	return e.Type == EventReasoning
}

// IsToolCall returns true for any of the tool-call event kinds
func (e StreamEvent) IsToolCall() bool {
	switch e.Type {
	case EventToolCall, EventToolCallStart, EventToolCallDelta, EventToolCallEnd:
		return true
	}
	return false
}

// IsEnd returns true if this is an end event
func (e StreamEvent) IsEnd() bool {
	return e.Type == EventEnd
}

// IsError returns true if this is an error event
func (e StreamEvent) IsError() bool {
	return e.Type == EventError && e.Err != nil
}

// IsTerminal returns true if no further events may follow this one
func (e StreamEvent) IsTerminal() bool {
	return e.Type == EventEnd || e.Type == EventError
}

// NewTextEvent creates a new text delta event
func NewTextEvent(content string) StreamEvent {
	return StreamEvent{Type: EventText, Content: content}
}

// NewReasoningEvent creates a new reasoning delta event
func NewReasoningEvent(content string) StreamEvent {
	return StreamEvent{Type: EventReasoning, Content: content}
}

// NewToolCallStartEvent creates the opening event of a tool-call assembly
func NewToolCallStartEvent(id, name string) StreamEvent {
	return StreamEvent{Type: EventToolCallStart, ToolCallID: id, ToolName: name}
}

// NewToolCallDeltaEvent creates an argument-fragment event for a tool call.
// Some providers repeat the tool name on deltas; pass "" when absent.
func NewToolCallDeltaEvent(id, name, fragment string) StreamEvent {
	return StreamEvent{Type: EventToolCallDelta, ToolCallID: id, ToolName: name, ArgumentsFragment: fragment}
}

// NewToolCallEndEvent creates the closing event of a tool-call assembly
func NewToolCallEndEvent(id string) StreamEvent {
	return StreamEvent{Type: EventToolCallEnd, ToolCallID: id}
}

// NewToolCallEvent creates an atomic whole-call event for providers that
// emit complete tool calls in a single chunk
func NewToolCallEvent(id, name string, input map[string]any) StreamEvent {
	return StreamEvent{Type: EventToolCall, ToolCallID: id, ToolName: name, ToolInput: input}
}

// NewUsageEvent creates a new usage snapshot event
func NewUsageEvent(usage Usage) StreamEvent {
	return StreamEvent{Type: EventUsage, Usage: &usage}
}

// NewEndEvent creates the terminal event for a completion
func NewEndEvent(reason StopReason) StreamEvent {
	return StreamEvent{Type: EventEnd, StopReason: reason}
}

// NewErrorEvent creates a terminal in-band error event
func NewErrorEvent(err *StructuredError) StreamEvent {
	return StreamEvent{Type: EventError, StopReason: StopReasonError, Err: err}
}
