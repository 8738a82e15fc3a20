// Response accumulator folding a canonical event stream into a final result
package llm

import "strings"

// toolCallBuilder assembles one tool call from start/delta/end events
type toolCallBuilder struct {
	name      string
	arguments strings.Builder
	input     map[string]any // set only by an atomic tool_call event
}

// Accumulator consumes canonical events one at a time and materializes the
// completion on demand: concatenated text and reasoning, the last usage
// snapshot, the stop reason and the finalized tool calls. One accumulator
// owns its state exclusively; it is not safe for concurrent use, and Reset
// makes it reusable across completions.
type Accumulator struct {
	text       strings.Builder
	reasoning  strings.Builder
	tools      map[string]*toolCallBuilder
	toolOrder  []string
	usage      Usage
	stopReason StopReason
	err        *StructuredError
}

// NewAccumulator creates an empty accumulator
func NewAccumulator() *Accumulator {
	return &Accumulator{tools: make(map[string]*toolCallBuilder)}
}

// Process folds one event into the accumulated state
func (a *Accumulator) Process(event StreamEvent) {
	switch event.Type {
	case EventText:
		a.text.WriteString(event.Content)

	case EventReasoning:
		a.reasoning.WriteString(event.Content)

	case EventToolCallStart:
		builder := a.builderFor(event.ToolCallID)
		if builder.name == "" {
			builder.name = event.ToolName
		}

	case EventToolCallDelta:
		builder := a.builderFor(event.ToolCallID)
		builder.arguments.WriteString(event.ArgumentsFragment)
		// A name arriving mid-stream back-fills a nameless builder but
		// never overwrites one recorded at start.
		if builder.name == "" {
			builder.name = event.ToolName
		}

	case EventToolCallEnd:
		// Completion is acknowledged implicitly; the builder is only
		// materialized when ToolCalls is read.

	case EventToolCall:
		builder := a.builderFor(event.ToolCallID)
		if builder.name == "" {
			builder.name = event.ToolName
		}
		builder.input = event.ToolInput

	case EventUsage:
		if event.Usage != nil {
			a.usage = *event.Usage
		}

	case EventEnd:
		a.stopReason = event.StopReason

	case EventError:
		a.stopReason = StopReasonError
		a.err = event.Err
	}
}

// builderFor returns the builder for id, lazily creating it so that a
// delta arriving before its start event is still captured
func (a *Accumulator) builderFor(id string) *toolCallBuilder {
	if builder, ok := a.tools[id]; ok {
		return builder
	}
	builder := &toolCallBuilder{}
	a.tools[id] = builder
	a.toolOrder = append(a.toolOrder, id)
	return builder
}

// Text returns the assistant text accumulated so far, in arrival order
func (a *Accumulator) Text() string {
	return a.text.String()
}

// Reasoning returns the accumulated reasoning text, "" when the model
// emitted none
func (a *Accumulator) Reasoning() string {
	return a.reasoning.String()
}

// Usage returns the last usage snapshot, or nil if no usage was reported
func (a *Accumulator) Usage() *Usage {
	if a.usage.IsZero() {
		return nil
	}
	usage := a.usage
	return &usage
}

// StopReason returns the recorded stop reason. A stream that ended without
// an explicit end event is treated as a normal completion.
func (a *Accumulator) StopReason() StopReason {
	if a.stopReason == "" {
		return StopReasonEndTurn
	}
	return a.stopReason
}

// Err returns the terminal in-band error, nil for successful completions
func (a *Accumulator) Err() *StructuredError {
	return a.err
}

// ToolCalls materializes the finalized tool calls in first-seen order.
// Fragment-assembled arguments are parsed as JSON, degrading to an empty
// object when unparseable.
func (a *Accumulator) ToolCalls() []ToolCall {
	if len(a.toolOrder) == 0 {
		return nil
	}
	calls := make([]ToolCall, 0, len(a.toolOrder))
	for _, id := range a.toolOrder {
		builder := a.tools[id]
		input := builder.input
		if input == nil {
			input = ParseToolInput(builder.arguments.String())
		}
		calls = append(calls, ToolCall{ID: id, Name: builder.name, Input: input})
	}
	return calls
}

// Response materializes the accumulated state as a ChatResponse
func (a *Accumulator) Response(model string) *ChatResponse {
	toolCalls := a.ToolCalls()
	var usage Usage
	if u := a.Usage(); u != nil {
		usage = *u
	}
	return &ChatResponse{
		Model: model,
		Message: Message{
			Role:      RoleAssistant,
			Content:   a.Text(),
			Reasoning: a.Reasoning(),
			ToolCalls: toolCalls,
		},
		ToolCalls:  toolCalls,
		StopReason: a.StopReason(),
		Usage:      usage,
	}
}

// Reset clears all accumulated state so the instance can fold another
// completion without reallocating
func (a *Accumulator) Reset() {
	a.text.Reset()
	a.reasoning.Reset()
	a.tools = make(map[string]*toolCallBuilder)
	a.toolOrder = nil
	a.usage = Usage{}
	a.stopReason = ""
	a.err = nil
}
