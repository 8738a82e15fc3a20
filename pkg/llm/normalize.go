// Normalizers mapping provider-native delta shapes to canonical events.
//
// Providers disagree about where a text increment lives ({"text": ...},
// {"delta": {"content": ...}}, {"delta": {"text": ...}}, {"content": ...})
// and about field names for reasoning and usage. Adapters decode their SDK's
// chunk into the explicit Raw* records below and the normalizers resolve the
// fields in a fixed priority order. Normalizers never return errors:
// malformed deltas are common, not exceptional, so "nothing happened" is an
// ordinary comma-ok result.
package llm

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// RawNestedDelta is the nested {"delta": {...}} object some providers wrap
// their increments in. Nil pointers mean the field was absent on the wire,
// which is distinct from present-but-empty.
type RawNestedDelta struct {
	Content   *string
	Text      *string
	Reasoning *string
}

// RawTextDelta is the union of text-delta field layouts.
type RawTextDelta struct {
	Text    *string
	Delta   *RawNestedDelta
	Content *string
}

// RawReasoningDetail is one fragment of a detail-array reasoning delta
// (the OpenRouter layout).
type RawReasoningDetail struct {
	Text string
}

// RawReasoningDelta is the union of reasoning-delta field layouts.
// ReasoningContent is the DeepSeek name; Details the OpenRouter array form.
type RawReasoningDelta struct {
	Reasoning        *string
	Delta            *RawNestedDelta
	ReasoningContent *string
	Details          []RawReasoningDetail
}

// RawToolCall is an atomically emitted whole tool call. Arguments may come
// as a decoded object (Input) or as a JSON-encoded string (Function or
// Arguments), and the name as a top-level field or nested function call.
type RawToolCall struct {
	ID        string
	Name      string
	Function  *RawFunctionCall
	Input     map[string]any
	Arguments string
}

// RawFunctionCall is the nested function-call layout used by
// OpenAI-compatible providers.
type RawFunctionCall struct {
	Name      string
	Arguments string
}

// RawUsage is the union of usage field conventions. Anthropic-style
// input/output names take priority over OpenAI-style prompt/completion.
type RawUsage struct {
	InputTokens      *int
	PromptTokens     *int
	OutputTokens     *int
	CompletionTokens *int
	CacheReadTokens  *int
	CacheWriteTokens *int
}

// NormalizeText converts a raw text delta to a canonical text event. The
// first present field wins: Text, Delta.Content, Delta.Text, Content.
// Whitespace-only payloads produce no event.
func NormalizeText(delta RawTextDelta) (StreamEvent, bool) {
	var content *string
	switch {
	case delta.Text != nil:
		content = delta.Text
	case delta.Delta != nil && delta.Delta.Content != nil:
		content = delta.Delta.Content
	case delta.Delta != nil && delta.Delta.Text != nil:
		content = delta.Delta.Text
	case delta.Content != nil:
		content = delta.Content
	default:
		return StreamEvent{}, false
	}
	if strings.TrimSpace(*content) == "" {
		return StreamEvent{}, false
	}
	return NewTextEvent(*content), true
}

// NormalizeReasoning converts a raw reasoning delta to a canonical
// reasoning event. Priority: Reasoning, Delta.Reasoning, ReasoningContent,
// then the detail-array form with fragments trimmed, filtered and joined
// with newlines.
func NormalizeReasoning(delta RawReasoningDelta) (StreamEvent, bool) {
	var content *string
	switch {
	case delta.Reasoning != nil:
		content = delta.Reasoning
	case delta.Delta != nil && delta.Delta.Reasoning != nil:
		content = delta.Delta.Reasoning
	case delta.ReasoningContent != nil:
		content = delta.ReasoningContent
	case len(delta.Details) > 0:
		fragments := make([]string, 0, len(delta.Details))
		for _, detail := range delta.Details {
			if trimmed := strings.TrimSpace(detail.Text); trimmed != "" {
				fragments = append(fragments, trimmed)
			}
		}
		if len(fragments) == 0 {
			return StreamEvent{}, false
		}
		joined := strings.Join(fragments, "\n")
		content = &joined
	default:
		return StreamEvent{}, false
	}
	if strings.TrimSpace(*content) == "" {
		return StreamEvent{}, false
	}
	return NewReasoningEvent(*content), true
}

// NormalizeToolCall converts an atomically emitted tool call to a canonical
// tool_call event. A missing id is replaced with a fresh unique one, the
// name may come from the top level or the nested function call, and
// JSON-encoded arguments fall back to an empty object when unparseable.
// Calls without any name produce no event.
func NormalizeToolCall(call RawToolCall) (StreamEvent, bool) {
	name := call.Name
	if name == "" && call.Function != nil {
		name = call.Function.Name
	}
	if name == "" {
		return StreamEvent{}, false
	}

	id := call.ID
	if id == "" {
		id = uuid.NewString()
	}

	input := call.Input
	if input == nil {
		arguments := call.Arguments
		if arguments == "" && call.Function != nil {
			arguments = call.Function.Arguments
		}
		input = ParseToolInput(arguments)
	}

	return NewToolCallEvent(id, name, input), true
}

// NormalizeUsage converts a raw usage snapshot to a canonical usage event.
// Missing counts default to zero; cache counts pass through when present.
func NormalizeUsage(usage RawUsage) StreamEvent {
	var canonical Usage
	switch {
	case usage.InputTokens != nil:
		canonical.InputTokens = *usage.InputTokens
	case usage.PromptTokens != nil:
		canonical.InputTokens = *usage.PromptTokens
	}
	switch {
	case usage.OutputTokens != nil:
		canonical.OutputTokens = *usage.OutputTokens
	case usage.CompletionTokens != nil:
		canonical.OutputTokens = *usage.CompletionTokens
	}
	if usage.CacheReadTokens != nil {
		canonical.CacheReadTokens = *usage.CacheReadTokens
	}
	if usage.CacheWriteTokens != nil {
		canonical.CacheWriteTokens = *usage.CacheWriteTokens
	}
	return NewUsageEvent(canonical)
}

// ParseToolInput decodes a JSON-encoded tool argument document. Sloppy
// provider output (markdown fences, trailing commentary) is salvaged via
// ExtractJSONFromResponse; anything still unparseable becomes an empty
// object rather than an error.
func ParseToolInput(arguments string) map[string]any {
	arguments = strings.TrimSpace(arguments)
	if arguments == "" {
		return map[string]any{}
	}
	var input map[string]any
	if err := json.Unmarshal([]byte(arguments), &input); err == nil && input != nil {
		return input
	}
	if err := json.Unmarshal([]byte(ExtractJSONFromResponse(arguments)), &input); err == nil && input != nil {
		return input
	}
	return map[string]any{}
}
