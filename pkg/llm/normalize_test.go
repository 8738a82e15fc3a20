package llm

import (
	"testing"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestNormalizeTextPriority(t *testing.T) {
	tests := []struct {
		name   string
		delta  RawTextDelta
		want   string
		wantOK bool
	}{
		{
			name:   "top-level text wins",
			delta:  RawTextDelta{Text: strPtr("a"), Delta: &RawNestedDelta{Content: strPtr("b")}, Content: strPtr("c")},
			want:   "a",
			wantOK: true,
		},
		{
			name:   "nested content beats nested text",
			delta:  RawTextDelta{Delta: &RawNestedDelta{Content: strPtr("b"), Text: strPtr("x")}},
			want:   "b",
			wantOK: true,
		},
		{
			name:   "nested text",
			delta:  RawTextDelta{Delta: &RawNestedDelta{Text: strPtr("x")}},
			want:   "x",
			wantOK: true,
		},
		{
			name:   "top-level content last",
			delta:  RawTextDelta{Content: strPtr("c")},
			want:   "c",
			wantOK: true,
		},
		{
			name:   "empty delta",
			delta:  RawTextDelta{},
			wantOK: false,
		},
		{
			name:   "whitespace only",
			delta:  RawTextDelta{Text: strPtr("   \n")},
			wantOK: false,
		},
		{
			name:   "present but empty does not fall through",
			delta:  RawTextDelta{Text: strPtr(""), Content: strPtr("c")},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, ok := NormalizeText(tt.delta)
			if ok != tt.wantOK {
				t.Fatalf("ok = %t, want %t", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if event.Type != EventText {
				t.Errorf("type = %s, want %s", event.Type, EventText)
			}
			if event.Content != tt.want {
				t.Errorf("content = %q, want %q", event.Content, tt.want)
			}
		})
	}
}

func TestNormalizeReasoningPriority(t *testing.T) {
	tests := []struct {
		name   string
		delta  RawReasoningDelta
		want   string
		wantOK bool
	}{
		{
			name:   "top-level reasoning wins",
			delta:  RawReasoningDelta{Reasoning: strPtr("a"), ReasoningContent: strPtr("b")},
			want:   "a",
			wantOK: true,
		},
		{
			name:   "nested reasoning",
			delta:  RawReasoningDelta{Delta: &RawNestedDelta{Reasoning: strPtr("n")}},
			want:   "n",
			wantOK: true,
		},
		{
			name:   "reasoning_content",
			delta:  RawReasoningDelta{ReasoningContent: strPtr("rc")},
			want:   "rc",
			wantOK: true,
		},
		{
			name: "details joined with newlines",
			delta: RawReasoningDelta{Details: []RawReasoningDetail{
				{Text: " first "},
				{Text: ""},
				{Text: "second"},
			}},
			want:   "first\nsecond",
			wantOK: true,
		},
		{
			name:   "all details empty",
			delta:  RawReasoningDelta{Details: []RawReasoningDetail{{Text: "  "}, {Text: ""}}},
			wantOK: false,
		},
		{
			name:   "empty delta",
			delta:  RawReasoningDelta{},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, ok := NormalizeReasoning(tt.delta)
			if ok != tt.wantOK {
				t.Fatalf("ok = %t, want %t", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if event.Type != EventReasoning {
				t.Errorf("type = %s, want %s", event.Type, EventReasoning)
			}
			if event.Content != tt.want {
				t.Errorf("content = %q, want %q", event.Content, tt.want)
			}
		})
	}
}

func TestNormalizeToolCall(t *testing.T) {
	t.Run("complete call", func(t *testing.T) {
		event, ok := NormalizeToolCall(RawToolCall{
			ID:        "call-1",
			Name:      "read_file",
			Arguments: `{"path": "main.go"}`,
		})
		if !ok {
			t.Fatal("expected an event")
		}
		if event.Type != EventToolCall {
			t.Errorf("type = %s", event.Type)
		}
		if event.ToolCallID != "call-1" || event.ToolName != "read_file" {
			t.Errorf("id/name = %q/%q", event.ToolCallID, event.ToolName)
		}
		if event.ToolInput["path"] != "main.go" {
			t.Errorf("input = %+v", event.ToolInput)
		}
	})

	t.Run("name from nested function", func(t *testing.T) {
		event, ok := NormalizeToolCall(RawToolCall{
			ID:       "call-2",
			Function: &RawFunctionCall{Name: "grep", Arguments: `{"pattern": "x"}`},
		})
		if !ok {
			t.Fatal("expected an event")
		}
		if event.ToolName != "grep" {
			t.Errorf("name = %q", event.ToolName)
		}
		if event.ToolInput["pattern"] != "x" {
			t.Errorf("input = %+v", event.ToolInput)
		}
	})

	t.Run("missing id is generated", func(t *testing.T) {
		first, ok := NormalizeToolCall(RawToolCall{Name: "ls"})
		if !ok {
			t.Fatal("expected an event")
		}
		second, _ := NormalizeToolCall(RawToolCall{Name: "ls"})
		if first.ToolCallID == "" {
			t.Error("id should be generated")
		}
		if first.ToolCallID == second.ToolCallID {
			t.Error("generated ids should be unique")
		}
	})

	t.Run("no name no event", func(t *testing.T) {
		if _, ok := NormalizeToolCall(RawToolCall{ID: "call-3", Arguments: `{}`}); ok {
			t.Error("nameless call should produce no event")
		}
	})

	t.Run("decoded input passes through", func(t *testing.T) {
		event, _ := NormalizeToolCall(RawToolCall{
			Name:      "edit",
			Input:     map[string]any{"line": 3},
			Arguments: `{"ignored": true}`,
		})
		if event.ToolInput["line"] != 3 {
			t.Errorf("input = %+v", event.ToolInput)
		}
	})

	t.Run("unparseable arguments degrade to empty object", func(t *testing.T) {
		event, _ := NormalizeToolCall(RawToolCall{Name: "bash", Arguments: `{"cmd": `})
		if event.ToolInput == nil || len(event.ToolInput) != 0 {
			t.Errorf("input = %+v, want empty map", event.ToolInput)
		}
	})
}

func TestNormalizeUsage(t *testing.T) {
	tests := []struct {
		name string
		raw  RawUsage
		want Usage
	}{
		{
			name: "anthropic style",
			raw:  RawUsage{InputTokens: intPtr(10), OutputTokens: intPtr(20)},
			want: Usage{InputTokens: 10, OutputTokens: 20},
		},
		{
			name: "openai style",
			raw:  RawUsage{PromptTokens: intPtr(5), CompletionTokens: intPtr(7)},
			want: Usage{InputTokens: 5, OutputTokens: 7},
		},
		{
			name: "input beats prompt when both present",
			raw:  RawUsage{InputTokens: intPtr(1), PromptTokens: intPtr(99), OutputTokens: intPtr(2)},
			want: Usage{InputTokens: 1, OutputTokens: 2},
		},
		{
			name: "cache counts pass through",
			raw:  RawUsage{InputTokens: intPtr(10), OutputTokens: intPtr(1), CacheReadTokens: intPtr(8), CacheWriteTokens: intPtr(2)},
			want: Usage{InputTokens: 10, OutputTokens: 1, CacheReadTokens: 8, CacheWriteTokens: 2},
		},
		{
			name: "missing counts default to zero",
			raw:  RawUsage{},
			want: Usage{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := NormalizeUsage(tt.raw)
			if event.Type != EventUsage {
				t.Fatalf("type = %s", event.Type)
			}
			if event.Usage == nil {
				t.Fatal("usage should be set")
			}
			if *event.Usage != tt.want {
				t.Errorf("usage = %+v, want %+v", *event.Usage, tt.want)
			}
		})
	}
}

func TestParseToolInput(t *testing.T) {
	tests := []struct {
		name string
		args string
		key  string
		want any
	}{
		{"plain object", `{"a": 1}`, "a", float64(1)},
		{"fenced block", "```json\n{\"b\": \"x\"}\n```", "b", "x"},
		{"prose wrapped", `The arguments are {"c": true} as requested.`, "c", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := ParseToolInput(tt.args)
			if input[tt.key] != tt.want {
				t.Errorf("input = %+v, want %s=%v", input, tt.key, tt.want)
			}
		})
	}

	t.Run("empty and garbage become empty objects", func(t *testing.T) {
		for _, args := range []string{"", "   ", "not json", `{"broken": `, `[1, 2]`} {
			input := ParseToolInput(args)
			if input == nil {
				t.Errorf("ParseToolInput(%q) returned nil", args)
			}
			if len(input) != 0 {
				t.Errorf("ParseToolInput(%q) = %+v, want empty map", args, input)
			}
		}
	})
}
