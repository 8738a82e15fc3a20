package openai

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agentfold/go-llmstream/pkg/llm"
)

// newStreamServer replays chat completion chunks over SSE, terminated by the
// [DONE] sentinel, the way the OpenAI streaming endpoint does.
func newStreamServer(t *testing.T, chunks []string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, chunk := range chunks {
			fmt.Fprintf(w, "data: %s\n\n", chunk)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(server.Close)
	return server
}

func newStreamClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(llm.ClientConfig{APIKey: "test-key", BaseURL: baseURL, Model: "gpt-4o-mini"})
	if err != nil {
		t.Fatal(err)
	}
	return client
}

func collectStream(t *testing.T, client *Client) []llm.StreamEvent {
	t.Helper()
	src, err := client.StreamChatCompletion(context.Background(), llm.ChatRequest{
		Messages: []llm.Message{llm.NewTextMessage(llm.RoleUser, "hi")},
	})
	if err != nil {
		t.Fatal(err)
	}
	var events []llm.StreamEvent
	for event := range src.Events() {
		events = append(events, event)
	}
	return events
}

// With IncludeUsage the usage-only chunk arrives after the finish-reason
// chunk; the end event must still come last.
func TestStreamTrailingUsageOrderedBeforeEnd(t *testing.T) {
	server := newStreamServer(t, []string{
		`{"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":"Hello"}}]}`,
		`{"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
		`{"id":"1","object":"chat.completion.chunk","choices":[],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`,
	})

	events := collectStream(t, newStreamClient(t, server.URL))

	want := []llm.EventType{llm.EventText, llm.EventUsage, llm.EventEnd}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i, typ := range want {
		if events[i].Type != typ {
			t.Fatalf("event[%d] = %q, want %q", i, events[i].Type, typ)
		}
	}

	if events[1].Usage == nil || events[1].Usage.InputTokens != 10 || events[1].Usage.OutputTokens != 5 {
		t.Errorf("usage = %+v, want 10 in / 5 out", events[1].Usage)
	}
	if events[2].StopReason != llm.StopReasonEndTurn {
		t.Errorf("stop reason = %q, want %q", events[2].StopReason, llm.StopReasonEndTurn)
	}
}

func TestStreamToolCallFinishPrecedesTrailingUsage(t *testing.T) {
	server := newStreamServer(t, []string{
		`{"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_1","function":{"name":"search","arguments":"{\"q\":"}}]}}]}`,
		`{"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"go\"}"}}]}}]}`,
		`{"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`,
		`{"id":"1","object":"chat.completion.chunk","choices":[],"usage":{"prompt_tokens":7,"completion_tokens":3,"total_tokens":10}}`,
	})

	events := collectStream(t, newStreamClient(t, server.URL))

	want := []llm.EventType{
		llm.EventToolCallStart,
		llm.EventToolCallDelta,
		llm.EventToolCallDelta,
		llm.EventToolCallEnd,
		llm.EventUsage,
		llm.EventEnd,
	}
	if len(events) != len(want) {
		t.Fatalf("got %d events (%v), want %d", len(events), eventTypes(events), len(want))
	}
	for i, typ := range want {
		if events[i].Type != typ {
			t.Fatalf("event[%d] = %q, want %q (order %v)", i, events[i].Type, typ, eventTypes(events))
		}
	}

	if events[5].StopReason != llm.StopReasonToolUse {
		t.Errorf("stop reason = %q, want %q", events[5].StopReason, llm.StopReasonToolUse)
	}
}

func eventTypes(events []llm.StreamEvent) []llm.EventType {
	types := make([]llm.EventType, len(events))
	for i, event := range events {
		types[i] = event.Type
	}
	return types
}
