package deepseek

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agentfold/go-llmstream/pkg/llm"
)

// TestStreamForwardsFinalChunkUsage replays DeepSeek's chunk order, where
// the final chunk carries both the finish reason and the usage payload, and
// checks the usage event is delivered before the terminal end event.
func TestStreamForwardsFinalChunkUsage(t *testing.T) {
	chunks := []string{
		`{"id":"1","object":"chat.completion.chunk","model":"deepseek-chat","choices":[{"index":0,"delta":{"content":"Hi"}}]}`,
		`{"id":"1","object":"chat.completion.chunk","model":"deepseek-chat","choices":[{"index":0,"delta":{},"finish_reason":"stop"}],"usage":{"prompt_tokens":8,"completion_tokens":2,"total_tokens":10}}`,
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, chunk := range chunks {
			fmt.Fprintf(w, "data: %s\n\n", chunk)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(llm.ClientConfig{
		APIKey:  "test-key",
		BaseURL: server.URL + "/",
		Model:   "deepseek-chat",
	})
	if err != nil {
		t.Fatal(err)
	}

	src, err := client.StreamChatCompletion(context.Background(), llm.ChatRequest{
		Messages: []llm.Message{llm.NewTextMessage(llm.RoleUser, "hi")},
	})
	if err != nil {
		t.Fatal(err)
	}

	var types []llm.EventType
	var usage *llm.Usage
	for event := range src.Events() {
		types = append(types, event.Type)
		if event.Type == llm.EventUsage {
			usage = event.Usage
		}
	}

	want := []llm.EventType{llm.EventText, llm.EventUsage, llm.EventEnd}
	if len(types) != len(want) {
		t.Fatalf("got event order %v, want %v", types, want)
	}
	for i, typ := range want {
		if types[i] != typ {
			t.Fatalf("got event order %v, want %v", types, want)
		}
	}

	if usage == nil {
		t.Fatal("no usage event delivered")
	}
	if usage.InputTokens != 8 || usage.OutputTokens != 2 {
		t.Errorf("usage = %+v, want 8 in / 2 out", usage)
	}
}
