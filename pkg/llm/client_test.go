package llm

import (
	"context"
	"errors"
	"testing"
)

func TestCollect(t *testing.T) {
	feed := make(chan StreamEvent, 8)
	feed <- NewReasoningEvent("planning")
	feed <- NewTextEvent("Hello ")
	feed <- NewTextEvent("world")
	feed <- NewToolCallEvent("c1", "read_file", map[string]any{"path": "go.mod"})
	feed <- NewUsageEvent(Usage{InputTokens: 12, OutputTokens: 7})
	feed <- NewEndEvent(StopReasonToolUse)
	close(feed)

	closed := false
	src := NewStreamSource(feed, func() error { closed = true; return nil })

	resp, err := Collect(context.Background(), src, "test-model")
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if resp.Message.Content != "Hello world" {
		t.Errorf("content = %q", resp.Message.Content)
	}
	if resp.Message.Reasoning != "planning" {
		t.Errorf("reasoning = %q", resp.Message.Reasoning)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Name != "read_file" {
		t.Errorf("tool calls = %+v", resp.ToolCalls)
	}
	if resp.StopReason != StopReasonToolUse {
		t.Errorf("stop reason = %s", resp.StopReason)
	}
	if resp.Usage.TotalTokens() != 19 {
		t.Errorf("usage = %+v", resp.Usage)
	}
	if !closed {
		t.Error("source should be closed after collection")
	}
}

func TestCollectTerminalError(t *testing.T) {
	feed := make(chan StreamEvent, 4)
	feed <- NewTextEvent("partial")
	feed <- NewErrorEvent(NewStatusError(429, "rate limited", nil))
	close(feed)

	src := NewStreamSource(feed, nil)

	_, err := Collect(context.Background(), src, "test-model")
	if err == nil {
		t.Fatal("expected the in-band error to surface")
	}

	var structured *StructuredError
	if !errors.As(err, &structured) || structured.Status != 429 {
		t.Errorf("error = %v", err)
	}
}

func TestCollectCancelled(t *testing.T) {
	feed := make(chan StreamEvent) // never fed, never closed
	closed := false
	src := NewStreamSource(feed, func() error { closed = true; return nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Collect(ctx, src, "test-model")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v", err)
	}
	if !closed {
		t.Error("source should be closed on cancellation")
	}
}
