package llm

import (
	"context"
	"strings"
	"testing"
)

// upperMiddleware uppercases text events and tags requests
type upperMiddleware struct{ name string }

func (m *upperMiddleware) Name() string { return m.name }

func (m *upperMiddleware) ProcessRequest(ctx context.Context, req *ChatRequest) (*ChatRequest, error) {
	return req, nil
}

func (m *upperMiddleware) ProcessResponse(ctx context.Context, req *ChatRequest, resp *ChatResponse, err error) (*ChatResponse, error) {
	return resp, nil
}

func (m *upperMiddleware) ProcessStreamEvent(ctx context.Context, req *ChatRequest, event StreamEvent) (StreamEvent, error) {
	if event.IsText() {
		event.Content = strings.ToUpper(event.Content)
	}
	return event, nil
}

// channelClient is a minimal Client serving canned events
type channelClient struct {
	events []StreamEvent
	closed bool
}

func (c *channelClient) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return &ChatResponse{ID: "canned", Model: req.Model}, nil
}

func (c *channelClient) StreamChatCompletion(ctx context.Context, req ChatRequest) (*StreamSource, error) {
	feed := make(chan StreamEvent, len(c.events))
	for _, event := range c.events {
		feed <- event
	}
	close(feed)
	return NewStreamSource(feed, func() error { c.closed = true; return nil }), nil
}

func (c *channelClient) GetRemote() ClientRemoteInfo { return ClientRemoteInfo{Name: "mock"} }
func (c *channelClient) GetModelInfo() ModelInfo     { return ModelInfo{Name: "mock-model"} }
func (c *channelClient) Close() error                { c.closed = true; return nil }

func TestMiddlewareChainOrder(t *testing.T) {
	chain := NewMiddlewareChain([]Middleware{
		&upperMiddleware{name: "a"},
		&upperMiddleware{name: "b"},
	})

	names := chain.GetMiddlewareNames()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("names = %v", names)
	}

	if !chain.RemoveMiddleware("a") {
		t.Error("remove should find middleware a")
	}
	if chain.RemoveMiddleware("a") {
		t.Error("second remove should report absence")
	}
}

func TestEnhancedClientStreamProcessing(t *testing.T) {
	client := &channelClient{events: []StreamEvent{
		NewTextEvent("hello"),
		NewUsageEvent(Usage{InputTokens: 1}),
		NewEndEvent(StopReasonEndTurn),
	}}

	enhanced := ClientWithMiddleware(client, []Middleware{&upperMiddleware{name: "upper"}})

	src, err := enhanced.StreamChatCompletion(context.Background(), ChatRequest{Model: "m"})
	if err != nil {
		t.Fatalf("stream failed: %v", err)
	}

	var events []StreamEvent
	for event := range src.Events() {
		events = append(events, event)
	}

	if len(events) != 3 {
		t.Fatalf("got %d events", len(events))
	}
	if events[0].Content != "HELLO" {
		t.Errorf("text = %q, want HELLO", events[0].Content)
	}
	// Non-text events pass through unchanged.
	if events[1].Type != EventUsage || events[2].Type != EventEnd {
		t.Errorf("events = %+v", events)
	}
}

func TestClientWithMiddlewareReusesEnhanced(t *testing.T) {
	client := &channelClient{}
	first := ClientWithMiddleware(client, []Middleware{&upperMiddleware{name: "a"}})
	second := ClientWithMiddleware(first, []Middleware{&upperMiddleware{name: "b"}})

	if first != second {
		t.Error("wrapping an EnhancedClient should extend its chain, not nest")
	}
	enhanced := second.(*EnhancedClient)
	if got := len(enhanced.GetMiddlewareNames()); got != 2 {
		t.Errorf("chain length = %d, want 2", got)
	}
}

func TestLoggingMiddlewarePassthrough(t *testing.T) {
	middleware := NewLoggingMiddleware(nil)
	ctx := context.Background()
	req := &ChatRequest{Model: "m"}

	processedReq, err := middleware.ProcessRequest(ctx, req)
	if err != nil || processedReq != req {
		t.Errorf("request processing changed the request: %v %v", processedReq, err)
	}

	event := NewErrorEvent(NewStatusError(500, "boom", nil))
	processedEvent, err := middleware.ProcessStreamEvent(ctx, req, event)
	if err != nil || processedEvent.Type != EventError {
		t.Errorf("event processing altered the event: %+v %v", processedEvent, err)
	}
}
