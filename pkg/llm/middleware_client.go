package llm

import (
	"context"
	"fmt"
)

// EnhancedClient wraps an LLM client with a middleware chain
type EnhancedClient struct {
	client Client
	chain  *MiddlewareChain
}

// NewEnhancedClient creates a new enhanced LLM client with middleware
func NewEnhancedClient(client Client, chain []Middleware) *EnhancedClient {
	return &EnhancedClient{
		client: client,
		chain:  NewMiddlewareChain(chain),
	}
}

// ChatCompletion implements Client with middleware processing
func (e *EnhancedClient) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	processedReq, err := e.chain.ProcessRequest(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("middleware request processing failed: %w", err)
	}

	resp, err := e.client.ChatCompletion(ctx, *processedReq)

	processedResp, _ := e.chain.ProcessResponse(ctx, processedReq, resp, err)

	return processedResp, err
}

// StreamChatCompletion implements Client with middleware processing for
// streaming. Each canonical event passes through the chain before delivery;
// closing the returned source tears down the underlying stream.
func (e *EnhancedClient) StreamChatCompletion(ctx context.Context, req ChatRequest) (*StreamSource, error) {
	processedReq, err := e.chain.ProcessRequest(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("middleware request processing failed: %w", err)
	}

	src, err := e.client.StreamChatCompletion(ctx, *processedReq)
	if err != nil {
		_, _ = e.chain.ProcessResponse(ctx, processedReq, nil, err)
		return nil, err
	}

	processedChan := make(chan StreamEvent, streamBufferSize)

	go func() {
		defer close(processedChan)
		defer func() { _ = src.Close() }()

		for event := range src.Events() {
			processedEvent, processErr := e.chain.ProcessStreamEvent(ctx, processedReq, event)
			if processErr != nil {
				// Deliver the original event if processing fails
				processedEvent = event
			}

			select {
			case processedChan <- processedEvent:
			case <-ctx.Done():
				return
			}
		}

		// Completion tracking pass
		_, _ = e.chain.ProcessResponse(ctx, processedReq, nil, nil)
	}()

	return NewStreamSource(processedChan, src.Close), nil
}

// GetRemote implements Client
func (e *EnhancedClient) GetRemote() ClientRemoteInfo {
	return e.client.GetRemote()
}

// GetModelInfo implements Client
func (e *EnhancedClient) GetModelInfo() ModelInfo {
	return e.client.GetModelInfo()
}

// Close implements Client
func (e *EnhancedClient) Close() error {
	return e.client.Close()
}

// AddMiddleware adds a middleware to the client's chain
func (e *EnhancedClient) AddMiddleware(middleware Middleware) {
	e.chain.AddMiddleware(middleware)
}

// RemoveMiddleware removes a middleware from the client's chain
func (e *EnhancedClient) RemoveMiddleware(name string) bool {
	return e.chain.RemoveMiddleware(name)
}

// GetMiddlewareNames returns the names of all middleware in the chain
func (e *EnhancedClient) GetMiddlewareNames() []string {
	return e.chain.GetMiddlewareNames()
}

// ClientWithMiddleware wraps an existing LLM client with the middleware
// system. This is the main entry point for adding middleware to clients.
func ClientWithMiddleware(client Client, chain []Middleware) Client {
	if enhancedClient, ok := client.(*EnhancedClient); ok {
		for _, middleware := range chain {
			enhancedClient.AddMiddleware(middleware)
		}
		return enhancedClient
	}

	return NewEnhancedClient(client, chain)
}
