// Client interfaces and core streaming functionality
package llm

import (
	"context"
	"time"
)

// DefaultHealthCheckInterval defines how often health checks should be
// refreshed to avoid excessive API calls to remote providers
const DefaultHealthCheckInterval = 5 * time.Minute

// DefaultStreamTimeout is the inactivity timeout applied to streams when
// the caller does not configure one
const DefaultStreamTimeout = 60 * time.Second

// ClientRemoteInfo represents information about a remote client
type ClientRemoteInfo struct {
	Name   string
	Status *ClientRemoteInfoStatus
}

// ClientRemoteInfoStatus represents the status of a remote client
type ClientRemoteInfoStatus struct {
	Healthy     *bool
	LastChecked *time.Time
}

// Client defines the core interface that all LLM clients must implement.
// StreamChatCompletion returns a StreamSource of canonical events already
// normalized by the adapter; callers layer timeout and abort behavior with
// StreamWithOptions or rely on the adapter's defaults.
type Client interface {
	// ChatCompletion performs a chat completion request
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// StreamChatCompletion performs a streaming chat completion request
	StreamChatCompletion(ctx context.Context, req ChatRequest) (*StreamSource, error)

	// GetRemote returns information about the client
	GetRemote() ClientRemoteInfo

	// GetModelInfo returns information about the model being used
	GetModelInfo() ModelInfo

	// Close cleans up any resources used by the client
	Close() error
}

// Collect drains a stream source into an accumulated response. It is the
// convenience path for callers that want streaming resilience (inactivity
// timeout, clean abort) without consuming events incrementally. The source
// is closed on every exit path; a terminal in-band error event becomes the
// returned error, stamped with the given model.
func Collect(ctx context.Context, src *StreamSource, model string) (*ChatResponse, error) {
	defer func() { _ = src.Close() }()

	acc := NewAccumulator()
	for {
		select {
		case event, ok := <-src.Events():
			if !ok {
				if structured := acc.Err(); structured != nil {
					return nil, structured
				}
				return acc.Response(model), nil
			}
			acc.Process(event)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
