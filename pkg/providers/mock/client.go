package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/agentfold/go-llmstream/pkg/llm"
)

// Client implements the llm.Client interface for testing. Responses, errors
// and stream scripts are consumed in FIFO order; when the queues are empty
// the client falls back to a canned response derived from the last user
// message.
type Client struct {
	mu sync.Mutex

	modelInfo     llm.ModelInfo
	responses     []llm.ChatResponse
	responseIndex int
	errors        []error
	errorIndex    int
	callLog       []llm.ChatRequest
	streamScripts [][]llm.StreamEvent
	streamIndex   int
	streamDelay   time.Duration
	streamTimeout time.Duration
	latency       time.Duration

	// Health check caching (even for mock)
	lastHealthCheck  *time.Time
	lastHealthStatus *bool
}

// NewClient creates a new mock LLM client for testing
func NewClient(modelName, provider string) (*Client, error) {
	return &Client{
		modelInfo: llm.ModelInfo{
			Name:              modelName,
			Provider:          provider,
			MaxTokens:         4096,
			SupportsTools:     true,
			SupportsReasoning: true,
			SupportsStreaming: true,
		},
	}, nil
}

// NewClientFromConfig creates a mock client from a standard client config
func NewClientFromConfig(config llm.ClientConfig) (*Client, error) {
	model := config.Model
	if model == "" {
		model = "mock-model"
	}
	client, err := NewClient(model, "mock")
	if err != nil {
		return nil, err
	}
	client.streamTimeout = config.StreamTimeout
	return client, nil
}

// ChatCompletion returns queued responses or errors, falling back to a
// generated response
func (m *Client) ChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	m.mu.Lock()
	m.callLog = append(m.callLog, req)
	latency := m.latency
	m.mu.Unlock()

	if latency > 0 {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.errorIndex < len(m.errors) {
		err := m.errors[m.errorIndex]
		m.errorIndex++
		return nil, err
	}

	if m.responseIndex < len(m.responses) {
		resp := m.responses[m.responseIndex]
		m.responseIndex++
		return &resp, nil
	}

	return m.generateResponse(req), nil
}

// generateResponse builds a canned response from the last user message.
// Callers hold the mutex.
func (m *Client) generateResponse(req llm.ChatRequest) *llm.ChatResponse {
	userMessage := lastUserMessage(req.Messages)

	content := fmt.Sprintf("Mock response to: %s", userMessage)
	if userMessage == "" {
		content = "Mock response."
	}

	return &llm.ChatResponse{
		ID:         fmt.Sprintf("mock-resp-%d", time.Now().UnixNano()),
		Model:      m.modelInfo.Name,
		Message:    llm.Message{Role: llm.RoleAssistant, Content: content},
		StopReason: llm.StopReasonEndTurn,
		Usage: llm.Usage{
			InputTokens:  len(strings.Fields(userMessage)) + 5,
			OutputTokens: len(strings.Fields(content)),
		},
	}
}

func lastUserMessage(messages []llm.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == llm.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

// StreamChatCompletion replays a queued stream script, or chunks a
// generated response word by word. Queued errors surface as in-band
// terminal error events, mirroring how real providers fail mid-stream.
func (m *Client) StreamChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.StreamSource, error) {
	m.mu.Lock()
	m.callLog = append(m.callLog, req)
	latency := m.latency
	m.mu.Unlock()

	if latency > 0 {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()

	if m.errorIndex < len(m.errors) {
		err := m.errors[m.errorIndex]
		m.errorIndex++
		m.mu.Unlock()

		ch := make(chan llm.StreamEvent, 1)
		ch <- llm.NewErrorEvent(llm.NewStructuredError(err))
		close(ch)
		return m.wrap(ctx, ch), nil
	}

	if m.streamIndex < len(m.streamScripts) {
		events := m.streamScripts[m.streamIndex]
		m.streamIndex++
		delay := m.streamDelay
		m.mu.Unlock()

		ch := make(chan llm.StreamEvent, len(events))
		go func() {
			defer close(ch)
			for _, event := range events {
				if delay > 0 {
					select {
					case <-time.After(delay):
					case <-ctx.Done():
						return
					}
				}
				select {
				case ch <- event:
				case <-ctx.Done():
					return
				}
			}
		}()
		return m.wrap(ctx, ch), nil
	}

	resp := m.generateResponse(req)
	m.mu.Unlock()

	ch := make(chan llm.StreamEvent, 10)
	go func() {
		defer close(ch)
		for _, word := range strings.Fields(resp.Message.Content) {
			select {
			case ch <- llm.NewTextEvent(word + " "):
			case <-ctx.Done():
				return
			}
		}
		select {
		case ch <- llm.NewUsageEvent(resp.Usage):
		case <-ctx.Done():
			return
		}
		select {
		case ch <- llm.NewEndEvent(llm.StopReasonEndTurn):
		case <-ctx.Done():
		}
	}()
	return m.wrap(ctx, ch), nil
}

func (m *Client) wrap(ctx context.Context, ch chan llm.StreamEvent) *llm.StreamSource {
	src := llm.NewStreamSource(ch, nil)
	return llm.StreamWithOptions(ctx, src, llm.StreamOptions{Timeout: m.streamTimeout})
}

// GetRemote returns information about the remote client
func (m *Client) GetRemote() llm.ClientRemoteInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	info := llm.ClientRemoteInfo{Name: "mock"}

	now := time.Now()
	needsRefresh := m.lastHealthCheck == nil ||
		now.Sub(*m.lastHealthCheck) >= llm.DefaultHealthCheckInterval

	if needsRefresh {
		healthy := true
		m.lastHealthStatus = &healthy
		m.lastHealthCheck = &now
	}

	info.Status = &llm.ClientRemoteInfoStatus{
		Healthy:     m.lastHealthStatus,
		LastChecked: m.lastHealthCheck,
	}

	return info
}

// GetModelInfo returns the configured model info
func (m *Client) GetModelInfo() llm.ModelInfo {
	return m.modelInfo
}

// Close does nothing for the mock client
func (m *Client) Close() error {
	return nil
}

// Test helper methods

// AddResponse queues a response for a subsequent ChatCompletion call
func (m *Client) AddResponse(response llm.ChatResponse) *Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, response)
	return m
}

// AddError queues an error for a subsequent call. Streaming calls surface
// it as an in-band terminal error event.
func (m *Client) AddError(err error) *Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, err)
	return m
}

// AddStreamScript queues an exact event sequence for a subsequent
// StreamChatCompletion call
func (m *Client) AddStreamScript(events []llm.StreamEvent) *Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamScripts = append(m.streamScripts, events)
	return m
}

// WithSimpleResponse queues a plain text response
func (m *Client) WithSimpleResponse(content string) *Client {
	return m.AddResponse(llm.ChatResponse{
		ID:         fmt.Sprintf("mock-simple-%d", time.Now().UnixNano()),
		Model:      m.modelInfo.Name,
		Message:    llm.Message{Role: llm.RoleAssistant, Content: content},
		StopReason: llm.StopReasonEndTurn,
	})
}

// WithToolCallResponse queues a response requesting a single tool execution
func (m *Client) WithToolCallResponse(toolName string, input map[string]any) *Client {
	call := llm.ToolCall{
		ID:    fmt.Sprintf("call-%s-%d", toolName, time.Now().UnixNano()),
		Name:  toolName,
		Input: input,
	}
	return m.AddResponse(llm.ChatResponse{
		ID:    fmt.Sprintf("mock-tool-%d", time.Now().UnixNano()),
		Model: m.modelInfo.Name,
		Message: llm.Message{
			Role:      llm.RoleAssistant,
			ToolCalls: []llm.ToolCall{call},
		},
		ToolCalls:  []llm.ToolCall{call},
		StopReason: llm.StopReasonToolUse,
	})
}

// WithStreamedText queues a stream script that delivers the text in
// word-sized chunks followed by a normal end event
func (m *Client) WithStreamedText(text string) *Client {
	var events []llm.StreamEvent
	for _, word := range strings.Fields(text) {
		events = append(events, llm.NewTextEvent(word+" "))
	}
	events = append(events, llm.NewEndEvent(llm.StopReasonEndTurn))
	return m.AddStreamScript(events)
}

// WithStreamDelay sets a pause before each scripted stream event, for
// exercising inactivity-timeout behavior
func (m *Client) WithStreamDelay(delay time.Duration) *Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamDelay = delay
	return m
}

// WithStreamTimeout sets the inactivity timeout applied to returned streams
func (m *Client) WithStreamTimeout(timeout time.Duration) *Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamTimeout = timeout
	return m
}

// WithLatency sets a simulated delay before each call starts
func (m *Client) WithLatency(latency time.Duration) *Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latency = latency
	return m
}

// GetCallLog returns all requests made to this mock client
func (m *Client) GetCallLog() []llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.ChatRequest(nil), m.callLog...)
}

// GetLastCall returns the most recent request made to this mock client
func (m *Client) GetLastCall() *llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.callLog) == 0 {
		return nil
	}
	last := m.callLog[len(m.callLog)-1]
	return &last
}

// Reset clears all queued responses, errors, scripts and the call log
func (m *Client) Reset() *Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = nil
	m.responseIndex = 0
	m.errors = nil
	m.errorIndex = 0
	m.streamScripts = nil
	m.streamIndex = 0
	m.callLog = nil
	return m
}
