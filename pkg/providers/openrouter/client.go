package openrouter

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/revrost/go-openrouter"

	"github.com/agentfold/go-llmstream/pkg/llm"
)

// Client implements the llm.Client interface for OpenRouter
type Client struct {
	client        *openrouter.Client
	model         string
	provider      string
	streamTimeout time.Duration

	// Health check caching
	lastHealthCheck  *time.Time
	lastHealthStatus *bool
}

// NewClient creates a new OpenRouter client
func NewClient(config llm.ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		err := llm.NewStatusError(401, "API key is required for OpenRouter", nil)
		return nil, err.WithContext(llm.ErrorContext{Provider: "openrouter"})
	}

	clientConfig := openrouter.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	// OpenRouter attributes traffic through optional identification headers
	if config.Extra != nil {
		if siteURL, ok := config.Extra["site_url"]; ok {
			clientConfig.HttpReferer = siteURL
		}
		if appName, ok := config.Extra["app_name"]; ok {
			clientConfig.XTitle = appName
		}
	}

	return &Client{
		client:        openrouter.NewClientWithConfig(*clientConfig),
		model:         config.Model,
		provider:      "openrouter",
		streamTimeout: config.StreamTimeout,
	}, nil
}

// ChatCompletion performs a chat completion request
func (c *Client) ChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	resp, err := c.client.CreateChatCompletion(ctx, c.convertRequest(req))
	if err != nil {
		return nil, c.convertError(err)
	}
	return c.convertResponse(resp), nil
}

// StreamChatCompletion performs a streaming chat completion request.
// Reasoning-capable models route their thinking through the delta's
// reasoning field; it is normalized into canonical reasoning events.
func (c *Client) StreamChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.StreamSource, error) {
	openrouterReq := c.convertRequest(req)
	openrouterReq.Stream = true

	stream, err := c.client.CreateChatCompletionStream(ctx, openrouterReq)
	if err != nil {
		return nil, c.convertError(err)
	}

	ch := make(chan llm.StreamEvent, 10)

	// The SDK's Close takes no value and panics if called twice, so it is
	// guarded to satisfy the func() error closeFn contract safely.
	var closeOnce sync.Once
	closeStream := func() error {
		closeOnce.Do(stream.Close)
		return nil
	}

	go func() {
		defer close(ch)
		defer func() { _ = closeStream() }()

		idByIndex := make(map[int]string)

		// OpenRouter can deliver a usage-only chunk after the finish-reason
		// chunk, so the stop reason is held until end of stream and the
		// terminal event goes out last.
		var pendingStop *llm.StopReason

		for {
			response, err := stream.Recv()
			if err != nil {
				// The SDK surfaces end-of-stream as a plain EOF
				if errors.Is(err, io.EOF) || err.Error() == "EOF" {
					reason := llm.StopReasonEndTurn
					if pendingStop != nil {
						reason = *pendingStop
					}
					ch <- llm.NewEndEvent(reason)
					return
				}
				ch <- llm.NewErrorEvent(c.convertError(err))
				return
			}

			if response.Usage != nil {
				ch <- llm.NormalizeUsage(llm.RawUsage{
					PromptTokens:     &response.Usage.PromptTokens,
					CompletionTokens: &response.Usage.CompletionTokens,
				})
			}

			if len(response.Choices) == 0 {
				continue
			}
			choice := response.Choices[0]

			if event, ok := llm.NormalizeReasoning(llm.RawReasoningDelta{
				Reasoning: choice.Delta.Reasoning,
			}); ok {
				ch <- event
			}

			if event, ok := llm.NormalizeText(llm.RawTextDelta{
				Delta: &llm.RawNestedDelta{Content: &choice.Delta.Content},
			}); ok {
				ch <- event
			}

			for _, tc := range choice.Delta.ToolCalls {
				index := 0
				if tc.Index != nil {
					index = *tc.Index
				}
				id, started := idByIndex[index]
				if !started {
					id = tc.ID
					idByIndex[index] = id
					ch <- llm.NewToolCallStartEvent(id, tc.Function.Name)
				}
				if tc.Function.Arguments != "" {
					ch <- llm.NewToolCallDeltaEvent(id, tc.Function.Name, tc.Function.Arguments)
				}
			}

			if choice.FinishReason != "" {
				for _, id := range idByIndex {
					ch <- llm.NewToolCallEndEvent(id)
				}
				reason := convertFinishReason(choice.FinishReason)
				pendingStop = &reason
			}
		}
	}()

	src := llm.NewStreamSource(ch, closeStream)
	return llm.StreamWithOptions(ctx, src, llm.StreamOptions{Timeout: c.streamTimeout}), nil
}

// GetRemote returns information about the remote client
func (c *Client) GetRemote() llm.ClientRemoteInfo {
	info := llm.ClientRemoteInfo{Name: c.provider}

	now := time.Now()
	needsRefresh := c.lastHealthCheck == nil ||
		now.Sub(*c.lastHealthCheck) >= llm.DefaultHealthCheckInterval

	if needsRefresh {
		healthy := c.performHealthCheck()
		c.lastHealthStatus = &healthy
		c.lastHealthCheck = &now
	}

	info.Status = &llm.ClientRemoteInfoStatus{
		Healthy:     c.lastHealthStatus,
		LastChecked: c.lastHealthCheck,
	}

	return info
}

// performHealthCheck performs a simple health check on the OpenRouter API
func (c *Client) performHealthCheck() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := c.client.ListModels(ctx)
	return err == nil
}

// GetModelInfo returns information about the model. OpenRouter fronts many
// underlying models, so the capabilities are conservative defaults.
func (c *Client) GetModelInfo() llm.ModelInfo {
	return llm.ModelInfo{
		Name:              c.model,
		Provider:          c.provider,
		MaxTokens:         128000,
		SupportsTools:     true,
		SupportsReasoning: true,
		SupportsStreaming: true,
	}
}

// Close cleans up resources
func (c *Client) Close() error {
	// The go-openrouter client manages its own HTTP client internally.
	c.client = nil
	return nil
}

// convertRequest converts our llm.ChatRequest to OpenRouter format
func (c *Client) convertRequest(req llm.ChatRequest) openrouter.ChatCompletionRequest {
	model := req.Model
	if model == "" {
		model = c.model
	}

	openrouterReq := openrouter.ChatCompletionRequest{
		Model:    model,
		Messages: c.convertMessages(req.Messages),
		Stream:   req.Stream,
	}

	if req.Temperature != nil {
		openrouterReq.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		openrouterReq.MaxTokens = *req.MaxTokens
	}
	if req.TopP != nil {
		openrouterReq.TopP = *req.TopP
	}

	for _, tool := range req.Tools {
		openrouterReq.Tools = append(openrouterReq.Tools, openrouter.Tool{
			Type: openrouter.ToolType(tool.Type),
			Function: &openrouter.FunctionDefinition{
				Name:        tool.Function.Name,
				Description: tool.Function.Description,
				Parameters:  tool.Function.Parameters,
			},
		})
	}

	return openrouterReq
}

// convertMessages converts our messages to OpenRouter format
func (c *Client) convertMessages(messages []llm.Message) []openrouter.ChatCompletionMessage {
	converted := make([]openrouter.ChatCompletionMessage, 0, len(messages))

	for _, msg := range messages {
		openrouterMsg := openrouter.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: openrouter.Content{Text: msg.Content},
		}

		for _, tc := range msg.ToolCalls {
			openrouterMsg.ToolCalls = append(openrouterMsg.ToolCalls, openrouter.ToolCall{
				ID:   tc.ID,
				Type: openrouter.ToolTypeFunction,
				Function: openrouter.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.InputJSON(),
				},
			})
		}

		if msg.ToolCallID != "" {
			openrouterMsg.ToolCallID = msg.ToolCallID
		}

		converted = append(converted, openrouterMsg)
	}

	return converted
}

// convertResponse converts OpenRouter response to our format
func (c *Client) convertResponse(resp openrouter.ChatCompletionResponse) *llm.ChatResponse {
	chatResp := &llm.ChatResponse{
		ID:    resp.ID,
		Model: resp.Model,
	}

	if resp.Usage != nil {
		chatResp.Usage = llm.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		}
	}

	if len(resp.Choices) == 0 {
		return chatResp
	}
	choice := resp.Choices[0]

	message := llm.Message{
		Role:    llm.RoleAssistant,
		Content: choice.Message.Content.Text,
	}
	for _, tc := range choice.Message.ToolCalls {
		if event, ok := llm.NormalizeToolCall(llm.RawToolCall{
			ID: tc.ID,
			Function: &llm.RawFunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		}); ok {
			message.ToolCalls = append(message.ToolCalls, llm.ToolCall{
				ID:    event.ToolCallID,
				Name:  event.ToolName,
				Input: event.ToolInput,
			})
		}
	}

	chatResp.Message = message
	chatResp.ToolCalls = message.ToolCalls
	chatResp.StopReason = convertFinishReason(choice.FinishReason)

	return chatResp
}

// convertFinishReason maps OpenRouter finish reasons to canonical stop
// reasons
func convertFinishReason(reason openrouter.FinishReason) llm.StopReason {
	switch reason {
	case openrouter.FinishReasonToolCalls:
		return llm.StopReasonToolUse
	case openrouter.FinishReasonLength:
		return llm.StopReasonMaxTokens
	default:
		return llm.StopReasonEndTurn
	}
}

// convertError converts OpenRouter SDK errors to structured errors
func (c *Client) convertError(err error) *llm.StructuredError {
	provider := llm.ErrorContext{Provider: c.provider, Model: c.model}

	var apiErr *openrouter.APIError
	if errors.As(err, &apiErr) {
		return llm.NewStatusError(apiErr.HTTPStatusCode, apiErr.Message, err).WithContext(provider)
	}

	var reqErr *openrouter.RequestError
	if errors.As(err, &reqErr) {
		return llm.NewStatusError(reqErr.HTTPStatusCode, reqErr.Error(), err).WithContext(provider)
	}

	return llm.NewStructuredError(err).WithContext(provider)
}
