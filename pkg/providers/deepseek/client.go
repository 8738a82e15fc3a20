package deepseek

import (
	"context"
	"io"
	"time"

	deepseek "github.com/cohesion-org/deepseek-go"

	"github.com/agentfold/go-llmstream/pkg/llm"
)

// Client implements the llm.Client interface for DeepSeek
type Client struct {
	client        *deepseek.Client
	model         string
	provider      string
	streamTimeout time.Duration

	// Health check caching
	lastHealthCheck  *time.Time
	lastHealthStatus *bool
}

// NewClient creates a new DeepSeek client
func NewClient(config llm.ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		err := llm.NewStatusError(401, "API key is required for DeepSeek", nil)
		return nil, err.WithContext(llm.ErrorContext{Provider: "deepseek"})
	}
	if config.Model == "" {
		err := llm.NewStatusError(400, "model is required for DeepSeek client", nil)
		return nil, err.WithContext(llm.ErrorContext{Provider: "deepseek"})
	}

	var opts []deepseek.Option
	if config.BaseURL != "" {
		opts = append(opts, deepseek.WithBaseURL(config.BaseURL))
	}
	if config.Timeout > 0 {
		opts = append(opts, deepseek.WithTimeout(config.Timeout))
	}

	var client *deepseek.Client
	if len(opts) > 0 {
		var err error
		client, err = deepseek.NewClientWithOptions(config.APIKey, opts...)
		if err != nil {
			structured := llm.NewStructuredError(err)
			return nil, structured.WithContext(llm.ErrorContext{Provider: "deepseek"})
		}
	} else {
		client = deepseek.NewClient(config.APIKey)
	}

	return &Client{
		client:        client,
		model:         config.Model,
		provider:      "deepseek",
		streamTimeout: config.StreamTimeout,
	}, nil
}

// ChatCompletion performs a chat completion request
func (c *Client) ChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	deepseekReq := c.convertRequest(req)

	resp, err := c.client.CreateChatCompletion(ctx, &deepseekReq)
	if err != nil {
		return nil, c.convertError(err)
	}

	return c.convertResponse(*resp), nil
}

// StreamChatCompletion performs a streaming chat completion request.
// DeepSeek's reasoner models interleave reasoning_content deltas with
// regular content; both are normalized into canonical events.
func (c *Client) StreamChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.StreamSource, error) {
	deepseekReq := c.convertStreamRequest(req)

	stream, err := c.client.CreateChatCompletionStream(ctx, &deepseekReq)
	if err != nil {
		return nil, c.convertError(err)
	}

	ch := make(chan llm.StreamEvent, 10)

	go func() {
		defer close(ch)
		defer func() { _ = stream.Close() }()

		idByIndex := make(map[int]string)

		// DeepSeek reports usage on the final chunk; the stop reason is
		// held until end of stream so the terminal event goes out last.
		var pendingStop *llm.StopReason

		for {
			response, err := stream.Recv()
			if err == io.EOF {
				reason := llm.StopReasonEndTurn
				if pendingStop != nil {
					reason = *pendingStop
				}
				ch <- llm.NewEndEvent(reason)
				return
			}
			if err != nil {
				ch <- llm.NewErrorEvent(c.convertError(err))
				return
			}
			if response == nil {
				continue
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
				ReasoningContent: &choice.Delta.ReasoningContent,
			}); ok {
				ch <- event
			}

			if event, ok := llm.NormalizeText(llm.RawTextDelta{
				Delta: &llm.RawNestedDelta{Content: &choice.Delta.Content},
			}); ok {
				ch <- event
			}

			for _, tc := range choice.Delta.ToolCalls {
				id, started := idByIndex[tc.Index]
				if !started {
					id = tc.ID
					idByIndex[tc.Index] = id
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

	src := llm.NewStreamSource(ch, stream.Close)
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

// performHealthCheck performs a minimal request against the DeepSeek API
func (c *Client) performHealthCheck() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req := deepseek.ChatCompletionRequest{
		Model: c.model,
		Messages: []deepseek.ChatCompletionMessage{
			{Role: "user", Content: "test"},
		},
		MaxTokens: 1,
	}

	_, err := c.client.CreateChatCompletion(ctx, &req)
	return err == nil
}

// GetModelInfo returns information about the model
func (c *Client) GetModelInfo() llm.ModelInfo {
	return llm.ModelInfo{
		Name:              c.model,
		Provider:          c.provider,
		MaxTokens:         65536,
		SupportsTools:     true,
		SupportsReasoning: c.model == "deepseek-reasoner",
		SupportsStreaming: true,
	}
}

// Close cleans up resources
func (c *Client) Close() error {
	// The deepseek-go client manages its own HTTP client internally.
	c.client = nil
	return nil
}

// convertRequest converts our llm.ChatRequest to DeepSeek format
func (c *Client) convertRequest(req llm.ChatRequest) deepseek.ChatCompletionRequest {
	deepseekReq := deepseek.ChatCompletionRequest{
		Model:    c.modelFor(req),
		Messages: c.convertMessages(req.Messages),
		Tools:    c.convertTools(req.Tools),
	}

	if req.Temperature != nil {
		deepseekReq.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		deepseekReq.MaxTokens = *req.MaxTokens
	}
	if req.TopP != nil {
		deepseekReq.TopP = *req.TopP
	}

	return deepseekReq
}

// convertStreamRequest converts our llm.ChatRequest to DeepSeek streaming
// format
func (c *Client) convertStreamRequest(req llm.ChatRequest) deepseek.StreamChatCompletionRequest {
	deepseekReq := deepseek.StreamChatCompletionRequest{
		Model:    c.modelFor(req),
		Messages: c.convertMessages(req.Messages),
		Tools:    c.convertTools(req.Tools),
		Stream:   true,
	}

	if req.Temperature != nil {
		deepseekReq.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		deepseekReq.MaxTokens = *req.MaxTokens
	}
	if req.TopP != nil {
		deepseekReq.TopP = *req.TopP
	}

	return deepseekReq
}

func (c *Client) modelFor(req llm.ChatRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return c.model
}

// convertMessages converts our messages to DeepSeek format
func (c *Client) convertMessages(messages []llm.Message) []deepseek.ChatCompletionMessage {
	converted := make([]deepseek.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		converted[i] = deepseek.ChatCompletionMessage{
			Role:       string(msg.Role),
			Content:    msg.Content,
			ToolCalls:  c.convertToolCalls(msg.ToolCalls),
			ToolCallID: msg.ToolCallID,
		}
	}
	return converted
}

// convertToolCalls converts our ToolCalls to DeepSeek format
func (c *Client) convertToolCalls(toolCalls []llm.ToolCall) []deepseek.ToolCall {
	if len(toolCalls) == 0 {
		return nil
	}

	converted := make([]deepseek.ToolCall, len(toolCalls))
	for i, tc := range toolCalls {
		converted[i] = deepseek.ToolCall{
			Index: i, // DeepSeek requires an index
			ID:    tc.ID,
			Type:  "function",
			Function: deepseek.ToolCallFunction{
				Name:      tc.Name,
				Arguments: tc.InputJSON(),
			},
		}
	}
	return converted
}

// convertTools converts our tool definitions to DeepSeek format
func (c *Client) convertTools(tools []llm.Tool) []deepseek.Tool {
	if len(tools) == 0 {
		return nil
	}

	converted := make([]deepseek.Tool, len(tools))
	for i, tool := range tools {
		converted[i] = deepseek.Tool{
			Type: tool.Type,
			Function: deepseek.Function{
				Name:        tool.Function.Name,
				Description: tool.Function.Description,
				Parameters:  convertToolParameters(tool.Function.Parameters),
			},
		}
	}
	return converted
}

// convertToolParameters converts generic JSON Schema parameters to DeepSeek
// FunctionParameters
func convertToolParameters(params interface{}) *deepseek.FunctionParameters {
	if params == nil {
		return nil
	}

	paramMap, ok := params.(map[string]interface{})
	if !ok {
		return &deepseek.FunctionParameters{Type: "object"}
	}

	result := &deepseek.FunctionParameters{Type: "object"}
	if typeVal, ok := paramMap["type"].(string); ok {
		result.Type = typeVal
	}
	if propsMap, ok := paramMap["properties"].(map[string]interface{}); ok {
		result.Properties = propsMap
	}
	switch req := paramMap["required"].(type) {
	case []string:
		result.Required = req
	case []interface{}:
		for _, item := range req {
			if str, ok := item.(string); ok {
				result.Required = append(result.Required, str)
			}
		}
	}

	return result
}

// convertResponse converts DeepSeek response to our format
func (c *Client) convertResponse(resp deepseek.ChatCompletionResponse) *llm.ChatResponse {
	chatResp := &llm.ChatResponse{
		ID:    resp.ID,
		Model: resp.Model,
		Usage: llm.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}

	if len(resp.Choices) == 0 {
		return chatResp
	}
	choice := resp.Choices[0]

	message := llm.Message{
		Role:      llm.RoleAssistant,
		Content:   choice.Message.Content,
		Reasoning: choice.Message.ReasoningContent,
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

// convertFinishReason maps DeepSeek finish reasons to canonical stop reasons
func convertFinishReason(reason string) llm.StopReason {
	switch reason {
	case "tool_calls":
		return llm.StopReasonToolUse
	case "length":
		return llm.StopReasonMaxTokens
	case "stop":
		return llm.StopReasonEndTurn
	default:
		return llm.StopReasonEndTurn
	}
}

// convertError converts DeepSeek SDK errors to structured errors
func (c *Client) convertError(err error) *llm.StructuredError {
	structured := llm.NewStructuredError(err)
	return structured.WithContext(llm.ErrorContext{Provider: c.provider, Model: c.model})
}
