package openai

import (
	"context"
	"errors"
	"io"
	"regexp"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/agentfold/go-llmstream/pkg/llm"
)

// ModelAttribute represents a model attribute with its pattern and value
type ModelAttribute[T any] struct {
	Pattern *regexp.Regexp
	Value   T
}

var (
	// Tools support patterns - models that support function calling
	toolsSupport = []ModelAttribute[bool]{
		{regexp.MustCompile(`^gpt-4o(-mini)?$`), true},
		{regexp.MustCompile(`^gpt-4(-0613|-32k|-32k-0613)?$`), true},
		{regexp.MustCompile(`^gpt-4-turbo(-preview|-\d{4}-\d{2}-\d{2})?$`), true},
		{regexp.MustCompile(`^o[13](-mini|-preview)?$`), true},
		{regexp.MustCompile(`(?i).*gpt.*`), true}, // custom endpoints with GPT-like models
		{regexp.MustCompile(`.*`), false},
	}

	// Reasoning support patterns - models that emit reasoning deltas
	reasoningSupport = []ModelAttribute[bool]{
		{regexp.MustCompile(`^o[13](-mini|-preview)?$`), true},
		{regexp.MustCompile(`.*`), false},
	}

	// Context length patterns - maximum tokens for different models
	contextLength = []ModelAttribute[int]{
		{regexp.MustCompile(`^gpt-4o(-mini)?$`), 128000},
		{regexp.MustCompile(`^o[13](-mini|-preview)?$`), 200000},
		{regexp.MustCompile(`^gpt-4-turbo(-preview|-\d{4}-\d{2}-\d{2})?$`), 128000},
		{regexp.MustCompile(`^gpt-4-32k(-0613)?$`), 32768},
		{regexp.MustCompile(`^gpt-4(-0613)?$`), 8192},
		{regexp.MustCompile(`.*`), 4096},
	}
)

// getModelAttribute returns the attribute value for a given model by matching
// against patterns
func getModelAttribute[T any](model string, attributes []ModelAttribute[T]) T {
	for _, attr := range attributes {
		if attr.Pattern.MatchString(model) {
			return attr.Value
		}
	}
	var zero T
	return zero
}

// Client implements the llm.Client interface for OpenAI
type Client struct {
	client        *openai.Client
	model         string
	provider      string
	streamTimeout time.Duration

	// Health check caching
	lastHealthCheck  *time.Time
	lastHealthStatus *bool
}

// NewClient creates a new OpenAI client
func NewClient(config llm.ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		err := llm.NewStatusError(401, "API key is required for OpenAI", nil)
		return nil, err.WithContext(llm.ErrorContext{Provider: "openai"})
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &Client{
		client:        openai.NewClientWithConfig(clientConfig),
		model:         config.Model,
		provider:      "openai",
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

// StreamChatCompletion performs a streaming chat completion request. The
// returned source carries canonical events with the configured inactivity
// timeout and context-based abort already applied.
func (c *Client) StreamChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.StreamSource, error) {
	openaiReq := c.convertRequest(req)
	openaiReq.Stream = true
	openaiReq.StreamOptions = &openai.StreamOptions{IncludeUsage: true}

	stream, err := c.client.CreateChatCompletionStream(ctx, openaiReq)
	if err != nil {
		return nil, c.convertError(err)
	}

	ch := make(chan llm.StreamEvent, 10)

	go func() {
		defer close(ch)
		defer func() { _ = stream.Close() }()

		// Tool-call deltas identify calls by index; the id only arrives on
		// the first chunk for each index.
		idByIndex := make(map[int]string)

		// With IncludeUsage the usage-only chunk trails the finish-reason
		// chunk, so the stop reason is held until end of stream and the
		// terminal event goes out last.
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

			if choice.FinishReason != "" && choice.FinishReason != openai.FinishReasonNull {
				for _, id := range idByIndex {
					ch <- llm.NewToolCallEndEvent(id)
				}
				if choice.FinishReason == openai.FinishReasonContentFilter {
					cls := llm.ClassifyError(errors.New("response flagged by content filter"))
					ch <- llm.NewErrorEvent(&llm.StructuredError{
						ErrorClassification: cls,
						Message:             "response stopped by content filter",
						Context:             llm.ErrorContext{Provider: c.provider, Model: c.model, Timestamp: time.Now()},
					})
					return
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

// performHealthCheck performs a simple health check on the OpenAI API
func (c *Client) performHealthCheck() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := c.client.ListModels(ctx)
	return err == nil
}

// GetModelInfo returns information about the model being used
func (c *Client) GetModelInfo() llm.ModelInfo {
	return llm.ModelInfo{
		Name:              c.model,
		Provider:          c.provider,
		MaxTokens:         getModelAttribute(c.model, contextLength),
		SupportsTools:     getModelAttribute(c.model, toolsSupport),
		SupportsReasoning: getModelAttribute(c.model, reasoningSupport),
		SupportsStreaming: true,
	}
}

// Close cleans up any resources used by the client
func (c *Client) Close() error {
	// OpenAI client doesn't require explicit cleanup
	return nil
}

// convertRequest converts our ChatRequest to OpenAI format
func (c *Client) convertRequest(req llm.ChatRequest) openai.ChatCompletionRequest {
	model := req.Model
	if model == "" {
		model = c.model
	}

	openaiReq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: c.convertMessages(req.Messages),
		Stream:   req.Stream,
	}

	if req.Temperature != nil {
		openaiReq.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		openaiReq.MaxTokens = *req.MaxTokens
	}
	if req.TopP != nil {
		openaiReq.TopP = *req.TopP
	}

	for _, tool := range req.Tools {
		openaiReq.Tools = append(openaiReq.Tools, openai.Tool{
			Type: openai.ToolType(tool.Type),
			Function: &openai.FunctionDefinition{
				Name:        tool.Function.Name,
				Description: tool.Function.Description,
				Parameters:  tool.Function.Parameters,
			},
		})
	}

	return openaiReq
}

// convertMessages converts our messages to OpenAI format
func (c *Client) convertMessages(messages []llm.Message) []openai.ChatCompletionMessage {
	var openaiMessages []openai.ChatCompletionMessage

	for _, msg := range messages {
		openaiMsg := openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}

		for _, tc := range msg.ToolCalls {
			openaiMsg.ToolCalls = append(openaiMsg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.InputJSON(),
				},
			})
		}

		if msg.ToolCallID != "" {
			openaiMsg.ToolCallID = msg.ToolCallID
		}

		// Assistant turns carrying only tool calls have no text; the API
		// rejects a missing content field on some compatible endpoints.
		if openaiMsg.Content == "" && len(openaiMsg.ToolCalls) == 0 {
			openaiMsg.Content = " "
		}

		openaiMessages = append(openaiMessages, openaiMsg)
	}

	return openaiMessages
}

// convertResponse converts OpenAI response to our format
func (c *Client) convertResponse(resp openai.ChatCompletionResponse) *llm.ChatResponse {
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
		Role:    llm.RoleAssistant,
		Content: choice.Message.Content,
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

// convertFinishReason maps OpenAI finish reasons to canonical stop reasons
func convertFinishReason(reason openai.FinishReason) llm.StopReason {
	switch reason {
	case openai.FinishReasonToolCalls, openai.FinishReasonFunctionCall:
		return llm.StopReasonToolUse
	case openai.FinishReasonLength:
		return llm.StopReasonMaxTokens
	default:
		return llm.StopReasonEndTurn
	}
}

// convertError converts OpenAI SDK errors to structured errors
func (c *Client) convertError(err error) *llm.StructuredError {
	provider := llm.ErrorContext{Provider: c.provider, Model: c.model}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return llm.NewStatusError(apiErr.HTTPStatusCode, apiErr.Message, err).WithContext(provider)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return llm.NewStatusError(reqErr.HTTPStatusCode, reqErr.Error(), err).WithContext(provider)
	}

	return llm.NewStructuredError(err).WithContext(provider)
}
