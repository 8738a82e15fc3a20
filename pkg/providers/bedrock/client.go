package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrock"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"

	"github.com/agentfold/go-llmstream/pkg/llm"
)

// Client implements the llm.Client interface for AWS Bedrock
type Client struct {
	bedrockClient        *bedrock.Client
	bedrockRuntimeClient *bedrockruntime.Client
	model                string
	region               string
	provider             string
	streamTimeout        time.Duration

	// Health check caching
	lastHealthCheck  *time.Time
	lastHealthStatus *bool
}

// NewClient creates a new AWS Bedrock client. Credentials come from the
// default AWS credential chain; no API key is required.
func NewClient(config llm.ClientConfig) (*Client, error) {
	region := "us-east-1"
	if config.Extra != nil {
		if r, exists := config.Extra["region"]; exists {
			region = r
		}
	}

	awsConfig, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		structured := llm.NewStructuredError(fmt.Errorf("failed to load AWS configuration: %w", err))
		return nil, structured.WithContext(llm.ErrorContext{Provider: "bedrock"})
	}

	bedrockClient := bedrock.NewFromConfig(awsConfig, func(o *bedrock.Options) {
		if config.Extra != nil {
			if endpoint, exists := config.Extra["bedrock_endpoint"]; exists && endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
			}
		}
	})

	bedrockRuntimeClient := bedrockruntime.NewFromConfig(awsConfig, func(o *bedrockruntime.Options) {
		if config.Extra != nil {
			if endpoint, exists := config.Extra["bedrock_runtime_endpoint"]; exists && endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
			}
		}
		if config.BaseURL != "" {
			o.BaseEndpoint = aws.String(config.BaseURL)
		}
	})

	model := config.Model
	if model == "" {
		model = llm.DefaultBedrockModel
	}

	return &Client{
		bedrockClient:        bedrockClient,
		bedrockRuntimeClient: bedrockRuntimeClient,
		model:                model,
		region:               region,
		provider:             "bedrock",
		streamTimeout:        config.StreamTimeout,
	}, nil
}

// ChatCompletion performs a chat completion request
func (c *Client) ChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	payload, err := c.convertRequest(req)
	if err != nil {
		return nil, err
	}

	response, err := c.bedrockRuntimeClient.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.model),
		ContentType: aws.String("application/json"),
		Body:        payload,
	})
	if err != nil {
		return nil, c.convertError(err)
	}

	return c.convertResponse(response.Body)
}

// claudeStreamChunk is the envelope of a Claude messages-API stream event
type claudeStreamChunk struct {
	Type  string `json:"type"`
	Index int    `json:"index"`

	ContentBlock *struct {
		Type string `json:"type"`
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"content_block"`

	Delta *struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		PartialJSON string `json:"partial_json"`
		Thinking    string `json:"thinking"`
		StopReason  string `json:"stop_reason"`

		// Claude v2 legacy completion format
		Completion string `json:"completion"`
	} `json:"delta"`

	Message *struct {
		Usage *claudeUsage `json:"usage"`
	} `json:"message"`

	Usage *claudeUsage `json:"usage"`

	// Legacy completion and non-Claude formats
	Completion string `json:"completion"`
	OutputText string `json:"outputText"`
	Generation string `json:"generation"`
}

type claudeUsage struct {
	InputTokens  *int `json:"input_tokens"`
	OutputTokens *int `json:"output_tokens"`
}

// StreamChatCompletion performs a streaming chat completion request.
// Claude models stream messages-API events with per-block indices; text,
// thinking and tool_use blocks are translated into canonical events. Titan
// and Llama models stream plain text chunks.
func (c *Client) StreamChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.StreamSource, error) {
	payload, err := c.convertRequest(req)
	if err != nil {
		return nil, err
	}

	response, err := c.bedrockRuntimeClient.InvokeModelWithResponseStream(ctx, &bedrockruntime.InvokeModelWithResponseStreamInput{
		ModelId:     aws.String(c.model),
		ContentType: aws.String("application/json"),
		Body:        payload,
	})
	if err != nil {
		return nil, c.convertError(err)
	}

	stream := response.GetStream()
	ch := make(chan llm.StreamEvent, 10)

	go func() {
		defer close(ch)
		defer func() { _ = stream.Close() }()

		state := &streamState{idByIndex: make(map[int]string)}

		for event := range stream.Events() {
			chunk, ok := event.(*types.ResponseStreamMemberChunk)
			if !ok {
				continue
			}
			if err := c.processStreamChunk(chunk.Value.Bytes, ch, state); err != nil {
				ch <- llm.NewErrorEvent(c.convertError(err))
				return
			}
		}

		if err := stream.Err(); err != nil {
			ch <- llm.NewErrorEvent(c.convertError(err))
			return
		}

		if state.inputTokens != nil || state.outputTokens != nil {
			ch <- llm.NormalizeUsage(llm.RawUsage{
				InputTokens:  state.inputTokens,
				OutputTokens: state.outputTokens,
			})
		}
		if !state.ended {
			ch <- llm.NewEndEvent(state.stopReason())
		}
	}()

	src := llm.NewStreamSource(ch, stream.Close)
	return llm.StreamWithOptions(ctx, src, llm.StreamOptions{Timeout: c.streamTimeout}), nil
}

// streamState tracks block-to-tool-call correlation and usage across chunks
type streamState struct {
	idByIndex    map[int]string
	reason       string
	inputTokens  *int
	outputTokens *int
	ended        bool
}

func (s *streamState) stopReason() llm.StopReason {
	return convertStopReason(s.reason)
}

// processStreamChunk translates one raw chunk into canonical events
func (c *Client) processStreamChunk(chunkData []byte, ch chan<- llm.StreamEvent, state *streamState) error {
	var chunk claudeStreamChunk
	if err := json.Unmarshal(chunkData, &chunk); err != nil {
		return err
	}

	switch chunk.Type {
	case "message_start":
		if chunk.Message != nil && chunk.Message.Usage != nil {
			state.inputTokens = chunk.Message.Usage.InputTokens
		}

	case "content_block_start":
		if chunk.ContentBlock != nil && chunk.ContentBlock.Type == "tool_use" {
			state.idByIndex[chunk.Index] = chunk.ContentBlock.ID
			ch <- llm.NewToolCallStartEvent(chunk.ContentBlock.ID, chunk.ContentBlock.Name)
		}

	case "content_block_delta":
		if chunk.Delta == nil {
			return nil
		}
		switch chunk.Delta.Type {
		case "text_delta":
			if event, ok := llm.NormalizeText(llm.RawTextDelta{Text: &chunk.Delta.Text}); ok {
				ch <- event
			}
		case "thinking_delta":
			if event, ok := llm.NormalizeReasoning(llm.RawReasoningDelta{Reasoning: &chunk.Delta.Thinking}); ok {
				ch <- event
			}
		case "input_json_delta":
			if id, ok := state.idByIndex[chunk.Index]; ok && chunk.Delta.PartialJSON != "" {
				ch <- llm.NewToolCallDeltaEvent(id, "", chunk.Delta.PartialJSON)
			}
		}

	case "content_block_stop":
		if id, ok := state.idByIndex[chunk.Index]; ok {
			ch <- llm.NewToolCallEndEvent(id)
		}

	case "message_delta":
		if chunk.Delta != nil && chunk.Delta.StopReason != "" {
			state.reason = chunk.Delta.StopReason
		}
		if chunk.Usage != nil && chunk.Usage.OutputTokens != nil {
			state.outputTokens = chunk.Usage.OutputTokens
		}

	case "message_stop":
		// Terminal events are emitted after the stream drains.

	default:
		// Legacy Claude v2 and non-Claude chunks carry flat text fields.
		text := chunk.Completion
		if text == "" {
			text = chunk.OutputText
		}
		if text == "" {
			text = chunk.Generation
		}
		if text != "" {
			if event, ok := llm.NormalizeText(llm.RawTextDelta{Text: &text}); ok {
				ch <- event
			}
		}
	}

	return nil
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

// performHealthCheck performs a simple health check on AWS Bedrock
func (c *Client) performHealthCheck() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := c.bedrockClient.ListFoundationModels(ctx, &bedrock.ListFoundationModelsInput{})
	return err == nil
}

// GetModelInfo returns information about the model being used
func (c *Client) GetModelInfo() llm.ModelInfo {
	return llm.ModelInfo{
		Name:              c.model,
		Provider:          c.provider,
		MaxTokens:         c.maxTokensForModel(),
		SupportsTools:     c.isClaudeModel(),
		SupportsReasoning: c.isClaudeModel(),
		SupportsStreaming: true,
	}
}

// Close cleans up any resources used by the client
func (c *Client) Close() error {
	// AWS SDK clients don't require explicit cleanup.
	return nil
}

// convertRequest converts our ChatRequest to the model family's native
// payload
func (c *Client) convertRequest(req llm.ChatRequest) ([]byte, error) {
	switch {
	case c.isTitanModel():
		return c.convertToTitanRequest(req)
	case c.isLlamaModel():
		return c.convertToLlamaRequest(req)
	default:
		// Claude messages format, also the fallback for unknown models.
		return c.convertToClaudeRequest(req)
	}
}

// convertToClaudeRequest converts to the Claude messages-API format
func (c *Client) convertToClaudeRequest(req llm.ChatRequest) ([]byte, error) {
	claudeReq := map[string]interface{}{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        1000,
	}

	if req.MaxTokens != nil {
		claudeReq["max_tokens"] = *req.MaxTokens
	}
	if req.Temperature != nil {
		claudeReq["temperature"] = *req.Temperature
	}
	if req.TopP != nil {
		claudeReq["top_p"] = *req.TopP
	}

	var messages []map[string]interface{}
	var systemMessage strings.Builder

	for _, msg := range req.Messages {
		if msg.Role == llm.RoleSystem {
			systemMessage.WriteString(msg.Content)
			systemMessage.WriteString("\n")
			continue
		}

		claudeMsg := map[string]interface{}{
			"role": string(msg.Role),
		}

		switch {
		case msg.Role == llm.RoleTool:
			// Tool results are user-role messages carrying a tool_result block.
			claudeMsg["role"] = "user"
			claudeMsg["content"] = []map[string]interface{}{{
				"type":        "tool_result",
				"tool_use_id": msg.ToolCallID,
				"content":     msg.Content,
			}}

		case len(msg.ToolCalls) > 0:
			var content []map[string]interface{}
			if msg.Content != "" {
				content = append(content, map[string]interface{}{
					"type": "text",
					"text": msg.Content,
				})
			}
			for _, tc := range msg.ToolCalls {
				content = append(content, map[string]interface{}{
					"type":  "tool_use",
					"id":    tc.ID,
					"name":  tc.Name,
					"input": tc.Input,
				})
			}
			claudeMsg["content"] = content

		default:
			claudeMsg["content"] = msg.Content
		}

		messages = append(messages, claudeMsg)
	}

	claudeReq["messages"] = messages

	if system := strings.TrimSpace(systemMessage.String()); system != "" {
		claudeReq["system"] = system
	}

	if len(req.Tools) > 0 {
		var tools []map[string]interface{}
		for _, tool := range req.Tools {
			tools = append(tools, map[string]interface{}{
				"name":         tool.Function.Name,
				"description":  tool.Function.Description,
				"input_schema": tool.Function.Parameters,
			})
		}
		claudeReq["tools"] = tools
	}

	return json.Marshal(claudeReq)
}

// convertToTitanRequest converts to Amazon Titan request format
func (c *Client) convertToTitanRequest(req llm.ChatRequest) ([]byte, error) {
	var prompt strings.Builder
	for _, msg := range req.Messages {
		switch msg.Role {
		case llm.RoleSystem:
			prompt.WriteString(msg.Content + "\n\n")
		case llm.RoleUser:
			prompt.WriteString(fmt.Sprintf("User: %s\n", msg.Content))
		case llm.RoleAssistant:
			prompt.WriteString(fmt.Sprintf("Bot: %s\n", msg.Content))
		}
	}

	titanConfig := map[string]interface{}{
		"maxTokenCount": 1000,
	}
	if req.MaxTokens != nil {
		titanConfig["maxTokenCount"] = *req.MaxTokens
	}
	if req.Temperature != nil {
		titanConfig["temperature"] = *req.Temperature
	}
	if req.TopP != nil {
		titanConfig["topP"] = *req.TopP
	}

	return json.Marshal(map[string]interface{}{
		"inputText":            prompt.String(),
		"textGenerationConfig": titanConfig,
	})
}

// convertToLlamaRequest converts to Llama request format
func (c *Client) convertToLlamaRequest(req llm.ChatRequest) ([]byte, error) {
	var prompt strings.Builder
	for _, msg := range req.Messages {
		switch msg.Role {
		case llm.RoleSystem:
			prompt.WriteString(fmt.Sprintf("<s>[INST] <<SYS>>\n%s\n<</SYS>>\n\n", msg.Content))
		case llm.RoleUser:
			prompt.WriteString(fmt.Sprintf("%s [/INST]", msg.Content))
		case llm.RoleAssistant:
			prompt.WriteString(fmt.Sprintf(" %s </s><s>[INST] ", msg.Content))
		}
	}

	llamaReq := map[string]interface{}{
		"prompt": prompt.String(),
	}
	if req.MaxTokens != nil {
		llamaReq["max_gen_len"] = *req.MaxTokens
	}
	if req.Temperature != nil {
		llamaReq["temperature"] = *req.Temperature
	}
	if req.TopP != nil {
		llamaReq["top_p"] = *req.TopP
	}

	return json.Marshal(llamaReq)
}

// claudeResponse is the Claude messages-API response body
type claudeResponse struct {
	ID         string `json:"id"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type  string         `json:"type"`
		Text  string         `json:"text"`
		ID    string         `json:"id"`
		Name  string         `json:"name"`
		Input map[string]any `json:"input"`
	} `json:"content"`
	Usage *claudeUsage `json:"usage"`

	// Claude v2 legacy
	Completion string `json:"completion"`
}

// convertResponse converts the native response body to our format
func (c *Client) convertResponse(body []byte) (*llm.ChatResponse, error) {
	switch {
	case c.isTitanModel():
		return c.convertFlatResponse(body, "titan")
	case c.isLlamaModel():
		return c.convertFlatResponse(body, "llama")
	default:
		return c.convertClaudeResponse(body)
	}
}

// convertClaudeResponse converts a Claude messages-API response
func (c *Client) convertClaudeResponse(body []byte) (*llm.ChatResponse, error) {
	var resp claudeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, c.convertError(err)
	}

	message := llm.Message{Role: llm.RoleAssistant}
	var text strings.Builder
	text.WriteString(resp.Completion)

	for _, item := range resp.Content {
		switch item.Type {
		case "text":
			text.WriteString(item.Text)
		case "tool_use":
			if event, ok := llm.NormalizeToolCall(llm.RawToolCall{
				ID:    item.ID,
				Name:  item.Name,
				Input: item.Input,
			}); ok {
				message.ToolCalls = append(message.ToolCalls, llm.ToolCall{
					ID:    event.ToolCallID,
					Name:  event.ToolName,
					Input: event.ToolInput,
				})
			}
		}
	}
	message.Content = text.String()

	chatResp := &llm.ChatResponse{
		ID:         resp.ID,
		Model:      c.model,
		Message:    message,
		ToolCalls:  message.ToolCalls,
		StopReason: convertStopReason(resp.StopReason),
	}
	if chatResp.ID == "" {
		chatResp.ID = fmt.Sprintf("bedrock-%s", time.Now().Format(time.RFC3339Nano))
	}
	if resp.Usage != nil {
		if resp.Usage.InputTokens != nil {
			chatResp.Usage.InputTokens = *resp.Usage.InputTokens
		}
		if resp.Usage.OutputTokens != nil {
			chatResp.Usage.OutputTokens = *resp.Usage.OutputTokens
		}
	}

	return chatResp, nil
}

// convertFlatResponse converts Titan and Llama single-text responses
func (c *Client) convertFlatResponse(body []byte, family string) (*llm.ChatResponse, error) {
	var flat struct {
		Generation string `json:"generation"`
		Results    []struct {
			OutputText string `json:"outputText"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &flat); err != nil {
		return nil, c.convertError(err)
	}

	text := flat.Generation
	if family == "titan" && len(flat.Results) > 0 {
		text = flat.Results[0].OutputText
	}

	return &llm.ChatResponse{
		ID:         fmt.Sprintf("bedrock-%s", time.Now().Format(time.RFC3339Nano)),
		Model:      c.model,
		Message:    llm.Message{Role: llm.RoleAssistant, Content: text},
		StopReason: llm.StopReasonEndTurn,
	}, nil
}

// convertStopReason maps Claude stop reasons to canonical stop reasons
func convertStopReason(reason string) llm.StopReason {
	switch reason {
	case "tool_use":
		return llm.StopReasonToolUse
	case "max_tokens":
		return llm.StopReasonMaxTokens
	case "stop_sequence":
		return llm.StopReasonStopSequence
	default:
		return llm.StopReasonEndTurn
	}
}

// Model family detection helpers
func (c *Client) isClaudeModel() bool {
	return strings.Contains(c.model, "claude") || strings.Contains(c.model, "anthropic")
}

func (c *Client) isTitanModel() bool {
	return strings.Contains(c.model, "titan") || strings.Contains(c.model, "amazon")
}

func (c *Client) isLlamaModel() bool {
	return strings.Contains(c.model, "llama") || strings.Contains(c.model, "meta")
}

// maxTokensForModel returns the context window for the configured model
func (c *Client) maxTokensForModel() int {
	switch {
	case strings.Contains(c.model, "claude-3"):
		return 200000
	case strings.Contains(c.model, "claude-v2"):
		return 100000
	case strings.Contains(c.model, "titan"):
		return 8000
	case strings.Contains(c.model, "llama"):
		return 4096
	default:
		return 4000
	}
}

// convertError converts AWS SDK errors to structured errors. Smithy error
// codes carry the semantics; they are mapped onto HTTP statuses so the
// shared classifier decides retryability.
func (c *Client) convertError(err error) *llm.StructuredError {
	provider := llm.ErrorContext{Provider: c.provider, Model: c.model}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		status := statusForErrorCode(apiErr.ErrorCode())
		if status != 0 {
			return llm.NewStatusError(status, apiErr.ErrorMessage(), err).WithContext(provider)
		}
	}

	return llm.NewStructuredError(err).WithContext(provider)
}

// statusForErrorCode maps smithy error codes to HTTP statuses. Zero means
// no mapping; the caller falls back to message classification.
func statusForErrorCode(code string) int {
	switch code {
	case "UnrecognizedClientException", "ExpiredTokenException", "AuthFailure":
		return 401
	case "AccessDeniedException", "UnauthorizedOperation":
		return 403
	case "ResourceNotFoundException":
		return 404
	case "ThrottlingException", "TooManyRequestsException":
		return 429
	case "ValidationException":
		return 400
	case "ModelTimeoutException":
		return 504
	case "ServiceUnavailableException", "ModelNotReadyException":
		return 503
	case "InternalServerException":
		return 500
	default:
		return 0
	}
}
