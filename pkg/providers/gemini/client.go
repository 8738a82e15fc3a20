package gemini

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/agentfold/go-llmstream/pkg/llm"
)

// safeIntToInt32 safely converts int to int32
func safeIntToInt32(val int) int32 {
	if val > 2147483647 {
		return 2147483647
	}
	if val < -2147483648 {
		return -2147483648
	}
	return int32(val)
}

// modelContext maps model name patterns to context window sizes. Matched in
// order, first match wins.
var modelContext = []struct {
	pattern   *regexp.Regexp
	maxTokens int
}{
	{regexp.MustCompile(`gemini-1\.5-pro`), 2000000},
	{regexp.MustCompile(`gemini-1\.5-flash`), 1000000},
	{regexp.MustCompile(`gemini-2\.`), 1000000},
}

// Client implements the llm.Client interface for Gemini
type Client struct {
	genai         *genai.Client
	model         string
	provider      string
	streamTimeout time.Duration

	// Health check caching
	lastHealthCheck  *time.Time
	lastHealthStatus *bool
}

// NewClient creates a new Gemini client using the official genai library
func NewClient(config llm.ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		err := llm.NewStatusError(401, "API key is required for Gemini", nil)
		return nil, err.WithContext(llm.ErrorContext{Provider: "gemini"})
	}
	if config.Model == "" {
		config.Model = llm.DefaultGeminiModel
	}

	genaiConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.Timeout > 0 {
		genaiConfig.HTTPOptions.Timeout = &config.Timeout
	}

	genaiClient, err := genai.NewClient(context.Background(), genaiConfig)
	if err != nil {
		structured := llm.NewStructuredError(fmt.Errorf("failed to create genai client: %w", err))
		return nil, structured.WithContext(llm.ErrorContext{Provider: "gemini"})
	}

	return &Client{
		genai:         genaiClient,
		model:         config.Model,
		provider:      "gemini",
		streamTimeout: config.StreamTimeout,
	}, nil
}

// ChatCompletion performs a non-streaming content generation request
func (c *Client) ChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	config, history, parts, err := c.convertRequest(req)
	if err != nil {
		return nil, err
	}

	chat, err := c.genai.Chats.Create(ctx, c.modelFor(req), config, history)
	if err != nil {
		return nil, c.convertError(err)
	}

	response, err := chat.SendMessage(ctx, parts...)
	if err != nil {
		return nil, c.convertError(err)
	}

	return c.convertResponse(response), nil
}

// StreamChatCompletion performs a streaming content generation request.
// Gemini chunks arrive as whole-candidate snapshots; only the text parts
// are forwarded as canonical deltas.
func (c *Client) StreamChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.StreamSource, error) {
	config, history, parts, err := c.convertRequest(req)
	if err != nil {
		return nil, err
	}

	chat, err := c.genai.Chats.Create(ctx, c.modelFor(req), config, history)
	if err != nil {
		return nil, c.convertError(err)
	}

	ch := make(chan llm.StreamEvent, 10)

	go func() {
		defer close(ch)

		stopReason := llm.StopReasonEndTurn
		var lastUsage *genai.GenerateContentResponseUsageMetadata

		for response, err := range chat.SendMessageStream(ctx, parts...) {
			if err != nil {
				ch <- llm.NewErrorEvent(c.convertError(err))
				return
			}

			if response.UsageMetadata != nil {
				lastUsage = response.UsageMetadata
			}

			if len(response.Candidates) == 0 {
				continue
			}
			candidate := response.Candidates[0]

			if candidate.Content != nil {
				for _, part := range candidate.Content.Parts {
					if event, ok := llm.NormalizeText(llm.RawTextDelta{
						Text: &part.Text,
					}); ok {
						ch <- event
					}
				}
			}

			switch {
			case candidate.FinishReason == genai.FinishReasonMaxTokens:
				stopReason = llm.StopReasonMaxTokens
			case strings.Contains(string(candidate.FinishReason), "SAFETY"):
				cls := llm.ClassifyError(errors.New("response blocked by safety filter"))
				ch <- llm.NewErrorEvent(&llm.StructuredError{
					ErrorClassification: cls,
					Message:             "response blocked by safety filter",
					Context:             llm.ErrorContext{Provider: c.provider, Model: c.model, Timestamp: time.Now()},
				})
				return
			}
		}

		if lastUsage != nil {
			input := int(lastUsage.PromptTokenCount)
			output := int(lastUsage.CandidatesTokenCount)
			ch <- llm.NormalizeUsage(llm.RawUsage{
				InputTokens:  &input,
				OutputTokens: &output,
			})
		}

		ch <- llm.NewEndEvent(stopReason)
	}()

	src := llm.NewStreamSource(ch, nil)
	return llm.StreamWithOptions(ctx, src, llm.StreamOptions{Timeout: c.streamTimeout}), nil
}

func (c *Client) modelFor(req llm.ChatRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return c.model
}

// convertRequest converts our llm.ChatRequest into the genai chat form:
// generation config, history, and the parts of the final message
func (c *Client) convertRequest(req llm.ChatRequest) (*genai.GenerateContentConfig, []*genai.Content, []genai.Part, error) {
	config := &genai.GenerateContentConfig{}
	if req.Temperature != nil {
		config.Temperature = req.Temperature
	}
	if req.MaxTokens != nil {
		config.MaxOutputTokens = safeIntToInt32(*req.MaxTokens)
	}
	if req.TopP != nil {
		config.TopP = req.TopP
	}

	var contents []*genai.Content
	for _, msg := range req.Messages {
		if msg.Role == llm.RoleSystem {
			config.SystemInstruction = &genai.Content{
				Parts: []*genai.Part{genai.NewPartFromText(msg.Content)},
			}
			continue
		}

		role := genai.RoleUser
		if msg.Role == llm.RoleAssistant {
			role = genai.RoleModel
		}

		if msg.Content == "" {
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(msg.Content)},
		})
	}

	if len(contents) == 0 {
		err := llm.NewStatusError(400, "no valid messages provided", nil)
		return nil, nil, nil, err.WithContext(llm.ErrorContext{Provider: c.provider, Model: c.model})
	}

	var history []*genai.Content
	if len(contents) > 1 {
		history = contents[:len(contents)-1]
	}

	lastContent := contents[len(contents)-1]
	parts := make([]genai.Part, len(lastContent.Parts))
	for i, part := range lastContent.Parts {
		parts[i] = *part
	}

	return config, history, parts, nil
}

// convertResponse converts genai response to our format
func (c *Client) convertResponse(resp *genai.GenerateContentResponse) *llm.ChatResponse {
	chatResp := &llm.ChatResponse{
		ID:    fmt.Sprintf("gemini-%s", time.Now().Format(time.RFC3339Nano)),
		Model: c.model,
	}

	if resp.UsageMetadata != nil {
		chatResp.Usage = llm.Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}

	if len(resp.Candidates) == 0 {
		return chatResp
	}
	candidate := resp.Candidates[0]

	var text strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			text.WriteString(part.Text)
		}
	}

	chatResp.Message = llm.Message{
		Role:    llm.RoleAssistant,
		Content: text.String(),
	}
	chatResp.StopReason = convertFinishReason(candidate.FinishReason)

	return chatResp
}

// convertFinishReason maps Gemini finish reasons to canonical stop reasons
func convertFinishReason(reason genai.FinishReason) llm.StopReason {
	switch {
	case reason == genai.FinishReasonMaxTokens:
		return llm.StopReasonMaxTokens
	case strings.Contains(string(reason), "SAFETY"):
		return llm.StopReasonError
	default:
		return llm.StopReasonEndTurn
	}
}

// convertError converts genai errors to structured errors. The SDK does not
// expose typed status errors, so classification falls back to message
// content.
func (c *Client) convertError(err error) *llm.StructuredError {
	provider := llm.ErrorContext{Provider: c.provider, Model: c.model}
	errMsg := err.Error()

	switch {
	case strings.Contains(errMsg, "API key") ||
		strings.Contains(errMsg, "unauthorized") ||
		strings.Contains(errMsg, "401"):
		return llm.NewStatusError(401, errMsg, err).WithContext(provider)

	case strings.Contains(errMsg, "rate limit") ||
		strings.Contains(errMsg, "429"):
		return llm.NewStatusError(429, errMsg, err).WithContext(provider)

	case strings.Contains(errMsg, "quota") ||
		strings.Contains(errMsg, "403"):
		return llm.NewStatusError(403, errMsg, err).WithContext(provider)
	}

	return llm.NewStructuredError(err).WithContext(provider)
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

// performHealthCheck performs a minimal generation against the Gemini API
func (c *Client) performHealthCheck() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	config := &genai.GenerateContentConfig{MaxOutputTokens: 1}
	chat, err := c.genai.Chats.Create(ctx, c.model, config, nil)
	if err != nil {
		return false
	}

	_, err = chat.SendMessage(ctx, *genai.NewPartFromText("test"))
	return err == nil
}

// GetModelInfo returns information about the model
func (c *Client) GetModelInfo() llm.ModelInfo {
	maxTokens := 30720
	for _, entry := range modelContext {
		if entry.pattern.MatchString(c.model) {
			maxTokens = entry.maxTokens
			break
		}
	}

	return llm.ModelInfo{
		Name:              c.model,
		Provider:          c.provider,
		MaxTokens:         maxTokens,
		SupportsTools:     false,
		SupportsReasoning: false,
		SupportsStreaming: true,
	}
}

// Close cleans up resources
func (c *Client) Close() error {
	// The genai client does not expose a Close method.
	return nil
}
