package factory

import (
	"fmt"
	"strings"

	"github.com/agentfold/go-llmstream/pkg/llm"
)

const DefaultProvider = "openai"

// Factory creates LLM clients based on configuration
type Factory struct{}

// New creates a new client factory
func New() *Factory {
	return &Factory{}
}

// CreateClient creates an LLM client based on the configuration
func (f *Factory) CreateClient(config llm.ClientConfig) (llm.Client, error) {
	provider := config.Provider
	if provider == "" {
		provider = DefaultProvider
	}
	provider = strings.ToLower(provider)

	if config.Model == "" {
		return nil, llm.NewStatusError(400, "model is required", nil)
	}

	constructor, exists := GetProvider(provider)
	if !exists {
		return nil, llm.NewStatusError(400, fmt.Sprintf("unsupported provider: %s", provider), nil)
	}

	return constructor(config)
}

// CreateRetryingClient creates a client whose non-streaming completions are
// retried per the error classification
func (f *Factory) CreateRetryingClient(config llm.ClientConfig) (llm.Client, llm.ChatCompleter, error) {
	client, err := f.CreateClient(config)
	if err != nil {
		return nil, nil, err
	}

	retryConfig := llm.DefaultRetryConfig()
	if config.MaxRetries > 0 {
		retryConfig.MaxRetries = config.MaxRetries
	}

	return client, llm.RetryChatCompletion(client, retryConfig), nil
}
