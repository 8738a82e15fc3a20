// Configuration types and environment-driven provider selection
package llm

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	DefaultOpenAIModel     = "gpt-4o-mini"
	DefaultDeepSeekModel   = "deepseek-chat"
	DefaultOpenRouterModel = "openai/gpt-4o-mini"
	DefaultGeminiModel     = "gemini-1.5-flash"
	DefaultBedrockModel    = "anthropic.claude-3-5-sonnet-20241022-v2:0"
)

// ClientConfig holds configuration for creating LLM clients
type ClientConfig struct {
	Provider      string            `json:"provider"` // openai, deepseek, openrouter, gemini, bedrock, mock
	Model         string            `json:"model"`
	APIKey        string            `json:"api_key,omitempty"`
	BaseURL       string            `json:"base_url,omitempty"`
	Timeout       time.Duration     `json:"timeout,omitempty"`        // per-request timeout
	StreamTimeout time.Duration     `json:"stream_timeout,omitempty"` // inactivity timeout between stream events
	MaxRetries    int               `json:"max_retries,omitempty"`
	Extra         map[string]string `json:"extra,omitempty"` // Provider-specific configs
}

// parseTimeoutFromEnv parses timeout from environment variable with fallback
// to default
func parseTimeoutFromEnv(envVar string, defaultTimeout time.Duration) time.Duration {
	if timeoutStr := os.Getenv(envVar); timeoutStr != "" {
		if timeoutSecs, err := strconv.Atoi(timeoutStr); err == nil && timeoutSecs > 0 {
			return time.Duration(timeoutSecs) * time.Second
		}
	}
	return defaultTimeout
}

// GetLLMFromEnv picks a provider configuration from environment variables,
// checking providers in priority order. With no credentials configured it
// falls back to the mock provider so examples and tests still run.
func GetLLMFromEnv() ClientConfig {
	// Priority 1: Custom OpenAI-compatible endpoint
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		fmt.Println("🔑 Using Custom OpenAI-compatible API")
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			apiKey = "dummy" // Some endpoints don't require real keys
		}

		model := DefaultOpenAIModel
		if customModel := os.Getenv("OPENAI_MODEL"); customModel != "" {
			model = customModel
		} else if customModel := os.Getenv("MODEL"); customModel != "" {
			model = customModel
		}

		return ClientConfig{
			Provider:      "openai",
			Model:         model,
			APIKey:        apiKey,
			BaseURL:       baseURL,
			Timeout:       parseTimeoutFromEnv("OPENAI_TIMEOUT", 30*time.Second),
			StreamTimeout: parseTimeoutFromEnv("LLM_STREAM_TIMEOUT", DefaultStreamTimeout),
		}
	}

	// Priority 2: OpenAI API
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		fmt.Println("🔑 Using OpenAI API")
		return ClientConfig{
			Provider:      "openai",
			Model:         DefaultOpenAIModel,
			APIKey:        apiKey,
			Timeout:       parseTimeoutFromEnv("OPENAI_TIMEOUT", 30*time.Second),
			StreamTimeout: parseTimeoutFromEnv("LLM_STREAM_TIMEOUT", DefaultStreamTimeout),
		}
	}

	// Priority 3: DeepSeek API
	if apiKey := os.Getenv("DEEPSEEK_API_KEY"); apiKey != "" {
		fmt.Println("🔑 Using DeepSeek API")
		model := DefaultDeepSeekModel
		if customModel := os.Getenv("DEEPSEEK_MODEL"); customModel != "" {
			model = customModel
		}
		return ClientConfig{
			Provider:      "deepseek",
			Model:         model,
			APIKey:        apiKey,
			Timeout:       parseTimeoutFromEnv("DEEPSEEK_TIMEOUT", 60*time.Second),
			StreamTimeout: parseTimeoutFromEnv("LLM_STREAM_TIMEOUT", DefaultStreamTimeout),
		}
	}

	// Priority 4: OpenRouter API
	if apiKey := os.Getenv("OPENROUTER_API_KEY"); apiKey != "" {
		fmt.Println("🔑 Using OpenRouter API")
		model := DefaultOpenRouterModel
		if customModel := os.Getenv("OPENROUTER_MODEL"); customModel != "" {
			model = customModel
		}
		return ClientConfig{
			Provider:      "openrouter",
			Model:         model,
			APIKey:        apiKey,
			Timeout:       parseTimeoutFromEnv("OPENROUTER_TIMEOUT", 60*time.Second),
			StreamTimeout: parseTimeoutFromEnv("LLM_STREAM_TIMEOUT", DefaultStreamTimeout),
		}
	}

	// Priority 5: Gemini API
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		fmt.Println("🔑 Using Gemini API")
		model := DefaultGeminiModel
		if customModel := os.Getenv("GEMINI_MODEL"); customModel != "" {
			model = customModel
		}
		return ClientConfig{
			Provider:      "gemini",
			Model:         model,
			APIKey:        apiKey,
			Timeout:       parseTimeoutFromEnv("GEMINI_TIMEOUT", 30*time.Second),
			StreamTimeout: parseTimeoutFromEnv("LLM_STREAM_TIMEOUT", DefaultStreamTimeout),
		}
	}

	// Priority 6: AWS Bedrock, credentials resolved by the AWS SDK chain
	if os.Getenv("AWS_REGION") != "" || os.Getenv("AWS_PROFILE") != "" {
		fmt.Println("🔑 Using AWS Bedrock")
		model := DefaultBedrockModel
		if customModel := os.Getenv("BEDROCK_MODEL"); customModel != "" {
			model = customModel
		}
		return ClientConfig{
			Provider:      "bedrock",
			Model:         model,
			Timeout:       parseTimeoutFromEnv("BEDROCK_TIMEOUT", 60*time.Second),
			StreamTimeout: parseTimeoutFromEnv("LLM_STREAM_TIMEOUT", DefaultStreamTimeout),
		}
	}

	fmt.Println("🔑 Using mock provider (no credentials configured)")
	fmt.Println("💡 To use cloud providers: set OPENAI_API_KEY, DEEPSEEK_API_KEY, OPENROUTER_API_KEY, GEMINI_API_KEY or AWS_REGION")

	return ClientConfig{
		Provider:      "mock",
		Model:         "mock-model",
		StreamTimeout: DefaultStreamTimeout,
	}
}
