package factory

import (
	"github.com/agentfold/go-llmstream/pkg/llm"
	"github.com/agentfold/go-llmstream/pkg/providers/bedrock"
	"github.com/agentfold/go-llmstream/pkg/providers/deepseek"
	"github.com/agentfold/go-llmstream/pkg/providers/gemini"
	"github.com/agentfold/go-llmstream/pkg/providers/mock"
	"github.com/agentfold/go-llmstream/pkg/providers/openai"
	"github.com/agentfold/go-llmstream/pkg/providers/openrouter"
)

func init() {
	RegisterProvider("openai", func(config llm.ClientConfig) (llm.Client, error) {
		return openai.NewClient(config)
	})

	RegisterProvider("deepseek", func(config llm.ClientConfig) (llm.Client, error) {
		return deepseek.NewClient(config)
	})

	RegisterProvider("openrouter", func(config llm.ClientConfig) (llm.Client, error) {
		return openrouter.NewClient(config)
	})

	RegisterProvider("gemini", func(config llm.ClientConfig) (llm.Client, error) {
		return gemini.NewClient(config)
	})

	RegisterProvider("bedrock", func(config llm.ClientConfig) (llm.Client, error) {
		return bedrock.NewClient(config)
	})

	RegisterProvider("mock", func(config llm.ClientConfig) (llm.Client, error) {
		return mock.NewClientFromConfig(config)
	})
	RegisterProvider("mocked", func(config llm.ClientConfig) (llm.Client, error) {
		return mock.NewClientFromConfig(config)
	})
}
