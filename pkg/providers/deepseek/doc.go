// Package deepseek provides an LLM client for DeepSeek models.
//
// This provider implements the llm.Client interface for DeepSeek's API,
// supporting streaming and non-streaming chat completions with tool calling.
// The reasoner models stream reasoning_content deltas alongside regular
// content; the adapter normalizes both into canonical events.
//
// The client registers itself with the provider registry during package
// initialization in pkg/factory, making it available through the factory:
//
//	config := llm.ClientConfig{
//	    Provider: "deepseek",
//	    APIKey:   "your-api-key",
//	    Model:    "deepseek-chat",
//	}
//	client, err := factory.New().CreateClient(config)
package deepseek
