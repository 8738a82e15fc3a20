// Package factory provides provider registration and client creation.
//
// Importing this package registers every built-in provider through init
// side effects; CreateClient then dispatches on the config's Provider name.
// Third-party providers can add themselves with RegisterProvider before
// calling the factory.
//
// Example usage:
//
//	import (
//	    "github.com/agentfold/go-llmstream/pkg/factory"
//	    "github.com/agentfold/go-llmstream/pkg/llm"
//	)
//
//	client, err := factory.New().CreateClient(llm.ClientConfig{
//	    Provider: "openai",
//	    Model:    "gpt-4o-mini",
//	    APIKey:   "your-api-key",
//	})
package factory
