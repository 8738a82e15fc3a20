package test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentfold/go-llmstream/pkg/factory"
	"github.com/agentfold/go-llmstream/pkg/llm"
	"github.com/agentfold/go-llmstream/pkg/providers/mock"
)

// createTestClient creates a mock client through the factory, exercising the
// same registration and dispatch path real providers use
func createTestClient(t *testing.T) llm.Client {
	t.Helper()

	client, err := factory.New().CreateClient(llm.ClientConfig{
		Provider: "mock",
		Model:    "test-model",
	})
	require.NoError(t, err, "Failed to create LLM client")
	require.NotNil(t, client, "Client should not be nil")

	t.Cleanup(func() { _ = client.Close() })
	return client
}

// createScriptedClient creates a mock client directly so tests can queue
// responses and stream scripts
func createScriptedClient(t *testing.T) *mock.Client {
	t.Helper()

	client, err := mock.NewClient("test-model", "mock")
	require.NoError(t, err)

	t.Cleanup(func() { _ = client.Close() })
	return client
}

// collectEvents drains a stream source into a slice
func collectEvents(t *testing.T, src *llm.StreamSource) []llm.StreamEvent {
	t.Helper()

	var events []llm.StreamEvent
	for event := range src.Events() {
		events = append(events, event)
	}
	return events
}
