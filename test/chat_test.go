package test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentfold/go-llmstream/pkg/llm"
)

func TestChatCompletionBasic(t *testing.T) {
	client := createTestClient(t)

	resp, err := client.ChatCompletion(context.Background(), llm.ChatRequest{
		Messages: []llm.Message{
			llm.NewTextMessage(llm.RoleSystem, "You are a helpful assistant."),
			llm.NewTextMessage(llm.RoleUser, "Say hello."),
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.Equal(t, llm.RoleAssistant, resp.Message.Role)
	assert.NotEmpty(t, resp.Message.Content)
	assert.Equal(t, llm.StopReasonEndTurn, resp.StopReason)
	assert.True(t, resp.IsComplete())
}

func TestChatCompletionRetriesTransientFailures(t *testing.T) {
	client := createScriptedClient(t)

	// Two transient failures, then success. One-millisecond Retry-After
	// keeps the backoff waits out of the test run time.
	failure := llm.NewStatusError(429, "rate limited", nil)
	failure.RetryAfter = time.Millisecond
	client.AddError(failure).AddError(failure).WithSimpleResponse("recovered")

	completer := llm.RetryChatCompletion(client, llm.RetryConfig{MaxRetries: 3})

	resp, err := completer.ChatCompletion(context.Background(), llm.ChatRequest{
		Messages: []llm.Message{llm.NewTextMessage(llm.RoleUser, "hi")},
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Message.Content)
	assert.Len(t, client.GetCallLog(), 3)
}

func TestChatCompletionDoesNotRetryCredentialErrors(t *testing.T) {
	client := createScriptedClient(t)
	client.AddError(llm.NewStatusError(401, "bad key", nil)).WithSimpleResponse("never reached")

	completer := llm.RetryChatCompletion(client, llm.RetryConfig{MaxRetries: 3})

	_, err := completer.ChatCompletion(context.Background(), llm.ChatRequest{})
	require.Error(t, err)

	var structured *llm.StructuredError
	require.ErrorAs(t, err, &structured)
	assert.Equal(t, llm.CategoryCredentialInvalid, structured.Category)
	assert.False(t, structured.Retryable)
	assert.Len(t, client.GetCallLog(), 1, "credential errors must fail fast")
}

func TestChatCompletionErrorContext(t *testing.T) {
	client := createScriptedClient(t)
	failure := llm.NewStatusError(500, "boom", nil).WithContext(llm.ErrorContext{
		Provider: "mock",
		Model:    "test-model",
	})
	client.AddError(failure)

	_, err := client.ChatCompletion(context.Background(), llm.ChatRequest{})
	require.Error(t, err)

	var structured *llm.StructuredError
	require.ErrorAs(t, err, &structured)
	assert.Equal(t, "mock", structured.Context.Provider)
	assert.Contains(t, structured.Error(), "mock:")
}
