// Package llm retry support: wraps any ChatCompleter with classification
// driven retries.
//
// Basic usage with the default limit (3 retries):
//
//	client, _ := openai.NewClient(config)
//	retryClient := llm.RetryChatCompletion(client)
//	resp, err := retryClient.ChatCompletion(ctx, request)
//
// Persistent batch jobs can raise the limit:
//
//	retryClient := llm.RetryChatCompletion(client, llm.RetryConfig{MaxRetries: 10})
//
// Whether an error is retried and how long each wait lasts is decided by the
// error classifier (see IsRetryable and RetryDelay), so rate limits back off
// per the provider's Retry-After hint while credential failures fail fast.
package llm

import (
	"context"
	"time"
)

// ChatCompleter is implemented by any client that can perform chat
// completions. All built-in provider clients implement it, so any of them
// can be wrapped with RetryChatCompletion.
type ChatCompleter interface {
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// RetryConfig bounds the retry loop. Delay policy is not configurable here;
// it follows the error classification.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts (default: 3).
	// Total requests = MaxRetries + 1.
	MaxRetries int
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3}
}

// RetryableChatCompleter wraps a ChatCompleter with retry functionality
type RetryableChatCompleter struct {
	client ChatCompleter
	config RetryConfig
}

// RetryChatCompletion creates a retryable wrapper around any ChatCompleter.
// Failed requests are retried only when the classifier marks the error
// retryable, waiting RetryDelay between attempts and respecting context
// cancellation while waiting.
func RetryChatCompletion(client ChatCompleter, config ...RetryConfig) ChatCompleter {
	cfg := DefaultRetryConfig()
	if len(config) > 0 {
		cfg = config[0]
		if cfg.MaxRetries <= 0 {
			cfg.MaxRetries = 3
		}
	}
	return &RetryableChatCompleter{client: client, config: cfg}
}

// ChatCompletion executes the chat completion with retry logic
func (r *RetryableChatCompleter) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		resp, err := r.client.ChatCompletion(ctx, req)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		if attempt == r.config.MaxRetries {
			break
		}
		if !IsRetryable(err) {
			return nil, err
		}

		// Retry numbering is 1-indexed for the delay schedule.
		delay := RetryDelay(err, attempt+1)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return nil, lastErr
}

var _ ChatCompleter = (*RetryableChatCompleter)(nil)
