package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestNewStructuredError(t *testing.T) {
	cause := errors.New("connection reset by peer")
	structured := NewStructuredError(cause)

	if structured.Category != CategoryNetworkError {
		t.Errorf("category = %s, want %s", structured.Category, CategoryNetworkError)
	}
	if !structured.Retryable {
		t.Error("network error should be retryable")
	}
	if structured.Message != cause.Error() {
		t.Errorf("message = %q, want %q", structured.Message, cause.Error())
	}
	if structured.Context.Timestamp.IsZero() {
		t.Error("timestamp should be stamped at construction")
	}
	if !errors.Is(structured, cause) {
		t.Error("structured error should unwrap to its cause")
	}
}

func TestNewStructuredErrorIdempotent(t *testing.T) {
	original := NewStatusError(429, "rate limited", nil)
	if again := NewStructuredError(original); again != original {
		t.Error("wrapping an already structured error should return it unchanged")
	}
}

func TestNewStructuredErrorNil(t *testing.T) {
	if NewStructuredError(nil) != nil {
		t.Error("nil input should produce nil")
	}
}

func TestNewStatusError(t *testing.T) {
	err := NewStatusError(503, "service unavailable", errors.New("upstream"))

	if err.Status != 503 {
		t.Errorf("status = %d, want 503", err.Status)
	}
	if err.HTTPStatus() != 503 {
		t.Errorf("HTTPStatus() = %d, want 503", err.HTTPStatus())
	}
	if err.Category != CategoryAPIError || !err.Retryable {
		t.Errorf("unexpected classification: %+v", err.ErrorClassification)
	}
	if err.RetryDelay != 5*time.Second {
		t.Errorf("retry delay = %s, want 5s", err.RetryDelay)
	}
}

func TestNewTimeoutError(t *testing.T) {
	err := NewTimeoutError(30 * time.Second)

	if err.Category != CategoryTimeout {
		t.Errorf("category = %s, want %s", err.Category, CategoryTimeout)
	}
	if !err.Retryable {
		t.Error("stream timeout should be retryable")
	}
	if !strings.Contains(err.Message, "30s") {
		t.Errorf("message should name the timeout, got %q", err.Message)
	}
}

func TestStructuredErrorMessage(t *testing.T) {
	err := NewStatusError(401, "invalid api key", nil)
	if got := err.Error(); got != "invalid api key (unauthorized)" {
		t.Errorf("Error() = %q", got)
	}

	withProvider := err.WithContext(ErrorContext{Provider: "openai"})
	if got := withProvider.Error(); got != "openai: invalid api key (unauthorized)" {
		t.Errorf("Error() = %q", got)
	}
}

func TestWithContextImmutable(t *testing.T) {
	base := NewStatusError(500, "boom", nil)
	base.Context.Metadata = map[string]any{"a": 1}

	derived := base.WithContext(ErrorContext{
		Provider: "gemini",
		Model:    "gemini-1.5-flash",
		Metadata: map[string]any{"b": 2},
	})

	if base.Context.Provider != "" || base.Context.Model != "" {
		t.Error("WithContext must not mutate the receiver")
	}
	if len(base.Context.Metadata) != 1 {
		t.Error("WithContext must not mutate the receiver's metadata")
	}
	if derived.Context.Provider != "gemini" || derived.Context.Model != "gemini-1.5-flash" {
		t.Errorf("derived context = %+v", derived.Context)
	}
	if derived.Context.Metadata["a"] != 1 || derived.Context.Metadata["b"] != 2 {
		t.Errorf("metadata should merge, got %+v", derived.Context.Metadata)
	}
	if derived.Code != base.Code || derived.Status != base.Status {
		t.Error("classification and status must carry over")
	}
}

func TestStructuredErrorFormat(t *testing.T) {
	err := NewStatusError(429, "rate limited", errors.New("too many requests"))
	err.RetryAfter = 3 * time.Second
	err = err.WithContext(ErrorContext{Provider: "openrouter", Model: "gpt-4o-mini", RequestID: "req-123"})

	report := err.Format()
	for _, want := range []string{
		"error: rate limited",
		"code: rate_limited",
		"category: rate_limited",
		"retryable: true",
		"status: 429",
		"provider: openrouter",
		"model: gpt-4o-mini",
		"request_id: req-123",
		"cause: too many requests",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("Format() missing %q:\n%s", want, report)
		}
	}
}

func TestStructuredErrorMarshalJSON(t *testing.T) {
	err := NewStatusError(503, "unavailable", errors.New("upstream down"))
	err = err.WithContext(ErrorContext{Provider: "bedrock"})

	data, marshalErr := json.Marshal(err)
	if marshalErr != nil {
		t.Fatalf("marshal failed: %v", marshalErr)
	}

	var projection map[string]any
	if unmarshalErr := json.Unmarshal(data, &projection); unmarshalErr != nil {
		t.Fatalf("projection is not valid JSON: %v", unmarshalErr)
	}

	if projection["code"] != "service_unavailable" {
		t.Errorf("code = %v", projection["code"])
	}
	if projection["category"] != "api_error" {
		t.Errorf("category = %v", projection["category"])
	}
	if projection["retryable"] != true {
		t.Errorf("retryable = %v", projection["retryable"])
	}
	if projection["status"] != float64(503) {
		t.Errorf("status = %v", projection["status"])
	}
	if projection["provider"] != "bedrock" {
		t.Errorf("provider = %v", projection["provider"])
	}
	if projection["cause"] != "upstream down" {
		t.Errorf("cause = %v", projection["cause"])
	}
	if _, ok := projection["timestamp"].(string); !ok {
		t.Error("timestamp should be an RFC3339 string")
	}
}

func TestStructuredErrorAsTarget(t *testing.T) {
	structured := NewStatusError(429, "rate limited", nil)
	wrapped := fmt.Errorf("after 3 attempts: %w", structured)

	var target *StructuredError
	if !errors.As(wrapped, &target) {
		t.Fatal("errors.As should find the structured error through wrapping")
	}
	if target.Status != 429 {
		t.Errorf("status = %d, want 429", target.Status)
	}
}
