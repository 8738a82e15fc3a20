package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestClassifyHTTPStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		category  ErrorCategory
		retryable bool
		delay     time.Duration
	}{
		{"unauthorized", 401, CategoryCredentialInvalid, false, 0},
		{"forbidden", 403, CategoryCredentialInvalid, false, 0},
		{"rate limited", 429, CategoryRateLimited, true, time.Second},
		{"internal server error", 500, CategoryAPIError, true, time.Second},
		{"bad gateway", 502, CategoryAPIError, true, 2 * time.Second},
		{"service unavailable", 503, CategoryAPIError, true, 5 * time.Second},
		{"gateway timeout", 504, CategoryTimeout, true, 2 * time.Second},
		{"unmapped 5xx", 599, CategoryAPIError, true, time.Second},
		{"unmapped 4xx", 418, CategoryAPIError, false, 0},
		{"bad request", 400, CategoryAPIError, false, 0},
		{"not found", 404, CategoryAPIError, false, 0},
		{"unclassifiable", 302, CategoryUnknown, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cls := ClassifyHTTPStatus(tt.status)
			if cls.Category != tt.category {
				t.Errorf("status %d: category = %s, want %s", tt.status, cls.Category, tt.category)
			}
			if cls.Retryable != tt.retryable {
				t.Errorf("status %d: retryable = %t, want %t", tt.status, cls.Retryable, tt.retryable)
			}
			if cls.RetryDelay != tt.delay {
				t.Errorf("status %d: delay = %s, want %s", tt.status, cls.RetryDelay, tt.delay)
			}
		})
	}
}

func TestClassifyErrorMessagePatterns(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		category  ErrorCategory
		retryable bool
	}{
		{"timeout message", errors.New("request timed out"), CategoryTimeout, true},
		{"etimedout", errors.New("dial tcp: ETIMEDOUT"), CategoryTimeout, true},
		{"connection refused", errors.New("dial tcp 127.0.0.1:443: ECONNREFUSED"), CategoryNetworkError, true},
		{"connection reset", errors.New("read: connection reset by peer"), CategoryNetworkError, true},
		{"socket error", errors.New("socket hang up"), CategoryNetworkError, true},
		{"aborted", errors.New("request aborted by caller"), CategoryUnknown, false},
		{"cancelled", errors.New("operation cancelled"), CategoryUnknown, false},
		{"context overflow", errors.New("this model's maximum context length is 8192 tokens"), CategoryContextOverflow, false},
		{"token limit", errors.New("prompt exceeds token limit"), CategoryContextOverflow, false},
		{"content filter", errors.New("response flagged by moderation"), CategoryContentFilter, false},
		{"safety", errors.New("blocked for safety reasons"), CategoryContentFilter, false},
		{"unknown", errors.New("something inexplicable"), CategoryUnknown, false},
		{"nil error", nil, CategoryUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cls := ClassifyError(tt.err)
			if cls.Category != tt.category {
				t.Errorf("category = %s, want %s", cls.Category, tt.category)
			}
			if cls.Retryable != tt.retryable {
				t.Errorf("retryable = %t, want %t", cls.Retryable, tt.retryable)
			}
		})
	}
}

func TestClassifyErrorFamilyPrecedence(t *testing.T) {
	// A message matching both the timeout and network families must
	// classify as timeout, the earlier family.
	cls := ClassifyError(errors.New("connection timed out"))
	if cls.Category != CategoryTimeout {
		t.Errorf("category = %s, want %s", cls.Category, CategoryTimeout)
	}
}

func TestClassifyErrorContextSentinels(t *testing.T) {
	// "context deadline exceeded" contains the token "context"; the
	// sentinel check must classify it as a timeout, not an overflow.
	cls := ClassifyError(context.DeadlineExceeded)
	if cls.Category != CategoryTimeout {
		t.Errorf("DeadlineExceeded category = %s, want %s", cls.Category, CategoryTimeout)
	}
	if !cls.Retryable {
		t.Error("DeadlineExceeded should be retryable")
	}

	cls = ClassifyError(context.Canceled)
	if cls.Retryable {
		t.Error("Canceled should not be retryable")
	}

	wrapped := fmt.Errorf("stream read: %w", context.DeadlineExceeded)
	if got := ClassifyError(wrapped).Category; got != CategoryTimeout {
		t.Errorf("wrapped DeadlineExceeded category = %s, want %s", got, CategoryTimeout)
	}
}

func TestClassifyErrorIdempotent(t *testing.T) {
	structured := NewStatusError(429, "rate limited", nil)
	cls := ClassifyError(structured)
	if cls != structured.ErrorClassification {
		t.Errorf("re-classification changed the result: %+v != %+v", cls, structured.ErrorClassification)
	}

	wrapped := fmt.Errorf("attempt 2: %w", structured)
	if got := ClassifyError(wrapped); got != structured.ErrorClassification {
		t.Errorf("wrapped structured error lost its classification: %+v", got)
	}
}

type statusCodeError struct {
	status int
}

func (e *statusCodeError) Error() string   { return fmt.Sprintf("http %d", e.status) }
func (e *statusCodeError) HTTPStatus() int { return e.status }

func TestClassifyErrorHTTPStatusDelegation(t *testing.T) {
	cls := ClassifyError(&statusCodeError{status: 503})
	if cls.Category != CategoryAPIError || !cls.Retryable || cls.RetryDelay != 5*time.Second {
		t.Errorf("unexpected classification for 503 carrier: %+v", cls)
	}
}

func TestRetryDelayRetryAfterWins(t *testing.T) {
	err := NewStatusError(429, "rate limited", nil)
	err.RetryAfter = 7 * time.Second

	for attempt := 1; attempt <= 5; attempt++ {
		if got := RetryDelay(err, attempt); got != 7*time.Second {
			t.Errorf("attempt %d: delay = %s, want 7s", attempt, got)
		}
	}
}

func TestRetryDelayExponentialBounds(t *testing.T) {
	err := NewStatusError(503, "unavailable", nil) // base 5s

	tests := []struct {
		attempt int
		min     time.Duration
		max     time.Duration
	}{
		{1, 5 * time.Second, 6500 * time.Millisecond},
		{2, 10 * time.Second, 13 * time.Second},
		{3, 20 * time.Second, 26 * time.Second},
		{10, maxRetryDelay, maxRetryDelay},
	}

	for _, tt := range tests {
		got := RetryDelay(err, tt.attempt)
		if got < tt.min || got > tt.max {
			t.Errorf("attempt %d: delay = %s, want within [%s, %s]", tt.attempt, got, tt.min, tt.max)
		}
	}
}

func TestRetryDelayDefaultsBase(t *testing.T) {
	// Unknown errors have no base delay; the schedule falls back to 1s.
	got := RetryDelay(errors.New("inexplicable"), 1)
	if got < time.Second || got > 1300*time.Millisecond {
		t.Errorf("delay = %s, want within [1s, 1.3s]", got)
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"whole seconds", "5", 5 * time.Second},
		{"padded", "  30 ", 30 * time.Second},
		{"absent", "", 0},
		{"http date unsupported", "Wed, 21 Oct 2015 07:28:00 GMT", 0},
		{"negative", "-1", 0},
		{"zero", "0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := http.Header{}
			if tt.value != "" {
				headers.Set("Retry-After", tt.value)
			}
			if got := ParseRetryAfter(headers); got != tt.want {
				t.Errorf("ParseRetryAfter(%q) = %s, want %s", tt.value, got, tt.want)
			}
		})
	}

	if got := ParseRetryAfter(nil); got != 0 {
		t.Errorf("ParseRetryAfter(nil) = %s, want 0", got)
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(NewStatusError(500, "boom", nil)) {
		t.Error("500 should be retryable")
	}
	if IsRetryable(NewStatusError(401, "no key", nil)) {
		t.Error("401 should not be retryable")
	}
	if IsRetryable(nil) {
		t.Error("nil should not be retryable")
	}
}
