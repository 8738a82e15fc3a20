// Error classification and retry policy
package llm

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrorCategory buckets provider failures into a stable taxonomy
type ErrorCategory string

const (
	CategoryCredentialInvalid ErrorCategory = "credential_invalid"
	CategoryRateLimited       ErrorCategory = "rate_limited"
	CategoryTimeout           ErrorCategory = "timeout"
	CategoryNetworkError      ErrorCategory = "network_error"
	CategoryAPIError          ErrorCategory = "api_error"
	CategoryContextOverflow   ErrorCategory = "context_overflow"
	CategoryContentFilter     ErrorCategory = "content_filter"
	CategoryUnknown           ErrorCategory = "unknown"
)

// ErrorClassification is the universal output of classification regardless
// of input shape. It is advisory: RetryDelay is a suggestion, not a policy.
type ErrorClassification struct {
	Code      string        `json:"code"`
	Category  ErrorCategory `json:"category"`
	Retryable bool          `json:"retryable"`
	RetryDelay time.Duration `json:"-"`
}

// HTTPStatusError is implemented by errors that carry an HTTP status code,
// letting ClassifyError delegate to the status table.
type HTTPStatusError interface {
	error
	HTTPStatus() int
}

const maxRetryDelay = 60 * time.Second

// httpStatusTable maps well-known status codes to their classification.
var httpStatusTable = map[int]ErrorClassification{
	http.StatusBadRequest:          {Code: "bad_request", Category: CategoryAPIError},
	http.StatusUnauthorized:        {Code: "unauthorized", Category: CategoryCredentialInvalid},
	http.StatusForbidden:           {Code: "forbidden", Category: CategoryCredentialInvalid},
	http.StatusNotFound:            {Code: "not_found", Category: CategoryAPIError},
	http.StatusUnprocessableEntity: {Code: "unprocessable", Category: CategoryAPIError},
	http.StatusTooManyRequests:     {Code: "rate_limited", Category: CategoryRateLimited, Retryable: true, RetryDelay: time.Second},
	http.StatusInternalServerError: {Code: "internal_server_error", Category: CategoryAPIError, Retryable: true, RetryDelay: time.Second},
	http.StatusBadGateway:          {Code: "bad_gateway", Category: CategoryAPIError, Retryable: true, RetryDelay: 2 * time.Second},
	http.StatusServiceUnavailable:  {Code: "service_unavailable", Category: CategoryAPIError, Retryable: true, RetryDelay: 5 * time.Second},
	http.StatusGatewayTimeout:      {Code: "gateway_timeout", Category: CategoryTimeout, Retryable: true, RetryDelay: 2 * time.Second},
}

// ClassifyHTTPStatus classifies a raw HTTP status code. Unmapped 5xx codes
// are retryable server failures, unmapped 4xx codes are permanent request
// failures, and anything else is unknown.
func ClassifyHTTPStatus(status int) ErrorClassification {
	if cls, ok := httpStatusTable[status]; ok {
		return cls
	}
	switch {
	case status >= 500 && status < 600:
		return ErrorClassification{Code: "server_error", Category: CategoryAPIError, Retryable: true, RetryDelay: time.Second}
	case status >= 400 && status < 500:
		return ErrorClassification{Code: "client_error", Category: CategoryAPIError}
	default:
		return ErrorClassification{Code: "unknown", Category: CategoryUnknown}
	}
}

// messagePattern maps substring tokens to a classification. Families are
// checked in order; the first family with a matching token wins.
type messagePattern struct {
	tokens []string
	cls    ErrorClassification
}

var messagePatterns = []messagePattern{
	{
		tokens: []string{"timeout", "timed out", "etimedout", "deadline"},
		cls:    ErrorClassification{Code: "timeout", Category: CategoryTimeout, Retryable: true, RetryDelay: 2 * time.Second},
	},
	{
		tokens: []string{"network", "econnrefused", "econnreset", "enotfound", "socket", "connection"},
		cls:    ErrorClassification{Code: "network_error", Category: CategoryNetworkError, Retryable: true, RetryDelay: time.Second},
	},
	{
		// An aborted operation is not something to retry automatically.
		tokens: []string{"abort", "cancelled", "canceled"},
		cls:    ErrorClassification{Code: "aborted", Category: CategoryUnknown},
	},
	{
		tokens: []string{"context", "token limit", "max_tokens", "context_length"},
		cls:    ErrorClassification{Code: "context_overflow", Category: CategoryContextOverflow},
	},
	{
		tokens: []string{"content filter", "flagged", "safety"},
		cls:    ErrorClassification{Code: "content_filter", Category: CategoryContentFilter},
	},
}

// ClassifyError classifies an arbitrary error. Structured errors keep their
// existing classification (re-classification is idempotent), errors carrying
// an HTTP status delegate to the status table, and everything else falls
// back to substring matching over the message and concrete type name.
func ClassifyError(err error) ErrorClassification {
	if err == nil {
		return ErrorClassification{Code: "unknown", Category: CategoryUnknown}
	}

	var structured *StructuredError
	if errors.As(err, &structured) {
		return structured.ErrorClassification
	}

	var statusErr HTTPStatusError
	if errors.As(err, &statusErr) {
		if status := statusErr.HTTPStatus(); status != 0 {
			return ClassifyHTTPStatus(status)
		}
	}

	// Context errors carry well-known sentinels; match them before the
	// substring pass so "context deadline exceeded" is not mistaken for a
	// context-window overflow.
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorClassification{Code: "timeout", Category: CategoryTimeout, Retryable: true, RetryDelay: 2 * time.Second}
	}
	if errors.Is(err, context.Canceled) {
		return ErrorClassification{Code: "aborted", Category: CategoryUnknown}
	}

	haystack := strings.ToLower(err.Error() + " " + fmt.Sprintf("%T", err))
	for _, pattern := range messagePatterns {
		for _, token := range pattern.tokens {
			if strings.Contains(haystack, token) {
				return pattern.cls
			}
		}
	}

	return ErrorClassification{Code: "unknown", Category: CategoryUnknown}
}

// IsRetryable reports whether the error is worth retrying at all
func IsRetryable(err error) bool {
	return ClassifyError(err).Retryable
}

// RetryDelay suggests how long to wait before retry number attempt
// (1-indexed). A provider Retry-After hint wins outright; otherwise the
// classification's base delay grows exponentially with 0-30% jitter, capped
// at 60 seconds.
func RetryDelay(err error, attempt int) time.Duration {
	var structured *StructuredError
	if errors.As(err, &structured) && structured.RetryAfter > 0 {
		return structured.RetryAfter
	}

	base := ClassifyError(err).RetryDelay
	if base <= 0 {
		base = time.Second
	}
	if attempt < 1 {
		attempt = 1
	}

	delay := float64(base) * math.Pow(2, float64(attempt-1))

	random, err2 := secureRandomFloat64()
	if err2 != nil {
		random = 0
	}
	delay *= 1 + 0.3*random

	if delay > float64(maxRetryDelay) {
		delay = float64(maxRetryDelay)
	}
	return time.Duration(delay)
}

// ParseRetryAfter extracts a Retry-After hint (whole seconds) from response
// headers, for adapters to stamp onto structured errors. Returns zero when
// the header is absent or unparseable.
//
// None of the bundled provider SDKs expose response headers on their error
// types, so the bundled adapters cannot call this; it serves adapters built
// on raw HTTP transports. Classification falls back to the per-status
// RetryDelay when no header hint is available.
func ParseRetryAfter(headers http.Header) time.Duration {
	if headers == nil {
		return 0
	}
	value := headers.Get("Retry-After")
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// secureRandomFloat64 generates a cryptographically secure random float64
// between 0 and 1
func secureRandomFloat64() (float64, error) {
	var bytes [8]byte
	_, err := rand.Read(bytes[:])
	if err != nil {
		return 0, err
	}
	return float64(binary.BigEndian.Uint64(bytes[:])) / float64(^uint64(0)), nil
}
