// Structured error type carrying classification and provenance
package llm

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ErrorContext records where and when a provider failure happened. A zero
// Timestamp is stamped at construction.
type ErrorContext struct {
	Provider  string         `json:"provider,omitempty"`
	Model     string         `json:"model,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// StructuredError is the module's standardized error: a classification plus
// a human message, the originating HTTP status (if any), the causing error
// (if any) and contextual metadata. Values are never mutated after
// construction; WithContext returns an updated copy.
type StructuredError struct {
	ErrorClassification

	Message    string
	Status     int           // HTTP status, 0 when the failure was not an HTTP response
	RetryAfter time.Duration // provider Retry-After hint, 0 when absent
	Cause      error
	Context    ErrorContext
}

// NewStructuredError wraps an arbitrary error with its classification. If
// err is already structured it is returned unchanged, keeping
// classification idempotent.
func NewStructuredError(err error) *StructuredError {
	if err == nil {
		return nil
	}
	if structured, ok := err.(*StructuredError); ok {
		return structured
	}
	e := &StructuredError{
		ErrorClassification: ClassifyError(err),
		Message:             err.Error(),
		Cause:               err,
	}
	if statusErr, ok := err.(HTTPStatusError); ok {
		e.Status = statusErr.HTTPStatus()
	}
	stampTimestamp(&e.Context)
	return e
}

// NewStatusError builds a structured error from an HTTP failure
func NewStatusError(status int, message string, cause error) *StructuredError {
	e := &StructuredError{
		ErrorClassification: ClassifyHTTPStatus(status),
		Message:             message,
		Status:              status,
		Cause:               cause,
	}
	stampTimestamp(&e.Context)
	return e
}

// NewTimeoutError builds the structured error raised by the inactivity
// timeout wrapper
func NewTimeoutError(timeout time.Duration) *StructuredError {
	e := &StructuredError{
		ErrorClassification: ErrorClassification{
			Code:       "stream_timeout",
			Category:   CategoryTimeout,
			Retryable:  true,
			RetryDelay: 2 * time.Second,
		},
		Message: fmt.Sprintf("no stream events received within %s", timeout),
	}
	stampTimestamp(&e.Context)
	return e
}

func stampTimestamp(ctx *ErrorContext) {
	if ctx.Timestamp.IsZero() {
		ctx.Timestamp = time.Now()
	}
}

func (e *StructuredError) Error() string {
	if e.Context.Provider != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Context.Provider, e.Message, e.Code)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// Unwrap exposes the causing error for errors.Is/errors.As chains
func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// HTTPStatus implements HTTPStatusError
func (e *StructuredError) HTTPStatus() int {
	return e.Status
}

// WithContext returns a copy of the error with the non-zero fields of ctx
// merged into its context. The receiver is never modified.
func (e *StructuredError) WithContext(ctx ErrorContext) *StructuredError {
	clone := *e
	merged := e.Context
	if ctx.Provider != "" {
		merged.Provider = ctx.Provider
	}
	if ctx.Model != "" {
		merged.Model = ctx.Model
	}
	if ctx.RequestID != "" {
		merged.RequestID = ctx.RequestID
	}
	if !ctx.Timestamp.IsZero() {
		merged.Timestamp = ctx.Timestamp
	}
	if len(ctx.Metadata) > 0 {
		metadata := make(map[string]any, len(merged.Metadata)+len(ctx.Metadata))
		for k, v := range merged.Metadata {
			metadata[k] = v
		}
		for k, v := range ctx.Metadata {
			metadata[k] = v
		}
		merged.Metadata = metadata
	}
	clone.Context = merged
	return &clone
}

// Format renders a deterministic multi-line report for diagnostics
func (e *StructuredError) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "error: %s\n", e.Message)
	fmt.Fprintf(&b, "  code: %s\n", e.Code)
	fmt.Fprintf(&b, "  category: %s\n", e.Category)
	fmt.Fprintf(&b, "  retryable: %t\n", e.Retryable)
	if e.Status != 0 {
		fmt.Fprintf(&b, "  status: %d\n", e.Status)
	}
	if e.RetryDelay > 0 {
		fmt.Fprintf(&b, "  retry_delay: %s\n", e.RetryDelay)
	}
	if e.Context.Provider != "" {
		fmt.Fprintf(&b, "  provider: %s\n", e.Context.Provider)
	}
	if e.Context.Model != "" {
		fmt.Fprintf(&b, "  model: %s\n", e.Context.Model)
	}
	if e.Context.RequestID != "" {
		fmt.Fprintf(&b, "  request_id: %s\n", e.Context.RequestID)
	}
	fmt.Fprintf(&b, "  timestamp: %s\n", e.Context.Timestamp.UTC().Format(time.RFC3339))
	if e.Cause != nil {
		fmt.Fprintf(&b, "  cause: %s\n", e.Cause.Error())
	}
	return b.String()
}

// MarshalJSON renders a projection for structured logging. It is not a wire
// format; nothing in this module parses it back.
func (e *StructuredError) MarshalJSON() ([]byte, error) {
	projection := map[string]any{
		"code":      e.Code,
		"category":  e.Category,
		"retryable": e.Retryable,
		"message":   e.Message,
		"timestamp": e.Context.Timestamp.UTC().Format(time.RFC3339),
	}
	if e.RetryDelay > 0 {
		projection["retry_delay_ms"] = e.RetryDelay.Milliseconds()
	}
	if e.Status != 0 {
		projection["status"] = e.Status
	}
	if e.Context.Provider != "" {
		projection["provider"] = e.Context.Provider
	}
	if e.Context.Model != "" {
		projection["model"] = e.Context.Model
	}
	if e.Context.RequestID != "" {
		projection["request_id"] = e.Context.RequestID
	}
	if e.Cause != nil {
		projection["cause"] = e.Cause.Error()
	}
	return json.Marshal(projection)
}
