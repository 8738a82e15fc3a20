package llm

import (
	"context"
	"fmt"
	"sync"
)

// EventHandler processes canonical stream events dispatched by an
// EventRouter. Handlers should be stateless or internally synchronized;
// the router may invoke them from the goroutine draining the stream.
type EventHandler interface {
	// CanHandle determines if this handler can process the given event
	CanHandle(event StreamEvent) bool

	// Handle processes the event. Context should be propagated for
	// cancellation/timeouts.
	Handle(ctx context.Context, event StreamEvent) error
}

// TypedEventHandler is a concrete EventHandler that handles a single event
// type using a provided handler function.
type TypedEventHandler struct {
	// SupportedType is the event type this handler supports
	SupportedType EventType

	// Handler is the processing function
	Handler func(ctx context.Context, event StreamEvent) error

	mu sync.RWMutex
}

// NewTypedEventHandler creates a TypedEventHandler for the given event type
func NewTypedEventHandler(eventType EventType, handlerFunc func(ctx context.Context, event StreamEvent) error) *TypedEventHandler {
	if handlerFunc == nil {
		panic("handler function cannot be nil")
	}
	return &TypedEventHandler{
		SupportedType: eventType,
		Handler:       handlerFunc,
	}
}

// CanHandle returns true if the event type matches the handler's supported
// type.
func (h *TypedEventHandler) CanHandle(event StreamEvent) bool {
	if h == nil {
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return event.Type == h.SupportedType
}

// Handle processes the event using the configured handler function
func (h *TypedEventHandler) Handle(ctx context.Context, event StreamEvent) error {
	if h == nil {
		return fmt.Errorf("handler is nil")
	}
	if !h.CanHandle(event) {
		return fmt.Errorf("handler does not support event type: %s", event.Type)
	}

	h.mu.RLock()
	handlerFunc := h.Handler
	h.mu.RUnlock()

	if handlerFunc == nil {
		return fmt.Errorf("handler function is nil")
	}
	return handlerFunc(ctx, event)
}

// FindHandler returns the first handler that can process the given event.
// Returns nil if no suitable handler is found.
func FindHandler(event StreamEvent, handlers []EventHandler) EventHandler {
	for _, handler := range handlers {
		if handler != nil && handler.CanHandle(event) {
			return handler
		}
	}
	return nil
}
