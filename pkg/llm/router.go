package llm

import (
	"context"
	"fmt"
	"sync"
)

// EventRouter dispatches canonical stream events to registered handlers by
// event type, with thread-safe registration. A typical consumer registers a
// text handler that renders deltas and an error handler that reports the
// terminal failure, then drains a stream through RouteStream.
type EventRouter struct {
	// handlers maps event types to their registered handlers
	handlers map[EventType][]EventHandler

	// defaultHandler provides fallback processing for unhandled types
	defaultHandler EventHandler

	mu sync.RWMutex
}

// NewEventRouter creates an EventRouter with an empty handler registry
func NewEventRouter() *EventRouter {
	return &EventRouter{
		handlers: make(map[EventType][]EventHandler),
	}
}

// RegisterHandler registers a handler for the specified event type.
// Multiple handlers can be registered for the same type; they run in
// registration order.
func (r *EventRouter) RegisterHandler(eventType EventType, handler EventHandler) {
	if handler == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[eventType] = append(r.handlers[eventType], handler)
}

// UnregisterHandler removes a specific handler from the specified event
// type, matched by pointer equality. Returns true if the handler was found
// and removed.
func (r *EventRouter) UnregisterHandler(eventType EventType, handler EventHandler) bool {
	if handler == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	handlersList, exists := r.handlers[eventType]
	if !exists {
		return false
	}

	for i, h := range handlersList {
		if h == handler {
			r.handlers[eventType] = append(handlersList[:i], handlersList[i+1:]...)
			if len(r.handlers[eventType]) == 0 {
				delete(r.handlers, eventType)
			}
			return true
		}
	}

	return false
}

// RouteEvent dispatches one event through all matching handlers. Handler
// failures do not stop the chain; they are collected and returned as a
// multi-error.
func (r *EventRouter) RouteEvent(ctx context.Context, event StreamEvent) error {
	r.mu.RLock()
	handlers := r.handlers[event.Type]
	defaultHandler := r.defaultHandler
	r.mu.RUnlock()

	var errs []error

	if len(handlers) == 0 {
		if defaultHandler != nil && defaultHandler.CanHandle(event) {
			if err := defaultHandler.Handle(ctx, event); err != nil {
				errs = append(errs, fmt.Errorf("default handler failed for %s event: %w", event.Type, err))
			}
		}
		// Events nobody registered for are dropped, not errors. A consumer
		// that only renders text must not fail on usage events.
	} else {
		for i, handler := range handlers {
			if handler == nil || !handler.CanHandle(event) {
				continue
			}
			if err := handler.Handle(ctx, event); err != nil {
				errs = append(errs, fmt.Errorf("handler %d failed for %s event: %w", i, event.Type, err))
			}
		}
	}

	if len(errs) > 0 {
		return &MultiError{Errors: errs}
	}
	return nil
}

// RouteStream drains a stream source, dispatching every event until the
// channel closes or ctx is cancelled. The source is closed on every exit
// path. Handler failures are aggregated and returned after the drain
// completes; cancellation returns the context error.
func (r *EventRouter) RouteStream(ctx context.Context, src *StreamSource) error {
	defer func() { _ = src.Close() }()

	var errs []error
	for {
		select {
		case event, ok := <-src.Events():
			if !ok {
				if len(errs) > 0 {
					return &MultiError{Errors: errs}
				}
				return nil
			}
			if err := r.RouteEvent(ctx, event); err != nil {
				errs = append(errs, err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// SetDefaultHandler sets the fallback handler for event types with no
// registered handlers. Pass nil to remove it.
func (r *EventRouter) SetDefaultHandler(handler EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultHandler = handler
}

// GetHandlers returns a copy of all handlers registered for the specified
// event type.
func (r *EventRouter) GetHandlers(eventType EventType) []EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handlersList, exists := r.handlers[eventType]
	if !exists {
		return []EventHandler{}
	}

	result := make([]EventHandler, len(handlersList))
	copy(result, handlersList)
	return result
}

// SupportedTypes returns all event types that have registered handlers.
// The order is not guaranteed.
func (r *EventRouter) SupportedTypes() []EventType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]EventType, 0, len(r.handlers))
	for eventType := range r.handlers {
		types = append(types, eventType)
	}
	return types
}

// HandlerCount returns the total number of handlers across all types
func (r *EventRouter) HandlerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, handlers := range r.handlers {
		count += len(handlers)
	}
	return count
}

// Clear removes all registered handlers and the default handler
func (r *EventRouter) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = make(map[EventType][]EventHandler)
	r.defaultHandler = nil
}

// MultiError aggregates multiple handler errors from one routing pass
type MultiError struct {
	Errors []error
}

// Error implements the error interface by joining all error messages
func (me *MultiError) Error() string {
	if len(me.Errors) == 0 {
		return ""
	}
	if len(me.Errors) == 1 {
		return me.Errors[0].Error()
	}

	var result string
	for i, err := range me.Errors {
		if i > 0 {
			result += "; "
		}
		result += err.Error()
	}
	return result
}

// Unwrap returns the underlying errors for errors.Is/errors.As inspection
func (me *MultiError) Unwrap() []error {
	return me.Errors
}
