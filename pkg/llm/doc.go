// Package llm provides a resilience and normalization layer between agentic
// applications and heterogeneous LLM streaming APIs.
//
// This package defines the canonical event model that all provider adapters
// emit, along with the machinery that makes raw provider streams safe to
// consume:
//
// - Client interface: core LLM client functionality
// - StreamEvent: canonical streaming events (text, reasoning, tool calls, usage)
// - Normalizers: mapping provider-native delta shapes to canonical events
// - Error classification: a stable taxonomy with retryability and delay hints
// - StructuredError: standardized errors carrying classification and context
// - Stream wrappers: inactivity timeout and clean context-based abort
// - Accumulator: folding an event stream into a complete response
// - Retry: classification-driven retry with exponential backoff
//
// Provider implementations are located in separate packages under
// /pkg/providers/ to maintain clean separation of concerns and avoid import
// cycles.
package llm
