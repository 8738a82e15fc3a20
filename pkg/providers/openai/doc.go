// Package openai provides an OpenAI client implementation for go-llmstream.
//
// This package implements the llm.Client interface for OpenAI's GPT models,
// translating the SDK's streaming chunks into the canonical event model and
// its API errors into classified structured errors.
//
// Features:
// - Chat completions and streaming with canonical events
// - Function calling with incremental tool-call assembly
// - Inactivity timeout and context-based abort on streams
// - HTTP-status error classification with retry hints
//
// The client handles provider-specific request/response transformations
// while maintaining compatibility with the common llm interfaces.
package openai
