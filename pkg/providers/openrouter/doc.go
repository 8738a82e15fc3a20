// Package openrouter provides an LLM client for the OpenRouter gateway.
//
// OpenRouter fronts many underlying models behind a single OpenAI-compatible
// API. This provider implements the llm.Client interface on top of the
// go-openrouter SDK, normalizing streamed deltas (including the reasoning
// field emitted by thinking-capable models) into canonical events and
// classifying API errors by HTTP status.
//
// Optional identification headers can be supplied through the config's
// Extra map: "site_url" becomes the HTTP-Referer header and "app_name" the
// X-Title header.
package openrouter
