// Package gemini provides an LLM client for Google Gemini models.
//
// The provider is built on the official google.golang.org/genai library and
// implements the llm.Client interface for text generation. Streamed chunks
// are flattened into canonical text events, safety blocks surface as in-band
// structured errors, and token counts from the final chunk's usage metadata
// become a canonical usage event.
//
// Tool declarations are not wired through to the Gemini function-calling
// API; requests carrying tools are sent without them.
package gemini
