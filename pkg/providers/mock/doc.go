// Package mock provides a mock client implementation for testing.
//
// The client implements the llm.Client interface with queued responses,
// errors and exact stream scripts, consumed in FIFO order. Queued errors on
// streaming calls surface as in-band terminal error events, mirroring how
// real providers fail mid-stream. When the queues run dry the client falls
// back to a canned response derived from the last user message, so it can
// stand in for a real provider during development without configuration.
//
// Stream scripts combined with WithStreamDelay and WithStreamTimeout make
// it possible to exercise inactivity-timeout and abort behavior without a
// network.
package mock
