// Package bedrock provides an LLM client for AWS Bedrock foundation models.
//
// The provider implements the llm.Client interface over the aws-sdk-go-v2
// bedrockruntime API, with per-family payload conversion: Claude models use
// the messages API (with tool use and thinking blocks mapped to canonical
// tool-call and reasoning events), while Titan and Llama models exchange
// plain prompt/text payloads.
//
// Authentication uses the AWS SDK's default credential chain, so environment
// variables, profiles and IAM roles all work without an API key. The region
// and custom endpoints can be set through the config's Extra map ("region",
// "bedrock_endpoint", "bedrock_runtime_endpoint").
//
// Smithy error codes from the SDK are mapped onto HTTP statuses before
// classification, so throttling and credential failures carry the same
// retry semantics as the HTTP providers.
package bedrock
