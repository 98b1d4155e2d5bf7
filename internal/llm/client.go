// Package llm provides LLM client implementations.
package llm

import "context"

// Client is the interface that all LLM providers must implement.
type Client interface {
	// Chat sends a chat completion request and returns the response.
	// Tool definitions use the OpenAI wire shape
	// ({"type":"function","function":{...}}); providers convert as needed.
	Chat(ctx context.Context, model string, messages []Message, tools []map[string]any) (*ChatResponse, error)

	// Ping checks if the provider is reachable.
	Ping(ctx context.Context) error
}
