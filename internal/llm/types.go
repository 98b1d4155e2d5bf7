// Package llm provides LLM client implementations.
package llm

import "log/slog"

// LevelTrace is below Debug, used for wire-level payload logging.
const LevelTrace = slog.Level(-8)

// Message represents a chat message for the LLM.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"` // For tool responses
}

// ToolCall represents a tool call from the model. ID is the
// provider-assigned invocation identifier; tool results are correlated
// back to their call through it.
type ToolCall struct {
	ID       string `json:"id,omitempty"`
	Function struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"function"`
}

// NewToolCall builds a ToolCall; the anonymous Function struct makes
// literal construction awkward at call sites.
func NewToolCall(id, name string, args map[string]any) ToolCall {
	tc := ToolCall{ID: id}
	tc.Function.Name = name
	tc.Function.Arguments = args
	return tc
}

// ChatResponse is the unified response from any LLM provider.
// All fields use proper Go types; wire format conversion happens
// at provider boundaries (ollama.go, anthropic.go).
type ChatResponse struct {
	Model   string
	Message Message
	Done    bool

	// Token usage (provider-neutral)
	InputTokens  int
	OutputTokens int
}
