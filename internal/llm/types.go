// Package llm provides generation client implementations.
package llm

import "time"

// Message represents a chat message for the generation model. Images
// carry base64-encoded image data for multimodal turns; providers that
// cannot accept images ignore them.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Images     []string   `json:"images,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"` // For tool responses
}

// ToolCall represents a tool call requested by the model. Arguments is
// the raw JSON object text; wire-format differences are normalized at
// the provider boundary.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ChatResponse is the unified response from any provider. Wire format
// conversion happens inside each client implementation.
type ChatResponse struct {
	Model     string
	CreatedAt time.Time
	Message   Message

	// Token usage (provider-neutral)
	InputTokens  int
	OutputTokens int

	// Timing (populated when available)
	TotalDuration time.Duration
}
