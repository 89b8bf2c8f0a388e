package llm

import "context"

// Client is the interface all generation providers implement.
type Client interface {
	// Chat sends a chat completion request and returns the response.
	// tools, when non-nil, advertises callable tools in the provider's
	// function-calling format.
	Chat(ctx context.Context, model string, messages []Message, tools []map[string]any) (*ChatResponse, error)

	// Ping checks if the provider is reachable.
	Ping(ctx context.Context) error
}
