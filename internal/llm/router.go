package llm

import "context"

// Binding ties a client to a concrete model name. A binding is the unit
// the modality router hands out: one generation path, fixed for the
// whole turn it was picked for.
type Binding struct {
	client Client
	model  string
}

// NewBinding creates a binding for a client and model.
func NewBinding(client Client, model string) Binding {
	return Binding{client: client, model: model}
}

// Model returns the bound model name.
func (b Binding) Model() string { return b.model }

// Chat invokes the bound model.
func (b Binding) Chat(ctx context.Context, messages []Message, tools []map[string]any) (*ChatResponse, error) {
	return b.client.Chat(ctx, b.model, messages, tools)
}

// Router picks the generation binding for a turn. Both bindings share
// prompt construction, tool dispatch, and summarization downstream;
// only the underlying model differs.
type Router struct {
	text   Binding
	vision Binding
}

// NewRouter creates a modality router from the two bindings.
func NewRouter(text, vision Binding) *Router {
	return &Router{text: text, vision: vision}
}

// Pick returns the binding for a turn: vision when the inbound turn
// carried at least one processable image, text otherwise.
func (r *Router) Pick(hasImages bool) Binding {
	if hasImages {
		return r.vision
	}
	return r.text
}

// Text returns the text binding.
func (r *Router) Text() Binding { return r.text }

// Vision returns the vision binding.
func (r *Router) Vision() Binding { return r.vision }
