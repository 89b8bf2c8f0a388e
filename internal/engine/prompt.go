package engine

import (
	"github.com/ayokoji/aiko/internal/llm"
)

// buildPrompt assembles the generation request: persona system prompt,
// the rolling summary (when present) as a second system message, then
// the live history in order.
func (e *Engine) buildPrompt(ts *turnState) []llm.Message {
	msgs := make([]llm.Message, 0, len(ts.conv.Messages)+2)

	msgs = append(msgs, llm.Message{
		Role:    "system",
		Content: e.persona.Render(ts.req.User),
	})

	if ts.conv.Summary != "" {
		msgs = append(msgs, llm.Message{
			Role:    "system",
			Content: "Summary of the earlier conversation:\n" + ts.conv.Summary,
		})
	}

	for _, m := range ts.conv.Messages {
		msgs = append(msgs, llm.Message{
			Role:       m.Role,
			Content:    m.Content,
			Images:     m.Images,
			ToolCalls:  toLLMCalls(m.ToolCalls),
			ToolCallID: m.ToolCallID,
		})
	}
	return msgs
}
