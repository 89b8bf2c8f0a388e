// Package conversation defines per-thread conversation state and the
// session store that owns it between turns.
package conversation

import (
	"time"

	"github.com/google/uuid"
)

// Message roles. Tool-result messages carry the ToolCallID of the call
// they answer; assistant messages may carry ToolCalls.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is a structured request from the model to execute a named
// tool before finalizing its answer.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON object text
}

// Message is a single turn entry in a conversation. Images hold
// base64-encoded image parts for multimodal user messages, in the
// order they arrived.
type Message struct {
	ID         string     `json:"id"`
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Images     []string   `json:"images,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// NewMessage creates a message with a fresh ID and timestamp.
func NewMessage(role, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// UserContext is the caller-supplied relationship state for one turn.
// It is rendered into the system prompt but never persisted beyond the
// turn it arrived with.
type UserContext struct {
	Username string `json:"username"`
	Intimacy int    `json:"intimacy"`
}

// Conversation is the checkpointed state for one thread. Message order
// is chronological and load-bearing: tool results follow the assistant
// message that requested them, and prompts are built in slice order.
type Conversation struct {
	ThreadID string    `json:"thread_id"`
	Messages []Message `json:"messages"`
	// Summary condenses all messages ever pruned from this thread.
	// Empty until the first compaction.
	Summary     string    `json:"summary,omitempty"`
	LastMessage time.Time `json:"last_message"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// New returns an empty conversation for a thread.
func New(threadID string) *Conversation {
	now := time.Now().UTC()
	return &Conversation{
		ThreadID:  threadID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy. The engine mutates a working copy during a
// turn and commits it once; the store must never hand out aliased state.
func (c *Conversation) Clone() *Conversation {
	out := *c
	out.Messages = make([]Message, len(c.Messages))
	for i, m := range c.Messages {
		out.Messages[i] = m.clone()
	}
	return &out
}

func (m Message) clone() Message {
	out := m
	if m.Images != nil {
		out.Images = append([]string(nil), m.Images...)
	}
	if m.ToolCalls != nil {
		out.ToolCalls = append([]ToolCall(nil), m.ToolCalls...)
	}
	return out
}

// Append adds a message and bumps UpdatedAt.
func (c *Conversation) Append(m Message) {
	c.Messages = append(c.Messages, m)
	c.UpdatedAt = time.Now().UTC()
}

// Reset collapses the conversation to contain only the supplied message
// and clears the summary. Used when the gap detector decides the prior
// context is stale.
func (c *Conversation) Reset(m Message, now time.Time) {
	c.Messages = []Message{m}
	c.Summary = ""
	c.LastMessage = now
	c.UpdatedAt = now
}

// Prune removes all but the most recent keep messages. It returns the
// removed prefix in original order. A keep at or above the current
// length removes nothing; a negative keep is treated as zero.
func (c *Conversation) Prune(keep int) []Message {
	if keep < 0 {
		keep = 0
	}
	if len(c.Messages) <= keep {
		return nil
	}
	cut := len(c.Messages) - keep
	removed := make([]Message, cut)
	copy(removed, c.Messages[:cut])
	c.Messages = append([]Message(nil), c.Messages[cut:]...)
	c.UpdatedAt = time.Now().UTC()
	return removed
}

// LastAssistant returns the most recent assistant message, or nil if
// the conversation has none.
func (c *Conversation) LastAssistant() *Message {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleAssistant {
			return &c.Messages[i]
		}
	}
	return nil
}
