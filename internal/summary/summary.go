// Package summary condenses pruned conversation history into a rolling
// summary so old context survives compaction.
package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ayokoji/aiko/internal/conversation"
	"github.com/ayokoji/aiko/internal/llm"
	"github.com/ayokoji/aiko/internal/prompts"
)

// ErrBadSummary is returned when the model answered with something that
// is not usable summary text. It is a data-shape failure: the turn
// fails and nothing is committed rather than persisting garbage.
var ErrBadSummary = errors.New("model returned unusable summary")

// Summarizer produces fresh and merged summaries of pruned messages.
type Summarizer struct {
	wordCap int
	logger  *slog.Logger
}

// New creates a summarizer with the given word cap.
func New(wordCap int, logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{wordCap: wordCap, logger: logger}
}

// Summarize condenses removed messages using the turn's generation
// binding. When previous is empty it asks for a fresh summary; otherwise
// it folds the removed messages into the previous one.
func (s *Summarizer) Summarize(ctx context.Context, binding llm.Binding, previous string, removed []conversation.Message) (string, error) {
	transcript := Transcript(removed)
	if strings.TrimSpace(transcript) == "" {
		return "", fmt.Errorf("nothing to summarize")
	}

	var prompt string
	if strings.TrimSpace(previous) == "" {
		prompt = prompts.FreshSummary(transcript, s.wordCap)
	} else {
		prompt = prompts.MergeSummary(previous, transcript, s.wordCap)
	}

	resp, err := binding.Chat(ctx, []llm.Message{
		{Role: conversation.RoleUser, Content: prompt},
	}, nil)
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}

	text := strings.TrimSpace(resp.Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty response", ErrBadSummary)
	}
	if len(resp.Message.ToolCalls) > 0 {
		return "", fmt.Errorf("%w: response requested tool calls", ErrBadSummary)
	}

	s.logger.Debug("Summary produced",
		"model", binding.Model(),
		"messages", len(removed),
		"words", len(strings.Fields(text)))
	return text, nil
}

// Transcript renders messages as a "Role: content" transcript for the
// summary prompt. Tool plumbing is skipped: tool-call requests and raw
// tool output describe mechanics, not what was said.
func Transcript(msgs []conversation.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		if m.Role == conversation.RoleTool || m.Role == conversation.RoleSystem {
			continue
		}
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		label := m.Role
		if m.Role == conversation.RoleAssistant {
			label = "Assistant"
		} else if m.Role == conversation.RoleUser {
			label = "User"
		}
		fmt.Fprintf(&b, "%s: %s\n", label, content)
	}
	return b.String()
}
