package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ayokoji/aiko/internal/conversation"
	"github.com/ayokoji/aiko/internal/events"
	"github.com/ayokoji/aiko/internal/llm"
	"github.com/ayokoji/aiko/internal/summary"
	"github.com/ayokoji/aiko/internal/tools"
)

// nodeID names a state of the turn machine.
type nodeID int

const (
	nodeRouter nodeID = iota
	nodeDeleteMessages
	nodeConversation
	nodeVision
	nodeTools
	nodeSummarize
	nodeEnd
)

func (n nodeID) String() string {
	switch n {
	case nodeRouter:
		return "router"
	case nodeDeleteMessages:
		return "delete_messages"
	case nodeConversation:
		return "conversation"
	case nodeVision:
		return "vision"
	case nodeTools:
		return "tools"
	case nodeSummarize:
		return "summarize"
	case nodeEnd:
		return "end"
	default:
		return "unknown"
	}
}

// turnState is the working copy for one turn. All mutation happens
// here; nothing reaches the store until the machine terminates.
type turnState struct {
	req     TurnRequest
	conv    *conversation.Conversation
	binding llm.Binding
	images  []string
	now     time.Time

	userMsg  conversation.Message
	appended bool
	gap      bool

	lastToolCalls []conversation.ToolCall
	rounds        int
	reply         string
}

// genNode returns the generation state pinned for this turn.
func (ts *turnState) genNode() nodeID {
	if len(ts.images) > 0 {
		return nodeVision
	}
	return nodeConversation
}

// node couples a state's action with its outbound transition.
type node struct {
	run   func(e *Engine, ctx context.Context, ts *turnState) error
	route func(e *Engine, ts *turnState) nodeID
}

var nodes = map[nodeID]node{
	nodeRouter:         {run: runRouter, route: routeRouter},
	nodeDeleteMessages: {run: runDeleteMessages, route: func(*Engine, *turnState) nodeID { return nodeRouter }},
	nodeConversation:   {run: runGeneration, route: routePostModel},
	nodeVision:         {run: runGeneration, route: routePostModel},
	nodeTools:          {run: runTools, route: func(_ *Engine, ts *turnState) nodeID { return ts.genNode() }},
	nodeSummarize:      {run: runSummarize, route: func(*Engine, *turnState) nodeID { return nodeEnd }},
}

// dispatch drives the machine from ROUTER to END.
func (e *Engine) dispatch(ctx context.Context, ts *turnState) error {
	cur := nodeRouter
	for cur != nodeEnd {
		n := nodes[cur]
		e.logger.Debug("engine node", "thread", ts.req.ThreadID, "node", cur.String())
		if err := n.run(e, ctx, ts); err != nil {
			return fmt.Errorf("%s: %w", cur.String(), err)
		}
		cur = n.route(e, ts)
	}

	if last := ts.conv.LastAssistant(); last != nil {
		ts.reply = last.Content
	}
	return nil
}

// runRouter builds the inbound user message on first entry and, when no
// gap reset is pending, appends it to the live history.
func runRouter(e *Engine, _ context.Context, ts *turnState) error {
	if ts.userMsg.ID == "" {
		content := ts.req.Text
		if ts.req.User.Username != "" {
			content = ts.req.User.Username + ": " + content
		}
		m := conversation.NewMessage(conversation.RoleUser, content)
		m.Timestamp = ts.now
		m.Images = ts.images
		ts.userMsg = m
	}

	if ts.appended {
		return nil
	}

	if len(ts.conv.Messages) > 0 && ts.now.Sub(ts.conv.LastMessage) > e.cfg.GapThreshold.Std() {
		ts.gap = true
		return nil
	}

	ts.conv.Append(ts.userMsg)
	ts.conv.LastMessage = ts.now
	ts.appended = true
	return nil
}

func routeRouter(_ *Engine, ts *turnState) nodeID {
	if ts.gap && !ts.appended {
		return nodeDeleteMessages
	}
	return ts.genNode()
}

// runDeleteMessages discards stale context: the conversation collapses
// to just the newly arrived message and the summary is cleared.
func runDeleteMessages(e *Engine, _ context.Context, ts *turnState) error {
	gap := ts.now.Sub(ts.conv.LastMessage)
	e.logger.Info("context reset after gap",
		"thread", ts.req.ThreadID,
		"gap", gap.Round(time.Second).String(),
		"discarded", len(ts.conv.Messages))
	e.bus.Emit(events.SourceEngine, events.KindContextReset, map[string]any{
		"thread_id": ts.req.ThreadID,
		"gap":       gap.String(),
	})

	ts.conv.Reset(ts.userMsg, ts.now)
	ts.appended = true
	return nil
}

// runGeneration invokes the turn's pinned model binding over the
// assembled prompt and appends the assistant message it returns.
func runGeneration(e *Engine, ctx context.Context, ts *turnState) error {
	ts.rounds++
	msgs := e.buildPrompt(ts)

	e.bus.Emit(events.SourceEngine, events.KindLLMCall, map[string]any{
		"thread_id": ts.req.ThreadID,
		"round":     ts.rounds,
		"model":     ts.binding.Model(),
	})

	resp, err := ts.binding.Chat(ctx, msgs, e.dispatcher.Specs())
	if err != nil {
		return fmt.Errorf("generation: %w", err)
	}

	e.bus.Emit(events.SourceEngine, events.KindLLMResponse, map[string]any{
		"thread_id":  ts.req.ThreadID,
		"round":      ts.rounds,
		"model":      ts.binding.Model(),
		"tokens_in":  resp.InputTokens,
		"tokens_out": resp.OutputTokens,
		"tool_calls": len(resp.Message.ToolCalls),
	})

	assistant := conversation.NewMessage(conversation.RoleAssistant, resp.Message.Content)
	assistant.ToolCalls = fromLLMCalls(resp.Message.ToolCalls)
	ts.conv.Append(assistant)
	ts.lastToolCalls = assistant.ToolCalls
	return nil
}

// routePostModel inspects the just-appended assistant message: pending
// tool calls loop back through TOOLS, oversized history compacts, and
// everything else terminates.
func routePostModel(e *Engine, ts *turnState) nodeID {
	if len(ts.lastToolCalls) > 0 {
		if ts.rounds < e.cfg.MaxToolRounds {
			return nodeTools
		}
		e.logger.Warn("tool round cap reached",
			"thread", ts.req.ThreadID,
			"rounds", ts.rounds,
			"pending", len(ts.lastToolCalls))
	}
	if len(ts.conv.Messages) > e.cfg.SummarizeThreshold {
		return nodeSummarize
	}
	return nodeEnd
}

// runTools executes every call the assistant requested, in emitted
// order, and appends one tool-result message per call.
func runTools(e *Engine, ctx context.Context, ts *turnState) error {
	tctx := tools.WithThreadID(ctx, ts.req.ThreadID)
	tctx = tools.WithUserContext(tctx, ts.req.User)

	for _, call := range ts.lastToolCalls {
		e.bus.Emit(events.SourceEngine, events.KindToolCall, map[string]any{
			"thread_id": ts.req.ThreadID,
			"tool":      call.Name,
		})
	}

	msgs, results := e.dispatcher.Dispatch(tctx, ts.lastToolCalls)
	for i, m := range msgs {
		ts.conv.Append(m)
		e.bus.Emit(events.SourceEngine, events.KindToolDone, map[string]any{
			"thread_id": ts.req.ThreadID,
			"tool":      ts.lastToolCalls[i].Name,
			"status":    results[i].Status.String(),
		})
	}
	return nil
}

// runSummarize condenses everything but the most recent keep messages
// into the rolling summary. A summarizer failure aborts the turn so a
// corrupt summary is never committed.
func runSummarize(e *Engine, ctx context.Context, ts *turnState) error {
	keep := e.cfg.KeepRecent
	n := len(ts.conv.Messages)
	if n <= keep {
		return nil
	}

	toRemove := ts.conv.Messages[:n-keep]
	if strings.TrimSpace(summary.Transcript(toRemove)) == "" {
		// Only tool plumbing would be pruned; drop it without touching
		// the summary.
		ts.conv.Prune(keep)
		return nil
	}

	text, err := e.summarizer.Summarize(ctx, ts.binding, ts.conv.Summary, toRemove)
	if err != nil {
		return err
	}

	ts.conv.Summary = text
	removed := ts.conv.Prune(keep)

	e.logger.Info("history compacted",
		"thread", ts.req.ThreadID,
		"pruned", len(removed),
		"kept", len(ts.conv.Messages))
	e.bus.Emit(events.SourceEngine, events.KindSummaryCreated, map[string]any{
		"thread_id": ts.req.ThreadID,
		"pruned":    len(removed),
		"words":     len(strings.Fields(text)),
	})
	return nil
}

func fromLLMCalls(calls []llm.ToolCall) []conversation.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]conversation.ToolCall, len(calls))
	for i, c := range calls {
		out[i] = conversation.ToolCall{ID: c.ID, Name: c.Name, Arguments: c.Arguments}
	}
	return out
}

func toLLMCalls(calls []conversation.ToolCall) []llm.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]llm.ToolCall, len(calls))
	for i, c := range calls {
		out[i] = llm.ToolCall{ID: c.ID, Name: c.Name, Arguments: c.Arguments}
	}
	return out
}
