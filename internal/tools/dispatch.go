package tools

import (
	"context"
	"log/slog"
	"time"

	"github.com/ayokoji/aiko/internal/conversation"
)

// Dispatcher executes the tool calls requested by one assistant message
// and turns the results into tool-role messages for the conversation.
type Dispatcher struct {
	registry *Registry
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher over a registry.
func NewDispatcher(registry *Registry, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{registry: registry, logger: logger}
}

// Specs exposes the registry's tool specs for the generation request.
func (d *Dispatcher) Specs() []map[string]any {
	return d.registry.Specs()
}

// Dispatch executes calls in the order they were emitted and returns one
// tool-role message per call, each tagged with the call's ID, plus the
// raw results for the caller's logging and events. It never returns an
// error: every call produces a textual result the model can react to.
func (d *Dispatcher) Dispatch(ctx context.Context, calls []conversation.ToolCall) ([]conversation.Message, []Result) {
	msgs := make([]conversation.Message, 0, len(calls))
	results := make([]Result, 0, len(calls))

	for _, call := range calls {
		start := time.Now()
		res := d.registry.Execute(ctx, call.Name, call.Arguments)

		attrs := []any{
			"tool", call.Name,
			"status", res.Status.String(),
			"duration", time.Since(start).Round(time.Millisecond).String(),
		}
		if res.Err != nil {
			attrs = append(attrs, "error", res.Err)
			d.logger.Error("Tool execution failed", attrs...)
		} else if res.Status == StatusDegraded {
			d.logger.Warn("Tool degraded", attrs...)
		} else {
			d.logger.Debug("Tool executed", attrs...)
		}

		msg := conversation.NewMessage(conversation.RoleTool, res.Text)
		msg.ToolCallID = call.ID
		msgs = append(msgs, msg)
		results = append(results, res)
	}

	return msgs, results
}
