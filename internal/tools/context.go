package tools

import (
	"context"

	"github.com/ayokoji/aiko/internal/conversation"
)

type contextKey string

const threadIDKey contextKey = "thread_id"
const userContextKey contextKey = "user_context"

// WithThreadID adds the thread ID to the context.
func WithThreadID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, threadIDKey, id)
}

// ThreadIDFromContext extracts the thread ID from the context.
// Returns "default" if not set.
func ThreadIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(threadIDKey).(string); ok && id != "" {
		return id
	}
	return "default"
}

// WithUserContext adds the turn's user context to the context so tools
// can read relationship state without threading it through arguments.
func WithUserContext(ctx context.Context, uc conversation.UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, uc)
}

// UserContextFromContext extracts the turn's user context. The second
// return is false when no user context was attached.
func UserContextFromContext(ctx context.Context) (conversation.UserContext, bool) {
	uc, ok := ctx.Value(userContextKey).(conversation.UserContext)
	return uc, ok
}
