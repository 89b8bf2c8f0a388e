package tools

import (
	"context"
	"fmt"

	"github.com/ayokoji/aiko/internal/persona"
)

// RegisterRelationship adds the relationship_status tool. It reads the
// turn's user context from ctx, so the model can ask how well the
// persona knows the current speaker without the caller passing anything.
func RegisterRelationship(r *Registry) {
	r.Register(&Tool{
		Name:        "relationship_status",
		Description: "Check how well you know the person you are currently talking to. Use when asked about your relationship or familiarity with them.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Handler: func(ctx context.Context, _ map[string]any) Result {
			uc, ok := UserContextFromContext(ctx)
			if !ok {
				return Degraded("No information about the current speaker is available.")
			}
			name := uc.Username
			if name == "" {
				name = "this person"
			}
			tier := persona.IntimacyTier(uc.Intimacy)
			return OK(fmt.Sprintf("You know %s at the %q level (intimacy score %d).", name, tier, uc.Intimacy))
		},
	})
}
