package tools

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
)

// RegisterDice adds the roll_dice tool for chat games.
func RegisterDice(r *Registry) {
	r.Register(&Tool{
		Name:        "roll_dice",
		Description: "Roll one or more dice for a game. Returns the individual rolls and their total.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"sides": map[string]any{
					"type":        "integer",
					"description": "Number of sides per die (default 6)",
				},
				"count": map[string]any{
					"type":        "integer",
					"description": "Number of dice to roll (default 1, max 20)",
				},
			},
		},
		Handler: func(_ context.Context, args map[string]any) Result {
			sides := intArg(args, "sides", 6)
			count := intArg(args, "count", 1)
			if sides < 2 || sides > 1000 {
				return Degraded(fmt.Sprintf("Cannot roll a %d-sided die.", sides))
			}
			if count < 1 {
				count = 1
			}
			if count > 20 {
				count = 20
			}

			rolls := make([]string, count)
			total := 0
			for i := range rolls {
				v := rand.IntN(sides) + 1
				total += v
				rolls[i] = fmt.Sprintf("%d", v)
			}

			if count == 1 {
				return OK(fmt.Sprintf("Rolled a d%d: %s", sides, rolls[0]))
			}
			return OK(fmt.Sprintf("Rolled %dd%d: %s (total %d)", count, sides, strings.Join(rolls, ", "), total))
		},
	})
}
