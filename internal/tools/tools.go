// Package tools defines the tools available to the persona and the
// dispatcher that executes model-requested tool calls.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// Tool represents a callable tool.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
	Handler     func(ctx context.Context, args map[string]any) Result `json:"-"`
}

// Registry holds available tools.
type Registry struct {
	tools map[string]*Tool
}

// NewRegistry creates an empty tool registry. Built-ins are registered
// by the Register* helpers so each tool's dependencies stay explicit.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds a tool to the registry.
func (r *Registry) Register(t *Tool) {
	r.tools[t.Name] = t
}

// Get retrieves a tool by name, or nil.
func (r *Registry) Get(name string) *Tool {
	return r.tools[name]
}

// Names returns registered tool names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Specs returns all tools in the function-calling format the generation
// client advertises to the model. Order is deterministic so prompts are
// reproducible.
func (r *Registry) Specs() []map[string]any {
	var result []map[string]any
	for _, name := range r.Names() {
		t := r.tools[name]
		result = append(result, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.Parameters,
			},
		})
	}
	return result
}

// Execute runs a tool by name with the given JSON arguments. It never
// returns an error: the model must always receive some textual result
// so it can decide how to continue, rather than the whole turn failing
// because one lookup failed.
func (r *Registry) Execute(ctx context.Context, name string, argsJSON string) Result {
	tool := r.tools[name]
	if tool == nil {
		return Degraded(fmt.Sprintf("Unknown tool: %s", name))
	}

	var args map[string]any
	if argsJSON != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return Degraded(fmt.Sprintf("Invalid arguments for %s: %v", name, err))
		}
	}

	return tool.Handler(ctx, args)
}

// stringArg extracts a string argument. Tools that need normalization
// do it themselves.
func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

// intArg extracts an integer argument; JSON numbers decode as float64.
func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}
