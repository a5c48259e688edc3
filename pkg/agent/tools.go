// Package agent provides the tool registration surface for the
// conversational host: typed function tools with reflected JSON
// schemas, collected into a ToolSet the session engine executes.
package agent

import (
	"context"
	"encoding/json"
	"reflect"

	"github.com/vango-go/improv-battle/pkg/types"
)

// ToolHandler executes a tool call with raw JSON input.
type ToolHandler func(ctx context.Context, input json.RawMessage) (any, error)

// ToolWithHandler wraps a Tool with its handler function.
type ToolWithHandler struct {
	types.Tool
	Handler ToolHandler
}

// MakeTool creates a ToolWithHandler from a typed function.
// This is the preferred way to create tools with handlers.
//
// Example:
//
//	tool := agent.MakeTool("set_player_name", "Register the contestant's name",
//	    func(ctx context.Context, input struct {
//	        Name string `json:"name" desc:"The player's name"`
//	    }) (string, error) {
//	        return g.Start(input.Name), nil
//	    },
//	)
func MakeTool[T any, R any](name, description string, fn func(context.Context, T) (R, error)) ToolWithHandler {
	var zero T
	schema := GenerateJSONSchema(reflect.TypeOf(zero))

	handler := func(ctx context.Context, rawInput json.RawMessage) (any, error) {
		var input T
		if err := json.Unmarshal(rawInput, &input); err != nil {
			return nil, err
		}
		return fn(ctx, input)
	}

	return ToolWithHandler{
		Tool: types.Tool{
			Name:        name,
			Description: description,
			InputSchema: schema,
		},
		Handler: handler,
	}
}

// ToolSet is a collection of tools with their handlers.
type ToolSet struct {
	tools    []types.Tool
	handlers map[string]ToolHandler
}

// NewToolSet creates a new empty tool set.
func NewToolSet(tools ...ToolWithHandler) *ToolSet {
	ts := &ToolSet{
		tools:    []types.Tool{},
		handlers: make(map[string]ToolHandler),
	}
	for _, t := range tools {
		ts.Add(t.Tool, t.Handler)
	}
	return ts
}

// Add adds a tool with its handler to the set.
func (ts *ToolSet) Add(tool types.Tool, handler ToolHandler) *ToolSet {
	ts.tools = append(ts.tools, tool)
	if handler != nil && tool.Name != "" {
		ts.handlers[tool.Name] = handler
	}
	return ts
}

// Tools returns all tool definitions.
func (ts *ToolSet) Tools() []types.Tool {
	return ts.tools
}

// Handlers returns all tool handlers.
func (ts *ToolSet) Handlers() map[string]ToolHandler {
	return ts.handlers
}

// Handler returns the handler for a specific tool.
func (ts *ToolSet) Handler(name string) (ToolHandler, bool) {
	h, ok := ts.handlers[name]
	return h, ok
}
