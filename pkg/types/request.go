package types

// MessageRequest is the request structure for a single agent turn.
// Based on the Anthropic Messages API shape.
type MessageRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`

	// Generation parameters
	MaxTokens   int      `json:"max_tokens,omitempty"`
	System      string   `json:"system,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`

	// Tools
	Tools []Tool `json:"tools,omitempty"`
}

// JSONSchema represents a JSON Schema for tool input validation.
type JSONSchema struct {
	Type        string                `json:"type"`
	Properties  map[string]JSONSchema `json:"properties,omitempty"`
	Required    []string              `json:"required,omitempty"`
	Description string                `json:"description,omitempty"`
	Enum        []string              `json:"enum,omitempty"`
	Items       *JSONSchema           `json:"items,omitempty"`
}
