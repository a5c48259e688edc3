package types

// StreamEvent is the interface for all streaming event types.
type StreamEvent interface {
	EventType() string
}

// Delta is the interface for all delta types in streaming.
type Delta interface {
	DeltaType() string
}

// ContentBlockStartEvent is sent when a new content block begins.
// For tool_use blocks the Input is complete (Gemini delivers whole
// function calls, not incremental JSON).
type ContentBlockStartEvent struct {
	Type         string       `json:"type"` // "content_block_start"
	Index        int          `json:"index"`
	ContentBlock ContentBlock `json:"content_block"`
}

func (e ContentBlockStartEvent) EventType() string { return "content_block_start" }

// ContentBlockDeltaEvent is sent for incremental content updates.
type ContentBlockDeltaEvent struct {
	Type  string `json:"type"` // "content_block_delta"
	Index int    `json:"index"`
	Delta Delta  `json:"delta"`
}

func (e ContentBlockDeltaEvent) EventType() string { return "content_block_delta" }

// MessageDeltaEvent contains message-level updates (stop_reason, usage).
type MessageDeltaEvent struct {
	Type  string `json:"type"` // "message_delta"
	Delta struct {
		StopReason StopReason `json:"stop_reason,omitempty"`
	} `json:"delta"`
	Usage Usage `json:"usage"`
}

func (e MessageDeltaEvent) EventType() string { return "message_delta" }

// MessageStopEvent is sent when the message is complete.
type MessageStopEvent struct {
	Type string `json:"type"` // "message_stop"
}

func (e MessageStopEvent) EventType() string { return "message_stop" }

// TextDelta contains incremental text content.
type TextDelta struct {
	Type string `json:"type"` // "text_delta"
	Text string `json:"text"`
}

func (d TextDelta) DeltaType() string { return "text_delta" }
