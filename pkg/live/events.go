package live

import (
	"github.com/vango-go/improv-battle/pkg/types"
)

// Event is the interface for all live session events.
type Event interface {
	// EventType returns the event type string for serialization.
	EventType() string
}

// SessionCreatedEvent is emitted when the session is successfully configured.
type SessionCreatedEvent struct {
	SessionID  string `json:"session_id"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

func (e *SessionCreatedEvent) EventType() string { return "session.created" }

// SessionClosedEvent is emitted when the session ends.
type SessionClosedEvent struct {
	Reason string `json:"reason,omitempty"`
}

func (e *SessionClosedEvent) EventType() string { return "session.closed" }

// StateChangedEvent is emitted when the session state changes.
type StateChangedEvent struct {
	From SessionState `json:"from"`
	To   SessionState `json:"to"`
}

func (e *StateChangedEvent) EventType() string { return "state.changed" }

// TranscriptDeltaEvent is emitted as real-time transcription updates arrive.
type TranscriptDeltaEvent struct {
	Delta   string `json:"delta"`
	IsFinal bool   `json:"is_final,omitempty"`
}

func (e *TranscriptDeltaEvent) EventType() string { return "transcript.delta" }

// InputCommittedEvent is emitted when player input is finalized and
// handed to the agent.
type InputCommittedEvent struct {
	Transcript string `json:"transcript"`
}

func (e *InputCommittedEvent) EventType() string { return "input.committed" }

// ContentBlockDeltaEvent is emitted for incremental host speech text.
type ContentBlockDeltaEvent struct {
	Index int    `json:"index"`
	Delta string `json:"delta"`
}

func (e *ContentBlockDeltaEvent) EventType() string { return "content_block_delta" }

// MessageStopEvent is emitted when the agent finishes a response.
type MessageStopEvent struct{}

func (e *MessageStopEvent) EventType() string { return "message_stop" }

// ToolUseEvent is emitted when the agent invokes a tool.
type ToolUseEvent struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Input any    `json:"input"`
}

func (e *ToolUseEvent) EventType() string { return "tool_use" }

// ToolResultEvent is emitted when a tool returns a result.
type ToolResultEvent struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

func (e *ToolResultEvent) EventType() string { return "tool_result" }

// UsageEvent reports token usage for one completed agent turn.
type UsageEvent struct {
	Usage types.Usage `json:"usage"`
}

func (e *UsageEvent) EventType() string { return "usage" }

// AudioDeltaEvent is emitted for TTS audio chunks.
type AudioDeltaEvent struct {
	Data   []byte `json:"data"`
	Format string `json:"format,omitempty"` // e.g., "pcm_s16le"
}

func (e *AudioDeltaEvent) EventType() string { return "audio_delta" }

// AudioCommittedEvent is emitted when all TTS audio for a response is complete.
type AudioCommittedEvent struct {
	DurationMs int `json:"duration_ms"`
}

func (e *AudioCommittedEvent) EventType() string { return "audio.committed" }

// AudioFlushEvent signals that pending buffered audio should be
// discarded immediately. Clients should clear their audio buffers.
type AudioFlushEvent struct{}

func (e *AudioFlushEvent) EventType() string { return "audio.flush" }

// ErrorEvent is emitted when an error occurs.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ErrorEvent) EventType() string { return "error" }

// DebugEvent is emitted for debugging information.
type DebugEvent struct {
	Category string `json:"category"` // AUDIO, STT, LLM, TOOL, TTS, SESSION
	Message  string `json:"message"`
}

func (e *DebugEvent) EventType() string { return "debug" }
