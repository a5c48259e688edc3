package live

import (
	"github.com/vango-go/improv-battle/pkg/agent"
	"github.com/vango-go/improv-battle/pkg/types"
)

// SessionState represents the current state of the live session.
type SessionState int

const (
	// StateConfiguring is the initial state before the session starts.
	StateConfiguring SessionState = iota
	// StateListening is when the session is capturing player speech.
	StateListening
	// StateProcessing is when the agent is generating a response.
	StateProcessing
	// StateSpeaking is when TTS audio is being played.
	StateSpeaking
	// StateClosed is when the session has been closed.
	StateClosed
)

// String returns a human-readable state name.
func (s SessionState) String() string {
	switch s {
	case StateConfiguring:
		return "CONFIGURING"
	case StateListening:
		return "LISTENING"
	case StateProcessing:
		return "PROCESSING"
	case StateSpeaking:
		return "SPEAKING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// SessionConfig holds all configuration for a live session.
type SessionConfig struct {
	// Model is the LLM model to use for responses.
	Model string `json:"model"`

	// System is the system prompt for the agent.
	System string `json:"system,omitempty"`

	// Tools are the available tools for the agent.
	Tools []types.Tool `json:"tools,omitempty"`

	// Handlers execute tool calls. Keyed by tool name.
	Handlers map[string]agent.ToolHandler `json:"-"`

	// Messages are any pre-existing conversation history.
	Messages []types.Message `json:"messages,omitempty"`

	// Voice configures STT and TTS.
	Voice *types.VoiceConfig `json:"voice,omitempty"`

	// SampleRate is the input audio sample rate in Hz. Default: 16000.
	SampleRate int `json:"sample_rate"`

	// Channels is the number of audio channels. Default: 1 (mono).
	Channels int `json:"channels"`

	// MaxTokens is the maximum tokens for LLM responses.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls LLM response randomness.
	Temperature *float64 `json:"temperature,omitempty"`

	// NoActivityTimeoutMs forces a turn commit when the player has
	// pending transcript but the STT stops marking segments final.
	// Default: 3000.
	NoActivityTimeoutMs int `json:"no_activity_timeout_ms"`
}

// DefaultSessionConfig returns a SessionConfig with sensible defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Model:               "gemini-2.5-flash",
		SampleRate:          16000,
		Channels:            1,
		MaxTokens:           1024,
		NoActivityTimeoutMs: 3000,
	}
}

// AudioConfig specifies audio format parameters.
type AudioConfig struct {
	// SampleRate in Hz. Common values: 16000, 24000, 44100, 48000.
	SampleRate int `json:"sample_rate"`

	// Channels: 1 for mono, 2 for stereo.
	Channels int `json:"channels"`

	// BitsPerSample: typically 16 for PCM.
	BitsPerSample int `json:"bits_per_sample"`
}

// BytesPerSecond returns the audio byte rate.
func (c AudioConfig) BytesPerSecond() int {
	return c.SampleRate * c.Channels * (c.BitsPerSample / 8)
}

// DurationMs returns the duration in milliseconds for the given byte count.
func (c AudioConfig) DurationMs(bytes int) int {
	if c.BytesPerSecond() == 0 {
		return 0
	}
	return (bytes * 1000) / c.BytesPerSecond()
}
