// Package stt provides speech-to-text functionality.
package stt

import "context"

// Provider is the interface for streaming speech-to-text services.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// NewStream opens a live transcription session.
	// Audio is sent incrementally and transcripts arrive on a channel.
	NewStream(ctx context.Context, opts TranscribeOptions) (Stream, error)
}

// Stream is a live transcription session.
type Stream interface {
	// SendAudio sends raw audio in the format configured at open.
	SendAudio(data []byte) error

	// Finalize flushes buffered audio and forces a final transcript
	// without closing the session.
	Finalize() error

	// Transcripts returns the channel of transcript deltas.
	// It is closed when the session ends.
	Transcripts() <-chan TranscriptDelta

	// Close ends the session.
	Close() error
}

// TranscribeOptions configures transcription.
type TranscribeOptions struct {
	Model      string // Provider-specific model (default: "nova-3")
	Language   string // ISO language code (default: "en")
	Encoding   string // Raw audio encoding (default: "linear16")
	SampleRate int    // Audio sample rate in Hz (default: 16000)
}

// TranscriptDelta is a streaming transcript update.
type TranscriptDelta struct {
	Text        string  // Partial or final transcript segment
	IsFinal     bool    // True if this segment will not be revised
	IsEndOfTurn bool    // True when the provider detects the speaker finished
	Timestamp   float64 // Segment start time in seconds
}
