// Package providers defines the LLM provider contract used by the
// live session engine.
package providers

import (
	"context"

	"github.com/vango-go/improv-battle/pkg/types"
)

// Provider is the interface that all LLM providers must implement.
type Provider interface {
	// Name returns the provider identifier (e.g., "gemini").
	Name() string

	// CreateMessage sends a non-streaming request.
	CreateMessage(ctx context.Context, req *types.MessageRequest) (*types.MessageResponse, error)

	// StreamMessage sends a streaming request.
	StreamMessage(ctx context.Context, req *types.MessageRequest) (EventStream, error)
}

// EventStream is an iterator over streaming events.
type EventStream interface {
	// Next returns the next event. Returns nil, io.EOF when done.
	Next() (types.StreamEvent, error)

	// Close releases resources.
	Close() error
}
