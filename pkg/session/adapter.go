package session

import (
	"context"

	"github.com/vango-go/improv-battle/pkg/live"
	"github.com/vango-go/improv-battle/pkg/providers"
	"github.com/vango-go/improv-battle/pkg/types"
)

// ProviderLLM adapts an LLM provider to the live session's client
// interface. The method sets match; only the stream's named interface
// type differs.
func ProviderLLM(p providers.Provider) live.LLMClient {
	return &providerLLMAdapter{provider: p}
}

type providerLLMAdapter struct {
	provider providers.Provider
}

func (a *providerLLMAdapter) CreateMessage(ctx context.Context, req *types.MessageRequest) (*types.MessageResponse, error) {
	return a.provider.CreateMessage(ctx, req)
}

func (a *providerLLMAdapter) StreamMessage(ctx context.Context, req *types.MessageRequest) (live.EventStream, error) {
	stream, err := a.provider.StreamMessage(ctx, req)
	if err != nil {
		return nil, err
	}
	return &eventStreamAdapter{stream: stream}, nil
}

type eventStreamAdapter struct {
	stream providers.EventStream
}

func (a *eventStreamAdapter) Next() (types.StreamEvent, error) {
	return a.stream.Next()
}

func (a *eventStreamAdapter) Close() error {
	return a.stream.Close()
}
