package gemini

import (
	"encoding/json"
	"io"
	"iter"

	"google.golang.org/genai"

	"github.com/vango-go/improv-battle/pkg/types"
)

// eventStream adapts the genai streaming iterator to the engine's
// event protocol. Gemini delivers whole function calls per chunk, so
// tool_use arrives as a complete content_block_start; text arrives as
// content_block_delta events.
type eventStream struct {
	next   func() (*genai.GenerateContentResponse, bool)
	stop   func()
	errFn  func() error
	queue  []types.StreamEvent
	closed bool

	usage      types.Usage
	hasToolUse bool
	finish     genai.FinishReason
	blockIndex int
}

func newEventStream(seq iter.Seq2[*genai.GenerateContentResponse, error]) *eventStream {
	var iterErr error
	filtered := func(yield func(*genai.GenerateContentResponse) bool) {
		for resp, err := range seq {
			if err != nil {
				iterErr = err
				return
			}
			if !yield(resp) {
				return
			}
		}
	}
	next, stop := iter.Pull(filtered)
	return &eventStream{
		next:  next,
		stop:  stop,
		errFn: func() error { return iterErr },
	}
}

// Next returns the next event. Returns nil, io.EOF when done.
func (s *eventStream) Next() (types.StreamEvent, error) {
	for {
		if len(s.queue) > 0 {
			ev := s.queue[0]
			s.queue = s.queue[1:]
			return ev, nil
		}
		if s.closed {
			return nil, io.EOF
		}

		resp, ok := s.next()
		if !ok {
			if err := s.errFn(); err != nil {
				s.closed = true
				return nil, err
			}
			s.finishQueue()
			continue
		}
		s.consume(resp)
	}
}

func (s *eventStream) consume(resp *genai.GenerateContentResponse) {
	if resp.UsageMetadata != nil {
		// Gemini reports cumulative usage per chunk; keep the latest.
		s.usage = fromUsage(resp.UsageMetadata)
	}
	if len(resp.Candidates) == 0 {
		return
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason != "" {
		s.finish = candidate.FinishReason
	}
	if candidate.Content == nil {
		return
	}

	for _, part := range candidate.Content.Parts {
		switch {
		case part.FunctionCall != nil:
			s.hasToolUse = true
			id := part.FunctionCall.ID
			if id == "" {
				id = generateToolID()
			}
			input, _ := json.Marshal(part.FunctionCall.Args)
			s.queue = append(s.queue, types.ContentBlockStartEvent{
				Type:  "content_block_start",
				Index: s.blockIndex,
				ContentBlock: types.ToolUseBlock{
					Type:  "tool_use",
					ID:    id,
					Name:  part.FunctionCall.Name,
					Input: input,
				},
			})
			s.blockIndex++

		case part.Text != "":
			s.queue = append(s.queue, types.ContentBlockDeltaEvent{
				Type:  "content_block_delta",
				Index: s.blockIndex,
				Delta: types.TextDelta{Type: "text_delta", Text: part.Text},
			})
		}
	}
}

func (s *eventStream) finishQueue() {
	delta := types.MessageDeltaEvent{Type: "message_delta", Usage: s.usage}
	delta.Delta.StopReason = stopReason(s.finish, s.hasToolUse)
	s.queue = append(s.queue, delta, types.MessageStopEvent{Type: "message_stop"})
	s.closed = true
}

// Close releases resources.
func (s *eventStream) Close() error {
	s.closed = true
	s.stop()
	return nil
}
