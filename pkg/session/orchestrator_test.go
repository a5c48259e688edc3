package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vango-go/improv-battle/pkg/game"
	"github.com/vango-go/improv-battle/pkg/live"
	"github.com/vango-go/improv-battle/pkg/telemetry"
	"github.com/vango-go/improv-battle/pkg/types"
	"github.com/vango-go/improv-battle/pkg/voice/stt"
	"github.com/vango-go/improv-battle/pkg/voice/tts"
)

type fakeStream struct {
	events []types.StreamEvent
	i      int
}

func (f *fakeStream) Next() (types.StreamEvent, error) {
	if f.i >= len(f.events) {
		return nil, io.EOF
	}
	ev := f.events[f.i]
	f.i++
	return ev, nil
}

func (f *fakeStream) Close() error { return nil }

type fakeLLM struct {
	mu    sync.Mutex
	steps [][]types.StreamEvent
}

func (f *fakeLLM) CreateMessage(ctx context.Context, req *types.MessageRequest) (*types.MessageResponse, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeLLM) StreamMessage(ctx context.Context, req *types.MessageRequest) (live.EventStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.steps) == 0 {
		return &fakeStream{events: stopEvents(types.StopReasonEndTurn, types.Usage{})}, nil
	}
	step := f.steps[0]
	f.steps = f.steps[1:]
	return &fakeStream{events: step}, nil
}

func stopEvents(reason types.StopReason, usage types.Usage) []types.StreamEvent {
	delta := types.MessageDeltaEvent{Type: "message_delta", Usage: usage}
	delta.Delta.StopReason = reason
	return []types.StreamEvent{delta, types.MessageStopEvent{Type: "message_stop"}}
}

type fakeTTS struct{}

func (f *fakeTTS) NewStreamingContext(ctx context.Context, opts tts.StreamingContextOptions) (*tts.StreamingContext, error) {
	sc := tts.NewStreamingContext()
	sc.SendFunc = func(text string, isFinal bool) error {
		if text != "" {
			sc.PushAudio([]byte(text))
		}
		if isFinal {
			sc.FinishAudio()
		}
		return nil
	}
	return sc, nil
}

type fakeSTTStream struct {
	transcripts chan stt.TranscriptDelta
}

func (f *fakeSTTStream) SendAudio(data []byte) error { return nil }

func (f *fakeSTTStream) Finalize() error { return nil }

func (f *fakeSTTStream) Transcripts() <-chan stt.TranscriptDelta { return f.transcripts }

func (f *fakeSTTStream) Close() error { return nil }

type fakeSTT struct {
	mu     sync.Mutex
	stream *fakeSTTStream
}

func (f *fakeSTT) NewStream(ctx context.Context, opts stt.TranscribeOptions) (stt.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stream = &fakeSTTStream{transcripts: make(chan stt.TranscriptDelta, 10)}
	return f.stream, nil
}

func (f *fakeSTT) hear(t *testing.T, delta stt.TranscriptDelta) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		f.mu.Lock()
		s := f.stream
		f.mu.Unlock()
		if s != nil {
			s.transcripts <- delta
			return
		}
		select {
		case <-deadline:
			t.Fatal("STT stream never opened")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func waitForListening(t *testing.T, o *Orchestrator) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		if o.State() == live.StateListening {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("session never reached listening, state = %v", o.State())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestParseParticipantMetadata(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "empty", raw: "", want: ""},
		{name: "with player name", raw: `{"player_name":"Riya"}`, want: "Riya"},
		{name: "unrelated fields", raw: `{"room":"main"}`, want: ""},
		{name: "malformed", raw: `{player_name}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, err := ParseParticipantMetadata(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if meta.PlayerName != tt.want {
				t.Errorf("PlayerName = %q, want %q", meta.PlayerName, tt.want)
			}
		})
	}
}

func TestNew_PreseedsPlayerFromMetadata(t *testing.T) {
	o := New(Config{
		LLM:      &fakeLLM{},
		TTS:      &fakeTTS{},
		STT:      &fakeSTT{},
		Metadata: `{"player_name":"Riya"}`,
		Logger:   discardLogger(),
	})

	if got := o.Game().PlayerName(); got != "Riya" {
		t.Errorf("player name = %q, want Riya", got)
	}
	if got := o.Game().Phase(); got != game.PhasePlaying {
		t.Errorf("phase = %v, want playing", got)
	}
	want := "Welcome to Improv Battle, Riya! I'm your host. Are you ready to improvise?"
	if got := o.greeting(); got != want {
		t.Errorf("greeting = %q, want %q", got, want)
	}
}

func TestNew_MalformedMetadataIgnored(t *testing.T) {
	o := New(Config{
		LLM:      &fakeLLM{},
		TTS:      &fakeTTS{},
		STT:      &fakeSTT{},
		Metadata: `{broken`,
		Logger:   discardLogger(),
	})

	if got := o.Game().PlayerName(); got != "" {
		t.Errorf("player name = %q, want empty", got)
	}
	if got := o.Game().Phase(); got != game.PhaseIntro {
		t.Errorf("phase = %v, want intro", got)
	}
	want := "Welcome to Improv Battle! I'm your host. What's your name, contestant?"
	if got := o.greeting(); got != want {
		t.Errorf("greeting = %q, want %q", got, want)
	}
}

func TestOrchestrator_RunFullTurn(t *testing.T) {
	toolInput, _ := json.Marshal(struct{}{})
	llm := &fakeLLM{steps: [][]types.StreamEvent{
		append([]types.StreamEvent{
			types.ContentBlockStartEvent{
				Type: "content_block_start",
				ContentBlock: types.ToolUseBlock{
					Type:  "tool_use",
					ID:    "toolu_1",
					Name:  "get_scenario",
					Input: toolInput,
				},
			},
		}, stopEvents(types.StopReasonToolUse, types.Usage{InputTokens: 5, OutputTokens: 5, TotalTokens: 10})...),
		append([]types.StreamEvent{
			types.ContentBlockDeltaEvent{
				Type:  "content_block_delta",
				Delta: types.TextDelta{Type: "text_delta", Text: "Your scenario is ready. Action!"},
			},
		}, stopEvents(types.StopReasonEndTurn, types.Usage{InputTokens: 10, OutputTokens: 10, TotalTokens: 20})...),
	}}
	sttClient := &fakeSTT{}
	metrics := telemetry.NewMetrics("test")

	o := New(Config{
		LLM:      llm,
		TTS:      &fakeTTS{},
		STT:      sttClient,
		Metadata: `{"player_name":"Riya"}`,
		Logger:   discardLogger(),
		Metrics:  metrics,
	})

	runDone := make(chan error, 1)
	go func() { runDone <- o.Run(context.Background()) }()

	// Let the greeting finish so the session is listening before the
	// player speaks.
	waitForListening(t, o)

	sttClient.hear(t, stt.TranscriptDelta{
		Text:        "I'm ready, give me a scene!",
		IsFinal:     true,
		IsEndOfTurn: true,
	})

	sawUsage := false
	deadline := time.After(3 * time.Second)
	for !sawUsage {
		select {
		case ev := <-o.Events():
			if _, ok := ev.(*live.UsageEvent); ok {
				sawUsage = true
			}
		case <-deadline:
			t.Fatal("never saw usage event")
		}
	}

	o.Close()
	select {
	case err := <-runDone:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after Close")
	}

	total := o.Usage().Total()
	if total.TotalTokens != 30 {
		t.Errorf("usage total = %d, want 30", total.TotalTokens)
	}

	if got := o.Game().Round(); got != 1 {
		t.Errorf("round = %d, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.RoundsTotal); got != 1 {
		t.Errorf("rounds metric = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.ToolCallsTotal.WithLabelValues("get_scenario", "ok")); got != 1 {
		t.Errorf("tool call metric = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.SessionsActive); got != 0 {
		t.Errorf("active sessions = %v, want 0", got)
	}
	if got := testutil.ToFloat64(metrics.SessionsTotal.WithLabelValues("completed")); got != 1 {
		t.Errorf("completed sessions = %v, want 1", got)
	}
}

func TestOrchestrator_RunCancelled(t *testing.T) {
	o := New(Config{
		LLM:    &fakeLLM{},
		TTS:    &fakeTTS{},
		STT:    &fakeSTT{},
		Logger: discardLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- o.Run(ctx) }()

	// Give the greeting a moment, then pull the plug.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-runDone:
		if err != context.Canceled {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
