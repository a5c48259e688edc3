// Package live implements the voice session engine: it wires
// streaming STT, the LLM agent loop, and streaming TTS into a
// turn-taking conversation driven over channels.
package live

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vango-go/improv-battle/pkg/types"
	"github.com/vango-go/improv-battle/pkg/voice/stt"
	"github.com/vango-go/improv-battle/pkg/voice/tts"
)

// LLMClient is the interface for making LLM requests.
type LLMClient interface {
	// CreateMessage sends a non-streaming message request.
	CreateMessage(ctx context.Context, req *types.MessageRequest) (*types.MessageResponse, error)

	// StreamMessage sends a streaming message request.
	StreamMessage(ctx context.Context, req *types.MessageRequest) (EventStream, error)
}

// EventStream is an iterator over streaming events from the LLM.
type EventStream interface {
	// Next returns the next event. Returns nil, io.EOF when done.
	Next() (types.StreamEvent, error)

	// Close releases resources.
	Close() error
}

// TTSClient is the interface for text-to-speech synthesis.
type TTSClient interface {
	// NewStreamingContext creates a new streaming TTS context.
	NewStreamingContext(ctx context.Context, opts tts.StreamingContextOptions) (*tts.StreamingContext, error)
}

// STTClient is the interface for speech-to-text transcription.
type STTClient interface {
	// NewStream opens a live transcription session.
	NewStream(ctx context.Context, opts stt.TranscribeOptions) (stt.Stream, error)
}

// Session drives one live voice conversation. It coordinates STT,
// turn commits, the agent's tool loop, and TTS. Tool calls execute
// serially on turn boundaries, so game state never sees concurrent
// writers.
type Session struct {
	config      SessionConfig
	audioConfig AudioConfig

	llmClient LLMClient
	ttsClient TTSClient
	sttClient STTClient

	mu           sync.RWMutex
	state        SessionState
	sessionID    string
	messages     []types.Message
	pending      []string
	lastActivity time.Time

	sttSession stt.Stream
	sttMu      sync.Mutex

	ttsContext  *tts.StreamingContext
	ttsMu       sync.Mutex
	ttsPosition int
	ttsOutput   AudioConfig

	events chan Event
	audio  chan []byte
	done   chan struct{}
	closed atomic.Bool

	ctx         context.Context
	cancel      context.CancelFunc
	agentCancel context.CancelFunc

	debugEnabled bool
}

// NewSession creates a new live session.
func NewSession(
	config SessionConfig,
	llmClient LLMClient,
	ttsClient TTSClient,
	sttClient STTClient,
) *Session {
	audioConfig := AudioConfig{
		SampleRate:    config.SampleRate,
		Channels:      config.Channels,
		BitsPerSample: 16,
	}
	if audioConfig.SampleRate == 0 {
		audioConfig.SampleRate = 16000
	}
	if audioConfig.Channels == 0 {
		audioConfig.Channels = 1
	}
	if config.NoActivityTimeoutMs == 0 {
		config.NoActivityTimeoutMs = 3000
	}

	s := &Session{
		config:      config,
		audioConfig: audioConfig,
		llmClient:   llmClient,
		ttsClient:   ttsClient,
		sttClient:   sttClient,
		state:       StateConfiguring,
		sessionID:   generateSessionID(),
		messages:    make([]types.Message, 0),
		events:      make(chan Event, 100),
		audio:       make(chan []byte, 100),
		done:        make(chan struct{}),
	}

	if len(config.Messages) > 0 {
		s.messages = append(s.messages, config.Messages...)
	}

	return s
}

// EnableDebug enables debug event emission.
func (s *Session) EnableDebug() {
	s.debugEnabled = true
}

// SessionID returns the session identifier.
func (s *Session) SessionID() string {
	return s.sessionID
}

// State returns the current session state.
func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Events returns the channel for receiving session events.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Messages returns a copy of the conversation history so far.
func (s *Session) Messages() []types.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Start begins the live session.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateConfiguring {
		s.mu.Unlock()
		return fmt.Errorf("session already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	if err := s.startSTT(); err != nil {
		return fmt.Errorf("start STT: %w", err)
	}

	go s.audioLoop()
	go s.sttLoop()
	go s.timeoutLoop()

	s.setState(StateListening)

	s.emit(&SessionCreatedEvent{
		SessionID:  s.sessionID,
		SampleRate: s.audioConfig.SampleRate,
		Channels:   s.audioConfig.Channels,
	})

	return nil
}

// startSTT opens the STT streaming session.
func (s *Session) startSTT() error {
	s.sttMu.Lock()
	defer s.sttMu.Unlock()

	opts := stt.TranscribeOptions{
		Model:      "nova-3",
		Language:   "en",
		Encoding:   "linear16",
		SampleRate: s.audioConfig.SampleRate,
	}

	if s.config.Voice != nil && s.config.Voice.Input != nil {
		if s.config.Voice.Input.Language != "" {
			opts.Language = s.config.Voice.Input.Language
		}
		if s.config.Voice.Input.Model != "" {
			opts.Model = s.config.Voice.Input.Model
		}
	}

	session, err := s.sttClient.NewStream(s.ctx, opts)
	if err != nil {
		return err
	}

	s.sttSession = session
	return nil
}

// SendAudio sends player audio to the session for processing.
func (s *Session) SendAudio(data []byte) error {
	if s.closed.Load() {
		return fmt.Errorf("session closed")
	}

	select {
	case s.audio <- data:
		return nil
	case <-s.done:
		return fmt.Errorf("session closed")
	default:
		// Buffer full, drop audio
		s.debug("AUDIO", "Buffer full, dropping audio chunk")
		return nil
	}
}

// SendText submits text as a complete player turn, bypassing STT.
func (s *Session) SendText(text string) error {
	if s.closed.Load() {
		return fmt.Errorf("session closed")
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("text cannot be empty")
	}

	s.mu.RLock()
	state := s.state
	s.mu.RUnlock()
	if state != StateListening {
		return fmt.Errorf("cannot send text in state: %s", state)
	}

	s.commitTurn(text)
	return nil
}

// Say speaks a scripted utterance, recording it in the conversation
// history so the agent knows it was said. Used for the opening
// greeting before the player has spoken.
func (s *Session) Say(text string) error {
	if s.closed.Load() {
		return fmt.Errorf("session closed")
	}

	s.mu.Lock()
	if s.state != StateListening {
		s.mu.Unlock()
		return fmt.Errorf("cannot speak in state: %s", s.state)
	}
	s.messages = append(s.messages, types.Message{
		Role:    "assistant",
		Content: text,
	})
	s.mu.Unlock()

	s.setState(StateSpeaking)

	ttsCtx, err := s.createTTSContext(s.ctx)
	if err != nil {
		s.emit(&ErrorEvent{Code: "tts_error", Message: err.Error()})
		s.setState(StateListening)
		return err
	}

	if err := ttsCtx.SendText(text, true); err != nil {
		s.emit(&ErrorEvent{Code: "tts_send_error", Message: err.Error()})
		s.cancelTTS()
		s.setState(StateListening)
		return err
	}

	go s.streamTTSAudio(s.ctx, ttsCtx)
	return nil
}

// Close shuts down the session.
func (s *Session) Close() error {
	if s.closed.Swap(true) {
		return nil // Already closed
	}

	s.debug("SESSION", "Closing session")

	if s.cancel != nil {
		s.cancel()
	}
	if s.agentCancel != nil {
		s.agentCancel()
	}

	s.sttMu.Lock()
	if s.sttSession != nil {
		s.sttSession.Close()
	}
	s.sttMu.Unlock()

	s.ttsMu.Lock()
	if s.ttsContext != nil {
		s.ttsContext.Close()
	}
	s.ttsMu.Unlock()

	close(s.done)
	s.setState(StateClosed)
	s.emit(&SessionClosedEvent{Reason: "closed"})
	close(s.events)

	return nil
}

// audioLoop forwards player audio to STT while listening.
func (s *Session) audioLoop() {
	for {
		select {
		case <-s.done:
			return
		case <-s.ctx.Done():
			return
		case data := <-s.audio:
			s.mu.RLock()
			state := s.state
			s.mu.RUnlock()

			if state != StateListening {
				continue
			}

			s.sttMu.Lock()
			if s.sttSession != nil {
				s.sttSession.SendAudio(data)
			}
			s.sttMu.Unlock()
		}
	}
}

// sttLoop processes transcription events from STT.
func (s *Session) sttLoop() {
	for {
		select {
		case <-s.done:
			return
		case <-s.ctx.Done():
			return
		default:
		}

		s.sttMu.Lock()
		session := s.sttSession
		s.sttMu.Unlock()

		if session == nil {
			time.Sleep(10 * time.Millisecond)
			continue
		}

		select {
		case <-s.done:
			return
		case <-s.ctx.Done():
			return
		case delta, ok := <-session.Transcripts():
			if !ok {
				// STT session closed, try to restart
				s.debug("STT", "Session closed, attempting restart")
				if err := s.startSTT(); err != nil {
					s.debug("STT", "Failed to restart: "+err.Error())
					time.Sleep(time.Second)
				}
				continue
			}
			s.processTranscriptDelta(delta)
		}
	}
}

// processTranscriptDelta handles incoming transcription. Final
// segments accumulate until the provider marks end of turn, which
// commits the whole turn to the agent.
func (s *Session) processTranscriptDelta(delta stt.TranscriptDelta) {
	s.mu.RLock()
	state := s.state
	s.mu.RUnlock()

	s.emit(&TranscriptDeltaEvent{
		Delta:   delta.Text,
		IsFinal: delta.IsFinal,
	})

	s.debug("STT", fmt.Sprintf("Transcribed: %q (final: %v, endOfTurn: %v)", delta.Text, delta.IsFinal, delta.IsEndOfTurn))

	if state != StateListening {
		return
	}

	s.mu.Lock()
	if delta.IsFinal && strings.TrimSpace(delta.Text) != "" {
		s.pending = append(s.pending, strings.TrimSpace(delta.Text))
		s.lastActivity = time.Now()
	}
	endOfTurn := delta.IsEndOfTurn && len(s.pending) > 0
	var transcript string
	if endOfTurn {
		transcript = strings.Join(s.pending, " ")
		s.pending = nil
	}
	s.mu.Unlock()

	if endOfTurn {
		s.commitTurn(transcript)
	}
}

// timeoutLoop force-commits a turn when transcript has accumulated
// but the STT never flags end of turn (player trailed off mid
// sentence, scene ran out of steam).
func (s *Session) timeoutLoop() {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	timeout := time.Duration(s.config.NoActivityTimeoutMs) * time.Millisecond

	for {
		select {
		case <-s.done:
			return
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			stale := s.state == StateListening &&
				len(s.pending) > 0 &&
				time.Since(s.lastActivity) > timeout
			var transcript string
			if stale {
				transcript = strings.Join(s.pending, " ")
				s.pending = nil
			}
			s.mu.Unlock()

			if stale {
				s.debug("STT", "No-activity timeout, committing turn")
				s.commitTurn(transcript)
			}
		}
	}
}

// commitTurn finalizes a player turn and starts agent processing.
func (s *Session) commitTurn(transcript string) {
	s.setState(StateProcessing)
	s.emit(&InputCommittedEvent{Transcript: transcript})

	s.mu.Lock()
	s.messages = append(s.messages, types.Message{
		Role:    "user",
		Content: transcript,
	})
	messages := make([]types.Message, len(s.messages))
	copy(messages, s.messages)
	s.mu.Unlock()

	agentCtx, agentCancel := context.WithCancel(s.ctx)
	s.agentCancel = agentCancel

	go s.runAgent(agentCtx, messages)
}

// runAgent executes the agent's tool loop with streaming, piping host
// speech to TTS incrementally. Tool calls run one at a time in call
// order; results are fed back and the stream resumes until the model
// stops asking for tools.
func (s *Session) runAgent(ctx context.Context, messages []types.Message) {
	s.debug("LLM", "Sending to "+s.config.Model+" (streaming)")

	var (
		ttsCtx    *tts.StreamingContext
		buffer    = NewSpeechBuffer()
		turnUsage types.Usage
		spoke     strings.Builder
	)

	ensureTTS := func() *tts.StreamingContext {
		if ttsCtx != nil {
			return ttsCtx
		}
		created, err := s.createTTSContext(ctx)
		if err != nil {
			s.debug("TTS", "Failed to create context: "+err.Error())
			s.emit(&ErrorEvent{Code: "tts_error", Message: err.Error()})
			return nil
		}
		ttsCtx = created
		go s.streamTTSAudio(ctx, ttsCtx)
		return ttsCtx
	}

	for {
		req := &types.MessageRequest{
			Model:     s.config.Model,
			Messages:  messages,
			MaxTokens: s.config.MaxTokens,
		}
		if s.config.System != "" {
			req.System = s.config.System
		}
		if len(s.config.Tools) > 0 {
			req.Tools = s.config.Tools
		}
		if s.config.Temperature != nil {
			req.Temperature = s.config.Temperature
		}

		stream, err := s.llmClient.StreamMessage(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.emit(&ErrorEvent{Code: "llm_error", Message: err.Error()})
			s.setState(StateListening)
			return
		}

		var (
			stepText strings.Builder
			toolUses []types.ToolUseBlock
		)

		for {
			event, err := stream.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				stream.Close()
				if ctx.Err() != nil {
					s.debug("LLM", "Stream cancelled")
					buffer.Reset()
					return
				}
				s.debug("LLM", "Stream error: "+err.Error())
				s.emit(&ErrorEvent{Code: "llm_error", Message: err.Error()})
				break
			}

			switch e := event.(type) {
			case types.ContentBlockDeltaEvent:
				td, ok := e.Delta.(types.TextDelta)
				if !ok {
					continue
				}
				stepText.WriteString(td.Text)
				spoke.WriteString(td.Text)
				s.emit(&ContentBlockDeltaEvent{Index: e.Index, Delta: td.Text})

				if s.State() == StateProcessing {
					s.setState(StateSpeaking)
				}

				if chunk := buffer.Add(td.Text); chunk != "" {
					s.debug("TTS", "Sending chunk: "+chunk)
					if tc := ensureTTS(); tc != nil {
						if err := tc.SendText(chunk, false); err != nil {
							s.debug("TTS", "Send error: "+err.Error())
						}
					}
				}

			case types.ContentBlockStartEvent:
				if tu, ok := e.ContentBlock.(types.ToolUseBlock); ok {
					toolUses = append(toolUses, tu)
				}

			case types.MessageDeltaEvent:
				turnUsage = turnUsage.Add(e.Usage)
			}
		}
		stream.Close()

		if len(toolUses) == 0 {
			break
		}

		// Record the assistant's tool request, execute each call in
		// order, then continue the loop with the results appended.
		var blocks []types.ContentBlock
		if stepText.Len() > 0 {
			blocks = append(blocks, types.Text(stepText.String()))
		}
		for _, tu := range toolUses {
			blocks = append(blocks, tu)
		}
		messages = append(messages, types.Message{Role: "assistant", Content: blocks})

		var results []types.ContentBlock
		for _, tu := range toolUses {
			results = append(results, s.executeTool(ctx, tu))
		}
		messages = append(messages, types.Message{Role: "user", Content: results})

		if ctx.Err() != nil {
			return
		}
	}

	// Flush remaining text to TTS
	if remaining := buffer.Flush(); remaining != "" {
		s.debug("TTS", "Sending final chunk: "+remaining)
		if tc := ensureTTS(); tc != nil {
			if err := tc.SendText(remaining, true); err != nil {
				s.debug("TTS", "Final send error: "+err.Error())
			}
		}
	} else if ttsCtx != nil {
		ttsCtx.Flush()
	}

	// Update conversation history with what was actually said.
	finalText := spoke.String()
	s.mu.Lock()
	s.messages = messages
	if finalText != "" {
		s.messages = append(s.messages, types.Message{
			Role:    "assistant",
			Content: finalText,
		})
	}
	s.mu.Unlock()

	if !turnUsage.IsEmpty() {
		s.emit(&UsageEvent{Usage: turnUsage})
	}

	s.debug("LLM", "Stream complete")
	s.emit(&MessageStopEvent{})

	// No speech this turn, so no TTS completion will flip the state.
	if ttsCtx == nil {
		s.setState(StateListening)
	}
}

// executeTool runs one tool call and returns its result block.
func (s *Session) executeTool(ctx context.Context, tu types.ToolUseBlock) types.ContentBlock {
	var input any
	_ = json.Unmarshal(tu.Input, &input)
	s.emit(&ToolUseEvent{ID: tu.ID, Name: tu.Name, Input: input})
	s.debug("TOOL", "Executing "+tu.Name)

	handler, ok := s.config.Handlers[tu.Name]
	if !ok {
		content := fmt.Sprintf("no handler registered for tool %q", tu.Name)
		s.emit(&ToolResultEvent{ID: tu.ID, Name: tu.Name, Content: content, IsError: true})
		return types.ToolResult(tu.ID, content, true)
	}

	result, err := handler(ctx, tu.Input)
	if err != nil {
		content := err.Error()
		s.emit(&ToolResultEvent{ID: tu.ID, Name: tu.Name, Content: content, IsError: true})
		return types.ToolResult(tu.ID, content, true)
	}

	content := toolResultString(result)
	s.emit(&ToolResultEvent{ID: tu.ID, Name: tu.Name, Content: content})
	return types.ToolResult(tu.ID, content, false)
}

func toolResultString(result any) string {
	switch v := result.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}

// createTTSContext creates a TTS streaming context, replacing any
// previous one so two responses never speak over each other.
func (s *Session) createTTSContext(ctx context.Context) (*tts.StreamingContext, error) {
	opts := tts.StreamingContextOptions{
		SampleRate: 24000,
		Format:     "pcm",
	}
	if s.config.Voice != nil && s.config.Voice.Output != nil {
		opts.Voice = s.config.Voice.Output.Voice
		opts.Style = s.config.Voice.Output.Style
		opts.Speed = s.config.Voice.Output.Speed
		if s.config.Voice.Output.Format != "" {
			opts.Format = s.config.Voice.Output.Format
		}
		if s.config.Voice.Output.SampleRate > 0 {
			opts.SampleRate = s.config.Voice.Output.SampleRate
		}
	}

	s.debug("TTS", fmt.Sprintf("Creating TTS context (voice: %s, rate: %d, format: %s)", opts.Voice, opts.SampleRate, opts.Format))

	s.ttsMu.Lock()
	defer s.ttsMu.Unlock()

	if s.ttsContext != nil {
		s.debug("TTS", "Closing previous TTS context before creating new one")
		s.ttsContext.Close()
		s.ttsContext = nil
	}

	ttsCtx, err := s.ttsClient.NewStreamingContext(ctx, opts)
	if err != nil {
		return nil, err
	}

	s.ttsContext = ttsCtx
	s.ttsPosition = 0
	s.ttsOutput = AudioConfig{
		SampleRate:    opts.SampleRate,
		Channels:      1,
		BitsPerSample: 16,
	}

	return ttsCtx, nil
}

// streamTTSAudio streams audio from TTS to the client.
func (s *Session) streamTTSAudio(ctx context.Context, ttsCtx *tts.StreamingContext) {
	audioChunks := 0

	for {
		select {
		case <-ctx.Done():
			s.debug("TTS", "Context cancelled")
			return
		case <-s.done:
			return
		case audioData, ok := <-ttsCtx.Audio():
			if !ok {
				// If a newer context replaced this one, exit silently.
				s.ttsMu.Lock()
				isCurrentContext := s.ttsContext == ttsCtx
				s.ttsMu.Unlock()

				if !isCurrentContext {
					s.debug("TTS", "TTS context replaced, exiting old stream")
					return
				}

				if err := ttsCtx.Err(); err != nil {
					s.debug("TTS", "TTS error: "+err.Error())
					s.emit(&ErrorEvent{Code: "tts_stream_error", Message: err.Error()})
				}
				s.debug("TTS", fmt.Sprintf("Synthesis complete (%d chunks, %dms)", audioChunks, s.ttsPosition))
				s.emit(&AudioCommittedEvent{DurationMs: s.ttsPosition})

				s.setState(StateListening)
				return
			}

			audioChunks++

			s.emit(&AudioDeltaEvent{
				Data:   audioData,
				Format: "pcm_s16le",
			})

			s.ttsMu.Lock()
			s.ttsPosition += s.ttsOutput.DurationMs(len(audioData))
			s.ttsMu.Unlock()
		}
	}
}

// cancelTTS cancels TTS output.
func (s *Session) cancelTTS() {
	s.ttsMu.Lock()
	defer s.ttsMu.Unlock()

	if s.ttsContext != nil {
		s.ttsContext.Close()
		s.ttsContext = nil
	}
}

// setState updates the session state and emits an event.
func (s *Session) setState(newState SessionState) {
	s.mu.Lock()
	oldState := s.state
	s.state = newState
	s.mu.Unlock()

	if oldState != newState {
		s.debug("SESSION", fmt.Sprintf("State: %s -> %s", oldState, newState))
		s.emit(&StateChangedEvent{From: oldState, To: newState})
	}
}

// emit sends an event to the events channel.
func (s *Session) emit(event Event) {
	select {
	case s.events <- event:
	case <-s.done:
	default:
		// Channel full, drop event
	}
}

// debug logs a debug message if debug mode is enabled.
func (s *Session) debug(category, message string) {
	if s.debugEnabled {
		timestamp := time.Now().Format("15:04:05.000")
		fmt.Fprintf(os.Stderr, "\033[90m%s\033[0m [\033[36m%-10s\033[0m] %s\n", timestamp, category, message)
		s.emit(&DebugEvent{Category: category, Message: message})
	}
}

// generateSessionID creates a unique session identifier.
func generateSessionID() string {
	return fmt.Sprintf("live_%d", time.Now().UnixNano())
}
