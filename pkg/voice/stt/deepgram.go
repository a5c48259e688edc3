package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const deepgramListenURL = "wss://api.deepgram.com/v1/listen"

// DeepgramProvider implements the STT Provider interface using
// Deepgram's live transcription API.
type DeepgramProvider struct {
	apiKey  string
	baseURL string // overridden in tests
}

// NewDeepgram creates a new Deepgram STT provider.
func NewDeepgram(apiKey string) *DeepgramProvider {
	return &DeepgramProvider{apiKey: apiKey, baseURL: deepgramListenURL}
}

// Name returns the provider identifier.
func (d *DeepgramProvider) Name() string {
	return "deepgram"
}

// NewStream opens a live transcription session via WebSocket.
// Audio can be sent incrementally via SendAudio, and transcripts
// received via Transcripts.
func (d *DeepgramProvider) NewStream(ctx context.Context, opts TranscribeOptions) (Stream, error) {
	u, err := url.Parse(d.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse websocket URL: %w", err)
	}

	q := u.Query()

	model := opts.Model
	if model == "" {
		model = "nova-3"
	}
	q.Set("model", model)

	language := opts.Language
	if language == "" {
		language = "en"
	}
	q.Set("language", language)

	encoding := opts.Encoding
	if encoding == "" {
		encoding = "linear16"
	}
	q.Set("encoding", encoding)

	sampleRate := opts.SampleRate
	if sampleRate == 0 {
		sampleRate = 16000
	}
	q.Set("sample_rate", strconv.Itoa(sampleRate))

	// Interim results let the session engine show partials and do its
	// own commit logic; speech_final marks end of turn.
	q.Set("interim_results", "true")
	q.Set("punctuate", "true")
	q.Set("endpointing", "300")

	u.RawQuery = q.Encode()

	headers := http.Header{}
	headers.Set("Authorization", "Token "+d.apiKey)

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, resp, err := dialer.DialContext(ctx, u.String(), headers)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			if len(body) > 0 {
				return nil, fmt.Errorf("websocket connect (status %d): %s", resp.StatusCode, string(body))
			}
			return nil, fmt.Errorf("websocket connect: status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket connect: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &deepgramStream{
		conn:        conn,
		transcripts: make(chan TranscriptDelta, 100),
		done:        make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}

	go s.readLoop()
	go s.keepAliveLoop()

	return s, nil
}

type deepgramStream struct {
	conn        *websocket.Conn
	transcripts chan TranscriptDelta
	done        chan struct{}
	closed      atomic.Bool
	writeMu     sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
}

type deepgramResponse struct {
	Type        string  `json:"type"` // "Results", "Metadata", "SpeechStarted", "UtteranceEnd"
	IsFinal     bool    `json:"is_final"`
	SpeechFinal bool    `json:"speech_final"`
	Start       float64 `json:"start"`
	Channel     struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func (s *deepgramStream) readLoop() {
	defer func() {
		close(s.transcripts)
		close(s.done)
	}()

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg deepgramResponse
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		if msg.Type != "Results" || len(msg.Channel.Alternatives) == 0 {
			continue
		}

		text := msg.Channel.Alternatives[0].Transcript
		if text == "" && !msg.SpeechFinal {
			continue
		}

		delta := TranscriptDelta{
			Text:        text,
			IsFinal:     msg.IsFinal,
			IsEndOfTurn: msg.SpeechFinal,
			Timestamp:   msg.Start,
		}

		select {
		case s.transcripts <- delta:
		case <-s.ctx.Done():
			return
		}
	}
}

// keepAliveLoop keeps the connection open across long host turns.
// Deepgram closes sessions after ~10s without audio or a KeepAlive.
func (s *deepgramStream) keepAliveLoop() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.sendControl(`{"type":"KeepAlive"}`)
		}
	}
}

func (s *deepgramStream) sendControl(msg string) error {
	if s.closed.Load() {
		return fmt.Errorf("session closed")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, []byte(msg))
}

// SendAudio sends audio data to the live transcription session.
// Audio must match the encoding and sample rate set at open
// (default: linear16 at 16kHz).
func (s *deepgramStream) SendAudio(data []byte) error {
	if s.closed.Load() {
		return fmt.Errorf("session closed")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.BinaryMessage, data)
}

// Finalize flushes buffered audio and forces a final transcript
// without closing the session.
func (s *deepgramStream) Finalize() error {
	return s.sendControl(`{"type":"Finalize"}`)
}

// Transcripts returns the channel of transcript deltas.
func (s *deepgramStream) Transcripts() <-chan TranscriptDelta {
	return s.transcripts
}

// Close ends the session.
func (s *deepgramStream) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.cancel()

	s.writeMu.Lock()
	s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`))
	s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.writeMu.Unlock()

	return s.conn.Close()
}
