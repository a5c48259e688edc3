package tts

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

const murfStreamURL = "wss://api.murf.ai/v1/speech/stream-input"

// Default voice - users should pick a voice matching their show.
const defaultMurfVoice = "en-US-matthew"

// MurfProvider implements the TTS Provider interface using Murf's
// streaming speech API.
type MurfProvider struct {
	apiKey  string
	baseURL string // overridden in tests
}

// NewMurf creates a new Murf TTS provider.
func NewMurf(apiKey string) *MurfProvider {
	return &MurfProvider{apiKey: apiKey, baseURL: murfStreamURL}
}

// Name returns the provider identifier.
func (m *MurfProvider) Name() string {
	return "murf"
}

type murfVoiceConfig struct {
	VoiceID string  `json:"voiceId"`
	Style   string  `json:"style,omitempty"`
	Rate    float64 `json:"rate,omitempty"`
}

type murfConfigMessage struct {
	VoiceConfig murfVoiceConfig `json:"voice_config"`
}

type murfTextMessage struct {
	Text string `json:"text,omitempty"`
	End  bool   `json:"end,omitempty"`
}

type murfResponse struct {
	Audio        string `json:"audio,omitempty"` // base64 audio chunk
	Final        bool   `json:"final,omitempty"`
	Error        string `json:"error,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// NewStreamingContext creates a streaming context for incremental
// text-to-speech. Text chunks can be sent via SendText(), and audio
// chunks are received via Audio().
func (m *MurfProvider) NewStreamingContext(ctx context.Context, opts StreamingContextOptions) (*StreamingContext, error) {
	u, err := url.Parse(m.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse websocket URL: %w", err)
	}

	sampleRate := opts.SampleRate
	if sampleRate == 0 {
		sampleRate = 24000
	}
	format := strings.ToUpper(opts.Format)
	if format == "" || format == "PCM" {
		format = "PCM"
	}

	q := u.Query()
	q.Set("api-key", m.apiKey)
	q.Set("sample_rate", strconv.Itoa(sampleRate))
	q.Set("channel_type", "MONO")
	q.Set("format", format)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket connect: %w", err)
	}

	voice := opts.Voice
	if voice == "" {
		voice = defaultMurfVoice
	}

	cfg := murfConfigMessage{
		VoiceConfig: murfVoiceConfig{
			VoiceID: voice,
			Style:   opts.Style,
			Rate:    opts.Speed,
		},
	}
	if err := conn.WriteJSON(cfg); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send voice config: %w", err)
	}

	sc := NewStreamingContext()

	var writeMu sync.Mutex

	sc.SendFunc = func(text string, isFinal bool) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(murfTextMessage{Text: text, End: isFinal})
	}

	sc.CloseFunc = func() error {
		return conn.Close()
	}

	go func() {
		defer sc.FinishAudio()
		defer conn.Close()

		for {
			select {
			case <-ctx.Done():
				sc.SetError(ctx.Err())
				return
			case <-sc.Done():
				return
			default:
			}

			var msg murfResponse
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return
				}
				sc.SetError(err)
				return
			}

			if msg.Error != "" || msg.ErrorMessage != "" {
				detail := msg.Error
				if detail == "" {
					detail = msg.ErrorMessage
				}
				sc.SetError(fmt.Errorf("murf error: %s", detail))
				return
			}

			if msg.Audio != "" {
				audioData, err := base64.StdEncoding.DecodeString(msg.Audio)
				if err != nil {
					sc.SetError(fmt.Errorf("decode audio: %w", err))
					return
				}
				if !sc.PushAudio(audioData) {
					return
				}
			}

			if msg.Final {
				return
			}
		}
	}()

	return sc, nil
}
