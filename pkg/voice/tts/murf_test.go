package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// fakeMurf expects a voice config first, then answers each text chunk
// with one base64 audio frame, sending final=true after end=true.
func fakeMurf(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("api-key"); got != "test-key" {
			t.Errorf("api-key = %q", got)
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		var cfg murfConfigMessage
		if err := conn.ReadJSON(&cfg); err != nil {
			t.Errorf("read voice config: %v", err)
			return
		}
		if cfg.VoiceConfig.VoiceID != "en-US-matthew" {
			t.Errorf("voiceId = %q", cfg.VoiceConfig.VoiceID)
		}

		for {
			var msg murfTextMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			resp := murfResponse{
				Audio: base64.StdEncoding.EncodeToString([]byte("pcm:" + msg.Text)),
				Final: msg.End,
			}
			data, _ := json.Marshal(resp)
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
			if msg.End {
				return
			}
		}
	}))
}

func TestMurfStreamingContext(t *testing.T) {
	server := fakeMurf(t)
	defer server.Close()

	provider := NewMurf("test-key")
	provider.baseURL = "ws" + strings.TrimPrefix(server.URL, "http")

	sc, err := provider.NewStreamingContext(context.Background(), StreamingContextOptions{})
	if err != nil {
		t.Fatalf("NewStreamingContext: %v", err)
	}
	defer sc.Close()

	if err := sc.SendText("Welcome to the show.", false); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if err := sc.SendText("Let's play!", true); err != nil {
		t.Fatalf("SendText final: %v", err)
	}

	var chunks [][]byte
	timeout := time.After(2 * time.Second)
	for {
		select {
		case chunk, ok := <-sc.Audio():
			if !ok {
				if len(chunks) != 2 {
					t.Fatalf("got %d chunks, want 2", len(chunks))
				}
				if string(chunks[0]) != "pcm:Welcome to the show." {
					t.Errorf("chunk 0 = %q", chunks[0])
				}
				if err := sc.Err(); err != nil {
					t.Errorf("stream error: %v", err)
				}
				return
			}
			chunks = append(chunks, chunk)
		case <-timeout:
			t.Fatal("timed out waiting for audio")
		}
	}
}

func TestStreamingContext_SendAfterClose(t *testing.T) {
	sc := NewStreamingContext()
	if err := sc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := sc.SendText("late", false); err != ErrContextClosed {
		t.Errorf("err = %v, want ErrContextClosed", err)
	}
}

func TestStreamingContext_CloseIsIdempotent(t *testing.T) {
	closes := 0
	sc := NewStreamingContext()
	sc.CloseFunc = func() error {
		closes++
		return nil
	}
	sc.Close()
	sc.Close()
	if closes != 1 {
		t.Errorf("CloseFunc called %d times, want 1", closes)
	}
}
