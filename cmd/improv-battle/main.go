// Package main runs Improv Battle from the terminal: a voice-first
// improv game show hosted by a conversational agent.
//
// Usage:
//
//	go run ./cmd/improv-battle
//
// Environment variables:
//
//	GEMINI_API_KEY   - Required for the host LLM
//	DEEPGRAM_API_KEY - Required for STT
//	MURF_API_KEY     - Required for TTS
//
// Controls:
//
//	/t <text>  - Send a turn as text instead of speaking
//	q          - Quit the show
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/vango-go/improv-battle/pkg/game"
	"github.com/vango-go/improv-battle/pkg/live"
	"github.com/vango-go/improv-battle/pkg/providers/gemini"
	"github.com/vango-go/improv-battle/pkg/session"
	"github.com/vango-go/improv-battle/pkg/telemetry"
	"github.com/vango-go/improv-battle/pkg/types"
	"github.com/vango-go/improv-battle/pkg/voice/stt"
	"github.com/vango-go/improv-battle/pkg/voice/tts"
)

func main() {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	var (
		playerName  = flag.String("name", "", "player name (skips the host asking for it)")
		rounds      = flag.Int("rounds", game.DefaultMaxRounds, "number of improv rounds")
		model       = flag.String("model", gemini.DefaultModel, "host LLM model")
		metricsAddr = flag.String("metrics", "", "serve Prometheus metrics on this address (e.g. :9090)")
		debug       = flag.Bool("debug", false, "enable session debug output")
	)
	flag.Parse()

	geminiKey := os.Getenv("GEMINI_API_KEY")
	if geminiKey == "" {
		log.Fatal("GEMINI_API_KEY required")
	}
	deepgramKey := os.Getenv("DEEPGRAM_API_KEY")
	if deepgramKey == "" {
		log.Fatal("DEEPGRAM_API_KEY required")
	}
	murfKey := os.Getenv("MURF_API_KEY")
	if murfKey == "" {
		log.Fatal("MURF_API_KEY required")
	}

	fmt.Println("╔════════════════════════════════════════════════════════════╗")
	fmt.Println("║                     IMPROV  BATTLE                         ║")
	fmt.Println("╠════════════════════════════════════════════════════════════╣")
	fmt.Println("║  Speak naturally. The host sets the scene, you act it out. ║")
	fmt.Println("║  Say 'End Scene' or stop talking when you're done.         ║")
	fmt.Println("║                                                            ║")
	fmt.Println("║  Commands:                                                 ║")
	fmt.Println("║    /t <text>   Send a turn as text                         ║")
	fmt.Println("║    q           Quit                                        ║")
	fmt.Println("╚════════════════════════════════════════════════════════════╝")
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()
	}()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	llm, err := gemini.New(ctx, geminiKey)
	if err != nil {
		log.Fatalf("Failed to create LLM provider: %v", err)
	}

	metrics := telemetry.NewMetrics("improv")
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		go func() {
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		logger.Info("serving metrics", "addr", *metricsAddr)
	}

	var metadata string
	if *playerName != "" {
		metadata = fmt.Sprintf(`{"player_name":%q}`, *playerName)
	}

	o := session.New(session.Config{
		LLM:      session.ProviderLLM(llm),
		TTS:      tts.NewMurf(murfKey),
		STT:      stt.NewDeepgram(deepgramKey),
		Metadata: metadata,
		Model:    *model,
		Voice: &types.VoiceConfig{
			Input: &types.VoiceInputConfig{
				Model:    "nova-3",
				Language: "en",
			},
			Output: &types.VoiceOutputConfig{
				Voice:      "en-US-matthew",
				Style:      "Promo",
				Format:     types.VoiceFormatPCM,
				SampleRate: speakerSampleRate,
			},
		},
		GameOptions: []game.Option{game.WithMaxRounds(*rounds)},
		Logger:      logger,
		Metrics:     metrics,
		Debug:       *debug,
	})

	runDone := make(chan error, 1)
	go func() { runDone <- o.Run(ctx) }()

	mic, speaker, cleanup := initAudio()
	defer cleanup()

	// Pump microphone audio into the session in 20ms chunks.
	go func() {
		buf := make([]byte, micSampleRate*2/50)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			n := mic.Read(buf)
			if n > 0 {
				o.SendAudio(buf[:n])
			}
		}
	}()

	// Handle session events: play host audio, show the dialogue.
	go func() {
		for event := range o.Events() {
			switch e := event.(type) {
			case *live.AudioDeltaEvent:
				speaker.Write(e.Data)
			case *live.AudioFlushEvent:
				speaker.Flush()
			case *live.InputCommittedEvent:
				fmt.Printf("\nYou: %s\n", e.Transcript)
			case *live.ContentBlockDeltaEvent:
				fmt.Print(e.Delta)
			case *live.MessageStopEvent:
				fmt.Println()
			case *live.ErrorEvent:
				fmt.Printf("\n[ERROR] %s: %s\n", e.Code, e.Message)
			}
		}
	}()

	// Command input loop
	fmt.Println("Listening... (type commands or 'q' to quit)")
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			input := strings.TrimSpace(scanner.Text())
			if input == "" {
				continue
			}

			if strings.ToLower(input) == "q" {
				cancel()
				return
			}

			if text, ok := strings.CutPrefix(input, "/t "); ok {
				if err := o.SendText(text); err != nil {
					fmt.Printf("[ERROR] Failed to send text: %v\n", err)
				}
				continue
			}

			fmt.Println("[INFO] Commands: /t <text>, q")
		}
	}()

	if err := <-runDone; err != nil && err != context.Canceled {
		log.Fatalf("Session failed: %v", err)
	}
}
