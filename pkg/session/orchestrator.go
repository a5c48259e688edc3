// Package session assembles one full Improv Battle show: it builds
// the game, binds the host persona, opens a live voice session, and
// pumps events until the show ends.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vango-go/improv-battle/pkg/game"
	"github.com/vango-go/improv-battle/pkg/host"
	"github.com/vango-go/improv-battle/pkg/live"
	"github.com/vango-go/improv-battle/pkg/telemetry"
	"github.com/vango-go/improv-battle/pkg/types"
)

const (
	greetingUnknown = "Welcome to Improv Battle! I'm your host. What's your name, contestant?"
	greetingKnown   = "Welcome to Improv Battle, %s! I'm your host. Are you ready to improvise?"
)

// Config holds everything an orchestrator needs to run a show.
type Config struct {
	// LLM, TTS, and STT are the provider clients for the live session.
	LLM live.LLMClient
	TTS live.TTSClient
	STT live.STTClient

	// Metadata is the raw participant metadata JSON, if any.
	Metadata string

	// Voice configures STT and TTS for the live session.
	Voice *types.VoiceConfig

	// Model overrides the default LLM model.
	Model string

	// GameOptions customize the game (scenario bank, round count).
	GameOptions []game.Option

	// Logger receives structured session logs. Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics receives operational metrics. Optional.
	Metrics *telemetry.Metrics

	// Debug enables live session debug output.
	Debug bool
}

// Orchestrator runs one show from greeting to goodbye.
type Orchestrator struct {
	game    *game.Game
	host    *host.Host
	session *live.Session
	usage   *telemetry.UsageCollector
	metrics *telemetry.Metrics
	logger  *slog.Logger
	model   string
	debug   bool

	events chan live.Event
}

// New builds an orchestrator: a fresh game, pre-seeded with the
// player's name when the participant metadata carries one, and a live
// session configured with the host's persona and tools.
func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	g := game.New(cfg.GameOptions...)

	meta, err := ParseParticipantMetadata(cfg.Metadata)
	if err != nil {
		logger.Warn("ignoring malformed participant metadata", "error", err)
	}
	if meta.PlayerName != "" {
		g.Start(meta.PlayerName)
		logger.Info("player pre-registered from metadata", "player", meta.PlayerName)
	}

	h := host.New(g, logger)
	tools := h.Tools()

	sessionConfig := live.DefaultSessionConfig()
	if cfg.Model != "" {
		sessionConfig.Model = cfg.Model
	}
	sessionConfig.System = h.Instructions()
	sessionConfig.Tools = tools.Tools()
	sessionConfig.Handlers = tools.Handlers()
	sessionConfig.Voice = cfg.Voice

	s := live.NewSession(sessionConfig, cfg.LLM, cfg.TTS, cfg.STT)
	if cfg.Debug {
		s.EnableDebug()
	}

	return &Orchestrator{
		game:    g,
		host:    h,
		session: s,
		usage:   telemetry.NewUsageCollector(),
		metrics: cfg.Metrics,
		logger:  logger,
		model:   sessionConfig.Model,
		debug:   cfg.Debug,
		events:  make(chan live.Event, 100),
	}
}

// Game returns the underlying game state.
func (o *Orchestrator) Game() *game.Game {
	return o.game
}

// Usage returns the session's usage collector.
func (o *Orchestrator) Usage() *telemetry.UsageCollector {
	return o.usage
}

// Events returns the forwarded live session events. The channel is
// closed when the show ends.
func (o *Orchestrator) Events() <-chan live.Event {
	return o.events
}

// State returns the live session's current state.
func (o *Orchestrator) State() live.SessionState {
	return o.session.State()
}

// SendAudio forwards player audio into the live session.
func (o *Orchestrator) SendAudio(data []byte) error {
	if o.metrics != nil {
		o.metrics.RecordAudio("input", len(data))
	}
	return o.session.SendAudio(data)
}

// SendText submits a typed player turn, bypassing STT.
func (o *Orchestrator) SendText(text string) error {
	return o.session.SendText(text)
}

// Close shuts the show down.
func (o *Orchestrator) Close() error {
	return o.session.Close()
}

// Run starts the live session, delivers the greeting, and pumps
// events until the session closes or ctx is cancelled. It blocks for
// the lifetime of the show.
func (o *Orchestrator) Run(ctx context.Context) error {
	started := time.Now()

	if err := o.session.Start(ctx); err != nil {
		return fmt.Errorf("start live session: %w", err)
	}

	if o.metrics != nil {
		o.metrics.RecordSessionStart()
	}

	o.logger.Info("show starting",
		"session_id", o.session.SessionID(),
		"player", o.game.PlayerName(),
		"max_rounds", o.game.MaxRounds())

	if err := o.session.Say(o.greeting()); err != nil {
		o.logger.Warn("greeting failed", "error", err)
	}

	status := "completed"
	defer func() {
		if o.metrics != nil {
			o.metrics.RecordSessionEnd(o.model, status, time.Since(started))
		}
		o.logger.Info("show finished",
			"session_id", o.session.SessionID(),
			"player", o.game.PlayerName(),
			"phase", o.game.Phase().String(),
			"rounds", len(o.game.History()),
			"usage", o.usage.Summary())
		close(o.events)
	}()

	for {
		select {
		case <-ctx.Done():
			status = "cancelled"
			o.session.Close()
			// Drain the rest so the session can finish closing.
			for ev := range o.session.Events() {
				o.observe(ev)
			}
			return ctx.Err()

		case ev, ok := <-o.session.Events():
			if !ok {
				return nil
			}
			o.observe(ev)
			select {
			case o.events <- ev:
			default:
				// Consumer fell behind, drop
			}
		}
	}
}

// observe feeds one live event into telemetry and logs.
func (o *Orchestrator) observe(ev live.Event) {
	switch e := ev.(type) {
	case *live.InputCommittedEvent:
		o.logger.Info("player turn", "transcript", e.Transcript)

	case *live.ToolUseEvent:
		o.logger.Info("tool call", "tool", e.Name)

	case *live.ToolResultEvent:
		if o.metrics != nil {
			o.metrics.RecordToolCall(e.Name, e.IsError)
			if e.Name == "get_scenario" && strings.HasPrefix(e.Content, "Scenario for Round") {
				o.metrics.RecordRound()
			}
		}

	case *live.UsageEvent:
		o.usage.Collect(e.Usage)
		if o.metrics != nil {
			o.metrics.RecordTokens(o.model, e.Usage)
		}

	case *live.AudioDeltaEvent:
		if o.metrics != nil {
			o.metrics.RecordAudio("output", len(e.Data))
		}

	case *live.ErrorEvent:
		if o.metrics != nil {
			o.metrics.RecordError(e.Code)
		}
		o.logger.Error("session error", "code", e.Code, "message", e.Message)
	}
}

// greeting picks the opening line based on whether the player is
// already known.
func (o *Orchestrator) greeting() string {
	if name := o.game.PlayerName(); name != "" {
		return fmt.Sprintf(greetingKnown, name)
	}
	return greetingUnknown
}
