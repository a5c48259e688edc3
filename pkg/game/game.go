// Package game implements the Improv Battle session state machine:
// player identity, round progression, round history, and phase. It is
// the single authority on game invariants; the conversational layer
// mutates it only through the host's tool surface.
package game

import (
	"fmt"
	"math/rand/v2"
)

// DefaultMaxRounds is the number of scenario rounds in one show.
const DefaultMaxRounds = 3

// Phase is the coarse-grained stage of a game session.
type Phase int

const (
	PhaseIntro Phase = iota
	PhasePlaying
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseIntro:
		return "intro"
	case PhasePlaying:
		return "playing"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// Round is one completed scenario-performance-reaction cycle.
type Round struct {
	Scenario string `json:"scenario"`
	Reaction string `json:"reaction"`
}

// Game holds the state of one show. It is created per session, never
// persisted, and mutated only on tool-call boundaries, which the
// governing agent serializes, so no locking is needed.
type Game struct {
	playerName string
	round      int
	maxRounds  int
	phase      Phase
	current    string
	history    []Round
	bank       Bank
	rng        *rand.Rand
}

// Option configures a Game.
type Option func(*Game)

// WithBank replaces the default scenario bank.
func WithBank(bank Bank) Option {
	return func(g *Game) { g.bank = bank }
}

// WithMaxRounds overrides the round count.
func WithMaxRounds(n int) Option {
	return func(g *Game) { g.maxRounds = n }
}

// WithRand sets the random source for scenario selection.
// Used by tests for determinism.
func WithRand(rng *rand.Rand) Option {
	return func(g *Game) { g.rng = rng }
}

// New creates a fresh game in the intro phase.
func New(opts ...Option) *Game {
	g := &Game{
		maxRounds: DefaultMaxRounds,
		phase:     PhaseIntro,
		bank:      DefaultScenarios,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return g
}

// Start registers the player and moves the game into the playing
// phase. Calling it again overwrites the name and restarts round
// counting.
func (g *Game) Start(name string) {
	g.playerName = name
	g.phase = PhasePlaying
	g.round = 0
}

// NextScenario issues the next round's scenario. It returns ok=false
// when all rounds have been played, which also moves the game to the
// done phase.
func (g *Game) NextScenario() (string, bool, error) {
	if g.round >= g.maxRounds {
		g.phase = PhaseDone
		return "", false, nil
	}

	scenario, err := g.bank.Pick(g.rng)
	if err != nil {
		return "", false, err
	}

	g.current = scenario
	g.round++
	return scenario, true, nil
}

// RecordReaction appends the pending scenario and the host's reaction
// to the round history. With no pending scenario it does nothing.
func (g *Game) RecordReaction(reaction string) {
	if g.current == "" {
		return
	}
	g.history = append(g.history, Round{
		Scenario: g.current,
		Reaction: reaction,
	})
}

// PlayerName returns the registered player name, or "" before Start.
func (g *Game) PlayerName() string { return g.playerName }

// Phase returns the current game phase.
func (g *Game) Phase() Phase { return g.phase }

// Round returns the number of scenarios issued so far.
func (g *Game) Round() int { return g.round }

// MaxRounds returns the configured round limit.
func (g *Game) MaxRounds() int { return g.maxRounds }

// CurrentScenario returns the most recently issued scenario.
func (g *Game) CurrentScenario() string { return g.current }

// History returns a copy of the completed rounds in order.
func (g *Game) History() []Round {
	out := make([]Round, len(g.history))
	copy(out, g.history)
	return out
}
