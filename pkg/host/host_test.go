package host

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/vango-go/improv-battle/pkg/agent"
	"github.com/vango-go/improv-battle/pkg/game"
)

func newTestHost() (*Host, *game.Game) {
	g := game.New(game.WithRand(rand.New(rand.NewPCG(7, 7))))
	return New(g, slog.New(slog.DiscardHandler)), g
}

func callTool(t *testing.T, ts *agent.ToolSet, name, input string) string {
	t.Helper()
	h, ok := ts.Handler(name)
	if !ok {
		t.Fatalf("no handler for %q", name)
	}
	result, err := h(context.Background(), json.RawMessage(input))
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	s, ok := result.(string)
	if !ok {
		t.Fatalf("%s returned %T, want string", name, result)
	}
	return s
}

func TestTools_Registered(t *testing.T) {
	h, _ := newTestHost()
	ts := h.Tools()

	want := []string{"set_player_name", "get_scenario", "record_round_reaction"}
	tools := ts.Tools()
	if len(tools) != len(want) {
		t.Fatalf("len(tools) = %d, want %d", len(tools), len(want))
	}
	for i, name := range want {
		if tools[i].Name != name {
			t.Errorf("tools[%d].Name = %q, want %q", i, tools[i].Name, name)
		}
		if _, ok := ts.Handler(name); !ok {
			t.Errorf("missing handler for %q", name)
		}
	}
}

func TestSetPlayerName(t *testing.T) {
	h, g := newTestHost()
	ts := h.Tools()

	got := callTool(t, ts, "set_player_name", `{"name":"Ada"}`)
	want := "Player name set to Ada. Game started! Now explain the rules and start Round 1."
	if got != want {
		t.Errorf("ack = %q, want %q", got, want)
	}
	if g.PlayerName() != "Ada" {
		t.Errorf("player name = %q, want Ada", g.PlayerName())
	}
	if g.Phase() != game.PhasePlaying {
		t.Errorf("phase = %v, want playing", g.Phase())
	}
}

func TestGetScenario(t *testing.T) {
	h, g := newTestHost()
	ts := h.Tools()
	g.Start("Sam")

	got := callTool(t, ts, "get_scenario", `{}`)
	if !strings.HasPrefix(got, "Scenario for Round 1: ") {
		t.Fatalf("unexpected result: %q", got)
	}
	scenario := strings.TrimPrefix(got, "Scenario for Round 1: ")
	if !game.DefaultScenarios.Contains(scenario) {
		t.Errorf("scenario not from bank: %q", scenario)
	}
}

func TestGetScenario_GameOver(t *testing.T) {
	h, g := newTestHost()
	ts := h.Tools()
	g.Start("Sam")

	for i := 0; i < g.MaxRounds(); i++ {
		callTool(t, ts, "get_scenario", `{}`)
		callTool(t, ts, "record_round_reaction", `{"reaction":"good"}`)
	}

	if got := callTool(t, ts, "get_scenario", `{}`); got != GameOverSignal {
		t.Errorf("result = %q, want %q", got, GameOverSignal)
	}
	if g.Phase() != game.PhaseDone {
		t.Errorf("phase = %v, want done", g.Phase())
	}
}

func TestGetScenario_SoftError(t *testing.T) {
	g := game.New(
		game.WithRand(rand.New(rand.NewPCG(7, 7))),
		game.WithBank(game.Bank{}),
	)
	g.Start("Sam")
	h := New(g, slog.New(slog.DiscardHandler))
	ts := h.Tools()

	got := callTool(t, ts, "get_scenario", `{}`)
	if got != scenarioErrorSignal {
		t.Errorf("result = %q, want soft error signal", got)
	}
}

func TestRecordRoundReaction(t *testing.T) {
	h, g := newTestHost()
	ts := h.Tools()
	g.Start("Sam")
	callTool(t, ts, "get_scenario", `{}`)

	got := callTool(t, ts, "record_round_reaction", `{"reaction":"brilliant commitment to the bit"}`)
	if got != "Reaction recorded. Now move to the next round." {
		t.Errorf("ack = %q", got)
	}

	hist := g.History()
	if len(hist) != 1 {
		t.Fatalf("history length = %d, want 1", len(hist))
	}
	if hist[0].Reaction != "brilliant commitment to the bit" {
		t.Errorf("reaction = %q", hist[0].Reaction)
	}
}

func TestInstructions(t *testing.T) {
	h, g := newTestHost()

	// Fresh game: name unknown.
	instr := h.Instructions()
	if !strings.Contains(instr, "Player Name: Unknown") {
		t.Error("expected Unknown player name in instructions")
	}
	if !strings.Contains(instr, "Round: 0/3") {
		t.Error("expected round 0/3 in instructions")
	}
	if !strings.Contains(instr, "Improv Battle") {
		t.Error("expected show name in instructions")
	}

	// Pre-seeded game renders the known name.
	g.Start("Lee")
	instr = h.Instructions()
	if !strings.Contains(instr, "Player Name: Lee") {
		t.Error("expected player name Lee in instructions")
	}
}
