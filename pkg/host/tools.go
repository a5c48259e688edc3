package host

import (
	"context"
	"fmt"

	"github.com/vango-go/improv-battle/pkg/agent"
)

// GameOverSignal is returned by get_scenario when all rounds have
// been played. The persona instructions tell the agent to wrap up
// the show when it sees this.
const GameOverSignal = "GAME_OVER"

const scenarioErrorSignal = "Error: Could not generate scenario. Please try again."

func (h *Host) setPlayerNameTool() agent.ToolWithHandler {
	return agent.MakeTool("set_player_name",
		"Call this when the player tells you their name.",
		func(ctx context.Context, input struct {
			Name string `json:"name" desc:"The name of the player"`
		}) (string, error) {
			h.logger.Info("setting player name", "name", input.Name)
			h.game.Start(input.Name)
			return fmt.Sprintf("Player name set to %s. Game started! Now explain the rules and start Round 1.", input.Name), nil
		},
	)
}

func (h *Host) getScenarioTool() agent.ToolWithHandler {
	return agent.MakeTool("get_scenario",
		"Get the next improv scenario. Returns GAME_OVER if the game is over.",
		func(ctx context.Context, _ struct{}) (string, error) {
			scenario, ok, err := h.game.NextScenario()
			if err != nil {
				// Scenario failures are never fatal to the session.
				// The agent sees a soft error and can retry.
				h.logger.Error("scenario selection failed", "error", err)
				return scenarioErrorSignal, nil
			}
			if !ok {
				return GameOverSignal, nil
			}
			return fmt.Sprintf("Scenario for Round %d: %s", h.game.Round(), scenario), nil
		},
	)
}

func (h *Host) recordRoundReactionTool() agent.ToolWithHandler {
	return agent.MakeTool("record_round_reaction",
		"Call this AFTER you have spoken your reaction to the player.",
		func(ctx context.Context, input struct {
			Reaction string `json:"reaction" desc:"Your feedback/reaction to the player's performance"`
		}) (string, error) {
			h.game.RecordReaction(input.Reaction)
			h.logger.Info("round recorded", "round", h.game.Round(), "reaction", input.Reaction)
			return "Reaction recorded. Now move to the next round.", nil
		},
	)
}
