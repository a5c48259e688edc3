package gemini

import (
	"encoding/json"
	"fmt"
	"sync/atomic"

	"google.golang.org/genai"

	"github.com/vango-go/improv-battle/pkg/types"
)

var toolIDCounter atomic.Uint64

func generateToolID() string {
	return fmt.Sprintf("toolu_%d", toolIDCounter.Add(1))
}

// toContents converts messages to genai contents. Tool results must
// carry the original function name, which Gemini requires but our
// tool_result blocks don't store, so it is looked up from the
// tool_use block with the matching ID in earlier messages.
func toContents(messages []types.Message) ([]*genai.Content, error) {
	contents := make([]*genai.Content, 0, len(messages))

	for _, msg := range messages {
		role := genai.RoleUser
		if msg.Role == "assistant" {
			role = genai.RoleModel
		}

		var parts []*genai.Part
		for _, block := range msg.ContentBlocks() {
			switch b := block.(type) {
			case types.TextBlock:
				parts = append(parts, genai.NewPartFromText(b.Text))

			case types.ToolUseBlock:
				var args map[string]any
				if len(b.Input) > 0 {
					if err := json.Unmarshal(b.Input, &args); err != nil {
						return nil, fmt.Errorf("decode tool input for %s: %w", b.Name, err)
					}
				}
				parts = append(parts, genai.NewPartFromFunctionCall(b.Name, args))

			case types.ToolResultBlock:
				name := toolNameForID(b.ToolUseID, messages)
				response := map[string]any{"result": b.Content}
				if b.IsError {
					response = map[string]any{"error": b.Content}
				}
				parts = append(parts, genai.NewPartFromFunctionResponse(name, response))

			default:
				return nil, fmt.Errorf("unsupported content block %q", block.BlockType())
			}
		}

		if len(parts) == 0 {
			continue
		}
		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}

	return contents, nil
}

func toolNameForID(toolUseID string, messages []types.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		for _, block := range messages[i].ContentBlocks() {
			if tu, ok := block.(types.ToolUseBlock); ok && tu.ID == toolUseID {
				return tu.Name
			}
		}
	}
	// Shouldn't happen with a well-formed transcript.
	return toolUseID
}

func toSchema(s *types.JSONSchema) *genai.Schema {
	if s == nil {
		return nil
	}

	out := &genai.Schema{
		Type:        toSchemaType(s.Type),
		Description: s.Description,
		Required:    s.Required,
		Enum:        s.Enum,
	}

	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			p := prop
			out.Properties[name] = toSchema(&p)
		}
	}
	if s.Items != nil {
		out.Items = toSchema(s.Items)
	}

	return out
}

func toSchemaType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeUnspecified
	}
}

func fromResponse(resp *genai.GenerateContentResponse, model string) (*types.MessageResponse, error) {
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("gemini response has no candidates")
	}

	candidate := resp.Candidates[0]
	blocks, hasToolUse := fromParts(candidate.Content)

	out := &types.MessageResponse{
		ID:         fmt.Sprintf("msg_%s", resp.ResponseID),
		Type:       "message",
		Role:       "assistant",
		Model:      model,
		Content:    blocks,
		StopReason: stopReason(candidate.FinishReason, hasToolUse),
		Usage:      fromUsage(resp.UsageMetadata),
	}
	return out, nil
}

func fromParts(content *genai.Content) ([]types.ContentBlock, bool) {
	var blocks []types.ContentBlock
	hasToolUse := false

	if content == nil {
		return blocks, false
	}

	for _, part := range content.Parts {
		switch {
		case part.FunctionCall != nil:
			hasToolUse = true
			id := part.FunctionCall.ID
			if id == "" {
				id = generateToolID()
			}
			input, _ := json.Marshal(part.FunctionCall.Args)
			blocks = append(blocks, types.ToolUseBlock{
				Type:  "tool_use",
				ID:    id,
				Name:  part.FunctionCall.Name,
				Input: input,
			})
		case part.Text != "":
			blocks = append(blocks, types.Text(part.Text))
		}
	}

	return blocks, hasToolUse
}

func stopReason(reason genai.FinishReason, hasToolUse bool) types.StopReason {
	if hasToolUse {
		return types.StopReasonToolUse
	}
	if reason == genai.FinishReasonMaxTokens {
		return types.StopReasonMaxTokens
	}
	return types.StopReasonEndTurn
}

func fromUsage(u *genai.GenerateContentResponseUsageMetadata) types.Usage {
	if u == nil {
		return types.Usage{}
	}
	return types.Usage{
		InputTokens:  int(u.PromptTokenCount),
		OutputTokens: int(u.CandidatesTokenCount),
		TotalTokens:  int(u.TotalTokenCount),
	}
}
