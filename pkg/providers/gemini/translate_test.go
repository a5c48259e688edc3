package gemini

import (
	"encoding/json"
	"testing"

	"google.golang.org/genai"

	"github.com/vango-go/improv-battle/pkg/types"
)

func TestToContents_Roles(t *testing.T) {
	messages := []types.Message{
		{Role: "user", Content: "hi there"},
		{Role: "assistant", Content: "hello!"},
	}

	contents, err := toContents(messages)
	if err != nil {
		t.Fatalf("toContents: %v", err)
	}
	if len(contents) != 2 {
		t.Fatalf("len = %d, want 2", len(contents))
	}
	if contents[0].Role != genai.RoleUser {
		t.Errorf("role[0] = %q, want user", contents[0].Role)
	}
	if contents[1].Role != genai.RoleModel {
		t.Errorf("role[1] = %q, want model", contents[1].Role)
	}
	if contents[0].Parts[0].Text != "hi there" {
		t.Errorf("text = %q", contents[0].Parts[0].Text)
	}
}

func TestToContents_ToolRoundTrip(t *testing.T) {
	messages := []types.Message{
		{Role: "user", Content: "start the game"},
		{Role: "assistant", Content: []types.ContentBlock{
			types.ToolUseBlock{
				Type:  "tool_use",
				ID:    "toolu_9",
				Name:  "get_scenario",
				Input: json.RawMessage(`{}`),
			},
		}},
		{Role: "user", Content: []types.ContentBlock{
			types.ToolResult("toolu_9", "Scenario for Round 1: ...", false),
		}},
	}

	contents, err := toContents(messages)
	if err != nil {
		t.Fatalf("toContents: %v", err)
	}
	if len(contents) != 3 {
		t.Fatalf("len = %d, want 3", len(contents))
	}

	fc := contents[1].Parts[0].FunctionCall
	if fc == nil || fc.Name != "get_scenario" {
		t.Fatalf("expected function call part, got %+v", contents[1].Parts[0])
	}

	fr := contents[2].Parts[0].FunctionResponse
	if fr == nil {
		t.Fatal("expected function response part")
	}
	// Gemini needs the function name, recovered from the matching
	// tool_use ID earlier in the transcript.
	if fr.Name != "get_scenario" {
		t.Errorf("function response name = %q, want get_scenario", fr.Name)
	}
	if fr.Response["result"] != "Scenario for Round 1: ..." {
		t.Errorf("response = %v", fr.Response)
	}
}

func TestToContents_ErrorResult(t *testing.T) {
	messages := []types.Message{
		{Role: "user", Content: []types.ContentBlock{
			types.ToolResult("toolu_1", "boom", true),
		}},
	}

	contents, err := toContents(messages)
	if err != nil {
		t.Fatalf("toContents: %v", err)
	}
	fr := contents[0].Parts[0].FunctionResponse
	if fr.Response["error"] != "boom" {
		t.Errorf("response = %v, want error key", fr.Response)
	}
}

func TestToSchema(t *testing.T) {
	in := &types.JSONSchema{
		Type: "object",
		Properties: map[string]types.JSONSchema{
			"name": {Type: "string", Description: "The name of the player"},
			"mood": {Type: "string", Enum: []string{"laugh", "groan"}},
		},
		Required: []string{"name"},
	}

	out := toSchema(in)
	if out.Type != genai.TypeObject {
		t.Errorf("type = %v, want object", out.Type)
	}
	if out.Properties["name"].Type != genai.TypeString {
		t.Errorf("name type = %v", out.Properties["name"].Type)
	}
	if out.Properties["name"].Description != "The name of the player" {
		t.Errorf("name description = %q", out.Properties["name"].Description)
	}
	if len(out.Properties["mood"].Enum) != 2 {
		t.Errorf("enum = %v", out.Properties["mood"].Enum)
	}
	if len(out.Required) != 1 || out.Required[0] != "name" {
		t.Errorf("required = %v", out.Required)
	}

	if toSchema(nil) != nil {
		t.Error("nil schema should map to nil")
	}
}

func TestFromResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		ResponseID: "abc",
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role: genai.RoleModel,
				Parts: []*genai.Part{
					{Text: "Let me grab your scenario."},
					{FunctionCall: &genai.FunctionCall{Name: "get_scenario", Args: map[string]any{}}},
				},
			},
			FinishReason: genai.FinishReasonStop,
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     100,
			CandidatesTokenCount: 20,
			TotalTokenCount:      120,
		},
	}

	out, err := fromResponse(resp, "gemini-2.5-flash")
	if err != nil {
		t.Fatalf("fromResponse: %v", err)
	}
	if out.StopReason != types.StopReasonToolUse {
		t.Errorf("stop reason = %q, want tool_use", out.StopReason)
	}
	if out.TextContent() != "Let me grab your scenario." {
		t.Errorf("text = %q", out.TextContent())
	}
	uses := out.ToolUses()
	if len(uses) != 1 || uses[0].Name != "get_scenario" {
		t.Fatalf("tool uses = %+v", uses)
	}
	if uses[0].ID == "" {
		t.Error("expected generated tool use ID")
	}
	if out.Usage.TotalTokens != 120 {
		t.Errorf("usage = %+v", out.Usage)
	}
}

func TestFromResponse_NoCandidates(t *testing.T) {
	if _, err := fromResponse(&genai.GenerateContentResponse{}, "m"); err == nil {
		t.Error("expected error for empty response")
	}
}
