// Package gemini implements the LLM provider on the Google Gemini
// API. It translates between the session engine's message format and
// the genai SDK's contents.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/vango-go/improv-battle/pkg/providers"
	"github.com/vango-go/improv-battle/pkg/types"
)

const (
	// DefaultModel is used when a request does not name one.
	DefaultModel = "gemini-2.5-flash"

	// DefaultMaxTokens is the default max tokens if not specified.
	DefaultMaxTokens = 4096
)

// Provider implements the Google Gemini API.
type Provider struct {
	client *genai.Client
}

// New creates a new Gemini provider.
func New(ctx context.Context, apiKey string) (*Provider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Provider{client: client}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "gemini"
}

// CreateMessage sends a non-streaming request to Gemini.
func (p *Provider) CreateMessage(ctx context.Context, req *types.MessageRequest) (*types.MessageResponse, error) {
	model := req.Model
	if model == "" {
		model = DefaultModel
	}

	contents, err := toContents(req.Messages)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, contents, buildConfig(req))
	if err != nil {
		return nil, fmt.Errorf("gemini request: %w", err)
	}

	return fromResponse(resp, model)
}

// StreamMessage sends a streaming request to Gemini.
func (p *Provider) StreamMessage(ctx context.Context, req *types.MessageRequest) (providers.EventStream, error) {
	model := req.Model
	if model == "" {
		model = DefaultModel
	}

	contents, err := toContents(req.Messages)
	if err != nil {
		return nil, err
	}

	seq := p.client.Models.GenerateContentStream(ctx, model, contents, buildConfig(req))
	return newEventStream(seq), nil
}

func buildConfig(req *types.MessageRequest) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}
	cfg.MaxOutputTokens = int32(maxTokens)

	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(req.System)},
		}
	}

	if req.Temperature != nil {
		t := float32(*req.Temperature)
		cfg.Temperature = &t
	}

	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, tool := range req.Tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  toSchema(tool.InputSchema),
			})
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	return cfg
}
