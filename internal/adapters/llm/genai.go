package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"github.com/PabloGalante/chatflow/internal/domain"
)

type Backend string

const (
	BackendGemini Backend = "gemini" // Gemini Developer API, API key auth
	BackendVertex Backend = "vertex" // Vertex AI, ADC auth
)

type GenAIOptions struct {
	Backend     Backend
	APIKey      string
	Project     string
	Location    string
	Model       string
	Temperature float32
}

// GenAIClient implements domain.Generator on top of Gemini, either through
// the Developer API or through Vertex AI.
type GenAIClient struct {
	client      *genai.Client
	modelName   string
	temperature float32
	provider    string
}

func NewGenAIClient(ctx context.Context, opts GenAIOptions) (*GenAIClient, error) {
	cc := &genai.ClientConfig{}
	switch opts.Backend {
	case BackendVertex:
		if opts.Project == "" || opts.Location == "" {
			return nil, fmt.Errorf("project and location are required for vertex backend")
		}
		cc.Project = opts.Project
		cc.Location = opts.Location
		cc.Backend = genai.BackendVertexAI
	default:
		if opts.APIKey == "" {
			return nil, fmt.Errorf("api key is required for gemini backend")
		}
		cc.APIKey = opts.APIKey
		cc.Backend = genai.BackendGeminiAPI
	}

	modelName := opts.Model
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &GenAIClient{
		client:      client,
		modelName:   modelName,
		temperature: opts.Temperature,
		provider:    string(opts.Backend),
	}, nil
}

// Generate implements domain.Generator.
func (c *GenAIClient) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResponse, error) {
	model := c.modelName
	if req.Model != "" {
		model = req.Model
	}

	temp := c.temperature
	cfg := &genai.GenerateContentConfig{
		Temperature: &temp,
	}
	if req.Schema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = toGenAISchema(req.Schema)
	}

	contents := []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}

	res, err := c.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return nil, &ProviderError{Provider: c.provider, Message: err.Error(), Err: err}
	}

	return buildResponse(res.Text(), req.Schema != nil), nil
}

// buildResponse keeps the raw text and, for structured requests, the JSON
// payload when it parses.
func buildResponse(text string, structured bool) *domain.GenerateResponse {
	out := &domain.GenerateResponse{Text: text}
	if !structured {
		return out
	}
	if cleaned := cleanJSON(text); cleaned != "" && json.Valid([]byte(cleaned)) {
		out.Output = json.RawMessage(cleaned)
	}
	return out
}

func toGenAISchema(s *domain.Schema) *genai.Schema {
	if s == nil {
		return nil
	}

	out := &genai.Schema{
		Type:        toGenAIType(s.Type),
		Description: s.Description,
		Enum:        s.Enum,
		Required:    s.Required,
		Items:       toGenAISchema(s.Items),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGenAISchema(prop)
		}
	}
	return out
}

func toGenAIType(t domain.SchemaType) genai.Type {
	switch t {
	case domain.TypeObject:
		return genai.TypeObject
	case domain.TypeArray:
		return genai.TypeArray
	case domain.TypeBoolean:
		return genai.TypeBoolean
	case domain.TypeInteger:
		return genai.TypeInteger
	case domain.TypeNumber:
		return genai.TypeNumber
	default:
		return genai.TypeString
	}
}
