package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/jwebster45206/adventure-engine/pkg/content"
)

const DefaultGeminiTemperature = 0.9

// GeminiService implements TextService for Google Gemini.
type GeminiService struct {
	client    *genai.Client
	modelName string
	logger    *slog.Logger
}

// NewGeminiService connects a Gemini client. Close releases it.
func NewGeminiService(ctx context.Context, apiKey, modelName string, logger *slog.Logger, opts ...option.ClientOption) (*GeminiService, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiService{client: client, modelName: modelName, logger: logger}, nil
}

func (g *GeminiService) Close() error {
	return g.client.Close()
}

func (g *GeminiService) GenerateText(ctx context.Context, req content.TextRequest) (string, error) {
	name := req.Model
	if name == "" {
		name = g.modelName
	}
	model := g.client.GenerativeModel(name)
	model.SetTemperature(DefaultGeminiTemperature)
	if req.Shape != "" {
		model.ResponseMIMEType = "application/json"
		model.ResponseSchema = toGenaiSchema(content.Schema(req.Shape))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", geminiError(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		g.logger.Warn("gemini returned no candidates", "model", name)
		return "", &content.ProviderError{Status: 502, Code: content.CodeUpstream, Message: "no content returned from Gemini"}
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return msgNoResponse, nil
	}
	return sb.String(), nil
}

// geminiError keeps the HTTP status of API failures so the proxy can
// report quota and credential problems distinctly.
func geminiError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &content.ProviderError{Status: gerr.Code, Code: codeForStatus(gerr.Code), Message: gerr.Message}
	}
	return err
}

// toGenaiSchema converts the JSON schema maps used by the content package.
func toGenaiSchema(m map[string]any) *genai.Schema {
	if m == nil {
		return nil
	}
	s := &genai.Schema{}
	if desc, ok := m["description"].(string); ok {
		s.Description = desc
	}
	switch m["type"] {
	case "object":
		s.Type = genai.TypeObject
		if props, ok := m["properties"].(map[string]any); ok {
			s.Properties = make(map[string]*genai.Schema, len(props))
			for name, p := range props {
				if pm, ok := p.(map[string]any); ok {
					s.Properties[name] = toGenaiSchema(pm)
				}
			}
		}
		switch req := m["required"].(type) {
		case []string:
			s.Required = req
		case []any:
			for _, r := range req {
				if name, ok := r.(string); ok {
					s.Required = append(s.Required, name)
				}
			}
		}
	case "array":
		s.Type = genai.TypeArray
		if items, ok := m["items"].(map[string]any); ok {
			s.Items = toGenaiSchema(items)
		}
	case "boolean":
		s.Type = genai.TypeBoolean
	case "integer":
		s.Type = genai.TypeInteger
	case "number":
		s.Type = genai.TypeNumber
	default:
		s.Type = genai.TypeString
	}
	return s
}
