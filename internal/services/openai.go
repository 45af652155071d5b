package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/jwebster45206/adventure-engine/pkg/content"
)

const DefaultOpenAITemperature = 0.9

// OpenAIService implements TextService and ImageService with the OpenAI API.
type OpenAIService struct {
	client         *openai.Client
	modelName      string
	imageModelName string
	logger         *slog.Logger
}

func NewOpenAIService(apiKey, modelName, imageModelName string, logger *slog.Logger) *OpenAIService {
	return newOpenAIService(openai.DefaultConfig(apiKey), modelName, imageModelName, logger)
}

func newOpenAIService(cfg openai.ClientConfig, modelName, imageModelName string, logger *slog.Logger) *OpenAIService {
	if imageModelName == "" || strings.HasPrefix(imageModelName, "imagen") {
		imageModelName = openai.CreateImageModelDallE3
	}
	return &OpenAIService{
		client:         openai.NewClientWithConfig(cfg),
		modelName:      modelName,
		imageModelName: imageModelName,
		logger:         logger,
	}
}

// jsonSchema adapts a schema map to the marshaler go-openai expects.
type jsonSchema map[string]any

func (s jsonSchema) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any(s))
}

func (o *OpenAIService) GenerateText(ctx context.Context, req content.TextRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = o.modelName
	}
	chatReq := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: DefaultOpenAITemperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	}
	if req.Shape != "" {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   string(req.Shape),
				Schema: jsonSchema(content.Schema(req.Shape)),
			},
		}
	}

	resp, err := o.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", openAIError(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return msgNoResponse, nil
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAIService) GenerateImage(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          o.imageModelName,
		N:              1,
		Size:           openai.CreateImageSize1792x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return "", openAIError(err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		o.logger.Info("openai returned no image", "model", o.imageModelName)
		return "", nil
	}
	return resp.Data[0].B64JSON, nil
}

func openAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		pe := &content.ProviderError{Status: apiErr.HTTPStatusCode, Code: codeForStatus(apiErr.HTTPStatusCode), Message: apiErr.Message}
		if apiErr.Type == "insufficient_quota" {
			pe.Code = content.CodeQuotaExceeded
		}
		return pe
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &content.ProviderError{Status: reqErr.HTTPStatusCode, Code: codeForStatus(reqErr.HTTPStatusCode), Message: reqErr.Error()}
	}
	return err
}
