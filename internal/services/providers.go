package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/adventure-engine/internal/config"
)

// Providers holds the configured backends of the proxy server. Image is nil
// when image generation is turned off.
type Providers struct {
	Text   TextService
	Image  ImageService
	closer func() error
}

// NewProviders builds the text and image backends named in cfg.
func NewProviders(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Providers, error) {
	p := &Providers{}

	switch cfg.TextProvider {
	case config.ProviderGemini:
		gemini, err := NewGeminiService(ctx, cfg.GeminiAPIKey, cfg.ModelName, logger)
		if err != nil {
			return nil, err
		}
		p.Text = gemini
		p.closer = gemini.Close
	case config.ProviderOpenAI:
		p.Text = NewOpenAIService(cfg.OpenAIAPIKey, cfg.ModelName, cfg.ImageModelName, logger)
	case config.ProviderAnthropic:
		p.Text = NewAnthropicService(cfg.AnthropicAPIKey, cfg.ModelName, logger)
	case config.ProviderVenice:
		p.Text = NewVeniceService(cfg.VeniceAPIKey, cfg.ModelName, logger)
	case config.ProviderOllama:
		ollama := NewOllamaService(cfg.OllamaURL, cfg.ModelName, logger)
		if err := ollama.InitModel(ctx); err != nil {
			return nil, err
		}
		p.Text = ollama
	case config.ProviderMock:
		p.Text = NewMockProvider()
	default:
		return nil, fmt.Errorf("unknown text provider %q", cfg.TextProvider)
	}

	switch cfg.ImageProvider {
	case config.ProviderImagen:
		p.Image = NewImagenService(cfg.GeminiAPIKey, cfg.ImageModelName, logger)
	case config.ProviderOpenAI:
		if o, ok := p.Text.(*OpenAIService); ok {
			p.Image = o
		} else {
			p.Image = NewOpenAIService(cfg.OpenAIAPIKey, cfg.ModelName, cfg.ImageModelName, logger)
		}
	case config.ProviderMock:
		if m, ok := p.Text.(*MockProvider); ok {
			p.Image = m
		} else {
			p.Image = NewMockProvider()
		}
	case config.ProviderNone:
	default:
		return nil, errors.Join(fmt.Errorf("unknown image provider %q", cfg.ImageProvider), p.Close())
	}

	logger.Info("providers configured", "text", cfg.TextProvider, "image", cfg.ImageProvider, "model", cfg.ModelName)
	return p, nil
}

// Close releases provider clients.
func (p *Providers) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}
