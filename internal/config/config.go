package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Text and image provider names accepted in TEXT_PROVIDER and IMAGE_PROVIDER.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderVenice    = "venice"
	ProviderOllama    = "ollama"
	ProviderMock      = "mock"
	ProviderImagen    = "imagen"
	ProviderNone      = "none"
)

type Config struct {
	Port        string     `env:"PORT" envDefault:"8080"`
	Environment string     `env:"ENVIRONMENT" envDefault:"development"`
	LogLevelRaw string     `env:"LOG_LEVEL" envDefault:"info"`
	LogLevel    slog.Level `env:"-"`

	TextProvider   string   `env:"TEXT_PROVIDER" envDefault:"gemini"`
	ImageProvider  string   `env:"IMAGE_PROVIDER" envDefault:"imagen"`
	ModelName      string   `env:"MODEL_NAME" envDefault:"gemini-2.5-flash"`
	ImageModelName string   `env:"IMAGE_MODEL_NAME" envDefault:"imagen-3.0-generate-002"`
	AllowedModels  []string `env:"ALLOWED_MODELS" envSeparator:","`

	GeminiAPIKey    string `env:"GEMINI_API_KEY"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	VeniceAPIKey    string `env:"VENICE_API_KEY"`
	OllamaURL       string `env:"OLLAMA_URL" envDefault:"http://localhost:11434"`

	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	RateLimitPerMinute int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"30"`
	RateLimitBurst     int           `env:"RATE_LIMIT_BURST" envDefault:"10"`
	MaxPromptChars     int           `env:"MAX_PROMPT_CHARS" envDefault:"20000"`
	ContentRating      string        `env:"CONTENT_RATING" envDefault:"PG-13"`

	// Client side.
	APIBaseURL    string `env:"API_BASE_URL" envDefault:"http://localhost:8080"`
	RedisURL      string `env:"REDIS_URL"`
	SaveDir       string `env:"SAVE_DIR" envDefault:".adventure"`
	Profile       string `env:"PROFILE" envDefault:"default"`
	ImagesEnabled bool   `env:"IMAGES_ENABLED" envDefault:"true"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelRaw)
	cfg.TextProvider = strings.ToLower(strings.TrimSpace(cfg.TextProvider))
	cfg.ImageProvider = strings.ToLower(strings.TrimSpace(cfg.ImageProvider))
	if len(cfg.AllowedModels) == 0 {
		cfg.AllowedModels = []string{cfg.ModelName}
	}
	return &cfg, nil
}

// ModelAllowed reports whether a client may request model. An empty model
// selects the default.
func (c *Config) ModelAllowed(model string) bool {
	return model == "" || model == c.ModelName || slices.Contains(c.AllowedModels, model)
}

// ValidateServer checks the settings the proxy server needs to start.
func (c *Config) ValidateServer() error {
	var errs []error
	switch c.TextProvider {
	case ProviderGemini:
		errs = append(errs, requireValue("GEMINI_API_KEY", c.GeminiAPIKey))
	case ProviderOpenAI:
		errs = append(errs, requireValue("OPENAI_API_KEY", c.OpenAIAPIKey))
	case ProviderAnthropic:
		errs = append(errs, requireValue("ANTHROPIC_API_KEY", c.AnthropicAPIKey))
	case ProviderVenice:
		errs = append(errs, requireValue("VENICE_API_KEY", c.VeniceAPIKey))
	case ProviderOllama:
		errs = append(errs, requireValue("OLLAMA_URL", c.OllamaURL))
	case ProviderMock:
	default:
		errs = append(errs, fmt.Errorf("unknown TEXT_PROVIDER %q", c.TextProvider))
	}
	switch c.ImageProvider {
	case ProviderImagen:
		errs = append(errs, requireValue("GEMINI_API_KEY", c.GeminiAPIKey))
	case ProviderOpenAI:
		errs = append(errs, requireValue("OPENAI_API_KEY", c.OpenAIAPIKey))
	case ProviderNone, ProviderMock:
	default:
		errs = append(errs, fmt.Errorf("unknown IMAGE_PROVIDER %q", c.ImageProvider))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must be positive"))
	}
	if c.RateLimitPerMinute <= 0 || c.RateLimitBurst <= 0 {
		errs = append(errs, errors.New("rate limits must be positive"))
	}
	return errors.Join(errs...)
}

func requireValue(key, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", key)
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
