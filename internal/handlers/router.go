package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/jwebster45206/adventure-engine/internal/config"
	"github.com/jwebster45206/adventure-engine/internal/middleware"
	"github.com/jwebster45206/adventure-engine/internal/services"
)

// NewRouter wires the proxy endpoints. Generation routes are rate limited
// per client; /health is not.
func NewRouter(cfg *config.Config, providers *services.Providers, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders)

	limits := Limits{
		MaxPromptChars: cfg.MaxPromptChars,
		Timeout:        cfg.RequestTimeout,
		ModelAllowed:   cfg.ModelAllowed,
	}

	imageProvider := cfg.ImageProvider
	if providers.Image == nil {
		imageProvider = ""
	}
	r.Method(http.MethodGet, "/health", NewHealthHandler(cfg.TextProvider, imageProvider, logger))

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst, logger)
	r.Group(func(r chi.Router) {
		r.Use(limiter.Middleware)
		r.Handle(services.TextPath, NewTextHandler(providers.Text, limits, logger))
		r.Handle(services.ImagePath, NewImageHandler(providers.Image, limits, logger))
	})

	return r
}
