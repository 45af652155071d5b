package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Service    string            `json:"service"`
	Components map[string]string `json:"components"`
}

type HealthHandler struct {
	textProvider  string
	imageProvider string
	logger        *slog.Logger
}

// NewHealthHandler reports the configured providers. An empty
// imageProvider is reported as disabled.
func NewHealthHandler(textProvider, imageProvider string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		textProvider:  textProvider,
		imageProvider: imageProvider,
		logger:        logger,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	h.logger.Debug("Health check requested",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)

	image := h.imageProvider
	if image == "" {
		image = "disabled"
	}

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Service:   "adventure-engine",
		Components: map[string]string{
			"text_provider":  h.textProvider,
			"image_provider": image,
		},
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Error encoding health response",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path)
	}
}
