package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jwebster45206/adventure-engine/internal/logger"
	"github.com/jwebster45206/adventure-engine/internal/middleware"
	"github.com/jwebster45206/adventure-engine/internal/services"
	"github.com/jwebster45206/adventure-engine/pkg/content"
)

// Limits applied to incoming generation requests.
type Limits struct {
	MaxPromptChars int
	Timeout        time.Duration
	// ModelAllowed reports whether a requested model may be used. A nil
	// func allows only the empty (default) model.
	ModelAllowed func(model string) bool
}

// TextHandler serves POST /api/generate-text.
type TextHandler struct {
	text   services.TextService
	limits Limits
	logger *slog.Logger
}

func NewTextHandler(text services.TextService, limits Limits, logger *slog.Logger) *TextHandler {
	return &TextHandler{text: text, limits: limits, logger: logger}
}

func (h *TextHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger.WithRequestID(h.logger, middleware.RequestIDFrom(r.Context()))

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, log, http.StatusMethodNotAllowed, content.CodeBadRequest, "Method not allowed. Only POST is supported.")
		return
	}

	var req services.GenerateTextRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		log.Warn("Invalid request body", "error", err)
		writeError(w, log, http.StatusBadRequest, content.CodeBadRequest, "Invalid request body. Expected JSON with 'prompt' and 'shape' fields.")
		return
	}

	switch {
	case strings.TrimSpace(req.Prompt) == "":
		writeError(w, log, http.StatusBadRequest, content.CodeBadRequest, "Prompt cannot be empty.")
		return
	case h.limits.MaxPromptChars > 0 && len([]rune(req.Prompt)) > h.limits.MaxPromptChars:
		writeError(w, log, http.StatusBadRequest, content.CodeBadRequest, "Prompt is too long.")
		return
	case req.Shape != "" && !content.Shape(req.Shape).Valid():
		writeError(w, log, http.StatusBadRequest, content.CodeBadRequest, "Unknown response shape: "+req.Shape)
		return
	case req.Model != "" && (h.limits.ModelAllowed == nil || !h.limits.ModelAllowed(req.Model)):
		writeError(w, log, http.StatusBadRequest, content.CodeBadRequest, "Model is not allowed: "+req.Model)
		return
	}

	ctx, cancel := withTimeout(r, h.limits.Timeout)
	defer cancel()

	start := time.Now()
	text, err := h.text.GenerateText(ctx, content.TextRequest{
		Model:  req.Model,
		Prompt: req.Prompt,
		Shape:  content.Shape(req.Shape),
	})
	if err != nil {
		status, code, msg := providerFailure(err)
		log.Warn("Text generation failed", "error", err, "shape", req.Shape, "status", status, "code", code)
		writeError(w, log, status, code, msg)
		return
	}

	log.Debug("Text generated", "shape", req.Shape, "chars", len(text), "duration_ms", time.Since(start).Milliseconds())
	writeJSON(w, log, http.StatusOK, services.GenerateTextResponse{Text: text})
}

// ImageHandler serves POST /api/generate-image. A nil image service means
// the server runs without image generation.
type ImageHandler struct {
	image  services.ImageService
	limits Limits
	logger *slog.Logger
}

func NewImageHandler(image services.ImageService, limits Limits, logger *slog.Logger) *ImageHandler {
	return &ImageHandler{image: image, limits: limits, logger: logger}
}

func (h *ImageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger.WithRequestID(h.logger, middleware.RequestIDFrom(r.Context()))

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, log, http.StatusMethodNotAllowed, content.CodeBadRequest, "Method not allowed. Only POST is supported.")
		return
	}
	if h.image == nil {
		writeError(w, log, http.StatusInternalServerError, content.CodeServerConfiguration, "Image generation is not configured on this server.")
		return
	}

	var req services.GenerateImageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		log.Warn("Invalid request body", "error", err)
		writeError(w, log, http.StatusBadRequest, content.CodeBadRequest, "Invalid request body. Expected JSON with a 'prompt' field.")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, log, http.StatusBadRequest, content.CodeBadRequest, "Prompt cannot be empty.")
		return
	}
	if h.limits.MaxPromptChars > 0 && len([]rune(req.Prompt)) > h.limits.MaxPromptChars {
		writeError(w, log, http.StatusBadRequest, content.CodeBadRequest, "Prompt is too long.")
		return
	}

	ctx, cancel := withTimeout(r, h.limits.Timeout)
	defer cancel()

	image, err := h.image.GenerateImage(ctx, req.Prompt)
	if err != nil {
		status, code, msg := providerFailure(err)
		log.Warn("Image generation failed", "error", err, "status", status, "code", code)
		writeError(w, log, status, code, msg)
		return
	}
	if image == "" {
		log.Info("Provider returned no image")
	}
	writeJSON(w, log, http.StatusOK, services.GenerateImageResponse{Image: image})
}
