package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jwebster45206/adventure-engine/internal/services"
	"github.com/jwebster45206/adventure-engine/pkg/content"
)

// maxBodyBytes bounds request bodies before decoding. The prompt limit
// itself is checked after decoding.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("Error encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, code, message string) {
	writeJSON(w, logger, status, services.ErrorResponse{
		Error: services.ErrorBody{Code: code, Message: message},
	})
}

// providerFailure maps a provider error to the status and code returned to
// clients. Upstream messages are passed through only for quota and bad
// request errors; configuration details stay in the server log.
func providerFailure(err error) (int, string, string) {
	var pe *content.ProviderError
	errors.As(err, &pe)

	if pe != nil && pe.Code == content.CodeBadRequest {
		return http.StatusBadRequest, content.CodeBadRequest, pe.Message
	}

	switch content.KindOf(content.Classify(content.OpImage, err)) {
	case content.KindQuota:
		msg := "The AI provider quota has been exhausted. Please try again later."
		if pe != nil && pe.Message != "" {
			msg = pe.Message
		}
		return http.StatusTooManyRequests, content.CodeQuotaExceeded, msg
	case content.KindServerConfig:
		return http.StatusInternalServerError, content.CodeServerConfiguration,
			"The server is not configured correctly for this provider."
	case content.KindTimeout:
		return http.StatusGatewayTimeout, content.CodeTimeout, "The AI provider did not respond in time."
	default:
		return http.StatusBadGateway, content.CodeUpstream, "The AI provider request failed."
	}
}

func withTimeout(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), d)
}
