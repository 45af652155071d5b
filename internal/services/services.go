package services

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jwebster45206/adventure-engine/pkg/content"
)

// TextService generates text for a prompt. When req.Shape is set the
// service asks the model for a JSON document of that shape if the backend
// supports structured output.
type TextService interface {
	GenerateText(ctx context.Context, req content.TextRequest) (string, error)
}

// ImageService generates an illustration and returns it base64 encoded. An
// empty string with a nil error means the backend produced no image.
type ImageService interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

const msgNoResponse = "(no response)"

// codeForStatus maps an upstream HTTP status to the error code the proxy
// reports to clients.
func codeForStatus(status int) string {
	switch status {
	case http.StatusTooManyRequests:
		return content.CodeQuotaExceeded
	case http.StatusUnauthorized, http.StatusForbidden:
		return content.CodeServerConfiguration
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return content.CodeTimeout
	case http.StatusBadRequest:
		return content.CodeBadRequest
	default:
		return content.CodeUpstream
	}
}

// upstreamError converts a non-2xx response from a provider API into a
// ProviderError. It understands the common {"error": {...}} body layouts.
func upstreamError(status int, body []byte) *content.ProviderError {
	var parsed struct {
		Error *struct {
			Message string `json:"message"`
			Status  string `json:"status"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil {
		msg = parsed.Error.Message
		if tag := firstNonEmpty(parsed.Error.Status, parsed.Error.Type); tag != "" {
			msg = tag + ": " + msg
		}
	}
	code := codeForStatus(status)
	// quota and credential failures sometimes come back as 400 or 403
	upper := strings.ToUpper(msg)
	switch {
	case strings.Contains(upper, "RESOURCE_EXHAUSTED"), strings.Contains(upper, "QUOTA"):
		code = content.CodeQuotaExceeded
	case strings.Contains(upper, "API KEY"):
		code = content.CodeServerConfiguration
	}
	return &content.ProviderError{Status: status, Code: code, Message: msg}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
