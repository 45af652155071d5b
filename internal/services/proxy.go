package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/adventure-engine/pkg/content"
)

// Wire types shared by the proxy server and ProxyProvider.
type (
	GenerateTextRequest struct {
		Model  string `json:"model"`
		Prompt string `json:"prompt"`
		Shape  string `json:"shape"`
	}
	GenerateTextResponse struct {
		Text string `json:"text"`
	}
	GenerateImageRequest struct {
		Prompt string `json:"prompt"`
	}
	GenerateImageResponse struct {
		Image string `json:"image"`
	}
	ErrorBody struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	ErrorResponse struct {
		Error ErrorBody `json:"error"`
	}
)

const (
	TextPath  = "/api/generate-text"
	ImagePath = "/api/generate-image"
)

// ProxyProvider implements content.Provider by calling the proxy server.
// Timeouts come from the caller's context.
type ProxyProvider struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewProxyProvider(baseURL string, logger *slog.Logger) *ProxyProvider {
	return &ProxyProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     logger,
	}
}

func (p *ProxyProvider) GenerateText(ctx context.Context, req content.TextRequest) (string, error) {
	var resp GenerateTextResponse
	err := p.post(ctx, TextPath, GenerateTextRequest{Model: req.Model, Prompt: req.Prompt, Shape: string(req.Shape)}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (p *ProxyProvider) GenerateImage(ctx context.Context, prompt string) (string, error) {
	var resp GenerateImageResponse
	if err := p.post(ctx, ImagePath, GenerateImageRequest{Prompt: prompt}, &resp); err != nil {
		return "", err
	}
	return resp.Image, nil
}

func (p *ProxyProvider) post(ctx context.Context, path string, in, out any) error {
	reqBody, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach proxy: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		pe := &content.ProviderError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		var er ErrorResponse
		if json.Unmarshal(body, &er) == nil && er.Error.Code != "" {
			pe.Code = er.Error.Code
			pe.Message = er.Error.Message
		}
		p.logger.Debug("proxy returned error", "path", path, "status", resp.StatusCode, "code", pe.Code)
		return pe
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse proxy response: %w", err)
	}
	return nil
}
