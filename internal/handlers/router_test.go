package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/adventure-engine/internal/config"
	"github.com/jwebster45206/adventure-engine/internal/middleware"
	"github.com/jwebster45206/adventure-engine/internal/services"
)

func routerConfig() *config.Config {
	return &config.Config{
		TextProvider:       config.ProviderMock,
		ImageProvider:      config.ProviderMock,
		ModelName:          "mock-model",
		RequestTimeout:     time.Second,
		RateLimitPerMinute: 1,
		RateLimitBurst:     2,
		MaxPromptChars:     1000,
	}
}

func TestRouter(t *testing.T) {
	mock := services.NewMockProvider()
	r := NewRouter(routerConfig(), &services.Providers{Text: mock, Image: mock}, testLogger())
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, middleware.ContentSecurityPolicy, resp.Header.Get("Content-Security-Policy"))
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))

	send := func() *http.Response {
		body, _ := json.Marshal(services.GenerateTextRequest{Prompt: "Begin", Shape: "outline"})
		resp, err := http.Post(srv.URL+services.TextPath, "application/json", bytes.NewReader(body))
		require.NoError(t, err)
		return resp
	}

	first := send()
	var text services.GenerateTextResponse
	require.NoError(t, json.NewDecoder(first.Body).Decode(&text))
	_ = first.Body.Close()
	assert.Equal(t, http.StatusOK, first.StatusCode)
	assert.Contains(t, text.Text, "stages")

	second := send()
	_ = second.Body.Close()
	assert.Equal(t, http.StatusOK, second.StatusCode)

	third := send()
	_ = third.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, third.StatusCode)

	// Health is outside the limiter.
	resp, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, 2, mock.TextCallCount())
}

func TestRouter_ImagesDisabled(t *testing.T) {
	cfg := routerConfig()
	cfg.ImageProvider = config.ProviderNone
	r := NewRouter(cfg, &services.Providers{Text: services.NewMockProvider()}, testLogger())

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	var health HealthResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&health))
	assert.Equal(t, "disabled", health.Components["image_provider"])

	rr = httptest.NewRecorder()
	body, _ := json.Marshal(services.GenerateImageRequest{Prompt: "harbor"})
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, services.ImagePath, bytes.NewReader(body)))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
