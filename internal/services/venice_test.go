package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/adventure-engine/pkg/content"
)

func newTestVenice(t *testing.T, handler http.HandlerFunc) *VeniceService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	v := NewVeniceService("test-api-key", "venice-test", discardLogger())
	v.baseURL = srv.URL
	return v
}

func TestNewVeniceService(t *testing.T) {
	service := NewVeniceService("test-api-key", "test-model", discardLogger())

	assert.Equal(t, "test-api-key", service.apiKey)
	assert.Equal(t, "test-model", service.modelName)
	require.NotNil(t, service.httpClient)
}

func TestResponseFormat(t *testing.T) {
	assert.Nil(t, responseFormat(""))

	format := responseFormat(content.ShapeWorld)
	require.NotNil(t, format)
	assert.Equal(t, "json_schema", format.Type)
	assert.Equal(t, "world", format.JSONSchema.Name)
	assert.Equal(t, "object", format.JSONSchema.Schema["type"])
}

func TestVeniceService_GenerateText(t *testing.T) {
	v := newTestVenice(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))

		var req VeniceChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "custom-model", req.Model)
		assert.Equal(t, "off", req.VeniceParameters.EnableWebSearch)
		require.NotNil(t, req.ResponseFormat)
		assert.Equal(t, "segment", req.ResponseFormat.JSONSchema.Name)

		_, _ = w.Write([]byte(`{"id":"1","choices":[{"index":0,"message":{"role":"assistant","content":"{}"}}]}`))
	})

	got, err := v.GenerateText(context.Background(), content.TextRequest{Model: "custom-model", Prompt: "p", Shape: content.ShapeSegment})
	require.NoError(t, err)
	assert.Equal(t, "{}", got)
}

func TestVeniceService_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode string
	}{
		{"rate limited", 429, `{"error":"Rate limit exceeded"}`, content.CodeQuotaExceeded},
		{"unauthorized", 401, `{"error":{"message":"Authentication failed"}}`, content.CodeServerConfiguration},
		{"error in ok body", 200, `{"error":{"message":"model unavailable"}}`, content.CodeUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newTestVenice(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := v.GenerateText(context.Background(), content.TextRequest{Prompt: "p"})
			var pe *content.ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.wantCode, pe.Code)
		})
	}
}
