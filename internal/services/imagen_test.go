package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/adventure-engine/pkg/content"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestImagen(t *testing.T, handler http.HandlerFunc) *ImagenService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	s := NewImagenService("secret", "imagen-test", discardLogger())
	s.baseURL = srv.URL
	return s
}

func TestImagenService_GenerateImage(t *testing.T) {
	s := newTestImagen(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/imagen-test:predict", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("key"))

		var req imagenRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "a lighthouse", req.Instances[0].Prompt)
		assert.Equal(t, 1, req.Parameters.SampleCount)

		_, _ = w.Write([]byte(`{"predictions":[{"bytesBase64Encoded":"iVBORw0KGgo=","mimeType":"image/png"}]}`))
	})

	img, err := s.GenerateImage(context.Background(), "a lighthouse")
	require.NoError(t, err)
	assert.Equal(t, "iVBORw0KGgo=", img)
}

func TestImagenService_EmptyPredictions(t *testing.T) {
	s := newTestImagen(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	img, err := s.GenerateImage(context.Background(), "anything")
	require.NoError(t, err)
	assert.Empty(t, img)
}

func TestImagenService_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode string
	}{
		{"quota", 429, `{"error":{"code":429,"message":"Quota exceeded","status":"RESOURCE_EXHAUSTED"}}`, content.CodeQuotaExceeded},
		{"quota disguised as bad request", 400, `{"error":{"message":"quota limit","status":"RESOURCE_EXHAUSTED"}}`, content.CodeQuotaExceeded},
		{"bad key", 400, `{"error":{"message":"API key not valid","status":"INVALID_ARGUMENT"}}`, content.CodeServerConfiguration},
		{"malformed request", 400, `{"error":{"message":"prompt too long","status":"INVALID_ARGUMENT"}}`, content.CodeBadRequest},
		{"forbidden", 403, `{"error":{"message":"denied","status":"PERMISSION_DENIED"}}`, content.CodeServerConfiguration},
		{"outage", 503, `upstream connect error`, content.CodeUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestImagen(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := s.GenerateImage(context.Background(), "p")
			var pe *content.ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.status, pe.Status)
			assert.Equal(t, tt.wantCode, pe.Code)
		})
	}
}
