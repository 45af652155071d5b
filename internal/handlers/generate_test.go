package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/adventure-engine/internal/services"
	"github.com/jwebster45206/adventure-engine/pkg/content"
)

type textFunc func(ctx context.Context, req content.TextRequest) (string, error)

func (f textFunc) GenerateText(ctx context.Context, req content.TextRequest) (string, error) {
	return f(ctx, req)
}

type imageFunc func(ctx context.Context, prompt string) (string, error)

func (f imageFunc) GenerateImage(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func testLimits() Limits {
	return Limits{
		MaxPromptChars: 50,
		Timeout:        time.Second,
		ModelAllowed:   func(m string) bool { return m == "gemini-2.5-flash" },
	}
}

func post(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) services.ErrorBody {
	t.Helper()
	var resp services.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	return resp.Error
}

func TestTextHandler(t *testing.T) {
	tests := []struct {
		name         string
		body         any
		textErr      error
		expectedCode int
		errorCode    string
	}{
		{
			name:         "success",
			body:         services.GenerateTextRequest{Prompt: "Begin", Shape: "outline"},
			expectedCode: http.StatusOK,
		},
		{
			name:         "allowed model",
			body:         services.GenerateTextRequest{Model: "gemini-2.5-flash", Prompt: "Begin", Shape: "segment"},
			expectedCode: http.StatusOK,
		},
		{
			name:         "invalid json",
			body:         "not json",
			expectedCode: http.StatusBadRequest,
			errorCode:    content.CodeBadRequest,
		},
		{
			name:         "empty prompt",
			body:         services.GenerateTextRequest{Prompt: "   "},
			expectedCode: http.StatusBadRequest,
			errorCode:    content.CodeBadRequest,
		},
		{
			name:         "prompt too long",
			body:         services.GenerateTextRequest{Prompt: strings.Repeat("a", 51)},
			expectedCode: http.StatusBadRequest,
			errorCode:    content.CodeBadRequest,
		},
		{
			name:         "unknown shape",
			body:         services.GenerateTextRequest{Prompt: "Begin", Shape: "poem"},
			expectedCode: http.StatusBadRequest,
			errorCode:    content.CodeBadRequest,
		},
		{
			name:         "model not allowed",
			body:         services.GenerateTextRequest{Model: "gpt-9", Prompt: "Begin"},
			expectedCode: http.StatusBadRequest,
			errorCode:    content.CodeBadRequest,
		},
		{
			name:         "quota",
			body:         services.GenerateTextRequest{Prompt: "Begin"},
			textErr:      &content.ProviderError{Status: 429, Code: content.CodeQuotaExceeded, Message: "RESOURCE_EXHAUSTED: quota"},
			expectedCode: http.StatusTooManyRequests,
			errorCode:    content.CodeQuotaExceeded,
		},
		{
			name:         "bad credentials",
			body:         services.GenerateTextRequest{Prompt: "Begin"},
			textErr:      &content.ProviderError{Status: 401, Code: content.CodeServerConfiguration, Message: "invalid key sk-123"},
			expectedCode: http.StatusInternalServerError,
			errorCode:    content.CodeServerConfiguration,
		},
		{
			name:         "timeout",
			body:         services.GenerateTextRequest{Prompt: "Begin"},
			textErr:      context.DeadlineExceeded,
			expectedCode: http.StatusGatewayTimeout,
			errorCode:    content.CodeTimeout,
		},
		{
			name:         "upstream bad request",
			body:         services.GenerateTextRequest{Prompt: "Begin"},
			textErr:      &content.ProviderError{Status: 400, Code: content.CodeBadRequest, Message: "safety block"},
			expectedCode: http.StatusBadRequest,
			errorCode:    content.CodeBadRequest,
		},
		{
			name:         "transport",
			body:         services.GenerateTextRequest{Prompt: "Begin"},
			textErr:      errors.New("connection reset"),
			expectedCode: http.StatusBadGateway,
			errorCode:    content.CodeUpstream,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got content.TextRequest
			h := NewTextHandler(textFunc(func(ctx context.Context, req content.TextRequest) (string, error) {
				got = req
				_, hasDeadline := ctx.Deadline()
				assert.True(t, hasDeadline)
				if tt.textErr != nil {
					return "", tt.textErr
				}
				return `{"ok":true}`, nil
			}), testLimits(), testLogger())

			rr := post(t, h, services.TextPath, tt.body)
			assert.Equal(t, tt.expectedCode, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			if tt.errorCode == "" {
				var resp services.GenerateTextResponse
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
				assert.Equal(t, `{"ok":true}`, resp.Text)
				want := tt.body.(services.GenerateTextRequest)
				assert.Equal(t, content.Shape(want.Shape), got.Shape)
				assert.Equal(t, want.Model, got.Model)
				return
			}
			body := decodeError(t, rr)
			assert.Equal(t, tt.errorCode, body.Code)
			assert.NotEmpty(t, body.Message)
			assert.NotContains(t, body.Message, "sk-123")
		})
	}
}

func TestTextHandler_MethodNotAllowed(t *testing.T) {
	h := NewTextHandler(textFunc(func(ctx context.Context, req content.TextRequest) (string, error) {
		t.Fatal("provider should not be called")
		return "", nil
	}), testLimits(), testLogger())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, services.TextPath, nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, http.MethodPost, rr.Header().Get("Allow"))
}

func TestImageHandler(t *testing.T) {
	tests := []struct {
		name         string
		image        services.ImageService
		body         any
		expectedCode int
		expectedImg  string
		errorCode    string
	}{
		{
			name: "success",
			image: imageFunc(func(ctx context.Context, prompt string) (string, error) {
				return "aGVsbG8=", nil
			}),
			body:         services.GenerateImageRequest{Prompt: "a misty harbor"},
			expectedCode: http.StatusOK,
			expectedImg:  "aGVsbG8=",
		},
		{
			name: "empty image is not an error",
			image: imageFunc(func(ctx context.Context, prompt string) (string, error) {
				return "", nil
			}),
			body:         services.GenerateImageRequest{Prompt: "a misty harbor"},
			expectedCode: http.StatusOK,
		},
		{
			name:         "not configured",
			body:         services.GenerateImageRequest{Prompt: "a misty harbor"},
			expectedCode: http.StatusInternalServerError,
			errorCode:    content.CodeServerConfiguration,
		},
		{
			name: "quota",
			image: imageFunc(func(ctx context.Context, prompt string) (string, error) {
				return "", &content.ProviderError{Status: 429, Message: "quota exceeded"}
			}),
			body:         services.GenerateImageRequest{Prompt: "a misty harbor"},
			expectedCode: http.StatusTooManyRequests,
			errorCode:    content.CodeQuotaExceeded,
		},
		{
			name: "empty prompt",
			image: imageFunc(func(ctx context.Context, prompt string) (string, error) {
				return "x", nil
			}),
			body:         services.GenerateImageRequest{},
			expectedCode: http.StatusBadRequest,
			errorCode:    content.CodeBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewImageHandler(tt.image, testLimits(), testLogger())
			rr := post(t, h, services.ImagePath, tt.body)
			assert.Equal(t, tt.expectedCode, rr.Code)

			if tt.errorCode != "" {
				assert.Equal(t, tt.errorCode, decodeError(t, rr).Code)
				return
			}
			var resp services.GenerateImageResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.Equal(t, tt.expectedImg, resp.Image)
		})
	}
}
