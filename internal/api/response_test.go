package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloo-solutions/transcriptrag/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusOK, map[string]string{"key": "value"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var result map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err)
	assert.Equal(t, "value", result["key"])
}

func TestJSON_NilData(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusNoContent, nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestSuccess(t *testing.T) {
	w := httptest.NewRecorder()

	Success(w, http.StatusOK, map[string]int{"indexed_chunks": 3})

	var result SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	data, ok := result.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(3), data["indexed_chunks"])
}

func TestDomainErrorToHTTP(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", domain.ErrNoChunks, http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("build: %w", domain.ErrEmptyQuestion), http.StatusBadRequest},
		{"configuration", domain.ErrEmbeddingNotConfigured, http.StatusInternalServerError},
		{"upstream", domain.NewUpstreamError("generation failed", errors.New("503")), http.StatusBadGateway},
		{"upstream timeout", domain.NewUpstreamError("generation failed", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"not found", domain.NewDomainError(domain.ErrCodeNotFound, "missing"), http.StatusNotFound},
		{"unauthorized", domain.ErrInvalidAPIKey, http.StatusUnauthorized},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DomainErrorToHTTP(tt.err))
		})
	}
}

func TestHandleError_Validation(t *testing.T) {
	w := httptest.NewRecorder()

	HandleError(w, domain.ErrTooShortToTranslate)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Text is too short to translate.", resp.Error)
	assert.Equal(t, domain.ErrCodeValidation, resp.Code)
	assert.False(t, resp.Retryable)
}

func TestHandleError_Upstream(t *testing.T) {
	w := httptest.NewRecorder()

	HandleError(w, domain.NewUpstreamError("answer generation failed", errors.New("quota exceeded")))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "quota exceeded")
	assert.Equal(t, domain.ErrCodeUpstream, resp.Code)
	assert.True(t, resp.Retryable)
}

func TestDecodeJSON(t *testing.T) {
	var body struct {
		Question string `json:"question"`
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"question":"why?"}`))
	require.NoError(t, DecodeJSON(r, &body))
	assert.Equal(t, "why?", body.Question)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{not json`))
	err := DecodeJSON(r, &body)
	assert.Equal(t, http.StatusBadRequest, DomainErrorToHTTP(err))
}
