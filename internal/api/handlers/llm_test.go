package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloo-solutions/transcriptrag/internal/domain"
	"github.com/cloo-solutions/transcriptrag/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockLanguageService struct {
	mock.Mock
}

func (m *MockLanguageService) Translate(ctx context.Context, text string) (*service.Translation, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Translation), args.Error(1)
}

func (m *MockLanguageService) Summarize(ctx context.Context, text string) (*service.Summary, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Summary), args.Error(1)
}

func TestLLMHandler_Translate(t *testing.T) {
	mockSvc := new(MockLanguageService)
	handler := NewLLMHandler(mockSvc)
	mockSvc.On("Translate", mock.Anything, "Fish live in water.").Return(&service.Translation{
		SourceLanguage: "en",
		TargetLanguage: "my",
		TranslatedText: "ငါးများ ရေထဲတွင် နေသည်။",
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/llm/translate", bytes.NewBufferString(`{"transcript_text":"Fish live in water."}`))
	w := httptest.NewRecorder()

	handler.Translate(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "en", data["source_language"])
	assert.Equal(t, "my", data["target_language"])
	assert.Equal(t, "ငါးများ ရေထဲတွင် နေသည်။", data["translated_text"])
}

func TestLLMHandler_Translate_TooShort(t *testing.T) {
	mockSvc := new(MockLanguageService)
	handler := NewLLMHandler(mockSvc)
	mockSvc.On("Translate", mock.Anything, "hi").Return(nil, domain.ErrTooShortToTranslate)

	req := httptest.NewRequest(http.MethodPost, "/api/llm/translate", bytes.NewBufferString(`{"transcript_text":"hi"}`))
	w := httptest.NewRecorder()

	handler.Translate(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Text is too short to translate.")
}

func TestLLMHandler_Summarize(t *testing.T) {
	mockSvc := new(MockLanguageService)
	handler := NewLLMHandler(mockSvc)
	mockSvc.On("Summarize", mock.Anything, "A transcript about fish and water.").Return(&service.Summary{
		EnglishSummary: "Fish.",
		BurmeseSummary: "ငါး။",
		FromCache:      true,
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/llm/summarize", bytes.NewBufferString(`{"transcript_text":"A transcript about fish and water."}`))
	w := httptest.NewRecorder()

	handler.Summarize(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "Fish.", data["english_summary"])
	assert.Equal(t, "ငါး။", data["burmese_summary"])
	assert.Equal(t, true, data["from_cache"])
}

func TestLLMHandler_Summarize_Upstream(t *testing.T) {
	mockSvc := new(MockLanguageService)
	handler := NewLLMHandler(mockSvc)
	mockSvc.On("Summarize", mock.Anything, mock.Anything).Return(nil, domain.NewUpstreamError("text generation failed", errors.New("quota")))

	req := httptest.NewRequest(http.MethodPost, "/api/llm/summarize", bytes.NewBufferString(`{"transcript_text":"A transcript about fish and water."}`))
	w := httptest.NewRecorder()

	handler.Summarize(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}
