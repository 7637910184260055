package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/transcriptrag/internal/domain"
	"github.com/cloo-solutions/transcriptrag/internal/telemetry"
)

const (
	// MaxParagraphChars bounds each piece sent to the model.
	MaxParagraphChars = 4000

	minTranslateChars = 10
	minSummarizeChars = 20
)

type Translation struct {
	SourceLanguage string  `json:"source_language"`
	TargetLanguage string  `json:"target_language"`
	TranslatedText string  `json:"translated_text"`
	FromCache      bool    `json:"from_cache"`
	ElapsedMs      float64 `json:"elapsed_ms"`
}

type Summary struct {
	EnglishSummary string  `json:"english_summary"`
	BurmeseSummary string  `json:"burmese_summary"`
	FromCache      bool    `json:"from_cache"`
	ElapsedMs      float64 `json:"elapsed_ms"`
}

// LanguageService translates and summarizes whole transcripts, one
// paragraph pack per model call.
type LanguageService struct {
	generator Generator
	cache     *AnswerCache
}

func NewLanguageService(generator Generator, cache *AnswerCache) *LanguageService {
	if cache == nil {
		cache = NewAnswerCache()
	}
	return &LanguageService{generator: generator, cache: cache}
}

// Translate renders English text in Burmese.
func (s *LanguageService) Translate(ctx context.Context, text string) (*Translation, error) {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < minTranslateChars {
		return nil, domain.ErrTooShortToTranslate
	}

	ctx, span := telemetry.StartSpan(ctx, "LanguageService.Translate", telemetry.SpanAttributes{Operation: OpTranslate})
	defer span.End()

	translated, fromCache, elapsed, err := Memoize(ctx, s.cache, OpTranslate, text, func(ctx context.Context) (string, error) {
		return s.generatePerParagraph(ctx, translationPrompt, text)
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	return &Translation{
		SourceLanguage: "en",
		TargetLanguage: "my",
		TranslatedText: translated,
		FromCache:      fromCache,
		ElapsedMs:      float64(elapsed.Microseconds()) / 1000.0,
	}, nil
}

// Summarize produces an English and a Burmese summary. Each is cached on
// its own, so the result counts as cached only when both were.
func (s *LanguageService) Summarize(ctx context.Context, text string) (*Summary, error) {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < minSummarizeChars {
		return nil, domain.ErrTooShortToSummarize
	}

	ctx, span := telemetry.StartSpan(ctx, "LanguageService.Summarize", telemetry.SpanAttributes{Operation: "summarize"})
	defer span.End()

	english, enCached, enElapsed, err := Memoize(ctx, s.cache, OpSummaryEnglish, text, func(ctx context.Context) (string, error) {
		return s.generatePerParagraph(ctx, englishSummaryPrompt, text)
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	burmese, mmCached, mmElapsed, err := Memoize(ctx, s.cache, OpSummaryBurmese, text, func(ctx context.Context) (string, error) {
		return s.generatePerParagraph(ctx, burmeseSummaryPrompt, text)
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	return &Summary{
		EnglishSummary: english,
		BurmeseSummary: burmese,
		FromCache:      enCached && mmCached,
		ElapsedMs:      float64((enElapsed + mmElapsed).Microseconds()) / 1000.0,
	}, nil
}

func (s *LanguageService) generatePerParagraph(ctx context.Context, instruction, text string) (string, error) {
	if s.generator == nil {
		return "", domain.ErrGenerationNotConfigured
	}

	parts := SplitParagraphs(text, MaxParagraphChars)
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		out, err := s.generator.Generate(ctx, buildTextPrompt(instruction, part))
		if err != nil {
			telemetry.CaptureError(ctx, err)
			return "", domain.NewUpstreamError("text generation failed", err)
		}
		results = append(results, out)
	}
	return strings.Join(results, "\n\n"), nil
}

// SplitParagraphs packs blank-line separated paragraphs into pieces of at
// most maxChars. A single paragraph longer than maxChars is kept whole.
// Text with no packable content is returned as the only piece.
func SplitParagraphs(text string, maxChars int) []string {
	var pieces []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen == 0 {
			return
		}
		pieces = append(pieces, strings.TrimSpace(current.String()))
		current.Reset()
		currentLen = 0
	}

	for _, para := range strings.Split(text, "\n\n") {
		paraLen := utf8.RuneCountInString(para)
		if currentLen+paraLen+2 > maxChars {
			flush()
		}
		current.WriteString(para)
		current.WriteString("\n\n")
		currentLen += paraLen + 2
	}
	flush()

	if len(pieces) == 0 {
		return []string{text}
	}
	return pieces
}
