package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/cloo-solutions/transcriptrag/internal/domain"
	"github.com/cloo-solutions/transcriptrag/internal/telemetry"
)

// MaxEmbeddingInputChars bounds every text sent to an embedding provider.
const MaxEmbeddingInputChars = 8000

// Embedder produces one vector per input text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
}

// Embeddings is a batch of vectors together with the provider that made them.
type Embeddings struct {
	Vectors  [][]float32
	Provider string
}

// Dimension returns the vector length of the batch, or 0 when empty.
func (e *Embeddings) Dimension() int {
	if e == nil || len(e.Vectors) == 0 {
		return 0
	}
	return len(e.Vectors[0])
}

// FallbackEmbedder embeds with a remote primary and hands the entire batch
// to a local secondary when the primary fails. Either side may be nil.
type FallbackEmbedder struct {
	primary   Embedder
	secondary Embedder

	mu           sync.Mutex
	lastProvider string
}

// NewFallbackEmbedder creates a FallbackEmbedder. Pass nil for a provider
// that is not configured.
func NewFallbackEmbedder(primary, secondary Embedder) *FallbackEmbedder {
	return &FallbackEmbedder{
		primary:   primary,
		secondary: secondary,
	}
}

// Name reports the preferred provider.
func (e *FallbackEmbedder) Name() string {
	if e.primary != nil {
		return e.primary.Name()
	}
	if e.secondary != nil {
		return e.secondary.Name()
	}
	return "none"
}

// LastProvider returns the provider that served the most recent batch.
func (e *FallbackEmbedder) LastProvider() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastProvider
}

// Embed implements Embedder.
func (e *FallbackEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out, err := e.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	return out.Vectors, nil
}

// EmbedBatch embeds texts, truncating each to MaxEmbeddingInputChars.
func (e *FallbackEmbedder) EmbedBatch(ctx context.Context, texts []string) (*Embeddings, error) {
	if len(texts) == 0 {
		return &Embeddings{Vectors: [][]float32{}, Provider: e.Name()}, nil
	}
	if e.primary == nil && e.secondary == nil {
		return nil, domain.ErrEmbeddingNotConfigured
	}

	inputs := truncateInputs(texts, MaxEmbeddingInputChars)

	var primaryErr error
	if e.primary != nil {
		out, err := e.embedWith(ctx, e.primary, inputs)
		if err == nil {
			return out, nil
		}
		primaryErr = fmt.Errorf("%s: %w", e.primary.Name(), err)
		if e.secondary == nil {
			return nil, domain.NewUpstreamError("embedding failed", primaryErr)
		}
		log.Printf("embedding: %s failed, falling back to %s: %v", e.primary.Name(), e.secondary.Name(), err)
		telemetry.AddBreadcrumb(ctx, "embedding", fmt.Sprintf("fallback from %s to %s", e.primary.Name(), e.secondary.Name()))
	}

	out, err := e.embedWith(ctx, e.secondary, inputs)
	if err == nil {
		return out, nil
	}
	secondaryErr := fmt.Errorf("%s: %w", e.secondary.Name(), err)
	if primaryErr == nil {
		return nil, domain.NewConfigurationError(domain.ErrEmbeddingNotConfigured.Message, secondaryErr)
	}
	return nil, domain.NewUpstreamError("all embedding providers failed", errors.Join(primaryErr, secondaryErr))
}

// EmbedFor embeds texts for comparison against vectors made by provider.
// When provider is one of the configured embedders only that embedder is
// used and its failure is returned as is; vectors from the other side live
// in a different space. An unknown provider goes through EmbedBatch.
func (e *FallbackEmbedder) EmbedFor(ctx context.Context, provider string, texts []string) (*Embeddings, error) {
	embedder := e.providerNamed(provider)
	if embedder == nil {
		return e.EmbedBatch(ctx, texts)
	}
	if len(texts) == 0 {
		return &Embeddings{Vectors: [][]float32{}, Provider: provider}, nil
	}

	out, err := e.embedWith(ctx, embedder, truncateInputs(texts, MaxEmbeddingInputChars))
	if err != nil {
		telemetry.CaptureMessage(ctx, fmt.Sprintf("query embedding with %s failed, fallback skipped", provider))
		return nil, domain.NewUpstreamError("embedding failed", fmt.Errorf("%s: %w", provider, err))
	}
	return out, nil
}

func (e *FallbackEmbedder) providerNamed(name string) Embedder {
	if name == "" {
		return nil
	}
	if e.primary != nil && e.primary.Name() == name {
		return e.primary
	}
	if e.secondary != nil && e.secondary.Name() == name {
		return e.secondary
	}
	return nil
}

func (e *FallbackEmbedder) embedWith(ctx context.Context, embedder Embedder, inputs []string) (*Embeddings, error) {
	vectors, err := embedder.Embed(ctx, inputs)
	if err != nil {
		return nil, err
	}
	if err := checkBatch(vectors, len(inputs)); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.lastProvider = embedder.Name()
	e.mu.Unlock()

	return &Embeddings{Vectors: vectors, Provider: embedder.Name()}, nil
}

func checkBatch(vectors [][]float32, expected int) error {
	if len(vectors) != expected {
		return fmt.Errorf("expected %d embeddings, got %d", expected, len(vectors))
	}
	if expected == 0 {
		return nil
	}
	dim := len(vectors[0])
	if dim == 0 {
		return errors.New("provider returned empty embedding")
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("embedding %d has dimension %d, expected %d", i, len(v), dim)
		}
	}
	return nil
}

func truncateInputs(texts []string, limit int) []string {
	out := make([]string, len(texts))
	for i, text := range texts {
		out[i] = truncateRunes(text, limit)
	}
	return out
}

func truncateRunes(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
