package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/cloo-solutions/transcriptrag/internal/domain"
	"github.com/cloo-solutions/transcriptrag/internal/telemetry"
)

// VectorIndex stores one generation of chunk vectors under a single
// collection. Query and GetAll return domain.ErrNotIndexed when no
// collection exists.
type VectorIndex interface {
	Build(ctx context.Context, gen domain.Generation, chunks []domain.Chunk, embeddings [][]float32) (int, error)
	Exists(ctx context.Context) (bool, error)
	Query(ctx context.Context, embedding []float32, k int) ([]domain.Neighbor, error)
	GetAll(ctx context.Context) ([]domain.StoredChunk, error)
	Generation(ctx context.Context) (*domain.Generation, error)
	Clear(ctx context.Context) error
	Close() error
}

// BatchEmbedder embeds texts and reports which provider produced the vectors.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) (*Embeddings, error)
	EmbedFor(ctx context.Context, provider string, texts []string) (*Embeddings, error)
}

// Generator produces text from a single prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Outcome distinguishes the ways a question can be answered.
type Outcome string

const (
	OutcomeAnswered          Outcome = "answered"
	OutcomeNoRelevantContent Outcome = "no_relevant_content"
	OutcomeNotIndexed        Outcome = "not_indexed"
)

const sampleChunkCount = 5

type BuildInput struct {
	TranscriptText string
	Segments       []domain.Segment
}

type BuildResult struct {
	IndexedChunks int    `json:"indexed_chunks"`
	Status        string `json:"status"`
	Provider      string `json:"embedding_provider"`
	Dimension     int    `json:"dimension"`
}

type QueryResult struct {
	Answer    string               `json:"answer"`
	ElapsedMs float64              `json:"elapsed_ms"`
	TopChunks []domain.RankedChunk `json:"top_chunks"`
	FromCache bool                 `json:"from_cache"`
	Outcome   Outcome              `json:"outcome"`
}

type SampleChunk struct {
	ChunkID     string               `json:"chunk_id"`
	TextPreview string               `json:"text_preview"`
	FullText    string               `json:"full_text"`
	Metadata    domain.ChunkMetadata `json:"metadata"`
}

type IndexStats struct {
	Indexed        bool               `json:"indexed"`
	ChunkCount     int                `json:"chunk_count"`
	CollectionName string             `json:"collection_name,omitempty"`
	Message        string             `json:"message,omitempty"`
	Generation     *domain.Generation `json:"generation,omitempty"`
	SampleChunks   []SampleChunk      `json:"sample_chunks,omitempty"`
}

type ClearResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ragAnswer is what the answer cache keeps per question.
type ragAnswer struct {
	Answer    string
	TopChunks []domain.RankedChunk
	Outcome   Outcome
}

// RetrievalConfig holds the orchestrator settings.
type RetrievalConfig struct {
	TopK       int
	Collection string
	Backend    string
	Chunking   ChunkConfig
}

// DefaultRetrievalConfig returns the default orchestrator settings.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		TopK:       5,
		Collection: "transcript_chunks",
		Chunking:   DefaultChunkConfig(),
	}
}

// RetrievalService indexes a transcript and answers questions about it.
// Builds and clears take the write lock only around the index swap, so
// queries keep flowing while a new transcript is being embedded.
type RetrievalService struct {
	mu        sync.RWMutex
	epoch     uint64
	index     VectorIndex
	embedder  BatchEmbedder
	generator Generator
	cache     *AnswerCache
	ranker    *Ranker
	cfg       RetrievalConfig
}

// NewRetrievalService creates a RetrievalService with default settings.
// generator may be nil, in which case relevant questions fail with a
// configuration error.
func NewRetrievalService(index VectorIndex, embedder BatchEmbedder, generator Generator, cache *AnswerCache) *RetrievalService {
	return NewRetrievalServiceWithConfig(index, embedder, generator, cache, NewRanker(), DefaultRetrievalConfig())
}

func NewRetrievalServiceWithConfig(
	index VectorIndex,
	embedder BatchEmbedder,
	generator Generator,
	cache *AnswerCache,
	ranker *Ranker,
	cfg RetrievalConfig,
) *RetrievalService {
	defaults := DefaultRetrievalConfig()
	if cfg.TopK <= 0 {
		cfg.TopK = defaults.TopK
	}
	if cfg.Collection == "" {
		cfg.Collection = defaults.Collection
	}
	if cfg.Chunking.WindowSize <= 0 {
		cfg.Chunking = defaults.Chunking
	}
	if cache == nil {
		cache = NewAnswerCache()
	}
	if ranker == nil {
		ranker = NewRanker()
	}
	return &RetrievalService{
		index:     index,
		embedder:  embedder,
		generator: generator,
		cache:     cache,
		ranker:    ranker,
		cfg:       cfg,
	}
}

func (s *RetrievalService) spanAttrs(operation string) telemetry.SpanAttributes {
	return telemetry.SpanAttributes{
		Collection: s.cfg.Collection,
		Backend:    s.cfg.Backend,
		Operation:  operation,
	}
}

// BuildIndex chunks and embeds a transcript and replaces the current index
// with it. Cached answers from the previous generation are dropped.
func (s *RetrievalService) BuildIndex(ctx context.Context, input BuildInput) (*BuildResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.BuildIndex", s.spanAttrs("build"))
	defer span.End()

	chunks, err := ChunkTranscriptWithConfig(input.TranscriptText, input.Segments, s.cfg.Chunking)
	if err != nil {
		return nil, err
	}
	log.Printf("rag: indexing %d chunks (%d chars, %d segments)", len(chunks), len(input.TranscriptText), len(input.Segments))

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	gen := domain.Generation{
		Provider:   embeddings.Provider,
		Dimension:  embeddings.Dimension(),
		ChunkCount: len(chunks),
		BuiltAt:    time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	indexed, err := s.index.Build(ctx, gen, chunks, embeddings.Vectors)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewUpstreamError("failed to build index", err)
	}
	s.epoch++
	dropped := s.cache.Clear()

	log.Printf("rag: indexed %d chunks with %s (dim %d, %d cached answers dropped)", indexed, gen.Provider, gen.Dimension, dropped)
	return &BuildResult{
		IndexedChunks: indexed,
		Status:        "success",
		Provider:      gen.Provider,
		Dimension:     gen.Dimension,
	}, nil
}

// Query answers a question from the indexed transcript. A question that
// matches nothing gets a localized refusal instead of a generated answer;
// both are cached by exact question text.
func (s *RetrievalService) Query(ctx context.Context, question string) (*QueryResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.ErrEmptyQuestion
	}

	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.Query", s.spanAttrs("query"))
	defer span.End()

	cacheInput := ragCacheKeyPrefix + question
	if cached, ok := s.cache.Get(OpRAGAnswer, cacheInput); ok {
		if entry, ok := cached.(ragAnswer); ok {
			return &QueryResult{
				Answer:    entry.Answer,
				ElapsedMs: 0,
				TopChunks: entry.TopChunks,
				FromCache: true,
				Outcome:   entry.Outcome,
			}, nil
		}
	}

	start := time.Now()

	s.mu.RLock()
	epoch := s.epoch
	ranking, err := s.retrieve(ctx, question)
	s.mu.RUnlock()

	if errors.Is(err, domain.ErrNotIndexed) {
		return &QueryResult{
			Answer:    NotIndexedMessage,
			ElapsedMs: elapsedMs(start),
			TopChunks: []domain.RankedChunk{},
			Outcome:   OutcomeNotIndexed,
		}, nil
	}
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	entry := ragAnswer{TopChunks: ranking.TopChunks}
	if !ranking.Relevant {
		entry.Answer = RefusalMessage(question)
		entry.Outcome = OutcomeNoRelevantContent
	} else {
		answer, err := s.generate(ctx, BuildRAGPrompt(question, ranking.TopChunks))
		if err != nil {
			span.SetError(err)
			return nil, err
		}
		entry.Answer = answer
		entry.Outcome = OutcomeAnswered
	}

	s.storeAnswer(epoch, cacheInput, entry)

	return &QueryResult{
		Answer:    entry.Answer,
		ElapsedMs: elapsedMs(start),
		TopChunks: entry.TopChunks,
		FromCache: false,
		Outcome:   entry.Outcome,
	}, nil
}

// retrieve must be called with the read lock held.
func (s *RetrievalService) retrieve(ctx context.Context, question string) (Ranking, error) {
	exists, err := s.index.Exists(ctx)
	if err != nil {
		return Ranking{}, domain.NewUpstreamError("failed to check index", err)
	}
	if !exists {
		return Ranking{}, domain.ErrNotIndexed
	}

	all, err := s.index.GetAll(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotIndexed) {
			return Ranking{}, err
		}
		return Ranking{}, domain.NewUpstreamError("failed to read index", err)
	}

	k := s.cfg.TopK
	if k > len(all) {
		k = len(all)
	}
	if k == 0 {
		return s.ranker.Rank(question, all, nil), nil
	}

	gen, err := s.index.Generation(ctx)
	if err != nil {
		return Ranking{}, domain.NewUpstreamError("failed to read index generation", err)
	}

	provider := ""
	if gen != nil {
		provider = gen.Provider
	}
	embedded, err := s.embedder.EmbedFor(ctx, provider, []string{question})
	if err != nil {
		return Ranking{}, err
	}
	if gen != nil && gen.Dimension > 0 && embedded.Dimension() != gen.Dimension {
		return Ranking{}, domain.NewUpstreamError("query embedding does not match index",
			fmt.Errorf("%w: %s produced %d, index built by %s has %d",
				domain.ErrDimensionMismatch, embedded.Provider, embedded.Dimension(), gen.Provider, gen.Dimension))
	}

	neighbors, err := s.index.Query(ctx, embedded.Vectors[0], k)
	if err != nil {
		if errors.Is(err, domain.ErrNotIndexed) {
			return Ranking{}, err
		}
		return Ranking{}, domain.NewUpstreamError("vector search failed", err)
	}

	return s.ranker.Rank(question, all, neighbors), nil
}

func (s *RetrievalService) generate(ctx context.Context, prompt string) (string, error) {
	if s.generator == nil {
		return "", domain.ErrGenerationNotConfigured
	}
	answer, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		telemetry.CaptureError(ctx, err)
		return "", domain.NewUpstreamError("answer generation failed", err)
	}
	return answer, nil
}

// storeAnswer caches entry unless the index changed while it was computed.
func (s *RetrievalService) storeAnswer(epoch uint64, cacheInput string, entry ragAnswer) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.epoch != epoch {
		return
	}
	s.cache.Set(OpRAGAnswer, cacheInput, entry)
}

// Stats summarizes the current index with up to five sample chunks.
func (s *RetrievalService) Stats(ctx context.Context) (*IndexStats, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.Stats", s.spanAttrs("stats"))
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	exists, err := s.index.Exists(ctx)
	if err != nil {
		return nil, domain.NewUpstreamError("failed to check index", err)
	}
	if !exists {
		return &IndexStats{Indexed: false, ChunkCount: 0, Message: domain.ErrNotIndexed.Message}, nil
	}

	all, err := s.index.GetAll(ctx)
	if errors.Is(err, domain.ErrNotIndexed) {
		return &IndexStats{Indexed: false, ChunkCount: 0, Message: domain.ErrNotIndexed.Message}, nil
	}
	if err != nil {
		return nil, domain.NewUpstreamError("failed to read index", err)
	}
	if len(all) == 0 {
		return &IndexStats{Indexed: false, ChunkCount: 0, Message: "Collection exists but is empty"}, nil
	}

	gen, err := s.index.Generation(ctx)
	if err != nil {
		return nil, domain.NewUpstreamError("failed to read index generation", err)
	}

	n := sampleChunkCount
	if n > len(all) {
		n = len(all)
	}
	samples := make([]SampleChunk, 0, n)
	for _, c := range all[:n] {
		samples = append(samples, SampleChunk{
			ChunkID:     c.ID,
			TextPreview: domain.TextPreview(c.Text, domain.PreviewLength),
			FullText:    c.Text,
			Metadata:    c.Metadata,
		})
	}

	return &IndexStats{
		Indexed:        true,
		ChunkCount:     len(all),
		CollectionName: s.cfg.Collection,
		Generation:     gen,
		SampleChunks:   samples,
	}, nil
}

// ListChunks returns every indexed chunk, or an empty list when nothing is
// indexed.
func (s *RetrievalService) ListChunks(ctx context.Context) ([]domain.StoredChunk, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.ListChunks", s.spanAttrs("list"))
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	all, err := s.index.GetAll(ctx)
	if errors.Is(err, domain.ErrNotIndexed) {
		return []domain.StoredChunk{}, nil
	}
	if err != nil {
		return nil, domain.NewUpstreamError("failed to read index", err)
	}
	return all, nil
}

// ClearIndex deletes the collection and every cached answer.
func (s *RetrievalService) ClearIndex(ctx context.Context) (*ClearResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.ClearIndex", s.spanAttrs("clear"))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.index.Exists(ctx)
	if err != nil {
		return nil, domain.NewUpstreamError("failed to check index", err)
	}
	if !exists {
		return &ClearResult{
			Success: false,
			Error:   fmt.Sprintf("Collection '%s' does not exist", s.cfg.Collection),
		}, nil
	}

	if err := s.index.Clear(ctx); err != nil {
		span.SetError(err)
		return nil, domain.NewUpstreamError("failed to clear index", err)
	}
	s.epoch++
	s.cache.Clear()

	return &ClearResult{
		Success: true,
		Message: fmt.Sprintf("Collection '%s' deleted successfully", s.cfg.Collection),
	}, nil
}

// ClearCache drops every memoized answer without touching the index.
func (s *RetrievalService) ClearCache() int {
	return s.cache.Clear()
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
