// Package storage provides vector index backends for transcript chunks.
package storage

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/cloo-solutions/transcriptrag/internal/domain"
)

type entry struct {
	chunk     domain.StoredChunk
	embedding []float32
}

// MemoryIndex keeps one generation of chunks in process memory.
type MemoryIndex struct {
	mu         sync.RWMutex
	exists     bool
	generation domain.Generation
	entries    []entry
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

func (m *MemoryIndex) Build(ctx context.Context, gen domain.Generation, chunks []domain.Chunk, embeddings [][]float32) (int, error) {
	if err := validateBuild(chunks, embeddings); err != nil {
		return 0, err
	}

	entries := make([]entry, len(chunks))
	for i, c := range chunks {
		vec := make([]float32, len(embeddings[i]))
		copy(vec, embeddings[i])
		entries[i] = entry{chunk: storedFromChunk(c), embedding: vec}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = entries
	m.generation = gen
	m.exists = true
	return len(entries), nil
}

func (m *MemoryIndex) Exists(ctx context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.exists, nil
}

func (m *MemoryIndex) Query(ctx context.Context, embedding []float32, k int) ([]domain.Neighbor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.exists {
		return nil, domain.ErrNotIndexed
	}

	neighbors := make([]domain.Neighbor, 0, len(m.entries))
	for _, e := range m.entries {
		neighbors = append(neighbors, domain.Neighbor{
			Chunk:    e.chunk,
			Distance: cosineDistance(embedding, e.embedding),
		})
	}
	return nearest(neighbors, k), nil
}

func (m *MemoryIndex) GetAll(ctx context.Context) ([]domain.StoredChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.exists {
		return nil, domain.ErrNotIndexed
	}

	chunks := make([]domain.StoredChunk, len(m.entries))
	for i, e := range m.entries {
		chunks[i] = e.chunk
	}
	return chunks, nil
}

func (m *MemoryIndex) Generation(ctx context.Context) (*domain.Generation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.exists {
		return nil, nil
	}
	gen := m.generation
	return &gen, nil
}

func (m *MemoryIndex) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	m.generation = domain.Generation{}
	m.exists = false
	return nil
}

func (m *MemoryIndex) Close() error {
	return nil
}

func storedFromChunk(c domain.Chunk) domain.StoredChunk {
	return domain.StoredChunk{ID: c.ID, Text: c.Text, Metadata: c.Metadata()}
}

// cosineDistance is 1 - cosine similarity. Mismatched or zero vectors are
// treated as orthogonal.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

// nearest sorts by ascending distance and keeps at most k.
func nearest(neighbors []domain.Neighbor, k int) []domain.Neighbor {
	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].Distance < neighbors[j].Distance
	})
	if k >= 0 && len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors
}
