package storage

import (
	"errors"
	"fmt"

	"github.com/cloo-solutions/transcriptrag/internal/domain"
)

var (
	// ErrEmbeddingCount is returned when chunks and embeddings differ in length
	ErrEmbeddingCount = errors.New("chunk and embedding counts differ")
	// ErrMixedDimensions is returned when a generation mixes vector sizes
	ErrMixedDimensions = errors.New("embeddings have mixed dimensions")
	// ErrDuplicateChunkID is returned when two chunks share an id
	ErrDuplicateChunkID = errors.New("duplicate chunk id")
)

func validateBuild(chunks []domain.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("%w: %d chunks, %d embeddings", ErrEmbeddingCount, len(chunks), len(embeddings))
	}
	seen := make(map[string]struct{}, len(chunks))
	for i, c := range chunks {
		if _, ok := seen[c.ID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateChunkID, c.ID)
		}
		seen[c.ID] = struct{}{}
		if len(embeddings[i]) != len(embeddings[0]) {
			return fmt.Errorf("%w: chunk %s has %d, expected %d", ErrMixedDimensions, c.ID, len(embeddings[i]), len(embeddings[0]))
		}
	}
	return nil
}
