package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cloo-solutions/transcriptrag/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// CollectionRepository stores one named chunk collection in Postgres and
// searches it with pgvector's cosine distance operator.
type CollectionRepository struct {
	db   dbtx
	tx   *TxRunner
	name string
}

func NewCollectionRepository(pool *pgxpool.Pool, name string) *CollectionRepository {
	return &CollectionRepository{db: pool, tx: NewTxRunner(pool), name: name}
}

// Build replaces the collection with the given chunks in a single transaction.
func (r *CollectionRepository) Build(ctx context.Context, gen domain.Generation, chunks []domain.Chunk, embeddings [][]float32) (int, error) {
	if len(chunks) != len(embeddings) {
		return 0, fmt.Errorf("chunk and embedding counts differ: %d chunks, %d embeddings", len(chunks), len(embeddings))
	}

	err := r.tx.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM rag_collections WHERE name = $1`, r.name); err != nil {
			return fmt.Errorf("dropping collection: %w", err)
		}

		_, err := tx.Exec(ctx,
			`INSERT INTO rag_collections (name, provider, dimension, chunk_count, built_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			r.name, gen.Provider, gen.Dimension, len(chunks), gen.BuiltAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("creating collection: %w", err)
		}

		for i, c := range chunks {
			metadata, err := json.Marshal(c.Metadata())
			if err != nil {
				return fmt.Errorf("encoding metadata: %w", err)
			}
			_, err = tx.Exec(ctx,
				`INSERT INTO rag_chunks (collection, chunk_id, position, document, metadata, embedding)
				 VALUES ($1, $2, $3, $4, $5::jsonb, $6)`,
				r.name, c.ID, i, c.Text, string(metadata), pgvector.NewVector(embeddings[i]),
			)
			if err != nil {
				return fmt.Errorf("inserting chunk %s: %w", c.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(chunks), nil
}

func (r *CollectionRepository) Exists(ctx context.Context) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM rag_collections WHERE name = $1)`, r.name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking collection: %w", err)
	}
	return exists, nil
}

func (r *CollectionRepository) Query(ctx context.Context, embedding []float32, k int) ([]domain.Neighbor, error) {
	exists, err := r.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrNotIndexed
	}
	if k <= 0 {
		return []domain.Neighbor{}, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT chunk_id, document, metadata, embedding <=> $2 AS distance
		 FROM rag_chunks
		 WHERE collection = $1
		 ORDER BY distance, position
		 LIMIT $3`,
		r.name, pgvector.NewVector(embedding), k,
	)
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}
	defer rows.Close()

	neighbors := make([]domain.Neighbor, 0, k)
	for rows.Next() {
		var n domain.Neighbor
		var metadata []byte
		if err := rows.Scan(&n.Chunk.ID, &n.Chunk.Text, &metadata, &n.Distance); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(metadata, &n.Chunk.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata: %w", err)
		}
		neighbors = append(neighbors, n)
	}
	return neighbors, rows.Err()
}

func (r *CollectionRepository) GetAll(ctx context.Context) ([]domain.StoredChunk, error) {
	exists, err := r.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrNotIndexed
	}

	rows, err := r.db.Query(ctx,
		`SELECT chunk_id, document, metadata
		 FROM rag_chunks
		 WHERE collection = $1
		 ORDER BY position`,
		r.name,
	)
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}
	defer rows.Close()

	chunks := make([]domain.StoredChunk, 0)
	for rows.Next() {
		var c domain.StoredChunk
		var metadata []byte
		if err := rows.Scan(&c.ID, &c.Text, &metadata); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(metadata, &c.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func (r *CollectionRepository) Generation(ctx context.Context) (*domain.Generation, error) {
	var gen domain.Generation
	err := r.db.QueryRow(ctx,
		`SELECT provider, dimension, chunk_count, built_at FROM rag_collections WHERE name = $1`,
		r.name,
	).Scan(&gen.Provider, &gen.Dimension, &gen.ChunkCount, &gen.BuiltAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading collection: %w", err)
	}
	return &gen, nil
}

func (r *CollectionRepository) Clear(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `DELETE FROM rag_collections WHERE name = $1`, r.name)
	if err != nil {
		return fmt.Errorf("dropping collection: %w", err)
	}
	return nil
}

// Close is a no-op; the pool is owned by the caller.
func (r *CollectionRepository) Close() error {
	return nil
}
