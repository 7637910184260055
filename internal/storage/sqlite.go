package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cloo-solutions/transcriptrag/internal/domain"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const sqliteFileName = "index.db"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS collections (
	name TEXT PRIMARY KEY,
	provider TEXT NOT NULL,
	dimension INTEGER NOT NULL,
	chunk_count INTEGER NOT NULL,
	built_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS chunks (
	collection TEXT NOT NULL,
	chunk_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	document TEXT NOT NULL,
	metadata TEXT NOT NULL,
	embedding BLOB NOT NULL,
	PRIMARY KEY (collection, chunk_id)
);
CREATE INDEX IF NOT EXISTS idx_chunks_position ON chunks(collection, position);
`

// SQLiteIndex persists the index in a single SQLite file under a data
// directory. Similarity is computed in Go over the stored vectors.
type SQLiteIndex struct {
	db         *sql.DB
	collection string
	path       string
}

// NewSQLiteIndex opens (creating if needed) <dataDir>/index.db.
func NewSQLiteIndex(dataDir, collection string) (*SQLiteIndex, error) {
	if dataDir == "" {
		dataDir = "./data/index"
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	path := filepath.Join(dataDir, sqliteFileName)
	db, err := sql.Open("sqlite3", "file:"+path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &SQLiteIndex{db: db, collection: collection, path: path}, nil
}

// Path returns the database file location.
func (s *SQLiteIndex) Path() string {
	return s.path
}

func (s *SQLiteIndex) Build(ctx context.Context, gen domain.Generation, chunks []domain.Chunk, embeddings [][]float32) (int, error) {
	if err := validateBuild(chunks, embeddings); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE collection = ?`, s.collection); err != nil {
		return 0, fmt.Errorf("dropping chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, s.collection); err != nil {
		return 0, fmt.Errorf("dropping collection: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO collections (name, provider, dimension, chunk_count, built_at)
		VALUES (?, ?, ?, ?, ?)
	`, s.collection, gen.Provider, gen.Dimension, len(chunks), gen.BuiltAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("creating collection: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (collection, chunk_id, position, document, metadata, embedding)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i, c := range chunks {
		metadataJSON, err := json.Marshal(c.Metadata())
		if err != nil {
			return 0, fmt.Errorf("encoding metadata: %w", err)
		}
		embeddingJSON, err := json.Marshal(embeddings[i])
		if err != nil {
			return 0, fmt.Errorf("encoding embedding: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, s.collection, c.ID, i, c.Text, string(metadataJSON), embeddingJSON); err != nil {
			return 0, fmt.Errorf("inserting chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing index: %w", err)
	}
	return len(chunks), nil
}

func (s *SQLiteIndex) Exists(ctx context.Context) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM collections WHERE name = ?`, s.collection).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking collection: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteIndex) Query(ctx context.Context, embedding []float32, k int) ([]domain.Neighbor, error) {
	exists, err := s.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrNotIndexed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, document, metadata, embedding
		FROM chunks
		WHERE collection = ?
		ORDER BY position
	`, s.collection)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var neighbors []domain.Neighbor
	for rows.Next() {
		var chunk domain.StoredChunk
		var metadataJSON string
		var embeddingJSON []byte
		if err := rows.Scan(&chunk.ID, &chunk.Text, &metadataJSON, &embeddingJSON); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if err := json.Unmarshal([]byte(metadataJSON), &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata: %w", err)
		}
		var stored []float32
		if err := json.Unmarshal(embeddingJSON, &stored); err != nil {
			return nil, fmt.Errorf("decoding embedding: %w", err)
		}
		neighbors = append(neighbors, domain.Neighbor{
			Chunk:    chunk,
			Distance: cosineDistance(embedding, stored),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	return nearest(neighbors, k), nil
}

func (s *SQLiteIndex) GetAll(ctx context.Context) ([]domain.StoredChunk, error) {
	exists, err := s.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrNotIndexed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, document, metadata
		FROM chunks
		WHERE collection = ?
		ORDER BY position
	`, s.collection)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	chunks := make([]domain.StoredChunk, 0)
	for rows.Next() {
		var chunk domain.StoredChunk
		var metadataJSON string
		if err := rows.Scan(&chunk.ID, &chunk.Text, &metadataJSON); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if err := json.Unmarshal([]byte(metadataJSON), &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

func (s *SQLiteIndex) Generation(ctx context.Context) (*domain.Generation, error) {
	var gen domain.Generation
	var builtAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT provider, dimension, chunk_count, built_at FROM collections WHERE name = ?
	`, s.collection).Scan(&gen.Provider, &gen.Dimension, &gen.ChunkCount, &builtAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading collection: %w", err)
	}
	if t, err := time.Parse(time.RFC3339Nano, builtAt); err == nil {
		gen.BuiltAt = t
	}
	return &gen, nil
}

func (s *SQLiteIndex) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE collection = ?`, s.collection); err != nil {
		return fmt.Errorf("dropping chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, s.collection); err != nil {
		return fmt.Errorf("dropping collection: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}
