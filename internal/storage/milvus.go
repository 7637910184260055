package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cloo-solutions/transcriptrag/internal/domain"
	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	milvusFieldID        = "chunk_id"
	milvusFieldPosition  = "position"
	milvusFieldDocument  = "document"
	milvusFieldMetadata  = "metadata"
	milvusFieldEmbedding = "embedding"

	milvusMaxDocumentLen = 65535
	milvusShards         = 1
	milvusSearchEf       = 64
	milvusQueryPageSize  = 1000
)

// MilvusConfig holds connection settings for a Milvus server.
type MilvusConfig struct {
	Address    string
	Username   string
	Password   string
	APIKey     string
	Collection string
}

// MilvusIndex stores each generation as a fresh Milvus collection with an
// HNSW cosine index. The generation record is kept in the collection
// description.
type MilvusIndex struct {
	mc   client.Client
	coll string
}

// NewMilvusIndex connects to Milvus.
func NewMilvusIndex(ctx context.Context, cfg MilvusConfig) (*MilvusIndex, error) {
	mc, err := client.NewClient(ctx, client.Config{
		Address:  cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
		APIKey:   cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("connect milvus: %w", err)
	}
	return &MilvusIndex{mc: mc, coll: cfg.Collection}, nil
}

func (m *MilvusIndex) Build(ctx context.Context, gen domain.Generation, chunks []domain.Chunk, embeddings [][]float32) (int, error) {
	if err := validateBuild(chunks, embeddings); err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, fmt.Errorf("milvus: cannot create an empty collection")
	}

	if err := m.Clear(ctx); err != nil {
		return 0, err
	}

	dim := len(embeddings[0])
	description, err := json.Marshal(gen)
	if err != nil {
		return 0, fmt.Errorf("encoding generation: %w", err)
	}

	schema := entity.NewSchema().
		WithName(m.coll).
		WithDescription(string(description)).
		WithField(entity.NewField().WithName(milvusFieldID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(256).WithIsPrimaryKey(true)).
		WithField(entity.NewField().WithName(milvusFieldPosition).WithDataType(entity.FieldTypeInt64)).
		WithField(entity.NewField().WithName(milvusFieldDocument).WithDataType(entity.FieldTypeVarChar).WithMaxLength(milvusMaxDocumentLen)).
		WithField(entity.NewField().WithName(milvusFieldMetadata).WithDataType(entity.FieldTypeJSON)).
		WithField(entity.NewField().WithName(milvusFieldEmbedding).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(dim)))

	if err := m.mc.CreateCollection(ctx, schema, milvusShards); err != nil {
		return 0, fmt.Errorf("create collection: %w", err)
	}

	idx, err := entity.NewIndexHNSW(entity.COSINE, 8, 200)
	if err != nil {
		return 0, fmt.Errorf("new hnsw index: %w", err)
	}
	if err := m.mc.CreateIndex(ctx, m.coll, milvusFieldEmbedding, idx, false, client.WithIndexName("idx_embedding")); err != nil {
		return 0, fmt.Errorf("create index: %w", err)
	}

	columns, err := buildColumns(chunks, embeddings)
	if err != nil {
		return 0, err
	}
	if _, err := m.mc.Insert(ctx, m.coll, "", columns...); err != nil {
		return 0, fmt.Errorf("insert chunks: %w", err)
	}
	if err := m.mc.Flush(ctx, m.coll, false); err != nil {
		return 0, fmt.Errorf("flush collection: %w", err)
	}
	if err := m.mc.LoadCollection(ctx, m.coll, false); err != nil {
		return 0, fmt.Errorf("load collection: %w", err)
	}

	return len(chunks), nil
}

func (m *MilvusIndex) Exists(ctx context.Context) (bool, error) {
	has, err := m.mc.HasCollection(ctx, m.coll)
	if err != nil {
		return false, fmt.Errorf("has collection: %w", err)
	}
	return has, nil
}

func (m *MilvusIndex) Query(ctx context.Context, embedding []float32, k int) ([]domain.Neighbor, error) {
	exists, err := m.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrNotIndexed
	}
	if k <= 0 {
		return []domain.Neighbor{}, nil
	}

	sp, err := entity.NewIndexHNSWSearchParam(max(milvusSearchEf, k))
	if err != nil {
		return nil, fmt.Errorf("search param: %w", err)
	}
	results, err := m.mc.Search(ctx, m.coll, []string{}, "",
		[]string{milvusFieldDocument, milvusFieldMetadata},
		[]entity.Vector{entity.FloatVector(embedding)},
		milvusFieldEmbedding, entity.COSINE, k, sp)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	var neighbors []domain.Neighbor
	for _, r := range results {
		hits, err := neighborsFromResult(r.IDs, r.Fields, r.Scores, r.ResultCount)
		if err != nil {
			return nil, err
		}
		neighbors = append(neighbors, hits...)
	}
	return nearest(neighbors, k), nil
}

func (m *MilvusIndex) GetAll(ctx context.Context) ([]domain.StoredChunk, error) {
	exists, err := m.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrNotIndexed
	}

	fields := []string{milvusFieldID, milvusFieldPosition, milvusFieldDocument, milvusFieldMetadata}
	return collectPages(ctx, func(ctx context.Context, lo, hi int64) ([]entity.Column, error) {
		expr := fmt.Sprintf("%s >= %d && %s < %d", milvusFieldPosition, lo, milvusFieldPosition, hi)
		rs, err := m.mc.Query(ctx, m.coll, []string{}, expr, fields, client.WithLimit(hi-lo))
		if err != nil {
			return nil, fmt.Errorf("query chunks %d-%d: %w", lo, hi, err)
		}
		return rs, nil
	}, milvusQueryPageSize)
}

// positionRange fetches the chunks whose position is in [lo, hi).
type positionRange func(ctx context.Context, lo, hi int64) ([]entity.Column, error)

// collectPages walks positions in pageSize steps until a page comes back
// short. Positions are dense from zero, so a short page is the last one.
func collectPages(ctx context.Context, fetch positionRange, pageSize int64) ([]domain.StoredChunk, error) {
	all := []domain.StoredChunk{}
	for lo := int64(0); ; lo += pageSize {
		cols, err := fetch(ctx, lo, lo+pageSize)
		if err != nil {
			return nil, err
		}
		page, err := chunksFromColumns(cols)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if int64(len(page)) < pageSize {
			return all, nil
		}
	}
}

func (m *MilvusIndex) Generation(ctx context.Context) (*domain.Generation, error) {
	exists, err := m.Exists(ctx)
	if err != nil || !exists {
		return nil, err
	}
	coll, err := m.mc.DescribeCollection(ctx, m.coll)
	if err != nil {
		return nil, fmt.Errorf("describe collection: %w", err)
	}
	if coll.Schema == nil || coll.Schema.Description == "" {
		return nil, nil
	}
	var gen domain.Generation
	if err := json.Unmarshal([]byte(coll.Schema.Description), &gen); err != nil {
		return nil, fmt.Errorf("decoding generation: %w", err)
	}
	return &gen, nil
}

func (m *MilvusIndex) Clear(ctx context.Context) error {
	exists, err := m.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	if err := m.mc.DropCollection(ctx, m.coll); err != nil {
		return fmt.Errorf("drop collection: %w", err)
	}
	return nil
}

func (m *MilvusIndex) Close() error {
	return m.mc.Close()
}

func buildColumns(chunks []domain.Chunk, embeddings [][]float32) ([]entity.Column, error) {
	ids := make([]string, len(chunks))
	positions := make([]int64, len(chunks))
	documents := make([]string, len(chunks))
	metadata := make([][]byte, len(chunks))
	for i, c := range chunks {
		raw, err := json.Marshal(c.Metadata())
		if err != nil {
			return nil, fmt.Errorf("encoding metadata: %w", err)
		}
		ids[i] = c.ID
		positions[i] = int64(i)
		documents[i] = c.Text
		metadata[i] = raw
	}
	return []entity.Column{
		entity.NewColumnVarChar(milvusFieldID, ids),
		entity.NewColumnInt64(milvusFieldPosition, positions),
		entity.NewColumnVarChar(milvusFieldDocument, documents),
		entity.NewColumnJSONBytes(milvusFieldMetadata, metadata),
		entity.NewColumnFloatVector(milvusFieldEmbedding, len(embeddings[0]), embeddings),
	}, nil
}

func neighborsFromResult(ids entity.Column, fields []entity.Column, scores []float32, count int) ([]domain.Neighbor, error) {
	idCol, ok := ids.(*entity.ColumnVarChar)
	if !ok {
		return nil, fmt.Errorf("milvus: unexpected id column %T", ids)
	}
	cols := map[string]entity.Column{}
	for _, c := range fields {
		cols[c.Name()] = c
	}

	neighbors := make([]domain.Neighbor, 0, count)
	for i := 0; i < count && i < len(idCol.Data()); i++ {
		chunk, err := chunkAt(idCol.Data()[i], cols, i)
		if err != nil {
			return nil, err
		}
		neighbors = append(neighbors, domain.Neighbor{
			Chunk:    chunk,
			Distance: 1.0 - float64(scores[i]),
		})
	}
	return neighbors, nil
}

func chunksFromColumns(columns []entity.Column) ([]domain.StoredChunk, error) {
	cols := map[string]entity.Column{}
	for _, c := range columns {
		cols[c.Name()] = c
	}
	idCol, ok := cols[milvusFieldID].(*entity.ColumnVarChar)
	if !ok {
		return []domain.StoredChunk{}, nil
	}

	type positioned struct {
		chunk    domain.StoredChunk
		position int64
	}
	rows := make([]positioned, 0, idCol.Len())
	for i, id := range idCol.Data() {
		chunk, err := chunkAt(id, cols, i)
		if err != nil {
			return nil, err
		}
		var position int64
		if c, ok := cols[milvusFieldPosition].(*entity.ColumnInt64); ok && i < len(c.Data()) {
			position = c.Data()[i]
		}
		rows = append(rows, positioned{chunk: chunk, position: position})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].position < rows[j].position
	})

	chunks := make([]domain.StoredChunk, len(rows))
	for i, r := range rows {
		chunks[i] = r.chunk
	}
	return chunks, nil
}

func chunkAt(id string, cols map[string]entity.Column, i int) (domain.StoredChunk, error) {
	chunk := domain.StoredChunk{ID: id}
	if c, ok := cols[milvusFieldDocument].(*entity.ColumnVarChar); ok && i < len(c.Data()) {
		chunk.Text = c.Data()[i]
	}
	if c, ok := cols[milvusFieldMetadata].(*entity.ColumnJSONBytes); ok && i < len(c.Data()) {
		if err := json.Unmarshal(c.Data()[i], &chunk.Metadata); err != nil {
			return chunk, fmt.Errorf("decoding metadata for %s: %w", id, err)
		}
	}
	return chunk, nil
}
