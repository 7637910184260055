package domain

import "time"

// SourceType records how a chunk was cut from its transcript.
type SourceType string

const (
	SourceTypeSegment SourceType = "asr_segment"
	SourceTypeText    SourceType = "text_chunk"
)

// Segment is a timed span of a transcript as produced by speech recognition.
type Segment struct {
	Text  string   `json:"text" yaml:"text"`
	Start *float64 `json:"start,omitempty" yaml:"start,omitempty"`
	End   *float64 `json:"end,omitempty" yaml:"end,omitempty"`
}

// ChunkMetadata is the per-chunk payload persisted alongside each vector.
// Nil timestamps are omitted rather than stored as null.
type ChunkMetadata struct {
	SourceType SourceType `json:"source_type"`
	StartTime  *float64   `json:"start_time,omitempty"`
	EndTime    *float64   `json:"end_time,omitempty"`
}

// Chunk is a retrievable unit of transcript text.
type Chunk struct {
	ID         string
	Text       string
	StartTime  *float64
	EndTime    *float64
	SourceType SourceType
}

// Metadata projects the chunk into the metadata stored by a vector index.
func (c Chunk) Metadata() ChunkMetadata {
	return ChunkMetadata{
		SourceType: c.SourceType,
		StartTime:  c.StartTime,
		EndTime:    c.EndTime,
	}
}

// StoredChunk is a chunk as read back from a vector index.
type StoredChunk struct {
	ID       string        `json:"chunk_id"`
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}

// Neighbor is a semantic search hit at the given cosine distance.
type Neighbor struct {
	Chunk    StoredChunk
	Distance float64
}

// Similarity converts the cosine distance back to a similarity score.
func (n Neighbor) Similarity() float64 {
	return 1.0 - n.Distance
}

// RankedChunk is a chunk scored by the hybrid ranker.
type RankedChunk struct {
	ChunkID     string   `json:"chunk_id"`
	Score       float64  `json:"score"`
	Text        string   `json:"-"`
	TextPreview string   `json:"text_preview"`
	StartTime   *float64 `json:"start_time,omitempty"`
	EndTime     *float64 `json:"end_time,omitempty"`
}

// Generation describes a built index: which embedding provider produced its
// vectors and their dimension. Query vectors must come from the same space.
type Generation struct {
	Provider   string    `json:"provider"`
	Dimension  int       `json:"dimension"`
	ChunkCount int       `json:"chunk_count"`
	BuiltAt    time.Time `json:"built_at"`
}

// PreviewLength is the maximum number of runes kept in a text preview.
const PreviewLength = 200

// TextPreview truncates text to n runes, appending "..." when cut.
func TextPreview(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
