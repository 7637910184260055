package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkMetadata_OmitsNilTimes(t *testing.T) {
	chunk := Chunk{ID: "text_0", Text: "hello.", SourceType: SourceTypeText}

	raw, err := json.Marshal(chunk.Metadata())
	require.NoError(t, err)
	assert.JSONEq(t, `{"source_type":"text_chunk"}`, string(raw))
}

func TestChunkMetadata_KeepsTimes(t *testing.T) {
	start, end := 0.0, 2.5
	chunk := Chunk{ID: "seg_1", Text: "hi", StartTime: &start, EndTime: &end, SourceType: SourceTypeSegment}

	raw, err := json.Marshal(chunk.Metadata())
	require.NoError(t, err)
	assert.JSONEq(t, `{"source_type":"asr_segment","start_time":0,"end_time":2.5}`, string(raw))
}

func TestTextPreview(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{"Short", "Fish live in water.", "Fish live in water."},
		{"Exact", strings.Repeat("a", PreviewLength), strings.Repeat("a", PreviewLength)},
		{"Long", strings.Repeat("b", PreviewLength+1), strings.Repeat("b", PreviewLength) + "..."},
		{"Runes", strings.Repeat("က", PreviewLength+5), strings.Repeat("က", PreviewLength) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TextPreview(tt.text, PreviewLength))
		})
	}
}

func TestNeighbor_Similarity(t *testing.T) {
	n := Neighbor{Distance: 0.25}
	assert.InDelta(t, 0.75, n.Similarity(), 1e-9)
}
