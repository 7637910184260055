package service

import (
	"strings"
	"testing"

	"github.com/cloo-solutions/transcriptrag/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 {
	return &v
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{"Single", "Hello world", []string{"Hello world"}},
		{"Basic", "One. Two! Three?", []string{"One.", "Two!", "Three?"}},
		{"WhitespaceRun", "One.\n\n  Two.", []string{"One.", "Two."}},
		{"NoSpaceAfterPeriod", "v1.2 is out. Yes.", []string{"v1.2 is out.", "Yes."}},
		{"TrailingWhitespace", "One. ", []string{"One.", ""}},
		{"Empty", "", []string{""}},
		{"LeadingSpace", " One. Two.", []string{" One.", "Two."}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, splitSentences(tt.text))
		})
	}
}

func TestChunkByText_Windows(t *testing.T) {
	text := "S0. S1. S2. S3. S4. S5. S6. S7."

	chunks := ChunkByText(text, DefaultChunkConfig())

	require.Len(t, chunks, 3)
	assert.Equal(t, "text_0", chunks[0].ID)
	assert.Equal(t, "S0. S1. S2. S3. S4.", chunks[0].Text)
	assert.Equal(t, "text_3", chunks[1].ID)
	assert.Equal(t, "S3. S4. S5. S6. S7.", chunks[1].Text)
	assert.Equal(t, "text_6", chunks[2].ID)
	assert.Equal(t, "S6. S7.", chunks[2].Text)

	for _, c := range chunks {
		assert.Equal(t, domain.SourceTypeText, c.SourceType)
		assert.Nil(t, c.StartTime)
		assert.Nil(t, c.EndTime)
	}
}

func TestChunkByText_ShortTranscriptIsOneChunk(t *testing.T) {
	text := "Cats are mammals. Dogs are mammals too. Fish live in water."

	chunks := ChunkByText(text, DefaultChunkConfig())

	require.Len(t, chunks, 1)
	assert.Equal(t, "text_0", chunks[0].ID)
	assert.Equal(t, text, chunks[0].Text)
}

func TestChunkByText_EverySentenceCovered(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 23; i++ {
		sb.WriteString("Sentence number ")
		sb.WriteString(strings.Repeat("x", i+1))
		sb.WriteString(". ")
	}
	text := strings.TrimSpace(sb.String())

	chunks := ChunkByText(text, DefaultChunkConfig())

	for _, sentence := range splitSentences(text) {
		found := false
		for _, c := range chunks {
			if strings.Contains(c.Text, sentence) {
				found = true
				break
			}
		}
		assert.True(t, found, "sentence %q not covered", sentence)
	}
}

func TestChunkByText_SkipsWhitespaceWindows(t *testing.T) {
	chunks := ChunkByText("   ", DefaultChunkConfig())
	assert.Empty(t, chunks)
}

func TestChunkBySegments_Passthrough(t *testing.T) {
	segments := []domain.Segment{
		{Text: "first", Start: floatPtr(0), End: floatPtr(1.5)},
		{Text: "", Start: floatPtr(1.5), End: floatPtr(2)},
		{Text: "third"},
	}

	chunks := ChunkBySegments(segments)

	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.Equal(t, segments[i].Text, c.Text)
		assert.Equal(t, segments[i].Start, c.StartTime)
		assert.Equal(t, segments[i].End, c.EndTime)
		assert.Equal(t, domain.SourceTypeSegment, c.SourceType)
	}
	assert.Equal(t, "seg_0", chunks[0].ID)
	assert.Equal(t, "seg_1", chunks[1].ID)
	assert.Equal(t, "seg_2", chunks[2].ID)
}

func TestChunkTranscript_StrategySelection(t *testing.T) {
	text := "Alpha. Beta."

	t.Run("MultipleSegments", func(t *testing.T) {
		chunks, err := ChunkTranscript(text, []domain.Segment{{Text: "a"}, {Text: "b"}})
		require.NoError(t, err)
		require.Len(t, chunks, 2)
		assert.Equal(t, "seg_0", chunks[0].ID)
	})

	t.Run("SingleSegmentUsesText", func(t *testing.T) {
		chunks, err := ChunkTranscript(text, []domain.Segment{{Text: "ignored"}})
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, "Alpha. Beta.", chunks[0].Text)
	})

	t.Run("NoSegments", func(t *testing.T) {
		chunks, err := ChunkTranscript(text, nil)
		require.NoError(t, err)
		assert.Equal(t, "text_0", chunks[0].ID)
	})
}

func TestChunkTranscript_Empty(t *testing.T) {
	chunks, err := ChunkTranscript("", nil)

	assert.Nil(t, chunks)
	assert.ErrorIs(t, err, domain.ErrNoChunks)
}

func TestChunkTranscript_BlankSegmentRejected(t *testing.T) {
	segments := []domain.Segment{
		{Text: "A", Start: floatPtr(0), End: floatPtr(5)},
		{Text: " \t", Start: floatPtr(5), End: floatPtr(10)},
	}

	chunks, err := ChunkTranscript("", segments)

	assert.Nil(t, chunks)
	assert.ErrorIs(t, err, domain.ErrEmptySegment)
	assert.Contains(t, err.Error(), "segment 1")
	assert.False(t, domain.IsRetryable(err))

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
}

func TestChunkConfig_Stride(t *testing.T) {
	assert.Equal(t, 3, DefaultChunkConfig().stride())
	assert.Equal(t, 1, ChunkConfig{WindowSize: 2, Overlap: 5}.stride())
}
