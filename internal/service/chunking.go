package service

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cloo-solutions/transcriptrag/internal/domain"
)

// ChunkConfig controls sentence-window chunking of plain transcripts.
type ChunkConfig struct {
	WindowSize int
	Overlap    int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		WindowSize: 5,
		Overlap:    2,
	}
}

func (c ChunkConfig) stride() int {
	stride := c.WindowSize - c.Overlap
	if stride <= 0 {
		return 1
	}
	return stride
}

// ChunkTranscript splits a transcript into retrievable chunks. More than one
// segment means timed segments are used as-is; otherwise the text is windowed
// by sentence.
func ChunkTranscript(text string, segments []domain.Segment) ([]domain.Chunk, error) {
	return ChunkTranscriptWithConfig(text, segments, DefaultChunkConfig())
}

func ChunkTranscriptWithConfig(text string, segments []domain.Segment, cfg ChunkConfig) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	if len(segments) > 1 {
		if err := validateSegments(segments); err != nil {
			return nil, err
		}
		chunks = ChunkBySegments(segments)
	} else {
		chunks = ChunkByText(text, cfg)
	}
	if len(chunks) == 0 {
		return nil, domain.ErrNoChunks
	}
	return chunks, nil
}

// validateSegments rejects blank segment text, which no embedding provider
// accepts.
func validateSegments(segments []domain.Segment) error {
	for i, seg := range segments {
		if strings.TrimSpace(seg.Text) == "" {
			return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrEmptySegment.Message, fmt.Errorf("segment %d", i))
		}
	}
	return nil
}

// ChunkBySegments emits one chunk per segment, text verbatim.
func ChunkBySegments(segments []domain.Segment) []domain.Chunk {
	chunks := make([]domain.Chunk, 0, len(segments))
	for i, seg := range segments {
		chunks = append(chunks, domain.Chunk{
			ID:         fmt.Sprintf("seg_%d", i),
			Text:       seg.Text,
			StartTime:  seg.Start,
			EndTime:    seg.End,
			SourceType: domain.SourceTypeSegment,
		})
	}
	return chunks
}

// ChunkByText groups sentences into overlapping windows. Windows that are
// only whitespace are skipped.
func ChunkByText(text string, cfg ChunkConfig) []domain.Chunk {
	if cfg.WindowSize <= 0 {
		cfg = DefaultChunkConfig()
	}
	sentences := splitSentences(text)

	chunks := make([]domain.Chunk, 0, len(sentences)/cfg.stride()+1)
	for start := 0; start < len(sentences); start += cfg.stride() {
		end := start + cfg.WindowSize
		if end > len(sentences) {
			end = len(sentences)
		}
		window := strings.Join(sentences[start:end], " ")
		if strings.TrimSpace(window) == "" {
			continue
		}
		chunks = append(chunks, domain.Chunk{
			ID:         fmt.Sprintf("text_%d", start),
			Text:       window,
			SourceType: domain.SourceTypeText,
		})
	}
	return chunks
}

// splitSentences cuts at every whitespace run that directly follows '.', '!'
// or '?'. The whitespace itself is dropped; the punctuation stays.
func splitSentences(text string) []string {
	runes := []rune(text)
	sentences := make([]string, 0, 16)
	start := 0
	for i := 1; i < len(runes); i++ {
		if !unicode.IsSpace(runes[i]) || !isSentenceEnd(runes[i-1]) {
			continue
		}
		next := i
		for next < len(runes) && unicode.IsSpace(runes[next]) {
			next++
		}
		sentences = append(sentences, string(runes[start:i]))
		start = next
		i = next - 1
	}
	return append(sentences, string(runes[start:]))
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
