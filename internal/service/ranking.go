package service

import (
	"sort"
	"strings"

	"github.com/cloo-solutions/transcriptrag/internal/domain"
)

const (
	defaultKeywordWeight    = 0.4
	defaultSemanticWeight   = 0.6
	defaultKeywordThreshold = 0.2
	defaultScoreThreshold   = 0.3
	defaultRankedTopN       = 3
)

// RankerConfig tunes score fusion and the relevance gate.
type RankerConfig struct {
	KeywordWeight    float64
	SemanticWeight   float64
	KeywordThreshold float64
	ScoreThreshold   float64
	TopN             int
}

// DefaultRankerConfig provides the standard fusion weights and thresholds.
func DefaultRankerConfig() RankerConfig {
	return RankerConfig{
		KeywordWeight:    defaultKeywordWeight,
		SemanticWeight:   defaultSemanticWeight,
		KeywordThreshold: defaultKeywordThreshold,
		ScoreThreshold:   defaultScoreThreshold,
		TopN:             defaultRankedTopN,
	}
}

// Ranking is the outcome of scoring one question against an index.
type Ranking struct {
	TopChunks       []domain.RankedChunk
	MaxKeywordScore float64
	Relevant        bool
}

// Ranker fuses keyword overlap with semantic similarity.
type Ranker struct {
	cfg RankerConfig
}

func NewRanker() *Ranker {
	return NewRankerWithConfig(DefaultRankerConfig())
}

func NewRankerWithConfig(cfg RankerConfig) *Ranker {
	if cfg.TopN <= 0 {
		cfg.TopN = defaultRankedTopN
	}
	return &Ranker{cfg: cfg}
}

// KeywordScore is the fraction of distinct question tokens that also occur
// in text. Tokens are lowercased and split on whitespace.
func KeywordScore(question, text string) float64 {
	questionTokens := tokenSet(question)
	if len(questionTokens) == 0 {
		return 0
	}
	textTokens := tokenSet(text)

	overlap := 0
	for token := range questionTokens {
		if _, ok := textTokens[token]; ok {
			overlap++
		}
	}
	return float64(overlap) / float64(len(questionTokens))
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// Rank scores the semantic neighbors and applies the relevance gate. Keyword
// scores are computed over every stored chunk so the gate sees the best
// lexical match even when it is not a semantic neighbor.
func (r *Ranker) Rank(question string, all []domain.StoredChunk, neighbors []domain.Neighbor) Ranking {
	keywordScores := make(map[string]float64, len(all))
	maxKeyword := 0.0
	for _, c := range all {
		score := KeywordScore(question, c.Text)
		keywordScores[c.ID] = score
		if score > maxKeyword {
			maxKeyword = score
		}
	}

	ranked := make([]domain.RankedChunk, 0, len(neighbors))
	for _, n := range neighbors {
		combined := r.cfg.KeywordWeight*keywordScores[n.Chunk.ID] + r.cfg.SemanticWeight*n.Similarity()
		ranked = append(ranked, domain.RankedChunk{
			ChunkID:     n.Chunk.ID,
			Score:       combined,
			Text:        n.Chunk.Text,
			TextPreview: domain.TextPreview(n.Chunk.Text, domain.PreviewLength),
			StartTime:   n.Chunk.Metadata.StartTime,
			EndTime:     n.Chunk.Metadata.EndTime,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if len(ranked) > r.cfg.TopN {
		ranked = ranked[:r.cfg.TopN]
	}

	return Ranking{
		TopChunks:       ranked,
		MaxKeywordScore: maxKeyword,
		Relevant:        r.IsRelevant(maxKeyword, ranked),
	}
}

// IsRelevant rejects a question only when both signals are weak: no chunk
// shares enough words with it and the best fused score is low.
func (r *Ranker) IsRelevant(maxKeyword float64, top []domain.RankedChunk) bool {
	if maxKeyword >= r.cfg.KeywordThreshold {
		return true
	}
	return len(top) > 0 && top[0].Score >= r.cfg.ScoreThreshold
}
