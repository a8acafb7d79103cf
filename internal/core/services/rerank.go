package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/custodia-labs/docscope/internal/core/domain"
	"github.com/custodia-labs/docscope/internal/core/ports/driven"
	"github.com/custodia-labs/docscope/internal/logger"
)

// Reranker tuning.
const (
	// RerankPreviewChars is the candidate preview length shown to the LLM.
	RerankPreviewChars = 300

	// DefaultRerankMinScore is the default quality cutoff on the 0-10 scale.
	DefaultRerankMinScore = 5.0

	maxRerankScore = 10.0
)

// Reranker reorders candidates by LLM-judged relevance.
type Reranker struct {
	llm      *completer
	minScore float64
}

// NewReranker creates a reranker dropping scores below minScore.
func NewReranker(llm *completer, minScore float64) *Reranker {
	return &Reranker{llm: llm, minScore: minScore}
}

// Rerank returns at most topK candidates ordered by LLM score. It never
// fails: on any error the original order is kept and truncated.
func (r *Reranker) Rerank(
	ctx context.Context, query string, candidates []domain.SearchResult, topK int,
) []domain.SearchResult {
	if topK <= 0 || len(candidates) <= topK {
		return candidates
	}

	scores, err := r.score(ctx, query, candidates)
	if err != nil {
		logger.Warn("rerank skipped: %v", err)
		return candidates[:topK]
	}

	ranked := make([]domain.SearchResult, len(candidates))
	copy(ranked, candidates)
	for i := range ranked {
		score := scores[i]
		ranked[i].RerankScore = &score
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return *ranked[i].RerankScore > *ranked[j].RerankScore
	})

	kept := make([]domain.SearchResult, 0, topK)
	for _, res := range ranked {
		if *res.RerankScore < r.minScore {
			continue
		}
		kept = append(kept, res)
		if len(kept) == topK {
			break
		}
	}
	if len(kept) == 0 {
		logger.Debug("every rerank score below %.1f, keeping best %d", r.minScore, topK)
		return ranked[:topK]
	}
	return kept
}

// score asks for one score per candidate and validates the answer.
func (r *Reranker) score(ctx context.Context, query string, candidates []domain.SearchResult) ([]float64, error) {
	var list strings.Builder
	for i := range candidates {
		fmt.Fprintf(&list, "[%d] %s\n", i, domain.Preview(candidates[i].Chunk.Content, RerankPreviewChars))
	}

	answer, err := r.llm.complete(ctx, driven.PromptRerank, driven.GenerateOptions{
		MaxTokens:   10 + 6*len(candidates),
		Temperature: 0,
	}, query, len(candidates), list.String(), len(candidates))
	if err != nil {
		return nil, err
	}

	values, err := parseJSONArray(answer)
	if err != nil {
		return nil, err
	}
	if len(values) != len(candidates) {
		return nil, fmt.Errorf("%w: got %d scores for %d candidates", domain.ErrMalformedOutput, len(values), len(candidates))
	}

	scores := make([]float64, len(values))
	for i, v := range values {
		if v.Type != gjson.Number {
			return nil, fmt.Errorf("%w: score %d is %s", domain.ErrMalformedOutput, i, v.Type)
		}
		scores[i] = min(max(v.Float(), 0), maxRerankScore)
	}
	return scores, nil
}
