package services

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/custodia-labs/docscope/internal/core/domain"
	"github.com/custodia-labs/docscope/internal/core/ports/driven"
	"github.com/custodia-labs/docscope/internal/logger"
)

// Strategy is one way of turning a query into ranked chunks.
type Strategy interface {
	Name() string
	Search(ctx context.Context, query string) ([]domain.SearchResult, error)
}

// Strategy tuning.
const (
	// MultiQueryCount is the number of paraphrases requested.
	MultiQueryCount = 3

	// HyDESimilarityFactor lowers the similarity threshold for generated
	// passages, which diverge lexically from the source text.
	HyDESimilarityFactor = 0.6

	// AgenticMaxRounds caps the iterative search loop.
	AgenticMaxRounds = 4

	agenticDone = "DONE"
)

// SearchParams are the store parameters shared by every strategy.
type SearchParams struct {
	DocumentIDs    []string
	TopK           int
	MinSimilarity  float64
	SemanticWeight float64
	KeywordWeight  float64
}

// searchParamsFor derives store parameters from a retrieval config.
func searchParamsFor(cfg domain.RetrievalConfig, documentIDs []string, topK int) SearchParams {
	return SearchParams{
		DocumentIDs:    documentIDs,
		TopK:           topK,
		MinSimilarity:  cfg.MinSimilarity,
		SemanticWeight: cfg.SemanticWeight,
		KeywordWeight:  cfg.KeywordWeight,
	}
}

// HybridStrategy combines vector and keyword scores in the chunk store.
type HybridStrategy struct {
	chunks     driven.ChunkStore
	embeddings driven.EmbeddingService
	params     SearchParams
	timeouts   Timeouts
}

// NewHybridStrategy creates the base strategy. embeddings may be nil, in
// which case scoring is keyword-only.
func NewHybridStrategy(
	chunks driven.ChunkStore, embeddings driven.EmbeddingService, params SearchParams, timeouts Timeouts,
) *HybridStrategy {
	return &HybridStrategy{chunks: chunks, embeddings: embeddings, params: params, timeouts: timeouts}
}

// Name returns the strategy name.
func (s *HybridStrategy) Name() string { return string(domain.StrategyHybrid) }

// Search embeds the query and runs a hybrid search. An embedding failure
// degrades to keyword-only scoring.
func (s *HybridStrategy) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	vector, err := s.embed(ctx, query)
	if err != nil {
		logger.Warn("query embedding failed, using keyword search only: %v", err)
	}
	return s.search(ctx, query, vector, s.params.MinSimilarity)
}

// KeywordSearch runs a hybrid search without the semantic component.
func (s *HybridStrategy) KeywordSearch(ctx context.Context, query string) ([]domain.SearchResult, error) {
	return s.search(ctx, query, nil, s.params.MinSimilarity)
}

// WithMinSimilarity returns a copy of the strategy using a different threshold.
func (s *HybridStrategy) WithMinSimilarity(minSimilarity float64) *HybridStrategy {
	clone := *s
	clone.params.MinSimilarity = minSimilarity
	return &clone
}

func (s *HybridStrategy) search(
	ctx context.Context, query string, vector []float32, minSimilarity float64,
) ([]domain.SearchResult, error) {
	results, err := s.chunks.HybridSearch(ctx, driven.HybridQuery{
		Text:           query,
		Vector:         vector,
		SemanticWeight: s.params.SemanticWeight,
		KeywordWeight:  s.params.KeywordWeight,
		DocumentIDs:    s.params.DocumentIDs,
		TopK:           s.params.TopK,
		MinSimilarity:  minSimilarity,
	})
	if err != nil {
		return nil, fmt.Errorf("hybrid search: %w", err)
	}
	return results, nil
}

// embed returns the query vector, bounded by the embedding timeout.
func (s *HybridStrategy) embed(ctx context.Context, text string) ([]float32, error) {
	if s.embeddings == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	timeout := s.timeouts.Embedding
	if timeout <= 0 {
		timeout = DefaultEnhancementTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	vector, err := s.embeddings.Embed(callCtx, driven.TruncateInput(text))
	if err != nil {
		return nil, fmt.Errorf("%w: embed: %w", domain.ErrCollaboratorUnavailable, err)
	}
	return vector, nil
}

// MultiQueryStrategy searches with the query and LLM paraphrases of it.
type MultiQueryStrategy struct {
	hybrid *HybridStrategy
	llm    *completer
	count  int
}

// NewMultiQueryStrategy creates a query-expansion strategy.
func NewMultiQueryStrategy(hybrid *HybridStrategy, llm *completer) *MultiQueryStrategy {
	return &MultiQueryStrategy{hybrid: hybrid, llm: llm, count: MultiQueryCount}
}

// Name returns the strategy name.
func (s *MultiQueryStrategy) Name() string { return string(domain.StrategyMultiQuery) }

// Search runs hybrid search for the original query and every paraphrase and
// merges the results in first-seen order.
func (s *MultiQueryStrategy) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	queries := append([]string{query}, s.paraphrases(ctx, query)...)

	var (
		sets     []queryResults
		firstErr error
	)
	for _, q := range queries {
		results, err := s.hybrid.Search(ctx, q)
		if err != nil {
			logger.Warn("multi-query search for %q failed: %v", q, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		sets = append(sets, queryResults{query: q, results: results})
	}
	if len(sets) == 0 {
		return nil, firstErr
	}
	return mergeResults(sets...), nil
}

// paraphrases asks the LLM for alternative wordings; failures yield none.
func (s *MultiQueryStrategy) paraphrases(ctx context.Context, query string) []string {
	text, err := s.llm.complete(ctx, driven.PromptMultiQuery, driven.GenerateOptions{
		MaxTokens:   300,
		Temperature: 0.7,
	}, s.count, query)
	if err != nil {
		logger.Warn("query expansion skipped: %v", err)
		return nil
	}
	return parseQueryLines(text, query, s.count)
}

// parseQueryLines turns an LLM answer into distinct queries, dropping
// numbering, bullets, quotes and repeats of the original.
func parseQueryLines(text, original string, limit int) []string {
	seen := map[string]bool{strings.ToLower(strings.TrimSpace(original)): true}
	var out []string
	for _, line := range strings.Split(stripFences(text), "\n") {
		line = strings.TrimLeftFunc(line, func(r rune) bool {
			return unicode.IsDigit(r) || unicode.IsSpace(r) || strings.ContainsRune(".)-*•", r)
		})
		line = strings.Trim(strings.TrimSpace(line), `"'«»`)
		key := strings.ToLower(line)
		if line == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, line)
		if len(out) == limit {
			break
		}
	}
	return out
}

// HyDEStrategy searches by the embedding of a generated hypothetical answer.
type HyDEStrategy struct {
	hybrid *HybridStrategy
	llm    *completer
}

// NewHyDEStrategy creates a hypothetical-document strategy.
func NewHyDEStrategy(hybrid *HybridStrategy, llm *completer) *HyDEStrategy {
	return &HyDEStrategy{hybrid: hybrid, llm: llm}
}

// Name returns the strategy name.
func (s *HyDEStrategy) Name() string { return string(domain.StrategyHyDE) }

// Search generates a passage, embeds it and runs a similarity search with a
// lowered threshold. Any failure falls back to hybrid search.
func (s *HyDEStrategy) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	results, err := s.search(ctx, query)
	if err != nil {
		logger.Warn("HyDE failed, falling back to hybrid: %v", err)
		return s.hybrid.Search(ctx, query)
	}
	if len(results) == 0 {
		logger.Debug("HyDE found nothing, falling back to hybrid")
		return s.hybrid.Search(ctx, query)
	}
	return results, nil
}

func (s *HyDEStrategy) search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	passage, err := s.llm.complete(ctx, driven.PromptHyDE, driven.GenerateOptions{
		MaxTokens:   400,
		Temperature: 0.3,
	}, query)
	if err != nil {
		return nil, err
	}
	if passage == "" {
		return nil, fmt.Errorf("%w: empty passage", domain.ErrMalformedOutput)
	}

	vector, err := s.hybrid.embed(ctx, passage)
	if err != nil {
		return nil, err
	}

	params := s.hybrid.params
	return s.hybrid.chunks.SimilaritySearch(ctx, vector, driven.SimilarityOptions{
		DocumentIDs:   params.DocumentIDs,
		TopK:          params.TopK,
		MinSimilarity: params.MinSimilarity * HyDESimilarityFactor,
	})
}

// StepBackStrategy adds results for a broader version of the query.
type StepBackStrategy struct {
	hybrid *HybridStrategy
	llm    *completer
}

// NewStepBackStrategy creates a step-back strategy.
func NewStepBackStrategy(hybrid *HybridStrategy, llm *completer) *StepBackStrategy {
	return &StepBackStrategy{hybrid: hybrid, llm: llm}
}

// Name returns the strategy name.
func (s *StepBackStrategy) Name() string { return string(domain.StrategyStepBack) }

// Search runs the direct query and its generalisation, direct results first.
func (s *StepBackStrategy) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	direct, err := s.hybrid.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	broader, err := s.llm.complete(ctx, driven.PromptStepBack, driven.GenerateOptions{
		MaxTokens:   150,
		Temperature: 0.3,
	}, query)
	if err != nil {
		logger.Warn("step-back question skipped: %v", err)
		return direct, nil
	}
	broader = firstLine(broader)
	if broader == "" || strings.EqualFold(broader, query) {
		return direct, nil
	}

	background, err := s.hybrid.Search(ctx, broader)
	if err != nil {
		logger.Warn("step-back search for %q failed: %v", broader, err)
		return direct, nil
	}
	return mergeResults(
		queryResults{query: query, results: direct},
		queryResults{query: broader, results: background},
	), nil
}

// AgenticStrategy lets the LLM drive a bounded sequence of searches.
type AgenticStrategy struct {
	hybrid    *HybridStrategy
	llm       *completer
	maxRounds int
}

// NewAgenticStrategy creates an iterative strategy.
func NewAgenticStrategy(hybrid *HybridStrategy, llm *completer) *AgenticStrategy {
	return &AgenticStrategy{hybrid: hybrid, llm: llm, maxRounds: AgenticMaxRounds}
}

// Name returns the strategy name.
func (s *AgenticStrategy) Name() string { return string(domain.StrategyAgentic) }

// Search starts with the original query and asks the LLM for each next
// query until it answers DONE or the round cap is reached. When nothing is
// found it falls back to a single hybrid search.
func (s *AgenticStrategy) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	var (
		sets    []queryResults
		history []string
		next    = query
	)

	for round := 0; round < s.maxRounds; round++ {
		if round > 0 {
			answer, err := s.llm.complete(ctx, driven.PromptAgentic, driven.GenerateOptions{
				MaxTokens:   100,
				Temperature: 0.2,
			}, query, strings.Join(history, "\n"))
			if err != nil {
				logger.Warn("agentic round %d stopped: %v", round+1, err)
				break
			}
			next = firstLine(answer)
			if next == "" || strings.EqualFold(strings.Trim(next, ".!"), agenticDone) {
				break
			}
		}

		results, err := s.hybrid.Search(ctx, next)
		if err != nil {
			logger.Warn("agentic search for %q failed: %v", next, err)
			history = append(history, fmt.Sprintf("%q -> failed", next))
			continue
		}
		history = append(history, fmt.Sprintf("%q -> %d", next, len(results)))
		sets = append(sets, queryResults{query: next, results: results})
	}

	merged := mergeResults(sets...)
	if len(merged) == 0 {
		logger.Debug("agentic search found nothing, falling back to hybrid")
		return s.hybrid.Search(ctx, query)
	}
	return merged, nil
}

// queryResults pairs a query with what it found.
type queryResults struct {
	query   string
	results []domain.SearchResult
}

// mergeResults de-duplicates by (document, chunk index) in first-seen order
// and records every query that matched each chunk.
func mergeResults(sets ...queryResults) []domain.SearchResult {
	index := make(map[domain.ChunkKey]int)
	var merged []domain.SearchResult
	for _, set := range sets {
		for _, r := range set.results {
			key := r.Chunk.Key()
			if i, ok := index[key]; ok {
				merged[i].MatchingQueries = appendUnique(merged[i].MatchingQueries, set.query)
				if r.Similarity > merged[i].Similarity {
					merged[i].Similarity = r.Similarity
				}
				continue
			}
			r.MatchingQueries = appendUnique(append([]string(nil), r.MatchingQueries...), set.query)
			index[key] = len(merged)
			merged = append(merged, r)
		}
	}
	return merged
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}

// firstLine returns the first non-empty line of an LLM answer, unquoted.
func firstLine(text string) string {
	for _, line := range strings.Split(stripFences(text), "\n") {
		line = strings.Trim(strings.TrimSpace(line), `"'«»`)
		if line != "" {
			return line
		}
	}
	return ""
}

// Strategy auto-selection indicators.
var (
	specificIndicators = []string{
		"page", "quote", "paragraph", "verbatim", "exact wording", "clause",
		"страниц", "цитат", "абзац", "пункт", "дословно",
	}
	broadIndicators = []string{
		"summarize", "summarise", "summary", "overview", "explain", "describe", "main idea",
		"кратко", "обзор", "объясни", "опиши", "перескажи", "основн",
	}
)

// SelectStrategy picks a strategy from the query text alone. A specific or
// structural indicator sends the query to HyDE even when it also asks for a
// summary; broad and unclassified questions go to multi-query.
func SelectStrategy(query string) domain.StrategyKind {
	lower := strings.ToLower(query)
	if containsAny(lower, specificIndicators) {
		return domain.StrategyHyDE
	}
	if containsAny(lower, broadIndicators) {
		return domain.StrategyMultiQuery
	}
	return domain.StrategyMultiQuery
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

// strategyEnv is what newStrategy needs to build any strategy.
type strategyEnv struct {
	hybrid      *HybridStrategy
	llm         *completer
	documentIDs []string
	names       map[string]string
	maxChunks   int
}

// newStrategy builds the strategy of the given kind. Auto resolves from the
// query text.
func newStrategy(kind domain.StrategyKind, query string, env strategyEnv) Strategy {
	if kind == "" || kind == domain.StrategyAuto {
		kind = SelectStrategy(query)
	}
	switch kind {
	case domain.StrategyMultiQuery:
		return NewMultiQueryStrategy(env.hybrid, env.llm)
	case domain.StrategyHyDE:
		return NewHyDEStrategy(env.hybrid, env.llm)
	case domain.StrategyStepBack:
		return NewStepBackStrategy(env.hybrid, env.llm)
	case domain.StrategyAgentic:
		return NewAgenticStrategy(env.hybrid, env.llm)
	case domain.StrategySmartSelect:
		selector := NewSelector(env.hybrid.chunks, env.hybrid, env.llm)
		return NewSmartSelectStrategy(selector, env.documentIDs, env.names, env.maxChunks, false)
	default:
		return env.hybrid
	}
}
