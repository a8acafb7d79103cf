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

// DefaultSelectorCandidates is how many descriptors stage one loads.
const DefaultSelectorCandidates = 200

// Selector picks chunks in two stages: the LLM sees only lightweight
// descriptors, then full content is loaded for its choice.
type Selector struct {
	chunks     driven.ChunkStore
	hybrid     *HybridStrategy
	llm        *completer
	candidates int
}

// NewSelector creates a two-stage selector. hybrid is the full fallback.
func NewSelector(chunks driven.ChunkStore, hybrid *HybridStrategy, llm *completer) *Selector {
	return &Selector{chunks: chunks, hybrid: hybrid, llm: llm, candidates: DefaultSelectorCandidates}
}

// Select returns up to maxChunks chunks of the documents chosen from their
// descriptors, ordered by (document, chunk index). Stage failures fall back
// to the first descriptors or to plain hybrid search.
func (s *Selector) Select(
	ctx context.Context, query string, documentIDs []string, names map[string]string, maxChunks int,
) ([]domain.SearchResult, error) {
	descriptors, err := s.chunks.FetchDescriptors(ctx, documentIDs, s.candidates)
	if err != nil {
		logger.Warn("descriptor load failed, using hybrid search: %v", err)
		return s.fallback(ctx, query, maxChunks)
	}
	if len(descriptors) == 0 {
		return nil, nil
	}
	for i := range descriptors {
		if name, ok := names[descriptors[i].DocumentID]; ok {
			descriptors[i].DocumentName = name
		}
	}

	chosen := s.choose(ctx, query, descriptors, maxChunks)

	ids := make([]string, len(chosen))
	for i, idx := range chosen {
		ids[i] = descriptors[idx].ChunkID
	}
	loaded, err := s.chunks.FetchByIDs(ctx, ids)
	if err != nil {
		logger.Warn("chunk load failed, using hybrid search: %v", err)
		return s.fallback(ctx, query, maxChunks)
	}

	results := make([]domain.SearchResult, len(loaded))
	for i, c := range loaded {
		results[i] = domain.SearchResult{Chunk: c, DocumentName: names[c.DocumentID]}
	}
	sortByPosition(results)
	return results, nil
}

// SelectHybrid runs hybrid search for candidates and their scores, then
// lets the LLM choose among those candidates' descriptors.
func (s *Selector) SelectHybrid(
	ctx context.Context, query string, names map[string]string, maxChunks int,
) ([]domain.SearchResult, error) {
	candidates, err := s.hybrid.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(candidates) <= maxChunks {
		return candidates, nil
	}

	descriptors := make([]domain.ChunkDescriptor, len(candidates))
	for i := range candidates {
		name := candidates[i].DocumentName
		if name == "" {
			name = names[candidates[i].Chunk.DocumentID]
		}
		descriptors[i] = domain.DescriptorFor(&candidates[i].Chunk, name)
	}

	chosen := s.choose(ctx, query, descriptors, maxChunks)
	results := make([]domain.SearchResult, len(chosen))
	for i, idx := range chosen {
		results[i] = candidates[idx]
	}
	return results, nil
}

// choose is stage two: descriptor indices from the LLM, or the first
// maxChunks when the answer is missing or unusable.
func (s *Selector) choose(
	ctx context.Context, query string, descriptors []domain.ChunkDescriptor, maxChunks int,
) []int {
	if maxChunks <= 0 || maxChunks > len(descriptors) {
		maxChunks = len(descriptors)
	}
	firstN := make([]int, maxChunks)
	for i := range firstN {
		firstN[i] = i
	}
	if len(descriptors) <= maxChunks {
		return firstN
	}

	answer, err := s.llm.complete(ctx, driven.PromptSelector, driven.GenerateOptions{
		MaxTokens:   20 + 5*maxChunks,
		Temperature: 0,
	}, query, maxChunks, formatDescriptors(descriptors))
	if err != nil {
		logger.Warn("AI chunk selection skipped: %v", err)
		return firstN
	}

	values, err := parseJSONArray(answer)
	if err != nil {
		logger.Warn("AI chunk selection unusable: %v", err)
		return firstN
	}

	chosen := validIndices(values, len(descriptors), maxChunks)
	if len(chosen) == 0 {
		logger.Debug("AI chunk selection returned no valid indices")
		return firstN
	}
	return chosen
}

// validIndices keeps in-range integer indices, dropping repeats.
func validIndices(values []gjson.Result, n, limit int) []int {
	seen := make(map[int]bool)
	var out []int
	for _, v := range values {
		if v.Type != gjson.Number || v.Float() != float64(v.Int()) {
			continue
		}
		idx := int(v.Int())
		if idx < 0 || idx >= n || seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, idx)
		if len(out) == limit {
			break
		}
	}
	return out
}

func formatDescriptors(descriptors []domain.ChunkDescriptor) string {
	var b strings.Builder
	for i, d := range descriptors {
		fmt.Fprintf(&b, "[%d] %s", i, d.DocumentName)
		if d.ChapterLabel != "" {
			fmt.Fprintf(&b, " | %s", d.ChapterLabel)
		}
		fmt.Fprintf(&b, " | %.0f%% | %s\n", d.PositionPercent*100, d.Preview)
	}
	return b.String()
}

func (s *Selector) fallback(ctx context.Context, query string, maxChunks int) ([]domain.SearchResult, error) {
	results, err := s.hybrid.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if maxChunks > 0 && len(results) > maxChunks {
		results = results[:maxChunks]
	}
	return results, nil
}

// sortByPosition orders results by document then chunk index.
func sortByPosition(results []domain.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i].Chunk, results[j].Chunk
		if a.DocumentID != b.DocumentID {
			return a.DocumentID < b.DocumentID
		}
		return a.ChunkIndex < b.ChunkIndex
	})
}

// SmartSelectStrategy exposes the selector as a strategy. With
// fromDescriptors it chooses among the documents' own descriptors;
// otherwise among hybrid search candidates.
type SmartSelectStrategy struct {
	selector        *Selector
	documentIDs     []string
	names           map[string]string
	maxChunks       int
	fromDescriptors bool
}

// NewSmartSelectStrategy creates a selector-backed strategy.
func NewSmartSelectStrategy(
	selector *Selector, documentIDs []string, names map[string]string, maxChunks int, fromDescriptors bool,
) *SmartSelectStrategy {
	return &SmartSelectStrategy{
		selector:        selector,
		documentIDs:     documentIDs,
		names:           names,
		maxChunks:       maxChunks,
		fromDescriptors: fromDescriptors,
	}
}

// Name returns the strategy name.
func (s *SmartSelectStrategy) Name() string { return string(domain.StrategySmartSelect) }

// Search selects up to maxChunks chunks for the query.
func (s *SmartSelectStrategy) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	if s.fromDescriptors {
		return s.selector.Select(ctx, query, s.documentIDs, s.names, s.maxChunks)
	}
	return s.selector.SelectHybrid(ctx, query, s.names, s.maxChunks)
}
