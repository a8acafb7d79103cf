package memory

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/custodia-labs/docscope/internal/core/domain"
	"github.com/custodia-labs/docscope/internal/core/ports/driven"
)

// Ensure ChunkStore implements the interface.
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore is an in-memory implementation of driven.ChunkStore.
// Vector scores are exact cosine similarity; keyword scores are the share
// of query terms present in a chunk.
type ChunkStore struct {
	mu     sync.RWMutex
	chunks map[string]map[int]domain.Chunk
}

// NewChunkStore creates a new in-memory chunk store.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{chunks: make(map[string]map[int]domain.Chunk)}
}

// SaveChunks upserts chunks by (document, chunk_index).
func (s *ChunkStore) SaveChunks(_ context.Context, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range chunks {
		c := chunks[i]
		byIndex, ok := s.chunks[c.DocumentID]
		if !ok {
			byIndex = make(map[int]domain.Chunk)
			s.chunks[c.DocumentID] = byIndex
		}
		byIndex[c.ChunkIndex] = c
	}
	return nil
}

// DeleteChunks removes every chunk of a document.
func (s *ChunkStore) DeleteChunks(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chunks, documentID)
	return nil
}

// SimilaritySearch ranks chunks by cosine similarity.
func (s *ChunkStore) SimilaritySearch(
	_ context.Context, vector []float32, opts driven.SimilarityOptions,
) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []domain.SearchResult
	for _, c := range s.ordered(opts.DocumentIDs) {
		sim := cosine(vector, c.Embedding)
		if sim < opts.MinSimilarity || sim <= 0 {
			continue
		}
		results = append(results, domain.SearchResult{Chunk: c, Similarity: sim})
	}
	return topK(results, opts.TopK), nil
}

// HybridSearch scores every chunk by weighted cosine and keyword share.
// A chunk qualifies when its cosine reaches MinSimilarity or it matches a
// query term; with a nil vector only keyword matches qualify.
func (s *ChunkStore) HybridSearch(_ context.Context, q driven.HybridQuery) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	terms := queryTerms(q.Text)
	var results []domain.SearchResult
	for _, c := range s.ordered(q.DocumentIDs) {
		kw := keywordScore(terms, keywordText(c))
		sem := 0.0
		if q.Vector != nil {
			sem = cosine(q.Vector, c.Embedding)
		}
		if kw == 0 && (q.Vector == nil || sem < q.MinSimilarity) {
			continue
		}

		score := kw
		if q.Vector != nil {
			score = q.SemanticWeight*sem + q.KeywordWeight*kw
		}
		results = append(results, domain.SearchResult{Chunk: c, Similarity: clamp01(score)})
	}
	return topK(results, q.TopK), nil
}

// FetchByIDs loads chunks by ID in (document, chunk_index) order.
func (s *ChunkStore) FetchByIDs(_ context.Context, ids []string) ([]domain.Chunk, error) {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Chunk
	for _, c := range s.ordered(nil) {
		if _, ok := want[c.ID]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// FetchAll returns every chunk of the documents in order.
func (s *ChunkStore) FetchAll(_ context.Context, documentIDs []string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ordered(documentIDs), nil
}

// FetchDescriptors returns lightweight chunk descriptors in order.
func (s *ChunkStore) FetchDescriptors(
	_ context.Context, documentIDs []string, limit int,
) ([]domain.ChunkDescriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunks := s.ordered(documentIDs)
	if limit > 0 && len(chunks) > limit {
		chunks = chunks[:limit]
	}
	out := make([]domain.ChunkDescriptor, 0, len(chunks))
	for i := range chunks {
		out = append(out, domain.DescriptorFor(&chunks[i], ""))
	}
	return out, nil
}

// ordered returns chunks of the given documents (all when empty) sorted by
// document then chunk_index. Caller must hold the lock.
func (s *ChunkStore) ordered(documentIDs []string) []domain.Chunk {
	docs := documentIDs
	if len(docs) == 0 {
		docs = make([]string, 0, len(s.chunks))
		for id := range s.chunks {
			docs = append(docs, id)
		}
		sort.Strings(docs)
	}

	var out []domain.Chunk
	for _, docID := range docs {
		byIndex := s.chunks[docID]
		start := len(out)
		for _, c := range byIndex {
			out = append(out, c)
		}
		part := out[start:]
		sort.Slice(part, func(i, j int) bool { return part[i].ChunkIndex < part[j].ChunkIndex })
	}
	return out
}

func topK(results []domain.SearchResult, k int) []domain.SearchResult {
	sort.SliceStable(results, func(i, j int) bool { return results[i].Similarity > results[j].Similarity })
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return clamp01(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// queryTerms lowercases the query and keeps distinct words of two or more runes.
func queryTerms(text string) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, f := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len([]rune(f)) < 2 {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, f)
	}
	return terms
}

// keywordText is the text keyword search runs over: the labelled content
// when present, as in the SQLite full-text index.
func keywordText(c domain.Chunk) string {
	if c.ContentWithContext != "" {
		return c.ContentWithContext
	}
	return c.Content
}

func keywordScore(terms []string, content string) float64 {
	if len(terms) == 0 {
		return 0
	}
	lower := strings.ToLower(content)
	hits := 0
	for _, t := range terms {
		if strings.Contains(lower, t) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}
