package driven

import (
	"context"

	"github.com/custodia-labs/docscope/internal/core/domain"
)

// ChunkStore is the vector and keyword store over document chunks.
// Scoring is delegated entirely to the implementation.
type ChunkStore interface {
	// SaveChunks upserts chunks keyed by ID.
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error

	// DeleteChunks removes every chunk of a document.
	DeleteChunks(ctx context.Context, documentID string) error

	// SimilaritySearch ranks chunks by cosine similarity to vector,
	// dropping results below minSimilarity.
	SimilaritySearch(ctx context.Context, vector []float32, opts SimilarityOptions) ([]domain.SearchResult, error)

	// HybridSearch combines vector similarity and keyword match into one
	// weighted score. A nil vector means keyword-only scoring.
	HybridSearch(ctx context.Context, query HybridQuery) ([]domain.SearchResult, error)

	// FetchByIDs loads full chunks for the given IDs. Missing IDs are skipped.
	FetchByIDs(ctx context.Context, ids []string) ([]domain.Chunk, error)

	// FetchAll returns every chunk of the documents ordered by document
	// then chunk_index.
	FetchAll(ctx context.Context, documentIDs []string) ([]domain.Chunk, error)

	// FetchDescriptors returns lightweight descriptors without content or
	// vectors, ordered by document then chunk_index. A limit <= 0 means all.
	FetchDescriptors(ctx context.Context, documentIDs []string, limit int) ([]domain.ChunkDescriptor, error)
}

// SimilarityOptions configures a vector search.
type SimilarityOptions struct {
	// DocumentIDs restricts the search; empty means all documents.
	DocumentIDs []string

	// TopK is the maximum number of results.
	TopK int

	// MinSimilarity is the cosine threshold in [0, 1].
	MinSimilarity float64
}

// HybridQuery configures a combined vector and keyword search.
type HybridQuery struct {
	// Text is matched against the keyword index.
	Text string

	// Vector is the query embedding; nil disables the semantic component.
	Vector []float32

	// SemanticWeight and KeywordWeight scale the two scores. They need not sum to 1.
	SemanticWeight float64
	KeywordWeight  float64

	DocumentIDs   []string
	TopK          int
	MinSimilarity float64
}
