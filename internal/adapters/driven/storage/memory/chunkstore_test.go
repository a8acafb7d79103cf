package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docscope/internal/core/domain"
	"github.com/custodia-labs/docscope/internal/core/ports/driven"
)

func seedChunks(t *testing.T, store *ChunkStore) {
	t.Helper()
	chunks := []domain.Chunk{
		{ID: "a2", DocumentID: "doc-a", ChunkIndex: 2, Content: "penalties for late payment", Embedding: []float32{0, 1}},
		{ID: "a0", DocumentID: "doc-a", ChunkIndex: 0, Content: "definitions of terms", Embedding: []float32{1, 0}},
		{ID: "a1", DocumentID: "doc-a", ChunkIndex: 1, Content: "payment schedule and deadlines", Embedding: []float32{0.7, 0.7}},
		{ID: "b0", DocumentID: "doc-b", ChunkIndex: 0, Content: "unrelated cooking recipe", Embedding: []float32{-1, 0}},
	}
	require.NoError(t, store.SaveChunks(context.Background(), chunks))
}

func TestChunkStore_FetchAllOrdered(t *testing.T) {
	store := NewChunkStore()
	seedChunks(t, store)

	chunks, err := store.FetchAll(context.Background(), []string{"doc-a"})
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.Equal(t, i, c.ChunkIndex)
	}

	all, err := store.FetchAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, "doc-b", all[3].DocumentID)
}

func TestChunkStore_SaveChunksUpserts(t *testing.T) {
	store := NewChunkStore()
	seedChunks(t, store)

	require.NoError(t, store.SaveChunks(context.Background(), []domain.Chunk{
		{ID: "a0", DocumentID: "doc-a", ChunkIndex: 0, Content: "replaced"},
	}))
	chunks, _ := store.FetchAll(context.Background(), []string{"doc-a"})
	require.Len(t, chunks, 3)
	assert.Equal(t, "replaced", chunks[0].Content)
}

func TestChunkStore_SimilaritySearch(t *testing.T) {
	store := NewChunkStore()
	seedChunks(t, store)

	results, err := store.SimilaritySearch(context.Background(), []float32{1, 0}, driven.SimilarityOptions{
		TopK:          2,
		MinSimilarity: 0.5,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a0", results[0].Chunk.ID)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)
	assert.Equal(t, "a1", results[1].Chunk.ID)
}

func TestChunkStore_HybridSearch(t *testing.T) {
	store := NewChunkStore()
	seedChunks(t, store)
	ctx := context.Background()

	t.Run("weighted", func(t *testing.T) {
		results, err := store.HybridSearch(ctx, driven.HybridQuery{
			Text:           "payment",
			Vector:         []float32{0, 1},
			SemanticWeight: 0.7,
			KeywordWeight:  0.3,
			MinSimilarity:  0.3,
			TopK:           10,
		})
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, "a2", results[0].Chunk.ID)
		for _, r := range results {
			assert.LessOrEqual(t, r.Similarity, 1.0)
			assert.NotEqual(t, "b0", r.Chunk.ID)
		}
	})

	t.Run("keyword only", func(t *testing.T) {
		results, err := store.HybridSearch(ctx, driven.HybridQuery{Text: "deadlines payment", TopK: 10})
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "a1", results[0].Chunk.ID)
		assert.InDelta(t, 1.0, results[0].Similarity, 1e-9)
		assert.InDelta(t, 0.5, results[1].Similarity, 1e-9)
	})

	t.Run("document filter", func(t *testing.T) {
		results, err := store.HybridSearch(ctx, driven.HybridQuery{Text: "recipe", DocumentIDs: []string{"doc-a"}, TopK: 5})
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestChunkStore_KeywordSearchCoversContextLabel(t *testing.T) {
	store := NewChunkStore()
	ctx := context.Background()
	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
		{
			ID: "l0", DocumentID: "doc-l", ChunkIndex: 0,
			Content:            "The supplier pays within ten days.",
			ContentWithContext: "[Document: Leasing Agreement | Chapter 4: Indemnification]\nThe supplier pays within ten days.",
		},
		{ID: "l1", DocumentID: "doc-l", ChunkIndex: 1, Content: "Notices are sent by registered mail."},
	}))

	byLabel, err := store.HybridSearch(ctx, driven.HybridQuery{Text: "indemnification", TopK: 5})
	require.NoError(t, err)
	require.Len(t, byLabel, 1)
	assert.Equal(t, "l0", byLabel[0].Chunk.ID)

	byContent, err := store.HybridSearch(ctx, driven.HybridQuery{Text: "registered", TopK: 5})
	require.NoError(t, err)
	require.Len(t, byContent, 1)
	assert.Equal(t, "l1", byContent[0].Chunk.ID)
}

func TestChunkStore_FetchByIDsAndDescriptors(t *testing.T) {
	store := NewChunkStore()
	seedChunks(t, store)
	ctx := context.Background()

	chunks, err := store.FetchByIDs(ctx, []string{"a2", "missing", "a0"})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "a0", chunks[0].ID)
	assert.Equal(t, "a2", chunks[1].ID)

	descriptors, err := store.FetchDescriptors(ctx, []string{"doc-a"}, 2)
	require.NoError(t, err)
	require.Len(t, descriptors, 2)
	assert.Equal(t, "a0", descriptors[0].ChunkID)
	assert.Equal(t, "definitions of terms", descriptors[0].Preview)
}

func TestChunkStore_DeleteChunks(t *testing.T) {
	store := NewChunkStore()
	seedChunks(t, store)

	require.NoError(t, store.DeleteChunks(context.Background(), "doc-a"))
	chunks, _ := store.FetchAll(context.Background(), []string{"doc-a"})
	assert.Empty(t, chunks)
}

func BenchmarkChunkStore_HybridSearch(b *testing.B) {
	store := NewChunkStore()
	chunks := make([]domain.Chunk, 1000)
	for i := range chunks {
		chunks[i] = domain.Chunk{
			ID:         fmt.Sprintf("c%d", i),
			DocumentID: "doc",
			ChunkIndex: i,
			Content:    fmt.Sprintf("clause %d about payment terms", i),
			Embedding:  []float32{float32(i % 7), 1},
		}
	}
	_ = store.SaveChunks(context.Background(), chunks)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = store.HybridSearch(context.Background(), driven.HybridQuery{
			Text: "payment", Vector: []float32{1, 1}, SemanticWeight: 0.7, KeywordWeight: 0.3, TopK: 20,
		})
	}
}
