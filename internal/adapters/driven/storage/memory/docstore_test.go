package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docscope/internal/core/domain"
)

func TestDocumentStore_SaveGetDelete(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	doc := &domain.Document{ID: "doc-1", Owner: "alice", Name: "a.txt", Status: domain.DocumentStatusReady}
	require.NoError(t, store.SaveDocument(ctx, doc))

	got, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "a.txt", got.Name)

	// Returned copies do not alias stored state.
	got.Name = "changed"
	again, _ := store.GetDocument(ctx, "doc-1")
	assert.Equal(t, "a.txt", again.Name)

	require.NoError(t, store.DeleteDocument(ctx, "doc-1"))
	_, err = store.GetDocument(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.NoError(t, store.DeleteDocument(ctx, "missing"))
}

func TestDocumentStore_ListDocuments(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	_ = store.SaveDocument(ctx, &domain.Document{ID: "old", Owner: "alice", CreatedAt: base})
	_ = store.SaveDocument(ctx, &domain.Document{ID: "new", Owner: "alice", CreatedAt: base.Add(time.Hour)})
	_ = store.SaveDocument(ctx, &domain.Document{ID: "other", Owner: "bob", CreatedAt: base})

	docs, err := store.ListDocuments(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "new", docs[0].ID)
	assert.Equal(t, "old", docs[1].ID)

	all, err := store.ListDocuments(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMetaStore(t *testing.T) {
	store := NewMetaStore()
	ctx := context.Background()

	_, err := store.GetMeta(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	meta := &domain.DocumentMeta{
		DocumentID:    "doc-1",
		TotalChapters: 1,
		Chapters:      []domain.Chapter{{Number: "1", EndChunk: 4}},
	}
	require.NoError(t, store.SaveMeta(ctx, meta))

	meta.Chapters[0].Number = "mutated"
	got, err := store.GetMeta(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "1", got.Chapters[0].Number)

	require.NoError(t, store.DeleteMeta(ctx, "doc-1"))
	_, err = store.GetMeta(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
