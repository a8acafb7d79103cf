package domain

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentStatus_IsValid(t *testing.T) {
	tests := []struct {
		status   DocumentStatus
		expected bool
	}{
		{DocumentStatusPending, true},
		{DocumentStatusProcessing, true},
		{DocumentStatusReady, true},
		{DocumentStatusError, true},
		{DocumentStatus(""), false},
		{DocumentStatus("done"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.status.IsValid())
		})
	}
}

func TestDocument_IsReady(t *testing.T) {
	doc := &Document{Status: DocumentStatusProcessing}
	assert.False(t, doc.IsReady())

	doc.Status = DocumentStatusReady
	assert.True(t, doc.IsReady())
}

func TestChunkMetadata_Label(t *testing.T) {
	assert.Equal(t, "", ChunkMetadata{}.Label())
	assert.Equal(t, "chapter 3", ChunkMetadata{ChapterNumber: "3"}.Label())
	assert.Equal(t, "chapter 1.2: Scope", ChunkMetadata{ChapterNumber: "1.2", ChapterTitle: "Scope"}.Label())
}

func TestChunk_Key(t *testing.T) {
	c := &Chunk{ID: "c1", DocumentID: "doc-1", ChunkIndex: 4}
	assert.Equal(t, ChunkKey{DocumentID: "doc-1", ChunkIndex: 4}, c.Key())
}

func TestDocumentMeta_IsStale(t *testing.T) {
	built := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	meta := &DocumentMeta{BuiltAt: built}

	assert.False(t, meta.IsStale(&Document{UpdatedAt: built.Add(-time.Hour)}))
	assert.False(t, meta.IsStale(&Document{UpdatedAt: built}))
	assert.True(t, meta.IsStale(&Document{UpdatedAt: built.Add(time.Second)}))
}

func TestChapter_Helpers(t *testing.T) {
	chapters := []Chapter{
		{Number: "1", StartChunk: 0, EndChunk: 3},
		{Number: "2", StartChunk: 4, EndChunk: 9},
	}

	assert.Equal(t, []string{"1", "2"}, ChapterNumbers(chapters))

	ch, ok := FindChapter(chapters, "2")
	assert.True(t, ok)
	assert.Equal(t, 6, ch.ChunkCount())
	assert.True(t, ch.Contains(4))
	assert.True(t, ch.Contains(9))
	assert.False(t, ch.Contains(3))

	_, ok = FindChapter(chapters, "7")
	assert.False(t, ok)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "a b c", Preview("  a\n\n b\tc  ", 10))
	assert.Equal(t, "Глав", Preview("Глава первая", 4))
	assert.Equal(t, "", Preview("   ", 5))
}

func TestDescriptorFor(t *testing.T) {
	c := &Chunk{
		ID:         "c-7",
		DocumentID: "doc-1",
		ChunkIndex: 7,
		Content:    strings.Repeat("x", 400),
		Metadata:   ChunkMetadata{ChapterNumber: "2", PositionPercent: 0.4},
	}

	d := DescriptorFor(c, "book.txt")

	assert.Equal(t, "c-7", d.ChunkID)
	assert.Equal(t, "book.txt", d.DocumentName)
	assert.Equal(t, "chapter 2", d.ChapterLabel)
	assert.InDelta(t, 0.4, d.PositionPercent, 1e-9)
	assert.Len(t, d.Preview, DescriptorPreviewChars)
}

func TestChapter_MergedNumbers(t *testing.T) {
	chapters := []Chapter{
		{Number: "1", StartChunk: 0, EndChunk: 0, Merged: []string{"2"}},
		{Number: "3", StartChunk: 1, EndChunk: 5},
	}

	assert.Equal(t, []string{"1", "2", "3"}, ChapterNumbers(chapters))

	ch, ok := FindChapter(chapters, "2")
	assert.True(t, ok)
	assert.Equal(t, "1", ch.Number)
}

func TestChapter_Slice(t *testing.T) {
	chunks := make([]Chunk, 8)
	for i := range chunks {
		chunks[i] = Chunk{ChunkIndex: i, Content: fmt.Sprintf("part %d", i)}
	}
	ch := Chapter{Number: "2", StartChunk: 3, EndChunk: 5}

	got := ch.Slice(chunks)
	require.Len(t, got, 3)
	assert.Equal(t, 3, got[0].ChunkIndex)
	assert.Equal(t, "part 5", got[2].Content)

	assert.Empty(t, Chapter{StartChunk: 20, EndChunk: 25}.Slice(chunks))
	assert.Empty(t, ch.Slice(nil))
}
