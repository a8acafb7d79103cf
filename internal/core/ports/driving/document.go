package driving

import (
	"context"

	"github.com/custodia-labs/docscope/internal/core/domain"
)

// DocumentService manages the document corpus.
type DocumentService interface {
	// Ingest normalises, chunks, embeds and stores an upload, then builds its meta.
	Ingest(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error)

	// Reprocess deletes every chunk of a document and recreates them from its content.
	Reprocess(ctx context.Context, documentID string) (*domain.Document, error)

	// Delete removes a document with its chunks and meta.
	Delete(ctx context.Context, documentID string) error

	// Get retrieves a document by ID.
	Get(ctx context.Context, documentID string) (*domain.Document, error)

	// List returns documents for an owner; empty owner lists all.
	List(ctx context.Context, owner string) ([]domain.Document, error)

	// Chapters derives the chapter structure from stored chunks.
	Chapters(ctx context.Context, documentID string) ([]domain.Chapter, error)

	// Meta returns cached meta, rebuilding it when missing or stale.
	Meta(ctx context.Context, documentID string) (*domain.DocumentMeta, error)

	// RebuildMeta recomputes meta unconditionally.
	RebuildMeta(ctx context.Context, documentID string) (*domain.DocumentMeta, error)
}
