package driven

import (
	"context"

	"github.com/custodia-labs/docscope/internal/core/domain"
)

// DocumentStore persists document records.
// Backed by SQLite for metadata storage.
type DocumentStore interface {
	// SaveDocument stores or updates a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// DeleteDocument removes a document record. Missing IDs are not an error.
	DeleteDocument(ctx context.Context, id string) error

	// ListDocuments returns documents for an owner, newest first.
	// An empty owner lists every document.
	ListDocuments(ctx context.Context, owner string) ([]domain.Document, error)
}

// MetaStore is the keyed DocumentMeta cache.
type MetaStore interface {
	// SaveMeta stores or replaces the meta for its document.
	SaveMeta(ctx context.Context, meta *domain.DocumentMeta) error

	// GetMeta returns domain.ErrNotFound when no meta is cached.
	GetMeta(ctx context.Context, documentID string) (*domain.DocumentMeta, error)

	// DeleteMeta removes cached meta. Missing entries are not an error.
	DeleteMeta(ctx context.Context, documentID string) error
}
