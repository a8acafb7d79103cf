package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/docscope/internal/core/domain"
	"github.com/custodia-labs/docscope/internal/core/ports/driven"
)

// Ensure DocumentStore and MetaStore implement the interfaces.
var (
	_ driven.DocumentStore = (*DocumentStore)(nil)
	_ driven.MetaStore     = (*MetaStore)(nil)
)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]domain.Document),
	}
}

// SaveDocument stores or updates a document.
func (s *DocumentStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.ID] = *doc
	return nil
}

// GetDocument retrieves a document by ID.
func (s *DocumentStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// DeleteDocument removes a document.
func (s *DocumentStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, id)
	return nil
}

// ListDocuments returns documents for an owner, newest first.
func (s *DocumentStore) ListDocuments(_ context.Context, owner string) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Document, 0, len(s.documents))
	for id := range s.documents {
		doc := s.documents[id]
		if owner == "" || doc.Owner == owner {
			result = append(result, doc)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// MetaStore is an in-memory implementation of driven.MetaStore.
type MetaStore struct {
	mu    sync.RWMutex
	metas map[string]domain.DocumentMeta
}

// NewMetaStore creates a new in-memory meta store.
func NewMetaStore() *MetaStore {
	return &MetaStore{metas: make(map[string]domain.DocumentMeta)}
}

// SaveMeta stores or replaces the meta for its document.
func (s *MetaStore) SaveMeta(_ context.Context, meta *domain.DocumentMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *meta
	stored.Chapters = append([]domain.Chapter(nil), meta.Chapters...)
	s.metas[meta.DocumentID] = stored
	return nil
}

// GetMeta returns the cached meta for a document.
func (s *MetaStore) GetMeta(_ context.Context, documentID string) (*domain.DocumentMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	meta, ok := s.metas[documentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &meta, nil
}

// DeleteMeta removes cached meta.
func (s *MetaStore) DeleteMeta(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.metas, documentID)
	return nil
}
