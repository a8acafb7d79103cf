package mcp

import (
	"context"

	"github.com/custodia-labs/docscope/internal/core/domain"
	"github.com/custodia-labs/docscope/internal/core/ports/driving"
)

// mockContextService is a mock implementation of driving.ContextService.
type mockContextService struct {
	result  *domain.ContextResult
	results []domain.SearchResult
	err     error

	lastContext domain.ContextRequest
	lastSearch  driving.SearchRequest
}

func (m *mockContextService) BuildContext(_ context.Context, req domain.ContextRequest) (*domain.ContextResult, error) {
	m.lastContext = req
	return m.result, m.err
}

func (m *mockContextService) Search(_ context.Context, req driving.SearchRequest) ([]domain.SearchResult, error) {
	m.lastSearch = req
	return m.results, m.err
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.Document
	document  *domain.Document
	chapters  []domain.Chapter
	meta      *domain.DocumentMeta
	err       error
}

func (m *mockDocumentService) Ingest(_ context.Context, _ *domain.RawDocument) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) Reprocess(_ context.Context, _ string) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, _ string) error {
	return m.err
}

func (m *mockDocumentService) Get(_ context.Context, _ string) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) List(_ context.Context, _ string) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) Chapters(_ context.Context, _ string) ([]domain.Chapter, error) {
	return m.chapters, m.err
}

func (m *mockDocumentService) Meta(_ context.Context, _ string) (*domain.DocumentMeta, error) {
	return m.meta, m.err
}

func (m *mockDocumentService) RebuildMeta(_ context.Context, _ string) (*domain.DocumentMeta, error) {
	return m.meta, m.err
}
