package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/docscope/internal/core/domain"
	"github.com/custodia-labs/docscope/internal/core/ports/driving"
)

var errMock = errors.New("mock failure")

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// setupTestServices installs mock services and returns a cleanup func that
// restores the previous ones.
func setupTestServices() func() {
	oldDocs, oldContext, oldSettings, oldWatcher := documentService, contextService, settingsService, promptWatcher

	documentService = newMockDocumentService()
	contextService = &mockContextService{}
	settingsService = newMockSettingsService()
	promptWatcher = nil

	return func() {
		documentService, contextService, settingsService, promptWatcher = oldDocs, oldContext, oldSettings, oldWatcher
	}
}

// resetFlags restores a command's flags to their defaults between runs.
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil) //nolint:errcheck // test helper
		} else {
			_ = f.Value.Set(f.DefValue) //nolint:errcheck // test helper
		}
		f.Changed = false
	})
}

// mockDocumentService is a configurable driving.DocumentService.
type mockDocumentService struct {
	documents []domain.Document
	chapters  []domain.Chapter
	meta      *domain.DocumentMeta
	err       error

	ingested []*domain.RawDocument
	deleted  []string
	rebuilt  bool
}

func newMockDocumentService() *mockDocumentService {
	chapters := []domain.Chapter{
		{Number: "1", Title: "General provisions", StartChunk: 0, EndChunk: 3},
		{Number: "2", Title: "Liability of the parties", StartChunk: 4, EndChunk: 9},
	}
	return &mockDocumentService{
		documents: []domain.Document{
			{
				ID:           "doc-1",
				Name:         "Test Document 1",
				ContentType:  "text/plain",
				Status:       domain.DocumentStatusReady,
				DocumentType: domain.DocumentTypeLegal,
				Language:     "en",
				TotalChunks:  10,
				TotalChars:   14000,
				CreatedAt:    testTime,
				UpdatedAt:    testTime,
			},
		},
		chapters: chapters,
		meta: &domain.DocumentMeta{
			DocumentID:    "doc-1",
			DocumentName:  "Test Document 1",
			TotalChapters: len(chapters),
			Chapters:      chapters,
			TotalChunks:   10,
			TotalChars:    14000,
			DocumentType:  domain.DocumentTypeLegal,
			Language:      "en",
			Status:        domain.DocumentStatusReady,
			BuiltAt:       testTime,
		},
	}
}

func (m *mockDocumentService) Ingest(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.ingested = append(m.ingested, raw)
	return &domain.Document{
		ID:           "doc-new",
		Name:         raw.Name,
		Status:       domain.DocumentStatusReady,
		DocumentType: domain.DocumentTypeGeneric,
		TotalChunks:  3,
	}, nil
}

func (m *mockDocumentService) Reprocess(_ context.Context, id string) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	doc := m.documents[0]
	doc.ID = id
	return &doc, nil
}

func (m *mockDocumentService) Delete(_ context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockDocumentService) Get(_ context.Context, _ string) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &m.documents[0], nil
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
	m.rebuilt = true
	return m.meta, m.err
}

// mockContextService is a configurable driving.ContextService.
type mockContextService struct {
	err error

	lastContext domain.ContextRequest
	lastSearch  driving.SearchRequest
}

func (m *mockContextService) BuildContext(_ context.Context, req domain.ContextRequest) (*domain.ContextResult, error) {
	m.lastContext = req
	if m.err != nil {
		return nil, m.err
	}
	return &domain.ContextResult{
		Context: "[1] Test Document 1, chapter 2: Liability of the parties, fragment 5\nThe supplier pays a penalty.",
		Sources: []domain.Source{
			{
				Index:        1,
				DocumentID:   "doc-1",
				DocumentName: "Test Document 1",
				ChunkIndex:   4,
				Citation:     "Test Document 1, chapter 2: Liability of the parties, fragment 5",
			},
		},
		Intent: domain.Intent{
			Scope:  domain.ScopeSearch,
			Task:   domain.TaskFindPenalties,
			Method: domain.IntentMethodAI,
		},
		Debug: map[string]any{"strategy": "hybrid", "chunks": 1},
	}, nil
}

func (m *mockContextService) Search(_ context.Context, req driving.SearchRequest) ([]domain.SearchResult, error) {
	m.lastSearch = req
	if m.err != nil {
		return nil, m.err
	}
	return []domain.SearchResult{
		{
			Chunk: domain.Chunk{
				ID:         "chunk-1",
				DocumentID: "doc-1",
				ChunkIndex: 4,
				Content:    "The supplier pays a penalty\nof 0.1% per day of delay.",
				Metadata:   domain.ChunkMetadata{ChapterNumber: "2", ChapterTitle: "Liability of the parties"},
			},
			Similarity:   0.87,
			DocumentName: "Test Document 1",
		},
	}, nil
}

// mockSettingsService is a configurable driving.SettingsService.
type mockSettingsService struct {
	settings domain.AppSettings
	err      error
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{settings: domain.DefaultAppSettings()}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	if m.err != nil {
		return nil, m.err
	}
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.settings = *settings
	return m.err
}

func (m *mockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	m.settings.Embedding.Provider = provider
	m.settings.Embedding.Model = model
	m.settings.Embedding.APIKey = apiKey
	return m.err
}

func (m *mockSettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	m.settings.LLM.Provider = provider
	m.settings.LLM.Model = model
	m.settings.LLM.APIKey = apiKey
	return m.err
}

func (m *mockSettingsService) SetRetrieval(cfg domain.RetrievalConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.settings.Retrieval = cfg
	return m.err
}

func (m *mockSettingsService) Validate() error { return m.err }

func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }

func (m *mockSettingsService) ValidateEmbeddingConfig() error { return m.err }

func (m *mockSettingsService) ValidateLLMConfig() error { return m.err }
