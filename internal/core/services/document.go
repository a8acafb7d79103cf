package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/docscope/internal/core/domain"
	"github.com/custodia-labs/docscope/internal/core/ports/driven"
	"github.com/custodia-labs/docscope/internal/core/ports/driving"
	"github.com/custodia-labs/docscope/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService ingests documents and serves their structure.
type DocumentService struct {
	docs        driven.DocumentStore
	chunks      driven.ChunkStore
	metas       driven.MetaStore
	normalisers driven.NormaliserRegistry
	pipeline    driven.PostProcessorPipeline
	meta        *MetaService
	now         func() time.Time
}

// NewDocumentService creates a new document service.
func NewDocumentService(
	docs driven.DocumentStore,
	chunks driven.ChunkStore,
	metas driven.MetaStore,
	normalisers driven.NormaliserRegistry,
	pipeline driven.PostProcessorPipeline,
	meta *MetaService,
) *DocumentService {
	return &DocumentService{
		docs:        docs,
		chunks:      chunks,
		metas:       metas,
		normalisers: normalisers,
		pipeline:    pipeline,
		meta:        meta,
		now:         time.Now,
	}
}

// Ingest normalises an upload, stores it and processes it to ready.
// A processing failure leaves the document in the error state and is
// returned alongside it.
func (s *DocumentService) Ingest(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil || len(raw.Content) == 0 {
		return nil, fmt.Errorf("%w: empty upload", domain.ErrInvalidInput)
	}
	logger.Section("Ingest")
	logger.Debug("Document %q (%s, %d bytes)", raw.Name, raw.MIMEType, len(raw.Content))

	result, err := s.normalisers.Normalise(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("normalise %q: %w", raw.Name, err)
	}
	if strings.TrimSpace(result.Document.Content) == "" {
		return nil, fmt.Errorf("%w: %q has no text content", domain.ErrInvalidInput, raw.Name)
	}

	now := s.now()
	doc := result.Document
	doc.ID = uuid.NewString()
	doc.Owner = raw.Owner
	doc.Name = raw.Name
	if doc.Name == "" {
		doc.Name = "untitled"
	}
	doc.ContentType = raw.MIMEType
	doc.Status = domain.DocumentStatusPending
	doc.TotalChars = utf8.RuneCountInString(doc.Content)
	doc.CreatedAt = now
	doc.UpdatedAt = now

	if err := s.docs.SaveDocument(ctx, &doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	if err := s.process(ctx, &doc); err != nil {
		return &doc, err
	}
	return &doc, nil
}

// Reprocess deletes every chunk of the document and recreates them.
func (s *DocumentService) Reprocess(ctx context.Context, documentID string) (*domain.Document, error) {
	doc, err := s.docs.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := s.chunks.DeleteChunks(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("delete chunks: %w", err)
	}
	if err := s.metas.DeleteMeta(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("delete meta: %w", err)
	}
	if err := s.process(ctx, doc); err != nil {
		return doc, err
	}
	return doc, nil
}

// process runs the chunking pipeline and moves the document through
// processing to ready or error.
func (s *DocumentService) process(ctx context.Context, doc *domain.Document) error {
	doc.Status = domain.DocumentStatusProcessing
	doc.Error = ""
	doc.TotalChunks = 0
	if err := s.docs.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("save document: %w", err)
	}

	start := s.now()
	chunks, err := s.pipeline.Process(ctx, doc)
	if err == nil {
		err = s.chunks.SaveChunks(ctx, chunks)
	}
	if err != nil {
		return s.fail(ctx, doc, err)
	}

	sample := headRunes(doc.Content, ClassificationSampleChars)
	doc.TotalChunks = len(chunks)
	doc.DocumentType = ClassifyDocumentType(sample)
	doc.Language = DetectLanguage(sample)
	doc.Status = domain.DocumentStatusReady
	doc.UpdatedAt = s.now()
	if err := s.docs.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	logger.Info("Processed %s (%s): %d chunks in %v", doc.Name, doc.ID, doc.TotalChunks,
		s.now().Sub(start).Round(time.Millisecond))

	if _, err := s.meta.Build(ctx, doc.ID); err != nil {
		logger.Warn("build meta for %s: %v", doc.ID, err)
	}
	return nil
}

// fail records a processing error on the document.
func (s *DocumentService) fail(ctx context.Context, doc *domain.Document, cause error) error {
	doc.Status = domain.DocumentStatusError
	doc.Error = cause.Error()
	doc.UpdatedAt = s.now()
	if err := s.docs.SaveDocument(ctx, doc); err != nil {
		logger.Warn("record failure of %s: %v", doc.ID, err)
	}
	return fmt.Errorf("process %s: %w", doc.ID, cause)
}

// Delete removes a document with its chunks and meta.
func (s *DocumentService) Delete(ctx context.Context, documentID string) error {
	if _, err := s.docs.GetDocument(ctx, documentID); err != nil {
		return err
	}
	if err := s.chunks.DeleteChunks(ctx, documentID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if err := s.metas.DeleteMeta(ctx, documentID); err != nil {
		return fmt.Errorf("delete meta: %w", err)
	}
	return s.docs.DeleteDocument(ctx, documentID)
}

// Get retrieves a document by ID.
func (s *DocumentService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	return s.docs.GetDocument(ctx, documentID)
}

// List returns documents for an owner, newest first.
func (s *DocumentService) List(ctx context.Context, owner string) ([]domain.Document, error) {
	return s.docs.ListDocuments(ctx, owner)
}

// Chapters returns the chapter structure of a ready document.
func (s *DocumentService) Chapters(ctx context.Context, documentID string) ([]domain.Chapter, error) {
	meta, err := s.meta.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return meta.Chapters, nil
}

// Meta returns the cached meta, rebuilding it when missing or stale.
func (s *DocumentService) Meta(ctx context.Context, documentID string) (*domain.DocumentMeta, error) {
	return s.meta.Get(ctx, documentID)
}

// RebuildMeta recomputes meta unconditionally.
func (s *DocumentService) RebuildMeta(ctx context.Context, documentID string) (*domain.DocumentMeta, error) {
	return s.meta.Build(ctx, documentID)
}
