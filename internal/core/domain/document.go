package domain

import (
	"strings"
	"time"
)

// DocumentStatus tracks a document through the ingestion pipeline.
type DocumentStatus string

// Document lifecycle states.
const (
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusReady      DocumentStatus = "ready"
	DocumentStatusError      DocumentStatus = "error"
)

// IsValid returns true if the status is recognised.
func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocumentStatusPending, DocumentStatusProcessing, DocumentStatusReady, DocumentStatusError:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s DocumentStatus) String() string {
	return string(s)
}

// DocumentType is the coarse genre of a document, classified from its content.
type DocumentType string

// Known document types.
const (
	DocumentTypeLegal    DocumentType = "legal"
	DocumentTypeBook     DocumentType = "book"
	DocumentTypeCode     DocumentType = "code"
	DocumentTypeAcademic DocumentType = "academic"
	DocumentTypeGeneric  DocumentType = "generic"
)

// Language codes produced by the script-ratio heuristic.
const (
	LanguageRussian = "ru"
	LanguageEnglish = "en"
	LanguageUnknown = "unknown"
)

// Document represents an ingested document.
// It is immutable once ready, except for full reprocessing.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Owner is the user or tenant the document belongs to.
	Owner string

	// Name is the human-readable document name (usually the file name).
	Name string

	// ContentType is the MIME type the document was uploaded as.
	ContentType string

	// Status is the processing state.
	Status DocumentStatus

	// Error holds the last processing failure when Status is error.
	Error string

	// TotalChunks is the number of chunks produced.
	TotalChunks int

	// TotalChars is the length of the normalised text in characters.
	TotalChars int

	// DocumentType is the classified genre.
	DocumentType DocumentType

	// Language is the detected language code.
	Language string

	// Content is the normalised plain text before chunking.
	Content string

	// CreatedAt is when the document was first ingested.
	CreatedAt time.Time

	// UpdatedAt is when the document was last processed.
	UpdatedAt time.Time
}

// IsReady returns true if the document can be queried.
func (d *Document) IsReady() bool {
	return d.Status == DocumentStatusReady
}

// ChunkMetadata holds the structural position of a chunk.
type ChunkMetadata struct {
	// ChapterNumber is the chapter identifier, possibly non-numeric ("1.2").
	ChapterNumber string `json:"chapter_number,omitempty"`

	// ChapterTitle is the detected chapter title.
	ChapterTitle string `json:"chapter_title,omitempty"`

	// SectionHeader is the full header line the chapter was detected from.
	SectionHeader string `json:"section_header,omitempty"`

	// PositionPercent is start_char / total_length in [0, 1].
	PositionPercent float64 `json:"position_percent"`
}

// Label returns a human-readable chapter label, or empty when unknown.
func (m ChunkMetadata) Label() string {
	if m.ChapterNumber == "" {
		return ""
	}
	if m.ChapterTitle == "" {
		return "chapter " + m.ChapterNumber
	}
	return "chapter " + m.ChapterNumber + ": " + m.ChapterTitle
}

// Chunk is a bounded, offset-tracked slice of a document's text.
// Chunks are immutable once created.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// ChunkIndex is dense, 0-based and strictly increasing per document.
	ChunkIndex int

	// Content is the exact source substring [StartChar, EndChar).
	Content string

	// ContentWithContext is Content prefixed with a document/chapter label.
	ContentWithContext string

	// StartChar is the inclusive start offset into the source text (runes).
	StartChar int

	// EndChar is the exclusive end offset into the source text (runes).
	EndChar int

	// Embedding is the vector representation for semantic search.
	Embedding []float32

	// Metadata is the chunk's structural position.
	Metadata ChunkMetadata
}

// ChunkKey identifies a chunk by document and index for de-duplication.
type ChunkKey struct {
	DocumentID string
	ChunkIndex int
}

// Key returns the chunk's (document, index) identity.
func (c *Chunk) Key() ChunkKey {
	return ChunkKey{DocumentID: c.DocumentID, ChunkIndex: c.ChunkIndex}
}

// ChunkDescriptor is a lightweight view of a chunk without content or vector.
// It is what the smart selector shows the LLM in its first stage.
type ChunkDescriptor struct {
	ChunkID         string
	DocumentID      string
	DocumentName    string
	ChunkIndex      int
	ChapterLabel    string
	PositionPercent float64
	Preview         string
}

// DescriptorPreviewChars is the preview length shown per descriptor.
const DescriptorPreviewChars = 150

// DescriptorFor builds the descriptor of a chunk.
func DescriptorFor(c *Chunk, documentName string) ChunkDescriptor {
	return ChunkDescriptor{
		ChunkID:         c.ID,
		DocumentID:      c.DocumentID,
		DocumentName:    documentName,
		ChunkIndex:      c.ChunkIndex,
		ChapterLabel:    c.Metadata.Label(),
		PositionPercent: c.Metadata.PositionPercent,
		Preview:         Preview(c.Content, DescriptorPreviewChars),
	}
}

// Preview returns at most n runes of text with surrounding whitespace
// trimmed and internal runs of whitespace collapsed.
func Preview(text string, n int) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	runes := []rune(collapsed)
	if len(runes) <= n {
		return collapsed
	}
	return string(runes[:n])
}
