// Package chunker provides structure-aware text chunking: boundary-snapped
// overlapping windows tagged with the chapter they fall in, chapter
// re-detection over stored chunks, and overlap removal for reconstruction.
package chunker

import (
	"context"

	"github.com/custodia-labs/docscope/internal/core/domain"
	"github.com/custodia-labs/docscope/internal/core/ports/driven"
)

var (
	_ driven.PostProcessor     = (*Processor)(nil)
	_ driven.StructureDetector = (*Processor)(nil)
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1500

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// Processor splits document content into structure-aware chunks.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured chunk size.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if doc.Content == "" {
		// Empty content produces no chunks
		return nil, nil
	}
	return ChunkDocument(doc, p.chunkSize, p.overlap), nil
}

// DetectChapters re-derives chapters from stored chunks.
func (p *Processor) DetectChapters(chunks []domain.Chunk, documentName string) []domain.Chapter {
	return DetectChapters(chunks, documentName)
}

// Reassemble joins ordered chunk texts without their overlap. Neighbouring
// windows share at most the configured overlap, so the search bound grows
// with it.
func (p *Processor) Reassemble(texts []string) string {
	return RemoveOverlapsWithBounds(texts, DefaultMinOverlap, max(DefaultMaxOverlap, p.overlap))
}
