// Package embedder provides the pipeline stage that attaches embedding
// vectors to chunks.
package embedder

import (
	"context"

	"github.com/custodia-labs/docscope/internal/core/domain"
	"github.com/custodia-labs/docscope/internal/core/ports/driven"
	"github.com/custodia-labs/docscope/internal/logger"
)

// DefaultBatchSize is the number of chunks sent per embedding request.
const DefaultBatchSize = 32

// Processor embeds each chunk's ContentWithContext (falling back to Content).
// Without an embedding service, or when a batch fails, chunks pass through
// without vectors and retrieval for them is keyword-only.
type Processor struct {
	service   driven.EmbeddingService
	batchSize int
}

// Option configures the embedder processor.
type Option func(*Processor)

// WithBatchSize sets the number of texts per EmbedBatch call.
func WithBatchSize(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// New creates an embedder processor. service may be nil.
func New(service driven.EmbeddingService, opts ...Option) *Processor {
	p := &Processor{service: service, batchSize: DefaultBatchSize}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "embedder"
}

// Process attaches embeddings to chunks in batches.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if p.service == nil || len(chunks) == 0 {
		return chunks, nil
	}

	for start := 0; start < len(chunks); start += p.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+p.batchSize, len(chunks))

		texts := make([]string, 0, end-start)
		for i := start; i < end; i++ {
			text := chunks[i].ContentWithContext
			if text == "" {
				text = chunks[i].Content
			}
			texts = append(texts, text)
		}

		vectors, err := p.service.EmbedBatch(ctx, texts)
		if err != nil {
			logger.Warn("embedding batch %d-%d of %s failed: %v", start, end, doc.ID, err)
			continue
		}
		if len(vectors) != len(texts) {
			logger.Warn("embedding batch %d-%d of %s returned %d vectors", start, end, doc.ID, len(vectors))
			continue
		}
		for i, v := range vectors {
			chunks[start+i].Embedding = v
		}
	}
	return chunks, nil
}
