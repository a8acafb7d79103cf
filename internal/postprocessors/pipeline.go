// Package postprocessors turns normalised documents into stored chunks.
package postprocessors

import (
	"context"
	"fmt"
	"sort"

	"github.com/custodia-labs/docscope/internal/core/domain"
	"github.com/custodia-labs/docscope/internal/core/ports/driven"
	"github.com/custodia-labs/docscope/internal/logger"
)

// Pipeline runs the ingestion stages in order: the first stage creates chunks
// from document content, later stages enrich them (embeddings).
// It implements the PostProcessorPipeline interface.
type Pipeline struct {
	processors []driven.PostProcessor
}

// NewPipeline creates a new processing pipeline with the given processors.
// Processors are executed in the order provided.
func NewPipeline(processors ...driven.PostProcessor) *Pipeline {
	return &Pipeline{
		processors: processors,
	}
}

// Process runs the document through all stages and returns chunks ready for
// the chunk store: owned by doc and ordered by a gapless chunk_index from 0.
func (p *Pipeline) Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: document is nil", domain.ErrInvalidInput)
	}

	var chunks []domain.Chunk
	for _, processor := range p.processors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var err error
		chunks, err = processor.Process(ctx, doc, chunks)
		if err != nil {
			return nil, fmt.Errorf("processor %s: %w", processor.Name(), err)
		}
		logger.Debug("Stage %s: %d chunks for %s", processor.Name(), len(chunks), doc.ID)
	}

	if err := finalise(doc.ID, chunks); err != nil {
		return nil, err
	}
	return chunks, nil
}

// finalise stamps the owning document and checks chunk ordering.
func finalise(documentID string, chunks []domain.Chunk) error {
	for i := range chunks {
		switch chunks[i].DocumentID {
		case "":
			chunks[i].DocumentID = documentID
		case documentID:
		default:
			return fmt.Errorf("%w: chunk %s belongs to document %s, not %s",
				domain.ErrInvalidInput, chunks[i].ID, chunks[i].DocumentID, documentID)
		}
	}

	sort.SliceStable(chunks, func(a, b int) bool {
		return chunks[a].ChunkIndex < chunks[b].ChunkIndex
	})
	for i := range chunks {
		if chunks[i].ChunkIndex != i {
			return fmt.Errorf("%w: chunk indexes of %s are not contiguous at %d",
				domain.ErrInvalidInput, documentID, i)
		}
	}
	return nil
}

// Add appends a processor to the pipeline.
func (p *Pipeline) Add(processor driven.PostProcessor) {
	p.processors = append(p.processors, processor)
}

// Len returns the number of processors in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.processors)
}

// Names returns the stage names in execution order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.processors))
	for i, proc := range p.processors {
		names[i] = proc.Name()
	}
	return names
}
