package driven

import "github.com/custodia-labs/docscope/internal/core/domain"

// StructureDetector derives document structure from stored chunks.
// The chunker implements it with the same header table it tags chunks with.
type StructureDetector interface {
	// DetectChapters partitions the chunks into chapters. Without headers it
	// returns one synthetic chapter named after the document.
	DetectChapters(chunks []domain.Chunk, documentName string) []domain.Chapter

	// Reassemble joins ordered chunk texts, removing the sliding-window overlap.
	Reassemble(texts []string) string
}
