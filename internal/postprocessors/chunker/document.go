package chunker

import (
	"sort"

	"github.com/google/uuid"

	"github.com/custodia-labs/docscope/internal/core/domain"
)

// ChunkDocument splits a document's content into chunks tagged with the
// chapter active at each chunk's start offset. Headers are detected once over
// the whole text; repeated chapter numbers are ignored.
func ChunkDocument(doc *domain.Document, chunkSize, overlap int) []domain.Chunk {
	runes := []rune(doc.Content)
	windows := chunkRunes(runes, chunkSize, overlap)
	if len(windows) == 0 {
		return nil
	}

	headers := FirstOccurrences(FindHeaders(doc.Content))
	total := len(runes)

	chunks := make([]domain.Chunk, 0, len(windows))
	for i, w := range windows {
		meta := domain.ChunkMetadata{PositionPercent: float64(w.Start) / float64(total)}
		if h, ok := headerAt(headers, w.Start); ok {
			meta.ChapterNumber = h.Number
			meta.ChapterTitle = h.Title
			meta.SectionHeader = h.Line
		}

		chunks = append(chunks, domain.Chunk{
			ID:                 uuid.New().String(),
			DocumentID:         doc.ID,
			ChunkIndex:         i,
			Content:            w.Content,
			ContentWithContext: contextLabel(doc.Name, meta) + "\n" + w.Content,
			StartChar:          w.Start,
			EndChar:            w.End,
			Metadata:           meta,
		})
	}
	return chunks
}

// headerAt returns the last header at or before offset.
func headerAt(headers []Header, offset int) (Header, bool) {
	i := sort.Search(len(headers), func(i int) bool { return headers[i].Offset > offset })
	if i == 0 {
		return Header{}, false
	}
	return headers[i-1], true
}

// contextLabel renders "[document | chapter N: title]".
func contextLabel(documentName string, meta domain.ChunkMetadata) string {
	label := meta.Label()
	switch {
	case documentName == "" && label == "":
		return "[]"
	case label == "":
		return "[" + documentName + "]"
	case documentName == "":
		return "[" + label + "]"
	default:
		return "[" + documentName + " | " + label + "]"
	}
}
