package chunker

import "github.com/custodia-labs/docscope/internal/core/domain"

// DetectChapters re-derives the chapter structure from stored chunks, which
// must be ordered by chunk_index. The first new header in a chunk opens a
// chapter there and closes the previous one at the chunk before; further new
// headers in the same chunk are merged into it. Chapter numbers already seen
// are ignored. The first chapter always starts at chunk 0 and the last ends
// at the final chunk. Without any header a single chapter "1" titled with
// documentName spans the document.
func DetectChapters(chunks []domain.Chunk, documentName string) []domain.Chapter {
	if len(chunks) == 0 {
		return nil
	}

	seen := make(map[string]struct{})
	var chapters []domain.Chapter
	for i := range chunks {
		for _, h := range FindHeaders(chunks[i].Content) {
			if _, ok := seen[h.Number]; ok {
				continue
			}
			seen[h.Number] = struct{}{}

			last := len(chapters) - 1
			if last >= 0 && chapters[last].StartChunk == i {
				chapters[last].Merged = append(chapters[last].Merged, h.Number)
				continue
			}
			if last >= 0 {
				chapters[last].EndChunk = i - 1
			}
			chapters = append(chapters, domain.Chapter{
				Number:     h.Number,
				Title:      h.Title,
				StartChunk: i,
				Preview:    domain.Preview(chunks[i].Content, domain.ChapterPreviewChars),
			})
		}
	}

	lastIndex := len(chunks) - 1
	if len(chapters) == 0 {
		return []domain.Chapter{{
			Number:     "1",
			Title:      documentName,
			StartChunk: 0,
			EndChunk:   lastIndex,
			Preview:    domain.Preview(chunks[0].Content, domain.ChapterPreviewChars),
		}}
	}

	if chapters[0].StartChunk > 0 {
		chapters[0].StartChunk = 0
		chapters[0].Preview = domain.Preview(chunks[0].Content, domain.ChapterPreviewChars)
	}
	chapters[len(chapters)-1].EndChunk = lastIndex
	return chapters
}
