package domain

import "time"

// Chapter is a detected structural section spanning a contiguous chunk range.
// Chapters are derived from chunk content and never persisted on their own.
type Chapter struct {
	// Number is the chapter identifier; may be non-numeric such as "1.2" or "IV".
	Number string `json:"number"`

	// Title is the header text after the number.
	Title string `json:"title"`

	// StartChunk is the first chunk index (inclusive).
	StartChunk int `json:"start_chunk"`

	// EndChunk is the last chunk index (inclusive).
	EndChunk int `json:"end_chunk"`

	// Preview is a short excerpt from the chapter's first chunk.
	Preview string `json:"preview,omitempty"`

	// Merged lists further chapter numbers whose headers fall inside
	// StartChunk, so they share this chapter's range.
	Merged []string `json:"merged,omitempty"`
}

// ChapterPreviewChars is the preview length stored per chapter.
const ChapterPreviewChars = 200

// Matches reports whether the chapter answers to the given number.
func (c Chapter) Matches(number string) bool {
	if c.Number == number {
		return true
	}
	for _, m := range c.Merged {
		if m == number {
			return true
		}
	}
	return false
}

// ChunkCount returns the number of chunks in the chapter.
func (c Chapter) ChunkCount() int {
	return c.EndChunk - c.StartChunk + 1
}

// Contains reports whether the chunk index falls inside the chapter.
func (c Chapter) Contains(chunkIndex int) bool {
	return chunkIndex >= c.StartChunk && chunkIndex <= c.EndChunk
}

// Slice returns the chunks that fall inside the chapter, in input order.
func (c Chapter) Slice(chunks []Chunk) []Chunk {
	var out []Chunk
	for i := range chunks {
		if c.Contains(chunks[i].ChunkIndex) {
			out = append(out, chunks[i])
		}
	}
	return out
}

// FindChapter returns the chapter with the given number.
func FindChapter(chapters []Chapter, number string) (Chapter, bool) {
	for _, ch := range chapters {
		if ch.Matches(number) {
			return ch, true
		}
	}
	return Chapter{}, false
}

// ChapterNumbers returns every chapter identifier in order, merged ones included.
func ChapterNumbers(chapters []Chapter) []string {
	numbers := make([]string, 0, len(chapters))
	for _, ch := range chapters {
		numbers = append(numbers, ch.Number)
		numbers = append(numbers, ch.Merged...)
	}
	return numbers
}

// DocumentMeta is the cached document-level summary that answers structural
// questions without retrieval.
type DocumentMeta struct {
	DocumentID    string         `json:"document_id"`
	DocumentName  string         `json:"document_name"`
	TotalChapters int            `json:"total_chapters"`
	Chapters      []Chapter      `json:"chapter_list"`
	TotalChunks   int            `json:"total_chunks"`
	TotalChars    int            `json:"total_chars"`
	DocumentType  DocumentType   `json:"document_type"`
	Language      string         `json:"language"`
	Status        DocumentStatus `json:"status"`
	BuiltAt       time.Time      `json:"built_at"`
}

// IsStale reports whether the meta predates the document's last processing.
func (m *DocumentMeta) IsStale(doc *Document) bool {
	return doc.UpdatedAt.After(m.BuiltAt)
}
