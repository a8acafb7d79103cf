package chunker

import "unicode"

// boundarySearchFraction is the tail of chunk_size searched for a cut point.
const boundarySearchFraction = 0.2

// Window is one chunk of text with rune offsets into the source.
type Window struct {
	// Start is the inclusive rune offset.
	Start int

	// End is the exclusive rune offset.
	End int

	// Content is the exact source substring [Start, End).
	Content string
}

// ChunkText splits text into windows of at most chunkSize runes that advance
// by chunkSize-overlap. Each window is cut at the best boundary found in the
// last 20% of chunkSize, preferring paragraph breaks, then line breaks,
// sentence ends, clause punctuation and finally spaces.
func ChunkText(text string, chunkSize, overlap int) []Window {
	runes := []rune(text)
	return chunkRunes(runes, chunkSize, overlap)
}

func chunkRunes(runes []rune, chunkSize, overlap int) []Window {
	n := len(runes)
	if n == 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	step := max(chunkSize-overlap, 1)

	windows := make([]Window, 0, n/step+1)
	start := 0
	for start < n {
		proposed := min(start+chunkSize, n)
		end := proposed
		if proposed < n {
			// Never search below the next window's start so windows leave no gaps.
			lo := max(proposed-int(float64(chunkSize)*boundarySearchFraction), start+step, start+1)
			if cut := findBoundary(runes, lo, proposed); cut > 0 {
				end = cut
			}
		}

		windows = append(windows, Window{Start: start, End: end, Content: string(runes[start:end])})
		if end >= n {
			break
		}

		next := start + step
		if next <= start {
			next = proposed
		}
		start = next
	}
	return windows
}

// boundary kinds in priority order.
var boundaryMatchers = []func(runes []rune, i int) bool{
	// paragraph break
	func(r []rune, i int) bool { return r[i] == '\n' && i > 0 && r[i-1] == '\n' },
	// line break
	func(r []rune, i int) bool { return r[i] == '\n' },
	// sentence end followed by whitespace
	func(r []rune, i int) bool { return isSentenceEnd(r[i]) && followedBySpace(r, i) },
	// clause punctuation followed by whitespace
	func(r []rune, i int) bool { return isClausePunct(r[i]) && followedBySpace(r, i) },
	// word boundary
	func(r []rune, i int) bool { return unicode.IsSpace(r[i]) },
}

// findBoundary returns the offset just after the best boundary in [lo, hi),
// or 0 when none exists.
func findBoundary(runes []rune, lo, hi int) int {
	if lo >= hi {
		return 0
	}
	for _, match := range boundaryMatchers {
		for i := hi - 1; i >= lo; i-- {
			if match(runes, i) {
				return i + 1
			}
		}
	}
	return 0
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '…':
		return true
	}
	return false
}

func isClausePunct(r rune) bool {
	switch r {
	case ',', ';', ':':
		return true
	}
	return false
}

func followedBySpace(runes []rune, i int) bool {
	return i+1 >= len(runes) || unicode.IsSpace(runes[i+1])
}
