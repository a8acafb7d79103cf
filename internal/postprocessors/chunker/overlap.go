package chunker

import "strings"

// Overlap search bounds in runes.
const (
	DefaultMinOverlap = 20
	DefaultMaxOverlap = 300
)

// RemoveOverlaps joins ordered chunk texts back into contiguous prose,
// stripping the sliding-window overlap between neighbours.
func RemoveOverlaps(texts []string) string {
	return RemoveOverlapsWithBounds(texts, DefaultMinOverlap, DefaultMaxOverlap)
}

// RemoveOverlapsWithBounds is RemoveOverlaps with explicit bounds. For each
// adjacent pair it strips the longest prefix of the next text, between
// minOverlap and maxOverlap runes, that the previous text ends with. Pairs
// without such an overlap are concatenated unchanged.
func RemoveOverlapsWithBounds(texts []string, minOverlap, maxOverlap int) string {
	if len(texts) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(texts[0])
	prev := []rune(texts[0])
	for _, text := range texts[1:] {
		next := []rune(text)
		k := overlapLength(prev, next, minOverlap, maxOverlap)
		b.WriteString(string(next[k:]))
		prev = next
	}
	return b.String()
}

func overlapLength(prev, next []rune, minOverlap, maxOverlap int) int {
	upper := min(maxOverlap, len(prev), len(next))
	for k := upper; k >= minOverlap && k > 0; k-- {
		if equalRunes(prev[len(prev)-k:], next[:k]) {
			return k
		}
	}
	return 0
}

func equalRunes(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
