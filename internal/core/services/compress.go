package services

import "unicode/utf8"

// Compression constants.
const (
	// CharsPerToken is the fixed characters-per-token estimate.
	CharsPerToken = 4

	// CompressionBudgetFactor keeps a 10% margin below the token budget.
	CompressionBudgetFactor = 0.9

	// CompressionHeadShare is the part of the kept budget taken from the start.
	CompressionHeadShare = 0.6

	// MiddleRemovedMarker joins the kept head and tail.
	MiddleRemovedMarker = "\n\n[... middle removed ...]\n\n"
)

// EstimateTokens returns ceil(runes / CharsPerToken).
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + CharsPerToken - 1) / CharsPerToken
}

// Compress fits text into maxTokens by keeping its opening and ending and
// cutting the middle. It reports whether anything was removed. A maxTokens
// of zero or less disables compression.
func Compress(text string, maxTokens int) (string, bool) {
	if maxTokens <= 0 {
		return text, false
	}
	budget := int(float64(maxTokens) * CompressionBudgetFactor)
	if EstimateTokens(text) <= budget {
		return text, false
	}

	runes := []rune(text)
	markerLen := utf8.RuneCountInString(MiddleRemovedMarker)
	allowed := budget*CharsPerToken - markerLen
	if allowed <= 0 {
		return string(runes[:min(budget*CharsPerToken, len(runes))]), true
	}

	head := int(float64(allowed) * CompressionHeadShare)
	tail := allowed - head
	return string(runes[:head]) + MiddleRemovedMarker + string(runes[len(runes)-tail:]), true
}
