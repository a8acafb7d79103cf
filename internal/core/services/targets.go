package services

import (
	"math"
	"strings"

	"github.com/custodia-labs/docscope/internal/core/domain"
)

// Full-document downgrade thresholds. A caller budget below these turns an
// auto-detected full_document intent into a search.
const (
	// FullDocumentPercentThreshold is the percent-mode and adaptive-cap
	// percentage under which the user's budget wins.
	FullDocumentPercentThreshold = 80.0

	// AdaptiveTargetRatioThreshold is the share of the document an adaptive
	// target must reach to still load everything.
	AdaptiveTargetRatioThreshold = 0.5
)

// adaptivePercents maps query complexity to the share of chunks retrieved.
var adaptivePercents = map[domain.QueryComplexity]float64{
	domain.ComplexitySimple:  10,
	domain.ComplexityMedium:  20,
	domain.ComplexityComplex: 40,
}

var complexIndicators = []string{
	"compare", "analy", "relationship", "all ", "every", "why", "how does", "contradict",
	"implication", "in detail", "step by step",
	"сравн", "анализ", "проанализ", "взаимосвяз", "почему", "все ", "каждый", "подробно", "противореч",
}

const (
	simpleMaxWords  = 5
	complexMinWords = 15
)

// EstimateQueryComplexity buckets a query by keywords and length. Complex
// keywords override the word count.
func EstimateQueryComplexity(query string) domain.QueryComplexity {
	lower := strings.ToLower(query) + " "
	if containsAny(lower, complexIndicators) {
		return domain.ComplexityComplex
	}
	words := len(strings.Fields(query))
	switch {
	case words <= simpleMaxWords:
		return domain.ComplexitySimple
	case words >= complexMinWords:
		return domain.ComplexityComplex
	default:
		return domain.ComplexityMedium
	}
}

// CalculateTargetChunks returns how many chunks a search may retrieve,
// always within [MinChunks, min(MaxChunksLimit, total)]. When MinChunks
// exceeds the upper bound the upper bound wins.
func CalculateTargetChunks(total int, cfg domain.RetrievalConfig, query string) int {
	if total <= 0 {
		return 0
	}

	var target int
	switch cfg.ChunkMode {
	case domain.ChunkModeFixed:
		target = cfg.MaxChunks
	case domain.ChunkModePercent:
		target = percentOf(total, cfg.ChunkPercent)
	default:
		percent := adaptivePercents[EstimateQueryComplexity(query)]
		if cfg.MaxPercentLimit > 0 {
			percent = math.Min(percent, cfg.MaxPercentLimit)
		}
		target = percentOf(total, percent)
	}

	upper := total
	if cfg.MaxChunksLimit > 0 && cfg.MaxChunksLimit < upper {
		upper = cfg.MaxChunksLimit
	}
	target = max(target, cfg.MinChunks)
	return min(target, upper)
}

// ShouldDowngradeFullDocument reports whether the caller's budget is
// explicitly smaller than the whole document. A document larger than
// MaxChunksLimit is always downgraded, whatever the mode.
func ShouldDowngradeFullDocument(total int, cfg domain.RetrievalConfig, target int) bool {
	if cfg.MaxChunksLimit > 0 && total > cfg.MaxChunksLimit {
		return true
	}
	switch cfg.ChunkMode {
	case domain.ChunkModeFixed:
		return cfg.MaxChunks < total
	case domain.ChunkModePercent:
		return cfg.ChunkPercent < FullDocumentPercentThreshold
	default:
		return cfg.MaxPercentLimit < FullDocumentPercentThreshold ||
			float64(target) < AdaptiveTargetRatioThreshold*float64(total)
	}
}

func percentOf(total int, percent float64) int {
	return int(math.Round(float64(total) * percent / 100))
}
