package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/docscope/internal/core/domain"
)

func TestEstimateQueryComplexity(t *testing.T) {
	tests := []struct {
		query string
		want  domain.QueryComplexity
	}{
		{"payment terms", domain.ComplexitySimple},
		{"what are the payment terms for the supplier here", domain.ComplexityMedium},
		{"compare payment", domain.ComplexityComplex},
		{"why is delivery late", domain.ComplexityComplex},
		{"проанализируй договор", domain.ComplexityComplex},
		{"one two three four five six seven eight nine ten eleven twelve thirteen fourteen fifteen", domain.ComplexityComplex},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateQueryComplexity(tt.query))
		})
	}
}

func TestCalculateTargetChunks(t *testing.T) {
	base := domain.DefaultRetrievalConfig()

	fixed := base
	fixed.ChunkMode = domain.ChunkModeFixed
	fixed.MaxChunks = 12

	percent := base
	percent.ChunkMode = domain.ChunkModePercent
	percent.ChunkPercent = 20

	percentLarge := percent
	percentLarge.ChunkPercent = 10

	tinyPercent := percent
	tinyPercent.ChunkPercent = 1

	capped := fixed
	capped.MaxChunks = 500
	capped.MaxChunksLimit = 40

	minAboveTotal := fixed
	minAboveTotal.MaxChunks = 1
	minAboveTotal.MinChunks = 10

	adaptiveCapped := base
	adaptiveCapped.MaxPercentLimit = 5

	tests := []struct {
		name  string
		total int
		cfg   domain.RetrievalConfig
		query string
		want  int
	}{
		{"fixed", 100, fixed, "q", 12},
		{"fixed above total", 8, fixed, "q", 8},
		{"percent of 100", 100, percent, "q", 20},
		{"percent of 500", 500, percentLarge, "q", 50},
		{"percent rounds", 33, percent, "q", 7},
		{"percent clamps to min", 100, tinyPercent, "q", 3},
		{"absolute cap", 1000, capped, "q", 40},
		{"min above total", 4, minAboveTotal, "q", 4},
		{"adaptive simple", 100, base, "payment terms", 10},
		{"adaptive medium", 100, base, "what are the payment terms for the supplier here", 20},
		{"adaptive complex", 100, base, "compare payment and delivery", 40},
		{"adaptive percent cap", 100, adaptiveCapped, "compare payment and delivery", 5},
		{"empty document", 0, base, "q", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculateTargetChunks(tt.total, tt.cfg, tt.query))
		})
	}
}

func TestCalculateTargetChunks_Bounds(t *testing.T) {
	cfg := domain.DefaultRetrievalConfig()
	cfg.MinChunks = 2
	cfg.MaxChunksLimit = 30
	queries := []string{"a", "what are the payment terms for the supplier", "compare everything"}

	for total := 1; total <= 300; total += 7 {
		for _, mode := range []domain.ChunkMode{domain.ChunkModeFixed, domain.ChunkModePercent, domain.ChunkModeAdaptive} {
			cfg.ChunkMode = mode
			for _, q := range queries {
				got := CalculateTargetChunks(total, cfg, q)
				upper := min(cfg.MaxChunksLimit, total)
				assert.LessOrEqual(t, got, upper)
				assert.GreaterOrEqual(t, got, min(cfg.MinChunks, upper))
			}
		}
	}
}

func TestShouldDowngradeFullDocument(t *testing.T) {
	fixed := domain.DefaultRetrievalConfig()
	fixed.ChunkMode = domain.ChunkModeFixed
	fixed.MaxChunks = 10

	percentLow := domain.DefaultRetrievalConfig()
	percentLow.ChunkMode = domain.ChunkModePercent
	percentLow.ChunkPercent = 20

	percentHigh := percentLow
	percentHigh.ChunkPercent = FullDocumentPercentThreshold

	adaptiveLowCap := domain.DefaultRetrievalConfig()

	adaptiveHighCap := adaptiveLowCap
	adaptiveHighCap.MaxPercentLimit = 100

	percentFull := percentLow
	percentFull.ChunkPercent = 100
	percentFull.MaxChunksLimit = 200

	fixedHuge := fixed
	fixedHuge.MaxChunks = 1000
	fixedHuge.MaxChunksLimit = 200

	tests := []struct {
		name   string
		total  int
		cfg    domain.RetrievalConfig
		target int
		want   bool
	}{
		{"fixed smaller than document", 100, fixed, 10, true},
		{"fixed covers document", 10, fixed, 10, false},
		{"percent below threshold", 100, percentLow, 20, true},
		{"percent at threshold", 100, percentHigh, 80, false},
		{"adaptive low cap", 100, adaptiveLowCap, 50, true},
		{"adaptive small target", 100, adaptiveHighCap, 40, true},
		{"adaptive large target", 10, adaptiveHighCap, 5, false},
		{"percent full over safety cap", 500, percentFull, 200, true},
		{"percent full within safety cap", 150, percentFull, 150, false},
		{"fixed over safety cap", 500, fixedHuge, 200, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldDowngradeFullDocument(tt.total, tt.cfg, tt.target))
		})
	}
}
