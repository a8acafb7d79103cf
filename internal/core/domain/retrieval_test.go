package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRetrievalConfig_IsValid(t *testing.T) {
	cfg := DefaultRetrievalConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ChunkModeAdaptive, cfg.ChunkMode)
	assert.Equal(t, 5.0, cfg.RerankMinScore)
}

func TestRetrievalConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RetrievalConfig)
	}{
		{"unknown mode", func(c *RetrievalConfig) { c.ChunkMode = "greedy" }},
		{"percent above 100", func(c *RetrievalConfig) { c.ChunkPercent = 120 }},
		{"negative percent limit", func(c *RetrievalConfig) { c.MaxPercentLimit = -1 }},
		{"negative min chunks", func(c *RetrievalConfig) { c.MinChunks = -2 }},
		{"negative weight", func(c *RetrievalConfig) { c.KeywordWeight = -0.1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultRetrievalConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))
		})
	}
}

func TestScope_IsValid(t *testing.T) {
	for _, s := range []Scope{ScopeSingleSection, ScopeMultipleSections, ScopeFullDocument, ScopeComparison, ScopeSearch} {
		assert.True(t, s.IsValid(), s)
	}
	assert.False(t, Scope("everything").IsValid())
	assert.True(t, ScopeComparison.IsSectional())
	assert.False(t, ScopeSearch.IsSectional())
}

func TestTask_IsValid(t *testing.T) {
	for _, task := range AllTasks() {
		assert.True(t, task.IsValid(), task)
	}
	assert.False(t, Task("translate").IsValid())
}

func TestDefaultTaskInstructions(t *testing.T) {
	instructions := DefaultTaskInstructions()
	for _, task := range AllTasks() {
		_, ok := instructions[task]
		assert.True(t, ok, "missing instruction for %s", task)
	}
	assert.Empty(t, instructions[TaskSearch])
	assert.NotEmpty(t, instructions[TaskSummarize])
}

func TestSearchResult_Citation(t *testing.T) {
	r := SearchResult{
		DocumentName: "contract.pdf",
		Chunk: Chunk{
			DocumentID: "doc-1",
			ChunkIndex: 2,
			Metadata:   ChunkMetadata{ChapterNumber: "4", ChapterTitle: "Fees"},
		},
	}
	assert.Equal(t, "contract.pdf, chapter 4: Fees, fragment 3", r.Citation())

	r.DocumentName = ""
	r.Chunk.Metadata = ChunkMetadata{}
	assert.Equal(t, "doc-1, fragment 3", r.Citation())
}

func TestStrategyKind_IsValid(t *testing.T) {
	assert.True(t, StrategyHyDE.IsValid())
	assert.True(t, StrategyAuto.IsValid())
	assert.True(t, StrategySmartSelect.IsValid())
	assert.False(t, StrategyKind("random").IsValid())
}
