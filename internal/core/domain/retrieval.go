package domain

import "fmt"

// ChunkMode selects how many chunks a search-scope request may retrieve.
type ChunkMode string

// Chunk budget modes.
const (
	// ChunkModeFixed retrieves exactly MaxChunks.
	ChunkModeFixed ChunkMode = "fixed"

	// ChunkModePercent retrieves ChunkPercent of the document's chunks.
	ChunkModePercent ChunkMode = "percent"

	// ChunkModeAdaptive sizes the budget from the query's complexity.
	ChunkModeAdaptive ChunkMode = "adaptive"
)

// IsValid returns true if the mode is recognised.
func (m ChunkMode) IsValid() bool {
	switch m {
	case ChunkModeFixed, ChunkModePercent, ChunkModeAdaptive:
		return true
	default:
		return false
	}
}

// RetrievalConfig is the caller's chunk budget and search weighting.
type RetrievalConfig struct {
	ChunkMode ChunkMode `json:"chunk_mode" toml:"chunk_mode"`

	// MaxChunks is the fixed-mode budget.
	MaxChunks int `json:"max_chunks" toml:"max_chunks"`

	// ChunkPercent is the percent-mode budget in [0, 100].
	ChunkPercent float64 `json:"chunk_percent" toml:"chunk_percent"`

	// MinChunks is the lower clamp for every mode.
	MinChunks int `json:"min_chunks" toml:"min_chunks"`

	// MaxChunksLimit is the absolute safety cap.
	MaxChunksLimit int `json:"max_chunks_limit" toml:"max_chunks_limit"`

	// MaxPercentLimit caps the adaptive-mode percentage.
	MaxPercentLimit float64 `json:"max_percent_limit" toml:"max_percent_limit"`

	MinSimilarity  float64 `json:"min_similarity" toml:"min_similarity"`
	KeywordWeight  float64 `json:"keyword_weight" toml:"keyword_weight"`
	SemanticWeight float64 `json:"semantic_weight" toml:"semantic_weight"`
	UseRerank      bool    `json:"use_rerank" toml:"use_rerank"`

	// RerankMinScore is the quality cutoff; rerank scores below it are dropped.
	RerankMinScore float64 `json:"rerank_min_score" toml:"rerank_min_score"`
}

// DefaultRetrievalConfig returns the adaptive defaults.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		ChunkMode:       ChunkModeAdaptive,
		MaxChunks:       20,
		ChunkPercent:    20,
		MinChunks:       3,
		MaxChunksLimit:  200,
		MaxPercentLimit: 50,
		MinSimilarity:   0.3,
		KeywordWeight:   0.3,
		SemanticWeight:  0.7,
		UseRerank:       true,
		RerankMinScore:  5,
	}
}

// Validate checks that the configuration is usable.
func (c RetrievalConfig) Validate() error {
	if !c.ChunkMode.IsValid() {
		return fmt.Errorf("%w: unknown chunk mode %q", ErrInvalidInput, c.ChunkMode)
	}
	if c.ChunkPercent < 0 || c.ChunkPercent > 100 {
		return fmt.Errorf("%w: chunk_percent must be within [0, 100]", ErrInvalidInput)
	}
	if c.MaxPercentLimit < 0 || c.MaxPercentLimit > 100 {
		return fmt.Errorf("%w: max_percent_limit must be within [0, 100]", ErrInvalidInput)
	}
	if c.MinChunks < 0 || c.MaxChunks < 0 || c.MaxChunksLimit < 0 {
		return fmt.Errorf("%w: chunk counts must not be negative", ErrInvalidInput)
	}
	if c.KeywordWeight < 0 || c.SemanticWeight < 0 {
		return fmt.Errorf("%w: weights must not be negative", ErrInvalidInput)
	}
	return nil
}

// StrategyKind names a retrieval strategy.
type StrategyKind string

// Retrieval strategies.
const (
	StrategyHybrid     StrategyKind = "hybrid"
	StrategyMultiQuery StrategyKind = "multi_query"
	StrategyHyDE       StrategyKind = "hyde"
	StrategyStepBack   StrategyKind = "step_back"
	StrategyAgentic    StrategyKind = "agentic"
	StrategyAuto       StrategyKind = "auto"

	// StrategySmartSelect lets the LLM pick chunks from lightweight descriptors.
	StrategySmartSelect StrategyKind = "smart_select"
)

// IsValid returns true if the strategy is recognised.
func (k StrategyKind) IsValid() bool {
	switch k {
	case StrategyHybrid, StrategyMultiQuery, StrategyHyDE, StrategyStepBack, StrategyAgentic, StrategyAuto,
		StrategySmartSelect:
		return true
	default:
		return false
	}
}

// QueryComplexity buckets a query for adaptive chunk budgets.
type QueryComplexity string

// Complexity levels.
const (
	ComplexitySimple  QueryComplexity = "simple"
	ComplexityMedium  QueryComplexity = "medium"
	ComplexityComplex QueryComplexity = "complex"
)

// SearchResult is one ranked chunk returned by a retrieval strategy.
type SearchResult struct {
	Chunk Chunk `json:"chunk"`

	// Similarity is the store's combined score in [0, 1].
	Similarity float64 `json:"similarity"`

	// RerankScore is the LLM relevance score in [0, 10], nil when not reranked.
	RerankScore *float64 `json:"rerank_score,omitempty"`

	DocumentName string `json:"document_name"`

	// MatchingQueries lists the expanded queries that produced this result.
	MatchingQueries []string `json:"matching_queries,omitempty"`
}

// Citation returns the human-readable source label for the result.
func (r *SearchResult) Citation() string {
	label := r.DocumentName
	if label == "" {
		label = r.Chunk.DocumentID
	}
	if chapter := r.Chunk.Metadata.Label(); chapter != "" {
		label += ", " + chapter
	}
	return fmt.Sprintf("%s, fragment %d", label, r.Chunk.ChunkIndex+1)
}

// Source is a citation returned alongside assembled context.
type Source struct {
	Index        int      `json:"index"`
	DocumentID   string   `json:"document_id"`
	DocumentName string   `json:"document_name"`
	ChunkIndex   int      `json:"chunk_index,omitempty"`
	Chapter      string   `json:"chapter,omitempty"`
	Similarity   float64  `json:"similarity,omitempty"`
	RerankScore  *float64 `json:"rerank_score,omitempty"`
	Citation     string   `json:"citation"`
}

// ContextRequest is what a chat orchestration layer asks for.
type ContextRequest struct {
	Query       string
	DocumentIDs []string
	Owner       string
	Config      RetrievalConfig

	// MaxTokens is the model's context budget for the assembled text.
	MaxTokens int

	// Strategy overrides automatic strategy selection when set.
	Strategy StrategyKind
}

// ContextResult is the assembled context and its provenance.
type ContextResult struct {
	Context string         `json:"context"`
	Sources []Source       `json:"sources"`
	Intent  Intent         `json:"intent"`
	Debug   map[string]any `json:"debug"`
}
