package driving

import (
	"context"

	"github.com/custodia-labs/docscope/internal/core/domain"
)

// ContextService assembles prompt-ready context from stored documents.
type ContextService interface {
	// BuildContext runs intent analysis, retrieval and compression for a query.
	// Retrieval failures produce an empty context with an explanation in
	// Debug; only invalid requests return an error.
	BuildContext(ctx context.Context, req domain.ContextRequest) (*domain.ContextResult, error)

	// Search runs one retrieval strategy and returns ranked chunks.
	Search(ctx context.Context, req SearchRequest) ([]domain.SearchResult, error)
}

// SearchRequest is a raw strategy search without context assembly.
type SearchRequest struct {
	Query       string
	DocumentIDs []string

	// Strategy is the retrieval strategy; empty or auto selects from the query.
	Strategy domain.StrategyKind

	// Limit is the number of results; zero means ten.
	Limit int

	// Rerank applies the LLM reranker to the candidates.
	Rerank bool
}
