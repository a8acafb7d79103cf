package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docscope/internal/core/domain"
	"github.com/custodia-labs/docscope/internal/core/ports/driving"
)

// defaultSearchLimit is used when the search tool is called without a limit.
const defaultSearchLimit = 10

// BuildContextInput is the input schema for the build_context tool.
type BuildContextInput struct {
	Query       string   `json:"query" jsonschema:"the user question to gather context for"`
	DocumentIDs []string `json:"document_ids" jsonschema:"IDs of the documents to draw context from"`
	Strategy    string   `json:"strategy,omitempty" jsonschema:"retrieval strategy: hybrid, multi_query, hyde, step_back, agentic, smart_select or auto"`
	MaxTokens   int      `json:"max_tokens,omitempty" jsonschema:"token budget for the assembled context"`
	Model       string   `json:"model,omitempty" jsonschema:"completion model name used to derive the token budget when max_tokens is unset"`
}

// BuildContextOutput is the output schema for the build_context tool.
type BuildContextOutput struct {
	Context string          `json:"context"`
	Sources []domain.Source `json:"sources"`
	Intent  domain.Intent   `json:"intent"`
	Debug   map[string]any  `json:"debug,omitempty"`
}

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query       string   `json:"query" jsonschema:"the search query"`
	DocumentIDs []string `json:"document_ids,omitempty" jsonschema:"restrict the search to these documents"`
	Strategy    string   `json:"strategy,omitempty" jsonschema:"retrieval strategy; empty selects one from the query"`
	Limit       int      `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
	Rerank      bool     `json:"rerank,omitempty" jsonschema:"rescore candidates with the LLM reranker"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	DocumentID   string   `json:"document_id"`
	DocumentName string   `json:"document_name"`
	ChunkIndex   int      `json:"chunk_index"`
	Chapter      string   `json:"chapter,omitempty"`
	Citation     string   `json:"citation"`
	Similarity   float64  `json:"similarity"`
	RerankScore  *float64 `json:"rerank_score,omitempty"`
	Content      string   `json:"content"`
}

// DocumentMetaInput is the input schema for the document_meta tool.
type DocumentMetaInput struct {
	DocumentID string `json:"document_id" jsonschema:"ID of the document"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "build_context",
		Description: "Assemble prompt-ready context from ingested documents for a question. " +
			"Returns the context text with numbered source citations.",
	}, s.handleBuildContext)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Search ingested documents and return ranked fragments",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "document_meta",
		Description: "Describe a document: chapters, size, type and language",
	}, s.handleDocumentMeta)
}

// handleBuildContext handles the build_context tool invocation.
func (s *Server) handleBuildContext(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input BuildContextInput,
) (*mcp.CallToolResult, BuildContextOutput, error) {
	maxTokens := input.MaxTokens
	if maxTokens <= 0 && input.Model != "" {
		maxTokens = domain.ContextBudgetFor(input.Model)
	}

	result, err := s.ports.Context.BuildContext(ctx, domain.ContextRequest{
		Query:       input.Query,
		DocumentIDs: input.DocumentIDs,
		MaxTokens:   maxTokens,
		Strategy:    domain.StrategyKind(input.Strategy),
	})
	if err != nil {
		return nil, BuildContextOutput{}, err
	}

	return nil, BuildContextOutput{
		Context: result.Context,
		Sources: result.Sources,
		Intent:  result.Intent,
		Debug:   result.Debug,
	}, nil
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	results, err := s.ports.Context.Search(ctx, driving.SearchRequest{
		Query:       input.Query,
		DocumentIDs: input.DocumentIDs,
		Strategy:    domain.StrategyKind(input.Strategy),
		Limit:       limit,
		Rerank:      input.Rerank,
	})
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}

	for i := range results {
		output.Results[i] = SearchResultOutput{
			DocumentID:   results[i].Chunk.DocumentID,
			DocumentName: results[i].DocumentName,
			ChunkIndex:   results[i].Chunk.ChunkIndex,
			Chapter:      results[i].Chunk.Metadata.Label(),
			Citation:     results[i].Citation(),
			Similarity:   results[i].Similarity,
			RerankScore:  results[i].RerankScore,
			Content:      results[i].Chunk.Content,
		}
	}

	return nil, output, nil
}

// handleDocumentMeta handles the document_meta tool invocation.
func (s *Server) handleDocumentMeta(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentMetaInput,
) (*mcp.CallToolResult, domain.DocumentMeta, error) {
	if s.ports.Document == nil {
		return nil, domain.DocumentMeta{}, ErrMissingDocumentService
	}

	meta, err := s.ports.Document.Meta(ctx, input.DocumentID)
	if err != nil {
		return nil, domain.DocumentMeta{}, err
	}

	return nil, *meta, nil
}
