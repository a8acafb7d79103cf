package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docscope/internal/core/domain"
	"github.com/custodia-labs/docscope/internal/core/ports/driving"
)

var (
	searchLimit    int
	searchJSON     bool
	searchDocs     []string
	searchStrategy string
	searchRerank   bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search ingested documents",
	Long: `Runs one retrieval strategy and prints the ranked fragments.
The default hybrid search combines keyword (BM25) and semantic (vector)
scores; --strategy selects multi_query, hyde, step_back or agentic instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().StringSliceVarP(&searchDocs, "doc", "d", nil, "restrict the search to a document (repeatable)")
	searchCmd.Flags().StringVarP(&searchStrategy, "strategy", "s", "", "retrieval strategy (default: auto)")
	searchCmd.Flags().BoolVar(&searchRerank, "rerank", false, "rescore results with the LLM reranker")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if contextService == nil {
		return errors.New("context service not configured")
	}

	results, err := contextService.Search(cmd.Context(), driving.SearchRequest{
		Query:       query,
		DocumentIDs: searchDocs,
		Strategy:    domain.StrategyKind(searchStrategy),
		Limit:       searchLimit,
		Rerank:      searchRerank,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}

	return outputSearchTable(cmd, results)
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchResult) error {
	if results == nil {
		results = []domain.SearchResult{}
	}
	return printJSON(cmd, results)
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	st := stylesFor(cmd.OutOrStdout())
	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		// Format: [N] Citation (similarity[, rerank])
		score := fmt.Sprintf("%.2f", results[i].Similarity)
		if results[i].RerankScore != nil {
			score += fmt.Sprintf(", rerank %.1f", *results[i].RerankScore)
		}

		cmd.Printf("  [%d] %s %s\n", i+1, st.Title.Render(results[i].Citation()), st.Muted.Render("("+score+")"))
		if snippet := snippetOf(results[i].Chunk.Content, 200); snippet != "" {
			cmd.Printf("      %s\n", snippet)
		}
		cmd.Println()
	}

	return nil
}

// snippetOf flattens whitespace and truncates content for one-line display.
func snippetOf(content string, n int) string {
	return truncate(strings.Join(strings.Fields(content), " "), n)
}
