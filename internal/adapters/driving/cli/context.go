package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docscope/internal/core/domain"
)

var contextCmd = &cobra.Command{
	Use:   "context [query]",
	Short: "Assemble context for a question",
	Long: `Analyses the question, retrieves the relevant parts of the given documents
and prints prompt-ready context with numbered sources.

Whole-document and chapter questions load chapters directly; other questions
run a retrieval strategy (hybrid, multi_query, hyde, step_back, agentic,
smart_select) chosen from the query unless --strategy is given.

The token budget comes from --max-tokens, or from --model's context window.`,
	Args: cobra.ExactArgs(1),
	RunE: runContext,
}

var (
	contextDocs      []string
	contextStrategy  string
	contextMaxTokens int
	contextModel     string
	contextChunkMode string
	contextMaxChunks int
	contextPercent   float64
	contextNoRerank  bool
	contextJSON      bool
	contextDebug     bool
)

func init() {
	contextCmd.Flags().StringSliceVarP(&contextDocs, "doc", "d", nil, "document ID to draw context from (repeatable)")
	contextCmd.Flags().StringVarP(&contextStrategy, "strategy", "s", "", "retrieval strategy (default: auto)")
	contextCmd.Flags().IntVar(&contextMaxTokens, "max-tokens", 0, "token budget for the assembled context")
	contextCmd.Flags().StringVar(&contextModel, "model", "", "completion model whose context window sets the budget")
	contextCmd.Flags().StringVar(&contextChunkMode, "chunk-mode", "", "chunk budget mode: fixed, percent or adaptive")
	contextCmd.Flags().IntVar(&contextMaxChunks, "max-chunks", 0, "chunk budget in fixed mode")
	contextCmd.Flags().Float64Var(&contextPercent, "percent", 0, "chunk budget in percent mode")
	contextCmd.Flags().BoolVar(&contextNoRerank, "no-rerank", false, "skip LLM reranking")
	contextCmd.Flags().BoolVar(&contextJSON, "json", false, "output the result as JSON")
	contextCmd.Flags().BoolVar(&contextDebug, "debug", false, "print retrieval diagnostics")
	_ = contextCmd.MarkFlagRequired("doc") //nolint:errcheck // flag is defined above
	rootCmd.AddCommand(contextCmd)
}

func runContext(cmd *cobra.Command, args []string) error {
	if contextService == nil {
		return errors.New("context service not configured")
	}

	cfg, err := contextConfig(cmd)
	if err != nil {
		return err
	}

	maxTokens := contextMaxTokens
	if maxTokens <= 0 && contextModel != "" {
		maxTokens = domain.ContextBudgetFor(contextModel)
	}

	result, err := contextService.BuildContext(cmd.Context(), domain.ContextRequest{
		Query:       args[0],
		DocumentIDs: contextDocs,
		Config:      cfg,
		MaxTokens:   maxTokens,
		Strategy:    domain.StrategyKind(contextStrategy),
	})
	if err != nil {
		return fmt.Errorf("failed to build context: %w", err)
	}

	if contextJSON {
		if !contextDebug {
			result.Debug = nil
		}
		return printJSON(cmd, result)
	}

	return outputContext(cmd, result)
}

// contextConfig returns the retrieval config for the request. It is zero
// unless a budget flag was given, so the service applies its defaults.
func contextConfig(cmd *cobra.Command) (domain.RetrievalConfig, error) {
	flags := cmd.Flags()
	if !flags.Changed("chunk-mode") && !flags.Changed("max-chunks") &&
		!flags.Changed("percent") && !flags.Changed("no-rerank") {
		return domain.RetrievalConfig{}, nil
	}

	cfg := domain.DefaultRetrievalConfig()
	if settingsService != nil {
		if settings, err := settingsService.Get(); err == nil {
			cfg = settings.Retrieval
		}
	}

	if flags.Changed("chunk-mode") {
		cfg.ChunkMode = domain.ChunkMode(contextChunkMode)
	}
	if flags.Changed("max-chunks") {
		cfg.MaxChunks = contextMaxChunks
		if !flags.Changed("chunk-mode") {
			cfg.ChunkMode = domain.ChunkModeFixed
		}
	}
	if flags.Changed("percent") {
		cfg.ChunkPercent = contextPercent
		if !flags.Changed("chunk-mode") {
			cfg.ChunkMode = domain.ChunkModePercent
		}
	}
	if contextNoRerank {
		cfg.UseRerank = false
	}

	if err := cfg.Validate(); err != nil {
		return domain.RetrievalConfig{}, err
	}
	return cfg, nil
}

func outputContext(cmd *cobra.Command, result *domain.ContextResult) error {
	st := stylesFor(cmd.OutOrStdout())

	if strings.TrimSpace(result.Context) == "" {
		cmd.Println(st.Warning.Render("No relevant context found."))
	} else {
		cmd.Println(result.Context)
	}

	if len(result.Sources) > 0 {
		cmd.Println()
		cmd.Println(st.Title.Render("Sources"))
		for _, src := range result.Sources {
			cmd.Printf("  [%d] %s\n", src.Index, src.Citation)
		}
	}

	cmd.Println()
	cmd.Println(st.Muted.Render(fmt.Sprintf("intent: scope=%s task=%s method=%s",
		result.Intent.Scope, result.Intent.Task, result.Intent.Method)))

	if contextDebug && len(result.Debug) > 0 {
		keys := make([]string, 0, len(result.Debug))
		for k := range result.Debug {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		cmd.Println()
		cmd.Println(st.Title.Render("Debug"))
		for _, k := range keys {
			cmd.Printf("  %s: %v\n", k, result.Debug[k])
		}
	}

	return nil
}
