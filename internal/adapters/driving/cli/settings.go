package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docscope/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure AI providers, retrieval defaults and other options.

Use subcommands to configure specific settings or run the interactive wizard.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to configure all settings step by step.`,
	RunE:  runSettingsWizard,
}

var settingsRetrievalCmd = &cobra.Command{
	Use:   "retrieval",
	Short: "Configure default retrieval",
	Long: `Set the default chunk budget and search weighting used when a request
does not carry its own.

Chunk modes:
  fixed    - Retrieve exactly --max-chunks chunks
  percent  - Retrieve --percent of the document's chunks
  adaptive - Size the budget from the query's complexity`,
	RunE: runSettingsRetrieval,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long:  `Configure the embedding provider for semantic search.`,
	RunE:  runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Configure the LLM provider for intent analysis, query expansion and reranking.`,
	RunE:  runSettingsLLM,
}

func init() {
	settingsRetrievalCmd.Flags().String("chunk-mode", "", "chunk budget mode: fixed, percent or adaptive")
	settingsRetrievalCmd.Flags().Int("max-chunks", 0, "chunk budget in fixed mode")
	settingsRetrievalCmd.Flags().Float64("percent", 0, "chunk budget in percent mode")
	settingsRetrievalCmd.Flags().Float64("min-similarity", 0, "minimum combined search score")
	settingsRetrievalCmd.Flags().Float64("keyword-weight", 0, "weight of the keyword score")
	settingsRetrievalCmd.Flags().Float64("semantic-weight", 0, "weight of the vector score")
	settingsRetrievalCmd.Flags().Bool("rerank", true, "rerank candidates with the LLM")
	settingsRetrievalCmd.Flags().Float64("rerank-min-score", 0, "drop reranked chunks scoring below this")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	settingsCmd.AddCommand(settingsRetrievalCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	// Embedding settings
	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	if settings.Embedding.Provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		if settings.Embedding.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(settings.Embedding.APIKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	status := "configured"
	if !settings.Embedding.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	// LLM settings
	cmd.Println("[LLM]")
	cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.LLM.Model)
	if settings.LLM.Provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", settings.LLM.BaseURL)
	}
	if settings.LLM.Provider.RequiresAPIKey() {
		if settings.LLM.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(settings.LLM.APIKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	status = "configured"
	if !settings.LLM.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	// Retrieval settings
	r := settings.Retrieval
	cmd.Println("[Retrieval]")
	cmd.Printf("  Chunk mode: %s\n", r.ChunkMode)
	switch r.ChunkMode {
	case domain.ChunkModeFixed:
		cmd.Printf("  Max chunks: %d\n", r.MaxChunks)
	case domain.ChunkModePercent:
		cmd.Printf("  Chunk percent: %.0f%%\n", r.ChunkPercent)
	case domain.ChunkModeAdaptive:
		cmd.Printf("  Percent limit: %.0f%%\n", r.MaxPercentLimit)
	}
	cmd.Printf("  Chunk range: %d-%d\n", r.MinChunks, r.MaxChunksLimit)
	cmd.Printf("  Weights: keyword %.2f, semantic %.2f\n", r.KeywordWeight, r.SemanticWeight)
	cmd.Printf("  Min similarity: %.2f\n", r.MinSimilarity)
	if r.UseRerank {
		cmd.Printf("  Rerank: yes (min score %.1f)\n", r.RerankMinScore)
	} else {
		cmd.Printf("  Rerank: no\n")
	}
	cmd.Println()

	// Chunking settings
	cmd.Println("[Chunking]")
	cmd.Printf("  Chunk size: %d\n", settings.Chunking.Size)
	cmd.Printf("  Overlap: %d\n", settings.Chunking.Overlap)
	cmd.Println()

	// Validation
	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'docscope settings wizard' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	cmd.Println("docscope Settings Wizard")
	cmd.Println("========================")
	cmd.Println()

	reader := bufio.NewReader(os.Stdin)

	// Step 1: Embedding Provider
	cmd.Println("Step 1: Configure Embedding Provider")
	cmd.Println("------------------------------------")
	cmd.Println("Embeddings power semantic search. Without them only keyword search is used.")
	cmd.Println()
	if err := configureEmbeddingProvider(cmd, reader); err != nil {
		return err
	}

	// Step 2: LLM Provider
	cmd.Println("Step 2: Configure LLM Provider")
	cmd.Println("------------------------------")
	cmd.Println("The LLM analyses intent, expands queries and reranks results.")
	cmd.Println("Without it docscope falls back to pattern matching and hybrid search.")
	cmd.Println()
	if err := configureLLMProvider(cmd, reader); err != nil {
		return err
	}

	// Step 3: Chunk budget
	cmd.Println("Step 3: Select Chunk Budget")
	cmd.Println("---------------------------")
	modes := []domain.ChunkMode{domain.ChunkModeAdaptive, domain.ChunkModeFixed, domain.ChunkModePercent}
	for i, mode := range modes {
		cmd.Printf("  %d. %s\n", i+1, mode)
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(modes), 1)

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	cfg := settings.Retrieval
	cfg.ChunkMode = modes[idx-1]
	if err := settingsService.SetRetrieval(cfg); err != nil {
		return fmt.Errorf("failed to set retrieval: %w", err)
	}
	cmd.Printf("Set chunk mode to: %s\n\n", cfg.ChunkMode)

	// Final validation
	cmd.Println("Configuration Complete!")
	cmd.Println("=======================")
	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("All settings are valid and saved.")
	}

	return nil
}

func runSettingsRetrieval(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	cfg := settings.Retrieval

	flags := cmd.Flags()
	if flags.Changed("chunk-mode") {
		mode, _ := flags.GetString("chunk-mode") //nolint:errcheck // flag is defined
		cfg.ChunkMode = domain.ChunkMode(mode)
	}
	if flags.Changed("max-chunks") {
		cfg.MaxChunks, _ = flags.GetInt("max-chunks") //nolint:errcheck // flag is defined
	}
	if flags.Changed("percent") {
		cfg.ChunkPercent, _ = flags.GetFloat64("percent") //nolint:errcheck // flag is defined
	}
	if flags.Changed("min-similarity") {
		cfg.MinSimilarity, _ = flags.GetFloat64("min-similarity") //nolint:errcheck // flag is defined
	}
	if flags.Changed("keyword-weight") {
		cfg.KeywordWeight, _ = flags.GetFloat64("keyword-weight") //nolint:errcheck // flag is defined
	}
	if flags.Changed("semantic-weight") {
		cfg.SemanticWeight, _ = flags.GetFloat64("semantic-weight") //nolint:errcheck // flag is defined
	}
	if flags.Changed("rerank") {
		cfg.UseRerank, _ = flags.GetBool("rerank") //nolint:errcheck // flag is defined
	}
	if flags.Changed("rerank-min-score") {
		cfg.RerankMinScore, _ = flags.GetFloat64("rerank-min-score") //nolint:errcheck // flag is defined
	}

	if err := settingsService.SetRetrieval(cfg); err != nil {
		return fmt.Errorf("failed to set retrieval: %w", err)
	}

	cmd.Printf("Retrieval settings saved (chunk mode: %s).\n", cfg.ChunkMode)
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(os.Stdin)
	return configureEmbeddingProvider(cmd, reader)
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(os.Stdin)
	return configureLLMProvider(cmd, reader)
}

//nolint:dupl // Similar to configureLLMProvider but for embeddings - intentional for CLI flow clarity
func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select Embedding Provider")
	providers := domain.AllEmbeddingProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(providers), 1)
	selectedProvider := providers[idx-1]

	// Get model
	defaults := domain.DefaultEmbeddingModels()
	defaultModel := defaults[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	// Get API key if needed
	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword()
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetEmbeddingProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	// Validate the configuration by pinging the service
	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("Embedding provider configured: %s (%s)\n\n", selectedProvider.Description(), model)
	return nil
}

//nolint:dupl // Similar to configureEmbeddingProvider but for LLM - intentional for CLI flow clarity
func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select LLM Provider")
	providers := domain.AllLLMProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(providers), 1)
	selectedProvider := providers[idx-1]

	// Get model
	defaults := domain.DefaultLLMModels()
	defaultModel := defaults[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	// Get API key if needed
	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword()
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetLLMProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	// Validate the configuration by pinging the service
	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateLLMConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("LLM provider configured: %s (%s)\n\n", selectedProvider.Description(), model)
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	// Try to read password without echo
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
