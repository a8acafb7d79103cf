// Package cli provides the docscope command-line interface built on cobra.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docscope/internal/core/ports/driving"
	"github.com/custodia-labs/docscope/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services holds the driving ports the commands operate on.
type Services struct {
	DocumentService driving.DocumentService
	ContextService  driving.ContextService
	SettingsService driving.SettingsService

	// PromptWatcher reloads prompt files while long-running commands serve.
	PromptWatcher PromptWatcher
}

// PromptWatcher invalidates cached prompts as their files change.
type PromptWatcher interface {
	Watch(ctx context.Context) error
}

// Package-level services used by the commands. Nil services make the
// corresponding commands fail with a "not configured" error.
var (
	documentService driving.DocumentService
	contextService  driving.ContextService
	settingsService driving.SettingsService
	promptWatcher   PromptWatcher
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "docscope",
	Short: "Context retrieval for document question answering",
	Long: `docscope ingests documents, splits them along their structure and
assembles prompt-ready context for questions about them.

It picks a retrieval strategy per question, reranks candidates with an LLM
and compresses the result to fit the model's token budget.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logger.SetVerbose(true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug logs to stderr")
}

// SetServices injects the services the commands operate on.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	documentService = s.DocumentService
	contextService = s.ContextService
	settingsService = s.SettingsService
	promptWatcher = s.PromptWatcher
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
