// Command docscope ingests documents and assembles retrieval context for
// questions about them, from the terminal or as an MCP server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/custodia-labs/docscope/internal/adapters/driven/ai"
	"github.com/custodia-labs/docscope/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docscope/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docscope/internal/adapters/driving/cli"
	"github.com/custodia-labs/docscope/internal/core/services"
	"github.com/custodia-labs/docscope/internal/logger"
	"github.com/custodia-labs/docscope/internal/normalisers"
	"github.com/custodia-labs/docscope/internal/postprocessors"
	"github.com/custodia-labs/docscope/internal/postprocessors/chunker"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

// homeEnv overrides the ~/.docscope base directory.
const homeEnv = "DOCSCOPE_HOME"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx)
	stop()
	os.Exit(code)
}

func run(ctx context.Context) int {
	app, err := wire()
	if err != nil {
		fmt.Fprintf(os.Stderr, "docscope: %v\n", err)
		return 1
	}
	defer app.close()

	cli.SetVersion(version)
	cli.SetServices(app.services)

	if err := cli.Execute(ctx); err != nil {
		return 1
	}
	return 0
}

// app holds the wired services and the resources to release on exit.
type app struct {
	services *cli.Services
	closers  []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// wire builds the adapters and services from the stored settings.
func wire() (*app, error) {
	a := &app{}
	base := os.Getenv(homeEnv)

	configStore, err := file.NewConfigStore(base)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())

	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if settings.LogFile != "" {
		closeLog, err := logger.SetFile(settings.LogFile)
		if err != nil {
			logger.Warn("%v", err)
		} else {
			a.closers = append(a.closers, func() { _ = closeLog() }) //nolint:errcheck // best-effort on exit
		}
	}

	aiServices := ai.Init(settings)
	for _, w := range aiServices.Warnings {
		logger.Warn("%s", w)
	}
	a.closers = append(a.closers, aiServices.Close)

	var dataDir, promptDir string
	if base != "" {
		dataDir = filepath.Join(base, "data")
		promptDir = filepath.Join(base, "prompts")
	}

	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a.closers = append(a.closers, func() { _ = store.Close() }) //nolint:errcheck // best-effort on exit

	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry, aiServices.EmbeddingService)
	pipeline, err := postprocessors.BuildPipeline(registry, settingsService.GetPipelineConfig())
	if err != nil {
		a.close()
		return nil, fmt.Errorf("build pipeline: %w", err)
	}

	structure := chunker.New(
		chunker.WithChunkSize(settings.Chunking.Size),
		chunker.WithOverlap(settings.Chunking.Overlap),
	)

	prompts, err := file.NewPromptStore(promptDir)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("open prompts: %w", err)
	}
	instructions, err := file.NewInstructionStore(promptDir)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("open instructions: %w", err)
	}

	docs, chunks, metas := store.DocumentStore(), store.ChunkStore(), store.MetaStore()
	metaService := services.NewMetaService(docs, chunks, metas, structure)
	documentService := services.NewDocumentService(docs, chunks, metas, normalisers.Default(), pipeline, metaService)

	contextService := services.NewContextService(
		docs, chunks, metaService, structure, aiServices.EmbeddingService, aiServices.LLMService,
	)
	contextService.SetPromptStore(prompts)
	contextService.SetInstructionStore(instructions)
	contextService.SetDefaults(settings.Retrieval)

	a.services = &cli.Services{
		DocumentService: documentService,
		ContextService:  contextService,
		SettingsService: settingsService,
		PromptWatcher:   prompts,
	}
	return a, nil
}
