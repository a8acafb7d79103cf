package postprocessors

import (
	"github.com/custodia-labs/docscope/internal/core/domain"
	"github.com/custodia-labs/docscope/internal/core/ports/driven"
	"github.com/custodia-labs/docscope/internal/postprocessors/chunker"
	"github.com/custodia-labs/docscope/internal/postprocessors/embedder"
)

// RegisterDefaults registers all built-in processors with the registry.
// embeddings may be nil; the embedder stage then passes chunks through.
func RegisterDefaults(r *Registry, embeddings driven.EmbeddingService) {
	r.RegisterSource("chunker", buildChunker)
	r.Register("embedder", func(cfg map[string]any) (driven.PostProcessor, error) {
		return buildEmbedder(cfg, embeddings)
	})
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - chunk_size (int): Characters per chunk (default: 1500)
//   - overlap (int): Overlapping characters between chunks (default: 200)
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if cfg != nil {
		if size := getIntFromConfig(cfg, "chunk_size"); size > 0 {
			opts = append(opts, chunker.WithChunkSize(size))
		}
		if _, ok := cfg["overlap"]; ok {
			opts = append(opts, chunker.WithOverlap(getIntFromConfig(cfg, "overlap")))
		}
	}

	return chunker.New(opts...), nil
}

// buildEmbedder creates the embedding stage.
// Supported config keys:
//   - batch_size (int): Texts per embedding request (default: 32)
func buildEmbedder(cfg map[string]any, service driven.EmbeddingService) (driven.PostProcessor, error) {
	var opts []embedder.Option
	if size := getIntFromConfig(cfg, "batch_size"); size > 0 {
		opts = append(opts, embedder.WithBatchSize(size))
	}
	return embedder.New(service, opts...), nil
}

// BuildPipeline validates the configured stage order and builds the
// processors in that order.
func BuildPipeline(r *Registry, cfg domain.PipelineConfig) (*Pipeline, error) {
	if err := r.Validate(cfg.Processors); err != nil {
		return nil, err
	}

	pipeline := NewPipeline()
	for _, name := range cfg.Processors {
		proc, err := r.Build(name, cfg.GetProcessorConfig(name))
		if err != nil {
			return nil, err
		}
		pipeline.Add(proc)
	}
	return pipeline, nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) int {
	val, ok := cfg[key]
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
