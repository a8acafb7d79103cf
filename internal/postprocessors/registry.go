package postprocessors

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/docscope/internal/core/domain"
	"github.com/custodia-labs/docscope/internal/core/ports/driven"
)

// BuilderFunc creates a PostProcessor from generic config.
// Config is a map of processor-specific settings parsed from user config.
type BuilderFunc func(cfg map[string]any) (driven.PostProcessor, error)

// Registry maps processor names to their builders. Source stages create
// chunks from document content; the others enrich chunks they are given.
type Registry struct {
	builders map[string]BuilderFunc
	sources  map[string]bool
}

// NewRegistry creates a new processor registry.
func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[string]BuilderFunc),
		sources:  make(map[string]bool),
	}
}

// Register adds an enrichment stage builder.
// Name should be unique and match the processor's Name() return value.
func (r *Registry) Register(name string, builder BuilderFunc) {
	r.builders[name] = builder
	delete(r.sources, name)
}

// RegisterSource adds a builder for a stage that creates chunks.
func (r *Registry) RegisterSource(name string, builder BuilderFunc) {
	r.builders[name] = builder
	r.sources[name] = true
}

// Build creates a processor by name with the given config.
func (r *Registry) Build(name string, cfg map[string]any) (driven.PostProcessor, error) {
	builder, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown processor: %s", domain.ErrInvalidInput, name)
	}
	return builder(cfg)
}

// Validate checks a configured stage order: every name is registered and
// used once, and exactly the first stage is a source.
func (r *Registry) Validate(names []string) error {
	if len(names) == 0 {
		return fmt.Errorf("%w: pipeline has no processors", domain.ErrInvalidInput)
	}

	seen := make(map[string]bool, len(names))
	for i, name := range names {
		if !r.Has(name) {
			return fmt.Errorf("%w: unknown processor: %s", domain.ErrInvalidInput, name)
		}
		if seen[name] {
			return fmt.Errorf("%w: processor %s listed twice", domain.ErrInvalidInput, name)
		}
		seen[name] = true

		switch {
		case i == 0 && !r.sources[name]:
			return fmt.Errorf("%w: pipeline must start with a chunking stage, not %s", domain.ErrInvalidInput, name)
		case i > 0 && r.sources[name]:
			return fmt.Errorf("%w: chunking stage %s must run first", domain.ErrInvalidInput, name)
		}
	}
	return nil
}

// Has returns true if a processor with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.builders[name]
	return ok
}

// Names returns all registered processor names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
