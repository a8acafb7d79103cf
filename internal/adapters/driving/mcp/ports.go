package mcp

import (
	"github.com/custodia-labs/docscope/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Context assembles context and runs strategy searches.
	Context driving.ContextService

	// Document lists documents and exposes their structure.
	Document driving.DocumentService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Context == nil {
		return ErrMissingContextService
	}
	// Document is optional; meta tools and resources report not found without it.
	return nil
}
