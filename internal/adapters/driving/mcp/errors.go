// Package mcp provides an MCP (Model Context Protocol) server adapter for docscope.
// It lets AI assistants build retrieval context from ingested documents.
package mcp

import "errors"

// ErrMissingContextService is returned when the context service is not provided.
var ErrMissingContextService = errors.New("mcp: context service is required")

// ErrMissingDocumentService is returned by document tools when no document
// service was provided.
var ErrMissingDocumentService = errors.New("mcp: document service is not configured")
