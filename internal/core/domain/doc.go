// Package domain defines the core business entities for docscope.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An ingested document and its processing status
//   - Chunk: An offset-tracked slice of a document's text
//   - Chapter / DocumentMeta: Derived document structure
//   - Intent: The classified scope and task of a query
//   - RetrievalConfig: Caller-chosen chunk budget and search weights
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
