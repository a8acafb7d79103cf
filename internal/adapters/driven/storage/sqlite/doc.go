// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements multiple store interfaces
// through a single database connection:
//
//   - DocumentStore: document records and normalised text
//   - ChunkStore: chunks, embeddings and the FTS5 keyword index
//   - MetaStore: cached document meta (chapter table)
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Chunks are mirrored into an external-content FTS5 table by triggers, so
// keyword search never drifts from the chunk rows.
//
// # Data Location
//
// By default, the database is stored at ~/.docscope/data/docscope.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
