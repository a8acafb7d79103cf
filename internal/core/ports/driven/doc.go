// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - DocumentStore: Document persistence
//   - ChunkStore: Chunk persistence with vector and keyword search
//   - MetaStore: Cached per-document meta
//   - NormaliserRegistry: Selects the normaliser for an upload
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Without it, retrieval is keyword-only.
//   - LLMService: Without it, every LLM-assisted stage uses its deterministic fallback.
//   - PromptStore / InstructionStore: Without them, built-in defaults are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
