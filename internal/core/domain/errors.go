package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown content type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrDocumentNotReady indicates the document has not finished processing.
	ErrDocumentNotReady = errors.New("document not ready")

	// ErrLLMUnavailable indicates the completion provider is not configured.
	// Enhancement stages fall back to their deterministic paths.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Vector similarity is skipped and keyword scoring is used alone.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrCollaboratorUnavailable indicates an embedding or completion call
	// failed or timed out. Always recoverable.
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")

	// ErrMalformedOutput indicates a structured LLM response could not be parsed.
	ErrMalformedOutput = errors.New("malformed collaborator output")

	// ErrConfiguration indicates missing credentials or settings for a call path.
	ErrConfiguration = errors.New("configuration error")
)
