package driven

import "context"

// MaxEmbeddingInputChars is the number of runes an embedding adapter sends
// per input. Longer inputs are truncated deterministically.
const MaxEmbeddingInputChars = 8000

// EmbeddingService generates vector embeddings from text.
// This is an optional service - when nil, retrieval runs keyword-only.
//
// Implementations may include:
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Ollama (nomic-embed-text, all-minilm)
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 1536, 3072).
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// TruncateInput cuts text to MaxEmbeddingInputChars runes.
func TruncateInput(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxEmbeddingInputChars {
		return text
	}
	return string(runes[:MaxEmbeddingInputChars])
}
