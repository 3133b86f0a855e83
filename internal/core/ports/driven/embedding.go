package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Implementations may include:
//   - Ollama (nomic-embed-text, all-minilm)
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Local models via inference servers
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts. Failures are
	// independent per text: result[i] is nil when texts[i] failed, and
	// the first error encountered is returned alongside the partial
	// results so callers can count failures without losing siblings.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 768, 1536).
	// Fixed for the lifetime of an index.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable with a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// TokenCounter counts model tokens in text. The chunker sizes chunks
// with it; implementations fall back to a character approximation when
// an exact tokenizer is unavailable.
type TokenCounter interface {
	// Count returns the number of tokens in text.
	Count(text string) int
}
