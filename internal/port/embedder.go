package port

import "context"

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	// Implementations must be deterministic for a given model.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// EmbeddingCache persists embeddings keyed by model and text.
type EmbeddingCache interface {
	Get(model, text string) ([]float32, bool, error)

	Put(model, text string, vec []float32) error

	Count() (int, error)

	Clear() error
}
