package embedding

import (
	"context"
	"fmt"
	"os"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
)

// LangChainEmbedder adapts a langchaingo embedder to port.Embedder.
type LangChainEmbedder struct {
	inner     embeddings.Embedder
	model     string
	dimension int
}

// NewLangChainEmbedder wraps any langchaingo embedding client.
func NewLangChainEmbedder(client embeddings.EmbedderClient, model string, dimension, batchSize int) (*LangChainEmbedder, error) {
	opts := []embeddings.Option{embeddings.WithStripNewLines(false)}
	if batchSize > 0 {
		opts = append(opts, embeddings.WithBatchSize(batchSize))
	}
	inner, err := embeddings.NewEmbedder(client, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return &LangChainEmbedder{inner: inner, model: model, dimension: dimension}, nil
}

// NewGoogleAIEmbedder embeds with the Gemini embedding API.
func NewGoogleAIEmbedder(ctx context.Context, apiKeyEnv, model string, dimension, batchSize int) (*LangChainEmbedder, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", apiKeyEnv)
	}
	if model == "" {
		model = "text-embedding-004"
	}
	client, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultEmbeddingModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create googleai client: %w", err)
	}
	return NewLangChainEmbedder(client, model, KnownDimension(model, dimension), batchSize)
}

// NewLangChainOllamaEmbedder embeds through a local Ollama server.
func NewLangChainOllamaEmbedder(model, serverURL string, dimension, batchSize int) (*LangChainEmbedder, error) {
	opts := []ollama.Option{ollama.WithModel(model)}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}
	client, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}
	return NewLangChainEmbedder(client, model, KnownDimension(model, dimension), batchSize)
}

func (e *LangChainEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vecs, err := e.inner.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(texts))
	}
	for i, v := range vecs {
		if len(v) != e.dimension {
			return nil, fmt.Errorf("vector %d has dimension %d, expected %d", i, len(v), e.dimension)
		}
	}
	return vecs, nil
}

func (e *LangChainEmbedder) Dimension() int {
	return e.dimension
}

func (e *LangChainEmbedder) ModelName() string {
	return e.model
}
