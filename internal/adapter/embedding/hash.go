package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"

	"qabot/internal/port"
)

// HashEmbedder is an offline embedder that maps the tokenizer's terms into a
// fixed number of buckets (feature hashing) and L2-normalises the counts.
// Identical text always yields an identical vector.
type HashEmbedder struct {
	tokenizer port.Tokenizer
	dimension int
	model     string
}

func NewHashEmbedder(tokenizer port.Tokenizer, dimension int) (*HashEmbedder, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("hash embedder dimension must be positive, got %d", dimension)
	}
	return &HashEmbedder{
		tokenizer: tokenizer,
		dimension: dimension,
		model:     fmt.Sprintf("hash-bow-%d", dimension),
	}, nil
}

func (e *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		embeddings[i] = e.embedOne(text)
	}
	return embeddings, nil
}

func (e *HashEmbedder) embedOne(text string) []float32 {
	vec := make([]float32, e.dimension)

	for _, term := range termsOf(e.tokenizer, text) {
		h := fnv.New32a()
		h.Write([]byte(term))
		vec[h.Sum32()%uint32(e.dimension)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}

// termsOf prefers unigram+bigram terms when the tokenizer offers them.
func termsOf(tok port.Tokenizer, text string) []string {
	if t, ok := tok.(interface{ Terms(string) []string }); ok {
		return t.Terms(text)
	}
	return tok.Tokenize(text)
}

func (e *HashEmbedder) Dimension() int {
	return e.dimension
}

func (e *HashEmbedder) ModelName() string {
	return e.model
}
