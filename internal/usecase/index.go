package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"qabot/internal/domain"
	"qabot/internal/observability"
	"qabot/internal/port"
)

const defaultBatchSize = 64

// Progress receives batch progress while contexts are embedded.
type Progress func(done, total int)

// IndexUseCase loads the dataset and embeds every entry's context.
type IndexUseCase struct {
	reader    port.DatasetReader
	embedder  port.Embedder
	batchSize int
}

// NewIndexUseCase creates a new index use case.
func NewIndexUseCase(reader port.DatasetReader, embedder port.Embedder, batchSize int) *IndexUseCase {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &IndexUseCase{
		reader:    reader,
		embedder:  embedder,
		batchSize: batchSize,
	}
}

// Build reads all entries and returns a corpus whose vector i embeds
// entry i's context. Dataset errors come back unchanged so callers can
// tell a *domain.SchemaError from a *domain.LoadError.
func (u *IndexUseCase) Build(ctx context.Context, progress Progress) (*Corpus, error) {
	ctx, span := observability.StartCorpusSpan(ctx, u.embedder.ModelName())
	defer span.End()

	start := time.Now()
	hitsBefore := u.cacheHits()

	entries, err := u.reader.Read(ctx)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	vectors, err := u.embedAll(ctx, entries, progress)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	corpus, err := NewCorpus(entries, vectors, u.embedder.ModelName(), u.embedder.Dimension())
	if err != nil {
		observability.RecordError(span, err)
		return nil, fmt.Errorf("failed to build index: %w", err)
	}

	sources, err := u.reader.Sources()
	if err != nil {
		slog.Warn("could not list dataset sources", "error", err)
	}
	corpus.sources = sources
	corpus.buildTime = time.Since(start)
	corpus.cacheHits = u.cacheHits() - hitsBefore

	observability.RecordCorpus(span, corpus.Len(), corpus.Dimension())
	slog.Info("corpus built",
		"entries", corpus.Len(),
		"model", corpus.Model(),
		"dimension", corpus.Dimension(),
		"duration", corpus.buildTime.Round(time.Millisecond),
	)
	return corpus, nil
}

// cacheHits reads the hit counter of a caching embedder, or 0.
func (u *IndexUseCase) cacheHits() int {
	if h, ok := u.embedder.(interface{ Hits() int }); ok {
		return h.Hits()
	}
	return 0
}

// embedAll embeds contexts in batches, preserving entry order.
func (u *IndexUseCase) embedAll(ctx context.Context, entries []domain.KnowledgeEntry, progress Progress) ([][]float32, error) {
	vectors := make([][]float32, 0, len(entries))
	total := len(entries)

	for start := 0; start < total; start += u.batchSize {
		end := min(start+u.batchSize, total)

		texts := make([]string, end-start)
		for i, e := range entries[start:end] {
			texts[i] = e.Context
		}

		batch, err := u.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed entries %d-%d: %w", start, end-1, err)
		}
		if len(batch) != len(texts) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d entries", len(batch), len(texts))
		}
		vectors = append(vectors, batch...)

		if progress != nil {
			progress(end, total)
		}
	}

	return vectors, nil
}
