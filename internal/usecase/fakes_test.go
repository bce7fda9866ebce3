package usecase

import (
	"context"
	"errors"
	"sync"

	"qabot/internal/adapter/analyzer"
	"qabot/internal/adapter/embedding"
	"qabot/internal/domain"
)

type staticReader struct {
	entries []domain.KnowledgeEntry
	err     error
}

func (r *staticReader) Read(ctx context.Context) ([]domain.KnowledgeEntry, error) {
	return r.entries, r.err
}

func (r *staticReader) Sources() ([]string, error) {
	return []string{"memory"}, nil
}

func entriesOf(pairs ...[2]string) []domain.KnowledgeEntry {
	out := make([]domain.KnowledgeEntry, len(pairs))
	for i, p := range pairs {
		out[i] = domain.NewKnowledgeEntry(p[0], p[1])
	}
	return out
}

// countingEmbedder records every Embed call made through it.
type countingEmbedder struct {
	inner interface {
		Embed(ctx context.Context, texts []string) ([][]float32, error)
		Dimension() int
		ModelName() string
	}
	mu    sync.Mutex
	calls int
	texts []string
	err   error
}

func (e *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.texts = append(e.texts, texts...)
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	return e.inner.Embed(ctx, texts)
}

func (e *countingEmbedder) Dimension() int    { return e.inner.Dimension() }
func (e *countingEmbedder) ModelName() string { return e.inner.ModelName() }

func hashEmbedder() *embedding.HashEmbedder {
	e, err := embedding.NewHashEmbedder(analyzer.NewTokenizer(true), 384)
	if err != nil {
		panic(err)
	}
	return e
}

// recordingCompleter returns a fixed reply and keeps the prompts it saw.
type recordingCompleter struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (c *recordingCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, prompt)
	return c.reply, c.err
}

func (c *recordingCompleter) ModelName() string { return "recording" }

// stallingCompleter never answers on its own; it returns once ctx is done.
type stallingCompleter struct{}

func (stallingCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (stallingCompleter) ModelName() string { return "stalling" }

var errBoom = errors.New("boom")

func buildCorpus(entries []domain.KnowledgeEntry, emb *countingEmbedder) (*Corpus, error) {
	uc := NewIndexUseCase(&staticReader{entries: entries}, emb, 2)
	return uc.Build(context.Background(), nil)
}
