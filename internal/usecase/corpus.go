package usecase

import (
	"fmt"
	"sync/atomic"
	"time"

	"qabot/internal/adapter/index"
	"qabot/internal/domain"
)

// Corpus is the immutable result of indexing: entries, their vectors in an
// exact L2 index, and the model that produced them. Entry i is vector i.
type Corpus struct {
	entries   []domain.KnowledgeEntry
	index     *index.FlatL2
	model     string
	sources   []string
	builtAt   time.Time
	buildTime time.Duration
	cacheHits int
}

// NewCorpus builds the index over vectors. len(vectors) must equal len(entries).
func NewCorpus(entries []domain.KnowledgeEntry, vectors [][]float32, model string, dimension int) (*Corpus, error) {
	if len(entries) != len(vectors) {
		return nil, fmt.Errorf("corpus has %d entries but %d vectors", len(entries), len(vectors))
	}
	idx, err := index.NewFlatL2(dimension, vectors)
	if err != nil {
		return nil, err
	}
	own := make([]domain.KnowledgeEntry, len(entries))
	copy(own, entries)
	return &Corpus{
		entries: own,
		index:   idx,
		model:   model,
		builtAt: time.Now(),
	}, nil
}

func (c *Corpus) Len() int { return len(c.entries) }

func (c *Corpus) Entry(i int) domain.KnowledgeEntry { return c.entries[i] }

// Entries returns a copy of the entries in index order.
func (c *Corpus) Entries() []domain.KnowledgeEntry {
	out := make([]domain.KnowledgeEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *Corpus) Model() string { return c.model }

func (c *Corpus) Dimension() int { return c.index.Dimension() }

func (c *Corpus) BuiltAt() time.Time { return c.builtAt }

// Nearest returns the closest entry to vec, or nil for an empty corpus.
func (c *Corpus) Nearest(vec []float32) (*domain.Match, error) {
	hits, err := c.index.Search(vec, 1)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}
	h := hits[0]
	return &domain.Match{
		Position: h.Position,
		Distance: h.Distance,
		Entry:    c.entries[h.Position],
	}, nil
}

func (c *Corpus) Stats() domain.CorpusStats {
	return domain.CorpusStats{
		Entries:   len(c.entries),
		Dimension: c.index.Dimension(),
		Model:     c.model,
		Sources:   append([]string(nil), c.sources...),
		BuildTime: c.buildTime,
		CacheHits: c.cacheHits,
	}
}

// CorpusHolder publishes the current corpus to concurrent readers. A turn
// loads the pointer once and keeps that corpus even if a reload swaps it.
type CorpusHolder struct {
	current    atomic.Pointer[Corpus]
	generation atomic.Uint64
	onSwap     []func(*Corpus)
}

func NewCorpusHolder(c *Corpus) *CorpusHolder {
	h := &CorpusHolder{}
	h.current.Store(c)
	return h
}

func (h *CorpusHolder) Load() *Corpus {
	return h.current.Load()
}

// OnSwap registers a hook run after every Swap.
// Register hooks before the holder is shared.
func (h *CorpusHolder) OnSwap(fn func(*Corpus)) {
	h.onSwap = append(h.onSwap, fn)
}

func (h *CorpusHolder) Swap(c *Corpus) {
	h.current.Store(c)
	h.generation.Add(1)
	for _, fn := range h.onSwap {
		fn(c)
	}
}

// Generation counts swaps since creation.
func (h *CorpusHolder) Generation() uint64 {
	return h.generation.Load()
}
