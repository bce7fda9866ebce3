package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

type stubEmbedder struct {
	calls int
}

func (e *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func (e *stubEmbedder) Dimension() int    { return 1 }
func (e *stubEmbedder) ModelName() string { return "stub" }

func TestQueryCache_LRUEviction(t *testing.T) {
	c := NewQueryCache(2, time.Minute)
	c.Put("m", "a", []float32{1})
	c.Put("m", "b", []float32{2})

	// touch a so b becomes the oldest
	if _, ok := c.Get("m", "a"); !ok {
		t.Fatal("expected hit for a")
	}
	c.Put("m", "c", []float32{3})

	if _, ok := c.Get("m", "b"); ok {
		t.Error("expected b to be evicted")
	}
	if _, ok := c.Get("m", "a"); !ok {
		t.Error("expected a to survive")
	}
	if c.Size() != 2 {
		t.Errorf("expected size 2, got %d", c.Size())
	}
}

func TestQueryCache_ConcurrentAccess(t *testing.T) {
	const maxSize = 8
	c := NewQueryCache(maxSize, time.Minute)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				q := fmt.Sprintf("q%d", (i+w)%20)
				if _, ok := c.Get("m", q); !ok {
					c.Put("m", q, []float32{float32(i)})
				}
			}
		}(w)
	}
	wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) > maxSize {
		t.Errorf("cache grew past its bound: %d entries", len(c.entries))
	}
	if len(c.order) != len(c.entries) {
		t.Fatalf("order has %d keys for %d entries", len(c.order), len(c.entries))
	}
	for _, k := range c.order {
		if _, ok := c.entries[k]; !ok {
			t.Errorf("order key %s has no entry", k)
		}
	}
}

func TestQueryCache_TTL(t *testing.T) {
	c := NewQueryCache(10, time.Millisecond)
	c.Put("m", "q", []float32{1})
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("m", "q"); ok {
		t.Error("expected expired entry to miss")
	}
}

func TestQueryCache_KeyedByModel(t *testing.T) {
	c := NewQueryCache(10, time.Minute)
	c.Put("m1", "q", []float32{1})
	if _, ok := c.Get("m2", "q"); ok {
		t.Error("entries must not leak across models")
	}
}

func TestCachedEmbedder(t *testing.T) {
	inner := &stubEmbedder{}
	e := NewCachedEmbedder(inner, NewQueryCache(10, time.Minute))

	for i := 0; i < 3; i++ {
		vecs, err := e.Embed(context.Background(), []string{"hello"})
		if err != nil {
			t.Fatal(err)
		}
		if vecs[0][0] != 5 {
			t.Errorf("unexpected vector %v", vecs[0])
		}
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 inner call, got %d", inner.calls)
	}

	if _, err := e.Embed(context.Background(), []string{"a", "b"}); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 2 {
		t.Errorf("batches should bypass the cache, calls=%d", inner.calls)
	}
}
