package index

import (
	"errors"
	"fmt"
	"sort"
)

// ErrDimensionMismatch is returned when a vector's length differs from the
// index dimension.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// FlatL2 is an exact nearest-neighbour index over squared Euclidean
// distance. It is immutable once built and safe for concurrent searches.
type FlatL2 struct {
	dim  int
	data []float32 // row-major, len = n*dim
	n    int
}

// Hit is a search result. Position is the vector's insertion order.
type Hit struct {
	Position int
	Distance float32
}

// NewFlatL2 copies vectors into a new index. All vectors must have length dim.
func NewFlatL2(dim int, vectors [][]float32) (*FlatL2, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("index dimension must be positive, got %d", dim)
	}
	data := make([]float32, 0, len(vectors)*dim)
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("vector %d has length %d, index has %d: %w", i, len(v), dim, ErrDimensionMismatch)
		}
		data = append(data, v...)
	}
	return &FlatL2{dim: dim, data: data, n: len(vectors)}, nil
}

func (x *FlatL2) Dimension() int { return x.dim }

func (x *FlatL2) Len() int { return x.n }

// Search returns up to k hits ordered by ascending distance. Equal distances
// keep the lower position first.
func (x *FlatL2) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != x.dim {
		return nil, fmt.Errorf("query has length %d, index has %d: %w", len(query), x.dim, ErrDimensionMismatch)
	}
	if k <= 0 || x.n == 0 {
		return nil, nil
	}
	if k > x.n {
		k = x.n
	}

	if k == 1 {
		best := Hit{Position: 0, Distance: x.distance(0, query)}
		for i := 1; i < x.n; i++ {
			if d := x.distance(i, query); d < best.Distance {
				best = Hit{Position: i, Distance: d}
			}
		}
		return []Hit{best}, nil
	}

	hits := make([]Hit, x.n)
	for i := 0; i < x.n; i++ {
		hits[i] = Hit{Position: i, Distance: x.distance(i, query)}
	}
	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Distance < hits[b].Distance
	})
	return hits[:k], nil
}

func (x *FlatL2) distance(i int, query []float32) float32 {
	row := x.data[i*x.dim : (i+1)*x.dim]
	var sum float32
	for j, v := range row {
		d := v - query[j]
		sum += d * d
	}
	return sum
}
