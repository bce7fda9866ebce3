package index

import (
	"errors"
	"testing"
)

func TestFlatL2_NearestNeighbour(t *testing.T) {
	x, err := NewFlatL2(2, [][]float32{
		{0, 0},
		{1, 1},
		{5, 5},
	})
	if err != nil {
		t.Fatal(err)
	}

	hits, err := x.Search([]float32{0.9, 1.2}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Position != 1 {
		t.Fatalf("expected position 1, got %+v", hits)
	}
	// 0.1^2 + 0.2^2
	if d := hits[0].Distance; d < 0.0499 || d > 0.0501 {
		t.Errorf("expected squared L2 0.05, got %f", d)
	}
}

func TestFlatL2_TiesResolveToLowerPosition(t *testing.T) {
	x, err := NewFlatL2(3, [][]float32{
		{9, 9, 9},
		{1, 2, 3},
		{1, 2, 3},
	})
	if err != nil {
		t.Fatal(err)
	}

	hits, err := x.Search([]float32{1, 2, 3}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if hits[0].Position != 1 {
		t.Errorf("expected tie to resolve to position 1, got %d", hits[0].Position)
	}

	hits, err = x.Search([]float32{1, 2, 3}, 3)
	if err != nil {
		t.Fatal(err)
	}
	want := []int{1, 2, 0}
	for i, h := range hits {
		if h.Position != want[i] {
			t.Errorf("hits[%d].Position = %d, want %d", i, h.Position, want[i])
		}
	}
}

func TestFlatL2_Empty(t *testing.T) {
	x, err := NewFlatL2(4, nil)
	if err != nil {
		t.Fatal(err)
	}
	hits, err := x.Search([]float32{1, 0, 0, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits, got %v", hits)
	}
}

func TestFlatL2_DimensionMismatch(t *testing.T) {
	if _, err := NewFlatL2(2, [][]float32{{1, 2}, {1, 2, 3}}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch on build, got %v", err)
	}

	x, _ := NewFlatL2(2, [][]float32{{1, 2}})
	if _, err := x.Search([]float32{1}, 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch on search, got %v", err)
	}
}

func TestFlatL2_CopiesInput(t *testing.T) {
	v := []float32{1, 1}
	x, _ := NewFlatL2(2, [][]float32{v})
	v[0] = 100

	hits, _ := x.Search([]float32{1, 1}, 1)
	if hits[0].Distance != 0 {
		t.Errorf("index must not alias caller slices, distance %f", hits[0].Distance)
	}
}

func TestFlatL2_KLargerThanN(t *testing.T) {
	x, _ := NewFlatL2(1, [][]float32{{1}, {2}})
	hits, err := x.Search([]float32{0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Errorf("expected 2 hits, got %d", len(hits))
	}
}
