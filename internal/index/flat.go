package index

import (
	"context"
	"fmt"
	"sort"
)

// FlatL2 is a brute-force index that stores every vector and compares the query
// against all of them with squared Euclidean distance. Results are exact.
//
// A FlatL2 is built single-threaded with Add and is safe for concurrent Search
// once building has finished.
type FlatL2 struct {
	dim  int
	data []float32 // row-major, Len()*dim values
}

// NewFlatL2 creates an empty index for dim-dimensional vectors.
func NewFlatL2(dim int) *FlatL2 {
	return &FlatL2{dim: dim}
}

// Dimension returns the vector size.
func (f *FlatL2) Dimension() int { return f.dim }

// Len returns the number of stored vectors.
func (f *FlatL2) Len() int {
	if f.dim == 0 {
		return 0
	}
	return len(f.data) / f.dim
}

// Add appends vectors in order. The i-th vector added overall gets ID i.
// Nothing is added if any vector has the wrong dimension.
func (f *FlatL2) Add(vectors ...[]float32) error {
	for i, v := range vectors {
		if len(v) != f.dim {
			return fmt.Errorf("%w: vector %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(v), f.dim)
		}
	}
	for _, v := range vectors {
		f.data = append(f.data, v...)
	}
	return nil
}

// Vector returns a copy of the stored vector with the given ID.
func (f *FlatL2) Vector(id int64) ([]float32, bool) {
	if id < 0 || id >= int64(f.Len()) {
		return nil, false
	}
	start := int(id) * f.dim
	return append([]float32(nil), f.data[start:start+f.dim]...), true
}

// Search returns the min(k, Len()) nearest vectors to query. Distance is the squared
// L2 distance; ties are broken by lower ID.
func (f *FlatL2) Search(ctx context.Context, query []float32, k int) ([]Neighbor, error) {
	if len(query) != f.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(query), f.dim)
	}
	n := f.Len()
	if k <= 0 || n == 0 {
		return []Neighbor{}, nil
	}

	all := make([]Neighbor, n)
	for i := 0; i < n; i++ {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row := f.data[i*f.dim : (i+1)*f.dim]
		all[i] = Neighbor{ID: int64(i), Distance: squaredL2(query, row)}
	}

	sort.Slice(all, func(a, b int) bool {
		if all[a].Distance != all[b].Distance {
			return all[a].Distance < all[b].Distance
		}
		return all[a].ID < all[b].ID
	})

	return all[:min(k, n)], nil
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
