// Package index provides exact Euclidean nearest-neighbor search over float32 vectors.
//
// Vectors are identified by their 0-based insertion ordinal. That ordinal is the join
// key to the chunk list persisted next to the index, so vectors are never reordered.
package index

import (
	"context"
	"errors"
)

// NoMatch is the neighbor ID a backend may return when it has nothing for a slot.
const NoMatch int64 = -1

var (
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrBadIndexFile      = errors.New("malformed index file")
)

// Neighbor is one search hit. Distance is Euclidean-based; lower is closer.
type Neighbor struct {
	ID       int64
	Distance float32
}

// Searcher is the read side of an index, as used by the search service.
type Searcher interface {
	// Search returns up to k neighbors of query in ascending distance order.
	Search(ctx context.Context, query []float32, k int) ([]Neighbor, error)
	// Len is the number of stored vectors.
	Len() int
}
