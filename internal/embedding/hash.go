package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultHashDimension is used when no dimension is configured.
const DefaultHashDimension = 384

// HashEmbedder is a deterministic bag-of-words embedder. Each lowercased word is
// hashed with FNV-1a into one of dim buckets and the counts are L2-normalized.
// Texts sharing words end up close in Euclidean space; it needs no network.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder creates a hash embedder; dim <= 0 means DefaultHashDimension.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = DefaultHashDimension
	}
	return &HashEmbedder{dim: dim}
}

// Name reports the embedder kind and size.
func (e *HashEmbedder) Name() string { return fmt.Sprintf("hash:%d", e.dim) }

// Dimension returns the vector size.
func (e *HashEmbedder) Dimension() int { return e.dim }

// Embed vectorizes every text. It only fails when ctx is done.
func (e *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.vector(text)
	}
	return out, nil
}

func (e *HashEmbedder) vector(text string) []float32 {
	vec := make([]float32, e.dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		vec[h.Sum32()%uint32(e.dim)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}
