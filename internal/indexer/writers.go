package indexer

import (
	"context"
	"fmt"
	"io"

	"github.com/bull/docsearch/internal/artifact"
	"github.com/bull/docsearch/internal/index"
	"github.com/bull/docsearch/internal/storage"
)

// FlatWriter builds an exact L2 index and writes it next to the chunk list.
type FlatWriter struct {
	IndexPath  string
	ChunksPath string
}

// Write inserts vectors into a new FlatL2 in order and persists the pair atomically.
func (w *FlatWriter) Write(ctx context.Context, vectors [][]float32, list *artifact.ChunkList) error {
	idx := index.NewFlatL2(len(vectors[0]))
	if err := idx.Add(vectors...); err != nil {
		return err
	}
	return artifact.WritePair(w.IndexPath, func(out io.Writer) error {
		return idx.WriteTo(out, list.BuildID)
	}, w.ChunksPath, list)
}

// QdrantWriter loads vectors into a fresh Qdrant collection and writes the chunk list.
type QdrantWriter struct {
	Index      *storage.QdrantIndex
	ChunksPath string
}

// Write recreates the collection, upserts vectors by ordinal, then persists the chunk list.
func (w *QdrantWriter) Write(ctx context.Context, vectors [][]float32, list *artifact.ChunkList) error {
	if err := w.Index.Recreate(ctx, len(vectors[0])); err != nil {
		return err
	}
	if err := w.Index.Add(ctx, list.BuildID, vectors); err != nil {
		return fmt.Errorf("qdrant: %w", err)
	}
	return artifact.WritePair("", nil, w.ChunksPath, list)
}
