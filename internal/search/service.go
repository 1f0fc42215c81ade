// Package search answers queries against a loaded index: embed the query, find the
// nearest vectors, and map them back to their source chunks.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bull/docsearch/internal/artifact"
	"github.com/bull/docsearch/internal/config"
	"github.com/bull/docsearch/internal/embedding"
	"github.com/bull/docsearch/internal/index"
	"github.com/bull/docsearch/internal/storage"
)

// DefaultTopK is the number of results returned when the caller does not ask for a count.
const DefaultTopK = 5

var (
	ErrEmptyQuery  = errors.New("query cannot be empty")
	ErrInvalidTopK = errors.New("top_k must be at least 1")
)

// Result is one search hit, nearest first.
type Result struct {
	Filename string `json:"filename"`
	Page     int    `json:"page"`
	Excerpt  string `json:"excerpt"`
}

// Service holds everything a query needs. It is read-only after construction and
// safe for concurrent use.
type Service struct {
	searcher index.Searcher
	chunks   []artifact.Chunk
	buildID  uuid.UUID
	embedder embedding.Embedder
	logger   *slog.Logger
	closer   io.Closer
	pinger   interface{ Health(ctx context.Context) error }
}

// New creates a service over an already loaded index and its chunk list.
func New(searcher index.Searcher, list *artifact.ChunkList, embedder embedding.Embedder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		searcher: searcher,
		chunks:   list.Chunks,
		buildID:  list.BuildID,
		embedder: embedder,
		logger:   logger,
	}
}

// Load opens the artifacts of one build and returns a ready service. Any missing,
// corrupt or mismatched artifact is an error; there is no partially loaded state.
func Load(ctx context.Context, cfg config.IndexConfig, embedder embedding.Embedder, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	list, err := artifact.ReadChunks(cfg.ChunksPath)
	if err != nil {
		return nil, err
	}
	if d := embedder.Dimension(); d > 0 && list.Dimension > 0 && d != list.Dimension {
		return nil, fmt.Errorf("%w: embedder produces %d dimensions, index was built with %d",
			index.ErrDimensionMismatch, d, list.Dimension)
	}
	if list.Embedder != "" && list.Embedder != embedder.Name() {
		logger.Warn("Index was built with a different embedder",
			"built_with", list.Embedder,
			"querying_with", embedder.Name(),
		)
	}

	var (
		searcher index.Searcher
		closer   io.Closer
		pinger   interface{ Health(ctx context.Context) error }
	)
	switch cfg.Backend {
	case config.BackendQdrant:
		q, err := storage.NewQdrantIndex(cfg.Qdrant.Host, cfg.Qdrant.Port, cfg.Qdrant.Collection)
		if err != nil {
			return nil, err
		}
		if err := q.Open(ctx, list.BuildID); err != nil {
			q.Close()
			return nil, err
		}
		if err := artifact.CheckPair(list, list.BuildID, q.Len()); err != nil {
			q.Close()
			return nil, err
		}
		searcher, closer, pinger = q, q, q
	default:
		flat, buildID, err := index.Load(cfg.Path)
		if err != nil {
			return nil, err
		}
		if err := artifact.CheckPair(list, buildID, flat.Len()); err != nil {
			return nil, err
		}
		searcher = flat
	}

	svc := New(searcher, list, embedder, logger)
	svc.closer = closer
	svc.pinger = pinger
	logger.Info("Index loaded",
		"backend", cfg.Backend,
		"build_id", list.BuildID,
		"chunks", len(list.Chunks),
	)
	return svc, nil
}

// Search returns up to topK chunks nearest to query. Index positions that do not
// resolve to a chunk are skipped.
func (s *Service) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTopK, topK)
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("failed to embed query: got %d vectors", len(vectors))
	}

	hits, err := s.searcher.Search(ctx, vectors[0], topK)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		if hit.ID < 0 || hit.ID >= int64(len(s.chunks)) {
			s.logger.Warn("Skipping index position without a chunk", "id", hit.ID, "chunks", len(s.chunks))
			continue
		}
		c := s.chunks[hit.ID]
		results = append(results, Result{
			Filename: c.Filename,
			Page:     c.Page,
			Excerpt:  c.Text,
		})
	}
	return results, nil
}

// Len returns the number of searchable chunks.
func (s *Service) Len() int { return len(s.chunks) }

// BuildID identifies the build the service was loaded from.
func (s *Service) BuildID() uuid.UUID { return s.buildID }

// Health checks the index backend. A file-backed index is always healthy once loaded.
func (s *Service) Health(ctx context.Context) error {
	if s.pinger != nil {
		return s.pinger.Health(ctx)
	}
	return nil
}

// Close releases the index backend connection, if any.
func (s *Service) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
