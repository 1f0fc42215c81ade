// Package indexer runs the offline build: extract → chunk → embed → index → persist.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bull/docsearch/internal/artifact"
	"github.com/bull/docsearch/internal/chunker"
	"github.com/bull/docsearch/internal/embedding"
	"github.com/bull/docsearch/internal/extract"
)

var (
	// ErrNoEmbeddings stops a build that produced nothing to index.
	ErrNoEmbeddings = errors.New("no embeddings to index; check text extraction and chunking")
	// ErrEmbeddingCount means the embedder returned a different number of vectors than chunks.
	ErrEmbeddingCount = errors.New("embedding count does not match chunk count")
)

// BuildResult contains statistics about a build.
type BuildResult struct {
	Sources       int
	Pages         int
	Chunks        int
	Dimension     int
	BuildID       uuid.UUID
	FailedSources []string // sources that yielded no pages
	Duration      time.Duration
}

// PageExtractor reads a source into pages. It reports problems itself and never fails.
type PageExtractor interface {
	Extract(path string) []extract.Page
}

// IndexWriter inserts vectors, in order, into a new index and persists it with list.
type IndexWriter interface {
	Write(ctx context.Context, vectors [][]float32, list *artifact.ChunkList) error
}

// Pipeline orchestrates the build. It is sequential; the i-th chunk produced is
// the i-th vector inserted.
type Pipeline struct {
	extractor PageExtractor
	embedder  embedding.Embedder
	writer    IndexWriter
	maxLength int
	logger    *slog.Logger
}

// NewPipeline creates a build pipeline. maxLength <= 0 uses chunker.DefaultMaxLength.
func NewPipeline(
	extractor PageExtractor,
	embedder embedding.Embedder,
	writer IndexWriter,
	maxLength int,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if maxLength <= 0 {
		maxLength = chunker.DefaultMaxLength
	}
	return &Pipeline{
		extractor: extractor,
		embedder:  embedder,
		writer:    writer,
		maxLength: maxLength,
		logger:    logger,
	}
}

// Run builds and persists an index over sources. No artifact is written unless every
// step succeeded.
func (p *Pipeline) Run(ctx context.Context, sources []string) (*BuildResult, error) {
	start := time.Now()
	result := &BuildResult{Sources: len(sources), BuildID: uuid.New()}
	p.logger.Info("Starting build", "build_id", result.BuildID, "sources", len(sources))

	var pages []extract.Page
	for _, src := range sources {
		got := p.extractor.Extract(src)
		if len(got) == 0 {
			result.FailedSources = append(result.FailedSources, src)
		}
		pages = append(pages, got...)
	}
	result.Pages = len(pages)
	p.logger.Info("Extracted pages", "pages", len(pages))

	chunks := ChunkPages(pages, p.maxLength)
	result.Chunks = len(chunks)
	p.logger.Info("Split into chunks", "chunks", len(chunks), "max_length", p.maxLength)

	var vectors [][]float32
	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		var err error
		vectors, err = p.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embeddings: %w", err)
		}
	}
	if len(vectors) == 0 {
		return nil, ErrNoEmbeddings
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: %d vectors for %d chunks", ErrEmbeddingCount, len(vectors), len(chunks))
	}
	result.Dimension = len(vectors[0])
	p.logger.Info("Generated embeddings", "count", len(vectors), "dimension", result.Dimension)

	list := &artifact.ChunkList{
		BuildID:   result.BuildID,
		Embedder:  p.embedder.Name(),
		Dimension: result.Dimension,
		Chunks:    chunks,
	}
	if err := p.writer.Write(ctx, vectors, list); err != nil {
		return nil, fmt.Errorf("write index: %w", err)
	}

	result.Duration = time.Since(start)
	p.logger.Info("Build complete",
		"build_id", result.BuildID,
		"pages", result.Pages,
		"chunks", result.Chunks,
		"failed_sources", len(result.FailedSources),
		"duration", result.Duration,
	)
	return result, nil
}

// ChunkPages splits every page and tags each passage with its page's filename and number.
func ChunkPages(pages []extract.Page, maxLength int) []artifact.Chunk {
	var chunks []artifact.Chunk
	for _, page := range pages {
		for _, text := range chunker.Split(page.Text, maxLength) {
			chunks = append(chunks, artifact.Chunk{
				Filename: page.Filename,
				Page:     page.Page,
				Text:     text,
			})
		}
	}
	return chunks
}
