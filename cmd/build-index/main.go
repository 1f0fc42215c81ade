// Package main provides the build-index CLI: extract, chunk, embed and index documents.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/docsearch/internal/artifact"
	"github.com/bull/docsearch/internal/config"
	"github.com/bull/docsearch/internal/embedding"
	"github.com/bull/docsearch/internal/extract"
	"github.com/bull/docsearch/internal/index"
	"github.com/bull/docsearch/internal/indexer"
	"github.com/bull/docsearch/internal/logging"
	"github.com/bull/docsearch/internal/storage"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "build-index",
	Short: "docsearch index builder",
	Long:  "CLI tool that builds and inspects the docsearch vector index",
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the index from the configured sources",
	Long: `Builds a new index and chunk list, replacing any previous build.

This command:
1. Extracts text per page from each source (PDF or Markdown)
2. Splits each page into chunks on ". " boundaries
3. Embeds every chunk
4. Inserts the vectors, in chunk order, into the index
5. Writes the index and the chunk list together

Nothing is written if no text could be embedded.

Environment variables:
  OPENAI_API_KEY          API key for the openai embedder
  EMBEDDER_PROVIDER       openai or hash (default: openai)
  DOCSEARCH_INDEX_BACKEND flat or qdrant (default: flat)
  QDRANT_HOST             Qdrant hostname (default: localhost)
  QDRANT_PORT             Qdrant gRPC port (default: 6334)`,
	RunE: runBuild,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print information about the current build",
	RunE:  runInspect,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to the YAML config file")

	f := buildCmd.Flags()
	f.StringSliceP("source", "s", nil, "source file to index (repeatable)")
	f.Int("chunk-max-length", 0, "advisory chunk length in characters")
	f.String("backend", "", "index backend: flat or qdrant")
	f.String("index-path", "", "flat index output file")
	f.String("chunks-path", "", "chunk list output file")
	f.String("embedder", "", "embedding provider: openai or hash")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(inspectCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	f := cmd.Flags()
	if f.Changed("source") {
		cfg.Sources, _ = f.GetStringSlice("source")
	}
	if f.Changed("chunk-max-length") {
		cfg.ChunkMaxLength, _ = f.GetInt("chunk-max-length")
	}
	if f.Changed("backend") {
		cfg.Index.Backend, _ = f.GetString("backend")
	}
	if f.Changed("index-path") {
		cfg.Index.Path, _ = f.GetString("index-path")
	}
	if f.Changed("chunks-path") {
		cfg.Index.ChunksPath, _ = f.GetString("chunks-path")
	}
	if f.Changed("embedder") {
		cfg.Embedder.Provider, _ = f.GetString("embedder")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()
	start := time.Now()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	fmt.Println("Starting build...")
	fmt.Println()

	embedder, err := embedding.New(cfg.Embedder)
	if err != nil {
		return fmt.Errorf("Failed to create embedder: %w", err)
	}
	fmt.Printf("Embedder: %s\n", embedder.Name())

	var writer indexer.IndexWriter
	switch cfg.Index.Backend {
	case config.BackendQdrant:
		q := cfg.Index.Qdrant
		fmt.Printf("Connecting to Qdrant at %s:%d...\n", q.Host, q.Port)
		store, err := storage.NewQdrantIndex(q.Host, q.Port, q.Collection)
		if err != nil {
			return fmt.Errorf("Failed to connect to Qdrant: %w", err)
		}
		defer store.Close()
		fmt.Println("Qdrant healthy")
		writer = &indexer.QdrantWriter{Index: store, ChunksPath: cfg.Index.ChunksPath}
	default:
		writer = &indexer.FlatWriter{IndexPath: cfg.Index.Path, ChunksPath: cfg.Index.ChunksPath}
	}

	fmt.Println()
	fmt.Printf("Indexing %d source(s)...\n", len(cfg.Sources))
	pipeline := indexer.NewPipeline(extract.New(logger), embedder, writer, cfg.ChunkMaxLength, logger)

	result, err := pipeline.Run(ctx, cfg.Sources)
	if err != nil {
		if errors.Is(err, indexer.ErrNoEmbeddings) {
			return fmt.Errorf("No embeddings generated, nothing was written: %w", err)
		}
		return fmt.Errorf("Indexing failed: %w", err)
	}

	fmt.Println()
	fmt.Println("Build complete!")
	fmt.Printf("  Build: %s\n", result.BuildID)
	fmt.Printf("  Pages: %d\n", result.Pages)
	fmt.Printf("  Chunks: %d\n", result.Chunks)
	fmt.Printf("  Dimension: %d\n", result.Dimension)
	fmt.Printf("  Backend: %s\n", cfg.Index.Backend)
	fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Millisecond))

	if len(result.FailedSources) > 0 {
		fmt.Println()
		fmt.Println("Sources without text:")
		for _, src := range result.FailedSources {
			fmt.Printf("  - %s\n", src)
		}
	}

	fmt.Println()
	fmt.Printf("Total time: %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	list, err := artifact.ReadChunks(cfg.Index.ChunksPath)
	if err != nil {
		return err
	}
	fmt.Printf("Chunk list: %s\n", cfg.Index.ChunksPath)
	fmt.Printf("  Build: %s\n", list.BuildID)
	fmt.Printf("  Embedder: %s\n", list.Embedder)
	fmt.Printf("  Dimension: %d\n", list.Dimension)
	fmt.Printf("  Chunks: %d\n", len(list.Chunks))

	if cfg.Index.Backend != config.BackendFlat {
		return nil
	}
	idx, buildID, err := index.Load(cfg.Index.Path)
	if err != nil {
		return err
	}
	fmt.Printf("Index: %s\n", cfg.Index.Path)
	fmt.Printf("  Build: %s\n", buildID)
	fmt.Printf("  Vectors: %d\n", idx.Len())
	if err := artifact.CheckPair(list, buildID, idx.Len()); err != nil {
		return err
	}
	fmt.Println("Index and chunk list match")
	return nil
}
