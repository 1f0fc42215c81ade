// Package config loads docsearch configuration from an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Index backends.
const (
	BackendFlat   = "flat"
	BackendQdrant = "qdrant"
)

// Embedding providers.
const (
	ProviderOpenAI = "openai"
	ProviderHash   = "hash"
)

// DefaultPath is the config file looked up when no path is given.
const DefaultPath = "docsearch.yaml"

// Config is the root configuration for both the build CLI and the search server.
type Config struct {
	Sources        []string       `yaml:"sources"`
	ChunkMaxLength int            `yaml:"chunk_max_length"`
	Embedder       EmbedderConfig `yaml:"embedder"`
	Index          IndexConfig    `yaml:"index"`
	Server         ServerConfig   `yaml:"server"`
	Log            LogConfig      `yaml:"log"`
}

// EmbedderConfig selects and configures the text embedder.
type EmbedderConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"-"`
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
}

// IndexConfig says where the build artifacts live.
type IndexConfig struct {
	Backend    string       `yaml:"backend"`
	Path       string       `yaml:"path"`
	ChunksPath string       `yaml:"chunks_path"`
	Qdrant     QdrantConfig `yaml:"qdrant"`
}

// QdrantConfig contains connection details for the Qdrant backend.
type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Collection string `yaml:"collection"`
}

// ServerConfig configures the search server.
type ServerConfig struct {
	Port        string `yaml:"port"`
	DefaultTopK int    `yaml:"default_top_k"`
}

// LogConfig configures slog output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Sources:        []string{"data/document.pdf"},
		ChunkMaxLength: 500,
		Embedder: EmbedderConfig{
			Provider:  ProviderOpenAI,
			Model:     "text-embedding-3-small",
			BatchSize: 500,
		},
		Index: IndexConfig{
			Backend:    BackendFlat,
			Path:       "docsearch.index",
			ChunksPath: "chunks.json",
			Qdrant: QdrantConfig{
				Host:       "localhost",
				Port:       6334,
				Collection: "docsearch_chunks",
			},
		},
		Server: ServerConfig{
			Port:        "8000",
			DefaultTopK: 5,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML file at path if it exists, then applies environment overrides.
// A missing file is not an error; an empty path means DefaultPath.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DOCSEARCH_SOURCE"); v != "" {
		cfg.Sources = []string{v}
	}
	cfg.ChunkMaxLength = getEnvInt("DOCSEARCH_CHUNK_MAX_LENGTH", cfg.ChunkMaxLength)
	cfg.Index.Backend = getEnv("DOCSEARCH_INDEX_BACKEND", cfg.Index.Backend)
	cfg.Index.Path = getEnv("DOCSEARCH_INDEX_PATH", cfg.Index.Path)
	cfg.Index.ChunksPath = getEnv("DOCSEARCH_CHUNKS_PATH", cfg.Index.ChunksPath)

	cfg.Embedder.Provider = getEnv("EMBEDDER_PROVIDER", cfg.Embedder.Provider)
	cfg.Embedder.Model = getEnv("EMBEDDER_MODEL", cfg.Embedder.Model)
	cfg.Embedder.BaseURL = getEnv("EMBEDDER_BASE_URL", cfg.Embedder.BaseURL)
	cfg.Embedder.Dimension = getEnvInt("EMBEDDER_DIMENSION", cfg.Embedder.Dimension)
	cfg.Embedder.BatchSize = getEnvInt("EMBEDDER_BATCH_SIZE", cfg.Embedder.BatchSize)
	cfg.Embedder.APIKey = getEnv("OPENAI_API_KEY", cfg.Embedder.APIKey)

	cfg.Index.Qdrant.Host = getEnv("QDRANT_HOST", cfg.Index.Qdrant.Host)
	cfg.Index.Qdrant.Port = getEnvInt("QDRANT_PORT", cfg.Index.Qdrant.Port)
	cfg.Index.Qdrant.Collection = getEnv("QDRANT_COLLECTION", cfg.Index.Qdrant.Collection)

	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
}

// applyDefaults fills zero values a partial YAML file may have left behind.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.ChunkMaxLength == 0 {
		cfg.ChunkMaxLength = def.ChunkMaxLength
	}
	if cfg.Embedder.Provider == "" {
		cfg.Embedder.Provider = def.Embedder.Provider
	}
	if cfg.Embedder.BatchSize == 0 {
		cfg.Embedder.BatchSize = def.Embedder.BatchSize
	}
	if cfg.Index.Backend == "" {
		cfg.Index.Backend = def.Index.Backend
	}
	if cfg.Index.Path == "" {
		cfg.Index.Path = def.Index.Path
	}
	if cfg.Index.ChunksPath == "" {
		cfg.Index.ChunksPath = def.Index.ChunksPath
	}
	if cfg.Index.Qdrant.Host == "" {
		cfg.Index.Qdrant.Host = def.Index.Qdrant.Host
	}
	if cfg.Index.Qdrant.Port == 0 {
		cfg.Index.Qdrant.Port = def.Index.Qdrant.Port
	}
	if cfg.Index.Qdrant.Collection == "" {
		cfg.Index.Qdrant.Collection = def.Index.Qdrant.Collection
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.DefaultTopK == 0 {
		cfg.Server.DefaultTopK = def.Server.DefaultTopK
	}
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	var errs []error
	switch c.Embedder.Provider {
	case ProviderOpenAI:
		if c.Embedder.Model == "" {
			errs = append(errs, errors.New("embedder.model is required for the openai provider"))
		}
	case ProviderHash:
	default:
		errs = append(errs, fmt.Errorf("unknown embedder provider %q", c.Embedder.Provider))
	}
	switch c.Index.Backend {
	case BackendFlat, BackendQdrant:
	default:
		errs = append(errs, fmt.Errorf("unknown index backend %q", c.Index.Backend))
	}
	if c.ChunkMaxLength < 0 {
		errs = append(errs, fmt.Errorf("chunk_max_length must be positive, got %d", c.ChunkMaxLength))
	}
	if c.Embedder.BatchSize < 0 {
		errs = append(errs, fmt.Errorf("embedder.batch_size must be positive, got %d", c.Embedder.BatchSize))
	}
	if c.Server.DefaultTopK < 1 {
		errs = append(errs, fmt.Errorf("server.default_top_k must be at least 1, got %d", c.Server.DefaultTopK))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}
