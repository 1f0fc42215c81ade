package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.ChunkMaxLength)
	assert.Equal(t, BackendFlat, cfg.Index.Backend)
	assert.Equal(t, "chunks.json", cfg.Index.ChunksPath)
	assert.Equal(t, 5, cfg.Server.DefaultTopK)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_YAMLAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docsearch.yaml")
	yamlDoc := `
sources: ["a.pdf", "b.md"]
chunk_max_length: 200
embedder:
  provider: hash
  dimension: 64
index:
  path: out/idx.bin
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))

	t.Setenv("DOCSEARCH_CHUNKS_PATH", "out/chunks.json")
	t.Setenv("QDRANT_PORT", "7000")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.pdf", "b.md"}, cfg.Sources)
	assert.Equal(t, 200, cfg.ChunkMaxLength)
	assert.Equal(t, ProviderHash, cfg.Embedder.Provider)
	assert.Equal(t, 64, cfg.Embedder.Dimension)
	assert.Equal(t, "out/idx.bin", cfg.Index.Path)
	assert.Equal(t, "out/chunks.json", cfg.Index.ChunksPath)
	assert.Equal(t, 7000, cfg.Index.Qdrant.Port)
	// untouched fields keep defaults
	assert.Equal(t, 500, cfg.Embedder.BatchSize)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sources: [unterminated"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate_RejectsUnknownNames(t *testing.T) {
	cfg := Default()
	cfg.Embedder.Provider = "word2vec"
	cfg.Index.Backend = "faiss"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "word2vec")
	assert.Contains(t, err.Error(), "faiss")
}
