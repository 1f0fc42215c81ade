// Package artifact persists the ordered chunk list that accompanies an index and
// writes the index/chunk-list pair so a build never leaves half of it behind.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ErrArtifactMismatch means the index and chunk list were not produced by the same build.
var ErrArtifactMismatch = errors.New("index and chunk list do not belong to the same build")

// Chunk is a passage of one source page. Its position in ChunkList.Chunks equals the
// ID of its vector in the index.
type Chunk struct {
	Filename string `json:"filename"`
	Page     int    `json:"page"`
	Text     string `json:"text"`
}

// ChunkList is the serialized chunk sequence of one build.
type ChunkList struct {
	BuildID   uuid.UUID `json:"build_id"`
	Embedder  string    `json:"embedder"`
	Dimension int       `json:"dimension"`
	Count     int       `json:"count"`
	Chunks    []Chunk   `json:"chunks"`
}

// ReadChunks loads a chunk list file.
func ReadChunks(path string) (*ChunkList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chunk list: %w", err)
	}
	var list ChunkList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse chunk list %s: %w", path, err)
	}
	if list.Count != len(list.Chunks) {
		return nil, fmt.Errorf("%w: chunk list header says %d chunks, file has %d",
			ErrArtifactMismatch, list.Count, len(list.Chunks))
	}
	return &list, nil
}

// CheckPair verifies that an index loaded with buildID and holding indexLen vectors
// matches list.
func CheckPair(list *ChunkList, buildID uuid.UUID, indexLen int) error {
	if list.BuildID != buildID {
		return fmt.Errorf("%w: index build %s, chunk list build %s", ErrArtifactMismatch, buildID, list.BuildID)
	}
	if indexLen != len(list.Chunks) {
		return fmt.Errorf("%w: index holds %d vectors, chunk list holds %d", ErrArtifactMismatch, indexLen, len(list.Chunks))
	}
	return nil
}

// WritePair writes the chunk list to chunksPath and, when writeIndex is not nil, the
// index to indexPath. Both go to temporary files first and are renamed into place only
// after every write has succeeded.
func WritePair(indexPath string, writeIndex func(io.Writer) error, chunksPath string, list *ChunkList) error {
	list.Count = len(list.Chunks)

	var staged []stagedFile
	cleanup := func() {
		for _, s := range staged {
			os.Remove(s.tmp)
		}
	}

	if writeIndex != nil {
		tmp, err := stage(indexPath, writeIndex)
		if err != nil {
			return fmt.Errorf("write index: %w", err)
		}
		staged = append(staged, stagedFile{tmp: tmp, final: indexPath})
	}

	tmp, err := stage(chunksPath, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", " ")
		return enc.Encode(list)
	})
	if err != nil {
		cleanup()
		return fmt.Errorf("write chunk list: %w", err)
	}
	staged = append(staged, stagedFile{tmp: tmp, final: chunksPath})

	for _, s := range staged {
		if err := os.Rename(s.tmp, s.final); err != nil {
			cleanup()
			return fmt.Errorf("rename %s: %w", s.final, err)
		}
	}
	return nil
}

type stagedFile struct {
	tmp   string
	final string
}

func stage(path string, write func(io.Writer) error) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", err
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
