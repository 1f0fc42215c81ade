package index

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fiveVectors() [][]float32 {
	return [][]float32{
		{0, 0, 0},
		{1, 0, 0},
		{0, 2, 0},
		{0, 0, 3},
		{1, 1, 1},
	}
}

func newTestIndex(t *testing.T) *FlatL2 {
	t.Helper()
	f := NewFlatL2(3)
	require.NoError(t, f.Add(fiveVectors()...))
	return f
}

func TestFlatL2_ExactMatchAtZeroDistance(t *testing.T) {
	f := newTestIndex(t)
	ctx := context.Background()

	for i, v := range fiveVectors() {
		hits, err := f.Search(ctx, v, 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, int64(i), hits[0].ID)
		assert.Zero(t, hits[0].Distance)
	}
}

func TestFlatL2_ResultBoundAndOrder(t *testing.T) {
	f := newTestIndex(t)
	ctx := context.Background()
	query := []float32{0.9, 0.1, 0}

	for _, k := range []int{1, 3, 5, 10} {
		hits, err := f.Search(ctx, query, k)
		require.NoError(t, err)
		assert.Len(t, hits, min(k, f.Len()))
		for i := 1; i < len(hits); i++ {
			assert.LessOrEqual(t, hits[i-1].Distance, hits[i].Distance)
		}
	}

	hits, err := f.Search(ctx, query, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), hits[0].ID)
	assert.InDelta(t, 0.02, hits[0].Distance, 1e-6)
}

func TestFlatL2_TiesBrokenByID(t *testing.T) {
	f := NewFlatL2(1)
	require.NoError(t, f.Add([]float32{1}, []float32{-1}, []float32{1}))

	hits, err := f.Search(context.Background(), []float32{0}, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1, 2}, []int64{hits[0].ID, hits[1].ID, hits[2].ID})
}

func TestFlatL2_EmptyAndZeroK(t *testing.T) {
	f := NewFlatL2(2)
	hits, err := f.Search(context.Background(), []float32{1, 1}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	f = newTestIndex(t)
	hits, err = f.Search(context.Background(), []float32{1, 1, 1}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestFlatL2_DimensionMismatch(t *testing.T) {
	f := newTestIndex(t)

	err := f.Add([]float32{1, 2, 3}, []float32{1, 2})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Equal(t, 5, f.Len(), "a rejected batch must not be partially added")

	_, err = f.Search(context.Background(), []float32{1}, 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestFlatL2_InsertionOrderIsID(t *testing.T) {
	f := newTestIndex(t)
	for i, want := range fiveVectors() {
		got, ok := f.Vector(int64(i))
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := f.Vector(5)
	assert.False(t, ok)
	_, ok = f.Vector(NoMatch)
	assert.False(t, ok)
}

func TestFlatL2_FileRoundTrip(t *testing.T) {
	f := newTestIndex(t)
	buildID := uuid.New()

	path := filepath.Join(t.TempDir(), "test.index")
	out, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.WriteTo(out, buildID))
	require.NoError(t, out.Close())

	loaded, gotID, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, buildID, gotID)
	assert.Equal(t, f.Dimension(), loaded.Dimension())
	require.Equal(t, f.Len(), loaded.Len())
	for i := range fiveVectors() {
		want, _ := f.Vector(int64(i))
		got, _ := loaded.Vector(int64(i))
		assert.Equal(t, want, got, "vector %d changed across save/load", i)
	}
}

func TestReadFrom_RejectsCorruptFiles(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newTestIndex(t).WriteTo(&buf, uuid.New()))
	good := buf.Bytes()

	_, _, err := ReadFrom(bytes.NewReader([]byte("not an index at all, definitely not")))
	assert.ErrorIs(t, err, ErrBadIndexFile)

	_, _, err = ReadFrom(bytes.NewReader(good[:len(good)-4]))
	assert.ErrorIs(t, err, ErrBadIndexFile)

	_, _, err = ReadFrom(bytes.NewReader(good[:10]))
	assert.ErrorIs(t, err, ErrBadIndexFile)
}

func TestLoad_MissingFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "nope.index"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
