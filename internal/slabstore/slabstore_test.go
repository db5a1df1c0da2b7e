package slabstore

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFile(t *testing.T) *File {
	t.Helper()
	f, err := Create(filepath.Join(t.TempDir(), "test.mdspace"))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestCreate_AppliesMigrations(t *testing.T) {
	f := newTestFile(t)
	v, err := f.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(SchemaVersion), v)

	var journal string
	require.NoError(t, f.db.QueryRow("PRAGMA journal_mode").Scan(&journal))
	assert.Equal(t, "wal", journal)
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.mdspace"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGroups(t *testing.T) {
	f := newTestFile(t)
	root := f.Root()
	assert.Equal(t, "/", root.Path())

	ws, err := root.CreateGroup("workspace")
	require.NoError(t, err)
	_, err = ws.CreateGroup("experiment0")
	require.NoError(t, err)
	_, err = ws.CreateGroup("data")
	require.NoError(t, err)

	_, err = root.CreateGroup("workspace")
	assert.ErrorIs(t, err, ErrExists)
	_, err = root.CreateGroup("a/b")
	assert.ErrorIs(t, err, ErrInvalidPath)

	again, err := root.RequireGroup("workspace")
	require.NoError(t, err)
	assert.Equal(t, "/workspace", again.Path())

	members, err := ws.Members()
	require.NoError(t, err)
	assert.Equal(t, []string{"data", "experiment0"}, members)

	g, err := f.OpenGroup("/workspace/experiment0")
	require.NoError(t, err)
	assert.Equal(t, "experiment0", g.Name())

	_, err = f.OpenGroup("/workspace/missing")
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err := f.Exists("workspace/data")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAttributes(t *testing.T) {
	f := newTestFile(t)
	g, err := f.Root().CreateGroup("workspace")
	require.NoError(t, err)

	require.NoError(t, g.SetAttr("name", "MDEventWorkspace"))
	require.NoError(t, g.SetAttr("version", 2))
	require.NoError(t, g.SetAttr("min", -1.5))
	require.NoError(t, g.SetAttr("extents", []float64{0, 1, 2, 3}))
	require.NoError(t, g.SetAttr("version", 3))
	require.NoError(t, g.SetAttr("blob", []byte{0, 1, 2, 255}))
	assert.Error(t, g.SetAttr("bad", struct{}{}))

	a, err := g.Attr("name")
	require.NoError(t, err)
	s, err := a.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "MDEventWorkspace", s)
	_, err = a.ReadInt64()
	assert.ErrorIs(t, err, ErrTypeMismatch)

	a, err = g.Attr("version")
	require.NoError(t, err)
	v, err := a.ReadInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)
	fv, err := a.ReadFloat64()
	require.NoError(t, err)
	assert.Equal(t, 3.0, fv)

	a, err = g.Attr("extents")
	require.NoError(t, err)
	ext, err := a.ReadFloat64s()
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2, 3}, ext)

	_, err = g.Attr("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	has, err := g.HasAttr("missing")
	require.NoError(t, err)
	assert.False(t, has)

	names, err := g.Attrs()
	require.NoError(t, err)
	assert.Equal(t, []string{"blob", "extents", "min", "name", "version"}, names)

	a, err = g.Attr("blob")
	require.NoError(t, err)
	b, err := a.ReadBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2, 255}, b)
}

func TestDataset_SlabsAcrossChunks(t *testing.T) {
	f := newTestFile(t)
	ds, err := f.Root().CreateDataset("events", 3, WithChunkRows(4))
	require.NoError(t, err)

	data := make([]float64, 10*3)
	for i := range data {
		data[i] = float64(i)
	}
	require.NoError(t, ds.WriteSlab(0, data))
	assert.Equal(t, []int64{10, 3}, ds.Shape())

	got, err := ds.ReadSlab(3, 5)
	require.NoError(t, err)
	if diff := cmp.Diff(data[9:24], got); diff != "" {
		t.Errorf("slab mismatch (-want +got):\n%s", diff)
	}

	// Overwrite rows 2..5 in place, spanning a chunk boundary.
	patch := []float64{-1, -1, -1, -2, -2, -2, -3, -3, -3, -4, -4, -4}
	require.NoError(t, ds.WriteSlab(2, patch))
	all, err := ds.ReadFloat64()
	require.NoError(t, err)
	want := append(append(append([]float64{}, data[:6]...), patch...), data[18:]...)
	if diff := cmp.Diff(want, all); diff != "" {
		t.Errorf("after overwrite (-want +got):\n%s", diff)
	}

	require.NoError(t, ds.Append([]float64{100, 101, 102}))
	assert.Equal(t, int64(11), ds.Rows())

	reopened, err := f.OpenDataset("/events")
	require.NoError(t, err)
	assert.Equal(t, int64(11), reopened.Rows())
	assert.Equal(t, 4, reopened.ChunkRows())
	last, err := reopened.ReadSlab(10, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 101, 102}, last)
}

func TestDataset_Errors(t *testing.T) {
	f := newTestFile(t)
	root := f.Root()
	ds, err := root.WriteDataset("signal", 1, []float64{1, 2, 3})
	require.NoError(t, err)

	_, err = ds.ReadSlab(2, 2)
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.ErrorIs(t, ds.WriteSlab(5, []float64{1}), ErrOutOfRange)

	wide, err := root.CreateDataset("wide", 2)
	require.NoError(t, err)
	assert.ErrorIs(t, wide.WriteSlab(0, []float64{1, 2, 3}), ErrShape)

	_, err = root.CreateDataset("zero", 0)
	assert.ErrorIs(t, err, ErrShape)
	_, err = root.CreateDataset("signal", 1)
	assert.ErrorIs(t, err, ErrExists)

	_, err = f.OpenGroup("/signal")
	assert.ErrorIs(t, err, ErrNotGroup)
	_, err = f.OpenDataset("/")
	assert.ErrorIs(t, err, ErrNotDataset)

	empty, err := root.CreateDataset("empty", 4)
	require.NoError(t, err)
	got, err := empty.ReadFloat64()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReopenPreservesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.mdspace")
	f, err := Create(path)
	require.NoError(t, err)
	g, err := f.Root().CreateGroup("data")
	require.NoError(t, err)
	_, err = g.WriteDataset("signal", 2, []float64{1, 2, 3, 4})
	require.NoError(t, err)
	require.NoError(t, g.SetAttr("frame_version", 1))
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())

	_, err = f.Root().Members()
	assert.True(t, errors.Is(err, ErrClosed))

	f, err = Open(path)
	require.NoError(t, err)
	ds, err := f.OpenDataset("data/signal")
	require.NoError(t, err)
	got, err := ds.ReadFloat64()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4}, got)
	require.NoError(t, f.Close())

	// Create on an existing path starts over.
	f, err = Create(path)
	require.NoError(t, err)
	defer f.Close()
	members, err := f.Root().Members()
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestCleanPath(t *testing.T) {
	for in, want := range map[string]string{
		"":          "/",
		"a":         "/a",
		"/a/b/":     "/a/b",
		"a//b/../c": "/a/c",
	} {
		assert.Equal(t, want, CleanPath(in), in)
	}
}

func TestOpenReadOnly_LeavesFileUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ro.mdspace")
	f, err := Create(path)
	require.NoError(t, err)
	_, err = f.Root().WriteDataset("signal", 1, []float64{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	ro, err := OpenReadOnly(path)
	require.NoError(t, err)
	assert.True(t, ro.ReadOnly())
	v, err := ro.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(SchemaVersion), v)
	ds, err := ro.OpenDataset("signal")
	require.NoError(t, err)
	got, err := ds.ReadFloat64()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, got)

	assert.ErrorIs(t, ro.Root().SetAttr("x", 1), ErrReadOnly)
	_, err = ro.Root().CreateGroup("g")
	assert.ErrorIs(t, err, ErrReadOnly)
	assert.ErrorIs(t, ds.Append([]float64{4}), ErrReadOnly)
	require.NoError(t, ro.Close())

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(before, after), "read-only open changed the file")
}

func TestOpenReadOnly_RejectsBadSchema(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.mdspace")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err := OpenReadOnly(empty)
	assert.ErrorIs(t, err, ErrSchemaVersion)
	st, err := os.Stat(empty)
	require.NoError(t, err)
	assert.Zero(t, st.Size())

	newer := filepath.Join(dir, "newer.mdspace")
	f, err := Create(newer)
	require.NoError(t, err)
	_, err = f.db.Exec(`UPDATE schema_migrations SET version = ?`, SchemaVersion+1)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	_, err = OpenReadOnly(newer)
	assert.ErrorIs(t, err, ErrSchemaVersion)

	_, err = OpenReadOnly(filepath.Join(dir, "missing.mdspace"))
	assert.ErrorIs(t, err, ErrNotFound)
}
