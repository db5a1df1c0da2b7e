package boxtree

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructureRoundTrip(t *testing.T) {
	tree := newTestTree(t, 2, 8, 3, 6)
	rng := rand.New(rand.NewSource(7))
	events := uniformEvents(rng, 400, 2, -10, 10)
	for i := range events {
		events[i].RunIndex = uint16(i % 3)
		events[i].DetectorID = int32(i)
	}
	_, err := tree.AddEvents(events)
	require.NoError(t, err)
	require.NoError(t, tree.SplitAll(2))
	tree.RefreshCache()

	// Lay the leaves out back to back, as a saved file would.
	stored := make(map[int64][]Event)
	var next int64
	var buf bytes.Buffer
	err = tree.MarshalStructure(&buf, func(b *Box) (int64, int64) {
		evs, err := b.Events()
		require.NoError(t, err)
		off := next
		stored[off] = evs
		next += int64(len(evs))
		return off, int64(len(evs))
	})
	require.NoError(t, err)

	ctrl, err := ParseControllerString(tree.Controller().String())
	require.NoError(t, err)
	back, err := UnmarshalStructure(&buf, ctrl)
	require.NoError(t, err)

	wantLeaves, wantGrids := tree.BoxCount()
	gotLeaves, gotGrids := back.BoxCount()
	assert.Equal(t, wantLeaves, gotLeaves)
	assert.Equal(t, wantGrids, gotGrids)
	assert.Equal(t, tree.NumEvents(), back.NumEvents())
	assert.Equal(t, tree.Signal(), back.Signal())

	require.NoError(t, back.LoadLeaves(func(off, count int64) ([]Event, error) {
		return stored[off], nil
	}))
	orig := tree.Leaves()
	restored := back.Leaves()
	require.Len(t, restored, len(orig))
	for i := range orig {
		assert.Equal(t, orig[i].ID(), restored[i].ID())
		assert.Equal(t, orig[i].Extents(), restored[i].Extents())
		a, err := orig[i].Events()
		require.NoError(t, err)
		b, err := restored[i].Events()
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}

	// The restored tree routes new events exactly like the original.
	pt := []float64{3.3, -7.1}
	assert.Equal(t, tree.LeafAt(pt).ID(), back.LeafAt(pt).ID())

	back.RefreshCache()
	assert.InDelta(t, tree.Signal(), back.Signal(), 1e-9)
}

func TestUnmarshalStructureRejectsGarbage(t *testing.T) {
	_, err := UnmarshalStructure(bytes.NewReader([]byte("nope")), NewController(2))
	assert.Error(t, err)
}

func encodeStructure(t *testing.T, blob structureBlob) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	require.NoError(t, gob.NewEncoder(gz).Encode(blob))
	require.NoError(t, gz.Close())
	return &buf
}

// twoChildStructure is a root over [0,10]x[0,10] split in two along x.
func twoChildStructure() structureBlob {
	ext := func(x0, x1 float64) []Extent { return []Extent{{x0, x1}, {0, 10}} }
	return structureBlob{
		Version: structureVersion,
		NumDims: 2,
		Boxes: []boxRecord{
			{ID: 0, IsRoot: true, Extents: ext(0, 10), Split: []int{2, 1}, Children: []uint64{1, 2}},
			{ID: 1, Parent: 0, Depth: 1, Extents: ext(0, 5)},
			{ID: 2, Parent: 0, Depth: 1, Extents: ext(5, 10)},
		},
	}
}

func TestUnmarshalStructureValidatesLinks(t *testing.T) {
	tree, err := UnmarshalStructure(encodeStructure(t, twoChildStructure()), NewController(2))
	require.NoError(t, err)
	leaves, grids := tree.BoxCount()
	assert.Equal(t, int64(2), leaves)
	assert.Equal(t, int64(1), grids)
	assert.Equal(t, uint64(2), tree.LeafAt([]float64{7, 1}).ID())

	tests := []struct {
		name   string
		mutate func(b *structureBlob)
	}{
		{"negative split factors", func(b *structureBlob) { b.Boxes[0].Split = []int{-2, -1} }},
		{"zero split factor", func(b *structureBlob) { b.Boxes[0].Split = []int{2, 0} }},
		{"split rank mismatch", func(b *structureBlob) { b.Boxes[0].Split = []int{2} }},
		{"child is the root", func(b *structureBlob) { b.Boxes[0].Children = []uint64{1, 0} }},
		{"child listed twice", func(b *structureBlob) { b.Boxes[0].Children = []uint64{1, 1} }},
		{"child of another box", func(b *structureBlob) {
			b.Boxes[2].Split = []int{1, 1}
			b.Boxes[2].Children = []uint64{1}
		}},
		{"unlisted box", func(b *structureBlob) {
			b.Boxes = append(b.Boxes, boxRecord{ID: 3, Parent: 0, Depth: 1, Extents: []Extent{{0, 1}, {0, 1}}})
		}},
		{"duplicate id", func(b *structureBlob) { b.Boxes[2].ID = 1 }},
		{"second root", func(b *structureBlob) { b.Boxes[2].IsRoot = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob := twoChildStructure()
			tt.mutate(&blob)
			_, err := UnmarshalStructure(encodeStructure(t, blob), NewController(2))
			assert.ErrorIs(t, err, ErrInvariantViolation)
		})
	}
}
