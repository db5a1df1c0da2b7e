package histogram

import (
	"errors"
	"testing"

	"github.com/banshee-data/mdspace/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateIteratorsPartitions(t *testing.T) {
	g := cubeGrid(t, -10, 10, 5)

	its := g.CreateIterators(4, nil)
	require.Len(t, its, 4)
	next := 0
	for _, it := range its {
		begin, end := it.Range()
		assert.Equal(t, next, begin)
		next = end
	}
	assert.Equal(t, g.NPoints(), next)

	seen := 0
	for _, it := range its {
		for it.Next() {
			seen++
		}
	}
	assert.Equal(t, g.NPoints(), seen)
}

func TestCreateIteratorsClamp(t *testing.T) {
	g := cubeGrid(t, 0, 1, 2)

	assert.Len(t, g.CreateIterators(0, nil), 1)
	assert.Len(t, g.CreateIterators(1000, nil), g.NPoints())

	g.SetThreadSafe(false)
	assert.Len(t, g.CreateIterators(4, nil), 1)
}

func TestIteratorPredicate(t *testing.T) {
	g := cubeGrid(t, -10, 10, 5)
	g.SetSignalAt(62, 3)
	box := BoxFunction{Min: []float64{-2, -2, -2}, Max: []float64{2, 2, 2}}

	var hits []int
	for _, it := range g.CreateIterators(3, box) {
		for it.Next() {
			hits = append(hits, it.Index())
			assert.Equal(t, 3.0, it.Signal())
			assert.Equal(t, []float64{0, 0, 0}, it.Center())
		}
	}
	assert.Equal(t, []int{62}, hits)
}

func TestIteratorNotRewindable(t *testing.T) {
	g := cubeGrid(t, 0, 1, 1)
	it := g.CreateIterators(1, nil)[0]
	assert.True(t, it.Next())
	assert.False(t, it.Next())
	assert.False(t, it.Next())
}

func TestApplyImplicitFunction(t *testing.T) {
	g := cubeGrid(t, -10, 10, 5)
	g.SetTo(1, 1, 1)
	box := BoxFunction{Min: []float64{-2, -2, -2}, Max: []float64{2, 2, 2}}
	require.NoError(t, g.ApplyImplicitFunction(box, 0, 0))
	assert.Equal(t, 1.0, g.TotalSignal())
	assert.Equal(t, 1.0, g.SignalAt(62))

	flat, err := New(
		geometry.MustDimension("x", "X", nil, 0, 1, 2),
		geometry.MustDimension("y", "Y", nil, 0, 1, 2),
	)
	require.NoError(t, err)
	err = flat.ApplyImplicitFunction(box, 0, 0)
	assert.True(t, errors.Is(err, ErrDimensionality))
}

func TestPlaneAndComposite(t *testing.T) {
	plane := PlaneFunction{Normal: []float64{1, 0, 0}, Origin: []float64{0, 0, 0}}
	assert.True(t, plane.IsPointContained([]float64{1, 5, 5}))
	assert.True(t, plane.IsPointContained([]float64{0, -5, 5}))
	assert.False(t, plane.IsPointContained([]float64{-1, 0, 0}))

	both := CompositeFunction{plane, BoxFunction{Min: []float64{-1, -1, -1}, Max: []float64{1, 1, 1}}}
	assert.True(t, both.IsPointContained([]float64{0.5, 0, 0}))
	assert.False(t, both.IsPointContained([]float64{2, 0, 0}))
	assert.False(t, both.IsPointContained([]float64{-0.5, 0, 0}))
}
