package histogram

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// ImplicitFunction is a geometric predicate over points.
type ImplicitFunction interface {
	IsPointContained(coords []float64) bool
}

// BoxFunction contains points inside the closed axis-aligned box [Min, Max].
// Only the leading len(Min) coordinates are tested.
type BoxFunction struct {
	Min, Max []float64
}

func (b BoxFunction) IsPointContained(coords []float64) bool {
	if len(coords) < len(b.Min) {
		return false
	}
	for d := range b.Min {
		if coords[d] < b.Min[d] || coords[d] > b.Max[d] {
			return false
		}
	}
	return true
}

// PlaneFunction contains points on the side of the plane the normal points to.
type PlaneFunction struct {
	Normal []float64
	Origin []float64
}

func (p PlaneFunction) IsPointContained(coords []float64) bool {
	if len(coords) < len(p.Normal) {
		return false
	}
	diff := make([]float64, len(p.Normal))
	floats.SubTo(diff, coords[:len(p.Normal)], p.Origin)
	return floats.Dot(diff, p.Normal) >= 0
}

// CompositeFunction contains points contained by every member.
type CompositeFunction []ImplicitFunction

func (c CompositeFunction) IsPointContained(coords []float64) bool {
	for _, f := range c {
		if !f.IsPointContained(coords) {
			return false
		}
	}
	return true
}

// ApplyImplicitFunction overwrites signal and squared error of every cell
// whose centre is not contained by fn. The test uses the first three
// coordinates of the centre, so the grid needs at least three dimensions.
func (g *Grid) ApplyImplicitFunction(fn ImplicitFunction, signal, errorSquared float64) error {
	if len(g.dims) < 3 {
		return fmt.Errorf("implicit function needs at least 3 dimensions, grid has %d: %w", len(g.dims), ErrDimensionality)
	}
	center := make([]float64, 3)
	for i := range g.signal {
		rem := i
		for d := 0; d < 3; d++ {
			nb := g.dims[d].NBins()
			center[d] = g.dims[d].BinCenter(rem % nb)
			rem /= nb
		}
		if !fn.IsPointContained(center) {
			g.signal[i] = signal
			g.errorSquared[i] = errorSquared
		}
	}
	return nil
}
