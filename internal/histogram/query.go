package histogram

import "math"

// LinearIndexAtCoord returns the flat index of the cell containing coords, or
// OutOfRange. Each per-dimension interval is half-open: a coordinate equal to
// a dimension's maximum is out of range.
func (g *Grid) LinearIndexAtCoord(coords []float64) int {
	if len(coords) < len(g.dims) {
		return OutOfRange
	}
	linear := 0
	for d, dim := range g.dims {
		x := coords[d] - dim.Minimum()
		if x < 0 || math.IsNaN(x) {
			return OutOfRange
		}
		ix := 0
		if w := dim.BinWidth(); w > 0 {
			ix = int(x / w)
		} else if x > 0 {
			return OutOfRange
		}
		if ix >= dim.NBins() || ix < 0 {
			return OutOfRange
		}
		linear += ix * g.indexMultiplier[d]
	}
	return linear
}

// LinearIndex converts per-dimension bin indices to a flat index.
func (g *Grid) LinearIndex(indices []int) int {
	linear := 0
	for d, ix := range indices {
		if ix < 0 || ix >= g.dims[d].NBins() {
			return OutOfRange
		}
		linear += ix * g.indexMultiplier[d]
	}
	return linear
}

// Indices converts a flat index into per-dimension bin indices.
func (g *Grid) Indices(linear int) []int {
	out := make([]int, len(g.dims))
	for d, dim := range g.dims {
		out[d] = linear % dim.NBins()
		linear /= dim.NBins()
	}
	return out
}

// CellMinCorner returns the lower corner of cell i.
func (g *Grid) CellMinCorner(i int) []float64 {
	idx := g.Indices(i)
	out := make([]float64, len(idx))
	for d, ix := range idx {
		out[d] = g.dims[d].X(ix)
	}
	return out
}

// CellCenter returns the centre of cell i.
func (g *Grid) CellCenter(i int) []float64 {
	idx := g.Indices(i)
	out := make([]float64, len(idx))
	for d, ix := range idx {
		out[d] = g.dims[d].BinCenter(ix)
	}
	return out
}

// NormalizationFactor returns the multiplier applied to cell i under n.
func (g *Grid) NormalizationFactor(n Normalization, i int) float64 {
	switch n {
	case VolumeNormalization:
		return g.inverseVolume
	case NumEventsNormalization:
		return 1 / g.numEvents[i]
	}
	return 1
}

// SignalAtCoord returns the normalised signal of the cell containing coords,
// or NaN when coords lie outside the grid.
func (g *Grid) SignalAtCoord(coords []float64, n Normalization) float64 {
	i := g.LinearIndexAtCoord(coords)
	if i == OutOfRange {
		return math.NaN()
	}
	return g.signal[i] * g.NormalizationFactor(n, i)
}

// SignalWithMaskAtCoord is SignalAtCoord that also reports masked cells as
// MaskValue.
func (g *Grid) SignalWithMaskAtCoord(coords []float64, n Normalization) float64 {
	i := g.LinearIndexAtCoord(coords)
	if i == OutOfRange || g.mask[i] {
		return MaskValue
	}
	return g.signal[i] * g.NormalizationFactor(n, i)
}

// ContainsPoint reports whether coords lie inside the closed extents of every dimension.
func (g *Grid) ContainsPoint(coords []float64) bool {
	if len(coords) < len(g.dims) {
		return false
	}
	for d, dim := range g.dims {
		if !dim.Contains(coords[d]) {
			return false
		}
	}
	return true
}
