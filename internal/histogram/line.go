package histogram

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// LinePlot holds a profile along a line segment. X is the distance from the
// start point; in bin-boundary mode len(X) == len(Y)+1.
type LinePlot struct {
	X []float64
	Y []float64
	E []float64
}

// LinePoints samples the grid along the segment start→end at every bin
// boundary crossing. With binCentres the midpoint of each crossing pair is
// reported and masked cells are skipped; otherwise every boundary position is
// emitted. Infinite signals are reported as NaN. A segment that never passes
// through a cell, including one with start == end, yields a single point with
// NaN signal.
func (g *Grid) LinePoints(start, end []float64, n Normalization, binCentres bool) (LinePlot, error) {
	nd := len(g.dims)
	if len(start) != nd || len(end) != nd {
		return LinePlot{}, fmt.Errorf("line endpoints have %d/%d coordinates, grid has %d: %w", len(start), len(end), nd, ErrDimensionality)
	}

	dir := make([]float64, nd)
	floats.SubTo(dir, end, start)
	length := floats.Norm(dir, 2)
	if length > 0 {
		floats.Scale(1/length, dir)
	}

	var boundaries []float64
	if g.ContainsPoint(start) {
		boundaries = append(boundaries, 0)
	}
	if g.ContainsPoint(end) {
		boundaries = append(boundaries, length)
	}

	pos := make([]float64, nd)
	for d, dim := range g.dims {
		if dir[d] == 0 {
			continue
		}
		for i := 0; i <= dim.NBins(); i++ {
			linePos := (dim.X(i) - start[d]) / dir[d]
			if linePos < 0 || linePos > length {
				continue
			}
			g.pointAlong(pos, start, dir, linePos)
			if g.ContainsPoint(pos) {
				boundaries = append(boundaries, linePos)
			}
		}
	}

	if len(boundaries) > 0 {
		boundaries = sortedUnique(boundaries)
	}
	// A zero-length segment or one that only touches the grid crosses no cell.
	if len(boundaries) < 2 {
		return LinePlot{X: []float64{0}, Y: []float64{math.NaN()}, E: []float64{math.NaN()}}, nil
	}

	var line LinePlot
	if !binCentres {
		line.X = append(line.X, boundaries[0])
	}
	last := boundaries[0]
	for _, linePos := range boundaries[1:] {
		mid := (linePos + last) * 0.5
		g.pointAlong(pos, start, dir, mid)
		i := g.LinearIndexAtCoord(pos)

		if binCentres {
			if i != OutOfRange && !g.mask[i] {
				y, e := g.normalisedAt(i, n)
				line.X = append(line.X, mid)
				line.Y = append(line.Y, y)
				line.E = append(line.E, e)
			}
		} else {
			if i != OutOfRange {
				y, e := g.normalisedAt(i, n)
				line.Y = append(line.Y, y)
				line.E = append(line.E, e)
			} else {
				line.Y = append(line.Y, math.NaN())
				line.E = append(line.E, math.NaN())
			}
			line.X = append(line.X, linePos)
		}
		last = linePos
	}
	return line, nil
}

func (g *Grid) normalisedAt(i int, n Normalization) (float64, float64) {
	f := g.NormalizationFactor(n, i)
	y := g.signal[i] * f
	if math.IsInf(y, 0) {
		y = math.NaN()
	}
	return y, math.Sqrt(g.errorSquared[i]) * f
}

func (g *Grid) pointAlong(dst, start, dir []float64, t float64) {
	for d := range dst {
		dst[d] = start[d] + dir[d]*t
	}
}

func sortedUnique(v []float64) []float64 {
	sort.Float64s(v)
	out := v[:1]
	for _, x := range v[1:] {
		if x != out[len(out)-1] {
			out = append(out, x)
		}
	}
	return out
}
