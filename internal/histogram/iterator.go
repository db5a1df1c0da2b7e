package histogram

// Iterator walks a contiguous range of cells, skipping cells whose centre is
// not contained by its optional function. Iterators are single-pass: create
// new ones to scan again.
type Iterator struct {
	grid  *Grid
	fn    ImplicitFunction
	begin int
	end   int
	pos   int
	// started is false until the first Next.
	started bool
	center  []float64
}

// CreateIterators partitions [0, NPoints) into up to n contiguous,
// non-overlapping ranges. n is clamped to [1, NPoints], and to 1 when the grid
// is not thread-safe. The last range absorbs the remainder.
func (g *Grid) CreateIterators(n int, fn ImplicitFunction) []*Iterator {
	total := len(g.signal)
	if n < 1 || !g.threadSafe {
		n = 1
	}
	if n > total {
		n = total
	}
	if n < 1 {
		n = 1
	}
	per := total / n
	out := make([]*Iterator, 0, n)
	for i := 0; i < n; i++ {
		begin := i * per
		end := begin + per
		if i == n-1 {
			end = total
		}
		out = append(out, g.newIterator(begin, end, fn))
	}
	return out
}

func (g *Grid) newIterator(begin, end int, fn ImplicitFunction) *Iterator {
	return &Iterator{
		grid:   g,
		fn:     fn,
		begin:  begin,
		end:    end,
		pos:    begin,
		center: make([]float64, len(g.dims)),
	}
}

// Next advances to the next accepted cell and reports whether one exists.
func (it *Iterator) Next() bool {
	if it.started {
		it.pos++
	}
	it.started = true
	for ; it.pos < it.end; it.pos++ {
		if it.fn == nil {
			return true
		}
		it.fillCenter()
		if it.fn.IsPointContained(it.center) {
			return true
		}
	}
	return false
}

func (it *Iterator) fillCenter() {
	rem := it.pos
	for d, dim := range it.grid.dims {
		nb := dim.NBins()
		it.center[d] = dim.BinCenter(rem % nb)
		rem /= nb
	}
}

// Range returns the [begin, end) cell range the iterator covers.
func (it *Iterator) Range() (begin, end int) { return it.begin, it.end }

// Index returns the flat index of the current cell.
func (it *Iterator) Index() int { return it.pos }

func (it *Iterator) Signal() float64       { return it.grid.signal[it.pos] }
func (it *Iterator) ErrorSquared() float64 { return it.grid.errorSquared[it.pos] }
func (it *Iterator) NumEvents() float64    { return it.grid.numEvents[it.pos] }
func (it *Iterator) IsMasked() bool        { return it.grid.mask[it.pos] }

// NormalizedSignal applies the grid's display normalisation.
func (it *Iterator) NormalizedSignal() float64 {
	return it.grid.signal[it.pos] * it.grid.NormalizationFactor(it.grid.displayNormalization, it.pos)
}

// Center returns a fresh copy of the current cell centre.
func (it *Iterator) Center() []float64 {
	it.fillCenter()
	return append([]float64(nil), it.center...)
}
