package boxtree

import (
	"github.com/banshee-data/mdspace/internal/histogram"
)

// RefreshCache recomputes the cached aggregates of every box bottom-up.
// Resident leaves sum their events; paged-out leaves keep the aggregates
// computed when they were evicted. It must be called after a batch of
// insertions or splits; nothing refreshes automatically.
func (t *Tree) RefreshCache() {
	t.root.refresh()
}

func (b *Box) refresh() {
	b.mu.Lock()
	children := b.children
	if children == nil {
		if b.resident {
			b.aggregateEventsLocked()
		}
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()

	var sig, errSq float64
	var n uint64
	cen := make([]float64, len(b.extents))
	for _, c := range children {
		c.refresh()
		c.mu.Lock()
		sig += c.signal
		errSq += c.errorSquared
		n += c.nEvents
		for d, x := range c.centroid {
			cen[d] += x * c.signal
		}
		c.mu.Unlock()
	}
	if sig != 0 {
		for d := range cen {
			cen[d] /= sig
		}
	}

	b.mu.Lock()
	b.signal, b.errorSquared, b.nEvents, b.centroid = sig, errSq, n, cen
	b.mu.Unlock()
}

// Signal and ErrorSquared return the root aggregates from the last refresh.
func (t *Tree) Signal() float64       { return t.root.Signal() }
func (t *Tree) ErrorSquared() float64 { return t.root.ErrorSquared() }

// Centroid is the signal-weighted mean event position from the last refresh.
func (t *Tree) Centroid() []float64 { return t.root.Centroid() }

// IntegrateFunction sums signal and squared error of the events contained by
// fn. Boxes entirely inside fn contribute their cached aggregates, so the
// cache must be fresh; other leaves are scanned event by event.
func (t *Tree) IntegrateFunction(fn histogram.ImplicitFunction) (signal, errorSquared float64, err error) {
	t.Walk(func(b *Box) bool {
		if err != nil {
			return false
		}
		if boxInside(fn, b.extents) {
			b.mu.Lock()
			signal += b.signal
			errorSquared += b.errorSquared
			b.mu.Unlock()
			return false
		}
		if !b.IsLeaf() {
			return true
		}
		err = b.ForEachEvent(func(e *Event) {
			if fn.IsPointContained(e.Center) {
				signal += e.Signal
				errorSquared += e.ErrorSquared
			}
		})
		return false
	})
	return signal, errorSquared, err
}

// boxInside reports whether every corner of the box is contained by fn. The
// shipped implicit functions are convex, so that means the whole box is.
func boxInside(fn histogram.ImplicitFunction, extents []Extent) bool {
	nd := len(extents)
	corner := make([]float64, nd)
	for mask := 0; mask < 1<<nd; mask++ {
		for d, e := range extents {
			if mask&(1<<d) != 0 {
				corner[d] = e.Max
			} else {
				corner[d] = e.Min
			}
		}
		if !fn.IsPointContained(corner) {
			return false
		}
	}
	return true
}
