package boxtree

import (
	"fmt"
	"sync"

	"github.com/banshee-data/mdspace/internal/histogram"
	"golang.org/x/sync/errgroup"
)

// BinTo accumulates every event into the cell of g containing its centre.
// Dimensions are matched by position. Leaves are split across workers, each
// with private accumulators merged into g at the end.
func (t *Tree) BinTo(g *histogram.Grid, workers int) error {
	nd := t.ctrl.NumDims()
	if g.NumDims() != nd {
		return fmt.Errorf("grid has %d dims, tree has %d: %w", g.NumDims(), nd, ErrDimensionality)
	}
	var leaves []*Box
	for _, leaf := range t.Leaves() {
		if overlapsGrid(leaf.extents, g) && leaf.NumEvents() > 0 {
			leaves = append(leaves, leaf)
		}
	}
	if len(leaves) == 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	workers = min(workers, len(leaves))

	var mu sync.Mutex
	var eg errgroup.Group
	per := (len(leaves) + workers - 1) / workers
	for start := 0; start < len(leaves); start += per {
		part := leaves[start:min(start+per, len(leaves))]
		eg.Go(func() error {
			n := g.NPoints()
			sig := make([]float64, n)
			errSq := make([]float64, n)
			count := make([]float64, n)
			for _, leaf := range part {
				err := leaf.ForEachEvent(func(e *Event) {
					i := g.LinearIndexAtCoord(e.Center)
					if i == histogram.OutOfRange {
						return
					}
					sig[i] += e.Signal
					errSq[i] += e.ErrorSquared
					count[i]++
				})
				if err != nil {
					return err
				}
			}
			mu.Lock()
			defer mu.Unlock()
			for i := range sig {
				if count[i] != 0 {
					g.AddAt(i, sig[i], errSq[i], count[i])
				}
			}
			return nil
		})
	}
	return eg.Wait()
}

func overlapsGrid(extents []Extent, g *histogram.Grid) bool {
	for d, e := range extents {
		dim := g.Dimension(d)
		if e.Max < dim.Minimum() || e.Min > dim.Maximum() {
			return false
		}
	}
	return true
}
