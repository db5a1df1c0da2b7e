package boxtree

import (
	"fmt"
	"sync/atomic"

	"github.com/banshee-data/mdspace/internal/monitoring"
	"golang.org/x/sync/errgroup"
)

var logf = monitoring.Component("BoxTree")

// Tree is an adaptive box tree rooted at a single leaf covering the full
// extents. It is safe for concurrent insertion, splitting and reading.
type Tree struct {
	ctrl    *Controller
	root    *Box
	dropped atomic.Int64
}

// New creates a tree with a single empty root leaf.
func New(ctrl *Controller, extents []Extent) (*Tree, error) {
	if len(extents) != ctrl.NumDims() {
		return nil, fmt.Errorf("controller has %d dims, got %d extents: %w", ctrl.NumDims(), len(extents), ErrDimensionality)
	}
	if err := validateExtents(extents); err != nil {
		return nil, err
	}
	root := newLeaf(ctrl, nil, 0, append([]Extent(nil), extents...))
	ctrl.registerLeaf(0)
	return &Tree{ctrl: ctrl, root: root}, nil
}

func (t *Tree) Controller() *Controller { return t.ctrl }
func (t *Tree) Root() *Box              { return t.root }
func (t *Tree) NumDims() int            { return t.ctrl.NumDims() }
func (t *Tree) Extents() []Extent       { return t.root.Extents() }

// Dropped is the number of events rejected for lying outside the root.
func (t *Tree) Dropped() int64 { return t.dropped.Load() }

// AddEvent inserts e into the leaf that contains it. Events outside the root
// extents are counted as dropped and are not an error.
func (t *Tree) AddEvent(e Event) error {
	b, ok, err := t.insert(e)
	if err != nil || !ok {
		return err
	}
	return b.touch()
}

// AddEvents inserts events in order and returns how many were kept.
func (t *Tree) AddEvents(events []Event) (int, error) {
	touched := make(map[*Box]struct{})
	added := 0
	for _, e := range events {
		b, ok, err := t.insert(e)
		if err != nil {
			return added, err
		}
		if ok {
			added++
			touched[b] = struct{}{}
		}
	}
	for b := range touched {
		if err := b.touch(); err != nil {
			return added, err
		}
	}
	return added, nil
}

// AddEventsParallel splits events into contiguous chunks inserted by up to
// workers goroutines, and waits for all of them.
func (t *Tree) AddEventsParallel(events []Event, workers int) error {
	if workers < 1 {
		workers = 1
	}
	chunk := (len(events) + workers - 1) / workers
	if chunk == 0 {
		return nil
	}
	var g errgroup.Group
	for start := 0; start < len(events); start += chunk {
		end := min(start+chunk, len(events))
		part := events[start:end]
		g.Go(func() error {
			_, err := t.AddEvents(part)
			return err
		})
	}
	return g.Wait()
}

func (t *Tree) insert(e Event) (*Box, bool, error) {
	if len(e.Center) != t.ctrl.NumDims() {
		return nil, false, fmt.Errorf("event has %d coordinates, tree has %d: %w", len(e.Center), t.ctrl.NumDims(), ErrDimensionality)
	}
	if !containsAll(t.root.extents, e.Center) {
		if t.dropped.Add(1) == 1 {
			logf("dropping events outside the root extents, first at %v", e.Center)
		}
		return nil, false, nil
	}
	b := t.root
	for {
		b.mu.Lock()
		if b.children != nil {
			next, ok := b.childFor(e.Center)
			b.mu.Unlock()
			if !ok {
				return nil, false, fmt.Errorf("event at %v inside box %d fits no child: %w", e.Center, b.id, ErrInvariantViolation)
			}
			b = next
			continue
		}
		if !b.resident {
			b.mu.Unlock()
			if err := b.pageIn(); err != nil {
				return nil, false, err
			}
			continue
		}
		b.events = append(b.events, e)
		b.dirty = true
		b.memEvents.Store(int64(len(b.events)))
		b.mu.Unlock()
		return b, true, nil
	}
}

// LeafAt returns the leaf containing coords, or nil when coords lie outside
// the root.
func (t *Tree) LeafAt(coords []float64) *Box {
	if len(coords) != t.ctrl.NumDims() || !containsAll(t.root.extents, coords) {
		return nil
	}
	b := t.root
	for {
		b.mu.Lock()
		if b.children == nil {
			b.mu.Unlock()
			return b
		}
		next, ok := b.childFor(coords)
		b.mu.Unlock()
		if !ok {
			return nil
		}
		b = next
	}
}

// Walk visits boxes depth first, parents before children. Returning false
// from fn skips the box's children.
func (t *Tree) Walk(fn func(b *Box) bool) {
	walk(t.root, fn)
}

func walk(b *Box, fn func(b *Box) bool) {
	if !fn(b) {
		return
	}
	for _, c := range b.Children() {
		walk(c, fn)
	}
}

// Leaves returns every current leaf in depth-first order.
func (t *Tree) Leaves() []*Box {
	var out []*Box
	t.Walk(func(b *Box) bool {
		if b.IsLeaf() {
			out = append(out, b)
			return false
		}
		return true
	})
	return out
}

// NumEvents counts events in every leaf without paging anything in.
func (t *Tree) NumEvents() int64 {
	var n int64
	for _, leaf := range t.Leaves() {
		n += leaf.NumEvents()
	}
	return n
}

// BoxCount returns the number of leaves and grid boxes.
func (t *Tree) BoxCount() (leaves, grids int64) {
	return t.ctrl.NumLeaves(), t.ctrl.NumGrids()
}
