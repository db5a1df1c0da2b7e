package boxtree

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// EventWriter persists the complete event list of a leaf. oldOffset and
// oldCount describe the range the leaf held before, or -1 and 0.
type EventWriter interface {
	WriteEvents(oldOffset, oldCount int64, events []Event) (offset int64, err error)
}

// Box is one node of the tree. A leaf holds events; a grid box holds
// children. The transition from leaf to grid box happens in place, so a
// *Box stays valid for the lifetime of the tree.
type Box struct {
	mu sync.Mutex

	id      uint64
	depth   int
	parent  *Box
	ctrl    *Controller
	extents []Extent

	// Grid state. children is nil for leaves and never changes once set.
	children []*Box
	split    []int
	bounds   [][]float64

	// Leaf state. A resident leaf holds all of its events in memory; a
	// paged-out leaf holds none and fileCount records how many are stored.
	events     []Event
	resident   bool
	dirty      bool
	fileOffset int64
	fileCount  int64
	generation uint64
	memEvents  atomic.Int64

	// Cached aggregates, refreshed by Tree.RefreshCache.
	signal       float64
	errorSquared float64
	nEvents      uint64
	centroid     []float64
}

func newLeaf(c *Controller, parent *Box, depth int, extents []Extent) *Box {
	return &Box{
		id:         c.newID(),
		depth:      depth,
		parent:     parent,
		ctrl:       c,
		extents:    extents,
		resident:   true,
		fileOffset: -1,
		centroid:   make([]float64, len(extents)),
	}
}

func (b *Box) ID() uint64   { return b.id }
func (b *Box) Depth() int   { return b.depth }
func (b *Box) Parent() *Box { return b.parent }

// Extents returns a copy of the box extents.
func (b *Box) Extents() []Extent { return append([]Extent(nil), b.extents...) }

func (b *Box) IsLeaf() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.children == nil
}

// Children returns the children of a grid box, or nil for a leaf.
func (b *Box) Children() []*Box {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.children
}

// NumEvents is the current event count of a leaf, resident or not, without
// paging anything in. Grid boxes report zero.
func (b *Box) NumEvents() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.countLocked()
}

func (b *Box) countLocked() int64 {
	if b.children != nil {
		return 0
	}
	if b.resident {
		return int64(len(b.events))
	}
	return b.fileCount
}

// MemEvents is the number of events this box holds in memory.
func (b *Box) MemEvents() int64 { return b.memEvents.Load() }

// IsResident reports whether a leaf's events are in memory.
func (b *Box) IsResident() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.resident
}

// IsDirty reports whether a resident leaf has events not yet written.
func (b *Box) IsDirty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dirty
}

// FileRange returns the stored event range and the eviction generation it
// belongs to. offset is -1 when the box was never written.
func (b *Box) FileRange() (offset, count int64, generation uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fileOffset, b.fileCount, b.generation
}

// Signal, ErrorSquared, CachedNumEvents and Centroid return the aggregates
// computed by the last RefreshCache.
func (b *Box) Signal() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.signal
}

func (b *Box) ErrorSquared() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.errorSquared
}

func (b *Box) CachedNumEvents() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nEvents
}

func (b *Box) Centroid() []float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]float64(nil), b.centroid...)
}

// ReserveEvents grows the in-memory event capacity by n.
func (b *Box) ReserveEvents(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cap(b.events)-len(b.events) >= n {
		return
	}
	grown := make([]Event, len(b.events), len(b.events)+n)
	copy(grown, b.events)
	b.events = grown
}

// AttachLoaded appends events read from the store to a paged-out leaf. It
// returns false, leaving the box untouched, if the box is no longer a
// paged-out leaf of the given generation.
func (b *Box) AttachLoaded(generation uint64, events []Event) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.children != nil || b.resident || b.generation != generation {
		return false
	}
	b.events = append(b.events, events...)
	b.resident = true
	b.dirty = false
	b.memEvents.Store(int64(len(b.events)))
	return true
}

// Evict writes a dirty leaf through w and drops its events from memory. It
// never blocks: busy is true when another goroutine holds the box. freed is
// the number of events released from memory.
func (b *Box) Evict(w EventWriter) (freed int, busy bool, err error) {
	if !b.mu.TryLock() {
		return 0, true, nil
	}
	defer b.mu.Unlock()
	if b.children != nil || !b.resident || len(b.events) == 0 {
		return 0, false, nil
	}
	if b.dirty || b.fileOffset < 0 {
		off, err := w.WriteEvents(b.fileOffset, b.fileCount, b.events)
		if err != nil {
			return 0, false, err
		}
		b.fileOffset = off
		b.fileCount = int64(len(b.events))
	}
	b.aggregateEventsLocked()
	freed = len(b.events)
	b.events = nil
	b.resident = false
	b.dirty = false
	b.generation++
	b.memEvents.Store(0)
	return freed, false, nil
}

// Flush writes a dirty resident leaf through w and keeps its events.
func (b *Box) Flush(w EventWriter) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.children != nil || !b.resident || !b.dirty {
		return nil
	}
	off, err := w.WriteEvents(b.fileOffset, b.fileCount, b.events)
	if err != nil {
		return err
	}
	b.fileOffset = off
	b.fileCount = int64(len(b.events))
	b.dirty = false
	return nil
}

// ForEachEvent calls fn for every event of a leaf, paging it in first if
// needed. fn runs under the box lock and must not call back into the box.
func (b *Box) ForEachEvent(fn func(e *Event)) error {
	for {
		b.mu.Lock()
		if b.children != nil {
			b.mu.Unlock()
			return nil
		}
		if !b.resident {
			b.mu.Unlock()
			if err := b.pageIn(); err != nil {
				return err
			}
			continue
		}
		for i := range b.events {
			fn(&b.events[i])
		}
		b.mu.Unlock()
		return b.touch()
	}
}

// Events returns a copy of a leaf's events, paging them in if needed.
func (b *Box) Events() ([]Event, error) {
	var out []Event
	err := b.ForEachEvent(func(e *Event) {
		c := *e
		c.Center = append([]float64(nil), e.Center...)
		out = append(out, c)
	})
	return out, err
}

func (b *Box) pageIn() error {
	if b.ctrl.io == nil {
		return fmt.Errorf("box %d is paged out and no BoxIO is attached: %w", b.id, ErrNotResident)
	}
	return b.ctrl.io.PageIn(b)
}

func (b *Box) touch() error {
	if b.ctrl.io == nil {
		return nil
	}
	return b.ctrl.io.Touch(b)
}

// aggregateEventsLocked recomputes the cached aggregates of a resident leaf.
func (b *Box) aggregateEventsLocked() {
	var sig, errSq float64
	cen := make([]float64, len(b.extents))
	for i := range b.events {
		e := &b.events[i]
		sig += e.Signal
		errSq += e.ErrorSquared
		for d, x := range e.Center {
			cen[d] += x * e.Signal
		}
	}
	if sig != 0 {
		for d := range cen {
			cen[d] /= sig
		}
	}
	b.signal = sig
	b.errorSquared = errSq
	b.nEvents = uint64(len(b.events))
	b.centroid = cen
}
