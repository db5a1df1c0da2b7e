package boxtree

import "fmt"

// childFor returns the child of a grid box that owns center. Intervals are
// half-open except the last along each dimension, which is closed.
// b.mu must be held.
func (b *Box) childFor(center []float64) (*Box, bool) {
	idx, stride := 0, 1
	for d, bnd := range b.bounds {
		n := b.split[d]
		x := center[d]
		if !(x >= bnd[0] && x <= bnd[n]) {
			return nil, false
		}
		k := 0
		if w := (bnd[n] - bnd[0]) / float64(n); w > 0 {
			k = int((x - bnd[0]) / w)
		}
		if k >= n {
			k = n - 1
		}
		// floor can disagree with the stored boundaries by one ulp.
		for k > 0 && x < bnd[k] {
			k--
		}
		for k < n-1 && x >= bnd[k+1] {
			k++
		}
		idx += k * stride
		stride *= n
	}
	return b.children[idx], true
}

// splitLocked turns the resident leaf b into a grid box and distributes its
// events. It returns the file range the leaf held. b.mu must be held.
func (b *Box) splitLocked() (oldOffset, oldCount int64, err error) {
	c := b.ctrl
	nd := len(b.extents)

	split := c.SplitInto()
	bounds := make([][]float64, nd)
	total := 1
	for d, e := range b.extents {
		n := split[d]
		if n < 1 {
			return 0, 0, fmt.Errorf("split factor %d for dimension %d: %w", n, d, ErrInvariantViolation)
		}
		bnd := make([]float64, n+1)
		w := e.Width() / float64(n)
		for k := 0; k < n; k++ {
			bnd[k] = e.Min + float64(k)*w
		}
		bnd[n] = e.Max
		bounds[d] = bnd
		total *= n
	}

	children := make([]*Box, total)
	for i := range children {
		ext := make([]Extent, nd)
		rem := i
		for d := range ext {
			k := rem % split[d]
			rem /= split[d]
			ext[d] = Extent{Min: bounds[d][k], Max: bounds[d][k+1]}
		}
		children[i] = newLeaf(c, b, b.depth+1, ext)
	}

	b.children, b.split, b.bounds = children, split, bounds
	for _, e := range b.events {
		child, ok := b.childFor(e.Center)
		if !ok {
			b.children, b.split, b.bounds = nil, nil, nil
			return 0, 0, fmt.Errorf("event at %v fits no child of box %d: %w", e.Center, b.id, ErrInvariantViolation)
		}
		child.events = append(child.events, e)
	}

	for _, child := range children {
		n := len(child.events)
		child.dirty = n > 0
		child.memEvents.Store(int64(n))
		c.registerLeaf(child.depth)
	}
	c.leafBecameGrid()

	oldOffset, oldCount = b.fileOffset, b.fileCount
	b.events = nil
	b.dirty = false
	b.fileOffset, b.fileCount = -1, 0
	b.memEvents.Store(0)
	return oldOffset, oldCount, nil
}

// SplitIfNeeded splits leaf b when it holds more events than the split
// threshold and is shallower than the maximum depth, then schedules the same
// check for every new child. It is a no-op for boxes that do not qualify,
// including grid boxes. A nil scheduler runs everything inline.
func (t *Tree) SplitIfNeeded(b *Box, s *Scheduler) error {
	return t.split(b, s, false)
}

func (t *Tree) split(b *Box, s *Scheduler, toMinDepth bool) error {
	c := t.ctrl
	for {
		b.mu.Lock()
		if b.children != nil || b.depth >= c.maxDepth {
			b.mu.Unlock()
			return nil
		}
		if b.countLocked() <= int64(c.splitThreshold) && !(toMinDepth && b.depth < c.minDepth) {
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
		off, count, err := b.splitLocked()
		children := b.children
		b.mu.Unlock()
		if err != nil {
			return err
		}

		if io := c.io; io != nil {
			io.Forget(b, off, count)
			for _, child := range children {
				if child.MemEvents() == 0 {
					continue
				}
				if err := io.Touch(child); err != nil {
					return err
				}
			}
		}
		for _, child := range children {
			child := child
			if err := schedule(s, func() error { return t.split(child, s, toMinDepth) }); err != nil {
				return err
			}
		}
		return nil
	}
}

// SplitAllIfNeeded schedules SplitIfNeeded for every current leaf. Errors
// surface from s.Join.
func (t *Tree) SplitAllIfNeeded(s *Scheduler) error {
	for _, leaf := range t.Leaves() {
		leaf := leaf
		if err := schedule(s, func() error { return t.SplitIfNeeded(leaf, s) }); err != nil {
			return err
		}
	}
	return nil
}

// SplitAll splits every qualifying leaf on a pool of workers and waits.
func (t *Tree) SplitAll(workers int) error {
	s := NewScheduler(workers)
	if err := t.SplitAllIfNeeded(s); err != nil {
		return err
	}
	return s.Join()
}

// SplitToMinDepth splits every leaf shallower than the controller's minimum
// depth regardless of its event count.
func (t *Tree) SplitToMinDepth(workers int) error {
	if t.ctrl.minDepth <= 0 {
		return nil
	}
	s := NewScheduler(workers)
	for _, leaf := range t.Leaves() {
		leaf := leaf
		s.Push(func() error { return t.split(leaf, s, true) })
	}
	return s.Join()
}
