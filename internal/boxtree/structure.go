package boxtree

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"io"
)

const structureVersion = 1

// EventIndex maps a leaf to the (offset, count) of its events in the store
// the structure is saved with.
type EventIndex func(b *Box) (offset, count int64)

type boxRecord struct {
	ID           uint64
	Parent       uint64
	IsRoot       bool
	Depth        int
	Extents      []Extent
	Split        []int
	Children     []uint64
	FileOffset   int64
	FileCount    int64
	Signal       float64
	ErrorSquared float64
	NumEvents    uint64
	Centroid     []float64
}

type structureBlob struct {
	Version int
	NumDims int
	Dropped int64
	Boxes   []boxRecord
}

// MarshalStructure writes the box structure as a gzip-compressed gob blob:
// ids, parent and child links, extents, cached aggregates and each leaf's
// event range as reported by index. A nil index records the ranges the boxes
// hold in their own backing store.
func (t *Tree) MarshalStructure(w io.Writer, index EventIndex) error {
	blob := structureBlob{
		Version: structureVersion,
		NumDims: t.ctrl.NumDims(),
		Dropped: t.dropped.Load(),
	}
	t.Walk(func(b *Box) bool {
		b.mu.Lock()
		rec := boxRecord{
			ID:           b.id,
			IsRoot:       b.parent == nil,
			Depth:        b.depth,
			Extents:      b.extents,
			Split:        b.split,
			FileOffset:   b.fileOffset,
			FileCount:    b.fileCount,
			Signal:       b.signal,
			ErrorSquared: b.errorSquared,
			NumEvents:    b.nEvents,
			Centroid:     b.centroid,
		}
		if b.parent != nil {
			rec.Parent = b.parent.id
		}
		for _, c := range b.children {
			rec.Children = append(rec.Children, c.id)
		}
		leaf := b.children == nil
		b.mu.Unlock()
		if leaf && index != nil {
			rec.FileOffset, rec.FileCount = index(b)
		}
		blob.Boxes = append(blob.Boxes, rec)
		return true
	})

	gz := gzip.NewWriter(w)
	if err := gob.NewEncoder(gz).Encode(blob); err != nil {
		gz.Close()
		return fmt.Errorf("encode box structure: %w", err)
	}
	return gz.Close()
}

// UnmarshalStructure rebuilds a tree from a blob written by MarshalStructure.
// Leaves with a non-empty event range come back paged out; use LoadLeaves or
// an attached BoxIO to bring their events in. The controller's box counters
// are reset to match the restored tree.
func UnmarshalStructure(r io.Reader, ctrl *Controller) (*Tree, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	var blob structureBlob
	if err := gob.NewDecoder(gz).Decode(&blob); err != nil {
		return nil, fmt.Errorf("failed to decode box structure: %w", err)
	}
	if blob.Version != structureVersion {
		return nil, fmt.Errorf("unsupported box structure version %d", blob.Version)
	}
	if blob.NumDims != ctrl.NumDims() {
		return nil, fmt.Errorf("structure has %d dims, controller has %d: %w", blob.NumDims, ctrl.NumDims(), ErrDimensionality)
	}
	if len(blob.Boxes) == 0 || !blob.Boxes[0].IsRoot {
		return nil, fmt.Errorf("box structure has no root: %w", ErrInvariantViolation)
	}

	boxes := make(map[uint64]*Box, len(blob.Boxes))
	var maxID uint64
	var leaves, grids, deepest int64
	for _, rec := range blob.Boxes {
		if len(rec.Extents) != blob.NumDims {
			return nil, fmt.Errorf("box %d has %d extents: %w", rec.ID, len(rec.Extents), ErrDimensionality)
		}
		b := &Box{
			id:           rec.ID,
			depth:        rec.Depth,
			ctrl:         ctrl,
			extents:      rec.Extents,
			fileOffset:   -1,
			signal:       rec.Signal,
			errorSquared: rec.ErrorSquared,
			nEvents:      rec.NumEvents,
			centroid:     rec.Centroid,
		}
		if len(b.centroid) != blob.NumDims {
			b.centroid = make([]float64, blob.NumDims)
		}
		if len(rec.Children) == 0 {
			if rec.FileCount > 0 {
				b.fileOffset, b.fileCount = rec.FileOffset, rec.FileCount
			}
			b.resident = rec.FileCount == 0
			leaves++
		} else {
			grids++
		}
		if _, dup := boxes[rec.ID]; dup {
			return nil, fmt.Errorf("box id %d appears twice: %w", rec.ID, ErrInvariantViolation)
		}
		if rec.IsRoot && len(boxes) > 0 {
			return nil, fmt.Errorf("box %d is a second root: %w", rec.ID, ErrInvariantViolation)
		}
		if !rec.IsRoot {
			parent, ok := boxes[rec.Parent]
			if !ok {
				return nil, fmt.Errorf("box %d appears before its parent %d: %w", rec.ID, rec.Parent, ErrInvariantViolation)
			}
			b.parent = parent
		}
		boxes[rec.ID] = b
		maxID = max(maxID, rec.ID)
		deepest = max(deepest, int64(rec.Depth))
	}

	linked := make(map[uint64]bool, len(boxes))
	for _, rec := range blob.Boxes {
		if len(rec.Children) == 0 {
			continue
		}
		b := boxes[rec.ID]
		if err := b.linkChildren(rec, boxes, linked); err != nil {
			return nil, err
		}
	}
	if len(linked) != len(boxes)-1 {
		return nil, fmt.Errorf("%d boxes are not listed by their parent: %w", len(boxes)-1-len(linked), ErrInvariantViolation)
	}

	ctrl.nextID.Store(maxID + 1)
	ctrl.numLeaves.Store(leaves)
	ctrl.numGrids.Store(grids)
	ctrl.deepest.Store(deepest)

	t := &Tree{ctrl: ctrl, root: boxes[blob.Boxes[0].ID]}
	t.dropped.Store(blob.Dropped)
	return t, nil
}

// linkChildren attaches the children rec lists. Each child must name b as
// its parent and be listed once; since a parent is always recorded before its
// children, this keeps the restored links acyclic.
func (b *Box) linkChildren(rec boxRecord, boxes map[uint64]*Box, linked map[uint64]bool) error {
	if len(rec.Split) != len(b.extents) {
		return fmt.Errorf("box %d has split %v for %d dims: %w", rec.ID, rec.Split, len(b.extents), ErrInvariantViolation)
	}
	total := 1
	for _, n := range rec.Split {
		if n < 1 || total > len(rec.Children) {
			return fmt.Errorf("box %d has invalid split %v: %w", rec.ID, rec.Split, ErrInvariantViolation)
		}
		total *= n
	}
	if total != len(rec.Children) {
		return fmt.Errorf("box %d has %d children for split %v: %w", rec.ID, len(rec.Children), rec.Split, ErrInvariantViolation)
	}
	b.children = make([]*Box, len(rec.Children))
	for i, id := range rec.Children {
		c, ok := boxes[id]
		if !ok {
			return fmt.Errorf("box %d lists missing child %d: %w", rec.ID, id, ErrInvariantViolation)
		}
		if c.parent != b {
			return fmt.Errorf("box %d lists child %d whose parent is elsewhere: %w", rec.ID, id, ErrInvariantViolation)
		}
		if linked[id] {
			return fmt.Errorf("box %d lists child %d twice: %w", rec.ID, id, ErrInvariantViolation)
		}
		linked[id] = true
		b.children[i] = c
	}
	b.split = rec.Split
	b.bounds = make([][]float64, len(b.extents))
	stride := 1
	for d, n := range b.split {
		bnd := make([]float64, n+1)
		for k := 0; k < n; k++ {
			bnd[k] = b.children[k*stride].extents[d].Min
		}
		bnd[n] = b.extents[d].Max
		b.bounds[d] = bnd
		stride *= n
	}
	return nil
}

// LoadLeaves makes every paged-out leaf resident using load, which returns
// the events stored at a range. Loaded leaves are detached from that range
// and count as unwritten for any BoxIO attached later.
func (t *Tree) LoadLeaves(load func(offset, count int64) ([]Event, error)) error {
	for _, leaf := range t.Leaves() {
		leaf.mu.Lock()
		if leaf.resident {
			leaf.mu.Unlock()
			continue
		}
		off, count := leaf.fileOffset, leaf.fileCount
		leaf.mu.Unlock()

		events, err := load(off, count)
		if err != nil {
			return fmt.Errorf("load events of box %d: %w", leaf.id, err)
		}
		if int64(len(events)) != count {
			return fmt.Errorf("box %d expected %d events, loaded %d: %w", leaf.id, count, len(events), ErrInvariantViolation)
		}

		leaf.mu.Lock()
		leaf.events = events
		leaf.resident = true
		leaf.dirty = true
		leaf.fileOffset, leaf.fileCount = -1, 0
		leaf.memEvents.Store(int64(len(events)))
		leaf.mu.Unlock()
		if err := leaf.touch(); err != nil {
			return err
		}
	}
	return nil
}
