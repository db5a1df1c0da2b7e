package boxio

import (
	"container/list"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/banshee-data/mdspace/internal/boxtree"
	"github.com/banshee-data/mdspace/internal/config"
	"github.com/banshee-data/mdspace/internal/monitoring"
	"golang.org/x/sync/singleflight"
)

var logf = monitoring.Component("DiskBuffer")

// DiskBuffer is a write-back cache of leaf events over a Store. It
// implements boxtree.BoxIO.
//
// Lock order: mu may be held while trying (never blocking on) a box lock for
// eviction, and while blocking on a box lock in Flush. Box lock holders never
// wait for mu.
type DiskBuffer struct {
	store   Store
	metrics *Metrics

	mu       sync.Mutex
	lru      *list.List // front = most recently used
	items    map[*boxtree.Box]*list.Element
	resident int64
	limit    int64
	free     freeList
	end      int64
	closed   bool

	loads singleflight.Group
}

type lruEntry struct {
	box    *boxtree.Box
	events int64
}

var _ boxtree.BoxIO = (*DiskBuffer)(nil)

// NewDiskBuffer returns a buffer over store that keeps at most
// writeBufferEvents events resident before evicting.
func NewDiskBuffer(store Store, writeBufferEvents int) *DiskBuffer {
	return &DiskBuffer{
		store:   store,
		metrics: NewMetrics(nil),
		lru:     list.New(),
		items:   make(map[*boxtree.Box]*list.Element),
		limit:   int64(writeBufferEvents),
	}
}

// Open builds the store selected by cfg under dir and wraps it in a buffer.
func Open(cfg *config.EngineConfig, dir string, nd int) (*DiskBuffer, error) {
	var (
		store Store
		err   error
	)
	switch cfg.GetBackingStore() {
	case config.BackingStoreBadger:
		store, err = OpenBadgerStore(filepath.Join(dir, "events.badger"), nd, cfg.GetCompression())
	default:
		store, err = OpenFileStore(filepath.Join(dir, "events.bin"), nd)
	}
	if err != nil {
		return nil, err
	}
	logf("opened %s store in %s, write buffer %d events", cfg.GetBackingStore(), dir, cfg.GetWriteBufferEvents())
	return NewDiskBuffer(store, cfg.GetWriteBufferEvents()), nil
}

// SetMetrics replaces the collectors, for example with registered ones.
func (d *DiskBuffer) SetMetrics(m *Metrics) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.metrics = m
}

// Attach makes d the pager of ctrl and starts tracking every resident leaf
// of tree.
func (d *DiskBuffer) Attach(tree *boxtree.Tree) error {
	tree.Controller().SetBoxIO(d)
	for _, leaf := range tree.Leaves() {
		if err := d.Touch(leaf); err != nil {
			return err
		}
	}
	return nil
}

// SetWriteBufferSize changes the resident-event limit and evicts down to it.
func (d *DiskBuffer) SetWriteBufferSize(maxEvents int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.limit = int64(maxEvents)
	return d.evictLocked(nil)
}

func (d *DiskBuffer) WriteBufferSize() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int(d.limit)
}

// ResidentEvents is the number of in-memory events of tracked boxes.
func (d *DiskBuffer) ResidentEvents() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.resident
}

// FileEnd is the first unused event slot of the store.
func (d *DiskBuffer) FileEnd() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.end
}

// FreeEvents is the number of released slots awaiting reuse.
func (d *DiskBuffer) FreeEvents() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.free.total()
}

// ReserveMemoryForLoad pre-allocates room for count events in b.
func (d *DiskBuffer) ReserveMemoryForLoad(b *boxtree.Box, count int) {
	b.ReserveEvents(count)
}

// LoadAndAddFrom reads count events at offset and appends them to b if b is
// still paged out at the given generation. It reports whether they were
// attached.
func (d *DiskBuffer) LoadAndAddFrom(b *boxtree.Box, offset, count int64, generation uint64) (bool, error) {
	events, err := d.store.ReadAt(offset, count)
	if err != nil {
		return false, err
	}
	d.metrics.EventsRead.Add(float64(len(events)))
	return b.AttachLoaded(generation, events), nil
}

// PageIn implements boxtree.BoxIO. Concurrent page-ins of the same box share
// one read.
func (d *DiskBuffer) PageIn(b *boxtree.Box) error {
	off, count, gen := b.FileRange()
	if b.IsResident() {
		return nil
	}
	key := strconv.FormatUint(b.ID(), 10) + "/" + strconv.FormatUint(gen, 10)
	_, err, shared := d.loads.Do(key, func() (any, error) {
		d.ReserveMemoryForLoad(b, int(count))
		return d.LoadAndAddFrom(b, off, count, gen)
	})
	if shared {
		d.metrics.SharedPageIns.Inc()
	} else {
		d.metrics.PageIns.Inc()
	}
	if err != nil {
		// The box may have moved while the read was in flight; the caller
		// retries against its new range.
		if _, _, now := b.FileRange(); now != gen {
			return nil
		}
		return err
	}
	return d.Touch(b)
}

// Touch implements boxtree.BoxIO.
func (d *DiskBuffer) Touch(b *boxtree.Box) error {
	n := b.MemEvents()
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	el, ok := d.items[b]
	if !ok {
		if n == 0 {
			return nil
		}
		el = d.lru.PushFront(&lruEntry{box: b})
		d.items[b] = el
	} else {
		d.lru.MoveToFront(el)
	}
	e := el.Value.(*lruEntry)
	d.resident += n - e.events
	e.events = n
	return d.evictLocked(b)
}

// Forget implements boxtree.BoxIO.
func (d *DiskBuffer) Forget(b *boxtree.Box, fileOffset, fileCount int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if el, ok := d.items[b]; ok {
		d.resident -= el.Value.(*lruEntry).events
		d.lru.Remove(el)
		delete(d.items, b)
	}
	if fileOffset >= 0 && fileCount > 0 {
		if err := d.releaseLocked(fileOffset, fileCount); err != nil {
			logf("release of box %d range (%d,%d) failed: %v", b.ID(), fileOffset, fileCount, err)
		}
	}
	d.updateGaugesLocked()
}

// evictLocked drops least recently used boxes until the resident count fits
// the limit. keep is never evicted, so a box larger than the whole buffer
// can still be paged in and used.
func (d *DiskBuffer) evictLocked(keep *boxtree.Box) error {
	w := heldWriter{d}
	for el := d.lru.Back(); el != nil && d.resident > d.limit; {
		prev := el.Prev()
		e := el.Value.(*lruEntry)
		if e.box != keep {
			_, busy, err := e.box.Evict(w)
			if err != nil {
				return err
			}
			if !busy {
				d.resident -= e.events
				d.lru.Remove(el)
				delete(d.items, e.box)
				d.metrics.Evictions.Inc()
			}
		}
		el = prev
	}
	d.updateGaugesLocked()
	return nil
}

// heldWriter writes through a DiskBuffer whose mu is already held.
type heldWriter struct{ d *DiskBuffer }

func (w heldWriter) WriteEvents(oldOffset, oldCount int64, events []boxtree.Event) (int64, error) {
	return w.d.writeLocked(oldOffset, oldCount, events)
}

func (d *DiskBuffer) writeLocked(oldOffset, oldCount int64, events []boxtree.Event) (int64, error) {
	n := int64(len(events))
	var off int64
	switch {
	case oldOffset >= 0 && oldCount >= n && n > 0:
		off = oldOffset
		if oldCount > n {
			d.free.release(oldOffset+n, oldCount-n)
		}
	default:
		if oldOffset >= 0 && oldCount > 0 {
			if err := d.releaseLocked(oldOffset, oldCount); err != nil {
				return 0, err
			}
		}
		var ok bool
		if off, ok = d.free.allocate(n); !ok {
			off = d.end
			d.end += n
		}
	}
	if err := d.store.WriteAt(off, events); err != nil {
		return 0, err
	}
	d.metrics.EventsWritten.Add(float64(n))
	return off, nil
}

func (d *DiskBuffer) releaseLocked(off, count int64) error {
	if err := d.store.Release(off, count); err != nil {
		return err
	}
	d.free.release(off, count)
	d.end = d.free.trimEnd(d.end)
	return nil
}

func (d *DiskBuffer) updateGaugesLocked() {
	d.metrics.ResidentEvents.Set(float64(d.resident))
	d.metrics.FreeEvents.Set(float64(d.free.total()))
}

// Flush writes every dirty tracked leaf to the store, keeping its events
// resident, then syncs the store.
func (d *DiskBuffer) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return &StorageError{Op: "flush", Offset: -1, Err: errClosed}
	}
	w := heldWriter{d}
	for el := d.lru.Front(); el != nil; el = el.Next() {
		if err := el.Value.(*lruEntry).box.Flush(w); err != nil {
			return err
		}
	}
	return d.store.Sync()
}

// Close flushes and closes the store. Boxes keep their resident events but
// are no longer tracked.
func (d *DiskBuffer) Close() error {
	if err := d.Flush(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.lru.Init()
	d.items = make(map[*boxtree.Box]*list.Element)
	d.resident = 0
	return d.store.Close()
}
