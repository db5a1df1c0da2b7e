package boxtree

import (
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/banshee-data/mdspace/internal/config"
)

// BoxIO pages leaf events between memory and a backing store. It is
// implemented by boxio.DiskBuffer.
//
// Implementations must not hold their own locks while blocking on a box
// lock; boxes are only locked with TryLock from eviction paths.
type BoxIO interface {
	// PageIn makes an evicted leaf's events resident again.
	PageIn(b *Box) error
	// Touch records that b's resident events changed or were used, and may
	// evict other boxes to stay within the write buffer.
	Touch(b *Box) error
	// Forget drops b from the cache after it stopped being a leaf and
	// releases the file range it held.
	Forget(b *Box, fileOffset, fileCount int64)
}

// Controller holds the splitting policy and box bookkeeping shared by every
// box of one tree.
type Controller struct {
	nd             int
	splitThreshold int
	splitInto      []int
	maxDepth       int
	minDepth       int

	nextID    atomic.Uint64
	numLeaves atomic.Int64
	numGrids  atomic.Int64
	deepest   atomic.Int64

	io BoxIO
}

// NewController returns a controller for nd dimensions using the engine
// defaults.
func NewController(nd int) *Controller {
	return NewControllerFromConfig(nd, config.EmptyEngineConfig())
}

// NewControllerFromConfig applies the box-controller settings of cfg.
func NewControllerFromConfig(nd int, cfg *config.EngineConfig) *Controller {
	c := &Controller{
		nd:             nd,
		splitThreshold: cfg.GetSplitThreshold(),
		maxDepth:       cfg.GetMaxRecursionDepth(),
		minDepth:       cfg.GetMinRecursionDepth(),
	}
	c.splitInto = make([]int, nd)
	for d := range c.splitInto {
		c.splitInto[d] = cfg.GetSplitInto()
	}
	return c
}

func (c *Controller) NumDims() int        { return c.nd }
func (c *Controller) SplitThreshold() int { return c.splitThreshold }
func (c *Controller) MaxDepth() int       { return c.maxDepth }
func (c *Controller) MinDepth() int       { return c.minDepth }

// SplitInto returns the number of children per dimension.
func (c *Controller) SplitInto() []int { return append([]int(nil), c.splitInto...) }

func (c *Controller) SetSplitThreshold(n int) { c.splitThreshold = n }
func (c *Controller) SetMaxDepth(n int)       { c.maxDepth = n }
func (c *Controller) SetMinDepth(n int)       { c.minDepth = n }

// SetSplitInto sets the same split factor for every dimension.
func (c *Controller) SetSplitInto(n int) {
	for d := range c.splitInto {
		c.splitInto[d] = n
	}
}

// SetSplitIntoAt sets the split factor of one dimension.
func (c *Controller) SetSplitIntoAt(dim, n int) { c.splitInto[dim] = n }

// NumSplit is the number of children a grid box gets.
func (c *Controller) NumSplit() int {
	n := 1
	for _, s := range c.splitInto {
		n *= s
	}
	return n
}

// SetBoxIO attaches a pager. Nil keeps every event in memory.
func (c *Controller) SetBoxIO(io BoxIO) { c.io = io }
func (c *Controller) BoxIO() BoxIO      { return c.io }

// NumLeaves and NumGrids count the boxes of each kind.
func (c *Controller) NumLeaves() int64 { return c.numLeaves.Load() }
func (c *Controller) NumGrids() int64  { return c.numGrids.Load() }

// MaxDepthReached is the deepest box depth created so far.
func (c *Controller) MaxDepthReached() int { return int(c.deepest.Load()) }

func (c *Controller) newID() uint64 { return c.nextID.Add(1) - 1 }

func (c *Controller) registerLeaf(depth int) {
	c.numLeaves.Add(1)
	for {
		cur := c.deepest.Load()
		if int64(depth) <= cur || c.deepest.CompareAndSwap(cur, int64(depth)) {
			return
		}
	}
}

func (c *Controller) leafBecameGrid() {
	c.numLeaves.Add(-1)
	c.numGrids.Add(1)
}

type controllerJSON struct {
	NumDims        int    `json:"num_dims"`
	SplitThreshold int    `json:"split_threshold"`
	SplitInto      []int  `json:"split_into"`
	MaxDepth       int    `json:"max_recursion_depth"`
	MinDepth       int    `json:"min_recursion_depth"`
	NextID         uint64 `json:"next_id"`
	NumLeaves      int64  `json:"num_leaves"`
	NumGrids       int64  `json:"num_grids"`
	Deepest        int64  `json:"max_depth_reached"`
}

// String renders the controller as the configuration string stored with a
// persisted tree.
func (c *Controller) String() string {
	b, err := json.Marshal(controllerJSON{
		NumDims:        c.nd,
		SplitThreshold: c.splitThreshold,
		SplitInto:      c.splitInto,
		MaxDepth:       c.maxDepth,
		MinDepth:       c.minDepth,
		NextID:         c.nextID.Load(),
		NumLeaves:      c.numLeaves.Load(),
		NumGrids:       c.numGrids.Load(),
		Deepest:        c.deepest.Load(),
	})
	if err != nil {
		return "{}"
	}
	return string(b)
}

// ParseControllerString restores a controller written by String. The BoxIO
// is not part of the string and must be attached again.
func ParseControllerString(s string) (*Controller, error) {
	var cj controllerJSON
	if err := json.Unmarshal([]byte(s), &cj); err != nil {
		return nil, fmt.Errorf("parse box controller: %w", err)
	}
	if cj.NumDims < 1 || len(cj.SplitInto) != cj.NumDims {
		return nil, fmt.Errorf("box controller has %d dims and %d split factors: %w", cj.NumDims, len(cj.SplitInto), ErrDimensionality)
	}
	c := &Controller{
		nd:             cj.NumDims,
		splitThreshold: cj.SplitThreshold,
		splitInto:      cj.SplitInto,
		maxDepth:       cj.MaxDepth,
		minDepth:       cj.MinDepth,
	}
	c.nextID.Store(cj.NextID)
	c.numLeaves.Store(cj.NumLeaves)
	c.numGrids.Store(cj.NumGrids)
	c.deepest.Store(cj.Deepest)
	return c, nil
}
