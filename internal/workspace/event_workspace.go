package workspace

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/banshee-data/mdspace/internal/boxio"
	"github.com/banshee-data/mdspace/internal/boxtree"
	"github.com/banshee-data/mdspace/internal/config"
	"github.com/banshee-data/mdspace/internal/geometry"
	"github.com/banshee-data/mdspace/internal/histogram"
	"github.com/banshee-data/mdspace/internal/transform"
)

// EventWorkspace is an N-dimensional event container: one Dimension per
// axis, a box tree holding the events, and the experiment metadata the
// events were converted with.
type EventWorkspace struct {
	id   uuid.UUID
	name string
	cfg  *config.EngineConfig

	dims   []*geometry.Dimension
	tree   *boxtree.Tree
	info   *transform.ExperimentInfo
	buffer *boxio.DiskBuffer
}

// NewEventWorkspace creates an empty workspace whose root box spans the
// dimensions' extents. A nil cfg uses the defaults.
func NewEventWorkspace(name string, cfg *config.EngineConfig, dims ...*geometry.Dimension) (*EventWorkspace, error) {
	if len(dims) == 0 || len(dims) > histogram.MaxDimensions {
		return nil, fmt.Errorf("event workspace needs 1..%d dimensions, got %d: %w", histogram.MaxDimensions, len(dims), ErrDimensionality)
	}
	if cfg == nil {
		cfg = config.EmptyEngineConfig()
	}
	ctrl := boxtree.NewControllerFromConfig(len(dims), cfg)
	tree, err := boxtree.New(ctrl, extentsOf(dims))
	if err != nil {
		return nil, err
	}
	w := newEventWorkspace(name, cfg, dims, tree)
	if err := tree.SplitToMinDepth(cfg.GetWorkers()); err != nil {
		return nil, err
	}
	return w, nil
}

func newEventWorkspace(name string, cfg *config.EngineConfig, dims []*geometry.Dimension, tree *boxtree.Tree) *EventWorkspace {
	owned := make([]*geometry.Dimension, len(dims))
	for i, d := range dims {
		owned[i] = d.Clone()
	}
	info := transform.NewExperimentInfo()
	info.QConvention = cfg.GetQConvention()
	return &EventWorkspace{
		id:   uuid.New(),
		name: name,
		cfg:  cfg,
		dims: owned,
		tree: tree,
		info: info,
	}
}

func extentsOf(dims []*geometry.Dimension) []boxtree.Extent {
	ext := make([]boxtree.Extent, len(dims))
	for i, d := range dims {
		ext[i] = boxtree.Extent{Min: d.Minimum(), Max: d.Maximum()}
	}
	return ext
}

func (w *EventWorkspace) ID() uuid.UUID                       { return w.id }
func (w *EventWorkspace) Name() string                        { return w.name }
func (w *EventWorkspace) NumDims() int                        { return len(w.dims) }
func (w *EventWorkspace) Dimension(i int) *geometry.Dimension { return w.dims[i] }
func (w *EventWorkspace) Tree() *boxtree.Tree                 { return w.tree }
func (w *EventWorkspace) Controller() *boxtree.Controller     { return w.tree.Controller() }
func (w *EventWorkspace) Config() *config.EngineConfig        { return w.cfg }

// Dimensions returns clones of the workspace dimensions.
func (w *EventWorkspace) Dimensions() []*geometry.Dimension {
	out := make([]*geometry.Dimension, len(w.dims))
	for i, d := range w.dims {
		out[i] = d.Clone()
	}
	return out
}

// SpecialCoordinateSystem is derived from the dimensions' frames.
func (w *EventWorkspace) SpecialCoordinateSystem() geometry.SpecialCoordinateSystem {
	return geometry.CoordinateSystemOf(w.dims)
}

func (w *EventWorkspace) ExperimentInfo() *transform.ExperimentInfo { return w.info }

func (w *EventWorkspace) SetExperimentInfo(info *transform.ExperimentInfo) {
	if info == nil {
		info = transform.NewExperimentInfo()
	}
	w.info = info
}

// NumEvents counts every event in the tree, resident or paged out.
func (w *EventWorkspace) NumEvents() int64 { return w.tree.NumEvents() }

// AttachFileBacking pages the tree through a disk buffer built from the
// workspace config under dir.
func (w *EventWorkspace) AttachFileBacking(dir string) (*boxio.DiskBuffer, error) {
	if w.buffer != nil {
		return nil, fmt.Errorf("workspace %s is already file backed", w.name)
	}
	buf, err := boxio.Open(w.cfg, dir, len(w.dims))
	if err != nil {
		return nil, err
	}
	if err := buf.Attach(w.tree); err != nil {
		buf.Close()
		return nil, err
	}
	w.buffer = buf
	return buf, nil
}

// FileBacking returns the attached disk buffer, or nil.
func (w *EventWorkspace) FileBacking() *boxio.DiskBuffer { return w.buffer }

// Close releases the disk buffer, if any.
func (w *EventWorkspace) Close() error {
	if w.buffer == nil {
		return nil
	}
	err := w.buffer.Close()
	w.buffer = nil
	return err
}

// BinMD rasterises the events onto a new grid over dims, which must match
// the workspace dimensionality.
func (w *EventWorkspace) BinMD(dims []*geometry.Dimension) (*histogram.Grid, error) {
	if len(dims) != len(w.dims) {
		return nil, fmt.Errorf("binning %d-D workspace onto %d dimensions: %w", len(w.dims), len(dims), ErrDimensionality)
	}
	g, err := histogram.New(dims...)
	if err != nil {
		return nil, err
	}
	g.SetSpecialCoordinateSystem(w.SpecialCoordinateSystem())
	if err := w.tree.BinTo(g, w.cfg.GetWorkers()); err != nil {
		return nil, err
	}
	return g, nil
}

func (w *EventWorkspace) String() string {
	leaves, grids := w.tree.BoxCount()
	return fmt.Sprintf("%s (%s): %d dims, %d events, %d leaves, %d grid boxes, %s",
		w.name, w.id, len(w.dims), w.NumEvents(), leaves, grids, w.SpecialCoordinateSystem())
}
