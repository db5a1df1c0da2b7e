package workspace

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/banshee-data/mdspace/internal/boxio"
	"github.com/banshee-data/mdspace/internal/boxtree"
	"github.com/banshee-data/mdspace/internal/config"
	"github.com/banshee-data/mdspace/internal/geometry"
	"github.com/banshee-data/mdspace/internal/histogram"
	"github.com/banshee-data/mdspace/internal/slabstore"
	"github.com/banshee-data/mdspace/internal/transform"
)

const (
	datasetEvents     = "event_data"
	attrBoxStructure  = "box_structure"
	attrBoxController = "box_controller"
)

// Save writes the workspace to a new file at path: metadata, dimensions,
// the box structure blob, the controller string and every event as rows of
// a flattened event slab.
func (w *EventWorkspace) Save(path string) error {
	f, err := slabstore.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	g, err := writeHeader(f, kindEventWorkspace, w.id, w.name, w.dims, w.SpecialCoordinateSystem(), w.info)
	if err != nil {
		return err
	}

	nd := len(w.dims)
	chunk := w.cfg.GetChunkSize()
	ds, err := g.CreateDataset(datasetEvents, boxio.FlatWidth(nd), slabstore.WithChunkRows(chunk))
	if err != nil {
		return err
	}

	w.tree.RefreshCache()
	type span struct{ off, count int64 }
	index := make(map[*boxtree.Box]span)
	var (
		pending []float64
		written int64
	)
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		err := ds.Append(pending)
		pending = pending[:0]
		return err
	}
	for _, leaf := range w.tree.Leaves() {
		events, err := leaf.Events()
		if err != nil {
			return err
		}
		index[leaf] = span{written, int64(len(events))}
		written += int64(len(events))
		pending = append(pending, boxio.FlattenEvents(events, nd)...)
		if len(pending) >= chunk*boxio.FlatWidth(nd) {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	var blob bytes.Buffer
	err = w.tree.MarshalStructure(&blob, func(b *boxtree.Box) (int64, int64) {
		s := index[b]
		return s.off, s.count
	})
	if err != nil {
		return err
	}
	if err := g.SetAttr(attrBoxStructure, blob.Bytes()); err != nil {
		return err
	}
	if err := g.SetAttr(attrBoxController, w.tree.Controller().String()); err != nil {
		return err
	}
	logf("saved %s: %d events, %d bytes of box structure", path, written, blob.Len())
	return f.Close()
}

// LoadEventWorkspace reads a workspace written by Save. Events are loaded
// into memory; attach file backing afterwards to page them out again.
func LoadEventWorkspace(path string, cfg *config.EngineConfig) (*EventWorkspace, error) {
	if cfg == nil {
		cfg = config.EmptyEngineConfig()
	}
	f, err := slabstore.OpenReadOnly(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h, err := readHeader(f, kindEventWorkspace)
	if err != nil {
		if errors.Is(err, errWrongKind) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotEventWorkspace)
		}
		return nil, err
	}

	ctrlString, err := stringAttr(h.group, attrBoxController)
	if err != nil {
		return nil, err
	}
	ctrl, err := boxtree.ParseControllerString(ctrlString)
	if err != nil {
		return nil, err
	}
	if ctrl.NumDims() != len(h.dims) {
		return nil, fmt.Errorf("controller has %d dimensions, file has %d: %w", ctrl.NumDims(), len(h.dims), ErrDimensionality)
	}
	a, err := h.group.Attr(attrBoxStructure)
	if err != nil {
		return nil, err
	}
	blob, err := a.ReadBytes()
	if err != nil {
		return nil, err
	}
	tree, err := boxtree.UnmarshalStructure(bytes.NewReader(blob), ctrl)
	if err != nil {
		return nil, err
	}

	ds, err := h.group.OpenDataset(datasetEvents)
	if err != nil {
		return nil, err
	}
	nd := len(h.dims)
	err = tree.LoadLeaves(func(off, count int64) ([]boxtree.Event, error) {
		data, err := ds.ReadSlab(off, count)
		if err != nil {
			return nil, err
		}
		return boxio.UnflattenEvents(data, nd)
	})
	if err != nil {
		return nil, err
	}
	tree.RefreshCache()

	w := newEventWorkspace(h.name, cfg, h.dims, tree)
	w.id = h.id
	w.info = h.info
	return w, nil
}

// SaveHistogram writes a grid as the four named per-cell slabs plus its
// dimensions and experiment metadata.
func SaveHistogram(path, name string, g *histogram.Grid, info *transform.ExperimentInfo) error {
	if info == nil {
		info = transform.NewExperimentInfo()
	}
	f, err := slabstore.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	grp, err := writeHeader(f, kindHistoWorkspace, uuid.New(), name, g.Dimensions(), g.SpecialCoordinateSystem(), info)
	if err != nil {
		return err
	}
	if err := grp.SetAttr("display_normalization", int(g.DisplayNormalization())); err != nil {
		return err
	}
	data, err := grp.CreateGroup("data")
	if err != nil {
		return err
	}
	for _, kind := range []histogram.ArrayKind{
		histogram.SignalArray, histogram.ErrorSquaredArray, histogram.NumEventsArray, histogram.MaskArray,
	} {
		values, err := g.Array(kind)
		if err != nil {
			return err
		}
		if _, err := data.WriteDataset(string(kind), 1, values); err != nil {
			return err
		}
	}
	return f.Close()
}

// LoadHistogram reads a grid written by SaveHistogram.
func LoadHistogram(path string) (*histogram.Grid, *transform.ExperimentInfo, error) {
	f, err := slabstore.OpenReadOnly(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	h, err := readHeader(f, kindHistoWorkspace)
	if err != nil {
		if errors.Is(err, errWrongKind) {
			return nil, nil, fmt.Errorf("%s: %w", path, ErrNotHistogram)
		}
		return nil, nil, err
	}
	g, err := histogram.New(h.dims...)
	if err != nil {
		return nil, nil, err
	}
	g.SetSpecialCoordinateSystem(h.cs)
	if n, err := intAttr(h.group, "display_normalization"); err == nil {
		g.SetDisplayNormalization(histogram.Normalization(n))
	}

	data, err := h.group.OpenGroup("data")
	if err != nil {
		return nil, nil, err
	}
	for _, kind := range []histogram.ArrayKind{
		histogram.SignalArray, histogram.ErrorSquaredArray, histogram.NumEventsArray, histogram.MaskArray,
	} {
		ds, err := data.OpenDataset(string(kind))
		if err != nil {
			return nil, nil, err
		}
		values, err := ds.ReadFloat64()
		if err != nil {
			return nil, nil, err
		}
		if err := g.OverwriteArray(kind, values); err != nil {
			return nil, nil, err
		}
	}
	return g, h.info, nil
}

// Summary is the header of a saved workspace, read without loading events
// or cell arrays.
type Summary struct {
	// Kind is "MDEventWorkspace" or "MDHistoWorkspace".
	Kind             string
	ID               uuid.UUID
	Name             string
	Dimensions       []*geometry.Dimension
	CoordinateSystem geometry.SpecialCoordinateSystem
	Info             *transform.ExperimentInfo
}

// IsEventWorkspace reports whether the file holds an event workspace.
func (s *Summary) IsEventWorkspace() bool { return s.Kind == kindEventWorkspace }

// Describe reads the header of a file written by Save or SaveHistogram.
func Describe(path string) (*Summary, error) {
	f, err := slabstore.OpenReadOnly(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	g, err := f.Root().OpenGroup(groupWorkspace)
	if err != nil {
		return nil, err
	}
	kind, err := stringAttr(g, "kind")
	if err != nil {
		return nil, err
	}
	if kind != kindEventWorkspace && kind != kindHistoWorkspace {
		return nil, fmt.Errorf("%s: unknown workspace kind %q: %w", path, kind, errWrongKind)
	}
	h, err := readHeader(f, kind)
	if err != nil {
		return nil, err
	}
	return &Summary{
		Kind:             kind,
		ID:               h.id,
		Name:             h.name,
		Dimensions:       h.dims,
		CoordinateSystem: h.cs,
		Info:             h.info,
	}, nil
}

var errWrongKind = errors.New("wrong workspace kind")

type header struct {
	group *slabstore.Group
	id    uuid.UUID
	name  string
	dims  []*geometry.Dimension
	cs    geometry.SpecialCoordinateSystem
	info  *transform.ExperimentInfo
}

func writeHeader(f *slabstore.File, kind string, id uuid.UUID, name string, dims []*geometry.Dimension,
	cs geometry.SpecialCoordinateSystem, info *transform.ExperimentInfo) (*slabstore.Group, error) {
	g, err := f.Root().CreateGroup(groupWorkspace)
	if err != nil {
		return nil, err
	}
	for attr, v := range map[string]interface{}{
		"kind":              kind,
		"id":                id.String(),
		"name":              name,
		"num_dims":          len(dims),
		"coordinate_system": cs.String(),
		"frame_version":     FrameVersion,
	} {
		if err := g.SetAttr(attr, v); err != nil {
			return nil, err
		}
	}
	if err := writeDimensions(g, dims); err != nil {
		return nil, err
	}
	if err := writeExperiment(g, info); err != nil {
		return nil, err
	}
	return g, nil
}

func readHeader(f *slabstore.File, kind string) (*header, error) {
	g, err := f.Root().OpenGroup(groupWorkspace)
	if err != nil {
		return nil, err
	}
	got, err := stringAttr(g, "kind")
	if err != nil {
		return nil, err
	}
	if got != kind {
		return nil, fmt.Errorf("found %s, want %s: %w", got, kind, errWrongKind)
	}

	h := &header{group: g}
	idText, err := stringAttr(g, "id")
	if err != nil {
		return nil, err
	}
	if h.id, err = uuid.Parse(idText); err != nil {
		return nil, fmt.Errorf("workspace id: %w", err)
	}
	if h.name, err = stringAttr(g, "name"); err != nil {
		return nil, err
	}
	nd, err := intAttr(g, "num_dims")
	if err != nil {
		return nil, err
	}
	if nd < 1 || nd > histogram.MaxDimensions {
		return nil, fmt.Errorf("file has %d dimensions: %w", nd, ErrDimensionality)
	}
	csText, err := stringAttr(g, "coordinate_system")
	if err != nil {
		return nil, err
	}
	if h.cs, err = geometry.ParseSpecialCoordinateSystem(csText); err != nil {
		return nil, err
	}
	if h.dims, err = readDimensions(g, int(nd)); err != nil {
		return nil, err
	}
	hasVersion, err := g.HasAttr("frame_version")
	if err != nil {
		return nil, err
	}
	if !hasVersion {
		CorrectLegacyFrames(h.dims, h.cs)
	}
	if h.info, err = readExperiment(g); err != nil {
		return nil, err
	}
	return h, nil
}
