package histogram

import (
	"fmt"
	"math"
	"strings"

	"github.com/banshee-data/mdspace/internal/geometry"
	"gonum.org/v1/gonum/floats"
)

// MaxDimensions bounds the indexing scheme.
const MaxDimensions = 10

// OutOfRange is the linear-index sentinel for coordinates outside the grid.
const OutOfRange = -1

// MaskValue is the signal reported for masked or out-of-range cells by the
// mask-aware queries.
var MaskValue = math.NaN()

// Normalization selects how stored signal is scaled on read.
type Normalization int

const (
	// NoNormalization returns the raw signal.
	NoNormalization Normalization = iota
	// VolumeNormalization divides by the cell volume.
	VolumeNormalization
	// NumEventsNormalization divides by the cell's event count; zero counts
	// yield Inf or NaN and callers must handle them.
	NumEventsNormalization
)

func (n Normalization) String() string {
	switch n {
	case VolumeNormalization:
		return "Volume"
	case NumEventsNormalization:
		return "NumEvents"
	}
	return "None"
}

// ParseNormalization reads a normalization name as accepted on the command
// line and in query strings: none, volume, numevents or events.
func ParseNormalization(s string) (Normalization, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return NoNormalization, nil
	case "volume":
		return VolumeNormalization, nil
	case "numevents", "events":
		return NumEventsNormalization, nil
	}
	return 0, fmt.Errorf("unknown normalization %q (none, volume, numevents)", s)
}

// ArrayKind names one of the four per-cell arrays, using the slab names of
// persisted files.
type ArrayKind string

const (
	SignalArray       ArrayKind = "signal"
	ErrorSquaredArray ArrayKind = "errors_squared"
	NumEventsArray    ArrayKind = "num_events"
	MaskArray         ArrayKind = "mask"
)

// Grid is a dense N-D histogram. It is not internally synchronised: parallel
// consumers partition it with CreateIterators and write disjoint cells.
type Grid struct {
	dims []*geometry.Dimension

	signal       []float64
	errorSquared []float64
	numEvents    []float64
	mask         []bool

	// indexMultiplier[d] is the stride of dimension d in the flat arrays.
	indexMultiplier []int
	inverseVolume   float64

	coordSystem          geometry.SpecialCoordinateSystem
	displayNormalization Normalization
	threadSafe           bool
}

// New allocates a zeroed grid over clones of dims.
func New(dims ...*geometry.Dimension) (*Grid, error) {
	if len(dims) == 0 || len(dims) > MaxDimensions {
		return nil, fmt.Errorf("grid needs 1..%d dimensions, got %d: %w", MaxDimensions, len(dims), ErrDimensionality)
	}
	g := &Grid{
		dims:            make([]*geometry.Dimension, len(dims)),
		indexMultiplier: make([]int, len(dims)),
		threadSafe:      true,
	}
	total := 1
	volume := 1.0
	for i, d := range dims {
		if d == nil {
			return nil, fmt.Errorf("dimension %d is nil: %w", i, ErrDimensionality)
		}
		g.dims[i] = d.Clone()
		g.indexMultiplier[i] = total
		total *= d.NBins()
		volume *= d.BinWidth()
	}
	g.inverseVolume = 1 / volume
	g.signal = make([]float64, total)
	g.errorSquared = make([]float64, total)
	g.numEvents = make([]float64, total)
	g.mask = make([]bool, total)
	g.coordSystem = geometry.CoordinateSystemOf(g.dims)
	return g, nil
}

// Clone deep-copies the grid, including all four arrays.
func (g *Grid) Clone() *Grid {
	c := *g
	c.dims = make([]*geometry.Dimension, len(g.dims))
	for i, d := range g.dims {
		c.dims[i] = d.Clone()
	}
	c.indexMultiplier = append([]int(nil), g.indexMultiplier...)
	c.signal = append([]float64(nil), g.signal...)
	c.errorSquared = append([]float64(nil), g.errorSquared...)
	c.numEvents = append([]float64(nil), g.numEvents...)
	c.mask = append([]bool(nil), g.mask...)
	return &c
}

func (g *Grid) NumDims() int                            { return len(g.dims) }
func (g *Grid) Dimension(i int) *geometry.Dimension     { return g.dims[i] }
func (g *Grid) Dimensions() []*geometry.Dimension       { return g.dims }
func (g *Grid) NPoints() int                            { return len(g.signal) }
func (g *Grid) InverseVolume() float64                  { return g.inverseVolume }
func (g *Grid) IsThreadSafe() bool                      { return g.threadSafe }
func (g *Grid) SetThreadSafe(v bool)                    { g.threadSafe = v }
func (g *Grid) DisplayNormalization() Normalization     { return g.displayNormalization }
func (g *Grid) SetDisplayNormalization(n Normalization) { g.displayNormalization = n }

// SpecialCoordinateSystem returns the coordinate-system tag.
func (g *Grid) SpecialCoordinateSystem() geometry.SpecialCoordinateSystem {
	return g.coordSystem
}

// SetSpecialCoordinateSystem overrides the tag derived from the frames.
func (g *Grid) SetSpecialCoordinateSystem(cs geometry.SpecialCoordinateSystem) {
	g.coordSystem = cs
}

// DimensionByID returns the dimension with the given id.
func (g *Grid) DimensionByID(id string) (*geometry.Dimension, int, bool) {
	for i, d := range g.dims {
		if d.ID() == id {
			return d, i, true
		}
	}
	return nil, -1, false
}

func (g *Grid) SignalAt(i int) float64       { return g.signal[i] }
func (g *Grid) ErrorSquaredAt(i int) float64 { return g.errorSquared[i] }
func (g *Grid) ErrorAt(i int) float64        { return math.Sqrt(g.errorSquared[i]) }
func (g *Grid) NumEventsAt(i int) float64    { return g.numEvents[i] }
func (g *Grid) IsMaskedAt(i int) bool        { return g.mask[i] }

func (g *Grid) SetSignalAt(i int, v float64)       { g.signal[i] = v }
func (g *Grid) SetErrorSquaredAt(i int, v float64) { g.errorSquared[i] = v }
func (g *Grid) SetNumEventsAt(i int, v float64)    { g.numEvents[i] = v }
func (g *Grid) SetMaskAt(i int, masked bool)       { g.mask[i] = masked }

// AddAt accumulates one contribution into cell i.
func (g *Grid) AddAt(i int, signal, errorSquared, numEvents float64) {
	g.signal[i] += signal
	g.errorSquared[i] += errorSquared
	g.numEvents[i] += numEvents
}

// SetTo fills every cell with the same values and clears the mask.
func (g *Grid) SetTo(signal, errorSquared, numEvents float64) {
	for i := range g.signal {
		g.signal[i] = signal
		g.errorSquared[i] = errorSquared
		g.numEvents[i] = numEvents
		g.mask[i] = false
	}
}

// MaskAll masks every cell.
func (g *Grid) MaskAll() {
	for i := range g.mask {
		g.mask[i] = true
	}
}

// ClearMask unmasks every cell.
func (g *Grid) ClearMask() {
	for i := range g.mask {
		g.mask[i] = false
	}
}

// Array returns a copy of one per-cell array as float64 (mask as 0/1).
func (g *Grid) Array(kind ArrayKind) ([]float64, error) {
	switch kind {
	case SignalArray:
		return append([]float64(nil), g.signal...), nil
	case ErrorSquaredArray:
		return append([]float64(nil), g.errorSquared...), nil
	case NumEventsArray:
		return append([]float64(nil), g.numEvents...), nil
	case MaskArray:
		out := make([]float64, len(g.mask))
		for i, m := range g.mask {
			if m {
				out[i] = 1
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown array %q", kind)
}

// OverwriteArray replaces a whole per-cell array, as done by slab loads.
// The data length must equal NPoints.
func (g *Grid) OverwriteArray(kind ArrayKind, data []float64) error {
	if len(data) != len(g.signal) {
		return fmt.Errorf("array %q has %d values, grid has %d cells: %w", kind, len(data), len(g.signal), ErrShapeMismatch)
	}
	switch kind {
	case SignalArray:
		copy(g.signal, data)
	case ErrorSquaredArray:
		copy(g.errorSquared, data)
	case NumEventsArray:
		copy(g.numEvents, data)
	case MaskArray:
		for i, v := range data {
			g.mask[i] = v != 0
		}
	default:
		return fmt.Errorf("unknown array %q", kind)
	}
	return nil
}

// TotalSignal sums the signal of all unmasked cells.
func (g *Grid) TotalSignal() float64 {
	var s float64
	for i, v := range g.signal {
		if !g.mask[i] {
			s += v
		}
	}
	return s
}

// Add accumulates other into g cell by cell. Shapes must match.
func (g *Grid) Add(other *Grid) error {
	if err := g.sameShape(other); err != nil {
		return err
	}
	floats.Add(g.signal, other.signal)
	floats.Add(g.errorSquared, other.errorSquared)
	floats.Add(g.numEvents, other.numEvents)
	for i, m := range other.mask {
		g.mask[i] = g.mask[i] || m
	}
	return nil
}

// Scale multiplies signal by f and squared error by f².
func (g *Grid) Scale(f float64) {
	floats.Scale(f, g.signal)
	floats.Scale(f*f, g.errorSquared)
}

func (g *Grid) sameShape(other *Grid) error {
	if other == nil || len(other.dims) != len(g.dims) {
		return fmt.Errorf("dimension count does not match: %w", ErrShapeMismatch)
	}
	for i, d := range g.dims {
		if other.dims[i].NBins() != d.NBins() {
			return fmt.Errorf("dimension %d has %d bins, other has %d: %w", i, d.NBins(), other.dims[i].NBins(), ErrShapeMismatch)
		}
	}
	return nil
}
