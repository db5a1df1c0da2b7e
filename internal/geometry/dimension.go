package geometry

import (
	"fmt"
	"math"

	"github.com/banshee-data/mdspace/internal/units"
)

// Dimension is one axis of the space. Extents and bins change only through
// SetRange; the frame changes only through SetMDFrame.
type Dimension struct {
	id    string
	name  string
	frame *Frame
	min   float64
	max   float64
	bins  int
	width float64
}

// NewDimension builds a dimension bound to a clone of frame. A nil frame
// becomes a general frame with an empty unit label.
func NewDimension(id, name string, frame *Frame, min, max float64, bins int) (*Dimension, error) {
	if frame == nil {
		frame = NewGeneralFrame(GeneralFrameName, nil)
	}
	d := &Dimension{id: id, name: name, frame: frame.Clone()}
	if err := d.SetRange(bins, min, max); err != nil {
		return nil, fmt.Errorf("dimension %q: %w", id, err)
	}
	return d, nil
}

// NewDimensionFromArgument builds the frame through the standard factory chain.
func NewDimensionFromArgument(id, name string, arg FrameArgument, min, max float64, bins int) (*Dimension, error) {
	frame, err := MakeFrameFactoryChain().Create(arg)
	if err != nil {
		return nil, fmt.Errorf("dimension %q: %w", id, err)
	}
	return NewDimension(id, name, frame, min, max, bins)
}

// MustDimension is NewDimension that panics; intended for tests and fixed layouts.
func MustDimension(id, name string, frame *Frame, min, max float64, bins int) *Dimension {
	d, err := NewDimension(id, name, frame, min, max, bins)
	if err != nil {
		panic(err)
	}
	return d
}

func (d *Dimension) ID() string       { return d.id }
func (d *Dimension) Name() string     { return d.name }
func (d *Dimension) Minimum() float64 { return d.min }
func (d *Dimension) Maximum() float64 { return d.max }
func (d *Dimension) NBins() int       { return d.bins }
func (d *Dimension) BinWidth() float64 {
	return d.width
}

// MDFrame returns the frame. Frames are immutable, so the pointer is safe to share.
func (d *Dimension) MDFrame() *Frame { return d.frame }

// Units returns the unit of the bound frame.
func (d *Dimension) Units() units.Unit { return d.frame.Unit() }

// X returns the coordinate of bin boundary i (0..NBins).
func (d *Dimension) X(i int) float64 {
	if i == d.bins {
		return d.max
	}
	return d.min + float64(i)*d.width
}

// BinCenter returns the centre coordinate of bin i.
func (d *Dimension) BinCenter(i int) float64 {
	return d.min + (float64(i)+0.5)*d.width
}

// Contains reports whether x lies within [min, max].
func (d *Dimension) Contains(x float64) bool {
	return x >= d.min && x <= d.max
}

// SetRange replaces the extents and bin count.
func (d *Dimension) SetRange(bins int, min, max float64) error {
	if math.IsNaN(min) || math.IsNaN(max) || max < min {
		return fmt.Errorf("min=%g max=%g: %w", min, max, ErrInvalidExtent)
	}
	if bins < 1 {
		return fmt.Errorf("bins=%d: %w", bins, ErrInvalidBins)
	}
	d.min, d.max, d.bins = min, max, bins
	d.width = (max - min) / float64(bins)
	return nil
}

// SetMDFrame replaces the frame with a clone of frame. It exists for
// correcting dimensions read from files written before frames were recorded.
func (d *Dimension) SetMDFrame(frame *Frame) {
	if frame == nil {
		return
	}
	d.frame = frame.Clone()
}

// Clone returns a deep copy, including the frame.
func (d *Dimension) Clone() *Dimension {
	c := *d
	c.frame = d.frame.Clone()
	return &c
}

func (d *Dimension) String() string {
	return fmt.Sprintf("%s(%s) [%g, %g] x%d %s", d.name, d.id, d.min, d.max, d.bins, d.frame)
}
