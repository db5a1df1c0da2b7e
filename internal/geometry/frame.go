package geometry

import (
	"fmt"

	"github.com/banshee-data/mdspace/internal/units"
)

// FrameKind identifies the physical meaning of a dimension.
type FrameKind int

const (
	FrameGeneral FrameKind = iota
	FrameQLab
	FrameQSample
	FrameHKL
	FrameUnknown
)

// Frame names as they appear in persisted files and frame arguments.
const (
	GeneralFrameName = "General Frame"
	QLabName         = "QLab"
	QSampleName      = "QSample"
	HKLName          = "HKL"
	UnknownFrameName = "Unknown frame"
)

func (k FrameKind) String() string {
	switch k {
	case FrameGeneral:
		return GeneralFrameName
	case FrameQLab:
		return QLabName
	case FrameQSample:
		return QSampleName
	case FrameHKL:
		return HKLName
	default:
		return UnknownFrameName
	}
}

// Frame is the coordinate frame bound to one dimension. Frames are immutable;
// a Dimension replaces its frame rather than mutating it.
type Frame struct {
	kind FrameKind
	// name is the user-facing frame name; general frames may carry any name.
	name string
	unit units.Unit
}

// NewGeneralFrame returns a frame with no special physical meaning.
func NewGeneralFrame(name string, unit units.Unit) *Frame {
	if name == "" {
		name = GeneralFrameName
	}
	if unit == nil {
		unit = units.NewLabel("")
	}
	return &Frame{kind: FrameGeneral, name: name, unit: unit.Clone()}
}

// NewQLabFrame returns the lab-frame momentum-transfer frame (Å⁻¹).
func NewQLabFrame() *Frame {
	return &Frame{kind: FrameQLab, name: QLabName, unit: units.InverseAngstroms{}}
}

// NewQSampleFrame returns the sample-frame momentum-transfer frame (Å⁻¹).
func NewQSampleFrame() *Frame {
	return &Frame{kind: FrameQSample, name: QSampleName, unit: units.InverseAngstroms{}}
}

// NewHKLFrame returns a reciprocal-lattice frame. The unit must be a Q unit.
func NewHKLFrame(unit units.Unit) (*Frame, error) {
	if unit == nil {
		return nil, fmt.Errorf("HKL frame requires a unit: %w", ErrIncompatibleUnit)
	}
	if !unit.IsQUnit() {
		return nil, fmt.Errorf("HKL frame cannot carry unit %q: %w", unit.Label(), ErrIncompatibleUnit)
	}
	return &Frame{kind: FrameHKL, name: HKLName, unit: unit.Clone()}, nil
}

// NewUnknownFrame returns the catch-all frame.
func NewUnknownFrame(unit units.Unit) *Frame {
	if unit == nil {
		unit = units.NewLabel("")
	}
	return &Frame{kind: FrameUnknown, name: UnknownFrameName, unit: unit.Clone()}
}

func (f *Frame) Kind() FrameKind { return f.kind }
func (f *Frame) Name() string    { return f.name }
func (f *Frame) Unit() units.Unit {
	return f.unit.Clone()
}

// IsQ reports whether the frame measures momentum transfer.
func (f *Frame) IsQ() bool {
	switch f.kind {
	case FrameQLab, FrameQSample, FrameHKL:
		return true
	}
	return false
}

// CanConvertTo reports whether values in this frame can be expressed in unit.
func (f *Frame) CanConvertTo(unit units.Unit) bool {
	return f.unit.CanConvertTo(unit)
}

// SpecialCoordinateSystem returns the coordinate-system tag implied by the frame.
func (f *Frame) SpecialCoordinateSystem() SpecialCoordinateSystem {
	switch f.kind {
	case FrameQLab:
		return CoordQLab
	case FrameQSample:
		return CoordQSample
	case FrameHKL:
		return CoordHKL
	}
	return CoordNone
}

// Clone returns an independent copy.
func (f *Frame) Clone() *Frame {
	c := *f
	c.unit = f.unit.Clone()
	return &c
}

func (f *Frame) String() string {
	return fmt.Sprintf("%s [%s]", f.name, f.unit.Label())
}
