package geometry

import (
	"errors"
	"fmt"

	"github.com/banshee-data/mdspace/internal/units"
)

// FrameArgument names a frame and the label of the unit it should carry.
type FrameArgument struct {
	FrameName string
	UnitName  string
}

// FrameFactory builds one kind of Frame.
type FrameFactory interface {
	CanInterpret(arg FrameArgument) bool
	Create(arg FrameArgument) (*Frame, error)
}

// frameRejecter is implemented by factories that recognise an argument's frame
// name but refuse it. Chain.Create surfaces the refusal instead of falling
// through to a less specific factory.
type frameRejecter interface {
	Reject(arg FrameArgument) error
}

// GeneralFrameFactory accepts the general frame name.
type GeneralFrameFactory struct{}

func (GeneralFrameFactory) CanInterpret(arg FrameArgument) bool {
	return arg.FrameName == GeneralFrameName
}

func (GeneralFrameFactory) Create(arg FrameArgument) (*Frame, error) {
	return NewGeneralFrame(arg.FrameName, units.Parse(arg.UnitName)), nil
}

// QLabFrameFactory accepts the QLab frame name.
type QLabFrameFactory struct{}

func (QLabFrameFactory) CanInterpret(arg FrameArgument) bool { return arg.FrameName == QLabName }
func (QLabFrameFactory) Create(FrameArgument) (*Frame, error) {
	return NewQLabFrame(), nil
}

// QSampleFrameFactory accepts the QSample frame name.
type QSampleFrameFactory struct{}

func (QSampleFrameFactory) CanInterpret(arg FrameArgument) bool { return arg.FrameName == QSampleName }
func (QSampleFrameFactory) Create(FrameArgument) (*Frame, error) {
	return NewQSampleFrame(), nil
}

// HKLFrameFactory accepts the HKL frame name paired with a Q-compatible unit.
type HKLFrameFactory struct{}

func (HKLFrameFactory) CanInterpret(arg FrameArgument) bool {
	return arg.FrameName == HKLName && units.Parse(arg.UnitName).IsQUnit()
}

func (f HKLFrameFactory) Create(arg FrameArgument) (*Frame, error) {
	if err := f.Reject(arg); err != nil {
		return nil, err
	}
	return NewHKLFrame(units.Parse(arg.UnitName))
}

// Reject returns ErrIncompatibleUnit for an HKL argument with a non-Q unit.
func (HKLFrameFactory) Reject(arg FrameArgument) error {
	if arg.FrameName != HKLName {
		return fmt.Errorf("frame %q is not %s: %w", arg.FrameName, HKLName, ErrUnsupportedFrame)
	}
	if !units.Parse(arg.UnitName).IsQUnit() {
		return fmt.Errorf("HKL frame cannot carry unit %q: %w", arg.UnitName, ErrIncompatibleUnit)
	}
	return nil
}

// UnknownFrameFactory accepts everything.
type UnknownFrameFactory struct{}

func (UnknownFrameFactory) CanInterpret(FrameArgument) bool { return true }
func (UnknownFrameFactory) Create(arg FrameArgument) (*Frame, error) {
	return NewUnknownFrame(units.Parse(arg.UnitName)), nil
}

// FrameFactoryChain tries factories in a fixed priority order.
type FrameFactoryChain struct {
	factories []FrameFactory
}

// NewFrameFactoryChain composes factories in the order given.
func NewFrameFactoryChain(factories ...FrameFactory) *FrameFactoryChain {
	return &FrameFactoryChain{factories: factories}
}

// MakeFrameFactoryChain returns the standard chain: General, QLab, QSample,
// HKL, and Unknown as the catch-all.
func MakeFrameFactoryChain() *FrameFactoryChain {
	return NewFrameFactoryChain(
		GeneralFrameFactory{},
		QLabFrameFactory{},
		QSampleFrameFactory{},
		HKLFrameFactory{},
		UnknownFrameFactory{},
	)
}

// CanInterpret reports whether any factory in the chain accepts arg.
func (c *FrameFactoryChain) CanInterpret(arg FrameArgument) bool {
	for _, f := range c.factories {
		if f.CanInterpret(arg) {
			return true
		}
	}
	return false
}

// Create builds the frame from the first factory that accepts arg.
func (c *FrameFactoryChain) Create(arg FrameArgument) (*Frame, error) {
	for _, f := range c.factories {
		if f.CanInterpret(arg) {
			return f.Create(arg)
		}
		if r, ok := f.(frameRejecter); ok {
			if err := r.Reject(arg); err != nil && !errors.Is(err, ErrUnsupportedFrame) {
				return nil, err
			}
		}
	}
	return nil, fmt.Errorf("frame %q with unit %q: %w", arg.FrameName, arg.UnitName, ErrUnsupportedFrame)
}

var _ FrameFactory = (*FrameFactoryChain)(nil)
