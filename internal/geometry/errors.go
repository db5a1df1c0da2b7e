package geometry

import "errors"

var (
	// ErrInvalidExtent is returned when a dimension's maximum is below its minimum.
	ErrInvalidExtent = errors.New("dimension maximum is less than minimum")
	// ErrInvalidBins is returned for a bin count below one.
	ErrInvalidBins = errors.New("dimension must have at least one bin")
	// ErrUnsupportedFrame is returned when no factory in a chain accepts a frame argument.
	ErrUnsupportedFrame = errors.New("unsupported frame")
	// ErrIncompatibleUnit is returned when a frame is paired with a unit it cannot carry.
	ErrIncompatibleUnit = errors.New("unit is incompatible with frame")
)
