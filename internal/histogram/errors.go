package histogram

import "errors"

var (
	// ErrDimensionality is returned when an operation needs a different number of dimensions.
	ErrDimensionality = errors.New("wrong number of dimensions")
	// ErrShapeMismatch is returned when arrays or grids do not share a shape.
	ErrShapeMismatch = errors.New("shape mismatch")
)
