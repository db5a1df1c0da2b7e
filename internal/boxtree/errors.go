package boxtree

import "errors"

var (
	// ErrInvariantViolation marks internal logic faults, such as an event that
	// fits no child during a split. It is never caused by user input.
	ErrInvariantViolation = errors.New("box tree invariant violated")
	// ErrDimensionality is returned when coordinates or extents do not match
	// the tree's dimension count.
	ErrDimensionality = errors.New("dimension count does not match provided extents")
	// ErrNotResident is returned when a paged-out leaf is needed but no BoxIO
	// is attached.
	ErrNotResident = errors.New("box events are not resident")
)
