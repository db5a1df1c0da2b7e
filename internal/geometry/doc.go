// Package geometry describes the axes of an N-dimensional event or histogram
// space: the physical frame each axis lives in, its unit, and its extents.
//
// Key types: Frame, FrameFactory, Dimension, SpecialCoordinateSystem.
//
// Frames are immutable values owned by exactly one Dimension; copying a
// Dimension clones its Frame. Construction errors are returned immediately
// and are never clamped.
package geometry
