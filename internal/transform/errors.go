package transform

import "errors"

var (
	// ErrDegenerateVectors means B·u or B·v is (near) zero.
	ErrDegenerateVectors = errors.New("orientation vector has zero length in reciprocal space")
	// ErrParallelVectors means B·u and B·v are (near) parallel.
	ErrParallelVectors = errors.New("lattice vectors are parallel")
	// ErrSingularMatrix means a matrix that must be inverted has determinant 0.
	ErrSingularMatrix = errors.New("matrix determinant is 0")
	// ErrInvalidLattice means lattice parameters do not describe a cell.
	ErrInvalidLattice = errors.New("invalid lattice parameters")
	// ErrMissingLattice means the sample carries no oriented lattice.
	ErrMissingLattice = errors.New("sample has no oriented lattice")
	// ErrMissingWMatrix means the run carries no W (HKL basis) matrix.
	ErrMissingWMatrix = errors.New("run has no W matrix")
	// ErrWrongCoordinateSystem means the operation needs another coordinate system.
	ErrWrongCoordinateSystem = errors.New("wrong special coordinate system")
	// ErrUnknownPixel means an event refers to a detector not in the instrument.
	ErrUnknownPixel = errors.New("unknown detector pixel")
	// ErrInvalidAxis means a goniometer axis is malformed.
	ErrInvalidAxis = errors.New("invalid goniometer axis")
)
