// Package transform holds the crystallographic and coordinate transforms
// used to place events in Q-lab, Q-sample and HKL space: oriented lattices
// and their UB matrices, goniometers, elastic momentum-transfer conversion,
// the skew matrix for non-orthogonal HKL views and homogeneous affine
// transforms between workspace coordinates.
//
// Matrices are gonum mat.Dense values. Everything derived from a lattice is
// recomputed on demand, so nothing goes stale when parameters change.
package transform
