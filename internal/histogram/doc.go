// Package histogram implements the dense N-dimensional histogram grid: a
// regular binning over a set of geometry.Dimensions holding per-cell signal,
// squared error, event count and mask.
//
// Out-of-range and masked queries are not errors. They yield sentinel values
// (OutOfRange, NaN, MaskValue) so bulk scans such as line profiles continue
// past them.
package histogram
