// Package boxtree implements the adaptive box tree that stores sparse
// N-dimensional events.
//
// A Box is either a leaf holding events or a grid box holding an evenly
// divided set of children. A leaf turns into a grid box in place when it
// holds more events than the controller's split threshold. Leaves may be
// paged out to a backing store through a BoxIO attached to the Controller;
// any read or insert pages them back in first.
//
// Aggregates (signal, squared error, event count, centroid) are cached per
// box and only recomputed by RefreshCache.
package boxtree
