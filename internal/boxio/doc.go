// Package boxio pages box-tree leaves between memory and a backing store.
//
// DiskBuffer is the write-back cache attached to a boxtree.Controller. It
// tracks resident events per box in LRU order and, once the write buffer is
// exceeded, writes dirty leaves to a Store and drops their events from
// memory. File ranges released by rewritten or split boxes are reused
// first-fit.
//
// Three stores are provided: FileStore (fixed-size little-endian records in
// one file), BadgerStore (one compressed, checksummed block per write) and
// MemStore (tests).
package boxio
