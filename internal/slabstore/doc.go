// Package slabstore is the persisted-file layer for workspaces: a single
// SQLite file holding a tree of groups, typed attributes on any node, and
// chunked float64 datasets that can be written and read as row slabs.
//
// Paths are slash separated and absolute ("/", "/workspace/box_structure").
// The schema is managed by embedded golang-migrate migrations and upgraded
// whenever a file is opened.
package slabstore
