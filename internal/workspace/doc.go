// Package workspace holds the user-facing containers of the engine: event
// workspaces (dimensions plus an adaptive box tree of events, optionally
// file-backed) and histogram grids, together with conversion of raw
// detector events into Q coordinates, binning, and persistence through
// slabstore files.
package workspace
