package workspace

import "errors"

var (
	// ErrDimensionality means the dimensions supplied do not fit the workspace.
	ErrDimensionality = errors.New("dimension count does not match provided extents")
	// ErrNotEventWorkspace means a file holds some other kind of workspace.
	ErrNotEventWorkspace = errors.New("file does not hold an event workspace")
	// ErrNotHistogram means a file holds some other kind of workspace.
	ErrNotHistogram = errors.New("file does not hold a histogram workspace")
)
