package render

import "errors"

var (
	// ErrNoData is returned when a profile or slice has no finite values to draw.
	ErrNoData = errors.New("nothing to draw")
	// ErrBadSlice is returned for slice axes or fixed indices that do not fit the grid.
	ErrBadSlice = errors.New("invalid slice")
)
