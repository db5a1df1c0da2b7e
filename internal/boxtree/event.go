package boxtree

import (
	"fmt"
	"math"
)

// Event is a single weighted point in N-D space. RunIndex and DetectorID are
// zero for lean events.
type Event struct {
	Signal       float64
	ErrorSquared float64
	Center       []float64
	RunIndex     uint16
	DetectorID   int32
}

// Extent is a closed coordinate interval along one dimension.
type Extent struct {
	Min float64
	Max float64
}

func (e Extent) Width() float64 { return e.Max - e.Min }

// Contains reports whether x lies in [Min, Max].
func (e Extent) Contains(x float64) bool { return x >= e.Min && x <= e.Max }

func (e Extent) String() string { return fmt.Sprintf("[%g, %g]", e.Min, e.Max) }

func validateExtents(extents []Extent) error {
	if len(extents) == 0 {
		return fmt.Errorf("no extents: %w", ErrDimensionality)
	}
	for d, e := range extents {
		if math.IsNaN(e.Min) || math.IsNaN(e.Max) || e.Max < e.Min {
			return fmt.Errorf("extent %d %v is invalid: %w", d, e, ErrDimensionality)
		}
	}
	return nil
}

func containsAll(extents []Extent, center []float64) bool {
	for d, e := range extents {
		if !e.Contains(center[d]) {
			return false
		}
	}
	return true
}
