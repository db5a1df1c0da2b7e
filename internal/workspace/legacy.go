package workspace

import (
	"github.com/banshee-data/mdspace/internal/geometry"
)

// CorrectLegacyFrames assigns frames to dimensions loaded from files written
// before frames were stored. Only dimensions still on the Unknown frame are
// touched: a Q-compatible unit takes the Q frame implied by cs, anything else
// becomes a general frame with its unit. It returns how many changed.
func CorrectLegacyFrames(dims []*geometry.Dimension, cs geometry.SpecialCoordinateSystem) int {
	changed := 0
	for _, d := range dims {
		if d.MDFrame().Kind() != geometry.FrameUnknown {
			continue
		}
		unit := d.Units()
		frame := geometry.NewGeneralFrame("", unit)
		if unit.IsQUnit() {
			switch cs {
			case geometry.CoordQLab:
				frame = geometry.NewQLabFrame()
			case geometry.CoordQSample:
				frame = geometry.NewQSampleFrame()
			case geometry.CoordHKL:
				if hkl, err := geometry.NewHKLFrame(unit); err == nil {
					frame = hkl
				}
			}
		}
		d.SetMDFrame(frame)
		changed++
	}
	if changed > 0 {
		logf("corrected %d legacy dimension frames for %s", changed, cs)
	}
	return changed
}
