package workspace

import (
	"math"
	"math/rand"

	"github.com/banshee-data/mdspace/internal/transform"
)

// Synthetic source geometry.
const (
	SyntheticL1      = 20.0 // metres
	SyntheticL2      = 2.0  // metres
	SyntheticMinTOF  = 4000.0
	SyntheticMaxTOF  = 16000.0
	syntheticPeakTOF = 600.0
)

// SyntheticRun builds a ring of nPixels detectors between 2θ = 20° and 160°
// and nEvents weighted events: half spread over a few time-of-flight peaks
// and half flat background. The same seed gives the same run.
func SyntheticRun(seed int64, nEvents, nPixels int) (*transform.Instrument, []RawEvent) {
	rng := rand.New(rand.NewSource(seed))
	inst := transform.NewInstrument("synthetic", SyntheticL1)
	if nPixels < 1 {
		nPixels = 1
	}
	for i := 0; i < nPixels; i++ {
		twoTheta := 20 + 140*float64(i)/float64(max(nPixels-1, 1))
		phi := rng.Float64()*360 - 180
		inst.SetPixelSpherical(int32(i), SyntheticL2, twoTheta, phi)
	}

	peaks := []float64{6000, 9000, 12500}
	events := make([]RawEvent, nEvents)
	for i := range events {
		var tof float64
		if rng.Intn(2) == 0 {
			tof = peaks[rng.Intn(len(peaks))] + rng.NormFloat64()*syntheticPeakTOF/4
		} else {
			tof = SyntheticMinTOF + rng.Float64()*(SyntheticMaxTOF-SyntheticMinTOF)
		}
		tof = math.Max(SyntheticMinTOF, math.Min(SyntheticMaxTOF, tof))
		w := 0.5 + rng.Float64()
		events[i] = RawEvent{
			DetectorID:   int32(rng.Intn(nPixels)),
			TOF:          tof,
			Weight:       w,
			ErrorSquared: w * w,
			RunIndex:     uint16(i % 2),
		}
	}
	return inst, events
}

// MaxSyntheticQ bounds |Q| for any synthetic event, for choosing extents.
func MaxSyntheticQ() float64 {
	return 2 * transform.Wavenumber(SyntheticL1+SyntheticL2, SyntheticMinTOF)
}
