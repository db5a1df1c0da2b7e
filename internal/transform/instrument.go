package transform

import (
	"fmt"
	"math"
	"sort"
)

// Instrument is the minimal beamline geometry needed for elastic Q:
// source-to-sample distance, beam direction and detector pixel positions
// relative to the sample (metres).
type Instrument struct {
	Name   string
	L1     float64
	Beam   Vec3
	Pixels map[int32]Vec3
}

// NewInstrument returns an instrument with the beam along +z.
func NewInstrument(name string, l1 float64) *Instrument {
	return &Instrument{Name: name, L1: l1, Beam: Vec3{0, 0, 1}, Pixels: make(map[int32]Vec3)}
}

// SetPixel places detector id at a sample-relative position.
func (in *Instrument) SetPixel(id int32, pos Vec3) {
	in.Pixels[id] = pos
}

// SetPixelSpherical places a pixel at distance r, polar angle 2θ from the
// beam and azimuth φ about it (degrees).
func (in *Instrument) SetPixelSpherical(id int32, r, twoTheta, phi float64) {
	in.Pixels[id] = SphericalToCartesian(r, twoTheta, phi)
}

// Pixel returns the position of detector id.
func (in *Instrument) Pixel(id int32) (Vec3, error) {
	p, ok := in.Pixels[id]
	if !ok {
		return Vec3{}, fmt.Errorf("%w: %d", ErrUnknownPixel, id)
	}
	return p, nil
}

// DetectorIDs returns the pixel ids in ascending order.
func (in *Instrument) DetectorIDs() []int32 {
	ids := make([]int32, 0, len(in.Pixels))
	for id := range in.Pixels {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SphericalToCartesian converts distance, polar angle (from +z) and azimuth
// (from +x toward +y), both in degrees, into beam-frame coordinates.
func SphericalToCartesian(distance, polarDeg, azimuthDeg float64) Vec3 {
	sinPolar, cosPolar := math.Sincos(polarDeg * deg)
	sinAzimuth, cosAzimuth := math.Sincos(azimuthDeg * deg)
	return Vec3{
		distance * sinPolar * cosAzimuth,
		distance * sinPolar * sinAzimuth,
		distance * cosPolar,
	}
}
