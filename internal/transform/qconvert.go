package transform

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/mdspace/internal/config"
	"github.com/banshee-data/mdspace/internal/geometry"
)

// Physical constants (CODATA 2018).
const (
	PlanckConstant = 6.62607015e-34    // J s
	NeutronMass    = 1.67492749804e-27 // kg
)

// ExperimentInfo is the metadata a workspace carries about its sample and
// run: lattice, W matrix, goniometer, instrument and Q sign convention.
type ExperimentInfo struct {
	Lattice     *OrientedLattice
	W           *mat.Dense
	Goniometer  *Goniometer
	Instrument  *Instrument
	QConvention string
}

// NewExperimentInfo returns metadata with an identity goniometer and the
// inelastic convention.
func NewExperimentInfo() *ExperimentInfo {
	return &ExperimentInfo{Goniometer: NewGoniometer(), QConvention: config.QConventionInelastic}
}

// Clone returns an independent copy.
func (e *ExperimentInfo) Clone() *ExperimentInfo {
	c := &ExperimentInfo{Instrument: e.Instrument, QConvention: e.QConvention}
	if e.Lattice != nil {
		c.Lattice = e.Lattice.Clone()
	}
	if e.W != nil {
		c.W = mat.DenseCopyOf(e.W)
	}
	if e.Goniometer != nil {
		c.Goniometer = &Goniometer{axes: e.Goniometer.Axes()}
	}
	return c
}

// QSign is +1 for the crystallography convention (Q = kf - ki) and -1 for
// inelastic (Q = ki - kf).
func QSign(convention string) float64 {
	if convention == config.QConventionCrystallography {
		return 1
	}
	return -1
}

// QConverter maps (detector, time-of-flight) to Q in one coordinate system.
// It captures the matrices once; later edits to ExperimentInfo do not affect
// an existing converter.
type QConverter struct {
	cs     geometry.SpecialCoordinateSystem
	inst   *Instrument
	sign   float64
	beam   Vec3
	rT     *mat.Dense
	target *mat.Dense
}

// NewQConverter prepares conversion into cs.
func NewQConverter(info *ExperimentInfo, cs geometry.SpecialCoordinateSystem) (*QConverter, error) {
	if info == nil || info.Instrument == nil {
		return nil, fmt.Errorf("Q conversion needs an instrument")
	}
	c := &QConverter{
		cs:   cs,
		inst: info.Instrument,
		sign: QSign(info.QConvention),
		beam: info.Instrument.Beam.Unit(),
	}
	if c.beam.Norm2() == 0 {
		c.beam = Vec3{0, 0, 1}
	}
	r := identity3()
	if info.Goniometer != nil {
		r = info.Goniometer.R()
	}
	c.rT = mat.DenseCopyOf(r.T())

	switch cs {
	case geometry.CoordQLab:
		c.target = identity3()
	case geometry.CoordQSample:
		c.target = c.rT
	case geometry.CoordHKL:
		if info.Lattice == nil {
			return nil, ErrMissingLattice
		}
		inv, err := invert3(info.Lattice.UB())
		if err != nil {
			return nil, fmt.Errorf("UB %w", err)
		}
		var m mat.Dense
		m.Mul(inv, c.rT)
		m.Scale(1/(2*math.Pi), &m)
		c.target = &m
	default:
		return nil, fmt.Errorf("%w: cannot convert to %s", ErrWrongCoordinateSystem, cs)
	}
	return c, nil
}

// CoordinateSystem returns the target system.
func (c *QConverter) CoordinateSystem() geometry.SpecialCoordinateSystem { return c.cs }

// Wavenumber returns |k| in 1/Angstrom for a neutron that travelled
// pathLength metres in tof microseconds.
func Wavenumber(pathLength, tof float64) float64 {
	if tof <= 0 {
		return 0
	}
	v := pathLength / (tof * 1e-6)
	lambda := PlanckConstant / (NeutronMass * v) * 1e10
	return 2 * math.Pi / lambda
}

// QLab returns the lab-frame momentum transfer for an elastic event.
func (c *QConverter) QLab(det int32, tof float64) (Vec3, error) {
	pos, err := c.inst.Pixel(det)
	if err != nil {
		return Vec3{}, err
	}
	l2 := pos.Norm()
	k := Wavenumber(c.inst.L1+l2, tof)
	ki := c.beam.Scale(k)
	kf := pos.Unit().Scale(k)
	return kf.Sub(ki).Scale(c.sign), nil
}

// Convert returns the event's coordinates in the target system.
func (c *QConverter) Convert(det int32, tof float64) (Vec3, error) {
	q, err := c.QLab(det, tof)
	if err != nil {
		return Vec3{}, err
	}
	return mulVec(c.target, q), nil
}

// FromQLab maps an already computed lab-frame Q into the target system.
func (c *QConverter) FromQLab(q Vec3) Vec3 {
	return mulVec(c.target, q)
}
