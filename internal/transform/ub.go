package transform

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	degenerateNorm2 = 1e-10
	parallelNorm    = 1e-5
)

// UBFromLatticeAndVectors builds an oriented lattice whose U places u along
// the beam-frame x axis and v in the x-y plane.
func UBFromLatticeAndVectors(a, b, c, alpha, beta, gamma float64, u, v Vec3) (*OrientedLattice, error) {
	l, err := NewOrientedLattice(a, b, c, alpha, beta, gamma)
	if err != nil {
		return nil, err
	}
	if err := l.SetUFromVectors(u, v); err != nil {
		return nil, err
	}
	return l, nil
}

// SetUFromVectors orthogonalises B·u and B·v and stores the resulting U.
func (l *OrientedLattice) SetUFromVectors(u, v Vec3) error {
	bm := l.BMatrix()
	bu := mulVec(bm, u)
	bv := mulVec(bm, v)
	if bu.Norm2() < degenerateNorm2 || bv.Norm2() < degenerateNorm2 {
		return fmt.Errorf("%w: u=%v v=%v", ErrDegenerateVectors, u, v)
	}
	bu = bu.Unit()
	bv = bv.Unit()
	bw := bu.Cross(bv)
	if bw.Norm() < parallelNorm {
		return fmt.Errorf("%w: u=%v v=%v", ErrParallelVectors, u, v)
	}
	bw = bw.Unit()
	bv = bw.Cross(bu)

	l.u = mat.NewDense(3, 3, []float64{
		bu[0], bu[1], bu[2],
		bv[0], bv[1], bv[2],
		bw[0], bw[1], bw[2],
	})
	return nil
}

// UBFromMatrix recovers lattice parameters and U from a UB matrix.
func UBFromMatrix(ub mat.Matrix) (*OrientedLattice, error) {
	if r, c := ub.Dims(); r != 3 || c != 3 {
		return nil, fmt.Errorf("UB must be 3x3, got %dx%d", r, c)
	}
	if mat.Det(ub) == 0 {
		return nil, fmt.Errorf("UB %w", ErrSingularMatrix)
	}

	var gstar mat.Dense
	gstar.Mul(ub.T(), ub)
	g, err := invert3(&gstar)
	if err != nil {
		return nil, fmt.Errorf("UB metric: %w", err)
	}
	a := math.Sqrt(g.At(0, 0))
	b := math.Sqrt(g.At(1, 1))
	c := math.Sqrt(g.At(2, 2))
	l, err := NewOrientedLattice(a, b, c,
		acosClamped(g.At(1, 2)/(b*c))/deg,
		acosClamped(g.At(0, 2)/(a*c))/deg,
		acosClamped(g.At(0, 1)/(a*b))/deg,
	)
	if err != nil {
		return nil, err
	}

	binv, err := invert3(l.BMatrix())
	if err != nil {
		return nil, err
	}
	var u mat.Dense
	u.Mul(ub, binv)
	l.u = &u
	return l, nil
}

// HKLToQSample maps Miller indices to a sample-frame Q vector (with 2π).
func (l *OrientedLattice) HKLToQSample(hkl Vec3) Vec3 {
	return mulVec(l.UB(), hkl).Scale(2 * math.Pi)
}

// QSampleToHKL is the inverse of HKLToQSample.
func (l *OrientedLattice) QSampleToHKL(q Vec3) (Vec3, error) {
	inv, err := invert3(l.UB())
	if err != nil {
		return Vec3{}, err
	}
	return mulVec(inv, q.Scale(1/(2*math.Pi))), nil
}
