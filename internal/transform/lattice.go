package transform

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const deg = math.Pi / 180

// OrientedLattice is a unit cell plus its orientation U. Angles are in
// degrees, lengths in Angstrom. B, G and G* are derived on every call.
type OrientedLattice struct {
	A, B, C            float64
	Alpha, Beta, Gamma float64
	u                  *mat.Dense
}

// NewOrientedLattice validates the cell and starts with U = I.
func NewOrientedLattice(a, b, c, alpha, beta, gamma float64) (*OrientedLattice, error) {
	l := &OrientedLattice{A: a, B: b, C: c, Alpha: alpha, Beta: beta, Gamma: gamma, u: identity3()}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

// Validate checks that the parameters describe a cell of positive volume.
func (l *OrientedLattice) Validate() error {
	if !(l.A > 0 && l.B > 0 && l.C > 0) {
		return fmt.Errorf("%w: lengths must be positive (%g, %g, %g)", ErrInvalidLattice, l.A, l.B, l.C)
	}
	for _, ang := range []float64{l.Alpha, l.Beta, l.Gamma} {
		if !(ang > 0 && ang < 180) {
			return fmt.Errorf("%w: angle %g outside (0, 180)", ErrInvalidLattice, ang)
		}
	}
	if l.volumeFactor() <= 0 {
		return fmt.Errorf("%w: angles %g, %g, %g do not close a cell", ErrInvalidLattice, l.Alpha, l.Beta, l.Gamma)
	}
	return nil
}

func (l *OrientedLattice) volumeFactor() float64 {
	ca, cb, cg := math.Cos(l.Alpha*deg), math.Cos(l.Beta*deg), math.Cos(l.Gamma*deg)
	return 1 - ca*ca - cb*cb - cg*cg + 2*ca*cb*cg
}

// Volume is the direct cell volume in cubic Angstrom.
func (l *OrientedLattice) Volume() float64 {
	return l.A * l.B * l.C * math.Sqrt(l.volumeFactor())
}

// G is the direct metric tensor.
func (l *OrientedLattice) G() *mat.Dense {
	ca, cb, cg := math.Cos(l.Alpha*deg), math.Cos(l.Beta*deg), math.Cos(l.Gamma*deg)
	a, b, c := l.A, l.B, l.C
	return mat.NewDense(3, 3, []float64{
		a * a, a * b * cg, a * c * cb,
		a * b * cg, b * b, b * c * ca,
		a * c * cb, b * c * ca, c * c,
	})
}

// GStar is the reciprocal metric tensor, the inverse of G.
func (l *OrientedLattice) GStar() *mat.Dense {
	gs, err := invert3(l.G())
	if err != nil {
		// Validate guarantees a positive volume, so G is invertible.
		panic(err)
	}
	return gs
}

// Reciprocal returns a*, b*, c* (1/Angstrom, no 2π) and α*, β*, γ* in degrees.
func (l *OrientedLattice) Reciprocal() (as, bs, cs, alphas, betas, gammas float64) {
	gs := l.GStar()
	as = math.Sqrt(gs.At(0, 0))
	bs = math.Sqrt(gs.At(1, 1))
	cs = math.Sqrt(gs.At(2, 2))
	alphas = acosClamped(gs.At(1, 2)/(bs*cs)) / deg
	betas = acosClamped(gs.At(0, 2)/(as*cs)) / deg
	gammas = acosClamped(gs.At(0, 1)/(as*bs)) / deg
	return
}

// BMatrix is the Busing-Levy B matrix mapping HKL to an orthonormal
// crystal frame.
func (l *OrientedLattice) BMatrix() *mat.Dense {
	as, bs, cs, _, betas, gammas := l.Reciprocal()
	return mat.NewDense(3, 3, []float64{
		as, bs * math.Cos(gammas*deg), cs * math.Cos(betas*deg),
		0, bs * math.Sin(gammas*deg), -cs * math.Sin(betas*deg) * math.Cos(l.Alpha*deg),
		0, 0, 1 / l.C,
	})
}

// U returns a copy of the orientation matrix.
func (l *OrientedLattice) U() *mat.Dense {
	return mat.DenseCopyOf(l.u)
}

// SetU replaces the orientation matrix. U must be a rotation.
func (l *OrientedLattice) SetU(u mat.Matrix) error {
	if r, c := u.Dims(); r != 3 || c != 3 {
		return fmt.Errorf("U must be 3x3, got %dx%d", r, c)
	}
	if !IsOrthonormal(u, 1e-6) {
		return fmt.Errorf("U is not orthonormal")
	}
	l.u = mat.DenseCopyOf(u)
	return nil
}

// UB returns U·B.
func (l *OrientedLattice) UB() *mat.Dense {
	var ub mat.Dense
	ub.Mul(l.u, l.BMatrix())
	return &ub
}

// DSpacing returns the d-spacing of reflection (h, k, l) in Angstrom.
func (l *OrientedLattice) DSpacing(hkl Vec3) float64 {
	q := mulVec(l.BMatrix(), hkl)
	n := q.Norm()
	if n == 0 {
		return math.Inf(1)
	}
	return 1 / n
}

// Clone returns an independent copy.
func (l *OrientedLattice) Clone() *OrientedLattice {
	c := *l
	c.u = mat.DenseCopyOf(l.u)
	return &c
}

func (l *OrientedLattice) String() string {
	return fmt.Sprintf("a=%.4f b=%.4f c=%.4f alpha=%.3f beta=%.3f gamma=%.3f",
		l.A, l.B, l.C, l.Alpha, l.Beta, l.Gamma)
}

func acosClamped(x float64) float64 {
	return math.Acos(math.Max(-1, math.Min(1, x)))
}
