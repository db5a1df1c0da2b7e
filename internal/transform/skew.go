package transform

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/mdspace/internal/geometry"
)

// SkewMatrix returns the inverted, column-normalised B·W matrix used to
// draw a non-orthogonal HKL view on orthogonal display axes. toOriginal is
// the workspace's transform back to its source coordinates; nil means none.
func SkewMatrix(info *ExperimentInfo, cs geometry.SpecialCoordinateSystem, toOriginal *Affine) (*mat.Dense, error) {
	if cs != geometry.CoordHKL {
		return nil, fmt.Errorf("%w: skew matrix needs HKL, have %s", ErrWrongCoordinateSystem, cs)
	}
	if info == nil || info.Lattice == nil {
		return nil, ErrMissingLattice
	}
	if info.W == nil {
		return nil, ErrMissingWMatrix
	}

	var skew mat.Dense
	skew.Mul(info.Lattice.BMatrix(), info.W)
	normalizeColumns(&skew)

	if toOriginal != nil && toOriginal.Dims() >= 3 {
		a := mat.DenseCopyOf(toOriginal.Linear().Slice(0, 3, 0, 3))
		ainv, err := invert3(a)
		if err != nil {
			return nil, fmt.Errorf("affine %w", err)
		}
		var tmp mat.Dense
		tmp.Mul(ainv, &skew)
		skew.Mul(&tmp, a)
	}

	inv, err := invert3(&skew)
	if err != nil {
		return nil, fmt.Errorf("skew %w", err)
	}
	return inv, nil
}

func normalizeColumns(m *mat.Dense) {
	r, c := m.Dims()
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, m)
		n := floats.Norm(col, 2)
		if n == 0 {
			continue
		}
		floats.Scale(1/n, col)
		m.SetCol(j, col)
	}
}

// AngleBetweenDisplayAxes returns the signed angles (radians) between the
// original axes dimX, dimY and their images under skew. The sign follows
// the normal of the dimX-dimY plane.
func AngleBetweenDisplayAxes(skew mat.Matrix, dimX, dimY int) (angleX, angleY float64, err error) {
	if dimX < 0 || dimX > 2 || dimY < 0 || dimY > 2 || dimX == dimY {
		return 0, 0, fmt.Errorf("display axes must be two distinct indices in [0,2], got %d and %d", dimX, dimY)
	}
	var ex, ey Vec3
	ex[dimX] = 1
	ey[dimY] = 1
	normal := ex.Cross(ey)

	angleX = signedAngle(ex, mulVec(skew, ex), normal)
	angleY = signedAngle(ey, mulVec(skew, ey), normal)
	return angleX, angleY, nil
}

func signedAngle(from, to, normal Vec3) float64 {
	n := from.Norm() * to.Norm()
	if n == 0 {
		return 0
	}
	dot := from.Dot(to) / n
	switch {
	case dot == 1:
		return 0
	case dot == -1:
		return math.Pi
	}
	angle := acosClamped(dot)
	if from.Cross(to).Dot(normal) < 0 {
		angle = -angle
	}
	return angle
}
