package transform

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Vec3 is a 3-vector.
type Vec3 [3]float64

func (v Vec3) Dot(w Vec3) float64 { return v[0]*w[0] + v[1]*w[1] + v[2]*w[2] }

func (v Vec3) Cross(w Vec3) Vec3 {
	return Vec3{
		v[1]*w[2] - v[2]*w[1],
		v[2]*w[0] - v[0]*w[2],
		v[0]*w[1] - v[1]*w[0],
	}
}

func (v Vec3) Norm2() float64 { return v.Dot(v) }
func (v Vec3) Norm() float64  { return math.Sqrt(v.Norm2()) }

func (v Vec3) Scale(f float64) Vec3 { return Vec3{v[0] * f, v[1] * f, v[2] * f} }
func (v Vec3) Sub(w Vec3) Vec3      { return Vec3{v[0] - w[0], v[1] - w[1], v[2] - w[2]} }

// Unit returns v scaled to length 1; the zero vector is returned unchanged.
func (v Vec3) Unit() Vec3 {
	n := v.Norm()
	if n == 0 {
		return v
	}
	return v.Scale(1 / n)
}

// mulVec returns m·v for a 3×3 matrix.
func mulVec(m mat.Matrix, v Vec3) Vec3 {
	var out Vec3
	for i := 0; i < 3; i++ {
		out[i] = m.At(i, 0)*v[0] + m.At(i, 1)*v[1] + m.At(i, 2)*v[2]
	}
	return out
}

func identity3() *mat.Dense {
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
}

// invert3 inverts a 3×3 matrix, failing only on an exactly zero determinant.
func invert3(m mat.Matrix) (*mat.Dense, error) {
	if mat.Det(m) == 0 {
		return nil, ErrSingularMatrix
	}
	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, err
		}
	}
	return &inv, nil
}

// IsOrthonormal reports whether mᵀ·m is the identity within tol.
func IsOrthonormal(m mat.Matrix, tol float64) bool {
	r, c := m.Dims()
	if r != c {
		return false
	}
	var p mat.Dense
	p.Mul(m.T(), m)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			if math.Abs(p.At(i, j)-want) > tol {
				return false
			}
		}
	}
	return true
}
