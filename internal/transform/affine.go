package transform

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// MatrixValidationTolerance bounds |det-1| for a rigid transform.
const MatrixValidationTolerance = 0.01

// Affine is an (n+1)×(n+1) homogeneous transform on n-dimensional points.
type Affine struct {
	m *mat.Dense
}

// NewAffine returns the n-dimensional identity transform.
func NewAffine(n int) *Affine {
	m := mat.NewDense(n+1, n+1, nil)
	for i := 0; i <= n; i++ {
		m.Set(i, i, 1)
	}
	return &Affine{m: m}
}

// AffineFromMatrix wraps a square homogeneous matrix. The last row must be
// (0, …, 0, 1).
func AffineFromMatrix(m mat.Matrix) (*Affine, error) {
	r, c := m.Dims()
	if r != c || r < 2 {
		return nil, fmt.Errorf("affine matrix must be square and at least 2x2, got %dx%d", r, c)
	}
	for j := 0; j < c-1; j++ {
		if m.At(r-1, j) != 0 {
			return nil, fmt.Errorf("affine matrix last row must be (0,...,0,1)")
		}
	}
	if m.At(r-1, c-1) != 1 {
		return nil, fmt.Errorf("affine matrix last row must be (0,...,0,1)")
	}
	return &Affine{m: mat.DenseCopyOf(m)}, nil
}

// AffineFromPose builds a 3-D transform from a row-major 4×4 pose.
func AffineFromPose(t [16]float64) (*Affine, error) {
	return AffineFromMatrix(mat.NewDense(4, 4, t[:]))
}

// AffineFromLinear embeds an n×n linear map with translation offset.
func AffineFromLinear(linear mat.Matrix, offset []float64) (*Affine, error) {
	r, c := linear.Dims()
	if r != c {
		return nil, fmt.Errorf("linear part must be square, got %dx%d", r, c)
	}
	if offset != nil && len(offset) != r {
		return nil, fmt.Errorf("offset has %d components, want %d", len(offset), r)
	}
	a := NewAffine(r)
	for i := 0; i < r; i++ {
		for j := 0; j < r; j++ {
			a.m.Set(i, j, linear.At(i, j))
		}
		if offset != nil {
			a.m.Set(i, r, offset[i])
		}
	}
	return a, nil
}

// Dims is the number of spatial dimensions n.
func (a *Affine) Dims() int {
	r, _ := a.m.Dims()
	return r - 1
}

// Matrix returns a copy of the homogeneous matrix.
func (a *Affine) Matrix() *mat.Dense { return mat.DenseCopyOf(a.m) }

// Linear returns a copy of the n×n linear part.
func (a *Affine) Linear() *mat.Dense {
	n := a.Dims()
	return mat.DenseCopyOf(a.m.Slice(0, n, 0, n))
}

// Translation returns the offset column.
func (a *Affine) Translation() []float64 {
	n := a.Dims()
	return mat.Col(nil, n, a.m)[:n]
}

// Apply maps a point. It panics if len(x) != Dims().
func (a *Affine) Apply(x []float64) []float64 {
	n := a.Dims()
	if len(x) != n {
		panic(fmt.Sprintf("affine: point has %d coordinates, want %d", len(x), n))
	}
	out := make([]float64, n)
	row := make([]float64, n+1)
	for i := 0; i < n; i++ {
		mat.Row(row, i, a.m)
		out[i] = floats.Dot(row[:n], x) + row[n]
	}
	return out
}

// Compose returns the transform that applies b first, then a.
func (a *Affine) Compose(b *Affine) (*Affine, error) {
	if a.Dims() != b.Dims() {
		return nil, fmt.Errorf("cannot compose %d-D and %d-D transforms", a.Dims(), b.Dims())
	}
	var m mat.Dense
	m.Mul(a.m, b.m)
	return &Affine{m: &m}, nil
}

// Inverse returns the inverse transform.
func (a *Affine) Inverse() (*Affine, error) {
	if mat.Det(a.m) == 0 {
		return nil, fmt.Errorf("affine %w", ErrSingularMatrix)
	}
	var inv mat.Dense
	if err := inv.Inverse(a.m); err != nil {
		return nil, fmt.Errorf("affine inverse: %w", err)
	}
	return &Affine{m: &inv}, nil
}

// IsRigid reports whether the linear part is a proper rotation: orthonormal
// with determinant 1.
func (a *Affine) IsRigid() bool {
	lin := a.Linear()
	if math.Abs(mat.Det(lin)-1) > MatrixValidationTolerance {
		return false
	}
	return IsOrthonormal(lin, MatrixValidationTolerance)
}

func (a *Affine) String() string {
	return fmt.Sprintf("%v", mat.Formatted(a.m, mat.Squeeze()))
}
