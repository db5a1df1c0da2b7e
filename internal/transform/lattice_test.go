package transform

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestOrientedLattice_Cubic(t *testing.T) {
	l, err := NewOrientedLattice(2, 2, 2, 90, 90, 90)
	if err != nil {
		t.Fatal(err)
	}
	if got := l.Volume(); math.Abs(got-8) > 1e-12 {
		t.Errorf("volume = %g, want 8", got)
	}
	want := mat.NewDense(3, 3, []float64{0.5, 0, 0, 0, 0.5, 0, 0, 0, 0.5})
	if !mat.EqualApprox(l.BMatrix(), want, 1e-12) {
		t.Errorf("B = %v", mat.Formatted(l.BMatrix()))
	}
	if d := l.DSpacing(Vec3{1, 0, 0}); math.Abs(d-2) > 1e-12 {
		t.Errorf("d(100) = %g, want 2", d)
	}
	if d := l.DSpacing(Vec3{1, 1, 0}); math.Abs(d-math.Sqrt2) > 1e-12 {
		t.Errorf("d(110) = %g, want sqrt 2", d)
	}
	if d := l.DSpacing(Vec3{}); !math.IsInf(d, 1) {
		t.Errorf("d(000) = %g, want +Inf", d)
	}
}

func TestOrientedLattice_Hexagonal(t *testing.T) {
	l, err := NewOrientedLattice(3, 3, 5, 90, 90, 120)
	if err != nil {
		t.Fatal(err)
	}
	wantVol := 9 * 5 * math.Sin(120*deg)
	if math.Abs(l.Volume()-wantVol) > 1e-9 {
		t.Errorf("volume = %g, want %g", l.Volume(), wantVol)
	}

	as, bs, cs, alphas, betas, gammas := l.Reciprocal()
	wantAS := 2 / (3 * math.Sqrt(3))
	if math.Abs(as-wantAS) > 1e-12 || math.Abs(bs-wantAS) > 1e-12 {
		t.Errorf("a*, b* = %g, %g, want %g", as, bs, wantAS)
	}
	if math.Abs(cs-0.2) > 1e-12 {
		t.Errorf("c* = %g, want 0.2", cs)
	}
	if math.Abs(alphas-90) > 1e-9 || math.Abs(betas-90) > 1e-9 || math.Abs(gammas-60) > 1e-9 {
		t.Errorf("reciprocal angles = %g %g %g", alphas, betas, gammas)
	}

	// G·G* = I
	var p mat.Dense
	p.Mul(l.G(), l.GStar())
	if !mat.EqualApprox(&p, identity3(), 1e-12) {
		t.Errorf("G·G* = %v", mat.Formatted(&p))
	}

	// BᵀB = G*
	var btb mat.Dense
	b := l.BMatrix()
	btb.Mul(b.T(), b)
	if !mat.EqualApprox(&btb, l.GStar(), 1e-12) {
		t.Errorf("BᵀB = %v", mat.Formatted(&btb))
	}
}

func TestOrientedLattice_Invalid(t *testing.T) {
	tests := []struct {
		name                string
		a, b, c, al, be, ga float64
	}{
		{"zero length", 0, 1, 1, 90, 90, 90},
		{"negative length", 1, -1, 1, 90, 90, 90},
		{"zero angle", 1, 1, 1, 0, 90, 90},
		{"straight angle", 1, 1, 1, 90, 180, 90},
		{"open cell", 1, 1, 1, 10, 10, 170},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOrientedLattice(tt.a, tt.b, tt.c, tt.al, tt.be, tt.ga)
			if !errors.Is(err, ErrInvalidLattice) {
				t.Fatalf("expected ErrInvalidLattice, got %v", err)
			}
		})
	}
}

func TestOrientedLattice_SetU(t *testing.T) {
	l, _ := NewOrientedLattice(1, 1, 1, 90, 90, 90)
	if err := l.SetU(Rotation(Vec3{0, 0, 1}, 30)); err != nil {
		t.Fatalf("rotation rejected: %v", err)
	}
	if err := l.SetU(mat.NewDense(3, 3, []float64{2, 0, 0, 0, 1, 0, 0, 0, 1})); err == nil {
		t.Error("expected scaling matrix to be rejected")
	}

	c := l.Clone()
	_ = c.SetU(identity3())
	if mat.EqualApprox(l.U(), c.U(), 1e-12) {
		t.Error("clone shares U with original")
	}
}
