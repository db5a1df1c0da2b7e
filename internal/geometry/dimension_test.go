package geometry

import (
	"errors"
	"math"
	"testing"

	"github.com/banshee-data/mdspace/internal/units"
)

func TestNewDimension(t *testing.T) {
	d, err := NewDimension("x", "X", NewQLabFrame(), -10, 10, 5)
	if err != nil {
		t.Fatalf("NewDimension: %v", err)
	}
	if d.BinWidth() != 4 {
		t.Errorf("BinWidth() = %g, want 4", d.BinWidth())
	}
	if d.X(0) != -10 || d.X(5) != 10 || d.X(2) != -2 {
		t.Errorf("X() boundaries wrong: %g %g %g", d.X(0), d.X(2), d.X(5))
	}
	if d.BinCenter(2) != 0 {
		t.Errorf("BinCenter(2) = %g, want 0", d.BinCenter(2))
	}
	if !d.Contains(10) || d.Contains(10.0001) {
		t.Error("Contains should be inclusive of both ends")
	}
}

func TestNewDimension_Errors(t *testing.T) {
	tests := []struct {
		name     string
		min, max float64
		bins     int
		want     error
	}{
		{"max below min", 1, 0, 10, ErrInvalidExtent},
		{"NaN extent", math.NaN(), 1, 10, ErrInvalidExtent},
		{"zero bins", 0, 1, 0, ErrInvalidBins},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDimension("d", "D", nil, tt.min, tt.max, tt.bins)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}

	// Degenerate but ordered extents are allowed.
	if _, err := NewDimension("d", "D", nil, 3, 3, 1); err != nil {
		t.Errorf("min == max should be allowed: %v", err)
	}
}

func TestDimensionSetRange(t *testing.T) {
	d := MustDimension("e", "Energy", NewGeneralFrame("Energy", units.NewLabel("meV")), 0, 10, 10)
	if err := d.SetRange(4, -2, 2); err != nil {
		t.Fatal(err)
	}
	if d.NBins() != 4 || d.BinWidth() != 1 {
		t.Errorf("after SetRange: bins=%d width=%g", d.NBins(), d.BinWidth())
	}
	if err := d.SetRange(4, 2, -2); !errors.Is(err, ErrInvalidExtent) {
		t.Errorf("expected ErrInvalidExtent, got %v", err)
	}
	// A failed SetRange leaves the previous range intact.
	if d.Minimum() != -2 || d.Maximum() != 2 {
		t.Errorf("range changed by failed SetRange: [%g, %g]", d.Minimum(), d.Maximum())
	}
}

func TestDimensionSetMDFrameClones(t *testing.T) {
	d := MustDimension("h", "[H,0,0]", nil, -1, 1, 2)
	hkl, err := NewHKLFrame(units.NewReciprocalLattice(""))
	if err != nil {
		t.Fatal(err)
	}
	d.SetMDFrame(hkl)
	if d.MDFrame() == hkl {
		t.Error("SetMDFrame must not take ownership of the caller's frame")
	}
	if d.MDFrame().Kind() != FrameHKL {
		t.Errorf("frame kind = %v", d.MDFrame().Kind())
	}
	d.SetMDFrame(nil)
	if d.MDFrame().Kind() != FrameHKL {
		t.Error("nil frame should be ignored")
	}
}

func TestDimensionClone(t *testing.T) {
	d := MustDimension("q", "Q_x", NewQSampleFrame(), 0, 1, 10)
	c := d.Clone()
	if err := c.SetRange(2, 0, 5); err != nil {
		t.Fatal(err)
	}
	if d.NBins() != 10 || d.Maximum() != 1 {
		t.Error("clone shares range state with original")
	}
	if c.MDFrame() == d.MDFrame() {
		t.Error("clone shares frame instance")
	}
}

func TestNewDimensionFromArgument(t *testing.T) {
	d, err := NewDimensionFromArgument("h", "H", FrameArgument{HKLName, "r.l.u."}, -3, 3, 6)
	if err != nil {
		t.Fatal(err)
	}
	if CoordinateSystemOf([]*Dimension{d}) != CoordHKL {
		t.Errorf("coordinate system = %v", CoordinateSystemOf([]*Dimension{d}))
	}
	if _, err := NewDimensionFromArgument("h", "H", FrameArgument{HKLName, "meV"}, -3, 3, 6); !errors.Is(err, ErrIncompatibleUnit) {
		t.Errorf("expected ErrIncompatibleUnit, got %v", err)
	}
}
