package histogram

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/banshee-data/mdspace/internal/geometry"
)

func cubeGrid(t *testing.T, min, max float64, bins int) *Grid {
	t.Helper()
	g, err := New(
		geometry.MustDimension("x", "X", nil, min, max, bins),
		geometry.MustDimension("y", "Y", nil, min, max, bins),
		geometry.MustDimension("z", "Z", nil, min, max, bins),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func TestNewRejectsBadDimensionality(t *testing.T) {
	if _, err := New(); !errors.Is(err, ErrDimensionality) {
		t.Errorf("New() err = %v, want ErrDimensionality", err)
	}
	dims := make([]*geometry.Dimension, MaxDimensions+1)
	for i := range dims {
		dims[i] = geometry.MustDimension("d", "d", nil, 0, 1, 1)
	}
	if _, err := New(dims...); !errors.Is(err, ErrDimensionality) {
		t.Errorf("New(11 dims) err = %v, want ErrDimensionality", err)
	}
}

func TestCenterCellLookup(t *testing.T) {
	g := cubeGrid(t, -10, 10, 5)
	if g.NPoints() != 125 {
		t.Fatalf("NPoints = %d, want 125", g.NPoints())
	}
	center := g.NPoints() / 2
	g.SetSignalAt(center, 4)
	g.SetSignalAt(124, 7)

	if got := g.SignalAtCoord([]float64{0, 0, 0}, NoNormalization); got != 4 {
		t.Errorf("signal at origin = %v, want 4", got)
	}
	if got := g.SignalAtCoord([]float64{9.999, 9.999, 9.999}, NoNormalization); got != 7 {
		t.Errorf("signal near corner = %v, want 7", got)
	}
	if got := g.SignalAtCoord([]float64{10, 10, 10}, NoNormalization); !math.IsNaN(got) {
		t.Errorf("signal at upper bound = %v, want NaN", got)
	}
}

func TestIndexRoundTrip(t *testing.T) {
	g, err := New(
		geometry.MustDimension("a", "A", nil, -3, 7, 13),
		geometry.MustDimension("b", "B", nil, 0, 1, 4),
		geometry.MustDimension("c", "C", nil, 100, 200, 7),
		geometry.MustDimension("d", "D", nil, -1, 1, 2),
	)
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewSource(42))
	for n := 0; n < 1000; n++ {
		coords := make([]float64, g.NumDims())
		for d := range coords {
			dim := g.Dimension(d)
			coords[d] = dim.Minimum() + rng.Float64()*(dim.Maximum()-dim.Minimum())
		}
		i := g.LinearIndexAtCoord(coords)
		if i == OutOfRange {
			t.Fatalf("coords %v reported out of range", coords)
		}
		corner := g.CellMinCorner(i)
		for d := range coords {
			diff := coords[d] - corner[d]
			if diff < 0 || diff > g.Dimension(d).BinWidth() {
				t.Fatalf("dim %d: coord %v corner %v width %v", d, coords[d], corner[d], g.Dimension(d).BinWidth())
			}
		}
		if back := g.LinearIndex(g.Indices(i)); back != i {
			t.Fatalf("LinearIndex(Indices(%d)) = %d", i, back)
		}
	}
}

func TestOutOfRangeSentinel(t *testing.T) {
	g := cubeGrid(t, -10, 10, 5)
	tests := []struct {
		name   string
		coords []float64
	}{
		{"below x", []float64{-10.5, 0, 0}},
		{"below z", []float64{0, 0, -11}},
		{"at max y", []float64{0, 10, 0}},
		{"above", []float64{0, 0, 42}},
		{"nan", []float64{math.NaN(), 0, 0}},
		{"short", []float64{0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if i := g.LinearIndexAtCoord(tt.coords); i != OutOfRange {
				t.Errorf("index = %d, want OutOfRange", i)
			}
			if s := g.SignalAtCoord(tt.coords, NoNormalization); !math.IsNaN(s) {
				t.Errorf("signal = %v, want NaN", s)
			}
		})
	}
}

func TestNormalization(t *testing.T) {
	for _, bins := range []int{2, 5, 10} {
		g := cubeGrid(t, 0, 10, bins)
		width := 10 / float64(bins)
		c := []float64{0.1, 0.1, 0.1}
		i := g.LinearIndexAtCoord(c)
		g.SetSignalAt(i, 3)
		g.SetNumEventsAt(i, 2)

		if got := g.SignalAtCoord(c, NoNormalization); got != g.SignalAt(i) {
			t.Errorf("bins=%d none = %v, want %v", bins, got, g.SignalAt(i))
		}
		want := 3 / (width * width * width)
		if got := g.SignalAtCoord(c, VolumeNormalization); math.Abs(got-want) > 1e-12*want {
			t.Errorf("bins=%d volume = %v, want %v", bins, got, want)
		}
		if got := g.SignalAtCoord(c, NumEventsNormalization); got != 1.5 {
			t.Errorf("bins=%d num events = %v, want 1.5", bins, got)
		}
	}
}

func TestSignalWithMask(t *testing.T) {
	g := cubeGrid(t, -10, 10, 5)
	g.SetTo(1, 1, 1)
	g.SetMaskAt(62, true)

	if got := g.SignalWithMaskAtCoord([]float64{0, 0, 0}, NoNormalization); !math.IsNaN(got) {
		t.Errorf("masked cell = %v, want MaskValue", got)
	}
	if got := g.SignalWithMaskAtCoord([]float64{20, 0, 0}, NoNormalization); !math.IsNaN(got) {
		t.Errorf("out of range = %v, want MaskValue", got)
	}
	if got := g.SignalWithMaskAtCoord([]float64{-9, 0, 0}, NoNormalization); got != 1 {
		t.Errorf("unmasked = %v, want 1", got)
	}
	if got := g.TotalSignal(); got != 124 {
		t.Errorf("TotalSignal = %v, want 124", got)
	}
}

func TestOverwriteArray(t *testing.T) {
	g := cubeGrid(t, 0, 1, 2)
	if err := g.OverwriteArray(SignalArray, make([]float64, 3)); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("short slab err = %v, want ErrShapeMismatch", err)
	}
	data := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	if err := g.OverwriteArray(SignalArray, data); err != nil {
		t.Fatal(err)
	}
	mask := []float64{0, 1, 0, 0, 0, 0, 0, 0}
	if err := g.OverwriteArray(MaskArray, mask); err != nil {
		t.Fatal(err)
	}
	if !g.IsMaskedAt(1) || g.IsMaskedAt(0) {
		t.Errorf("mask not applied")
	}
	got, err := g.Array(SignalArray)
	if err != nil {
		t.Fatal(err)
	}
	if got[7] != 8 {
		t.Errorf("signal[7] = %v, want 8", got[7])
	}
}

func TestAddAndScale(t *testing.T) {
	a := cubeGrid(t, 0, 1, 2)
	b := cubeGrid(t, 0, 1, 2)
	a.SetTo(1, 1, 1)
	b.SetTo(2, 2, 2)
	b.SetMaskAt(3, true)
	if err := a.Add(b); err != nil {
		t.Fatal(err)
	}
	a.Scale(2)
	if got := a.SignalAt(0); got != 6 {
		t.Errorf("signal = %v, want 6", got)
	}
	if !a.IsMaskedAt(3) {
		t.Errorf("mask not merged")
	}

	other := cubeGrid(t, 0, 1, 3)
	if err := a.Add(other); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Add mismatched err = %v", err)
	}
}

func TestClone(t *testing.T) {
	g := cubeGrid(t, 0, 1, 2)
	g.SetSignalAt(0, 5)
	c := g.Clone()
	c.SetSignalAt(0, 9)
	if g.SignalAt(0) != 5 {
		t.Errorf("clone shares signal storage")
	}
}

func TestParseNormalization(t *testing.T) {
	for in, want := range map[string]Normalization{
		"":          NoNormalization,
		"none":      NoNormalization,
		"Volume":    VolumeNormalization,
		"numevents": NumEventsNormalization,
		" events ":  NumEventsNormalization,
	} {
		got, err := ParseNormalization(in)
		if err != nil {
			t.Fatalf("ParseNormalization(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseNormalization(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseNormalization("max"); err == nil {
		t.Error("expected an error for an unknown normalization")
	}
}
