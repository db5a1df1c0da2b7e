package render

import (
	"bytes"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/mdspace/internal/geometry"
	"github.com/banshee-data/mdspace/internal/histogram"
	"github.com/banshee-data/mdspace/internal/units"
)

func testGrid(t *testing.T, bins ...int) *histogram.Grid {
	t.Helper()
	dims := make([]*geometry.Dimension, len(bins))
	for i, n := range bins {
		id := string(rune('x' + i))
		d, err := geometry.NewDimension(id, id, geometry.NewGeneralFrame("", units.NewLabel("mm")), 0, float64(n), n)
		require.NoError(t, err)
		dims[i] = d
	}
	g, err := histogram.New(dims...)
	require.NoError(t, err)
	for i := 0; i < g.NPoints(); i++ {
		g.SetSignalAt(i, float64(i+1))
		g.SetErrorSquaredAt(i, 1)
		g.SetNumEventsAt(i, 1)
	}
	return g
}

func isPNG(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Greater(t, len(data), 8)
	assert.Equal(t, []byte("\x89PNG"), data[:4])
}

func TestSaveLineProfile(t *testing.T) {
	g := testGrid(t, 10)
	centres, err := g.LinePoints([]float64{0}, []float64{10}, histogram.NoNormalization, true)
	require.NoError(t, err)
	bounds, err := g.LinePoints([]float64{0}, []float64{10}, histogram.NoNormalization, false)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "plots", "profile.png")
	err = SaveLineProfile(path, LineOptions{Title: "x profile", ErrorBars: true},
		LineSeries{Label: "centres", Line: centres},
		LineSeries{Label: "boundaries", Line: bounds},
	)
	require.NoError(t, err)
	isPNG(t, path)
}

func TestLineProfileSkipsNaN(t *testing.T) {
	line := histogram.LinePlot{
		X: []float64{0, 1, 2, 3, 4},
		Y: []float64{1, math.NaN(), 2, 3, math.Inf(1)},
		E: []float64{0.1, math.NaN(), 0.2, 0.3, 0.4},
	}
	segs := segments(line, false)
	require.Len(t, segs, 2)
	assert.Len(t, segs[0].xy, 1)
	assert.Len(t, segs[1].xy, 2)
	assert.Equal(t, 0.2, segs[1].errs[0].High)

	p, err := LineProfilePlot(LineOptions{ErrorBars: true}, LineSeries{Line: line})
	require.NoError(t, err)
	assert.Equal(t, "Distance along line", p.X.Label.Text)
}

func TestSteppedSegments(t *testing.T) {
	line := histogram.LinePlot{X: []float64{0, 1, 2}, Y: []float64{5, 6}, E: []float64{1, 1}}
	segs := segments(line, true)
	require.Len(t, segs, 1)
	xs := make([]float64, len(segs[0].xy))
	for i, p := range segs[0].xy {
		xs[i] = p.X
	}
	assert.Equal(t, []float64{0, 1, 1, 2}, xs)
}

func TestLineProfileNoData(t *testing.T) {
	empty := histogram.LinePlot{X: []float64{0}, Y: []float64{math.NaN()}, E: []float64{math.NaN()}}
	err := SaveLineProfile(filepath.Join(t.TempDir(), "empty.png"), LineOptions{}, LineSeries{Line: empty})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestSlice2D(t *testing.T) {
	g := testGrid(t, 3, 2, 4)
	g.SetMaskAt(g.LinearIndex([]int{1, 1, 2}), true)

	s, err := Slice2D(g, 0, 1, []int{0, 0, 2}, histogram.NoNormalization)
	require.NoError(t, err)
	assert.Equal(t, "x", s.XName)
	assert.Equal(t, "y", s.YName)
	assert.Equal(t, []float64{0.5, 1.5, 2.5}, s.XCenters)
	assert.Equal(t, []float64{0.5, 1.5}, s.YCenters)
	require.Len(t, s.Values, 2)
	for j := 0; j < 2; j++ {
		for i := 0; i < 3; i++ {
			lin := g.LinearIndex([]int{i, j, 2})
			if i == 1 && j == 1 {
				assert.True(t, math.IsNaN(s.Values[j][i]))
				continue
			}
			assert.Equal(t, g.SignalAt(lin), s.Values[j][i])
		}
	}
	assert.Equal(t, g.SignalAt(g.LinearIndex([]int{0, 0, 2})), s.Min)
	assert.Equal(t, g.SignalAt(g.LinearIndex([]int{2, 1, 2})), s.Max)

	// Default fixed indices select bin 0.
	s0, err := Slice2D(g, 2, 0, nil, histogram.NoNormalization)
	require.NoError(t, err)
	assert.Len(t, s0.Values, 3)
	assert.Len(t, s0.Values[0], 4)
	assert.Equal(t, g.SignalAt(g.LinearIndex([]int{0, 0, 3})), s0.Values[0][3])
}

func TestSlice2DRejectsBadAxes(t *testing.T) {
	g := testGrid(t, 3, 2)
	for _, tt := range []struct {
		name  string
		x, y  int
		fixed []int
	}{
		{"same axis", 0, 0, nil},
		{"axis out of range", 0, 2, nil},
		{"negative axis", -1, 1, nil},
		{"short fixed", 0, 1, []int{0}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Slice2D(g, tt.x, tt.y, tt.fixed, histogram.NoNormalization)
			assert.ErrorIs(t, err, ErrBadSlice)
		})
	}

	g3 := testGrid(t, 3, 2, 2)
	_, err := Slice2D(g3, 0, 1, []int{0, 0, 5}, histogram.NoNormalization)
	assert.ErrorIs(t, err, ErrBadSlice)
}

func TestRenderHeatMap(t *testing.T) {
	g := testGrid(t, 4, 3)
	s, err := Slice2D(g, 0, 1, nil, histogram.VolumeNormalization)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, RenderHeatMap(&buf, s, "Signal slice"))
	out := buf.String()
	assert.Contains(t, out, "Signal slice")
	assert.Contains(t, out, "heatmap")

	path := filepath.Join(t.TempDir(), "slice.html")
	require.NoError(t, SaveHeatMap(path, s, "Signal slice"))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestHeatMapNoData(t *testing.T) {
	g := testGrid(t, 2, 2)
	g.MaskAll()
	s, err := Slice2D(g, 0, 1, nil, histogram.NoNormalization)
	require.NoError(t, err)
	_, err = HeatMap(s, "masked")
	assert.ErrorIs(t, err, ErrNoData)
}

func TestGenerateColors(t *testing.T) {
	assert.Nil(t, generateColors(0))
	assert.Equal(t, []color.Color{parseHex(viridis[0])}, generateColors(1))

	colors := generateColors(3)
	require.Len(t, colors, 3)
	assert.Equal(t, color.RGBA{R: 0x44, G: 0x01, B: 0x54, A: 255}, colors[0])
	assert.Equal(t, color.RGBA{R: 0xfd, G: 0xe7, B: 0x25, A: 255}, colors[2])
	// Halfway between the #26828e and #1f9e89 stops.
	assert.Equal(t, color.RGBA{R: 0x23, G: 0x90, B: 0x8c, A: 255}, colors[1])

	colors = generateColors(25)
	for i := 1; i < len(colors); i++ {
		assert.NotEqual(t, colors[i-1], colors[i])
	}
}

func TestRenderLineProfile(t *testing.T) {
	g := testGrid(t, 4)
	line, err := g.LinePoints([]float64{0}, []float64{4}, histogram.NoNormalization, true)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, RenderLineProfile(&buf, "png", LineOptions{}, LineSeries{Line: line}))
	assert.Equal(t, []byte("\x89PNG"), buf.Bytes()[:4])

	assert.Error(t, RenderLineProfile(&buf, "bmp?", LineOptions{}, LineSeries{Line: line}))
}
