package render

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/mdspace/internal/histogram"
)

// Slice is a 2-D cut through a grid. Values[y][x] is the normalised signal;
// masked cells are NaN.
type Slice struct {
	XName, YName string
	XCenters     []float64
	YCenters     []float64
	Values       [][]float64
	Min, Max     float64
}

// Slice2D cuts g along dimensions xDim and yDim. fixed holds a bin index
// for every dimension; entries for xDim and yDim are ignored and a nil
// fixed selects bin 0 everywhere else.
func Slice2D(g *histogram.Grid, xDim, yDim int, fixed []int, n histogram.Normalization) (*Slice, error) {
	nd := g.NumDims()
	if xDim < 0 || xDim >= nd || yDim < 0 || yDim >= nd || xDim == yDim {
		return nil, fmt.Errorf("axes %d,%d on a %d-D grid: %w", xDim, yDim, nd, ErrBadSlice)
	}
	idx := make([]int, nd)
	if fixed != nil {
		if len(fixed) != nd {
			return nil, fmt.Errorf("%d fixed indices for a %d-D grid: %w", len(fixed), nd, ErrBadSlice)
		}
		copy(idx, fixed)
	}

	xd, yd := g.Dimension(xDim), g.Dimension(yDim)
	s := &Slice{
		XName:    xd.Name(),
		YName:    yd.Name(),
		XCenters: make([]float64, xd.NBins()),
		YCenters: make([]float64, yd.NBins()),
		Values:   make([][]float64, yd.NBins()),
		Min:      math.Inf(1),
		Max:      math.Inf(-1),
	}
	for i := range s.XCenters {
		s.XCenters[i] = xd.BinCenter(i)
	}
	for j := range s.YCenters {
		s.YCenters[j] = yd.BinCenter(j)
		row := make([]float64, xd.NBins())
		idx[yDim] = j
		for i := range row {
			idx[xDim] = i
			lin := g.LinearIndex(idx)
			if lin == histogram.OutOfRange {
				return nil, fmt.Errorf("fixed indices %v outside the grid: %w", fixed, ErrBadSlice)
			}
			v := math.NaN()
			if !g.IsMaskedAt(lin) {
				v = g.SignalAt(lin) * g.NormalizationFactor(n, lin)
			}
			row[i] = v
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				s.Min = math.Min(s.Min, v)
				s.Max = math.Max(s.Max, v)
			}
		}
		s.Values[j] = row
	}
	return s, nil
}

// HeatMap builds the chart for a slice. Cells without a finite value are
// left empty.
func HeatMap(s *Slice, title string) (*charts.HeatMap, error) {
	if math.IsInf(s.Min, 1) {
		return nil, fmt.Errorf("heat map %q: %w", title, ErrNoData)
	}
	lo, hi := s.Min, s.Max
	if lo == hi {
		hi = lo + 1
	}

	xLabels := make([]string, len(s.XCenters))
	for i, x := range s.XCenters {
		xLabels[i] = strconv.FormatFloat(x, 'g', 4, 64)
	}
	yLabels := make([]string, len(s.YCenters))
	for j, y := range s.YCenters {
		yLabels[j] = strconv.FormatFloat(y, 'g', 4, 64)
	}

	data := make([]opts.HeatMapData, 0, len(s.XCenters)*len(s.YCenters))
	for j, row := range s.Values {
		for i, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				data = append(data, opts.HeatMapData{Value: [3]interface{}{i, j, "-"}})
				continue
			}
			data = append(data, opts.HeatMapData{Value: [3]interface{}{i, j, v}})
		}
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("%s × %s, %d×%d cells", s.XName, s.YName, len(xLabels), len(yLabels))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Name: s.XName, NameLocation: "middle", NameGap: 25, SplitArea: &opts.SplitArea{Show: opts.Bool(true)}}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: yLabels, Name: s.YName, NameLocation: "middle", NameGap: 40, SplitArea: &opts.SplitArea{Show: opts.Bool(true)}}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(lo),
			Max:        float32(hi),
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)
	hm.SetXAxis(xLabels).AddSeries("signal", data)
	return hm, nil
}

// RenderHeatMap writes the heat-map page for s to w.
func RenderHeatMap(w io.Writer, s *Slice, title string) error {
	hm, err := HeatMap(s, title)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := hm.Render(&buf); err != nil {
		return fmt.Errorf("failed to render heat map: %w", err)
	}
	_, err = w.Write(buf.Bytes())
	return err
}

// SaveHeatMap writes the heat-map page for s to an HTML file.
func SaveHeatMap(path string, s *Slice, title string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := RenderHeatMap(f, s, title); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
