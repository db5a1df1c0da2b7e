package render

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/mdspace/internal/histogram"
)

// LineSeries is one labelled profile.
type LineSeries struct {
	Label string
	Line  histogram.LinePlot
}

// LineOptions controls the profile figure.
type LineOptions struct {
	Title  string
	XLabel string
	YLabel string
	// ErrorBars draws ±sqrt(error²) bars on bin-centre profiles.
	ErrorBars bool
	Width     vg.Length
	Height    vg.Length
}

func (o LineOptions) size() (vg.Length, vg.Length) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = 10 * vg.Inch
	}
	if h <= 0 {
		h = 5 * vg.Inch
	}
	return w, h
}

type errorPoints struct {
	plotter.XYs
	plotter.YErrors
}

// LineProfilePlot builds a plot of the series. Bin-boundary profiles
// (len(X) == len(Y)+1) are drawn as steps; NaN samples break the line.
func LineProfilePlot(o LineOptions, series ...LineSeries) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = o.Title
	p.X.Label.Text = o.XLabel
	if p.X.Label.Text == "" {
		p.X.Label.Text = "Distance along line"
	}
	p.Y.Label.Text = o.YLabel
	if p.Y.Label.Text == "" {
		p.Y.Label.Text = "Signal"
	}

	colors := generateColors(len(series))
	drawn := 0
	for i, s := range series {
		stepped := len(s.Line.X) == len(s.Line.Y)+1
		for j, seg := range segments(s.Line, stepped) {
			line, err := plotter.NewLine(seg.xy)
			if err != nil {
				return nil, err
			}
			line.Color = colors[i]
			line.Width = vg.Points(1)
			p.Add(line)
			if j == 0 && s.Label != "" {
				p.Legend.Add(s.Label, line)
			}
			drawn += len(seg.xy)

			if o.ErrorBars && !stepped {
				bars, err := plotter.NewYErrorBars(errorPoints{XYs: seg.xy, YErrors: seg.errs})
				if err != nil {
					return nil, err
				}
				bars.Color = colors[i]
				p.Add(bars)
			}
		}
	}
	if drawn == 0 {
		return nil, fmt.Errorf("line profile: %w", ErrNoData)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// SaveLineProfile renders the series to path. The format follows the file
// extension (.png, .svg, .pdf).
func SaveLineProfile(path string, o LineOptions, series ...LineSeries) error {
	p, err := LineProfilePlot(o, series...)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output dir: %w", err)
		}
	}
	w, h := o.size()
	if err := p.Save(w, h, path); err != nil {
		return fmt.Errorf("save line profile: %w", err)
	}
	return nil
}

// RenderLineProfile writes the series to w in the given image format
// ("png", "svg" or "pdf").
func RenderLineProfile(w io.Writer, format string, o LineOptions, series ...LineSeries) error {
	p, err := LineProfilePlot(o, series...)
	if err != nil {
		return err
	}
	width, height := o.size()
	wt, err := p.WriterTo(width, height, format)
	if err != nil {
		return fmt.Errorf("line profile writer: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

type segment struct {
	xy   plotter.XYs
	errs plotter.YErrors
}

// segments splits a profile into runs of finite samples. A stepped profile
// repeats the last value at the closing boundary so the final step is drawn.
func segments(l histogram.LinePlot, stepped bool) []segment {
	var (
		out []segment
		cur segment
	)
	closeRun := func() {
		if len(cur.xy) > 0 {
			out = append(out, cur)
		}
		cur = segment{}
	}
	for i, y := range l.Y {
		if math.IsNaN(y) || math.IsInf(y, 0) {
			closeRun()
			continue
		}
		e := 0.0
		if i < len(l.E) && !math.IsNaN(l.E[i]) && !math.IsInf(l.E[i], 0) {
			e = l.E[i]
		}
		cur.xy = append(cur.xy, plotter.XY{X: l.X[i], Y: y})
		cur.errs = append(cur.errs, struct{ Low, High float64 }{e, e})
		if stepped {
			cur.xy = append(cur.xy, plotter.XY{X: l.X[i+1], Y: y})
			cur.errs = append(cur.errs, struct{ Low, High float64 }{e, e})
		}
	}
	closeRun()
	return out
}
