package main

import (
	"context"
	"fmt"
	"math"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/banshee-data/mdspace/internal/boxio"
	"github.com/banshee-data/mdspace/internal/geometry"
	"github.com/banshee-data/mdspace/internal/transform"
	"github.com/banshee-data/mdspace/internal/units"
	"github.com/banshee-data/mdspace/internal/workspace"
)

type convertOptions struct {
	out      string
	name     string
	frame    string
	events   int
	pixels   int
	seed     int64
	bins     int
	backing  string
	lattice  string
	u, v     string
	omega    float64
	chi, phi float64
}

func (a *app) convertCmd() *cobra.Command {
	o := &convertOptions{}
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a synthetic event run into a saved event workspace",
		Long: `convert generates a seeded synthetic run (a ring of detector pixels and
time-of-flight events), converts every event to QLab, QSample or HKL
coordinates and saves the resulting event workspace.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.runConvert(ctx, cmd, o)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.out, "out", "o", "events.mdspace", "output workspace file")
	f.StringVar(&o.name, "name", "synthetic", "workspace name")
	f.StringVar(&o.frame, "frame", geometry.QLabName, "target frame: QLab, QSample or HKL")
	f.IntVar(&o.events, "events", 100000, "number of events to generate")
	f.IntVar(&o.pixels, "pixels", 256, "number of detector pixels")
	f.Int64Var(&o.seed, "seed", 1, "random seed")
	f.IntVar(&o.bins, "bins", 50, "default bins per dimension")
	f.StringVar(&o.backing, "backing-dir", "", "page events through a disk buffer in this directory")
	f.StringVar(&o.lattice, "lattice", "5,5,5,90,90,90", "lattice parameters a,b,c,alpha,beta,gamma")
	f.StringVar(&o.u, "u", "1,0,0", "u vector (along the beam at zero angles)")
	f.StringVar(&o.v, "v", "0,1,0", "v vector (in the horizontal plane)")
	f.Float64Var(&o.omega, "omega", 0, "goniometer omega (degrees)")
	f.Float64Var(&o.chi, "chi", 0, "goniometer chi (degrees)")
	f.Float64Var(&o.phi, "phi", 0, "goniometer phi (degrees)")
	return cmd
}

func (a *app) runConvert(ctx context.Context, cmd *cobra.Command, o *convertOptions) error {
	inst, events := workspace.SyntheticRun(o.seed, o.events, o.pixels)
	info := transform.NewExperimentInfo()
	info.QConvention = a.cfg.GetQConvention()
	info.Instrument = inst
	info.Goniometer = transform.UniversalGoniometer(o.omega, o.chi, o.phi)

	dims, err := targetDimensions(o, info)
	if err != nil {
		return err
	}
	w, err := workspace.NewEventWorkspace(o.name, a.cfg, dims...)
	if err != nil {
		return err
	}
	defer w.Close()
	w.SetExperimentInfo(info)

	reg := prometheus.NewRegistry()
	if o.backing != "" {
		buf, err := w.AttachFileBacking(o.backing)
		if err != nil {
			return err
		}
		buf.SetMetrics(boxio.NewMetrics(reg))

		flusher := boxio.NewFlusher(boxio.FlusherConfig{Target: buf, Interval: a.cfg.GetFlushInterval()})
		flushCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() { done <- flusher.Run(flushCtx) }()
		defer func() {
			cancel()
			<-done
		}()
	}

	stats, err := w.ConvertToMD(ctx, events)
	if err != nil {
		return err
	}
	if err := w.Save(o.out); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n", w)
	fmt.Fprintf(out, "read %d, added %d, dropped %d in %d chunks (%v)\n",
		stats.Read, stats.Added, stats.Dropped, stats.Chunks, stats.Duration)
	if o.backing != "" {
		families, err := reg.Gather()
		if err != nil {
			return err
		}
		for _, mf := range families {
			for _, m := range mf.GetMetric() {
				v := m.GetCounter().GetValue()
				if g := m.GetGauge(); g != nil {
					v = g.GetValue()
				}
				fmt.Fprintf(out, "%s %g\n", mf.GetName(), v)
			}
		}
	}
	fmt.Fprintf(out, "saved %s\n", o.out)
	return nil
}

// targetDimensions builds three dimensions in the requested frame wide enough
// for every synthetic event. HKL needs the oriented lattice.
func targetDimensions(o *convertOptions, info *transform.ExperimentInfo) ([]*geometry.Dimension, error) {
	q := math.Ceil(workspace.MaxSyntheticQ())
	var (
		frame func() (*geometry.Frame, error)
		names []string
		limit = q
	)
	switch o.frame {
	case geometry.QLabName:
		frame = func() (*geometry.Frame, error) { return geometry.NewQLabFrame(), nil }
		names = []string{"Q_lab_x", "Q_lab_y", "Q_lab_z"}
	case geometry.QSampleName:
		frame = func() (*geometry.Frame, error) { return geometry.NewQSampleFrame(), nil }
		names = []string{"Q_sample_x", "Q_sample_y", "Q_sample_z"}
	case geometry.HKLName:
		lat, err := parseLattice(o.lattice, o.u, o.v)
		if err != nil {
			return nil, err
		}
		info.Lattice = lat
		frame = func() (*geometry.Frame, error) { return geometry.NewHKLFrame(units.NewReciprocalLattice("")) }
		names = []string{"[H,0,0]", "[0,K,0]", "[0,0,L]"}
		limit = math.Ceil(q * math.Max(lat.A, math.Max(lat.B, lat.C)) / (2 * math.Pi))
	default:
		return nil, fmt.Errorf("unknown frame %q (QLab, QSample or HKL)", o.frame)
	}

	dims := make([]*geometry.Dimension, 3)
	for i, name := range names {
		f, err := frame()
		if err != nil {
			return nil, err
		}
		if dims[i], err = geometry.NewDimension(name, name, f, -limit, limit, o.bins); err != nil {
			return nil, err
		}
	}
	return dims, nil
}
