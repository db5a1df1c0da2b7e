package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/mdspace/internal/geometry"
	"github.com/banshee-data/mdspace/internal/slabstore"
	"github.com/banshee-data/mdspace/internal/transform"
	"github.com/banshee-data/mdspace/internal/workspace"
)

func (a *app) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <file.mdspace>",
		Short: "Describe a saved event workspace or histogram",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			f, err := slabstore.OpenReadOnly(args[0])
			if err != nil {
				return err
			}
			v, err := f.SchemaVersion()
			f.Close()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s (schema v%d)\n", args[0], v)

			w, err := workspace.LoadEventWorkspace(args[0], a.cfg)
			switch {
			case err == nil:
				defer w.Close()
				leaves, grids := w.Tree().BoxCount()
				fmt.Fprintf(out, "event workspace %q id %s\n", w.Name(), w.ID())
				fmt.Fprintf(out, "events %d, signal %g, leaves %d, grid boxes %d\n",
					w.NumEvents(), w.Tree().Signal(), leaves, grids)
				fmt.Fprintf(out, "controller %s\n", w.Controller())
				printDimensions(out, w.Dimensions(), w.SpecialCoordinateSystem())
				printExperiment(out, w.ExperimentInfo())
				return nil
			case !errors.Is(err, workspace.ErrNotEventWorkspace):
				return err
			}

			g, info, err := workspace.LoadHistogram(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "histogram, %d cells, total signal %g, display normalization %s\n",
				g.NPoints(), g.TotalSignal(), g.DisplayNormalization())
			printDimensions(out, g.Dimensions(), g.SpecialCoordinateSystem())
			printExperiment(out, info)
			return nil
		},
	}
}

func printDimensions(out io.Writer, dims []*geometry.Dimension, cs geometry.SpecialCoordinateSystem) {
	fmt.Fprintf(out, "coordinate system %s\n", cs)
	for _, d := range dims {
		fmt.Fprintf(out, "  %s\n", d)
	}
}

func printExperiment(out io.Writer, info *transform.ExperimentInfo) {
	fmt.Fprintf(out, "Q convention %s\n", info.QConvention)
	if info.Goniometer != nil && len(info.Goniometer.Axes()) > 0 {
		fmt.Fprintf(out, "goniometer %s\n", info.Goniometer)
	}
	if in := info.Instrument; in != nil {
		fmt.Fprintf(out, "instrument %s: L1 %g m, %d pixels\n", in.Name, in.L1, len(in.Pixels))
	}
	if info.Lattice != nil {
		fmt.Fprintf(out, "lattice %s\n", info.Lattice)
		fmt.Fprintf(out, "UB =\n%v\n", mat.Formatted(info.Lattice.UB(), mat.Prefix("     "), mat.Squeeze()))
	}
}
