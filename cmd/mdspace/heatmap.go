package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/mdspace/internal/histogram"
	"github.com/banshee-data/mdspace/internal/render"
	"github.com/banshee-data/mdspace/internal/workspace"
)

func (a *app) heatmapCmd() *cobra.Command {
	var (
		out, fixed, norm string
		xDim, yDim       int
	)
	cmd := &cobra.Command{
		Use:   "heatmap <histo.mdspace>",
		Short: "Render a 2-D slice of a histogram as an HTML heat map",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, _, err := workspace.LoadHistogram(args[0])
			if err != nil {
				return err
			}
			n, err := histogram.ParseNormalization(norm)
			if err != nil {
				return err
			}
			var idx []int
			if fixed != "" {
				if idx, err = parseInts(fixed, g.NumDims()); err != nil {
					return err
				}
			}
			s, err := render.Slice2D(g, xDim, yDim, idx, n)
			if err != nil {
				return err
			}
			title := fmt.Sprintf("%s: %s vs %s", args[0], s.XName, s.YName)
			if err := render.SaveHeatMap(out, s, title); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signal %g..%g\nsaved %s\n", s.Min, s.Max, out)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&out, "out", "o", "slice.html", "output HTML page")
	f.IntVar(&xDim, "x", 0, "dimension index on the x axis")
	f.IntVar(&yDim, "y", 1, "dimension index on the y axis")
	f.StringVar(&fixed, "fixed", "", "bin index for every dimension; x and y entries are ignored")
	f.StringVar(&norm, "norm", "none", "normalization: none, volume or numevents")
	return cmd
}
