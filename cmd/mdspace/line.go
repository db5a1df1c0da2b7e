package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/banshee-data/mdspace/internal/histogram"
	"github.com/banshee-data/mdspace/internal/render"
	"github.com/banshee-data/mdspace/internal/workspace"
)

func (a *app) lineCmd() *cobra.Command {
	var (
		out, start, end, norm string
		boundaries, errorBars bool
	)
	cmd := &cobra.Command{
		Use:   "line <histo.mdspace>",
		Short: "Plot a line profile through a histogram",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, _, err := workspace.LoadHistogram(args[0])
			if err != nil {
				return err
			}
			s, err := parseFloats(start, g.NumDims())
			if err != nil {
				return err
			}
			e, err := parseFloats(end, g.NumDims())
			if err != nil {
				return err
			}
			n, err := histogram.ParseNormalization(norm)
			if err != nil {
				return err
			}
			line, err := g.LinePoints(s, e, n, !boundaries)
			if err != nil {
				return err
			}

			names := make([]string, g.NumDims())
			for i := range names {
				names[i] = g.Dimension(i).Name()
			}
			opts := render.LineOptions{
				Title:     fmt.Sprintf("%s from %s to %s", strings.Join(names, ", "), start, end),
				YLabel:    fmt.Sprintf("Signal (%s normalization)", n),
				ErrorBars: errorBars,
			}
			if err := render.SaveLineProfile(out, opts, render.LineSeries{Label: args[0], Line: line}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d samples\nsaved %s\n", len(line.Y), out)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&out, "out", "o", "profile.png", "output image (.png, .svg or .pdf)")
	f.StringVar(&start, "start", "", "start point, one comma separated coordinate per dimension")
	f.StringVar(&end, "end", "", "end point, one comma separated coordinate per dimension")
	f.StringVar(&norm, "norm", "none", "normalization: none, volume or numevents")
	f.BoolVar(&boundaries, "boundaries", false, "sample every bin boundary instead of bin centres")
	f.BoolVar(&errorBars, "errors", true, "draw error bars (bin-centre profiles only)")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}
