package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/mdspace/internal/workspace"
)

func (a *app) binCmd() *cobra.Command {
	var (
		out  string
		bins string
	)
	cmd := &cobra.Command{
		Use:   "bin <events.mdspace>",
		Short: "Bin an event workspace onto a histogram grid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := workspace.LoadEventWorkspace(args[0], a.cfg)
			if err != nil {
				return err
			}
			defer w.Close()

			dims := w.Dimensions()
			if bins != "" {
				n, err := parseInts(bins, -1)
				if err != nil {
					return err
				}
				if len(n) == 1 {
					for len(n) < len(dims) {
						n = append(n, n[0])
					}
				}
				if len(n) != len(dims) {
					return fmt.Errorf("%d bin counts for %d dimensions", len(n), len(dims))
				}
				for i, d := range dims {
					if err := d.SetRange(n[i], d.Minimum(), d.Maximum()); err != nil {
						return err
					}
				}
			}

			g, err := w.BinMD(dims)
			if err != nil {
				return err
			}
			if err := workspace.SaveHistogram(out, w.Name(), g, w.ExperimentInfo()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "binned %d events onto %d cells, total signal %g\nsaved %s\n",
				w.NumEvents(), g.NPoints(), g.TotalSignal(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "histo.mdspace", "output histogram file")
	cmd.Flags().StringVar(&bins, "bins", "", "bins per dimension, one value or one per dimension (default: the workspace's)")
	return cmd
}
