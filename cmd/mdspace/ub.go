package main

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/mdspace/internal/geometry"
	"github.com/banshee-data/mdspace/internal/transform"
)

func (a *app) ubCmd() *cobra.Command {
	var lattice, u, v, w, hkl string
	cmd := &cobra.Command{
		Use:   "ub",
		Short: "Compute the UB matrix for a lattice oriented by u and v",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			lat, err := parseLattice(lattice, u, v)
			if err != nil {
				return err
			}
			as, bs, cs, als, bes, gas := lat.Reciprocal()
			fmt.Fprintf(out, "lattice %s, volume %.4f\n", lat, lat.Volume())
			fmt.Fprintf(out, "reciprocal a*=%.5f b*=%.5f c*=%.5f alpha*=%.3f beta*=%.3f gamma*=%.3f\n", as, bs, cs, als, bes, gas)
			fmt.Fprintf(out, "B =\n%v\n", mat.Formatted(lat.BMatrix(), mat.Prefix("    "), mat.Squeeze()))
			fmt.Fprintf(out, "U =\n%v\n", mat.Formatted(lat.U(), mat.Prefix("    "), mat.Squeeze()))
			fmt.Fprintf(out, "UB =\n%v\n", mat.Formatted(lat.UB(), mat.Prefix("     "), mat.Squeeze()))

			if hkl != "" {
				h, err := parseVec3(hkl)
				if err != nil {
					return err
				}
				q := lat.HKLToQSample(h)
				fmt.Fprintf(out, "hkl %v: d=%.5f, Q_sample=(%.5f, %.5f, %.5f)\n", h, lat.DSpacing(h), q[0], q[1], q[2])
			}

			wv, err := parseFloats(w, 9)
			if err != nil {
				return err
			}
			info := transform.NewExperimentInfo()
			info.Lattice = lat
			info.W = mat.NewDense(3, 3, wv)
			skew, err := transform.SkewMatrix(info, geometry.CoordHKL, nil)
			if err != nil {
				return err
			}
			ax, ay, err := transform.AngleBetweenDisplayAxes(skew, 0, 1)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "skew =\n%v\n", mat.Formatted(skew, mat.Prefix("       "), mat.Squeeze()))
			fmt.Fprintf(out, "display axis angles x=%.3f° y=%.3f°\n", ax*180/math.Pi, ay*180/math.Pi)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&lattice, "lattice", "5,5,5,90,90,90", "lattice parameters a,b,c,alpha,beta,gamma")
	f.StringVar(&u, "u", "1,0,0", "u vector")
	f.StringVar(&v, "v", "0,1,0", "v vector")
	f.StringVar(&w, "w", "1,0,0,0,1,0,0,0,1", "W matrix, row major")
	f.StringVar(&hkl, "hkl", "", "report d-spacing and Q for this reflection")
	return cmd
}
