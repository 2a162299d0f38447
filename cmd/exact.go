/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/notargets/gofv/sod_shock_tube"
)

// ExactCmd represents the exact command
var ExactCmd = &cobra.Command{
	Use:   "exact",
	Short: "Print the exact solution of a shock tube",
	Long: `
Prints the exact Riemann solution on [0, 1] with the diaphragm at 0.5,
Sod's problem unless the left and right states are given. With --waves the
points are placed on each side of the waves and n of them through each fan.

gofv exact --time 0.2 --n 50
gofv exact --time 0.2 --n 10 --waves`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			L, R  sod_shock_tube.State
			gamma float64
			t     float64
			n     int
			waves bool
			rs    *sod_shock_tube.Riemann
		)
		f := cmd.Flags()
		L.Rho, _ = f.GetFloat64("rhoL")
		L.U, _ = f.GetFloat64("uL")
		L.P, _ = f.GetFloat64("pL")
		R.Rho, _ = f.GetFloat64("rhoR")
		R.U, _ = f.GetFloat64("uR")
		R.P, _ = f.GetFloat64("pR")
		gamma, _ = f.GetFloat64("gamma")
		t, _ = f.GetFloat64("time")
		n, _ = f.GetInt("n")
		waves, _ = f.GetBool("waves")
		if rs, err = sod_shock_tube.NewRiemann(L, R, gamma); err != nil {
			return
		}
		if waves {
			PrintExactAt(os.Stdout, rs, t, rs.WavePoints(0.5, t, n))
			return
		}
		PrintExact(os.Stdout, rs, t, n)
		return
	},
}

func init() {
	rootCmd.AddCommand(ExactCmd)
	ExactCmd.Flags().Float64("rhoL", 1, "left density")
	ExactCmd.Flags().Float64("uL", 0, "left velocity")
	ExactCmd.Flags().Float64("pL", 1, "left pressure")
	ExactCmd.Flags().Float64("rhoR", 0.125, "right density")
	ExactCmd.Flags().Float64("uR", 0, "right velocity")
	ExactCmd.Flags().Float64("pR", 0.1, "right pressure")
	ExactCmd.Flags().Float64("gamma", 1.4, "ratio of specific heats")
	ExactCmd.Flags().Float64("time", 0.2, "time of the solution")
	ExactCmd.Flags().IntP("n", "n", 20, "number of sample points")
	ExactCmd.Flags().Bool("waves", false, "sample at the waves instead of uniformly")
}

// PrintExact writes the star state and a table of n points on [0, 1].
func PrintExact(w io.Writer, rs *sod_shock_tube.Riemann, t float64, n int) {
	if n < 2 {
		n = 2
	}
	X := make([]float64, n)
	for i := range X {
		X[i] = float64(i) / float64(n-1)
	}
	PrintExactAt(w, rs, t, X)
}

// PrintExactAt writes the star state and a table of the solution at X.
func PrintExactAt(w io.Writer, rs *sod_shock_tube.Riemann, t float64, X []float64) {
	rhoL, rhoR := rs.StarDensities()
	fmt.Fprintf(w, "p* = %8.5f, u* = %8.5f, rho*L = %8.5f, rho*R = %8.5f (%d iterations)\n",
		rs.PStar, rs.UStar, rhoL, rhoR, rs.Iterations)
	fmt.Fprintf(w, "%10s %10s %10s %10s %10s\n", "x", "rho", "u", "p", "e")
	for i, s := range rs.Profile(X, 0.5, t) {
		fmt.Fprintf(w, "%10.5f %10.5f %10.5f %10.5f %10.5f\n", X[i], s.Rho, s.U, s.P, s.Energy(rs.Gamma))
	}
}
