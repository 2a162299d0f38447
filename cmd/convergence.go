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
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/notargets/gofv/flux"
	"github.com/notargets/gofv/integrator"
	"github.com/notargets/gofv/model_problems"
)

// ConvergenceCmd represents the convergence command
var ConvergenceCmd = &cobra.Command{
	Use:   "convergence",
	Short: "Measure the order of convergence on the Sod shock tube",
	Long: `
Runs the Sod shock tube at each resolution and prints the density error
against the exact solution, with the observed order between resolutions.

gofv convergence --flux hllc --cells 50,100,200,400`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			cfg = integrator.DefaultConfig()
			f   = cmd.Flags()
			pts []model_problems.ConvergencePoint
		)
		var ft flux.FluxType
		name, _ := f.GetString("flux")
		if ft, err = flux.ParseFluxType(name); err != nil {
			return
		}
		cfg.Flux = flux.DefaultConfig(ft)
		scheme, _ := f.GetString("scheme")
		if cfg.Scheme, err = integrator.ParseScheme(scheme); err != nil {
			return
		}
		cfg.CFL, _ = f.GetFloat64("CFL")
		cfg.DtMax = 1
		cells, _ := f.GetIntSlice("cells")
		t, _ := f.GetFloat64("time")
		if pts, err = model_problems.SodConvergence(context.Background(), cfg, cells, t); err != nil {
			return
		}
		PrintConvergence(os.Stdout, fmt.Sprintf("Sod, %s, %s", name, scheme), cfg.CFL, pts)
		return
	},
}

func init() {
	rootCmd.AddCommand(ConvergenceCmd)
	ConvergenceCmd.Flags().String("flux", "ausmdv", "flux calculator")
	ConvergenceCmd.Flags().String("scheme", "predictor_corrector", "time integration scheme")
	ConvergenceCmd.Flags().Float64("CFL", 0.5, "CFL number")
	ConvergenceCmd.Flags().IntSlice("cells", []int{50, 100, 200, 400}, "resolutions of the study")
	ConvergenceCmd.Flags().Float64("time", 0.2, "time of comparison")
}

func PrintConvergence(w io.Writer, title string, CFL float64, pts []model_problems.ConvergencePoint) {
	fmt.Fprintf(w, "Title = %s, CFL = %5.2f\n", title, CFL)
	fmt.Fprintf(w, "%8s %12s %12s %8s\n", "cells", "L1(rho)", "Linf(rho)", "order")
	for i, p := range pts {
		order := "-"
		if i > 0 {
			order = fmt.Sprintf("%8.3f", p.Order)
		}
		fmt.Fprintf(w, "%8d %12.5e %12.5e %8s\n", p.NCells, p.L1, p.LInf, order)
	}
}
