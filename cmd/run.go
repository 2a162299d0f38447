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
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	perf "github.com/hodgesds/perf-utils"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/gofv/InputParameters"
	"github.com/notargets/gofv/model_problems"
	"github.com/notargets/gofv/snapshot"
	"github.com/notargets/gofv/telemetry"
)

// RunCmd represents the run command
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Integrate a case described by a YAML input file",
	Long: `
Integrates the case of the input file until its target time, step limit,
wall clock budget or halt file ends the run.

gofv run -I case.yaml`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			ip     *InputParameters.InputParameters
			inFile string
		)
		if inFile, err = cmd.Flags().GetString("inputConditionsFile"); err != nil {
			return
		}
		if len(inFile) == 0 {
			fmt.Printf("Example File:%s\n", exampleFile)
			return fmt.Errorf("must supply an input parameters file (-I, --inputConditionsFile)")
		}
		if ip, err = InputParameters.ReadFile(inFile); err != nil {
			return
		}
		if lvl := viper.GetString("logLevel"); lvl != "" {
			ip.Log.Level = lvl
		}
		ip.Print(os.Stdout)
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		_, err = RunCase(ctx, ip)
		return
	},
}

var exampleFile = `
########################################
Title: "Sod shock tube"
Case:
  Type: sod          # sod, uniform, heated_channel, failing
  NCells: 400
  NBlocks: 4
Flux:
  Type: ausmdv
Integration:
  Scheme: predictor_corrector
  CFL: 0.5
  TargetTime: 0.2
Output:
  SnapshotEvery: 0.05
  SnapshotDir: ./snapshots
  SampleDB: ./samples.db
Parallel:
  Ranks: 2
########################################
`

func init() {
	rootCmd.AddCommand(RunCmd)
	RunCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file for input parameters")
}

// RunCase opens the stores of the input, then integrates its case.
func RunCase(ctx context.Context, ip *InputParameters.InputParameters) (res *model_problems.Result, err error) {
	var (
		log  *telemetry.Logger
		c    *model_problems.Case
		opts model_problems.RunOptions
	)
	if log, err = telemetry.NewLogger(ip.LogConfig()); err != nil {
		return
	}
	if c, opts.Sources, err = ip.NewCase(); err != nil {
		return
	}
	cfg, err := ip.IntegratorConfig()
	if err != nil {
		return
	}
	src := opts.Sources
	opts = model_problems.DefaultRunOptions(cfg)
	opts.Ranks, opts.ForceFullFace = ip.Parallel.Ranks, ip.Parallel.ForceFullFace
	opts.Sources, opts.Log = src, log
	if opts.Chemistry, err = ip.Chemistry(c); err != nil {
		return
	}
	names := make([]string, c.Layout.N)
	for i := range names {
		names[i] = c.Layout.SlotName(i)
	}
	opts.Metrics = telemetry.NewMetrics("gofv", names)
	if addr := viper.GetString("metricsAddr"); addr != "" {
		srv := &http.Server{Addr: addr, Handler: opts.Metrics.Handler()}
		go func() {
			if serr := srv.ListenAndServe(); serr != nil && !errors.Is(serr, http.ErrServerClosed) {
				log.Error().Err(serr).Str("addr", addr).Msg("metrics server")
			}
		}()
		defer srv.Close()
	}
	if dir := ip.Output.SnapshotDir; dir != "" {
		var store *snapshot.Store
		if store, err = snapshot.Open(snapshot.Config{Path: dir}); err != nil {
			return
		}
		defer store.Close()
		opts.Snapshots = store
	}
	if path := ip.Output.SampleDB; path != "" {
		var samples *snapshot.SampleStore
		if samples, err = snapshot.OpenSampleStore(path); err != nil {
			return
		}
		defer samples.Close()
		opts.Samples = samples
	}
	if rs := ip.Output.Restart; rs != nil {
		if opts.Snapshots == nil {
			return nil, fmt.Errorf("restart needs Output.SnapshotDir")
		}
		opts.RunID, opts.Restart = rs.RunID, rs.Index
	}
	if viper.GetBool("profile") {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.Quiet).Stop()
	}
	var ran bool
	run := func() (rerr error) {
		ran = true
		res, rerr = model_problems.Run(ctx, c, opts)
		return
	}
	if viper.GetBool("perf") {
		pv, perr := perf.CPUInstructions(run)
		switch {
		case perr == nil:
			log.Info().Uint64("instructions", pv.Value).Msg("hardware counters")
		case !ran:
			log.Warn().Err(perr).Msg("hardware counters unavailable")
			err = run()
		default:
			err = perr
		}
	} else {
		err = run()
	}
	if err != nil {
		return
	}
	o := res.Orchestrators[0]
	log.Info().Str("run_id", res.RunID).Str("reason", o.Reason.String()).Int("step", o.Ctx.Step).
		Float64("time", o.Ctx.Time).Msg("run complete")
	return
}
