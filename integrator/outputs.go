package integrator

import (
	"fmt"
	"math"
	"time"

	"github.com/notargets/gofv/geometry"
	"github.com/notargets/gofv/snapshot"
)

// writeOutputs writes whatever is due after a completed step. With final set
// every configured output is written unless it already was at this step.
// It is collective and fails on every rank when any rank fails.
func (o *Orchestrator) writeOutputs(final bool) (err error) {
	var (
		sc  = o.Ctx
		cfg = o.Config
		st  = o.Setup
	)
	snap := sc.due(&sc.NextSnapshot, cfg.SnapshotEvery) || final
	hist := sc.due(&sc.NextHistory, cfg.HistoryEvery) || (final && cfg.HistoryEvery > 0)
	loads := sc.due(&sc.NextLoads, cfg.LoadsEvery) || (final && cfg.LoadsEvery > 0)
	report := (final || (cfg.ReportEvery > 0 && sc.Step%cfg.ReportEvery == 0)) && sc.ReportStep != sc.Step

	if st.Samples != nil {
		if hist && sc.HistoryStep != sc.Step {
			if err = o.writeHistory(); err != nil {
				return
			}
		}
		if loads && sc.LoadsStep != sc.Step {
			if err = o.writeLoads(); err != nil {
				return
			}
		}
	}
	if report {
		if err = o.report(); err != nil {
			return
		}
	}
	if snap && st.Snapshots != nil && sc.SnapshotStep != sc.Step {
		err = o.writeSnapshot()
	}
	return
}

// writeSnapshot stores the blocks of every rank, then the meta record from
// rank 0 once all blocks are in. A snapshot without meta is never read back.
func (o *Orchestrator) writeSnapshot() (err error) {
	var (
		sc     = o.Ctx
		runID  = o.Setup.RunID
		failed bool
	)
	if failed, err = o.agree(o.Setup.Snapshots.WriteBlocks(runID, sc.SnapshotIndex, o.Setup.Blocks)); failed {
		return fmt.Errorf("snapshot %d: %w", sc.SnapshotIndex, err)
	}
	var local error
	if o.Setup.Comm.Rank() == 0 {
		local = o.Setup.Snapshots.WriteMeta(snapshot.Meta{
			RunID:        runID,
			Index:        sc.SnapshotIndex,
			Time:         sc.Time,
			Step:         sc.Step,
			Dt:           sc.Dt,
			NextSnapshot: sc.NextSnapshot,
			NextHistory:  sc.NextHistory,
			NextLoads:    sc.NextLoads,
			NBlocks:      o.nBlocks,
			NConserved:   o.Layout.N,
			Written:      time.Now(),
		})
	}
	if failed, err = o.agree(local); failed {
		return fmt.Errorf("snapshot %d meta: %w", sc.SnapshotIndex, err)
	}
	o.log.Info().Int("index", sc.SnapshotIndex).Int("step", sc.Step).Float64("time", sc.Time).
		Msg("snapshot written")
	o.Setup.Metrics.SnapshotWritten()
	sc.SnapshotStep = sc.Step
	sc.SnapshotIndex++
	return
}

func (o *Orchestrator) writeHistory() (err error) {
	var (
		sc   = o.Ctx
		rows []snapshot.HistoryRow
	)
	for _, hp := range o.Config.HistoryPoints {
		for _, b := range o.Setup.Blocks {
			if b.ID != hp.Block || hp.Cell < 0 || hp.Cell >= len(b.Cells) {
				continue
			}
			fs := b.Cells[hp.Cell].FS
			rows = append(rows, snapshot.HistoryRow{
				RunID: o.Setup.RunID, Step: sc.Step, Time: sc.Time,
				Block: b.ID, Cell: hp.Cell,
				Rho: fs.Rho, P: fs.P, T: fs.T, Vel: fs.Vel,
			})
		}
	}
	var local error
	if len(rows) > 0 {
		local = o.Setup.Samples.AddHistory(rows...)
	}
	var failed bool
	if failed, err = o.agree(local); failed {
		return fmt.Errorf("history at step %d: %w", sc.Step, err)
	}
	sc.HistoryStep = sc.Step
	return
}

// Loads integrates the force of the gas on every wall boundary of the rank
// and the heat it transfers into the wall, from the fluxes of the last stage.
func (o *Orchestrator) Loads() (rows []snapshot.LoadRow) {
	l := o.Layout
	for _, b := range o.Setup.Blocks {
		for _, bnd := range b.Boundaries {
			if !bnd.Kind.IsWall() {
				continue
			}
			var (
				force geometry.Vector3
				heat  float64
			)
			for m, f := range bnd.Faces {
				s := bnd.Outsign[m] * f.Area
				force = force.Add(geometry.Vector3{f.F[l.XMom], f.F[l.YMom], f.F[l.ZMom]}.Scale(s))
				heat += s * f.HeatFlux
			}
			rows = append(rows, snapshot.LoadRow{
				RunID: o.Setup.RunID, Step: o.Ctx.Step, Time: o.Ctx.Time,
				Block: b.ID, Boundary: bnd.Name, Force: force, Heat: heat,
			})
		}
	}
	return
}

func (o *Orchestrator) writeLoads() (err error) {
	var (
		rows  = o.Loads()
		local error
	)
	if len(rows) > 0 {
		local = o.Setup.Samples.AddLoads(rows...)
	}
	var failed bool
	if failed, err = o.agree(local); failed {
		return fmt.Errorf("loads at step %d: %w", o.Ctx.Step, err)
	}
	o.Ctx.LoadsStep = o.Ctx.Step
	return
}

// report reduces the max |dU/dt| of the first stage per conserved slot over
// every rank, then logs it with the step status. Rank 0 records the row.
func (o *Orchestrator) report() (err error) {
	var (
		l   = o.Layout
		sc  = o.Ctx
		res = make([]float64, l.N)
	)
	for _, b := range o.Setup.Blocks {
		for _, c := range b.Cells {
			for i, v := range c.DUDt[0] {
				res[i] = math.Max(res[i], math.Abs(v))
			}
		}
	}
	if err = o.Setup.Comm.AllReduceMaxVec(res); err != nil {
		return
	}
	o.Residuals = res
	o.Setup.Metrics.Residuals(res)
	var (
		names = make([]string, l.N)
		worst float64
		local error
	)
	for i := range names {
		names[i] = l.SlotName(i)
		worst = math.Max(worst, res[i])
	}
	if o.Setup.Comm.Rank() == 0 && o.Setup.Samples != nil {
		local = o.Setup.Samples.AddResiduals(snapshot.ResidualRow{
			RunID: o.Setup.RunID, Step: sc.Step, Time: sc.Time, Dt: sc.LastDt,
			Names: names, Values: res,
		})
	}
	var failed bool
	if failed, err = o.agree(local); failed {
		return fmt.Errorf("residuals at step %d: %w", sc.Step, err)
	}
	ev := o.log.Info()
	if o.wallNC > 0 {
		ev = o.log.Warn().Int("wall_non_converged", o.wallNC)
		o.wallNC = 0
	}
	ev.Int("step", sc.Step).
		Float64("time", sc.Time).
		Float64("dt", sc.LastDt).
		Dur("wall", sc.Elapsed()).
		Float64("max_residual", worst).
		Floats64("residuals", res).
		Msg("status")
	sc.ReportStep = sc.Step
	return
}
