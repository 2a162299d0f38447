package integrator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/notargets/gofv/bc"
	"github.com/notargets/gofv/exchange"
	"github.com/notargets/gofv/flux"
	"github.com/notargets/gofv/gas"
	"github.com/notargets/gofv/mesh"
	"github.com/notargets/gofv/snapshot"
	"github.com/notargets/gofv/solid"
	"github.com/notargets/gofv/state"
	"github.com/notargets/gofv/telemetry"
	"github.com/notargets/gofv/types"
	"github.com/notargets/gofv/utils"
)

// SnapshotStore persists complete snapshots of the run state.
type SnapshotStore interface {
	WriteBlocks(runID string, index int, blocks []*mesh.Block) error
	WriteMeta(m snapshot.Meta) error
	ReadMeta(runID string, index int) (snapshot.Meta, error)
	ReadBlock(runID string, index int, b *mesh.Block) error
}

// SampleStore records history points, boundary loads and residuals.
type SampleStore interface {
	AddHistory(rows ...snapshot.HistoryRow) error
	AddLoads(rows ...snapshot.LoadRow) error
	AddResiduals(row snapshot.ResidualRow) error
}

// Setup is everything a rank hands to its orchestrator. Only Gas, Comm and
// Blocks are required.
type Setup struct {
	Gas       gas.Model
	Comm      exchange.Communicator
	Exchange  *exchange.Protocol // nil when no boundary is connected
	Blocks    []*mesh.Block      // the blocks owned by this rank
	Solid     *solid.Adapter
	Sources   SourceTerms
	Chemistry Chemistry
	Snapshots SnapshotStore
	Samples   SampleStore
	Log       *telemetry.Logger
	Metrics   *telemetry.Metrics
	RunID     string
}

// overflowBase packs (count, block) into one value for a max reduction.
const overflowBase = 1 << 16

// Orchestrator advances the blocks of one rank. Every rank of a world runs
// its own orchestrator in lockstep; all decisions that end a step or a run
// are agreed by collective reductions.
type Orchestrator struct {
	Config  Config
	Setup   Setup
	Layout  state.Layout
	Tableau Tableau
	Ctx     *SimContext
	Phase   Phase
	Reason  Reason
	// Residuals holds the last reported max |dU/dt| per conserved slot.
	Residuals  []float64
	LastResult StepResult

	log          *telemetry.Logger
	dtc          DtController
	pm           *utils.PartitionMap
	buckets      []int
	calcs        []*flux.Calculator
	recons       []*flux.Reconstructor
	faceL, faceR []*state.FlowState
	invalid      []int
	bad          [][]*mesh.Cell
	halt         *HaltWatcher
	ch           float64
	nBlocks      int
	wallNC       int
	initialized  bool
}

func New(cfg Config, s Setup) (o *Orchestrator, err error) {
	switch {
	case s.Gas == nil || s.Comm == nil:
		return nil, fmt.Errorf("orchestrator needs a gas model and a communicator")
	case len(s.Blocks) == 0:
		return nil, fmt.Errorf("rank %d owns no blocks", s.Comm.Rank())
	}
	var (
		l   = s.Blocks[0].Layout
		tab = cfg.Scheme.Tableau()
	)
	if err = cfg.Validate(l); err != nil {
		return
	}
	if err = l.CheckGas(s.Gas); err != nil {
		return
	}
	for _, b := range s.Blocks {
		switch {
		case b.Layout.N != l.N:
			return nil, fmt.Errorf("block %d layout has %d slots, block %d has %d", b.ID, b.Layout.N,
				s.Blocks[0].ID, l.N)
		case b.NStages < tab.NStages():
			return nil, fmt.Errorf("block %d holds %d stages, %s needs %d", b.ID, b.NStages,
				cfg.Scheme.Print(), tab.NStages())
		case cfg.VertexVelocity != nil && b.Mover == nil:
			return nil, fmt.Errorf("block %d: %s grid cannot move", b.ID, b.Grid.Kind())
		}
	}
	if cfg.Coupling != solid.CouplingNone {
		if s.Comm.Size() > 1 {
			return nil, fmt.Errorf("%w: %s coupling on %d ranks", ErrUnsupportedCoupling, cfg.Coupling,
				s.Comm.Size())
		}
		if s.Solid == nil {
			return nil, fmt.Errorf("%s solid coupling needs a solid adapter", cfg.Coupling)
		}
	}
	if s.Solid != nil {
		s.Solid.Mode = cfg.Coupling
	}
	if cfg.Chemistry != ChemistryNone && s.Chemistry == nil {
		return nil, fmt.Errorf("%s chemistry splitting needs a chemistry update", cfg.Chemistry)
	}
	if s.RunID == "" {
		s.RunID = snapshot.NewRunID()
	}
	if s.Log == nil {
		s.Log = telemetry.Nop()
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = utils.DefaultParallelDegree()
	}
	o = &Orchestrator{
		Config:  cfg,
		Setup:   s,
		Layout:  l,
		Tableau: tab,
		Ctx:     NewSimContext(cfg.DtInit),
		log:     s.Log.NewComponentLogger("integrator").WithRank(s.Comm.Rank()).WithRunID(s.RunID),
		dtc:     DtController{Factor: cfg.DtIncrease, Max: cfg.DtMax},
		pm:      utils.NewPartitionMap(workers, len(s.Blocks)),
		invalid: make([]int, len(s.Blocks)),
		bad:     make([][]*mesh.Cell, len(s.Blocks)),
	}
	o.buckets = o.pm.NonEmptyBuckets()
	o.Ctx.NextSnapshot = cfg.SnapshotEvery
	o.Ctx.NextHistory = cfg.HistoryEvery
	o.Ctx.NextLoads = cfg.LoadsEvery
	for range s.Blocks {
		var (
			c *flux.Calculator
			r *flux.Reconstructor
		)
		if c, err = flux.NewCalculator(cfg.Flux, l, s.Gas); err != nil {
			return nil, err
		}
		if r, err = flux.NewReconstructor(l, s.Gas, cfg.Order, cfg.Limiter); err != nil {
			return nil, err
		}
		o.calcs = append(o.calcs, c)
		o.recons = append(o.recons, r)
		o.faceL = append(o.faceL, state.NewFlowState(l))
		o.faceR = append(o.faceR, state.NewFlowState(l))
	}
	return
}

func (o *Orchestrator) RunID() string { return o.Setup.RunID }

// Calculator returns the flux calculator of local block bi, for the wall
// actions of that block's boundaries.
func (o *Orchestrator) Calculator(bi int) *flux.Calculator { return o.calcs[bi] }

func (o *Orchestrator) moving() bool { return o.Config.VertexVelocity != nil }

// forEachBlock runs fn over the local blocks, one goroutine per worker
// bucket. Every block is processed by exactly one goroutine.
func (o *Orchestrator) forEachBlock(fn func(bi int, b *mesh.Block) error) error {
	if len(o.buckets) == 1 {
		for bi, b := range o.Setup.Blocks {
			if err := fn(bi, b); err != nil {
				return err
			}
		}
		return nil
	}
	var g errgroup.Group
	for _, bn := range o.buckets {
		lo, hi := o.pm.GetBucketRange(bn)
		g.Go(func() error {
			for bi := lo; bi < hi; bi++ {
				if err := fn(bi, o.Setup.Blocks[bi]); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// prepare copies the starting geometry to every grid level and exchanges the
// ghost geometry. It is collective.
func (o *Orchestrator) prepare() (err error) {
	for _, b := range o.Setup.Blocks {
		for k := 1; k <= b.NStages; k++ {
			b.CopyVolume(0, k)
		}
	}
	if ex := o.Setup.Exchange; ex != nil {
		if err = ex.ExchangeGeometry(); err != nil {
			o.Setup.Comm.Abort(err)
			return fmt.Errorf("geometry exchange: %w", err)
		}
	}
	if o.nBlocks, err = o.Setup.Comm.AllReduceSumInt(len(o.Setup.Blocks)); err != nil {
		return
	}
	o.initialized = true
	return
}

// Initialize encodes the flow states of every cell into level 0. It is
// collective and must follow the setting of the initial flow.
func (o *Orchestrator) Initialize() (err error) {
	if err = o.prepare(); err != nil {
		return
	}
	for _, b := range o.Setup.Blocks {
		for _, c := range b.Cells {
			state.Encode(o.Layout, c.FS, c.U[0])
		}
	}
	return
}

// Restart loads snapshot index of the run and resumes its clock and output
// watermarks. It is collective.
func (o *Orchestrator) Restart(index int) (err error) {
	if o.Setup.Snapshots == nil {
		return fmt.Errorf("restart needs a snapshot store")
	}
	if err = o.prepare(); err != nil {
		return
	}
	var (
		m      snapshot.Meta
		runID  = o.Setup.RunID
		failed bool
	)
	if m, err = o.Setup.Snapshots.ReadMeta(runID, index); err == nil {
		switch {
		case m.NConserved != o.Layout.N:
			err = fmt.Errorf("snapshot %d holds %d conserved quantities, layout has %d", index, m.NConserved,
				o.Layout.N)
		case m.NBlocks != o.nBlocks:
			err = fmt.Errorf("snapshot %d holds %d blocks, run has %d", index, m.NBlocks, o.nBlocks)
		}
	}
	for _, b := range o.Setup.Blocks {
		if err != nil {
			break
		}
		if err = o.Setup.Snapshots.ReadBlock(runID, index, b); err != nil {
			break
		}
		for _, c := range b.Cells {
			if err = state.Decode(o.Layout, b.Gas, c.U[0], c.FS); err != nil {
				err = fmt.Errorf("snapshot %d block %d cell %d: %w", index, b.ID, c.ID, err)
				break
			}
		}
	}
	if failed, err = o.agree(err); failed {
		return
	}
	sc := o.Ctx
	sc.Time, sc.Step, sc.Dt = m.Time, m.Step, m.Dt
	sc.NextSnapshot, sc.NextHistory, sc.NextLoads = m.NextSnapshot, m.NextHistory, m.NextLoads
	sc.SnapshotIndex, sc.SnapshotStep = index+1, m.Step
	o.log.Info().Int("index", index).Float64("time", m.Time).Int("step", m.Step).Msg("restarted")
	return
}

// agree combines a local error across ranks. failed is true on every rank
// when any rank failed; err is the local cause or a summary.
func (o *Orchestrator) agree(local error) (failed bool, err error) {
	if failed, err = o.Setup.Comm.AllReduceOr(local != nil); err != nil {
		return true, err
	}
	switch {
	case local != nil:
		err = local
	case failed:
		err = fmt.Errorf("failure on another rank")
	}
	return
}

// Run steps until a termination condition is agreed by every rank. It
// returns nil when the run finished, or the error that terminated it.
func (o *Orchestrator) Run(ctx context.Context) (err error) {
	if o.Phase == PhaseTerminated || o.Phase == PhaseFinished {
		return fmt.Errorf("orchestrator is %s", o.Phase)
	}
	if !o.initialized {
		if err = o.Initialize(); err != nil {
			return o.terminate(err)
		}
	}
	if o.Config.HaltFile != "" {
		if o.halt, err = NewHaltWatcher(o.Config.HaltFile); err != nil {
			return o.terminate(err)
		}
		go o.halt.Start(ctx)
		defer func() { _ = o.halt.Stop() }()
	}
	o.Phase = PhaseStepping
	o.log.Info().
		Str("scheme", o.Config.Scheme.Print()).
		Str("flux", o.Config.Flux.Type.Print()).
		Int("blocks", len(o.Setup.Blocks)).
		Int("ranks", o.Setup.Comm.Size()).
		Int("workers", len(o.buckets)).
		Float64("time", o.Ctx.Time).
		Msg("run started")
	if o.Ctx.Step == 0 && o.Ctx.SnapshotStep != 0 && o.Setup.Snapshots != nil {
		if err = o.writeSnapshot(); err != nil {
			return o.terminate(err)
		}
	}
	for {
		var reason Reason
		if reason, err = o.checkTermination(ctx); err != nil {
			return o.terminate(err)
		}
		if reason != ReasonNone {
			if err = o.writeOutputs(true); err != nil {
				return o.terminate(err)
			}
			o.Phase, o.Reason = PhaseFinished, reason
			o.log.Info().Str("reason", reason.String()).Int("step", o.Ctx.Step).Float64("time", o.Ctx.Time).
				Dur("elapsed", o.Ctx.Elapsed()).Msg("run finished")
			return
		}
		start := time.Now()
		res := o.Step()
		o.LastResult = res
		if !res.OK() {
			err = res.Error()
			o.log.Error().Err(err).Int("step", o.Ctx.Step+1).Float64("time", o.Ctx.Time).Msg("step failed")
			return o.terminate(err)
		}
		o.Setup.Metrics.StepDone(time.Since(start), o.Ctx.Time, o.Ctx.LastDt)
		if err = o.writeOutputs(false); err != nil {
			return o.terminate(err)
		}
	}
}

func (o *Orchestrator) terminate(err error) error {
	o.Phase, o.Reason = PhaseTerminated, ReasonError
	o.log.Error().Err(err).Int("step", o.Ctx.Step).Msg("run terminated")
	return err
}

// checkTermination agrees on the first reason to stop, in a fixed order of
// precedence, so every rank stops for the same reason.
func (o *Orchestrator) checkTermination(ctx context.Context) (reason Reason, err error) {
	var (
		sc    = o.Ctx
		cfg   = o.Config
		flags = []float64{
			flag(cfg.TargetTime > 0 && sc.Time >= cfg.TargetTime*(1-1e-12)),
			flag(cfg.MaxSteps > 0 && sc.Step >= cfg.MaxSteps),
			flag(o.halt.Raised()),
			flag(cfg.WallClock > 0 && sc.Elapsed() >= cfg.WallClock),
			flag(ctx.Err() != nil),
		}
		reasons = []Reason{ReasonTargetTime, ReasonMaxSteps, ReasonHalt, ReasonWallClock, ReasonCancelled}
	)
	if err = o.Setup.Comm.AllReduceMaxVec(flags); err != nil {
		return
	}
	for i, f := range flags {
		if f > 0 {
			return reasons[i], nil
		}
	}
	return
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// abortComm handles a failed exchange or collective: the world is aborted so
// that no rank waits on this one.
func (o *Orchestrator) abortComm(stage int, err error) StepResult {
	if !errors.Is(err, exchange.ErrAborted) {
		o.Setup.Comm.Abort(err)
	}
	return StepResult{Status: StepAborted, Stage: stage, Err: fmt.Errorf("stage %d: %w", stage, err)}
}

// updateDt re-evaluates the global step and the cleaning speed. It is
// collective.
func (o *Orchestrator) updateDt() (err error) {
	var (
		cfg      = o.Config
		l        = o.Layout
		check    = cfg.CFLCheckEvery > 0 && o.Ctx.Step%cfg.CFLCheckEvery == 0
		cleaning = l.DivergenceCleaning()
	)
	if !check && !cleaning {
		return
	}
	var (
		allowed  = math.Inf(1)
		maxSpeed float64
	)
	for _, b := range o.Setup.Blocks {
		dt, speed := AllowableDt(b, cfg.CFL, cfg.Viscous)
		allowed = math.Min(allowed, dt)
		maxSpeed = math.Max(maxSpeed, speed)
	}
	if check {
		if allowed, err = o.Setup.Comm.AllReduceMin(allowed); err != nil {
			return
		}
		o.Ctx.Dt = o.dtc.Next(o.Ctx.Dt, allowed)
	}
	if cleaning {
		if o.ch, err = o.Setup.Comm.AllReduceMax(maxSpeed); err != nil {
			return
		}
		for _, c := range o.calcs {
			c.SetStepScalars(o.ch)
		}
	}
	return
}

// reduceStatus agrees on the outcome of a stage from the invalid cell counts
// and the local error of every rank.
func (o *Orchestrator) reduceStatus(stage int, local error) (res StepResult) {
	var worst float64
	for bi, n := range o.invalid {
		if n > o.Config.MaxInvalidCells {
			worst = math.Max(worst, float64(n)*overflowBase+float64(o.Setup.Blocks[bi].ID))
		}
	}
	vec := []float64{worst, 0}
	if local != nil {
		vec[1] = 1
	}
	if err := o.Setup.Comm.AllReduceMaxVec(vec); err != nil {
		return o.abortComm(stage, err)
	}
	res.Stage = stage
	switch {
	case vec[0] > 0:
		code := int(vec[0])
		res.Status = StepInvalidCellOverflow
		res.Count, res.BlockID = code/overflowBase, code%overflowBase
	case vec[1] > 0:
		res.Status = StepAborted
		res.Err = local
		if local == nil {
			res.Err = fmt.Errorf("step aborted at stage %d by a failure on another rank", stage)
		}
	}
	return
}

// Step advances every block by one step of the scheme. It is collective and
// returns the same status on every rank.
func (o *Orchestrator) Step() (res StepResult) {
	if o.Phase == PhaseTerminated {
		return StepResult{Status: StepAborted, Err: fmt.Errorf("orchestrator is %s", o.Phase)}
	}
	var (
		sc    = o.Ctx
		cfg   = o.Config
		tab   = o.Tableau
		N     = tab.NStages()
		t0    = sc.Time
		local error
		err   error
	)
	if err = o.updateDt(); err != nil {
		return o.abortComm(0, err)
	}
	dt := sc.Dt
	if cfg.TargetTime > 0 {
		dt = math.Min(dt, cfg.TargetTime-t0)
	}
	if cfg.Chemistry == ChemistryStrang {
		local = o.forEachBlock(func(bi int, b *mesh.Block) error {
			return chemistryStep(b, o.Setup.Chemistry, 0.5*dt)
		})
	}
	if o.moving() && local == nil {
		// the first stage sees the face velocities of the predicted motion
		local = o.forEachBlock(func(bi int, b *mesh.Block) error {
			b.Mover.PredictVertexPositions(cfg.VertexVelocity, t0, dt)
			return b.ComputeGeometry(0)
		})
	}
	for s := 0; s < N; s++ {
		if res = o.stage(s, t0, dt, local); !res.OK() {
			return
		}
		local = nil
	}
	for _, b := range o.Setup.Blocks {
		for _, c := range b.Cells {
			c.U[0].CopyValues(c.U[N])
		}
		if o.moving() {
			b.Mover.CommitStep()
			b.CopyVolume(N, 0)
		}
	}
	if ad := o.Setup.Solid; ad != nil {
		ad.Swap(N)
		if err = ad.FullStep(t0, dt); err != nil {
			local = err
		}
	}
	switch cfg.Chemistry {
	case ChemistryStrang:
		local = o.chemistry(local, 0.5*dt)
	case ChemistryFull:
		local = o.chemistry(local, dt)
	}
	if local != nil || cfg.Chemistry != ChemistryNone {
		for i := range o.invalid {
			o.invalid[i] = 0
		}
		if res = o.reduceStatus(N-1, local); !res.OK() {
			return
		}
	}
	for _, c := range o.calcs {
		o.wallNC += c.WallNonConverged
		o.Setup.Metrics.WallNonConverged(c.WallNonConverged)
		c.WallNonConverged = 0
	}
	sc.Time = t0 + dt
	sc.Step++
	sc.LastDt = dt
	return
}

func (o *Orchestrator) chemistry(local error, dt float64) error {
	if local != nil {
		return local
	}
	return o.forEachBlock(func(bi int, b *mesh.Block) error {
		return chemistryStep(b, o.Setup.Chemistry, dt)
	})
}

// stage runs stage s of the step starting at t0. Exchanges and reductions are
// always performed so that ranks stay in lockstep; the compute phases are
// skipped once a local error has occurred.
func (o *Orchestrator) stage(s int, t0, dt float64, local error) (res StepResult) {
	var (
		cfg    = o.Config
		tab    = o.Tableau
		ts     = t0 + tab.C[s]*dt
		gtl    int
		ex     = o.Setup.Exchange
		err    error
		run    = func(fn func(bi int, b *mesh.Block) error) {
			if local == nil {
				local = o.forEachBlock(fn)
			}
		}
	)
	if o.moving() {
		gtl = s
	}
	for i := range o.invalid {
		o.invalid[i] = 0
	}
	if ex != nil {
		if err = ex.ExchangeFlow(); err != nil {
			return o.abortComm(s, err)
		}
	}
	run(func(bi int, b *mesh.Block) error { return o.convective(bi, b, ts, s) })
	if cfg.Viscous {
		run(func(bi int, b *mesh.Block) (err error) {
			for _, bnd := range b.Boundaries {
				if err = bnd.PreSpatialDerivative.Apply(ts, s); err != nil {
					return fmt.Errorf("block %d %s: %w", b.ID, bnd, err)
				}
			}
			ComputeGradients(b, gtl)
			return
		})
		if ex != nil {
			if err = ex.ExchangeGradients(); err != nil {
				return o.abortComm(s, err)
			}
		}
		run(func(bi int, b *mesh.Block) (err error) {
			for _, bnd := range b.Boundaries {
				if bnd.Kind == types.BC_Exchange {
					continue
				}
				if err = (&bc.CopyGradients{Boundary: bnd}).Apply(ts, s); err != nil {
					return
				}
			}
			ViscousFluxes(b)
			for _, bnd := range b.Boundaries {
				if err = bnd.PostDiffusiveFlux.Apply(ts, s); err != nil {
					return fmt.Errorf("block %d %s: %w", b.ID, bnd, err)
				}
			}
			return
		})
	}
	run(func(bi int, b *mesh.Block) (err error) {
		for _, c := range b.Cells {
			if err = addSources(c, o.Layout, cfg.Flux.OmegaZ, o.ch, cfg.CleaningCR, o.Setup.Sources, ts); err != nil {
				return fmt.Errorf("block %d cell %d sources: %w", b.ID, c.ID, err)
			}
			c.TimeDerivative(s, gtl)
		}
		return
	})
	if o.moving() {
		run(func(bi int, b *mesh.Block) error {
			b.Mover.MoveToLevel(tab.Tau(s + 1))
			return b.ComputeGeometry(s + 1)
		})
		if ex != nil {
			if err = ex.ExchangeGeometry(); err != nil {
				return o.abortComm(s, err)
			}
		}
	}
	run(func(bi int, b *mesh.Block) error { return o.update(bi, b, s, dt) })
	if local == nil && o.Setup.Solid != nil {
		o.Setup.Solid.SubStep(ts, dt, s, tab.A[s], tab.B[s])
	}
	var repaired int
	for _, n := range o.invalid {
		if n <= cfg.MaxInvalidCells {
			repaired += n
		}
	}
	o.Setup.Metrics.InvalidCells(repaired)
	return o.reduceStatus(s, local)
}

// convective fills the ghost cells and computes the convective flux of every
// face of b.
func (o *Orchestrator) convective(bi int, b *mesh.Block, t float64, stage int) (err error) {
	var (
		calc  = o.calcs[bi]
		recon = o.recons[bi]
		L, R  = o.faceL[bi], o.faceR[bi]
	)
	for _, bnd := range b.Boundaries {
		for _, f := range bnd.Faces {
			f.FaceState, f.HeatFlux = false, 0
		}
	}
	for _, bnd := range b.Boundaries {
		if err = bnd.PreReconstruction.Apply(t, stage); err != nil {
			return fmt.Errorf("block %d %s: %w", b.ID, bnd, err)
		}
	}
	if stage == 0 && calc.IsAdaptive() {
		DetectShocks(b, o.Config.ShockThreshold, o.Config.ShockSmoothing)
	}
	for _, f := range b.Faces {
		f.F.Clear()
		recon.Interpolate(f, L, R)
		calc.Compute(L, R, f)
	}
	for _, bnd := range b.Boundaries {
		if err = bnd.PostConvectiveFlux.Apply(t, stage); err != nil {
			return fmt.Errorf("block %d %s: %w", b.ID, bnd, err)
		}
	}
	return
}

// update applies row stage of the tableau to every cell of b, decodes the new
// level and repairs invalid cells when there are few enough of them. With a
// moving grid the update is applied to the volume weighted state.
func (o *Orchestrator) update(bi int, b *mesh.Block, stage int, dt float64) (err error) {
	var (
		l    = o.Layout
		a    = o.Tableau.A[stage]
		w    = o.Tableau.B[stage]
		next = stage + 1
		vol  = o.moving()
		bad  = o.bad[bi][:0]
	)
	for _, c := range b.Cells {
		u := c.U[next]
		for i := range u {
			var v float64
			for j, aj := range a {
				if aj == 0 {
					continue
				}
				if vol {
					v += aj * c.U[j][i] * c.Volume[j]
				} else {
					v += aj * c.U[j][i]
				}
			}
			for j, wj := range w {
				if wj == 0 {
					continue
				}
				if vol {
					v += dt * wj * c.DUDt[j][i] * c.Volume[j]
				} else {
					v += dt * wj * c.DUDt[j][i]
				}
			}
			if vol {
				v /= c.Volume[next]
			}
			u[i] = v
		}
		if derr := state.Decode(l, b.Gas, u, c.FS); derr != nil {
			if !state.IsNonPhysical(derr) {
				return fmt.Errorf("block %d cell %d: %w", b.ID, c.ID, derr)
			}
			bad = append(bad, c)
		}
	}
	o.bad[bi] = bad
	o.invalid[bi] = len(bad)
	if n := len(bad); n > 0 && n <= o.Config.MaxInvalidCells {
		err = repairCells(b, bad, next)
	}
	return
}
