package model_problems

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/notargets/gofv/flux"
	"github.com/notargets/gofv/gas"
	"github.com/notargets/gofv/geometry"
	"github.com/notargets/gofv/integrator"
	"github.com/notargets/gofv/mesh"
	"github.com/notargets/gofv/readfiles"
	"github.com/notargets/gofv/snapshot"
	"github.com/notargets/gofv/sod_shock_tube"
	"github.com/notargets/gofv/solid"
	"github.com/notargets/gofv/state"
	"github.com/notargets/gofv/types"
)

func testConfig() integrator.Config {
	cfg := integrator.DefaultConfig()
	cfg.DtMax = 1
	cfg.Workers = 2
	return cfg
}

func cellValues(blocks []*mesh.Block, fn func(c *mesh.Cell) float64) (x, v []float64) {
	for _, b := range blocks {
		for _, c := range b.Cells {
			x = append(x, c.Pos[0])
			v = append(v, fn(c))
		}
	}
	return
}

func rho(c *mesh.Cell) float64 { return c.FS.Rho }

func TestSodShockTube(t *testing.T) {
	var (
		n      = 200
		target = 0.2
		rs     = sod_shock_tube.Sod()
	)
	for _, ft := range []flux.FluxType{flux.FLUX_AUSMDV, flux.FLUX_HLLC} {
		c, err := SodShockTube(n, 1)
		require.NoError(t, err)
		cfg := testConfig()
		cfg.Flux = flux.DefaultConfig(ft)
		cfg.TargetTime = target
		res, err := Run(context.Background(), c, DefaultRunOptions(cfg))
		require.NoError(t, err)
		o := res.Orchestrators[0]
		assert.Equal(t, integrator.ReasonTargetTime, o.Reason, ft.Print())
		assert.InDelta(t, target, o.Ctx.Time, 1e-12)

		X, Rho := cellValues(res.Blocks, rho)
		exact := make([]float64, len(X))
		for i, s := range rs.Profile(X, 0.5, target) {
			exact[i] = s.Rho
		}
		l1 := floats.Distance(Rho, exact, 1) / float64(n)
		assert.Less(t, l1, 0.01, ft.Print())

		// the shock is the last drop in density
		var xs float64
		for i := range X {
			if Rho[i] > 0.5*(0.26557+0.125) {
				xs = X[i]
			}
		}
		assert.InDelta(t, 0.5+target*rs.Waves().RightHead, xs, 0.02, ft.Print())
		// pressure plateau between the contact and the shock
		_, P := cellValues(res.Blocks, func(c *mesh.Cell) float64 { return c.FS.P })
		assert.InDelta(t, rs.PStar, P[int(0.77*float64(n))], 0.01, ft.Print())
	}
}

func TestFreeStreamEveryFlux(t *testing.T) {
	vel := geometry.Vector3{40, 0, 0}
	for name, ft := range flux.FluxNames {
		if ft == flux.FLUX_HLLEMHD {
			continue
		}
		c, err := UniformFlow(12, 2, vel)
		require.NoError(t, err)
		ref, err := c.BuildBlock(0, 1)
		require.NoError(t, err)
		cfg := testConfig()
		cfg.Flux = flux.DefaultConfig(ft)
		cfg.MaxSteps = 3
		res, err := Run(context.Background(), c, DefaultRunOptions(cfg))
		require.NoError(t, err, name)
		for _, b := range res.Blocks {
			for _, cell := range b.Cells {
				assert.InDelta(t, ref.Cells[0].FS.Rho, cell.FS.Rho, 1e-12, name)
				assert.InDelta(t, ref.Cells[0].FS.P, cell.FS.P, 1e-6, name)
				assert.InDelta(t, 0, cell.FS.Vel.Sub(vel).Norm(), 1e-9, name)
			}
		}
	}
}

const channelSU2 = `NDIME= 2
NELEM= 3
9 0 1 4 3 0
5 1 2 5 1
5 1 5 4 2
NPOIN= 6
0 0 0
1 0 1
2 0 2
0 1 3
1 1 4
2 1 5
NMARK= 3
MARKER_TAG= inlet
MARKER_ELEMS= 1
3 3 0
MARKER_TAG= outlet
MARKER_ELEMS= 1
3 2 5
MARKER_TAG= walls
MARKER_ELEMS= 4
3 0 1
3 1 2
3 5 4
3 4 3
`

func TestMeshFlowFreeStream(t *testing.T) {
	g, err := readfiles.ReadSU2(strings.NewReader(channelSU2))
	require.NoError(t, err)
	vel := geometry.Vector3{30, 0, 0}
	c, err := MeshFlow(g, 0.5, map[string]types.BCKind{"inlet": types.BC_Inflow, "outlet": types.BC_Outflow}, vel)
	require.NoError(t, err)
	cfg := testConfig()
	cfg.MaxSteps = 5
	res, err := Run(context.Background(), c, DefaultRunOptions(cfg))
	require.NoError(t, err)
	require.Len(t, res.Blocks[0].Cells, 3)
	assert.Equal(t, "outlet", res.Blocks[0].Boundaries[1].Name)
	for _, cell := range res.Blocks[0].Cells {
		assert.InDelta(t, 1.2, cell.FS.Rho, 1e-12)
		assert.InDelta(t, 1e5, cell.FS.P, 1e-6)
		assert.InDelta(t, 0, cell.FS.Vel.Sub(vel).Norm(), 1e-9)
	}

	_, err = MeshFlow(g, 0.5, map[string]types.BCKind{"exit": types.BC_Outflow}, vel)
	assert.Error(t, err)
	_, err = MeshFlow(g, 0.5, map[string]types.BCKind{"walls": types.BC_SolidCoupledWall}, vel)
	assert.Error(t, err)
}

func TestSplitMatchesSingleBlock(t *testing.T) {
	var (
		n   = 120
		cfg = testConfig()
	)
	cfg.MaxSteps = 30
	single, err := SodShockTube(n, 1)
	require.NoError(t, err)
	want, err := Run(context.Background(), single, DefaultRunOptions(cfg))
	require.NoError(t, err)
	_, wantRho := cellValues(want.Blocks, rho)

	for _, tc := range []struct {
		ranks    int
		fullFace bool
	}{{1, false}, {1, true}, {2, false}, {4, false}} {
		split, err := SodShockTube(n, 4)
		require.NoError(t, err)
		opts := DefaultRunOptions(cfg)
		opts.Ranks, opts.ForceFullFace = tc.ranks, tc.fullFace
		got, err := Run(context.Background(), split, opts)
		require.NoError(t, err)
		_, gotRho := cellValues(got.Blocks, rho)
		require.Len(t, gotRho, n)
		for i := range wantRho {
			assert.InDelta(t, wantRho[i], gotRho[i], 1e-12, "ranks %d cell %d", tc.ranks, i)
		}
		for _, o := range got.Orchestrators {
			assert.Equal(t, want.Orchestrators[0].Ctx.Time, o.Ctx.Time)
			assert.Equal(t, 30, o.Ctx.Step)
		}
	}
}

func TestInvalidCellOverflowStopsEveryRank(t *testing.T) {
	for _, ranks := range []int{1, 2} {
		c, drain, err := FailingFlow(20, 2, 0.6, 0.9)
		require.NoError(t, err)
		store, err := snapshot.Open(snapshot.Config{InMemory: true})
		require.NoError(t, err)
		cfg := testConfig()
		cfg.MaxSteps = 10
		cfg.CFLCheckEvery = 0
		cfg.DtInit = 1e-5
		cfg.MaxInvalidCells = 2
		opts := DefaultRunOptions(cfg)
		opts.Ranks, opts.Sources, opts.Snapshots = ranks, drain, store

		res, err := Run(context.Background(), c, opts)
		require.Error(t, err)
		assert.ErrorIs(t, err, integrator.ErrInvalidCellOverflow)
		for _, o := range res.Orchestrators {
			assert.Equal(t, integrator.PhaseTerminated, o.Phase)
			assert.Equal(t, integrator.StepInvalidCellOverflow, o.LastResult.Status)
			assert.Equal(t, 6, o.LastResult.Count)
			assert.Equal(t, 1, o.LastResult.BlockID)
			assert.Equal(t, 0, o.Ctx.Step)
		}
		last, err := store.Latest(res.RunID)
		require.NoError(t, err)
		assert.Equal(t, 0, last)
		require.NoError(t, store.Close())
	}
}

func TestRestartContinuesRun(t *testing.T) {
	store, err := snapshot.Open(snapshot.Config{InMemory: true})
	require.NoError(t, err)
	defer store.Close()
	samples, err := snapshot.OpenSampleStore(":memory:")
	require.NoError(t, err)
	defer samples.Close()

	cfg := testConfig()
	cfg.MaxSteps = 20
	cfg.HistoryPoints = []integrator.HistoryPoint{{Block: 1, Cell: 3}}
	cfg.HistoryEvery = 1e-12
	cfg.ReportEvery = 5
	c, err := SodShockTube(40, 2)
	require.NoError(t, err)
	opts := DefaultRunOptions(cfg)
	opts.Ranks, opts.Snapshots, opts.Samples = 2, store, samples
	straight, err := Run(context.Background(), c, opts)
	require.NoError(t, err)
	_, wantRho := cellValues(straight.Blocks, rho)

	n, err := samples.Count("history", straight.RunID)
	require.NoError(t, err)
	assert.Equal(t, 20, n)
	n, err = samples.Steps("residuals", straight.RunID)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	n, err = samples.Count("residuals", straight.RunID)
	require.NoError(t, err)
	assert.Equal(t, 4*c.Layout.N, n)

	// stop at step 12, then resume to 20 from the snapshot
	cfg.MaxSteps = 12
	opts = DefaultRunOptions(cfg)
	opts.Ranks, opts.Snapshots = 2, store
	first, err := Run(context.Background(), c, opts)
	require.NoError(t, err)
	last, err := store.Latest(first.RunID)
	require.NoError(t, err)

	cfg.MaxSteps = 20
	opts = DefaultRunOptions(cfg)
	opts.Ranks, opts.Snapshots, opts.RunID, opts.Restart = 2, store, first.RunID, last
	resumed, err := Run(context.Background(), c, opts)
	require.NoError(t, err)
	assert.Equal(t, 20, resumed.Orchestrators[0].Ctx.Step)
	_, gotRho := cellValues(resumed.Blocks, rho)
	for i := range wantRho {
		assert.InDelta(t, wantRho[i], gotRho[i], 1e-12)
	}
}

func TestHeatedChannel(t *testing.T) {
	slab := solid.Config{
		Material:  solid.Material{Rho: 2700, Cp: 900, K: 200},
		Thickness: 0.002,
		NLayers:   4,
		TInit:     300,
		TBack:     300,
	}
	for _, mode := range []solid.Coupling{solid.CouplingTight, solid.CouplingLoose} {
		c, err := HeatedChannel(10, 1, 400, slab)
		require.NoError(t, err)
		cfg := testConfig()
		cfg.Viscous = true
		cfg.Coupling = mode
		cfg.MaxSteps = 20
		res, err := Run(context.Background(), c, DefaultRunOptions(cfg))
		require.NoError(t, err, mode.String())
		require.Len(t, res.Slabs, 1)

		ref, err := solid.NewSlab(slab, 10, 2)
		require.NoError(t, err)
		assert.Greater(t, res.Slabs[0].Energy(), ref.Energy(), mode.String())
		for _, cell := range res.Blocks[0].Cells {
			assert.Less(t, cell.FS.T, 400., mode.String())
			assert.Greater(t, cell.FS.T, 300., mode.String())
		}
		rows := res.Orchestrators[0].Loads()
		var heat float64
		for _, r := range rows {
			if r.Boundary == "north" {
				heat = r.Heat
			}
		}
		assert.Greater(t, heat, 0., mode.String())
	}

	// coupling a solid is only supported on one rank
	c, err := HeatedChannel(10, 2, 400, slab)
	require.NoError(t, err)
	cfg := testConfig()
	cfg.Viscous = true
	cfg.Coupling = solid.CouplingLoose
	cfg.MaxSteps = 1
	opts := DefaultRunOptions(cfg)
	opts.Ranks = 2
	_, err = Run(context.Background(), c, opts)
	assert.ErrorIs(t, err, integrator.ErrUnsupportedCoupling)
}

func TestCaseErrors(t *testing.T) {
	_, err := SodShockTube(10, 3)
	assert.Error(t, err)
	_, err = SodShockTube(2, 3)
	assert.Error(t, err)
	c, err := SodShockTube(10, 2)
	require.NoError(t, err)
	_, err = c.BuildBlock(2, 1)
	assert.Error(t, err)
	_, err = Run(context.Background(), c, RunOptions{Config: testConfig(), Ranks: 3})
	assert.Error(t, err)
	assert.Len(t, c.Links, 2)
}

func TestSetPhysics(t *testing.T) {
	mix, err := gas.NewIdealGas([]gas.Species{{Name: "N2", R: 296.8, Gamma: 1.4}, {Name: "He", R: 2077.1, Gamma: 5. / 3.}},
		[]gas.Mode{{Name: "vib", Cv: 300}}, gas.Sutherland{Mu0: 1.7e-5}, 0.72)
	require.NoError(t, err)
	c, err := UniformFlow(4, 1, geometry.Vector3{})
	require.NoError(t, err)
	require.NoError(t, c.SetPhysics(Physics{Gas: mix, MassF: []float64{0.5, 0.5}, NTurb: 1}))
	assert.Equal(t, 5+2+1+1, c.Layout.N)
	b, err := c.BuildBlock(0, 1)
	require.NoError(t, err)
	fs := b.Cells[1].FS
	// modes start in equilibrium when no temperature is given
	assert.InDelta(t, fs.T, fs.TModes[0], 1e-9)
	assert.Equal(t, []float64{0.5, 0.5}, fs.MassF)
	assert.Equal(t, []float64{0}, fs.Turb)

	for name, p := range map[string]Physics{
		"fractions": {Gas: mix, MassF: []float64{1}},
		"sum":       {Gas: mix, MassF: []float64{0.5, 0.4}},
		"negative":  {Gas: mix, MassF: []float64{1.5, -0.5}},
		"modes":     {Gas: mix, TModes: []float64{0}},
		"count":     {Gas: mix, TModes: []float64{300, 300}},
		"turb":      {NTurb: 1, Turb: []float64{1, 2}},
		"cleaning":  {Cleaning: true},
	} {
		c, err := UniformFlow(4, 1, geometry.Vector3{})
		require.NoError(t, err)
		assert.Error(t, c.SetPhysics(p), name)
	}

	c, err = UniformFlow(4, 1, geometry.Vector3{})
	require.NoError(t, err)
	c.Gas = mix
	_, err = c.BuildBlock(0, 1)
	assert.ErrorIs(t, err, state.ErrGasMismatch)
}

func TestMovingGridSplitFreeStream(t *testing.T) {
	vel := geometry.Vector3{40, 0, 0}
	c, err := UniformFlow(12, 3, vel)
	require.NoError(t, err)
	cfg := testConfig()
	cfg.Scheme = integrator.SCHEME_PredictorCorrector
	cfg.MaxSteps = 6
	cfg.VertexVelocity = func(p geometry.Vector3, _ float64) geometry.Vector3 {
		return geometry.Vector3{8 * (p[0] - 0.5), 0, 0}
	}
	opts := DefaultRunOptions(cfg)
	opts.Ranks = 3
	res, err := Run(context.Background(), c, opts)
	require.NoError(t, err)
	x, _ := cellValues(res.Blocks, rho)
	// the west end moves left, the east end right
	assert.Less(t, x[0], 1./24)
	assert.Greater(t, x[len(x)-1], 1-1./24)
	for _, b := range res.Blocks {
		for _, cell := range b.Cells {
			assert.InDelta(t, 1.2, cell.FS.Rho, 1e-10)
			assert.InDelta(t, 1e5, cell.FS.P, 1e-4)
			assert.InDelta(t, 0, cell.FS.Vel.Sub(vel).Norm(), 1e-7)
		}
	}
}

func TestSodConvergence(t *testing.T) {
	pts, err := SodConvergence(context.Background(), testConfig(), []int{50, 100, 200}, 0.1)
	require.NoError(t, err)
	require.Len(t, pts, 3)
	assert.Equal(t, 0., pts[0].Order)
	for i := 1; i < len(pts); i++ {
		assert.Less(t, pts[i].L1, pts[i-1].L1)
		assert.Greater(t, pts[i].Order, 0.4)
		assert.Greater(t, pts[i].LInf, pts[i].L1)
	}
}
