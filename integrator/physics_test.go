package integrator

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gofv/exchange"
	"github.com/notargets/gofv/gas"
	"github.com/notargets/gofv/geometry"
	"github.com/notargets/gofv/mesh"
	"github.com/notargets/gofv/state"
)

const (
	modeCv  = 300.
	modeTau = 1e-4
)

// newModeCase is nitrogen at rest with its vibrational mode out of
// equilibrium, 300 K translational and 1000 K vibrational.
func newModeCase(t *testing.T, ni int) (tc *testCase, relax *gas.Relaxation) {
	l, err := state.NewLayout(1, 1, 0, false, false)
	require.NoError(t, err)
	ig, err := gas.NewIdealGas([]gas.Species{{Name: "N2", R: 296.8, Gamma: 1.4}},
		[]gas.Mode{{Name: "vib", Cv: modeCv}}, gas.Sutherland{Mu0: 1.7e-5}, 0.72)
	require.NoError(t, err)
	relax, err = gas.NewRelaxation(ig, []float64{modeTau})
	require.NoError(t, err)
	tc = &testCase{layout: l, gas: ig}
	tc.block, err = mesh.NewStructuredBlock(0, ni, 1, 1,
		mesh.CartesianVertices(geometry.Vector3{}, geometry.Vector3{1. / float64(ni), 0.1, 0.1}, 0, ni, 1, 1),
		l, ig, 2)
	require.NoError(t, err)
	for _, c := range tc.block.Cells {
		c.FS.Rho, c.FS.T, c.FS.TModes[0] = 1.2, 300, 1000
		require.NoError(t, ig.UpdateThermoFromRhoT(&c.FS.GasState))
		ig.UpdateTransCoeffs(&c.FS.GasState)
	}
	tc.world, err = exchange.NewLocalWorld(1)
	require.NoError(t, err)
	return
}

func TestChemistrySplitting(t *testing.T) {
	var (
		cv = 296.8 / 0.4
		k  = (1 + modeCv/cv) / modeTau
	)
	for _, split := range []ChemistrySplit{ChemistryStrang, ChemistryFull} {
		tc, relax := newModeCase(t, 6)
		cfg := testConfig()
		cfg.Chemistry = split
		cfg.CFLCheckEvery = 0
		cfg.DtInit = 1e-5
		cfg.MaxSteps = 10
		o := tc.orchestrator(t, cfg, Setup{Chemistry: ModeRelaxation{relax}})
		require.NoError(t, o.Initialize())
		E0 := tc.block.Cells[0].U[0][tc.layout.TotEnergy]
		require.NoError(t, o.Run(context.Background()))
		require.Equal(t, 10, o.Ctx.Step)
		// at rest the flow leaves the cells alone, so the split steps compose
		// to the exact relaxation over the whole run
		want := -700 * math.Exp(-k*o.Ctx.Time)
		for _, c := range tc.block.Cells {
			assert.InDelta(t, want, c.FS.T-c.FS.TModes[0], 1e-6, split.String())
			assert.InEpsilon(t, E0, c.U[0][tc.layout.TotEnergy], 1e-12, split.String())
			assert.InEpsilon(t, 1.2*modeCv*c.FS.TModes[0], c.U[0][tc.layout.Modes], 1e-12, split.String())
		}
	}
}

func TestChemistryNeedsUpdate(t *testing.T) {
	tc, _ := newModeCase(t, 4)
	cfg := testConfig()
	cfg.Chemistry = ChemistryStrang
	_, err := New(cfg, Setup{Gas: tc.gas, Comm: tc.world.Comm(0), Blocks: []*mesh.Block{tc.block}})
	assert.Error(t, err)
	got, err := ParseChemistrySplit("Strang")
	require.NoError(t, err)
	assert.Equal(t, ChemistryStrang, got)
	_, err = ParseChemistrySplit("implicit")
	assert.Error(t, err)
}

func TestNewRejectsGasMismatch(t *testing.T) {
	tc, _ := newModeCase(t, 4)
	// air has no vibrational mode for the layout's mode slot
	_, err := New(testConfig(), Setup{Gas: gas.NewIdealAir(), Comm: tc.world.Comm(0),
		Blocks: []*mesh.Block{tc.block}})
	assert.ErrorIs(t, err, state.ErrGasMismatch)
}

func TestMovingGridFreeStream(t *testing.T) {
	for _, order := range []int{1, 2} {
		tc := newTestCase(t, 0, 6, 2)
		cfg := testConfig()
		cfg.Scheme = SCHEME_PredictorCorrector
		cfg.Order = order
		cfg.MaxSteps = 8
		cfg.VertexVelocity = func(p geometry.Vector3, _ float64) geometry.Vector3 {
			return geometry.Vector3{20 + 5*p[0], 0, 0}
		}
		o := tc.orchestrator(t, cfg, Setup{})
		require.NoError(t, o.Initialize())
		var (
			last = tc.block.Cells[5]
			x0   = last.Pos[0]
			v0   = last.Volume[0]
			U0   = append(state.ConservedQuantities(nil), last.U[0]...)
		)
		require.NoError(t, o.Run(context.Background()))
		assert.Equal(t, 8, o.Ctx.Step)
		assert.Greater(t, last.Pos[0], x0)
		assert.Greater(t, last.Volume[0], v0)
		for _, c := range tc.block.Cells {
			for i := range U0 {
				assert.InDelta(t, U0[i], c.U[0][i], 1e-9*math.Max(1, math.Abs(U0[i])), "order %d slot %s",
					order, tc.layout.SlotName(i))
			}
			assert.InDelta(t, 1e5, c.FS.P, 1e-4)
		}
	}
}
