package solid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		Material:  Material{Rho: 8000, Cp: 500, K: 16},
		Thickness: 0.01,
		NLayers:   5,
		TInit:     300,
		TBack:     300,
	}
}

func TestNewSlab(t *testing.T) {
	_, err := NewSlab(testConfig(), 0, 1)
	assert.Error(t, err)
	cfg := testConfig()
	cfg.K = 0
	_, err = NewSlab(cfg, 1, 1)
	assert.Error(t, err)
	s, err := NewSlab(testConfig(), 3, 2)
	require.NoError(t, err)
	assert.Len(t, s.T, 3)
	assert.Equal(t, 300., s.SurfaceTemperature(2))
}

func TestAdiabaticSlabStoresHeat(t *testing.T) {
	var (
		q  = 2e4
		dt = 0.01
	)
	cfg := testConfig()
	cfg.BackAdiabatic = true
	for _, mode := range []Coupling{CouplingTight, CouplingLoose} {
		s, err := NewSlab(cfg, 2, 1)
		require.NoError(t, err)
		ad := NewAdapter(mode, s)
		e0 := s.Energy()
		for col := 0; col < s.NColumns; col++ {
			s.SetGasHeatFlux(col, q)
		}
		for step := 0; step < 10; step++ {
			ad.SubStep(0, dt, 0, []float64{1}, []float64{1})
			ad.Swap(1)
			require.NoError(t, ad.FullStep(0, dt))
		}
		assert.InEpsilon(t, 2*q*10*dt, s.Energy()-e0, 1e-9, mode.String())
		assert.Greater(t, s.SurfaceTemperature(0), s.column(0, 0)[4], mode.String())
	}
}

func TestSteadyProfile(t *testing.T) {
	var (
		q   = 1e4
		cfg = testConfig()
	)
	s, err := NewSlab(cfg, 1, 1)
	require.NoError(t, err)
	s.SetGasHeatFlux(0, q)
	// large implicit steps reach the steady linear profile
	for i := 0; i < 50; i++ {
		require.NoError(t, s.FullStep(1e3))
	}
	assert.InDelta(t, cfg.TBack+q*cfg.Thickness/cfg.K, s.SurfaceTemperature(0), 1e-6)
	assert.Error(t, s.FullStep(0))
}

func TestTightMatchesTableau(t *testing.T) {
	// two stage predictor corrector: U1 = U0 + dt R0, U2 = U0 + dt/2 (R0 + R1)
	cfg := testConfig()
	s, err := NewSlab(cfg, 1, 2)
	require.NoError(t, err)
	s.SetGasHeatFlux(0, 5e4)
	ad := NewAdapter(CouplingTight, s)
	dt := 0.05
	ad.SubStep(0, dt, 0, []float64{1}, []float64{1})
	assert.Equal(t, 1, s.level)
	ad.SubStep(0, dt, 1, []float64{1, 0}, []float64{0.5, 0.5})
	for i := range s.T[2] {
		assert.InDelta(t, s.T[0][i]+0.5*dt*(s.DTDt[0][i]+s.DTDt[1][i]), s.T[2][i], 1e-12)
	}
	ad.Swap(2)
	assert.Equal(t, s.T[2], s.T[0])
	assert.Greater(t, s.T[0][0], 300.)

	// loose mode leaves tight calls alone
	loose := NewAdapter(CouplingLoose, s)
	before := append([]float64(nil), s.T[0]...)
	loose.SubStep(0, dt, 0, []float64{1}, []float64{1})
	loose.Swap(1)
	assert.Equal(t, before, s.T[0])
}

func TestParseCoupling(t *testing.T) {
	for name, cm := range CouplingNames {
		got, err := ParseCoupling(name)
		assert.NoError(t, err)
		assert.Equal(t, cm, got)
		assert.Equal(t, name, cm.String())
	}
	_, err := ParseCoupling("sometimes")
	assert.Error(t, err)
}
