package InputParameters

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gofv/flux"
	"github.com/notargets/gofv/gas"
	"github.com/notargets/gofv/geometry"
	"github.com/notargets/gofv/integrator"
	"github.com/notargets/gofv/model_problems"
	"github.com/notargets/gofv/solid"
	"github.com/notargets/gofv/state"
)

var input = []byte(`
Title: "Sod split over two ranks"
Case:
  Type: sod
  NCells: 100
  NBlocks: 4
Flux:
  Type: hllc
  Limiter: minmod
Integration:
  Scheme: tvd_rk3
  CFL: 0.4
  TargetTime: 0.2
  WallClock: 90
Output:
  ReportEvery: 10
  HistoryEvery: 0.01
  HistoryPoints:
    - [1, 5]
Parallel:
  Ranks: 2
`)

func TestParse(t *testing.T) {
	ip := Defaults()
	require.NoError(t, ip.Parse(input))
	assert.Equal(t, "Sod split over two ranks", ip.Title)
	assert.Equal(t, 4, ip.Case.NBlocks)
	// untouched values keep their defaults
	assert.Equal(t, 2, ip.Flux.Order)
	assert.Equal(t, 1e-6, ip.Integration.DtInit)

	cfg, err := ip.IntegratorConfig()
	require.NoError(t, err)
	assert.Equal(t, flux.FLUX_HLLC, cfg.Flux.Type)
	assert.Equal(t, flux.LIMITER_MinMod, cfg.Limiter)
	assert.Equal(t, integrator.SCHEME_TVDRK3, cfg.Scheme)
	assert.Equal(t, solid.CouplingNone, cfg.Coupling)
	assert.Equal(t, 0.4, cfg.CFL)
	assert.Equal(t, 90*time.Second, cfg.WallClock)
	assert.Equal(t, []integrator.HistoryPoint{{Block: 1, Cell: 5}}, cfg.HistoryPoints)

	c, src, err := ip.NewCase()
	require.NoError(t, err)
	assert.Nil(t, src)
	assert.Equal(t, "sod", c.Name)
	assert.Len(t, c.Links, 6)

	var buf bytes.Buffer
	ip.Print(&buf)
	assert.Contains(t, buf.String(), "hllc")
	assert.Contains(t, buf.String(), "tvd_rk3")
}

func TestValidate(t *testing.T) {
	for name, doc := range map[string]string{
		"flux":      "Flux: {Type: fastest}",
		"scheme":    "Integration: {Scheme: leapfrog}",
		"order":     "Flux: {Order: 3}",
		"case":      "Case: {Type: cavity}",
		"ranks":     "Parallel: {Ranks: 2}",
		"split":     "Case: {NCells: 10, NBlocks: 3}",
		"stop":      "Integration: {TargetTime: 0}",
		"dtmax":     "Integration: {DtMax: 1e-9}",
		"level":     "Log: {Level: loud}",
		"gas":       "Gas: {Gamma: 1.4}",
		"restart":   "Output: {Restart: {RunID: nope}}",
		"yaml":      "Case: [",
		"mixture":   "Gas: {Gamma: 1.4, R: 287, Species: [{name: a, R: 287, gamma: 1.4}]}",
		"species":   "Gas: {Species: [{name: a, R: 0, gamma: 1.4}]}",
		"modes":     "Gas: {Modes: [{name: vib, cv: 300}]}",
		"massf":     "Gas: {MassFractions: [0.5, 0.5]}",
		"tmodes":    "Gas: {Species: [{name: a, R: 287, gamma: 1.4}], ModeTemperatures: [500]}",
		"clean":     "Physics: {DivergenceCleaning: true}",
		"mhd":       "Physics: {MHD: true}",
		"mhdflux":   "Flux: {Type: hlle_mhd}",
		"turb":      "Physics: {TurbulenceScalars: 1, Turbulence: [1, 2]}",
		"chemsplit": "Physics: {Chemistry: implicit}",
		"relax":     "Physics: {Chemistry: full}",
		"times":     "{Gas: {Species: [{name: a, R: 287, gamma: 1.4}], Modes: [{name: v, cv: 300}]}, Physics: {Chemistry: full}}",
		"moving":    "{Case: {Type: mesh, Mesh: x.su2}, Physics: {GridVelocity: [1, 0, 0]}}",
	} {
		ip := Defaults()
		ip.Integration.MaxSteps = 10
		if name == "stop" {
			ip.Integration.MaxSteps = 0
		}
		assert.Error(t, ip.Parse([]byte(doc)), name)
	}
	ip := Defaults()
	assert.Error(t, ip.Validate(), "no stopping condition")
	ip.Integration.MaxSteps = 5
	assert.NoError(t, ip.Validate())
}

func TestNewCaseWithScriptAndGas(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "heat.star")
	require.NoError(t, os.WriteFile(script, []byte(`
def source(t, x, y, z, cell):
    return {"total-energy": 1000.0}
`), 0o644))
	path := filepath.Join(dir, "case.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
Case: {Type: failing, NCells: 10, NBlocks: 2, XMin: 0.2, XMax: 0.4}
Gas: {Gamma: 1.3, R: 300}
UDF: {Script: "`+script+`", MaxSteps: 500}
Integration: {MaxSteps: 3}
`), 0o644))
	ip, err := ReadFile(path)
	require.NoError(t, err)
	c, src, err := ip.NewCase()
	require.NoError(t, err)
	require.NotNil(t, src)
	assert.NotNil(t, c.Gas)

	_, err = ReadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	ip.UDF.Script = filepath.Join(dir, "missing.star")
	_, _, err = ip.NewCase()
	assert.Error(t, err)
}

func TestNewMeshCase(t *testing.T) {
	dir := t.TempDir()
	mesh := filepath.Join(dir, "strip.su2")
	require.NoError(t, os.WriteFile(mesh, []byte(`NDIME= 2
NELEM= 2
5 0 1 2
5 1 3 2
NPOIN= 4
0 0
1 0
0 1
1 1
NMARK= 2
MARKER_TAG= in
MARKER_ELEMS= 1
3 2 0
MARKER_TAG= rest
MARKER_ELEMS= 3
3 0 1
3 1 3
3 3 2
`), 0o644))
	ip := Defaults()
	require.NoError(t, ip.Parse([]byte(`
Case: {Type: mesh, Mesh: "`+mesh+`", Depth: 0.1, Velocity: [10, 0, 0], Markers: {in: inflow, rest: outflow}}
Integration: {MaxSteps: 1}
`)))
	c, _, err := ip.NewCase()
	require.NoError(t, err)
	b, err := c.BuildBlock(0, 1)
	require.NoError(t, err)
	assert.Len(t, b.Cells, 2)
	assert.Equal(t, "in", b.Boundaries[0].Name)

	ip.Case.Markers["rest"] = "periodic"
	_, _, err = ip.NewCase()
	assert.Error(t, err)
	assert.Error(t, Defaults().Parse([]byte(`{Case: {Type: mesh, NBlocks: 2, NCells: 2, Mesh: x.su2}, Integration: {MaxSteps: 1}}`)))
	assert.Error(t, Defaults().Parse([]byte(`{Case: {Type: mesh}, Integration: {MaxSteps: 1}}`)))
}

var mixtureInput = []byte(`
Case: {Type: uniform, NCells: 8, NBlocks: 2}
Gas:
  Species:
    - {name: N2, R: 296.8, gamma: 1.4}
    - {name: He, R: 2077.1, gamma: 1.6667}
  Modes:
    - {name: vib, cv: 300}
  MassFractions: [0.8, 0.2]
  ModeTemperatures: [600]
Physics:
  TurbulenceScalars: 2
  Turbulence: [0.1, 1]
  Chemistry: strang
  RelaxationTimes: [1e-4]
  GridVelocity: [5, 0, 0]
  GridStretch: [2, 0, 0]
Integration: {MaxSteps: 2}
Parallel: {Ranks: 2}
`)

func TestMixtureCase(t *testing.T) {
	ip := Defaults()
	require.NoError(t, ip.Parse(mixtureInput))
	cfg, err := ip.IntegratorConfig()
	require.NoError(t, err)
	assert.Equal(t, integrator.ChemistryStrang, cfg.Chemistry)
	require.NotNil(t, cfg.VertexVelocity)
	assert.Equal(t, geometry.Vector3{6, 0, 0}, cfg.VertexVelocity(geometry.Vector3{0.5, 1, 1}, 0))

	c, _, err := ip.NewCase()
	require.NoError(t, err)
	l := c.Layout
	assert.Equal(t, 2, l.NSpecies())
	assert.Equal(t, 1, l.NModes())
	assert.Equal(t, 2, l.NTurb())
	assert.Equal(t, 10, l.N)
	assert.NoError(t, l.CheckGas(c.Gas))
	b, err := c.BuildBlock(1, 2)
	require.NoError(t, err)
	fs := b.Cells[0].FS
	assert.Equal(t, []float64{0.8, 0.2}, fs.MassF)
	assert.Equal(t, 600., fs.TModes[0])
	assert.Equal(t, []float64{0.1, 1}, fs.Turb)
	assert.InDelta(t, 1e5/(1.2*(0.8*296.8+0.2*2077.1)), fs.T, 1e-9)

	chem, err := ip.Chemistry(c)
	require.NoError(t, err)
	require.NotNil(t, chem)
	tm := fs.TModes[0]
	require.NoError(t, chem.Update(fs, 1e-5))
	assert.Less(t, fs.TModes[0], tm)

	var buf bytes.Buffer
	ip.Print(&buf)
	assert.Contains(t, buf.String(), "2 species, 1 modes")
	assert.Contains(t, buf.String(), "strang")

	c, _, err = ip.NewCase()
	require.NoError(t, err)
	opts := model_problems.DefaultRunOptions(cfg)
	opts.Ranks, opts.Chemistry = 2, chem
	res, err := model_problems.Run(context.Background(), c, opts)
	require.NoError(t, err)
	for _, o := range res.Orchestrators {
		assert.Equal(t, 2, o.Ctx.Step)
	}
	// the east end of the grid moved with the stretching vertices
	last := res.Blocks[1].Cells[3]
	assert.Greater(t, last.Pos[0], 0.9375)

	// a gas that disagrees with the slots of the case is rejected
	c.Gas = gas.NewIdealAir()
	_, err = c.BuildBlock(0, 2)
	assert.ErrorIs(t, err, state.ErrGasMismatch)
}

func TestMHDCase(t *testing.T) {
	ip := Defaults()
	require.NoError(t, ip.Parse([]byte(`
Case: {Type: uniform, NCells: 4}
Flux: {Type: hlle_mhd}
Physics: {MHD: true, DivergenceCleaning: true, B: [1, 0.5, 0]}
Integration: {MaxSteps: 1}
`)))
	c, _, err := ip.NewCase()
	require.NoError(t, err)
	assert.True(t, c.Layout.MHD())
	assert.True(t, c.Layout.DivergenceCleaning())
	b, err := c.BuildBlock(0, 2)
	require.NoError(t, err)
	assert.Equal(t, geometry.Vector3{1, 0.5, 0}, b.Cells[2].FS.B)
	chem, err := ip.Chemistry(c)
	require.NoError(t, err)
	assert.Nil(t, chem)
}
