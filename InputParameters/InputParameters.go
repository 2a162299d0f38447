package InputParameters

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ghodss/yaml"
	"github.com/go-playground/validator/v10"

	"github.com/notargets/gofv/flux"
	"github.com/notargets/gofv/gas"
	"github.com/notargets/gofv/geometry"
	"github.com/notargets/gofv/integrator"
	"github.com/notargets/gofv/model_problems"
	"github.com/notargets/gofv/readfiles"
	"github.com/notargets/gofv/solid"
	"github.com/notargets/gofv/telemetry"
	"github.com/notargets/gofv/types"
	"github.com/notargets/gofv/udf"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	names := func(keys func() []string) validator.Func {
		return func(fl validator.FieldLevel) bool {
			v := strings.ToLower(fl.Field().String())
			for _, k := range keys() {
				if k == v {
					return true
				}
			}
			return false
		}
	}
	must := func(tag string, fn validator.Func) {
		if err := validate.RegisterValidation(tag, fn); err != nil {
			panic(err)
		}
	}
	must("fluxtype", names(func() []string { return keys(flux.FluxNames) }))
	must("scheme", names(func() []string { return keys(integrator.SchemeNames) }))
	must("limiter", names(func() []string { return keys(flux.LimiterNames) }))
	must("coupling", names(func() []string { return keys(solid.CouplingNames) }))
	must("chemistry", names(func() []string { return keys(integrator.ChemistrySplitNames) }))
	must("loglevel", func(fl validator.FieldLevel) bool {
		_, err := telemetry.ParseLevel(fl.Field().String())
		return err == nil
	})
}

func keys[V any](m map[string]V) (k []string) {
	for name := range m {
		k = append(k, name)
	}
	sort.Strings(k)
	return
}

// Parameters obtained from the YAML input file
type InputParameters struct {
	Title       string                `json:"Title"`
	Case        CaseParameters        `json:"Case"`
	Gas         GasParameters         `json:"Gas"`
	Flux        FluxParameters        `json:"Flux"`
	Integration IntegrationParameters `json:"Integration"`
	Physics     PhysicsParameters     `json:"Physics"`
	Output      OutputParameters      `json:"Output"`
	Parallel    ParallelParameters    `json:"Parallel"`
	Solid       SolidParameters       `json:"Solid"`
	UDF         UDFParameters         `json:"UDF"`
	Log         LogParameters         `json:"Log"`
}

type CaseParameters struct {
	Type    string     `json:"Type" validate:"required,oneof=sod uniform heated_channel failing mesh"`
	NCells  int        `json:"NCells" validate:"gte=1"`
	NBlocks int        `json:"NBlocks" validate:"gte=1,ltefield=NCells"`
	Vel     [3]float64 `json:"Velocity"`
	TGas    float64    `json:"TGas" validate:"gte=0"`
	// Sink region of the failing case.
	XMin float64 `json:"XMin"`
	XMax float64 `json:"XMax" validate:"gtefield=XMin"`
	// SU2 mesh of the mesh case, extruded through Depth. Markers names the
	// condition of each marker, slip wall when absent.
	Mesh    string            `json:"Mesh" validate:"required_if=Type mesh"`
	Depth   float64           `json:"Depth" validate:"gte=0"`
	Markers map[string]string `json:"Markers" validate:"dive,required"`
}

// GasParameters replace the gas of the case when Gamma or Species is set.
// Species and Modes describe a mixture; the layout of the run follows them.
type GasParameters struct {
	Gamma   float64       `json:"Gamma" validate:"omitempty,gt=1"`
	R       float64       `json:"R" validate:"required_with=Gamma,omitempty,gt=0"`
	Species []gas.Species `json:"Species" validate:"dive"`
	Modes   []gas.Mode    `json:"Modes" validate:"dive"`
	// Initial composition and mode temperatures of every cell.
	MassFractions    []float64 `json:"MassFractions" validate:"dive,gte=0,lte=1"`
	ModeTemperatures []float64 `json:"ModeTemperatures" validate:"dive,gt=0"`
	Prandtl          float64   `json:"Prandtl" validate:"gte=0"`
	Mu0              float64   `json:"Mu0" validate:"gte=0"`
	T0               float64   `json:"T0" validate:"gte=0"`
	S                float64   `json:"S" validate:"gte=0"`
}

type FluxParameters struct {
	Type           string  `json:"Type" validate:"fluxtype"`
	Order          int     `json:"Order" validate:"oneof=1 2"`
	Limiter        string  `json:"Limiter" validate:"limiter"`
	ShockThreshold float64 `json:"ShockThreshold" validate:"gte=0"`
	ShockSmoothing bool    `json:"ShockSmoothing"`
	WallMaxIter    int     `json:"WallMaxIterations" validate:"gte=1"`
	WallTolerance  float64 `json:"WallTolerance" validate:"gt=0"`
	WallCap        float64 `json:"WallPressureCap" validate:"gt=1"`
}

type IntegrationParameters struct {
	Scheme          string  `json:"Scheme" validate:"scheme"`
	CFL             float64 `json:"CFL" validate:"gt=0,lte=2"`
	DtInit          float64 `json:"DtInit" validate:"gt=0"`
	DtMax           float64 `json:"DtMax" validate:"gtefield=DtInit"`
	DtIncrease      float64 `json:"DtIncrease" validate:"gte=1"`
	CFLCheckEvery   int     `json:"CFLCheckEvery" validate:"gte=0"`
	MaxInvalidCells int     `json:"MaxInvalidCells" validate:"gte=0"`
	TargetTime      float64 `json:"TargetTime" validate:"gte=0"`
	MaxSteps        int     `json:"MaxSteps" validate:"gte=0"`
	// WallClock is the run budget in seconds, zero for none.
	WallClock float64 `json:"WallClock" validate:"gte=0"`
	HaltFile  string  `json:"HaltFile"`
}

type PhysicsParameters struct {
	Viscous            bool       `json:"Viscous"`
	OmegaZ             float64    `json:"OmegaZ"`
	MHD                bool       `json:"MHD"`
	DivergenceCleaning bool       `json:"DivergenceCleaning"`
	CleaningCR         float64    `json:"CleaningCR" validate:"gte=0"`
	B                  [3]float64 `json:"B"`
	TurbulenceScalars  int        `json:"TurbulenceScalars" validate:"gte=0"`
	Turbulence         []float64  `json:"Turbulence"`
	// Chemistry splits the relaxation of the energy modes from the flow.
	Chemistry       string    `json:"Chemistry" validate:"chemistry"`
	RelaxationTimes []float64 `json:"RelaxationTimes" validate:"dive,gt=0"`
	// A moving grid carries every vertex at GridVelocity + GridStretch * x,
	// component by component.
	GridVelocity [3]float64 `json:"GridVelocity"`
	GridStretch  [3]float64 `json:"GridStretch"`
}

func (pp PhysicsParameters) movingGrid() bool {
	return pp.GridVelocity != [3]float64{} || pp.GridStretch != [3]float64{}
}

type OutputParameters struct {
	SnapshotEvery float64     `json:"SnapshotEvery" validate:"gte=0"`
	HistoryEvery  float64     `json:"HistoryEvery" validate:"gte=0"`
	LoadsEvery    float64     `json:"LoadsEvery" validate:"gte=0"`
	ReportEvery   int         `json:"ReportEvery" validate:"gte=0"`
	HistoryPoints [][2]int    `json:"HistoryPoints"`
	SnapshotDir   string      `json:"SnapshotDir"`
	SampleDB      string      `json:"SampleDB"`
	Restart       *RestartRef `json:"Restart"`
}

type RestartRef struct {
	RunID string `json:"RunID" validate:"required,uuid"`
	Index int    `json:"Index" validate:"gte=0"`
}

type ParallelParameters struct {
	Ranks         int  `json:"Ranks" validate:"gte=1"`
	Workers       int  `json:"Workers" validate:"gte=0"`
	ForceFullFace bool `json:"ForceFullFace"`
}

type SolidParameters struct {
	Coupling      string  `json:"Coupling" validate:"coupling"`
	Rho           float64 `json:"Rho" validate:"gte=0"`
	Cp            float64 `json:"Cp" validate:"gte=0"`
	K             float64 `json:"K" validate:"gte=0"`
	Thickness     float64 `json:"Thickness" validate:"gte=0"`
	NLayers       int     `json:"NLayers" validate:"gte=0"`
	TInit         float64 `json:"TInit" validate:"gte=0"`
	TBack         float64 `json:"TBack" validate:"gte=0"`
	BackAdiabatic bool    `json:"BackAdiabatic"`
}

type UDFParameters struct {
	Script   string `json:"Script"`
	MaxSteps uint64 `json:"MaxSteps"`
}

type LogParameters struct {
	Level  string `json:"Level" validate:"loglevel"`
	Format string `json:"Format" validate:"oneof=console json"`
	Output string `json:"Output"`
}

// Defaults holds every value an input file may leave out.
func Defaults() (ip *InputParameters) {
	var (
		cfg = integrator.DefaultConfig()
		fc  = cfg.Flux
	)
	return &InputParameters{
		Title: "untitled",
		Case:  CaseParameters{Type: "sod", NCells: 200, NBlocks: 1, TGas: 400},
		Gas:   GasParameters{Prandtl: 0.72, Mu0: 1.716e-5, T0: 273.15, S: 110.4},
		Flux: FluxParameters{
			Type:           fc.Type.String(),
			Order:          cfg.Order,
			Limiter:        cfg.Limiter.String(),
			ShockThreshold: cfg.ShockThreshold,
			WallMaxIter:    fc.WallMaxIter,
			WallTolerance:  fc.WallTolerance,
			WallCap:        fc.WallCap,
		},
		Integration: IntegrationParameters{
			Scheme:          cfg.Scheme.String(),
			CFL:             cfg.CFL,
			DtInit:          cfg.DtInit,
			DtMax:           cfg.DtMax,
			DtIncrease:      cfg.DtIncrease,
			CFLCheckEvery:   cfg.CFLCheckEvery,
			MaxInvalidCells: cfg.MaxInvalidCells,
		},
		Physics:  PhysicsParameters{CleaningCR: cfg.CleaningCR, Chemistry: cfg.Chemistry.String()},
		Output:   OutputParameters{ReportEvery: cfg.ReportEvery},
		Parallel: ParallelParameters{Ranks: 1},
		Solid: SolidParameters{
			Coupling: solid.CouplingNone.String(),
			Rho:      8000, Cp: 500, K: 16,
			Thickness: 0.005, NLayers: 5, TInit: 300, TBack: 300,
		},
		Log: LogParameters{Level: "info", Format: "console", Output: "stderr"},
	}
}

func (ip *InputParameters) Parse(data []byte) (err error) {
	if err = yaml.Unmarshal(data, ip); err != nil {
		return fmt.Errorf("parsing input: %w", err)
	}
	return ip.Validate()
}

// ReadFile parses the named input file over the defaults.
func ReadFile(path string) (ip *InputParameters, err error) {
	var data []byte
	if data, err = os.ReadFile(path); err != nil {
		return
	}
	ip = Defaults()
	if err = ip.Parse(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return
}

func (ip *InputParameters) Validate() (err error) {
	if err = validate.Struct(ip); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			msgs := make([]string, len(ve))
			for i, fe := range ve {
				msgs[i] = fmt.Sprintf("%s fails %q (have %v)", fe.Namespace(), fe.Tag(), fe.Value())
			}
			err = fmt.Errorf("invalid input: %s", strings.Join(msgs, "; "))
		}
		return
	}
	var (
		g        = ip.Gas
		ph       = ip.Physics
		nSpecies = max(len(g.Species), 1)
		mhdFlux  = strings.ToLower(ip.Flux.Type) == flux.FLUX_HLLEMHD.String()
		chem     = strings.ToLower(ph.Chemistry) != integrator.ChemistryNone.String()
	)
	switch {
	case ip.Integration.TargetTime == 0 && ip.Integration.MaxSteps == 0:
		err = fmt.Errorf("invalid input: need Integration.TargetTime or Integration.MaxSteps")
	case len(g.Species) > 0 && g.Gamma > 0:
		err = fmt.Errorf("invalid input: Gas.Species and Gas.Gamma are exclusive")
	case len(g.Modes) > 0 && len(g.Species) == 0:
		err = fmt.Errorf("invalid input: Gas.Modes need Gas.Species")
	case len(g.MassFractions) > 0 && len(g.MassFractions) != nSpecies:
		err = fmt.Errorf("invalid input: %d Gas.MassFractions for %d species", len(g.MassFractions), nSpecies)
	case len(g.ModeTemperatures) > 0 && len(g.ModeTemperatures) != len(g.Modes):
		err = fmt.Errorf("invalid input: %d Gas.ModeTemperatures for %d modes", len(g.ModeTemperatures),
			len(g.Modes))
	case ph.DivergenceCleaning && !ph.MHD:
		err = fmt.Errorf("invalid input: Physics.DivergenceCleaning needs Physics.MHD")
	case ph.MHD != mhdFlux:
		err = fmt.Errorf("invalid input: Physics.MHD is %v with flux %s, MHD runs use %s", ph.MHD,
			ip.Flux.Type, flux.FLUX_HLLEMHD)
	case len(ph.Turbulence) > 0 && len(ph.Turbulence) != ph.TurbulenceScalars:
		err = fmt.Errorf("invalid input: %d Physics.Turbulence values for %d scalars", len(ph.Turbulence),
			ph.TurbulenceScalars)
	case chem && len(g.Modes) == 0:
		err = fmt.Errorf("invalid input: %s chemistry relaxes energy modes, Gas.Modes is empty", ph.Chemistry)
	case chem && len(ph.RelaxationTimes) != len(g.Modes):
		err = fmt.Errorf("invalid input: %d Physics.RelaxationTimes for %d modes", len(ph.RelaxationTimes),
			len(g.Modes))
	case ph.movingGrid() && ip.Case.Type == "mesh":
		err = fmt.Errorf("invalid input: the grid of a mesh case cannot move")
	case ip.Case.Type == "mesh" && ip.Case.NBlocks != 1:
		err = fmt.Errorf("invalid input: a mesh case is one block, have %d", ip.Case.NBlocks)
	case ip.Case.NCells%ip.Case.NBlocks != 0:
		err = fmt.Errorf("invalid input: %d cells do not split into %d blocks", ip.Case.NCells, ip.Case.NBlocks)
	case ip.Parallel.Ranks > ip.Case.NBlocks:
		err = fmt.Errorf("invalid input: %d ranks for %d blocks", ip.Parallel.Ranks, ip.Case.NBlocks)
	}
	return
}

func (ip *InputParameters) Print(w io.Writer) {
	fmt.Fprintf(w, "\"%s\"\t\t= Title\n", ip.Title)
	fmt.Fprintf(w, "[%s]\t\t\t= Case, %d cells in %d blocks\n", ip.Case.Type, ip.Case.NCells, ip.Case.NBlocks)
	fmt.Fprintf(w, "[%s]\t\t\t= Flux Type, order %d, %s limiter\n", ip.Flux.Type, ip.Flux.Order, ip.Flux.Limiter)
	fmt.Fprintf(w, "[%s]\t\t\t= Scheme\n", ip.Integration.Scheme)
	fmt.Fprintf(w, "%8.5f\t\t= CFL\n", ip.Integration.CFL)
	fmt.Fprintf(w, "%8.5g\t\t= TargetTime\n", ip.Integration.TargetTime)
	fmt.Fprintf(w, "[%d]\t\t\t\t= MaxSteps\n", ip.Integration.MaxSteps)
	fmt.Fprintf(w, "[%v]\t\t\t= Viscous\n", ip.Physics.Viscous)
	if n := len(ip.Gas.Species); n > 0 {
		fmt.Fprintf(w, "[%d species, %d modes]\t= Gas\n", n, len(ip.Gas.Modes))
	}
	if ip.Physics.MHD {
		fmt.Fprintf(w, "[%v]\t\t\t= Divergence Cleaning\n", ip.Physics.DivergenceCleaning)
	}
	if n := ip.Physics.TurbulenceScalars; n > 0 {
		fmt.Fprintf(w, "[%d]\t\t\t\t= Turbulence Scalars\n", n)
	}
	if ip.Physics.Chemistry != integrator.ChemistryNone.String() {
		fmt.Fprintf(w, "[%s]\t\t\t= Chemistry Splitting\n", ip.Physics.Chemistry)
	}
	if ip.Physics.movingGrid() {
		fmt.Fprintf(w, "%v + %v x\t= Grid Velocity\n", ip.Physics.GridVelocity, ip.Physics.GridStretch)
	}
	fmt.Fprintf(w, "[%d x %d]\t\t\t= Ranks x Workers\n", ip.Parallel.Ranks, ip.Parallel.Workers)
	if ip.Solid.Coupling != solid.CouplingNone.String() {
		fmt.Fprintf(w, "[%s]\t\t\t= Solid Coupling\n", ip.Solid.Coupling)
	}
	if ip.UDF.Script != "" {
		fmt.Fprintf(w, "[%s]\t= UDF Script\n", ip.UDF.Script)
	}
}

// IntegratorConfig maps the input onto the orchestrator configuration.
func (ip *InputParameters) IntegratorConfig() (cfg integrator.Config, err error) {
	cfg = integrator.DefaultConfig()
	var ft flux.FluxType
	if ft, err = flux.ParseFluxType(ip.Flux.Type); err != nil {
		return
	}
	cfg.Flux = flux.DefaultConfig(ft)
	cfg.Flux.WallMaxIter = ip.Flux.WallMaxIter
	cfg.Flux.WallTolerance = ip.Flux.WallTolerance
	cfg.Flux.WallCap = ip.Flux.WallCap
	cfg.Flux.OmegaZ = ip.Physics.OmegaZ
	if cfg.Limiter, err = flux.ParseLimiterType(ip.Flux.Limiter); err != nil {
		return
	}
	if cfg.Scheme, err = integrator.ParseScheme(ip.Integration.Scheme); err != nil {
		return
	}
	if cfg.Coupling, err = solid.ParseCoupling(ip.Solid.Coupling); err != nil {
		return
	}
	if cfg.Chemistry, err = integrator.ParseChemistrySplit(ip.Physics.Chemistry); err != nil {
		return
	}
	if ph := ip.Physics; ph.movingGrid() {
		v, st := ph.GridVelocity, ph.GridStretch
		cfg.VertexVelocity = func(pos geometry.Vector3, _ float64) (w geometry.Vector3) {
			for d := range w {
				w[d] = v[d] + st[d]*pos[d]
			}
			return
		}
	}
	in := ip.Integration
	cfg.Order = ip.Flux.Order
	cfg.ShockThreshold = ip.Flux.ShockThreshold
	cfg.ShockSmoothing = ip.Flux.ShockSmoothing
	cfg.CFL, cfg.DtInit, cfg.DtMax, cfg.DtIncrease = in.CFL, in.DtInit, in.DtMax, in.DtIncrease
	cfg.CFLCheckEvery, cfg.MaxInvalidCells = in.CFLCheckEvery, in.MaxInvalidCells
	cfg.TargetTime, cfg.MaxSteps = in.TargetTime, in.MaxSteps
	cfg.WallClock = time.Duration(in.WallClock * float64(time.Second))
	cfg.HaltFile = in.HaltFile
	cfg.Viscous = ip.Physics.Viscous
	cfg.CleaningCR = ip.Physics.CleaningCR
	out := ip.Output
	cfg.SnapshotEvery, cfg.HistoryEvery, cfg.LoadsEvery = out.SnapshotEvery, out.HistoryEvery, out.LoadsEvery
	cfg.ReportEvery = out.ReportEvery
	for _, hp := range out.HistoryPoints {
		cfg.HistoryPoints = append(cfg.HistoryPoints, integrator.HistoryPoint{Block: hp[0], Cell: hp[1]})
	}
	cfg.Workers = ip.Parallel.Workers
	return
}

// NewCase builds the case and its source terms. The UDF script, when set,
// replaces the built-in sink of the failing case.
func (ip *InputParameters) NewCase() (c *model_problems.Case, src integrator.SourceTerms, err error) {
	cp := ip.Case
	switch cp.Type {
	case "sod":
		c, err = model_problems.SodShockTube(cp.NCells, cp.NBlocks)
	case "uniform":
		c, err = model_problems.UniformFlow(cp.NCells, cp.NBlocks, geometry.Vector3(cp.Vel))
	case "heated_channel":
		sp := ip.Solid
		c, err = model_problems.HeatedChannel(cp.NCells, cp.NBlocks, cp.TGas, solid.Config{
			Material:      solid.Material{Rho: sp.Rho, Cp: sp.Cp, K: sp.K},
			Thickness:     sp.Thickness,
			NLayers:       sp.NLayers,
			TInit:         sp.TInit,
			TBack:         sp.TBack,
			BackAdiabatic: sp.BackAdiabatic,
		})
	case "failing":
		var d model_problems.Drain
		c, d, err = model_problems.FailingFlow(cp.NCells, cp.NBlocks, cp.XMin, cp.XMax)
		src = d
	case "mesh":
		var (
			g     *readfiles.Grid
			kinds = make(map[string]types.BCKind, len(cp.Markers))
		)
		for name, label := range cp.Markers {
			if kinds[name], err = types.ParseBCKind(label); err != nil {
				return
			}
		}
		if g, err = readfiles.ReadSU2File(cp.Mesh); err != nil {
			return
		}
		depth := cp.Depth
		if depth == 0 {
			depth = 1
		}
		c, err = model_problems.MeshFlow(g, depth, kinds, geometry.Vector3(cp.Vel))
	default:
		err = fmt.Errorf("unknown case %q", cp.Type)
	}
	if err != nil {
		return
	}
	var (
		g  = ip.Gas
		ph = model_problems.Physics{
			MassF:    g.MassFractions,
			TModes:   g.ModeTemperatures,
			NTurb:    ip.Physics.TurbulenceScalars,
			Turb:     ip.Physics.Turbulence,
			MHD:      ip.Physics.MHD,
			Cleaning: ip.Physics.DivergenceCleaning,
			B:        geometry.Vector3(ip.Physics.B),
		}
		visc = gas.Sutherland{Mu0: g.Mu0, T0: g.T0, S: g.S}
	)
	switch {
	case len(g.Species) > 0:
		ph.Gas, err = gas.NewIdealGas(g.Species, g.Modes, visc, g.Prandtl)
	case g.Gamma > 0:
		ph.Gas, err = gas.NewIdealGas([]gas.Species{{Name: "gas", R: g.R, Gamma: g.Gamma}}, nil, visc, g.Prandtl)
	}
	if err != nil {
		return
	}
	if err = c.SetPhysics(ph); err != nil {
		return
	}
	if ip.UDF.Script != "" {
		var (
			script []byte
			st     *udf.SourceTerms
		)
		if script, err = os.ReadFile(ip.UDF.Script); err != nil {
			return
		}
		if st, err = udf.NewSourceTerms(ip.UDF.Script, string(script), c.Layout); err != nil {
			return
		}
		if ip.UDF.MaxSteps > 0 {
			st.MaxSteps = ip.UDF.MaxSteps
		}
		src = st
	}
	return
}

// Chemistry builds the energy mode relaxation of the case gas, nil when the
// run has no chemistry splitting.
func (ip *InputParameters) Chemistry(c *model_problems.Case) (chem integrator.Chemistry, err error) {
	if strings.ToLower(ip.Physics.Chemistry) == integrator.ChemistryNone.String() {
		return
	}
	ig, ok := c.Gas.(*gas.IdealGas)
	if !ok {
		return nil, fmt.Errorf("mode relaxation needs an ideal gas, have %T", c.Gas)
	}
	var r *gas.Relaxation
	if r, err = gas.NewRelaxation(ig, ip.Physics.RelaxationTimes); err != nil {
		return
	}
	return integrator.ModeRelaxation{Relaxation: r}, nil
}

func (ip *InputParameters) LogConfig() telemetry.LogConfig {
	return telemetry.LogConfig{Level: ip.Log.Level, Format: ip.Log.Format, Output: ip.Log.Output}
}
