package integrator

import (
	"fmt"
	"time"

	"github.com/notargets/gofv/flux"
	"github.com/notargets/gofv/mesh"
	"github.com/notargets/gofv/solid"
	"github.com/notargets/gofv/state"
)

// HistoryPoint names one cell sampled at the history cadence.
type HistoryPoint struct {
	Block, Cell int
}

type Config struct {
	Scheme Scheme
	Flux   flux.Config
	// Reconstruction
	Order   int
	Limiter flux.LimiterType
	// Shock detection for the adaptive flux pairs
	ShockThreshold float64
	ShockSmoothing bool

	// Step size control. CFLCheckEvery of zero keeps DtInit for the whole run.
	CFL           float64
	DtInit, DtMax float64
	DtIncrease    float64
	CFLCheckEvery int

	// Cells that fail to decode are repaired from their neighbours as long
	// as no block has more than MaxInvalidCells of them.
	MaxInvalidCells int

	// Termination, zero values disable a limit.
	TargetTime float64
	MaxSteps   int
	WallClock  time.Duration
	HaltFile   string

	Viscous    bool
	CleaningCR float64 // damping ratio of the divergence cleaning scalar
	// VertexVelocity moves the grid, nil for a fixed grid.
	VertexVelocity mesh.VertexVelocity

	Chemistry ChemistrySplit
	Coupling  solid.Coupling

	// Output cadences in simulation time, and the report cadence in steps.
	SnapshotEvery float64
	HistoryEvery  float64
	LoadsEvery    float64
	ReportEvery   int
	HistoryPoints []HistoryPoint

	// Workers per rank, zero for one less than the number of cores.
	Workers int
}

func DefaultConfig() Config {
	return Config{
		Scheme:          SCHEME_PredictorCorrector,
		Flux:            flux.DefaultConfig(flux.FLUX_AUSMDV),
		Order:           2,
		Limiter:         flux.LIMITER_VanAlbada,
		ShockThreshold:  0.2,
		CFL:             0.5,
		DtInit:          1e-6,
		DtMax:           1e-3,
		DtIncrease:      1.5,
		CFLCheckEvery:   1,
		MaxInvalidCells: 10,
		CleaningCR:      0.18,
		ReportEvery:     100,
	}
}

func (cfg Config) Validate(l state.Layout) (err error) {
	switch {
	case !(cfg.DtInit > 0):
		err = fmt.Errorf("initial time step must be positive, have %g", cfg.DtInit)
	case cfg.CFLCheckEvery > 0 && !(cfg.CFL > 0):
		err = fmt.Errorf("CFL must be positive, have %g", cfg.CFL)
	case cfg.CFLCheckEvery > 0 && cfg.DtIncrease < 1:
		err = fmt.Errorf("time step increase factor must be at least 1, have %g", cfg.DtIncrease)
	case cfg.CFLCheckEvery < 0 || cfg.MaxInvalidCells < 0 || cfg.MaxSteps < 0 || cfg.ReportEvery < 0:
		err = fmt.Errorf("cadences, step limits and thresholds must not be negative")
	case cfg.TargetTime <= 0 && cfg.MaxSteps == 0:
		err = fmt.Errorf("need a target time or a step limit")
	case cfg.Flux.Type.IsAdaptive() && !(cfg.ShockThreshold > 0):
		err = fmt.Errorf("adaptive flux %s needs a positive shock threshold", cfg.Flux.Type)
	case l.DivergenceCleaning() && !(cfg.CleaningCR > 0):
		err = fmt.Errorf("divergence cleaning needs a positive damping ratio")
	case cfg.SnapshotEvery < 0 || cfg.HistoryEvery < 0 || cfg.LoadsEvery < 0:
		err = fmt.Errorf("output cadences must not be negative")
	}
	return
}
