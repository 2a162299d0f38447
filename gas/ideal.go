package gas

import (
	"fmt"
	"math"
)

type Species struct {
	Name  string  `json:"name" validate:"required"`
	R     float64 `json:"R" validate:"gt=0"`
	Gamma float64 `json:"gamma" validate:"gt=1"`
}

// Mode is an extra (vibrational/electronic) energy mode with a constant
// specific heat, so that its energy is Cv*Tmode.
type Mode struct {
	Name string  `json:"name" validate:"required"`
	Cv   float64 `json:"cv" validate:"gt=0"`
}

// Sutherland viscosity law. A zero S and T0 gives constant viscosity Mu0.
type Sutherland struct {
	Mu0 float64 `json:"mu0" validate:"gte=0"`
	T0  float64 `json:"T0" validate:"gte=0"`
	S   float64 `json:"S" validate:"gte=0"`
}

// IdealGas is a thermally perfect mixture of calorically perfect species with
// any number of separately equilibrated energy modes.
type IdealGas struct {
	species   []Species
	cvSpecies []float64
	modes     []Mode
	visc      Sutherland
	prandtl   float64
}

func NewIdealGas(species []Species, modes []Mode, visc Sutherland, prandtl float64) (ig *IdealGas, err error) {
	if len(species) == 0 {
		err = fmt.Errorf("ideal gas needs at least one species")
		return
	}
	ig = &IdealGas{
		species:   species,
		cvSpecies: make([]float64, len(species)),
		modes:     modes,
		visc:      visc,
		prandtl:   prandtl,
	}
	for i, sp := range species {
		if sp.R <= 0 || sp.Gamma <= 1 {
			err = fmt.Errorf("species %q: need R > 0 and gamma > 1, have R=%g gamma=%g",
				sp.Name, sp.R, sp.Gamma)
			return
		}
		ig.cvSpecies[i] = sp.R / (sp.Gamma - 1)
	}
	for _, m := range modes {
		if m.Cv <= 0 {
			err = fmt.Errorf("energy mode %q: need cv > 0, have %g", m.Name, m.Cv)
			return
		}
	}
	if ig.prandtl <= 0 {
		ig.prandtl = 0.72
	}
	return
}

// NewIdealAir returns single species air with a Sutherland viscosity law.
func NewIdealAir() (ig *IdealGas) {
	ig, _ = NewIdealGas([]Species{{Name: "air", R: 287.1, Gamma: 1.4}}, nil,
		Sutherland{Mu0: 1.716e-5, T0: 273.15, S: 110.4}, 0.72)
	return
}

func (ig *IdealGas) NSpecies() int { return len(ig.species) }

func (ig *IdealGas) NModes() int { return len(ig.modes) }

func (ig *IdealGas) SpeciesName(isp int) string { return ig.species[isp].Name }

func (ig *IdealGas) mixture(gs *GasState) (R, Cv float64) {
	if len(ig.species) == 1 {
		return ig.species[0].R, ig.cvSpecies[0]
	}
	for i, y := range gs.MassF {
		R += y * ig.species[i].R
		Cv += y * ig.cvSpecies[i]
	}
	return
}

func (ig *IdealGas) Pressure(gs *GasState) float64 {
	R, _ := ig.mixture(gs)
	return gs.Rho * R * gs.T
}

func (ig *IdealGas) SoundSpeed(gs *GasState) float64 {
	R, Cv := ig.mixture(gs)
	return math.Sqrt((Cv + R) / Cv * R * gs.T)
}

func (ig *IdealGas) InternalEnergy(gs *GasState, mode int) float64 {
	if mode < 0 {
		_, Cv := ig.mixture(gs)
		return Cv * gs.T
	}
	return ig.modes[mode].Cv * gs.TModes[mode]
}

func (ig *IdealGas) Cv(gs *GasState) float64 {
	_, Cv := ig.mixture(gs)
	return Cv
}

func (ig *IdealGas) Cp(gs *GasState) float64 {
	R, Cv := ig.mixture(gs)
	return Cv + R
}

func (ig *IdealGas) Gamma(gs *GasState) float64 {
	R, Cv := ig.mixture(gs)
	return (Cv + R) / Cv
}

func (ig *IdealGas) GasConstant(gs *GasState, species int) float64 {
	if species >= 0 {
		return ig.species[species].R
	}
	R, _ := ig.mixture(gs)
	return R
}

func (ig *IdealGas) checkState(gs *GasState) (err error) {
	bad := func(x float64) bool { return !(x > 0) || math.IsInf(x, 0) }
	if bad(gs.Rho) || bad(gs.T) || bad(gs.P) {
		err = fmt.Errorf("%w: rho=%g T=%g p=%g", ErrNonPhysical, gs.Rho, gs.T, gs.P)
		return
	}
	for m, tm := range gs.TModes {
		if bad(tm) {
			err = fmt.Errorf("%w: mode %d temperature %g", ErrNonPhysical, m, tm)
			return
		}
	}
	return
}

func (ig *IdealGas) UpdateThermoFromRhoU(gs *GasState) (err error) {
	R, Cv := ig.mixture(gs)
	gs.T = gs.U / Cv
	gs.P = gs.Rho * R * gs.T
	for m := range ig.modes {
		gs.TModes[m] = gs.UModes[m] / ig.modes[m].Cv
	}
	if err = ig.checkState(gs); err != nil {
		return
	}
	gs.A = math.Sqrt((Cv + R) / Cv * R * gs.T)
	return
}

func (ig *IdealGas) UpdateThermoFromRhoP(gs *GasState) (err error) {
	R, Cv := ig.mixture(gs)
	gs.T = gs.P / (gs.Rho * R)
	gs.U = Cv * gs.T
	for m := range ig.modes {
		gs.UModes[m] = ig.modes[m].Cv * gs.TModes[m]
	}
	if err = ig.checkState(gs); err != nil {
		return
	}
	gs.A = math.Sqrt((Cv + R) / Cv * R * gs.T)
	return
}

func (ig *IdealGas) UpdateThermoFromRhoT(gs *GasState) (err error) {
	R, Cv := ig.mixture(gs)
	gs.P = gs.Rho * R * gs.T
	gs.U = Cv * gs.T
	for m := range ig.modes {
		gs.UModes[m] = ig.modes[m].Cv * gs.TModes[m]
	}
	if err = ig.checkState(gs); err != nil {
		return
	}
	gs.A = math.Sqrt((Cv + R) / Cv * R * gs.T)
	return
}

func (ig *IdealGas) UpdateTransCoeffs(gs *GasState) {
	var (
		v = ig.visc
	)
	switch {
	case v.T0 > 0 && gs.T > 0:
		gs.Mu = v.Mu0 * math.Pow(gs.T/v.T0, 1.5) * (v.T0 + v.S) / (gs.T + v.S)
	default:
		gs.Mu = v.Mu0
	}
	gs.K = gs.Mu * ig.Cp(gs) / ig.prandtl
}
