package gas

import (
	"errors"
)

var ErrNonPhysical = errors.New("non-physical thermodynamic state")

// GasState holds the thermodynamic part of a flow state. Slices are sized by
// the model (species mass fractions, energy-mode temperatures and energies).
type GasState struct {
	Rho    float64   // density
	P      float64   // pressure
	T      float64   // translational-rotational temperature
	U      float64   // translational-rotational specific internal energy
	A      float64   // frozen sound speed
	Mu     float64   // dynamic viscosity
	K      float64   // thermal conductivity
	MassF  []float64 // species mass fractions
	TModes []float64 // temperatures of the extra energy modes
	UModes []float64 // specific energies of the extra energy modes
}

func NewGasState(nSpecies, nModes int) (gs GasState) {
	gs = GasState{
		MassF:  make([]float64, nSpecies),
		TModes: make([]float64, nModes),
		UModes: make([]float64, nModes),
	}
	if nSpecies > 0 {
		gs.MassF[0] = 1
	}
	return
}

func (gs *GasState) CopyValues(src *GasState) {
	gs.Rho, gs.P, gs.T, gs.U, gs.A, gs.Mu, gs.K = src.Rho, src.P, src.T, src.U, src.A, src.Mu, src.K
	copy(gs.MassF, src.MassF)
	copy(gs.TModes, src.TModes)
	copy(gs.UModes, src.UModes)
}

// TotalInternalEnergy sums the translational and mode energies.
func (gs *GasState) TotalInternalEnergy() (e float64) {
	e = gs.U
	for _, um := range gs.UModes {
		e += um
	}
	return
}

// Model is the property contract the flow solver consumes. All methods are
// pure functions of the state and must be safe for concurrent use.
type Model interface {
	NSpecies() int
	NModes() int
	SpeciesName(isp int) string
	Pressure(gs *GasState) float64
	SoundSpeed(gs *GasState) float64
	// InternalEnergy returns the translational energy for mode < 0, else the
	// energy held in the given mode.
	InternalEnergy(gs *GasState, mode int) float64
	Cv(gs *GasState) float64
	Cp(gs *GasState) float64
	Gamma(gs *GasState) float64
	// GasConstant returns the mixture constant for species < 0.
	GasConstant(gs *GasState, species int) float64
	UpdateThermoFromRhoU(gs *GasState) error
	UpdateThermoFromRhoP(gs *GasState) error
	UpdateThermoFromRhoT(gs *GasState) error
	UpdateTransCoeffs(gs *GasState)
}
