package state

import (
	"errors"
	"fmt"
	"math"

	"github.com/notargets/gofv/gas"
	"github.com/notargets/gofv/geometry"
)

var ErrNonPhysical = gas.ErrNonPhysical

// Mass fractions this far below zero are treated as round-off and clipped,
// anything more negative is a non-physical state.
const MassFractionTolerance = 1e-6

// FlowState is the primitive description of the gas in a cell or at a face.
type FlowState struct {
	gas.GasState
	Vel  geometry.Vector3
	B    geometry.Vector3
	Psi  float64
	Turb []float64
}

func NewFlowState(l Layout) (fs *FlowState) {
	fs = &FlowState{
		GasState: gas.NewGasState(l.NSpecies(), l.NModes()),
		Turb:     make([]float64, l.NTurb()),
	}
	return
}

func (fs *FlowState) CopyValues(src *FlowState) {
	fs.GasState.CopyValues(&src.GasState)
	fs.Vel, fs.B, fs.Psi = src.Vel, src.B, src.Psi
	copy(fs.Turb, src.Turb)
}

// TotalEnergy is the total energy per unit mass, including any magnetic
// energy per unit mass.
func (fs *FlowState) TotalEnergy(l Layout) (e float64) {
	e = fs.TotalInternalEnergy() + 0.5*fs.Vel.NormSq()
	if l.MHD() {
		e += 0.5 * fs.B.NormSq() / fs.Rho
	}
	return
}

// TotalEnthalpy is (rho*E + p)/rho without the magnetic pressure.
func (fs *FlowState) TotalEnthalpy() float64 {
	return fs.TotalInternalEnergy() + 0.5*fs.Vel.NormSq() + fs.P/fs.Rho
}

// Encode fills U from the flow state.
func Encode(l Layout, fs *FlowState, U ConservedQuantities) {
	var (
		rho = fs.Rho
	)
	U[l.Mass] = rho
	U[l.XMom] = rho * fs.Vel[0]
	U[l.YMom] = rho * fs.Vel[1]
	U[l.ZMom] = rho * fs.Vel[2]
	U[l.TotEnergy] = rho * (fs.TotalInternalEnergy() + 0.5*fs.Vel.NormSq())
	if l.MultiSpecies() {
		for i, y := range fs.MassF {
			U[l.Species+i] = rho * y
		}
	}
	for i := 0; i < l.NModes(); i++ {
		U[l.Modes+i] = rho * fs.UModes[i]
	}
	for i := 0; i < l.NTurb(); i++ {
		U[l.Turb+i] = rho * fs.Turb[i]
	}
	if l.MHD() {
		U[l.XB], U[l.YB], U[l.ZB] = fs.B[0], fs.B[1], fs.B[2]
		U[l.TotEnergy] += 0.5 * fs.B.NormSq()
		if l.DivergenceCleaning() {
			U[l.Psi] = fs.Psi
		}
	}
}

// Decode recovers the flow state from U, then evaluates the thermodynamics.
// It reports ErrNonPhysical for non-positive density, energy or pressure.
func Decode(l Layout, gm gas.Model, U ConservedQuantities, fs *FlowState) (err error) {
	var (
		rho = U[l.Mass]
	)
	if !(rho > 0) || math.IsInf(rho, 0) {
		err = fmt.Errorf("%w: density %g", ErrNonPhysical, rho)
		return
	}
	var (
		ooRho = 1. / rho
		e     float64
	)
	fs.Rho = rho
	fs.Vel = geometry.Vector3{U[l.XMom] * ooRho, U[l.YMom] * ooRho, U[l.ZMom] * ooRho}
	e = U[l.TotEnergy]*ooRho - 0.5*fs.Vel.NormSq()
	if l.MHD() {
		fs.B = geometry.Vector3{U[l.XB], U[l.YB], U[l.ZB]}
		e -= 0.5 * fs.B.NormSq() * ooRho
		if l.DivergenceCleaning() {
			fs.Psi = U[l.Psi]
		}
	}
	for i := 0; i < l.NModes(); i++ {
		fs.UModes[i] = U[l.Modes+i] * ooRho
		e -= fs.UModes[i]
	}
	fs.U = e
	if l.MultiSpecies() {
		if err = decodeMassFractions(l, U, ooRho, fs.MassF); err != nil {
			return
		}
	}
	for i := 0; i < l.NTurb(); i++ {
		fs.Turb[i] = U[l.Turb+i] * ooRho
	}
	if err = gm.UpdateThermoFromRhoU(&fs.GasState); err != nil {
		return
	}
	return
}

func decodeMassFractions(l Layout, U ConservedQuantities, ooRho float64, massF []float64) (err error) {
	var (
		sum     float64
		clipped bool
	)
	for i := range massF {
		y := U[l.Species+i] * ooRho
		if y < 0 {
			if y < -MassFractionTolerance {
				err = fmt.Errorf("%w: mass fraction %d is %g", ErrNonPhysical, i, y)
				return
			}
			y = 0
			clipped = true
		}
		massF[i] = y
		sum += y
	}
	if sum <= 0 {
		err = fmt.Errorf("%w: mass fractions sum to %g", ErrNonPhysical, sum)
		return
	}
	if clipped || math.Abs(sum-1) > MassFractionTolerance {
		for i := range massF {
			massF[i] /= sum
		}
	}
	return
}

// IsNonPhysical reports whether err came from a failed decode.
func IsNonPhysical(err error) bool {
	return errors.Is(err, ErrNonPhysical)
}
