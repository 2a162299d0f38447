package gas

import (
	"fmt"
	"math"
)

// Relaxation exchanges energy between the translational temperature and each
// extra energy mode at fixed density and internal energy, at the Landau-Teller
// rate dTm/dt = (T - Tm) / Tau. Modes relax one after the other, each with the
// exact solution of its two temperature system.
type Relaxation struct {
	Gas *IdealGas
	Tau []float64 // relaxation time of each mode
}

func NewRelaxation(ig *IdealGas, tau []float64) (r *Relaxation, err error) {
	if len(tau) != ig.NModes() {
		return nil, fmt.Errorf("relaxation needs %d mode times, have %d", ig.NModes(), len(tau))
	}
	for m, t := range tau {
		if !(t > 0) {
			return nil, fmt.Errorf("energy mode %q: relaxation time must be positive, have %g",
				ig.modes[m].Name, t)
		}
	}
	return &Relaxation{Gas: ig, Tau: tau}, nil
}

// Relax advances gs over dt and refreshes its thermodynamic and transport
// properties.
func (r *Relaxation) Relax(gs *GasState, dt float64) (err error) {
	var (
		ig    = r.Gas
		_, cv = ig.mixture(gs)
	)
	for m, mode := range ig.modes {
		var (
			cm = mode.Cv
			e  = gs.U + gs.UModes[m]
			d  = (gs.U/cv - gs.UModes[m]/cm) * math.Exp(-(1+cm/cv)*dt/r.Tau[m])
			T  = (e + cm*d) / (cv + cm)
		)
		gs.U = cv * T
		gs.UModes[m] = cm * (T - d)
	}
	if err = ig.UpdateThermoFromRhoU(gs); err != nil {
		return
	}
	ig.UpdateTransCoeffs(gs)
	return
}
