package model_problems

import (
	"fmt"
	"math"

	"github.com/notargets/gofv/gas"
	"github.com/notargets/gofv/geometry"
	"github.com/notargets/gofv/state"
)

// Physics widens the transported state of a case beyond a single gas. The
// initial flow of the case still sets rho, p and velocity; Physics fills in
// the composition, mode temperatures, turbulence scalars and field.
type Physics struct {
	// Gas replaces the gas of the case when set.
	Gas *gas.IdealGas
	// MassF is the initial composition, the first species alone when empty.
	MassF []float64
	// TModes are the initial mode temperatures, the translational temperature
	// when empty.
	TModes        []float64
	NTurb         int
	Turb          []float64
	MHD, Cleaning bool
	B             geometry.Vector3
}

// SetPhysics rebuilds the layout of c from its gas and p. Blocks built before
// the call keep the old layout.
func (c *Case) SetPhysics(p Physics) (err error) {
	var (
		gm gas.Model = c.Gas
		l  state.Layout
	)
	if p.Gas != nil {
		gm = p.Gas
	}
	if l, err = state.NewLayout(gm.NSpecies(), gm.NModes(), p.NTurb, p.MHD, p.Cleaning); err != nil {
		return fmt.Errorf("%s: %w", c.Name, err)
	}
	switch {
	case len(p.MassF) != 0 && len(p.MassF) != gm.NSpecies():
		return fmt.Errorf("%s: %d mass fractions for %d species", c.Name, len(p.MassF), gm.NSpecies())
	case len(p.TModes) != 0 && len(p.TModes) != gm.NModes():
		return fmt.Errorf("%s: %d mode temperatures for %d modes", c.Name, len(p.TModes), gm.NModes())
	case len(p.Turb) != 0 && len(p.Turb) != p.NTurb:
		return fmt.Errorf("%s: %d turbulence values for %d scalars", c.Name, len(p.Turb), p.NTurb)
	}
	if len(p.MassF) > 0 {
		var sum float64
		for i, y := range p.MassF {
			if y < 0 {
				return fmt.Errorf("%s: mass fraction of %s is negative", c.Name, gm.SpeciesName(i))
			}
			sum += y
		}
		if math.Abs(sum-1) > 1e-9 {
			return fmt.Errorf("%s: mass fractions sum to %g", c.Name, sum)
		}
	}
	for m, tm := range p.TModes {
		if !(tm > 0) {
			return fmt.Errorf("%s: mode %d temperature must be positive, have %g", c.Name, m, tm)
		}
	}
	initial := c.Initial
	c.Layout, c.Gas = l, gm
	c.Initial = func(pos geometry.Vector3, fs *state.FlowState) {
		initial(pos, fs)
		if len(p.MassF) > 0 {
			copy(fs.MassF, p.MassF)
		}
		if len(p.TModes) > 0 {
			copy(fs.TModes, p.TModes)
		} else if len(fs.TModes) > 0 {
			T := fs.P / (fs.Rho * gm.GasConstant(&fs.GasState, -1))
			for m := range fs.TModes {
				fs.TModes[m] = T
			}
		}
		copy(fs.Turb, p.Turb)
		fs.B = p.B
	}
	return
}
