package state

import (
	"errors"
	"fmt"

	"github.com/notargets/gofv/gas"
)

var ErrGasMismatch = errors.New("gas model does not match the layout")

// Layout describes the slots of every conserved-quantity and flux vector of a
// run. It is built once from the configured capabilities and passed by value,
// so no component can change it after construction.
type Layout struct {
	nSpecies, nModes, nTurb int
	mhd, cleaning           bool

	Mass, XMom, YMom, ZMom, TotEnergy int
	Species, Modes, Turb             int // first slot of each group, -1 if absent
	XB, YB, ZB, Psi                  int // -1 if absent
	N                                int
	names                            []string
}

// NewLayout builds the descriptor. Species slots are only present when more
// than one species is configured; the divergence-cleaning scalar requires MHD.
func NewLayout(nSpecies, nModes, nTurb int, mhd, cleaning bool) (l Layout, err error) {
	if nSpecies < 1 || nModes < 0 || nTurb < 0 {
		err = fmt.Errorf("invalid layout: %d species, %d modes, %d turbulence scalars",
			nSpecies, nModes, nTurb)
		return
	}
	if cleaning && !mhd {
		err = fmt.Errorf("invalid layout: divergence cleaning requires MHD")
		return
	}
	l = Layout{
		nSpecies: nSpecies, nModes: nModes, nTurb: nTurb, mhd: mhd, cleaning: cleaning,
		Species: -1, Modes: -1, Turb: -1, XB: -1, YB: -1, ZB: -1, Psi: -1,
	}
	add := func(name string) (slot int) {
		slot = l.N
		l.names = append(l.names, name)
		l.N++
		return
	}
	l.Mass = add("mass")
	l.XMom = add("x-mom")
	l.YMom = add("y-mom")
	l.ZMom = add("z-mom")
	l.TotEnergy = add("total-energy")
	if nSpecies > 1 {
		l.Species = l.N
		for i := 0; i < nSpecies; i++ {
			add(fmt.Sprintf("species-%d", i))
		}
	}
	if nModes > 0 {
		l.Modes = l.N
		for i := 0; i < nModes; i++ {
			add(fmt.Sprintf("mode-energy-%d", i))
		}
	}
	if nTurb > 0 {
		l.Turb = l.N
		for i := 0; i < nTurb; i++ {
			add(fmt.Sprintf("turb-%d", i))
		}
	}
	if mhd {
		l.XB = add("x-B")
		l.YB = add("y-B")
		l.ZB = add("z-B")
		if cleaning {
			l.Psi = add("psi")
		}
	}
	return
}

func (l Layout) NSpecies() int            { return l.nSpecies }
func (l Layout) NModes() int              { return l.nModes }
func (l Layout) NTurb() int               { return l.nTurb }
func (l Layout) MHD() bool                { return l.mhd }
func (l Layout) DivergenceCleaning() bool { return l.cleaning }

// MultiSpecies is true when species slots are carried.
func (l Layout) MultiSpecies() bool { return l.nSpecies > 1 }

func (l Layout) SlotName(i int) string { return l.names[i] }

// CheckGas reports a gas model whose species or energy modes differ from the
// slots of the layout.
func (l Layout) CheckGas(gm gas.Model) error {
	if gm.NSpecies() != l.nSpecies || gm.NModes() != l.nModes {
		return fmt.Errorf("%w: layout has %d species and %d modes, gas has %d and %d", ErrGasMismatch,
			l.nSpecies, l.nModes, gm.NSpecies(), gm.NModes())
	}
	return nil
}

func (l Layout) NewConserved() ConservedQuantities {
	return make(ConservedQuantities, l.N)
}

func (l Layout) String() string {
	return fmt.Sprintf("Layout{N=%d species=%d modes=%d turb=%d mhd=%v cleaning=%v}",
		l.N, l.nSpecies, l.nModes, l.nTurb, l.mhd, l.cleaning)
}

type ConservedQuantities []float64

func (cq ConservedQuantities) Clear() {
	for i := range cq {
		cq[i] = 0
	}
}

func (cq ConservedQuantities) CopyValues(src ConservedQuantities) {
	copy(cq, src)
}

// AddScaled accumulates s*src into cq.
func (cq ConservedQuantities) AddScaled(src ConservedQuantities, s float64) {
	for i, v := range src {
		cq[i] += s * v
	}
}
