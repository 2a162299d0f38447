package solid

import (
	"fmt"
	"strings"
)

type Coupling uint8

const (
	CouplingNone Coupling = iota
	CouplingLoose
	CouplingTight
)

var CouplingNames = map[string]Coupling{
	"none":  CouplingNone,
	"loose": CouplingLoose,
	"tight": CouplingTight,
}

func (cm Coupling) String() string {
	return []string{"none", "loose", "tight"}[cm]
}

func ParseCoupling(label string) (cm Coupling, err error) {
	var ok bool
	if cm, ok = CouplingNames[strings.ToLower(label)]; !ok {
		err = fmt.Errorf("unknown solid coupling %q", label)
	}
	return
}

// Adapter advances every coupled slab of a rank in the mode of the run. The
// gas side talks to each slab through its boundary actions.
type Adapter struct {
	Mode  Coupling
	Slabs []*Slab
}

func NewAdapter(mode Coupling, slabs ...*Slab) *Adapter {
	return &Adapter{Mode: mode, Slabs: slabs}
}

// SubStep runs one stage of the gas scheme on every slab. It does nothing
// unless the coupling is tight.
func (ad *Adapter) SubStep(t, dt float64, stage int, a, b []float64) {
	if ad.Mode != CouplingTight {
		return
	}
	for _, s := range ad.Slabs {
		s.SubStep(dt, stage, a, b)
	}
}

// Swap finishes a tightly coupled step.
func (ad *Adapter) Swap(finalLevel int) {
	if ad.Mode != CouplingTight {
		return
	}
	for _, s := range ad.Slabs {
		s.Swap(finalLevel)
	}
}

// FullStep advances every slab over a whole gas step. It does nothing unless
// the coupling is loose.
func (ad *Adapter) FullStep(t, dt float64) (err error) {
	if ad.Mode != CouplingLoose {
		return
	}
	for i, s := range ad.Slabs {
		if err = s.FullStep(dt); err != nil {
			return fmt.Errorf("slab %d at t=%g: %w", i, t, err)
		}
	}
	return
}
