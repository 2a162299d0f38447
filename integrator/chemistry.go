package integrator

import (
	"fmt"
	"strings"

	"github.com/notargets/gofv/gas"
	"github.com/notargets/gofv/mesh"
	"github.com/notargets/gofv/state"
)

// Chemistry advances the thermochemical state of a cell over dt at fixed
// density and internal energy.
type Chemistry interface {
	Update(fs *state.FlowState, dt float64) error
}

// ModeRelaxation is the chemistry update of a gas whose only reactions are
// the exchanges between its energy modes.
type ModeRelaxation struct {
	*gas.Relaxation
}

func (mr ModeRelaxation) Update(fs *state.FlowState, dt float64) error {
	return mr.Relax(&fs.GasState, dt)
}

type ChemistrySplit uint8

const (
	ChemistryNone ChemistrySplit = iota
	ChemistryStrang
	ChemistryFull
)

var ChemistrySplitNames = map[string]ChemistrySplit{
	"none":   ChemistryNone,
	"strang": ChemistryStrang,
	"full":   ChemistryFull,
}

func (cs ChemistrySplit) String() string {
	return []string{"none", "strang", "full"}[cs]
}

func ParseChemistrySplit(label string) (cs ChemistrySplit, err error) {
	var ok bool
	if cs, ok = ChemistrySplitNames[strings.ToLower(label)]; !ok {
		err = fmt.Errorf("unknown chemistry splitting %q", label)
	}
	return
}

// chemistryStep updates every cell of b and re-encodes level 0.
func chemistryStep(b *mesh.Block, chem Chemistry, dt float64) (err error) {
	for _, c := range b.Cells {
		if err = chem.Update(c.FS, dt); err != nil {
			return fmt.Errorf("block %d cell %d chemistry: %w", b.ID, c.ID, err)
		}
		state.Encode(b.Layout, c.FS, c.U[0])
	}
	return
}
