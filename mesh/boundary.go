package mesh

import (
	"fmt"

	"github.com/notargets/gofv/types"
)

// Action is one effect in a boundary pipeline.
type Action interface {
	Apply(t float64, stage int) error
}

// ActionList runs its actions in order and stops at the first error.
type ActionList []Action

func (al ActionList) Apply(t float64, stage int) (err error) {
	for i, a := range al {
		if err = a.Apply(t, stage); err != nil {
			err = fmt.Errorf("action %d (%T): %w", i, a, err)
			return
		}
	}
	return
}

// Boundary groups the faces of one block side with their interior and ghost
// cells and the four ordered action lists applied at fixed points of a stage.
type Boundary struct {
	ID       int
	Name     string
	Kind     types.BCKind
	Faces    []*Interface
	Outsign  []float64 // +1 when the interior cell is on the Left of the face
	Interior [][]*Cell // per face, nearest first
	Ghosts   [][]*Cell // per face, nearest first

	PreReconstruction    ActionList
	PreSpatialDerivative ActionList
	PostConvectiveFlux   ActionList
	PostDiffusiveFlux    ActionList
}

func (bnd *Boundary) NumGhostLayers() int {
	if len(bnd.Ghosts) == 0 {
		return 0
	}
	return len(bnd.Ghosts[0])
}

func (bnd *Boundary) String() string {
	return fmt.Sprintf("boundary %d %q (%s, %d faces)", bnd.ID, bnd.Name, bnd.Kind, len(bnd.Faces))
}
