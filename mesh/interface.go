package mesh

import (
	"github.com/notargets/gofv/geometry"
	"github.com/notargets/gofv/state"
)

// Interface is a face between two cells. The normal points from the Left
// stencil to the Right stencil; both stencils are ordered nearest first.
type Interface struct {
	ID         int
	Pos        geometry.Vector3
	Frame      geometry.Frame
	Area       float64
	GridVel    geometry.Vector3
	Left       []*Cell
	Right      []*Cell
	F          state.ConservedQuantities
	Alpha      float64 // shock indicator used by the adaptive flux pairs
	FS         *state.FlowState
	FaceState  bool    // FS was set by a boundary action
	HeatFlux   float64 // conductive energy flux along +n per unit area
	Vertices   []int
	BoundaryID int // -1 for faces inside the block
}

func newInterface(id int, l state.Layout) *Interface {
	return &Interface{
		ID:         id,
		F:          l.NewConserved(),
		FS:         state.NewFlowState(l),
		BoundaryID: -1,
	}
}

// Normal is the unit normal of the face.
func (f *Interface) Normal() geometry.Vector3 {
	return f.Frame.N
}

// HasStencil reports whether two cells are available on each side.
func (f *Interface) HasStencil() bool {
	return len(f.Left) > 1 && len(f.Right) > 1
}
