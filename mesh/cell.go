package mesh

import (
	"github.com/notargets/gofv/geometry"
	"github.com/notargets/gofv/state"
)

// Gradients holds cell centred gradients used by the diffusive fluxes.
type Gradients struct {
	Vel [3]geometry.Vector3 // gradient of each velocity component
	T   geometry.Vector3
}

// Cell owns its geometry, the conserved state at every time level and the
// flow state decoded from U[0]. Ghost cells only carry geometry and FS.
type Cell struct {
	ID       int
	Pos      geometry.Vector3
	Volume   []float64 // one per grid time level
	L        float64   // characteristic length for the CFL estimate
	U        []state.ConservedQuantities
	DUDt     []state.ConservedQuantities
	Q        state.ConservedQuantities // source terms
	FS       *state.FlowState
	Faces    []*Interface
	Outsign  []float64
	Vertices []int
	Ghost    bool
	Grad     Gradients
}

func newCell(id int, l state.Layout, nStages int, ghost bool) (c *Cell) {
	c = &Cell{
		ID:     id,
		Volume: make([]float64, nStages+1),
		FS:     state.NewFlowState(l),
		Ghost:  ghost,
	}
	if ghost {
		return
	}
	c.U = make([]state.ConservedQuantities, nStages+1)
	for i := range c.U {
		c.U[i] = l.NewConserved()
	}
	c.DUDt = make([]state.ConservedQuantities, nStages)
	for i := range c.DUDt {
		c.DUDt[i] = l.NewConserved()
	}
	c.Q = l.NewConserved()
	return
}

func (c *Cell) addFace(f *Interface, outsign float64) {
	c.Faces = append(c.Faces, f)
	c.Outsign = append(c.Outsign, outsign)
}

// Neighbours returns the cells on the far side of each face.
func (c *Cell) Neighbours() (nbrs []*Cell) {
	for i, f := range c.Faces {
		var side []*Cell
		if c.Outsign[i] > 0 {
			side = f.Right
		} else {
			side = f.Left
		}
		if len(side) > 0 {
			nbrs = append(nbrs, side[0])
		}
	}
	return
}

// TimeDerivative evaluates dU/dt from the face fluxes and the source vector,
// storing it in DUDt[stage]. gtl selects the volume of the current geometry.
func (c *Cell) TimeDerivative(stage, gtl int) {
	var (
		dudt  = c.DUDt[stage]
		ooVol = 1. / c.Volume[gtl]
	)
	dudt.Clear()
	for i, f := range c.Faces {
		dudt.AddScaled(f.F, -c.Outsign[i]*f.Area)
	}
	for i := range dudt {
		dudt[i] = dudt[i]*ooVol + c.Q[i]
	}
}
