package bc

import (
	"github.com/notargets/gofv/mesh"
	"github.com/notargets/gofv/state"
)

func interior(bnd *mesh.Boundary, m, layer int) *mesh.Cell {
	in := bnd.Interior[m]
	return in[min(layer, len(in)-1)]
}

// ExtrapolateCopy fills every ghost layer with the adjacent interior state.
type ExtrapolateCopy struct {
	Boundary *mesh.Boundary
}

func (ec *ExtrapolateCopy) Apply(t float64, stage int) (err error) {
	for m, ghosts := range ec.Boundary.Ghosts {
		for _, g := range ghosts {
			g.FS.CopyValues(ec.Boundary.Interior[m][0].FS)
		}
	}
	return
}

// Reflect mirrors the interior cells into the ghost layers with the velocity
// relative to the (possibly moving) face reflected. NoSlip reverses the whole
// relative velocity; otherwise only the normal component.
type Reflect struct {
	Boundary *mesh.Boundary
	Layout   state.Layout
	NoSlip   bool
}

func (r *Reflect) Apply(t float64, stage int) (err error) {
	for m, ghosts := range r.Boundary.Ghosts {
		var (
			f  = r.Boundary.Faces[m]
			n  = f.Frame.N
			gv = f.GridVel
		)
		for layer, g := range ghosts {
			src := interior(r.Boundary, m, layer).FS
			g.FS.CopyValues(src)
			rel := src.Vel.Sub(gv)
			if r.NoSlip {
				g.FS.Vel = gv.Sub(rel)
			} else {
				g.FS.Vel = src.Vel.Sub(n.Scale(2 * rel.Dot(n)))
			}
			if r.Layout.MHD() {
				g.FS.B = src.B.Sub(n.Scale(2 * src.B.Dot(n)))
			}
		}
	}
	return
}

// FixedState holds the ghosts at a prescribed state, such as a supersonic
// inflow.
type FixedState struct {
	Boundary *mesh.Boundary
	State    *state.FlowState
}

func (fs *FixedState) Apply(t float64, stage int) (err error) {
	for _, ghosts := range fs.Boundary.Ghosts {
		for _, g := range ghosts {
			g.FS.CopyValues(fs.State)
		}
	}
	return
}

// CopyGradients gives the ghosts the gradients of the adjacent interior cell.
type CopyGradients struct {
	Boundary *mesh.Boundary
}

func (cg *CopyGradients) Apply(t float64, stage int) (err error) {
	for m, ghosts := range cg.Boundary.Ghosts {
		for _, g := range ghosts {
			g.Grad = cg.Boundary.Interior[m][0].Grad
		}
	}
	return
}

// ConstantFlux imposes a fixed flux per unit area entering the domain,
// overriding the convective flux of every face.
type ConstantFlux struct {
	Boundary *mesh.Boundary
	Flux     state.ConservedQuantities
}

func (cf *ConstantFlux) Apply(t float64, stage int) (err error) {
	for m, f := range cf.Boundary.Faces {
		s := -cf.Boundary.Outsign[m]
		for i, v := range cf.Flux {
			f.F[i] = s * v
		}
	}
	return
}
