package flux

import (
	"github.com/notargets/gofv/mesh"
	"github.com/notargets/gofv/state"
)

// asf is the fourth order skew-symmetric central flux built from Kennedy and
// Gruber two point fluxes of the cell centre states. Faces without a two cell
// stencil on both sides use the second order pair flux of L and R.
func asf(c *Calculator, L, R *state.FlowState, face *mesh.Interface, factor float64, F state.ConservedQuantities) {
	if face == nil || !face.HasStencil() {
		c.kgPair(L, R, factor, F)
		return
	}
	var (
		lm1, l0 = c.stencil[0], c.stencil[1]
		r0, rp1 = c.stencil[2], c.stencil[3]
	)
	c.toLocal(face.Left[1].FS, lm1, face)
	c.toLocal(face.Left[0].FS, l0, face)
	c.toLocal(face.Right[0].FS, r0, face)
	c.toLocal(face.Right[1].FS, rp1, face)
	c.kgPair(l0, r0, factor*4./3., F)
	c.kgPair(lm1, r0, -factor/6., F)
	c.kgPair(l0, rp1, -factor/6., F)
}

// kgPair accumulates w times the Kennedy-Gruber flux between states a and b.
func (c *Calculator) kgPair(a, b *state.FlowState, w float64, F state.ConservedQuantities) {
	var (
		l   = c.Layout
		rho = 0.5 * (a.Rho + b.Rho)
		vel = a.Vel.Add(b.Vel).Scale(0.5)
		p   = 0.5 * (a.P + b.P)
		e   = 0.5 * (a.TotalEnergy(l) + b.TotalEnergy(l))
		m   = rho * vel[0]
	)
	c.addEuler(F, w, m, m*vel[0]+p, m*vel[1], m*vel[2], m*e+p*vel[0])
	c.passive(a, 0.5*w*m, F)
	c.passive(b, 0.5*w*m, F)
}
