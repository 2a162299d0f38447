package integrator

import (
	"github.com/notargets/gofv/geometry"
	"github.com/notargets/gofv/mesh"
	"github.com/notargets/gofv/state"
)

// SourceTerms adds user defined sources per unit volume to q.
type SourceTerms interface {
	Evaluate(t float64, pos geometry.Vector3, fs *state.FlowState, q state.ConservedQuantities) error
}

// addSources fills c.Q for time t. The rotating frame adds centrifugal and
// Coriolis momentum sources about z; the energy effect of the frame is
// carried by the rothalpy correction of the fluxes. Divergence cleaning
// damps psi at the rate ch/(cr*L).
func addSources(c *mesh.Cell, l state.Layout, omegaZ, ch, cr float64, udf SourceTerms, t float64) (err error) {
	var (
		q  = c.Q
		fs = c.FS
	)
	q.Clear()
	if w := omegaZ; w != 0 {
		q[l.XMom] += fs.Rho * (w*w*c.Pos[0] + 2*w*fs.Vel[1])
		q[l.YMom] += fs.Rho * (w*w*c.Pos[1] - 2*w*fs.Vel[0])
	}
	if l.DivergenceCleaning() && ch > 0 {
		q[l.Psi] -= fs.Psi * ch / (cr * c.L)
	}
	if udf != nil {
		err = udf.Evaluate(t, c.Pos, fs, q)
	}
	return
}
