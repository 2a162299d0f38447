package flux

import (
	"math"

	"github.com/notargets/gofv/mesh"
	"github.com/notargets/gofv/state"
)

// efm is Pullin's equilibrium flux method: each side contributes the half
// range moments of its Maxwellian.
func efm(c *Calculator, L, R *state.FlowState, _ *mesh.Interface, factor float64, F state.ConservedQuantities) {
	var (
		mfL, momL, eL = halfRange(L, 1)
		mfR, momR, eR = halfRange(R, -1)
	)
	c.addEuler(F, factor,
		mfL+mfR,
		momL+momR,
		mfL*L.Vel[1]+mfR*R.Vel[1],
		mfL*L.Vel[2]+mfR*R.Vel[2],
		eL+eR)
	c.passive(L, factor*mfL, F)
	c.passive(R, factor*mfR, F)
}

// halfRange integrates the molecules moving in direction dir (+1 or -1).
func halfRange(fs *state.FlowState, dir float64) (mass, mom, energy float64) {
	var (
		rho, p, u = fs.Rho, fs.P, fs.Vel[0]
		h         = fs.TotalEnthalpy()
		beta      = rho / (2 * p)
		s         = u * math.Sqrt(beta)
		w         = 0.5 * (1 + dir*math.Erf(s))
		d         = dir * math.Exp(-s*s) / (2 * math.Sqrt(math.Pi*beta))
	)
	mass = rho * (u*w + d)
	mom = (p+rho*u*u)*w + rho*u*d
	energy = rho*u*h*w + rho*d*(h-0.5*p/rho)
	return
}
