package flux

import (
	"math"

	"github.com/notargets/gofv/state"
)

// physicalFlux evaluates the conserved vector U and the exact flux F along
// the local normal (x) for a state already in the face frame.
func (c *Calculator) physicalFlux(fs *state.FlowState, U, F state.ConservedQuantities) {
	var (
		l  = c.Layout
		un = fs.Vel[0]
	)
	state.Encode(l, fs, U)
	for i, u := range U {
		F[i] = u * un
	}
	F[l.XMom] += fs.P
	F[l.TotEnergy] += fs.P * un
	if l.MHD() {
		var (
			bn = fs.B[0]
			pm = 0.5 * fs.B.NormSq()
		)
		F[l.XMom] += pm - bn*fs.B[0]
		F[l.YMom] -= bn * fs.B[1]
		F[l.ZMom] -= bn * fs.B[2]
		F[l.TotEnergy] += pm*un - bn*fs.Vel.Dot(fs.B)
		F[l.XB] = 0
		F[l.YB] = un*fs.B[1] - fs.Vel[1]*bn
		F[l.ZB] = un*fs.B[2] - fs.Vel[2]*bn
		if l.DivergenceCleaning() {
			F[l.Psi] = 0
		}
	}
}

// hllCombine accumulates the HLL average of the L and R fluxes held in the
// calculator scratch vectors, skipping the listed slots.
func (c *Calculator) hllCombine(sL, sR, factor float64, F state.ConservedQuantities, skip ...int) {
	var (
		oo = factor / (sR - sL)
	)
outer:
	for i := range F {
		for _, s := range skip {
			if i == s {
				continue outer
			}
		}
		F[i] += oo * (sR*c.fL[i] - sL*c.fR[i] + sL*sR*(c.uR[i]-c.uL[i]))
	}
}

// roeAverage holds the density weighted averages of two states.
type roeAverage struct {
	rho, u, v, w, h, a float64
	wL, wR             float64 // sqrt(rho) weights normalised to sum to one
}

func (c *Calculator) roeAverage(L, R *state.FlowState) (ra roeAverage) {
	var (
		sL, sR = math.Sqrt(L.Rho), math.Sqrt(R.Rho)
		oo     = 1. / (sL + sR)
	)
	ra.wL, ra.wR = sL*oo, sR*oo
	ra.rho = sL * sR
	ra.u = ra.wL*L.Vel[0] + ra.wR*R.Vel[0]
	ra.v = ra.wL*L.Vel[1] + ra.wR*R.Vel[1]
	ra.w = ra.wL*L.Vel[2] + ra.wR*R.Vel[2]
	ra.h = ra.wL*L.TotalEnthalpy() + ra.wR*R.TotalEnthalpy()
	gm1 := 0.5*(c.Gas.Gamma(&L.GasState)+c.Gas.Gamma(&R.GasState)) - 1
	a2 := gm1 * (ra.h - 0.5*(ra.u*ra.u+ra.v*ra.v+ra.w*ra.w))
	if a2 > 0 {
		ra.a = math.Sqrt(a2)
	} else {
		ra.a = 0.5 * (L.A + R.A)
	}
	return
}

// einfeldtSpeed is the Einfeldt estimate of the averaged sound speed.
func einfeldtSpeed(L, R *state.FlowState, ra roeAverage) float64 {
	var (
		sL, sR = math.Sqrt(L.Rho), math.Sqrt(R.Rho)
		eta2   = 0.5 * sL * sR / ((sL + sR) * (sL + sR))
		du     = R.Vel[0] - L.Vel[0]
	)
	d2 := ra.wL*L.A*L.A + ra.wR*R.A*R.A + eta2*du*du
	return math.Sqrt(d2)
}

// waveSpeeds returns the Einfeldt bounds on the left and right running waves.
func (c *Calculator) waveSpeeds(L, R *state.FlowState) (sL, sR float64) {
	var (
		ra = c.roeAverage(L, R)
		d  = einfeldtSpeed(L, R, ra)
	)
	sL = math.Min(L.Vel[0]-L.A, ra.u-d)
	sR = math.Max(R.Vel[0]+R.A, ra.u+d)
	return
}
