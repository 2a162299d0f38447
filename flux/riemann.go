package flux

import (
	"math"

	"github.com/notargets/gofv/mesh"
	"github.com/notargets/gofv/state"
)

// hllc restores the contact wave to the HLL solver, using Einfeldt's bounds
// on the acoustic waves.
func hllc(c *Calculator, L, R *state.FlowState, _ *mesh.Interface, factor float64, F state.ConservedQuantities) {
	var (
		l      = c.Layout
		sL, sR = c.waveSpeeds(L, R)
		rL, uL = L.Rho, L.Vel[0]
		rR, uR = R.Rho, R.Vel[0]
		sStar  = (R.P - L.P + rL*uL*(sL-uL) - rR*uR*(sR-uR)) / (rL*(sL-uL) - rR*(sR-uR))
	)
	c.physicalFlux(L, c.uL, c.fL)
	c.physicalFlux(R, c.uR, c.fR)
	var (
		fs     = L
		fK, uK = c.fL, c.uL
		sK     = sL
	)
	if sStar < 0 {
		fs, fK, uK, sK = R, c.fR, c.uR, sR
	}
	if sL >= 0 || sR <= 0 {
		for i := range F {
			F[i] += factor * fK[i]
		}
		return
	}
	var (
		u      = fs.Vel[0]
		fac    = (sK - u) / (sK - sStar)
		rhoS   = fs.Rho * fac
		eS     = fac * (uK[l.TotEnergy] + (sStar-u)*(fs.Rho*sStar+fs.P/(sK-u)))
		mass   = fK[l.Mass] + sK*(rhoS-uK[l.Mass])
		momN   = fK[l.XMom] + sK*(rhoS*sStar-uK[l.XMom])
		momT1  = fK[l.YMom] + sK*(rhoS*fs.Vel[1]-uK[l.YMom])
		momT2  = fK[l.ZMom] + sK*(rhoS*fs.Vel[2]-uK[l.ZMom])
		energy = fK[l.TotEnergy] + sK*(eS-uK[l.TotEnergy])
	)
	c.addEuler(F, factor, mass, momN, momT1, momT2, energy)
	c.passive(fs, factor*mass, F)
}

// hlle is the HLL solver with Einfeldt's wave speed bounds.
func hlle(c *Calculator, L, R *state.FlowState, _ *mesh.Interface, factor float64, F state.ConservedQuantities) {
	sL, sR := c.waveSpeeds(L, R)
	hllFlux(c, L, R, math.Min(sL, 0), math.Max(sR, 0), factor, F)
}

// hlle2 bounds the waves with the Roe averaged sound speed.
func hlle2(c *Calculator, L, R *state.FlowState, _ *mesh.Interface, factor float64, F state.ConservedQuantities) {
	var (
		ra = c.roeAverage(L, R)
		sL = math.Min(L.Vel[0]-L.A, ra.u-ra.a)
		sR = math.Max(R.Vel[0]+R.A, ra.u+ra.a)
	)
	hllFlux(c, L, R, math.Min(sL, 0), math.Max(sR, 0), factor, F)
}

func hllFlux(c *Calculator, L, R *state.FlowState, sL, sR, factor float64, F state.ConservedQuantities) {
	c.physicalFlux(L, c.uL, c.fL)
	c.physicalFlux(R, c.uR, c.fR)
	c.hllCombine(sL, sR, factor, F)
}

// roe is the five wave Roe solver with Harten's entropy fix on the
// eigenvalues.
func roe(c *Calculator, L, R *state.FlowState, _ *mesh.Interface, factor float64, F state.ConservedQuantities) {
	var (
		l     = c.Layout
		ra    = c.roeAverage(L, R)
		a, a2 = ra.a, ra.a * ra.a
		dRho  = R.Rho - L.Rho
		du    = R.Vel.Sub(L.Vel)
		dp    = R.P - L.P
		delta = c.Config.RoeEntropyFix * a
		q2    = ra.u*ra.u + ra.v*ra.v + ra.w*ra.w
	)
	fix := func(lambda float64) float64 {
		al := math.Abs(lambda)
		if al < delta {
			return (lambda*lambda + delta*delta) / (2 * delta)
		}
		return al
	}
	// Wave strengths scaled by the corrected eigenvalues
	var (
		dW1 = fix(ra.u-a) * (dp - ra.rho*a*du[0]) / (2 * a2)
		dW2 = fix(ra.u) * (dRho - dp/a2)
		dW3 = fix(ra.u) * ra.rho * du[1]
		dW4 = fix(ra.u) * ra.rho * du[2]
		dW5 = fix(ra.u+a) * (dp + ra.rho*a*du[0]) / (2 * a2)
	)
	c.physicalFlux(L, c.uL, c.fL)
	c.physicalFlux(R, c.uR, c.fR)
	var (
		mass   = 0.5*(c.fL[l.Mass]+c.fR[l.Mass]) - 0.5*(dW1+dW2+dW5)
		momN   = 0.5*(c.fL[l.XMom]+c.fR[l.XMom]) - 0.5*(dW1*(ra.u-a)+dW2*ra.u+dW5*(ra.u+a))
		momT1  = 0.5*(c.fL[l.YMom]+c.fR[l.YMom]) - 0.5*((dW1+dW2+dW5)*ra.v+dW3)
		momT2  = 0.5*(c.fL[l.ZMom]+c.fR[l.ZMom]) - 0.5*((dW1+dW2+dW5)*ra.w+dW4)
		energy = 0.5*(c.fL[l.TotEnergy]+c.fR[l.TotEnergy]) -
			0.5*(dW1*(ra.h-ra.u*a)+0.5*dW2*q2+dW3*ra.v+dW4*ra.w+dW5*(ra.h+ra.u*a))
	)
	c.addEuler(F, factor, mass, momN, momT1, momT2, energy)
	c.passiveUpwind(L, R, factor*mass, F)
}

// hlleMHD is the HLLE solver for ideal MHD. With divergence cleaning the
// normal field and the cleaning scalar come from the exact solution of their
// decoupled two wave system.
func hlleMHD(c *Calculator, L, R *state.FlowState, _ *mesh.Interface, factor float64, F state.ConservedQuantities) {
	var (
		l          = c.Layout
		bnL, bnR   = L.B[0], R.B[0]
		bnI, psiI  float64
		cleaning   = l.DivergenceCleaning() && c.ch > 0
		psiL, psiR = L.Psi, R.Psi
	)
	bnI = 0.5 * (bnL + bnR)
	if cleaning {
		bnI -= 0.5 * (psiR - psiL) / c.ch
		psiI = 0.5*(psiL+psiR) - 0.5*c.ch*(bnR-bnL)
	}
	// The scratch states belong to the calculator, so the interface normal
	// field can be substituted in place.
	L.B[0], R.B[0] = bnI, bnI
	var (
		cfL = fastSpeed(L)
		cfR = fastSpeed(R)
		sL  = math.Min(0, math.Min(L.Vel[0]-cfL, R.Vel[0]-cfR))
		sR  = math.Max(0, math.Max(L.Vel[0]+cfL, R.Vel[0]+cfR))
	)
	c.physicalFlux(L, c.uL, c.fL)
	c.physicalFlux(R, c.uR, c.fR)
	skip := []int{l.XB}
	if l.DivergenceCleaning() {
		skip = append(skip, l.Psi)
	}
	c.hllCombine(sL, sR, factor, F, skip...)
	if cleaning {
		F[l.XB] += factor * psiI
		F[l.Psi] += factor * c.ch * c.ch * bnI
	}
}

// fastSpeed is the fast magnetosonic speed along the local normal.
func fastSpeed(fs *state.FlowState) float64 {
	var (
		a2  = fs.A * fs.A
		b2  = fs.B.NormSq() / fs.Rho
		bn2 = fs.B[0] * fs.B[0] / fs.Rho
		s   = a2 + b2
	)
	return math.Sqrt(0.5 * (s + math.Sqrt(math.Max(s*s-4*a2*bn2, 0))))
}
