package flux

import (
	"math"

	"github.com/notargets/gofv/mesh"
	"github.com/notargets/gofv/state"
)

// Edwards' low diffusion flux splitting. LDFSS0 drops the pressure weighting
// of the interface Mach number correction, LDFSS2 keeps it.
func ldfss0(c *Calculator, L, R *state.FlowState, face *mesh.Interface, factor float64, F state.ConservedQuantities) {
	ldfss(c, L, R, 0, factor, F)
}

func ldfss2(c *Calculator, L, R *state.FlowState, face *mesh.Interface, factor float64, F state.ConservedQuantities) {
	ldfss(c, L, R, c.Config.LDFSSDelta, factor, F)
}

func ldfss(c *Calculator, L, R *state.FlowState, delta, factor float64, F state.ConservedQuantities) {
	var (
		pL, uL = L.P, L.Vel[0]
		pR, uR = R.P, R.Vel[0]
		aHalf  = 0.5 * (L.A + R.A)
		mL, mR = uL / aHalf, uR / aHalf
		alphaL = 0.5 * (1 + sign(mL))
		alphaR = 0.5 * (1 - sign(mR))
		betaL  = -math.Max(0, 1-math.Floor(math.Abs(mL)))
		betaR  = -math.Max(0, 1-math.Floor(math.Abs(mR)))
		mpL    = 0.25 * (mL + 1) * (mL + 1)
		mmR    = -0.25 * (mR - 1) * (mR - 1)
		cvlP   = alphaL*(1+betaL)*mL - betaL*mpL
		cvlM   = alphaR*(1+betaR)*mR - betaR*mmR
		mHalf  = 0.25 * betaL * betaR * math.Pow(math.Sqrt(0.5*(mL*mL+mR*mR))-1, 2)
		dp     = pL - pR
		a2     = aHalf * aHalf
		mHalfP = mHalf * (1 - (dp+delta*math.Abs(dp))/(2*L.Rho*a2))
		mHalfM = mHalf * (1 + (dp-delta*math.Abs(dp))/(2*R.Rho*a2))
		cPlus  = cvlP - mHalfP
		cMinus = cvlM + mHalfM
		dL     = alphaL*(1+betaL) - betaL*mpL*(2-mL)
		dR     = alphaR*(1+betaR) - betaR*0.25*(mR-1)*(mR-1)*(2+mR)
	)
	c.splitFluxes(L, R, aHalf*L.Rho*cPlus, aHalf*R.Rho*cMinus, dL*pL+dR*pR, factor, F)
}

func sign(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}
