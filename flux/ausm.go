package flux

import (
	"math"

	"github.com/notargets/gofv/mesh"
	"github.com/notargets/gofv/state"
)

// ausmdv is the Wada and Liou blend of the AUSMD and AUSMV momentum fluxes
// with the shock entropy fix on the sonic expansion cases.
func ausmdv(c *Calculator, L, R *state.FlowState, _ *mesh.Interface, factor float64, F state.ConservedQuantities) {
	var (
		rL, pL, uL = L.Rho, L.P, L.Vel[0]
		rR, pR, uR = R.Rho, R.P, R.Vel[0]
		aL, aR     = L.A, R.A
		hL, hR     = L.TotalEnthalpy(), R.TotalEnthalpy()
		am         = math.Max(aL, aR)
		alphaL     = 2 * (pL / rL) / (pL/rL + pR/rR)
		alphaR     = 2 * (pR / rR) / (pL/rL + pR/rR)
		dUL        = 0.5 * (uL + math.Abs(uL))
		dUR        = 0.5 * (uR - math.Abs(uR))
		mL, mR     = uL / am, uR / am
		pLplus, uLplus, pRminus, uRminus float64
	)
	if math.Abs(mL) <= 1 {
		pLplus = pL * (mL + 1) * (mL + 1) * (2 - mL) * 0.25
		uLplus = alphaL*0.25*(uL+am)*(uL+am)/am + (1-alphaL)*dUL
	} else {
		pLplus = pL * dUL / uL
		uLplus = dUL
	}
	if math.Abs(mR) <= 1 {
		pRminus = pR * (mR - 1) * (mR - 1) * (2 + mR) * 0.25
		uRminus = -alphaR*0.25*(uR-am)*(uR-am)/am + (1-alphaR)*dUR
	} else {
		pRminus = pR * dUR / uR
		uRminus = dUR
	}
	var (
		ruHalf   = uLplus*rL + uRminus*rR
		ru2V     = uLplus*rL*uL + uRminus*rR*uR
		ru2D     = 0.5 * (ruHalf*(uL+uR) - math.Abs(ruHalf)*(uR-uL))
		pHalf    = pLplus + pRminus
		s        = 0.5 * math.Min(1, c.Config.AUSMDVKSwitch*math.Abs(pR-pL)/math.Min(pL, pR))
		ru2Half  = (0.5+s)*ru2V + (0.5-s)*ru2D
		mass     = ruHalf
		momN     = ru2Half + pHalf
		up       = L
		h        = hL
		momT1    float64
		momT2    float64
		energy   float64
		caseA    = (uL-aL) < 0 && (uR-aR) > 0
		caseB    = (uL+aL) < 0 && (uR+aR) > 0
		dua      float64
	)
	if ruHalf < 0 {
		up, h = R, hR
	}
	momT1, momT2, energy = ruHalf*up.Vel[1], ruHalf*up.Vel[2], ruHalf*h
	switch {
	case caseA && !caseB:
		dua = c.Config.AUSMDVCEfix * ((uR - aR) - (uL - aL))
	case caseB && !caseA:
		dua = c.Config.AUSMDVCEfix * ((uR + aR) - (uL + aL))
	}
	if dua != 0 {
		mass -= dua * (rR - rL)
		momN -= dua * (rR*uR - rL*uL)
		momT1 -= dua * (rR*R.Vel[1] - rL*L.Vel[1])
		momT2 -= dua * (rR*R.Vel[2] - rL*L.Vel[2])
		energy -= dua * (rR*hR - rL*hL)
	}
	c.addEuler(F, factor, mass, momN, momT1, momT2, energy)
	c.passiveUpwind(L, R, factor*mass, F)
}

// ausmPlusUp is Liou's all speed AUSM+up with the low Mach pressure and
// velocity diffusion terms.
func ausmPlusUp(c *Calculator, L, R *state.FlowState, _ *mesh.Interface, factor float64, F state.ConservedQuantities) {
	var (
		cfg        = c.Config
		rL, pL, uL = L.Rho, L.P, L.Vel[0]
		rR, pR, uR = R.Rho, R.P, R.Vel[0]
		aHalf      = 0.5 * (L.A + R.A)
		mL, mR     = uL / aHalf, uR / aHalf
		mBar2      = 0.5 * (mL*mL + mR*mR)
		mo2        = math.Min(1, math.Max(mBar2, cfg.AUSMPlusUpMInf*cfg.AUSMPlusUpMInf))
		mo         = math.Sqrt(mo2)
		fa         = mo * (2 - mo)
		alpha      = 3. / 16. * (-4 + 5*fa*fa)
		beta       = 1. / 8.
		rhoHalf    = 0.5 * (rL + rR)
	)
	m4plus, p5plus := splitMachPlus(mL, alpha, beta)
	m4minus, p5minus := splitMachMinus(mR, alpha, beta)
	mp := -cfg.AUSMPlusUpKp / fa * math.Max(1-cfg.AUSMPlusUpSig*mBar2, 0) * (pR - pL) / (rhoHalf * aHalf * aHalf)
	mHalf := m4plus + m4minus + mp
	pu := -cfg.AUSMPlusUpKu * p5plus * p5minus * (rL + rR) * fa * aHalf * (uR - uL)
	pHalf := p5plus*pL + p5minus*pR + pu
	var (
		ruHalf float64
		up     *state.FlowState
	)
	if mHalf > 0 {
		ruHalf, up = aHalf*mHalf*rL, L
	} else {
		ruHalf, up = aHalf*mHalf*rR, R
	}
	c.addEuler(F, factor, ruHalf, ruHalf*up.Vel[0]+pHalf, ruHalf*up.Vel[1], ruHalf*up.Vel[2],
		ruHalf*up.TotalEnthalpy())
	c.passive(up, factor*ruHalf, F)
}

// splitMachPlus returns the fourth order split Mach number and the fifth order
// split pressure weight for a left running state.
func splitMachPlus(m, alpha, beta float64) (m4, p5 float64) {
	if math.Abs(m) >= 1 {
		m4 = 0.5 * (m + math.Abs(m))
		p5 = m4 / m
		return
	}
	m1p := 0.25 * (m + 1) * (m + 1)
	m1m := -0.25 * (m - 1) * (m - 1)
	m4 = m1p * (1 - 16*beta*m1m)
	p5 = m1p * ((2 - m) - 16*alpha*m*m1m)
	return
}

func splitMachMinus(m, alpha, beta float64) (m4, p5 float64) {
	if math.Abs(m) >= 1 {
		m4 = 0.5 * (m - math.Abs(m))
		p5 = m4 / m
		return
	}
	m1p := 0.25 * (m + 1) * (m + 1)
	m1m := -0.25 * (m - 1) * (m - 1)
	m4 = m1m * (1 + 16*beta*m1p)
	p5 = m1m * ((-2 - m) + 16*alpha*m*m1p)
	return
}

// hanel is the van Leer style flux vector splitting of Hanel, with the
// enthalpy carried in the energy flux.
func hanel(c *Calculator, L, R *state.FlowState, _ *mesh.Interface, factor float64, F state.ConservedQuantities) {
	var (
		pL, uL, aL = L.P, L.Vel[0], L.A
		pR, uR, aR = R.P, R.Vel[0], R.A
		mL, mR     = uL / aL, uR / aR
		uLplus, pLplus, uRminus, pRminus float64
	)
	switch {
	case mL >= 1:
		uLplus, pLplus = uL, pL
	case mL > -1:
		uLplus = 0.25 * aL * (mL + 1) * (mL + 1)
		pLplus = pL * 0.25 * (mL + 1) * (mL + 1) * (2 - mL)
	}
	switch {
	case mR <= -1:
		uRminus, pRminus = uR, pR
	case mR < 1:
		uRminus = -0.25 * aR * (mR - 1) * (mR - 1)
		pRminus = pR * 0.25 * (mR - 1) * (mR - 1) * (2 + mR)
	}
	var (
		mfL = uLplus * L.Rho
		mfR = uRminus * R.Rho
	)
	c.splitFluxes(L, R, mfL, mfR, pLplus+pRminus, factor, F)
}

// splitFluxes assembles the convective fluxes of a flux vector splitting from
// the left and right mass fluxes and the interface pressure.
func (c *Calculator) splitFluxes(L, R *state.FlowState, mfL, mfR, pHalf, factor float64, F state.ConservedQuantities) {
	c.addEuler(F, factor,
		mfL+mfR,
		mfL*L.Vel[0]+mfR*R.Vel[0]+pHalf,
		mfL*L.Vel[1]+mfR*R.Vel[1],
		mfL*L.Vel[2]+mfR*R.Vel[2],
		mfL*L.TotalEnthalpy()+mfR*R.TotalEnthalpy())
	c.passive(L, factor*mfL, F)
	c.passive(R, factor*mfR, F)
}
