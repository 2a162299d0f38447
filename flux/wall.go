package flux

import (
	"math"

	"github.com/notargets/gofv/mesh"
	"github.com/notargets/gofv/state"
	"github.com/notargets/gofv/utils"
)

// WallPressure estimates the pressure at a solid wall from the adjacent state
// and the gas velocity toward the wall w (positive when the gas compresses
// against it). Weak compressions and all expansions use the isentropic
// relation; strong compressions solve the shock relation by secant
// iteration. The result is clamped to [p, cap*p] on the shock branch and to
// cap*p on the isentropic one. A non-converged solve keeps the clamped last
// iterate and is counted in WallNonConverged.
func (c *Calculator) WallPressure(fs *state.FlowState, w float64) (pstar float64, rr utils.RootResult) {
	var (
		p     = fs.P
		g     = c.Gas.Gamma(&fs.GasState)
		pMax  = c.Config.WallCap * p
		base  = math.Max(1+0.5*(g-1)*w/fs.A, 0)
		pIsen = p * math.Pow(base, 2*g/(g-1))
	)
	rr.Status = utils.RootConverged
	if pIsen <= 1.1*p {
		pstar = math.Min(pIsen, pMax)
		rr.Root = pstar
		return
	}
	var (
		A = 2 / ((g + 1) * fs.Rho)
		B = (g - 1) / (g + 1) * p
	)
	shock := func(ps float64) float64 {
		return (ps-p)*math.Sqrt(A/(ps+B)) - w
	}
	rr = utils.Secant(shock, p, pIsen, c.Config.WallTolerance, c.Config.WallMaxIter)
	pstar = math.Min(math.Max(rr.Root, p), pMax)
	if !rr.Converged() {
		c.WallNonConverged++
	}
	return
}

// WallFlux replaces the flux of a wall face with the pressure contribution
// only. The interior state fs sits on the side given by outsign.
func (c *Calculator) WallFlux(face *mesh.Interface, fs *state.FlowState, outsign float64) (pstar float64) {
	var (
		l = c.Layout
		n = face.Frame.N
		w = outsign * fs.Vel.Sub(face.GridVel).Dot(n)
	)
	pstar, _ = c.WallPressure(fs, w)
	face.F.Clear()
	face.F[l.XMom] = pstar * n[0]
	face.F[l.YMom] = pstar * n[1]
	face.F[l.ZMom] = pstar * n[2]
	face.F[l.TotEnergy] = pstar * face.GridVel.Dot(n)
	return
}
