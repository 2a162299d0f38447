package integrator

import (
	"math"

	"github.com/notargets/gofv/mesh"
	"github.com/notargets/gofv/state"
)

// DtController damps increases of the global step and passes decreases
// straight through.
type DtController struct {
	Factor float64
	Max    float64 // zero for no cap
}

func (dc DtController) Next(current, allowed float64) (dt float64) {
	capped := func(v float64) float64 {
		if dc.Max > 0 {
			return math.Min(v, dc.Max)
		}
		return v
	}
	if !(current > 0) {
		return capped(allowed)
	}
	if allowed < current {
		return capped(allowed)
	}
	return capped(math.Min(current*dc.Factor, allowed))
}

// signalSpeed is the fastest wave speed of a state, magnetosonic with MHD.
func signalSpeed(l state.Layout, fs *state.FlowState) float64 {
	if l.MHD() {
		return math.Sqrt(fs.A*fs.A + fs.B.NormSq()/fs.Rho)
	}
	return fs.A
}

// AllowableDt is the smallest CFL limited step over the interior cells of b,
// together with the largest |u|+c found, used for the cleaning speed.
func AllowableDt(b *mesh.Block, cfl float64, viscous bool) (dt, maxSpeed float64) {
	var (
		l = b.Layout
	)
	dt = math.Inf(1)
	for _, c := range b.Cells {
		var (
			fs  = c.FS
			a   = signalSpeed(l, fs)
			un  float64
			ooL = 1. / c.L
		)
		for _, f := range c.Faces {
			un = math.Max(un, math.Abs(fs.Vel.Sub(f.GridVel).Dot(f.Frame.N)))
		}
		rate := (un + a) * ooL
		if viscous {
			nu := math.Max(fs.Mu, fs.K/b.Gas.Cp(&fs.GasState)) / fs.Rho
			rate += 4 * nu * ooL * ooL
		}
		if rate > 0 {
			dt = math.Min(dt, cfl/rate)
		}
		maxSpeed = math.Max(maxSpeed, fs.Vel.Norm()+a)
	}
	return
}
