package sod_shock_tube

import (
	"fmt"
	"math"
	"sort"

	"github.com/notargets/gofv/utils"
)

// State is a primitive 1D gas state.
type State struct {
	Rho, U, P float64
}

func (s State) SoundSpeed(gamma float64) float64 {
	return math.Sqrt(gamma * s.P / s.Rho)
}

// Energy is the specific internal energy of an ideal gas.
func (s State) Energy(gamma float64) float64 {
	return s.P / ((gamma - 1) * s.Rho)
}

// Riemann is the exact solution of the ideal gas Riemann problem between the
// states L and R, self similar in xi = (x - x0) / t.
type Riemann struct {
	L, R         State
	Gamma        float64
	PStar, UStar float64
	Iterations   int
}

// Sod returns the classic shock tube: rho 1, p 1 on the left, rho 0.125,
// p 0.1 on the right, gas at rest, gamma 1.4.
func Sod() *Riemann {
	rs, err := NewRiemann(State{Rho: 1, P: 1}, State{Rho: 0.125, P: 0.1}, 1.4)
	if err != nil {
		panic(err)
	}
	return rs
}

func NewRiemann(L, R State, gamma float64) (rs *Riemann, err error) {
	switch {
	case !(gamma > 1):
		return nil, fmt.Errorf("gamma must exceed 1, have %g", gamma)
	case !(L.Rho > 0 && L.P > 0 && R.Rho > 0 && R.P > 0):
		return nil, fmt.Errorf("states must have positive density and pressure: %+v %+v", L, R)
	}
	rs = &Riemann{L: L, R: R, Gamma: gamma}
	var (
		aL, aR = L.SoundSpeed(gamma), R.SoundSpeed(gamma)
		du     = R.U - L.U
	)
	if 2*(aL+aR)/(gamma-1) <= du {
		return nil, fmt.Errorf("states generate vacuum: du = %g", du)
	}
	f := func(p float64) float64 {
		return rs.waveFunction(p, L) + rs.waveFunction(p, R) + du
	}
	// f increases with p; grow the upper end until it brackets the root
	var (
		lo = 1e-12 * math.Min(L.P, R.P)
		hi = math.Max(L.P, R.P)
	)
	for i := 0; f(hi) < 0; i++ {
		if i == 100 {
			return nil, fmt.Errorf("no star pressure below %g", hi)
		}
		hi *= 2
	}
	rr := utils.Brent(f, lo, hi, 1e-14, 200)
	if !rr.Converged() {
		return nil, fmt.Errorf("star pressure: %w", rr.Err())
	}
	rs.PStar, rs.Iterations = rr.Root, rr.Iterations
	rs.UStar = 0.5*(L.U+R.U) + 0.5*(rs.waveFunction(rs.PStar, R)-rs.waveFunction(rs.PStar, L))
	return
}

// waveFunction is the velocity jump across the wave separating s from the
// star region at pressure p: a shock when p > s.P, else a rarefaction.
func (rs *Riemann) waveFunction(p float64, s State) float64 {
	g := rs.Gamma
	if p > s.P {
		var (
			A = 2 / ((g + 1) * s.Rho)
			B = (g - 1) / (g + 1) * s.P
		)
		return (p - s.P) * math.Sqrt(A/(p+B))
	}
	return 2 * s.SoundSpeed(g) / (g - 1) * (math.Pow(p/s.P, (g-1)/(2*g)) - 1)
}

// StarDensities are the densities on each side of the contact.
func (rs *Riemann) StarDensities() (rhoL, rhoR float64) {
	return rs.starDensity(rs.L), rs.starDensity(rs.R)
}

func (rs *Riemann) starDensity(s State) float64 {
	var (
		g  = rs.Gamma
		pr = rs.PStar / s.P
	)
	if pr > 1 {
		g6 := (g - 1) / (g + 1)
		return s.Rho * (pr + g6) / (g6*pr + 1)
	}
	return s.Rho * math.Pow(pr, 1/g)
}

// Waves are the speeds bounding each region. A shock has Head == Tail.
type Waves struct {
	LeftHead, LeftTail   float64
	Contact              float64
	RightTail, RightHead float64
}

func (rs *Riemann) Waves() (w Waves) {
	var (
		g      = rs.Gamma
		aL, aR = rs.L.SoundSpeed(g), rs.R.SoundSpeed(g)
		ex     = (g - 1) / (2 * g)
	)
	w.Contact = rs.UStar
	if rs.PStar > rs.L.P {
		w.LeftHead = rs.L.U - aL*math.Sqrt((g+1)/(2*g)*rs.PStar/rs.L.P+ex)
		w.LeftTail = w.LeftHead
	} else {
		w.LeftHead = rs.L.U - aL
		w.LeftTail = rs.UStar - aL*math.Pow(rs.PStar/rs.L.P, ex)
	}
	if rs.PStar > rs.R.P {
		w.RightHead = rs.R.U + aR*math.Sqrt((g+1)/(2*g)*rs.PStar/rs.R.P+ex)
		w.RightTail = w.RightHead
	} else {
		w.RightHead = rs.R.U + aR
		w.RightTail = rs.UStar + aR*math.Pow(rs.PStar/rs.R.P, ex)
	}
	return
}

// Sample returns the state at xi = (x - x0) / t.
func (rs *Riemann) Sample(xi float64) State {
	var (
		g      = rs.Gamma
		w      = rs.Waves()
		rhoL   float64
		rhoR   float64
		aL, aR = rs.L.SoundSpeed(g), rs.R.SoundSpeed(g)
	)
	rhoL, rhoR = rs.StarDensities()
	switch {
	case xi <= w.LeftHead:
		return rs.L
	case xi < w.LeftTail:
		var (
			u = 2 / (g + 1) * (aL + 0.5*(g-1)*rs.L.U + xi)
			a = 2 / (g + 1) * (aL + 0.5*(g-1)*(rs.L.U-xi))
		)
		return State{
			Rho: rs.L.Rho * math.Pow(a/aL, 2/(g-1)),
			U:   u,
			P:   rs.L.P * math.Pow(a/aL, 2*g/(g-1)),
		}
	case xi <= w.Contact:
		return State{Rho: rhoL, U: rs.UStar, P: rs.PStar}
	case xi <= w.RightTail:
		return State{Rho: rhoR, U: rs.UStar, P: rs.PStar}
	case xi < w.RightHead:
		var (
			u = 2 / (g + 1) * (-aR + 0.5*(g-1)*rs.R.U + xi)
			a = 2 / (g + 1) * (aR - 0.5*(g-1)*(rs.R.U-xi))
		)
		return State{
			Rho: rs.R.Rho * math.Pow(a/aR, 2/(g-1)),
			U:   u,
			P:   rs.R.P * math.Pow(a/aR, 2*g/(g-1)),
		}
	}
	return rs.R
}

// Profile samples the solution at time t for a diaphragm at x0.
func (rs *Riemann) Profile(X []float64, x0, t float64) (S []State) {
	S = make([]State, len(X))
	for i, x := range X {
		if t > 0 {
			S[i] = rs.Sample((x - x0) / t)
		} else if x < x0 {
			S[i] = rs.L
		} else {
			S[i] = rs.R
		}
	}
	return
}

// WavePoints returns the points of [0, 1] where the solution at time t with
// the diaphragm at x0 changes character: each side of every wave, plus nFan
// points through each rarefaction fan. Points are sorted and clipped to the
// tube.
func (rs *Riemann) WavePoints(x0, t float64, nFan int) (X []float64) {
	var (
		w   = rs.Waves()
		tol = 1e-4
		at  = func(xi float64) float64 { return x0 + xi*t }
		fan = func(head, tail float64) {
			for i := 0; i <= nFan; i++ {
				X = append(X, at(head+(tail-head)*float64(i)/float64(nFan)))
			}
		}
	)
	if nFan < 1 {
		nFan = 1
	}
	X = append(X, 0, at(w.LeftHead)-tol, at(w.LeftTail)+tol)
	if w.LeftTail > w.LeftHead {
		fan(w.LeftHead, w.LeftTail)
	}
	X = append(X, at(w.Contact)-tol, at(w.Contact)+tol, at(w.RightTail)-tol, at(w.RightHead)+tol)
	if w.RightHead > w.RightTail {
		fan(w.RightTail, w.RightHead)
	}
	X = append(X, 1)
	kept := X[:0]
	for _, x := range X {
		if x >= 0 && x <= 1 {
			kept = append(kept, x)
		}
	}
	X = kept
	sort.Float64s(X)
	return
}
