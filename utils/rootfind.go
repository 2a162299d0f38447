package utils

import (
	"errors"
	"fmt"
	"math"
)

type RootStatus uint8

const (
	RootConverged RootStatus = iota
	RootNoBracket
	RootMaxIterations
)

var (
	RootStatusNames = []string{"converged", "no bracket", "max iterations"}

	ErrNoBracket     = errors.New("root is not bracketed")
	ErrMaxIterations = errors.New("root finder exceeded its iteration budget")
)

func (rs RootStatus) String() string {
	return RootStatusNames[rs]
}

// RootResult is the outcome of a bounded root search. Root always holds the
// last iterate, so callers with a documented fallback can still use it.
type RootResult struct {
	Root       float64
	Residual   float64
	Iterations int
	Status     RootStatus
}

func (rr RootResult) Converged() bool {
	return rr.Status == RootConverged
}

// Err maps a non-converged status onto the matching sentinel error.
func (rr RootResult) Err() (err error) {
	switch rr.Status {
	case RootNoBracket:
		err = fmt.Errorf("%w: last iterate %g, residual %g", ErrNoBracket, rr.Root, rr.Residual)
	case RootMaxIterations:
		err = fmt.Errorf("%w: %d iterations, last iterate %g, residual %g",
			ErrMaxIterations, rr.Iterations, rr.Root, rr.Residual)
	}
	return
}

// Secant iterates from two starting guesses until successive iterates agree to
// within tol (relative to the iterate magnitude) or maxIter is reached.
func Secant(f func(x float64) float64, x0, x1, tol float64, maxIter int) (rr RootResult) {
	var (
		f0 = f(x0)
		f1 = f(x1)
	)
	rr.Root, rr.Residual = x1, f1
	for rr.Iterations = 0; rr.Iterations < maxIter; rr.Iterations++ {
		if f1 == 0 {
			rr.Status = RootConverged
			return
		}
		denom := f1 - f0
		if denom == 0 {
			break
		}
		x2 := x1 - f1*(x1-x0)/denom
		x0, f0 = x1, f1
		x1, f1 = x2, f(x2)
		rr.Root, rr.Residual = x1, f1
		if math.Abs(x1-x0) <= tol*math.Max(1, math.Abs(x1)) {
			rr.Iterations++
			rr.Status = RootConverged
			return
		}
	}
	rr.Status = RootMaxIterations
	return
}

// Bracket grows the interval [a, b] geometrically until f changes sign over it,
// giving up after maxIter expansions.
func Bracket(f func(x float64) float64, a, b float64, maxIter int) (x1, x2 float64, ok bool) {
	const growth = 1.6
	var (
		f1, f2 = f(a), f(b)
	)
	x1, x2 = a, b
	if x1 == x2 {
		return
	}
	for i := 0; i < maxIter; i++ {
		if f1*f2 < 0 {
			ok = true
			return
		}
		if math.Abs(f1) < math.Abs(f2) {
			x1 += growth * (x1 - x2)
			f1 = f(x1)
		} else {
			x2 += growth * (x2 - x1)
			f2 = f(x2)
		}
	}
	ok = f1*f2 < 0
	return
}

// Brent finds a root of f inside [a, b], which must bracket a sign change.
func Brent(f func(x float64) float64, a, b, tol float64, maxIter int) (rr RootResult) {
	var (
		fa, fb = f(a), f(b)
		c, fc  float64
		d, e   float64
	)
	if fa == 0 {
		return RootResult{Root: a, Status: RootConverged}
	}
	if fb == 0 {
		return RootResult{Root: b, Status: RootConverged}
	}
	if fa*fb > 0 {
		rr.Root, rr.Residual = b, fb
		if math.Abs(fa) < math.Abs(fb) {
			rr.Root, rr.Residual = a, fa
		}
		rr.Status = RootNoBracket
		return
	}
	c, fc = a, fa
	d = b - a
	e = d
	for rr.Iterations = 0; rr.Iterations < maxIter; rr.Iterations++ {
		if fb*fc > 0 {
			c, fc = a, fa
			d = b - a
			e = d
		}
		if math.Abs(fc) < math.Abs(fb) {
			a, b, c = b, c, b
			fa, fb, fc = fb, fc, fb
		}
		tol1 := 2*1e-16*math.Abs(b) + 0.5*tol
		xm := 0.5 * (c - b)
		if math.Abs(xm) <= tol1 || fb == 0 {
			rr.Root, rr.Residual, rr.Status = b, fb, RootConverged
			return
		}
		if math.Abs(e) >= tol1 && math.Abs(fa) > math.Abs(fb) {
			var p, q, r float64
			s := fb / fa
			if a == c {
				p = 2 * xm * s
				q = 1 - s
			} else {
				q = fa / fc
				r = fb / fc
				p = s * (2*xm*q*(q-r) - (b-a)*(r-1))
				q = (q - 1) * (r - 1) * (s - 1)
			}
			if p > 0 {
				q = -q
			}
			p = math.Abs(p)
			if 2*p < math.Min(3*xm*q-math.Abs(tol1*q), math.Abs(e*q)) {
				e = d
				d = p / q
			} else {
				d = xm
				e = d
			}
		} else {
			d = xm
			e = d
		}
		a, fa = b, fb
		if math.Abs(d) > tol1 {
			b += d
		} else {
			b += math.Copysign(tol1, xm)
		}
		fb = f(b)
	}
	rr.Root, rr.Residual, rr.Status = b, fb, RootMaxIterations
	return
}
