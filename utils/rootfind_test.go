package utils

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecant(t *testing.T) {
	f := func(x float64) float64 { return x*x - 2 }
	rr := Secant(f, 1, 2, 1e-12, 50)
	require.True(t, rr.Converged())
	assert.InDelta(t, math.Sqrt2, rr.Root, 1e-10)
	assert.NoError(t, rr.Err())

	// Two iterations are not enough from a poor start.
	rr = Secant(f, 100, 90, 1e-14, 2)
	assert.Equal(t, RootMaxIterations, rr.Status)
	assert.True(t, errors.Is(rr.Err(), ErrMaxIterations))
}

func TestBrent(t *testing.T) {
	f := func(x float64) float64 { return math.Cos(x) - x }
	rr := Brent(f, 0, 1, 1e-12, 100)
	require.True(t, rr.Converged())
	assert.InDelta(t, 0.7390851332151607, rr.Root, 1e-10)

	rr = Brent(func(x float64) float64 { return x*x + 1 }, -1, 2, 1e-12, 100)
	assert.Equal(t, RootNoBracket, rr.Status)
	assert.True(t, errors.Is(rr.Err(), ErrNoBracket))
	assert.Equal(t, "no bracket", rr.Status.String())

	rr = Brent(func(x float64) float64 { return math.Exp(x) - 1e6 }, 0, 100, 1e-14, 3)
	assert.Equal(t, RootMaxIterations, rr.Status)
}

func TestBracket(t *testing.T) {
	f := func(x float64) float64 { return x - 10 }
	a, b, ok := Bracket(f, 0, 1, 50)
	require.True(t, ok)
	assert.True(t, f(a)*f(b) < 0)
	_, _, ok = Bracket(func(x float64) float64 { return 1 }, 0, 1, 10)
	assert.False(t, ok)
}
