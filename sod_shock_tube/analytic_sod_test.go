package sod_shock_tube

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSOD(t *testing.T) {
	rs := Sod()
	assert.InDelta(t, 0.30313, rs.PStar, 1e-5)
	assert.InDelta(t, 0.92745, rs.UStar, 1e-5)
	rhoL, rhoR := rs.StarDensities()
	assert.InDelta(t, 0.42632, rhoL, 1e-5)
	assert.InDelta(t, 0.26557, rhoR, 1e-5)

	w := rs.Waves()
	assert.InDelta(t, 0.6752, 0.5+0.1*w.RightHead, 1e-4)
	assert.InDelta(t, 0.8504, 0.5+0.2*w.RightHead, 1e-4)
	assert.Equal(t, w.RightHead, w.RightTail)
	assert.InDelta(t, -math.Sqrt(1.4), w.LeftHead, 1e-12)

	X := rs.WavePoints(0.5, 0.1, 10)
	assert.Len(t, X, 19)
	S := rs.Profile(X, 0.5, 0.1)
	assert.Equal(t, 0., X[0])
	assert.Equal(t, 1., S[0].Rho)
	assert.Equal(t, 0., S[0].U)
	assert.Equal(t, 1., X[len(X)-1])
	assert.Equal(t, 0.125, S[len(S)-1].Rho)
	assert.Equal(t, 0.1, S[len(S)-1].P)
	assert.InDelta(t, 2.5, S[0].Energy(rs.Gamma), 1e-12)
	for i := 1; i < len(X); i++ {
		assert.GreaterOrEqual(t, X[i], X[i-1])
		// density never increases left to right in the Sod solution
		assert.LessOrEqual(t, S[i].Rho, S[i-1].Rho+1e-12)
	}
	// late enough the head of the fan leaves the tube
	for _, x := range rs.WavePoints(0.5, 1, 4) {
		assert.True(t, x >= 0 && x <= 1)
	}
	// the fan joins both constant states continuously
	tail := rs.Sample(w.LeftTail - 1e-12)
	assert.InDelta(t, rhoL, tail.Rho, 1e-6)
	assert.InDelta(t, rs.UStar, tail.U, 1e-6)
	head := rs.Sample(w.LeftHead + 1e-12)
	assert.InDelta(t, 1, head.Rho, 1e-6)
}

func TestCollision(t *testing.T) {
	var (
		in      = State{Rho: 1, P: 1}
		L, R    = in, in
		rs, err = NewRiemann(L, R, 1.4)
	)
	require.NoError(t, err)
	assert.InDelta(t, 1, rs.PStar, 1e-12)
	assert.InDelta(t, 0, rs.UStar, 1e-12)

	L.U, R.U = 1, -1
	rs, err = NewRiemann(L, R, 1.4)
	require.NoError(t, err)
	assert.Greater(t, rs.PStar, 1.)
	assert.InDelta(t, 0, rs.UStar, 1e-10)
	w := rs.Waves()
	assert.InDelta(t, -w.LeftHead, w.RightHead, 1e-10)
	assert.Equal(t, rs.Sample(-0.01).Rho, rs.Sample(0.01).Rho)

	L.U, R.U = -20, 20
	_, err = NewRiemann(L, R, 1.4)
	assert.Error(t, err)
	_, err = NewRiemann(State{Rho: 1, P: -1}, R, 1.4)
	assert.Error(t, err)
	_, err = NewRiemann(L, R, 1)
	assert.Error(t, err)
}
