package geometry

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nearVec(t *testing.T, a, b Vector3, tol float64) {
	for i := 0; i < 3; i++ {
		assert.InDeltaf(t, a[i], b[i], tol, "component %d: %v vs %v", i, a, b)
	}
}

func TestFrameRoundTripOrthonormal(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		n := Vector3{r.NormFloat64(), r.NormFloat64(), r.NormFloat64()}
		f, err := FrameFromNormal(n)
		require.NoError(t, err)
		assert.True(t, f.Orthonormal())
		v := Vector3{r.NormFloat64(), r.NormFloat64(), r.NormFloat64()}
		nearVec(t, v, f.ToGlobal(f.ToLocal(v)), 1e-12)
		l := f.ToLocal(v)
		un, _ := n.Unit()
		assert.InDelta(t, v.Dot(un), l[0], 1e-12)
	}
}

func TestFrameRoundTripGeneralBasis(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for i := 0; i < 200; i++ {
		n := Vector3{1 + r.Float64(), r.Float64(), r.Float64()}
		t1 := Vector3{r.Float64(), 1 + r.Float64(), r.Float64()}
		t2 := Vector3{r.Float64(), r.Float64(), 1 + r.Float64()}
		f, err := NewFrame(n, t1, t2)
		if errors.Is(err, ErrDegenerateFrame) {
			continue
		}
		require.NoError(t, err)
		v := Vector3{r.NormFloat64(), r.NormFloat64(), r.NormFloat64()}
		nearVec(t, v, f.ToGlobal(f.ToLocal(v)), 1e-10)
	}
}

func TestFrameDegenerate(t *testing.T) {
	_, err := NewFrame(Vector3{1, 0, 0}, Vector3{2, 0, 0}, Vector3{0, 0, 1})
	assert.True(t, errors.Is(err, ErrDegenerateFrame))
	_, err = FrameFromNormal(Vector3{})
	assert.True(t, errors.Is(err, ErrDegenerateFrame))
}

func TestFaceAndVolume(t *testing.T) {
	quad := []Vector3{{0, 0, 0}, {2, 0, 0}, {2, 1, 0}, {0, 1, 0}}
	c, n, a, err := FaceProperties(quad)
	require.NoError(t, err)
	assert.InDelta(t, 2., a, 1e-14)
	nearVec(t, Vector3{0, 0, 1}, n, 1e-14)
	nearVec(t, Vector3{1, 0.5, 0}, c, 1e-14)

	// unit cube from its six outward faces
	var (
		cents = []Vector3{{0, .5, .5}, {1, .5, .5}, {.5, 0, .5}, {.5, 1, .5}, {.5, .5, 0}, {.5, .5, 1}}
		areas = []Vector3{{-1, 0, 0}, {1, 0, 0}, {0, -1, 0}, {0, 1, 0}, {0, 0, -1}, {0, 0, 1}}
	)
	assert.InDelta(t, 1., PolyhedronVolume(cents, areas), 1e-14)
	assert.InDelta(t, math.Sqrt(3), Vector3{1, 1, 1}.Norm(), 1e-15)
}
