package udf

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gofv/geometry"
	"github.com/notargets/gofv/state"
)

const heater = `
def source(t, x, y, z, cell):
    if x < 0.5:
        return None
    return {"total-energy": 1000.0 * cell.rho * t, "x-mom": -cell.u}
`

func TestSourceTerms(t *testing.T) {
	l, err := state.NewLayout(1, 0, 0, false, false)
	require.NoError(t, err)
	st, err := NewSourceTerms("heater.star", heater, l)
	require.NoError(t, err)

	fs := state.NewFlowState(l)
	fs.Rho, fs.Vel = 2, geometry.Vector3{3, 0, 0}
	q := l.NewConserved()
	require.NoError(t, st.Evaluate(0.5, geometry.Vector3{0.25, 0, 0}, fs, q))
	assert.Equal(t, 0., q[l.TotEnergy])

	var wg sync.WaitGroup
	qs := make([]state.ConservedQuantities, 4)
	for i := range qs {
		qs[i] = l.NewConserved()
		wg.Add(1)
		go func(q state.ConservedQuantities) {
			defer wg.Done()
			assert.NoError(t, st.Evaluate(0.5, geometry.Vector3{1, 0, 0}, fs, q))
		}(qs[i])
	}
	wg.Wait()
	for _, q := range qs {
		assert.InDelta(t, 1000, q[l.TotEnergy], 1e-12)
		assert.Equal(t, -3., q[l.XMom])
		assert.Equal(t, 0., q[l.Mass])
	}
}

func TestSourceTermsErrors(t *testing.T) {
	l, err := state.NewLayout(1, 0, 0, false, false)
	require.NoError(t, err)
	_, err = NewSourceTerms("empty.star", "x = 1\n", l)
	assert.Error(t, err)
	_, err = NewSourceTerms("broken.star", "def source(:\n", l)
	assert.Error(t, err)

	fs := state.NewFlowState(l)
	for name, script := range map[string]string{
		"slot":  "def source(t, x, y, z, cell):\n    return {\"psi\": 1.0}\n",
		"type":  "def source(t, x, y, z, cell):\n    return [1.0]\n",
		"value": "def source(t, x, y, z, cell):\n    return {\"mass\": \"a lot\"}\n",
		"loop":  "def source(t, x, y, z, cell):\n    n = 0\n    for i in range(100000000):\n        n += i\n    return {}\n",
	} {
		st, err := NewSourceTerms(name, script, l)
		require.NoError(t, err, name)
		assert.Error(t, st.Evaluate(0, geometry.Vector3{}, fs, l.NewConserved()), name)
	}

	// integers count as numbers, strings do not
	st, err := NewSourceTerms("int.star", "def source(t, x, y, z, cell):\n    return {\"mass\": 2}\n", l)
	require.NoError(t, err)
	q := l.NewConserved()
	require.NoError(t, st.Evaluate(0, geometry.Vector3{}, fs, q))
	assert.Equal(t, 2., q[l.Mass])
	st, err = NewSourceTerms("str.star", "def source(t, x, y, z, cell):\n    return {\"mass\": \"2\"}\n", l)
	require.NoError(t, err)
	err = st.Evaluate(0, geometry.Vector3{}, fs, q)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a number")
}
