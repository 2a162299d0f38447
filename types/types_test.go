package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypes(t *testing.T) {
	{ // Test packed int for edge labeling
		en := NewEdgeKey([2]int{1, 0})
		assert.Equal(t, EdgeKey(1<<32), en)
		assert.Equal(t, [2]int{0, 1}, en.GetVertices(false))
		assert.Equal(t, [2]int{1, 0}, en.GetVertices(true))

		en = NewEdgeKey([2]int{100, 1})
		assert.Equal(t, EdgeKey(100*(1<<32)+1), en)
		assert.Equal(t, [2]int{1, 100}, en.GetVertices(false))

		// Test maximum/minimum indices
		en = NewEdgeKey([2]int{1<<32 - 1, 1})
		assert.Equal(t, EdgeKey((1<<32-1)<<32+1), en)
		assert.Equal(t, [2]int{1, 1<<32 - 1}, en.GetVertices(false))
		assert.Panics(t, func() { NewEdgeKey([2]int{-1, 0}) })
	}
	{
		for label, kind := range BCNameMap {
			bk, err := ParseBCKind(label)
			require.NoError(t, err)
			assert.Equal(t, kind, bk)
		}
		bk, err := ParseBCKind("Slip_Wall")
		require.NoError(t, err)
		assert.True(t, bk.IsWall())
		assert.Equal(t, "Slip Wall", bk.String())
		_, err = ParseBCKind("periodic")
		assert.Error(t, err)
		assert.False(t, BC_Outflow.IsWall())
	}
}

func TestEdgeMap(t *testing.T) {
	// two unit squares sharing the edge 1-4
	//  3--4--5
	//  |  |  |
	//  0--1--2
	em := NewEdgeMap()
	e0, err := em.AddPolygon(0, []int{0, 1, 4, 3})
	require.NoError(t, err)
	e1, err := em.AddPolygon(1, []int{1, 2, 5, 4})
	require.NoError(t, err)
	assert.Len(t, em.Uses, 7)
	shared := e0[1]
	assert.Equal(t, shared, e1[3])
	assert.Equal(t, EdgeUse{From: 1, To: 4, Owner: 0, Neighbour: 1}, em.Uses[shared])
	assert.Equal(t, -1, em.Uses[e0[0]].Neighbour)

	// a third cell traversing 1-4 in the owner's direction is inconsistent
	_, err = em.AddPolygon(2, []int{1, 4, 6})
	assert.Error(t, err)
}
