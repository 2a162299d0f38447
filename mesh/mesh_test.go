package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gofv/gas"
	"github.com/notargets/gofv/geometry"
	"github.com/notargets/gofv/state"
)

func testLayout(t *testing.T) state.Layout {
	l, err := state.NewLayout(1, 0, 0, false, false)
	require.NoError(t, err)
	return l
}

func checkClosure(t *testing.T, b *Block) {
	for _, c := range b.Cells {
		var sum geometry.Vector3
		for i, f := range c.Faces {
			sum = sum.Add(f.Frame.N.Scale(c.Outsign[i] * f.Area))
		}
		for d := 0; d < 3; d++ {
			assert.InDelta(t, 0, sum[d], 1e-14, "cell %d is not closed", c.ID)
		}
	}
}

func TestStructuredBlock(t *testing.T) {
	var (
		l     = testLayout(t)
		d     = geometry.Vector3{0.5, 1, 2}
		verts = CartesianVertices(geometry.Vector3{}, d, 0, 3, 2, 1)
	)
	b, err := NewStructuredBlock(7, 3, 2, 1, verts, l, gas.NewIdealAir(), 2)
	require.NoError(t, err)
	assert.Equal(t, GridStructured, b.Grid.Kind())
	assert.NotNil(t, b.Mover)
	assert.True(t, b.Grid.HighOrderStencil())
	assert.Len(t, b.Cells, 6)
	assert.Len(t, b.Faces, 4*2+3*3+3*2*2)
	assert.Len(t, b.Boundaries, 6)
	for _, c := range b.Cells {
		assert.InDelta(t, 1.0, c.Volume[0], 1e-14)
		assert.InDelta(t, 0.5, c.L, 1e-14)
		assert.Len(t, c.Faces, 6)
		assert.Len(t, c.U, 3)
		assert.Len(t, c.DUDt, 2)
	}
	checkClosure(t, b)

	west, err := b.BoundaryByName("west")
	require.NoError(t, err)
	assert.Len(t, west.Faces, 2)
	assert.Equal(t, 2, west.NumGhostLayers())
	f := west.Faces[1]
	assert.Equal(t, West, f.BoundaryID)
	assert.True(t, f.HasStencil())
	assert.Same(t, west.Ghosts[1][0], f.Left[0])
	assert.Same(t, b.Cells[3], f.Right[0])
	assert.Same(t, b.Cells[4], f.Right[1])
	assert.Equal(t, []*Cell{b.Cells[3], b.Cells[4]}, west.Interior[1])
	assert.Equal(t, -1., west.Outsign[1])
	// ghosts are mirrored across the face
	assert.InDelta(t, -0.25, west.Ghosts[1][0].Pos[0], 1e-14)
	assert.InDelta(t, -0.75, west.Ghosts[1][1].Pos[0], 1e-14)
	assert.InDelta(t, 1.0, f.Frame.N[0], 1e-14)

	east, _ := b.BoundaryByName("east")
	assert.Equal(t, 1., east.Outsign[0])
	assert.Same(t, b.Cells[2], east.Faces[0].Left[0])
	assert.Same(t, b.Cells[1], east.Faces[0].Left[1])
	assert.Same(t, east.Ghosts[0][1], east.Faces[0].Right[1])

	assert.Len(t, b.Cells[0].Neighbours(), 6)
	_, err = b.BoundaryByName("nowhere")
	assert.Error(t, err)

	_, err = NewStructuredBlock(1, 2, 1, 1, verts, l, gas.NewIdealAir(), 1)
	assert.Error(t, err)
}

func TestStructuredMovingGrid(t *testing.T) {
	var (
		l     = testLayout(t)
		verts = CartesianVertices(geometry.Vector3{}, geometry.Vector3{1, 1, 1}, 0, 2, 1, 1)
	)
	b, err := NewStructuredBlock(0, 2, 1, 1, verts, l, gas.NewIdealAir(), 1)
	require.NoError(t, err)
	// stretch in x: u = x
	b.Mover.PredictVertexPositions(func(p geometry.Vector3, _ float64) geometry.Vector3 {
		return geometry.Vector3{p[0], 0, 0}
	}, 0, 0.5)
	b.Mover.MoveToLevel(1)
	require.NoError(t, b.ComputeGeometry(1))
	assert.InDelta(t, 1.0, b.Cells[0].Volume[0], 1e-14)
	assert.InDelta(t, 1.5, b.Cells[0].Volume[1], 1e-14)
	assert.InDelta(t, 1.5, b.Cells[1].Volume[1], 1e-14)
	// the face at x=1 moves with u=1
	assert.InDelta(t, 1.0, b.Faces[1].GridVel[0], 1e-14)
	assert.InDelta(t, 1.5, b.Faces[1].Pos[0], 1e-14)
	b.Mover.CommitStep()
	b.Mover.MoveToLevel(0)
	assert.InDelta(t, 3.0, b.Grid.Vertices()[2][0], 1e-14)
}

func TestUnstructuredBlock(t *testing.T) {
	//  3---4---5
	//  |   | / |
	//  0---1---2
	var (
		l     = testLayout(t)
		plane = []geometry.Vector3{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}, {0, 1, 0}, {1, 1, 0}, {2, 1, 0}}
		polys = [][]int{{0, 1, 4, 3}, {1, 5, 4}, {1, 2, 5}}
	)
	// second polygon given clockwise to check reordering
	polys[1] = []int{1, 4, 5}
	tagger := func(from, to int) int {
		if plane[from][1] == 0 && plane[to][1] == 0 {
			return 0
		}
		return 1
	}
	b, err := NewUnstructuredBlock(3, plane, polys, 0.1, tagger, 2, l, gas.NewIdealAir(), 1)
	require.NoError(t, err)
	assert.Equal(t, GridUnstructured, b.Grid.Kind())
	assert.Nil(t, b.Mover)
	assert.False(t, b.Grid.HighOrderStencil())
	assert.Len(t, b.Cells, 3)
	assert.Len(t, b.Boundaries, 3)
	assert.InDelta(t, 0.1, b.Cells[0].Volume[0], 1e-14)
	assert.InDelta(t, 0.05, b.Cells[1].Volume[0], 1e-14)
	assert.InDelta(t, 0.05, b.Cells[2].Volume[0], 1e-14)
	checkClosure(t, b)
	assert.Len(t, b.Boundaries[0].Faces, 2) // y=0 edges
	assert.Len(t, b.Boundaries[1].Faces, 4)
	assert.Len(t, b.Boundaries[2].Faces, 6)
	assert.Equal(t, "planes", b.Boundaries[2].Name)
	for _, f := range b.Faces {
		assert.False(t, f.HasStencil())
		assert.Len(t, f.Left, 1)
		assert.Len(t, f.Right, 1)
	}
	_, err = NewUnstructuredBlock(3, plane, polys, 0.1, func(int, int) int { return 5 }, 2, l,
		gas.NewIdealAir(), 1)
	assert.Error(t, err)
}

func TestTimeDerivativeConservation(t *testing.T) {
	var (
		l     = testLayout(t)
		verts = CartesianVertices(geometry.Vector3{}, geometry.Vector3{1, 1, 1}, 0, 2, 1, 1)
	)
	b, err := NewStructuredBlock(0, 2, 1, 1, verts, l, gas.NewIdealAir(), 1)
	require.NoError(t, err)
	shared := b.Faces[1]
	require.Same(t, b.Cells[0], shared.Left[0])
	require.Same(t, b.Cells[1], shared.Right[0])
	for i := range shared.F {
		shared.F[i] = float64(i) + 0.5
	}
	b.Cells[0].TimeDerivative(0, 0)
	b.Cells[1].TimeDerivative(0, 0)
	for i := range shared.F {
		assert.Equal(t, -b.Cells[0].DUDt[0][i], b.Cells[1].DUDt[0][i])
		assert.NotZero(t, b.Cells[0].DUDt[0][i])
	}
}
