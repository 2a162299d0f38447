package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gofv/gas"
	"github.com/notargets/gofv/geometry"
	"github.com/notargets/gofv/mesh"
	"github.com/notargets/gofv/state"
)

func newTestBlock(t *testing.T, id, ni int) *mesh.Block {
	l, err := state.NewLayout(1, 0, 0, false, false)
	require.NoError(t, err)
	b, err := mesh.NewStructuredBlock(id, ni, 1, 1,
		mesh.CartesianVertices(geometry.Vector3{}, geometry.Vector3{1, 1, 1}, 0, ni, 1, 1), l, gas.NewIdealAir(), 1)
	require.NoError(t, err)
	for i, c := range b.Cells {
		for j := range c.U[0] {
			c.U[0][j] = float64(100*id + 10*i + j)
		}
	}
	return b
}

func TestStoreRoundTrip(t *testing.T) {
	s, err := Open(Config{InMemory: true})
	require.NoError(t, err)
	defer s.Close()

	var (
		run    = NewRunID()
		blocks = []*mesh.Block{newTestBlock(t, 0, 3), newTestBlock(t, 1, 2)}
	)
	_, err = s.Latest(run)
	assert.ErrorIs(t, err, ErrNoSnapshot)

	for idx := 0; idx < 3; idx++ {
		require.NoError(t, s.WriteBlocks(run, idx, blocks))
		require.NoError(t, s.WriteMeta(Meta{RunID: run, Index: idx, Time: 0.1 * float64(idx), Step: 10 * idx,
			Dt: 1e-3, NBlocks: 2, NConserved: blocks[0].Layout.N}))
	}
	// blocks without meta are an incomplete snapshot
	require.NoError(t, s.WriteBlocks(run, 3, blocks))
	last, err := s.Latest(run)
	require.NoError(t, err)
	assert.Equal(t, 2, last)

	m, err := s.ReadMeta(run, 1)
	require.NoError(t, err)
	assert.Equal(t, 10, m.Step)
	assert.InDelta(t, 0.1, m.Time, 1e-15)
	assert.Equal(t, run, m.RunID)

	fresh := newTestBlock(t, 1, 2)
	for _, c := range fresh.Cells {
		c.U[0].Clear()
	}
	require.NoError(t, s.ReadBlock(run, 2, fresh))
	for i, c := range fresh.Cells {
		assert.Equal(t, blocks[1].Cells[i].U[0], c.U[0])
	}

	// a block of another shape is refused
	assert.Error(t, s.ReadBlock(run, 2, newTestBlock(t, 1, 5)))
	_, err = s.ReadMeta(run, 9)
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestSampleStore(t *testing.T) {
	ss, err := OpenSampleStore(":memory:")
	require.NoError(t, err)
	defer ss.Close()
	run := NewRunID()
	for step := 3; step > 0; step-- {
		require.NoError(t, ss.AddHistory(HistoryRow{RunID: run, Step: step, Time: float64(step), Block: 1, Cell: 4,
			Rho: 1.2, P: 1e5, T: 290, Vel: [3]float64{float64(step), 0, 0}}))
	}
	rows, err := ss.History(run, 1, 4)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, 1, rows[0].Step)
	assert.Equal(t, 3., rows[2].Vel[0])

	require.NoError(t, ss.AddLoads(
		LoadRow{RunID: run, Step: 1, Block: 0, Boundary: "north", Force: [3]float64{0, 5, 0}},
		LoadRow{RunID: run, Step: 2, Block: 0, Boundary: "north", Force: [3]float64{0, 6, 0}, Heat: 2},
		LoadRow{RunID: run, Step: 2, Block: 0, Boundary: "south", Force: [3]float64{0, -6, 0}}))
	loads, err := ss.LatestLoads(run)
	require.NoError(t, err)
	require.Len(t, loads, 2)
	assert.Equal(t, "north", loads[0].Boundary)
	assert.Equal(t, 2., loads[0].Heat)

	require.NoError(t, ss.AddResiduals(ResidualRow{RunID: run, Step: 2, Names: []string{"mass", "x-mom"},
		Values: []float64{1, 2}}))
	assert.Error(t, ss.AddResiduals(ResidualRow{RunID: run, Names: []string{"mass"}}))
	n, err := ss.Count("residuals", run)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, ss.AddResiduals(ResidualRow{RunID: run, Step: 4, Names: []string{"mass", "x-mom"},
		Values: []float64{0.5, 1}}))
	n, err = ss.Steps("residuals", run)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, err = ss.Count("cells; DROP TABLE loads", run)
	assert.Error(t, err)
	_, err = ss.Steps("cells", run)
	assert.Error(t, err)
}
