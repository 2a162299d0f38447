package integrator

import (
	"fmt"

	"github.com/notargets/gofv/mesh"
	"github.com/notargets/gofv/state"
)

// repairCells replaces the conserved state at level of every bad cell with
// the average of its valid interior neighbours and decodes it again.
func repairCells(b *mesh.Block, bad []*mesh.Cell, level int) (err error) {
	isBad := make(map[*mesh.Cell]bool, len(bad))
	for _, c := range bad {
		isBad[c] = true
	}
	for _, c := range bad {
		var (
			u = c.U[level]
			n int
		)
		u.Clear()
		for _, nb := range c.Neighbours() {
			if nb.Ghost || isBad[nb] {
				continue
			}
			u.AddScaled(nb.U[level], 1)
			n++
		}
		if n == 0 {
			return fmt.Errorf("block %d cell %d: %w with no valid neighbour to repair from",
				b.ID, c.ID, state.ErrNonPhysical)
		}
		for i := range u {
			u[i] /= float64(n)
		}
		if err = state.Decode(b.Layout, b.Gas, u, c.FS); err != nil {
			return fmt.Errorf("block %d cell %d repair: %w", b.ID, c.ID, err)
		}
	}
	return
}
