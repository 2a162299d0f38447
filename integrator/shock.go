package integrator

import (
	"math"

	"github.com/notargets/gofv/mesh"
)

// DetectShocks sets the blend weight of every face of b: one where the flow
// compresses across the face faster than threshold times the slower sound
// speed, zero elsewhere. With smooth set, every face of a cell touching a
// detected face is flagged as well.
func DetectShocks(b *mesh.Block, threshold float64, smooth bool) {
	for _, f := range b.Faces {
		var (
			L, R = f.Left[0].FS, f.Right[0].FS
			n    = f.Frame.N
			a    = math.Min(L.A, R.A)
		)
		f.Alpha = 0
		if !(a > 0) {
			continue
		}
		if comp := (R.Vel.Dot(n) - L.Vel.Dot(n)) / a; comp < -threshold {
			f.Alpha = 1
		}
	}
	if !smooth {
		return
	}
	flagged := make([]float64, len(b.Cells))
	for _, c := range b.Cells {
		for _, f := range c.Faces {
			flagged[c.ID] = math.Max(flagged[c.ID], f.Alpha)
		}
	}
	for _, f := range b.Faces {
		for _, c := range []*mesh.Cell{f.Left[0], f.Right[0]} {
			if !c.Ghost {
				f.Alpha = math.Max(f.Alpha, flagged[c.ID])
			}
		}
	}
}
