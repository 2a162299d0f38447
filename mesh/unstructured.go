package mesh

import (
	"fmt"

	"github.com/notargets/gofv/gas"
	"github.com/notargets/gofv/geometry"
	"github.com/notargets/gofv/state"
	"github.com/notargets/gofv/types"
)

// UnstructuredGrid is a layer of arbitrary polygons extruded through a fixed
// depth. Vertex v of the polygon plane is stored at v (z=0) and v+NV (z=depth).
type UnstructuredGrid struct {
	NV  int
	pos []geometry.Vector3
}

func (ug *UnstructuredGrid) Kind() GridKind { return GridUnstructured }

func (ug *UnstructuredGrid) Vertices() []geometry.Vector3 { return ug.pos }

func (ug *UnstructuredGrid) VertexVelocities() []geometry.Vector3 { return nil }

func (ug *UnstructuredGrid) HighOrderStencil() bool { return false }

// EdgeTagger assigns a boundary edge (in the owning cell's direction) to one
// of the edge boundaries.
type EdgeTagger func(from, to int) int

// NewUnstructuredBlock builds a block from polygons in the z=0 plane. Boundary
// edges are grouped by tagger into nEdgeBoundaries boundaries named edge-N;
// the two extrusion planes form one more boundary named planes.
func NewUnstructuredBlock(id int, plane []geometry.Vector3, polys [][]int, depth float64,
	tagger EdgeTagger, nEdgeBoundaries int, l state.Layout, gm gas.Model, nStages int) (b *Block, err error) {
	if depth <= 0 {
		err = fmt.Errorf("block %d: extrusion depth must be positive, have %g", id, depth)
		return
	}
	var (
		nv = len(plane)
		ug = &UnstructuredGrid{NV: nv, pos: make([]geometry.Vector3, 2*nv)}
		em = types.NewEdgeMap()
	)
	for v, p := range plane {
		ug.pos[v] = geometry.Vector3{p[0], p[1], 0}
		ug.pos[v+nv] = geometry.Vector3{p[0], p[1], depth}
	}
	if b, err = newBlock(id, l, gm, nStages, ug); err != nil {
		return
	}
	var (
		cellEdges = make([][]int, len(polys))
		ordered   = make([][]int, len(polys))
	)
	for ic, poly := range polys {
		if len(poly) < 3 {
			err = fmt.Errorf("block %d cell %d: polygon needs at least three vertices", id, ic)
			return
		}
		poly = counterClockwise(plane, poly)
		ordered[ic] = poly
		c := newCell(ic, l, nStages, false)
		for _, v := range poly {
			c.Vertices = append(c.Vertices, v, v+nv)
		}
		b.Cells = append(b.Cells, c)
		if cellEdges[ic], err = em.AddPolygon(ic, poly); err != nil {
			err = fmt.Errorf("block %d: %w", id, err)
			return
		}
	}
	for bid := 0; bid <= nEdgeBoundaries; bid++ {
		name := fmt.Sprintf("edge-%d", bid)
		if bid == nEdgeBoundaries {
			name = "planes"
		}
		b.Boundaries = append(b.Boundaries, &Boundary{ID: bid, Name: name})
	}
	addBoundaryFace := func(bid int, f *Interface, c *Cell) {
		bnd := b.Boundaries[bid]
		g := b.newGhost()
		f.Right = []*Cell{g}
		f.BoundaryID = bid
		bnd.Faces = append(bnd.Faces, f)
		bnd.Outsign = append(bnd.Outsign, 1)
		bnd.Interior = append(bnd.Interior, []*Cell{c})
		bnd.Ghosts = append(bnd.Ghosts, []*Cell{g})
	}
	edgeFaces := make([]*Interface, len(em.Uses))
	for e, use := range em.Uses {
		f := b.newFace()
		f.Vertices = []int{use.From, use.To, use.To + nv, use.From + nv}
		f.Left = []*Cell{b.Cells[use.Owner]}
		if use.Neighbour >= 0 {
			f.Right = []*Cell{b.Cells[use.Neighbour]}
		} else {
			bid := tagger(use.From, use.To)
			if bid < 0 || bid >= nEdgeBoundaries {
				err = fmt.Errorf("block %d: edge %d-%d tagged with boundary %d, have %d edge boundaries",
					id, use.From, use.To, bid, nEdgeBoundaries)
				return
			}
			addBoundaryFace(bid, f, b.Cells[use.Owner])
		}
		edgeFaces[e] = f
	}
	for ic, c := range b.Cells {
		for _, e := range cellEdges[ic] {
			if edgeFaces[e].Left[0] == c {
				c.addFace(edgeFaces[e], 1)
			} else {
				c.addFace(edgeFaces[e], -1)
			}
		}
		poly := ordered[ic]
		bottom := b.newFace()
		for i := len(poly) - 1; i >= 0; i-- {
			bottom.Vertices = append(bottom.Vertices, poly[i])
		}
		bottom.Left = []*Cell{c}
		addBoundaryFace(nEdgeBoundaries, bottom, c)
		c.addFace(bottom, 1)
		top := b.newFace()
		for _, v := range poly {
			top.Vertices = append(top.Vertices, v+nv)
		}
		top.Left = []*Cell{c}
		addBoundaryFace(nEdgeBoundaries, top, c)
		c.addFace(top, 1)
	}
	err = b.ComputeGeometry(0)
	return
}

func counterClockwise(plane []geometry.Vector3, poly []int) []int {
	var (
		area float64
		n    = len(poly)
	)
	for i := 0; i < n; i++ {
		p, q := plane[poly[i]], plane[poly[(i+1)%n]]
		area += p[0]*q[1] - q[0]*p[1]
	}
	if area >= 0 {
		return poly
	}
	rev := make([]int, n)
	for i, v := range poly {
		rev[n-1-i] = v
	}
	return rev
}
