package mesh

import (
	"fmt"

	"github.com/notargets/gofv/gas"
	"github.com/notargets/gofv/geometry"
	"github.com/notargets/gofv/state"
)

const (
	West = iota
	East
	South
	North
	Bottom
	Top
)

var StructuredBoundaryNames = []string{"west", "east", "south", "north", "bottom", "top"}

// StructuredGhostLayers gives the two-cell stencil needed by MUSCL and the
// fourth-order convective scheme.
const StructuredGhostLayers = 2

// StructuredGrid is an NI x NJ x NK hexahedral grid. Vertex (i,j,k) is stored
// at i + (NI+1)*(j + (NJ+1)*k).
type StructuredGrid struct {
	NI, NJ, NK int
	pos0, pos  []geometry.Vector3
	vel        []geometry.Vector3
	dt         float64
}

func (sg *StructuredGrid) Kind() GridKind { return GridStructured }

func (sg *StructuredGrid) Vertices() []geometry.Vector3 { return sg.pos }

func (sg *StructuredGrid) VertexVelocities() []geometry.Vector3 { return sg.vel }

func (sg *StructuredGrid) HighOrderStencil() bool { return true }

func (sg *StructuredGrid) PredictVertexPositions(vel VertexVelocity, t, dt float64) {
	if sg.vel == nil {
		sg.vel = make([]geometry.Vector3, len(sg.pos))
	}
	for i, p := range sg.pos0 {
		sg.vel[i] = vel(p, t)
	}
	sg.dt = dt
}

func (sg *StructuredGrid) MoveToLevel(tau float64) {
	if sg.vel == nil {
		return
	}
	for i, p := range sg.pos0 {
		sg.pos[i] = p.Add(sg.vel[i].Scale(tau * sg.dt))
	}
}

func (sg *StructuredGrid) CommitStep() {
	copy(sg.pos0, sg.pos)
}

func (sg *StructuredGrid) vertexID(i, j, k int) int {
	return i + (sg.NI+1)*(j+(sg.NJ+1)*k)
}

// CellIndex returns the block cell index of structured cell (i,j,k).
func (sg *StructuredGrid) CellIndex(i, j, k int) int {
	return i + sg.NI*(j+sg.NJ*k)
}

// NewStructuredBlock builds the cells, faces, ghost cells and the six
// boundaries (west, east, south, north, bottom, top) of a structured block.
func NewStructuredBlock(id, ni, nj, nk int, verts []geometry.Vector3, l state.Layout,
	gm gas.Model, nStages int) (b *Block, err error) {
	if ni < 1 || nj < 1 || nk < 1 {
		err = fmt.Errorf("block %d: invalid structured dimensions %dx%dx%d", id, ni, nj, nk)
		return
	}
	if len(verts) != (ni+1)*(nj+1)*(nk+1) {
		err = fmt.Errorf("block %d: have %d vertices, need %d", id, len(verts), (ni+1)*(nj+1)*(nk+1))
		return
	}
	sg := &StructuredGrid{
		NI: ni, NJ: nj, NK: nk,
		pos0: append([]geometry.Vector3(nil), verts...),
		pos:  append([]geometry.Vector3(nil), verts...),
	}
	if b, err = newBlock(id, l, gm, nStages, sg); err != nil {
		return
	}
	for k := 0; k < nk; k++ {
		for j := 0; j < nj; j++ {
			for i := 0; i < ni; i++ {
				c := newCell(len(b.Cells), l, nStages, false)
				c.Vertices = []int{
					sg.vertexID(i, j, k), sg.vertexID(i+1, j, k),
					sg.vertexID(i+1, j+1, k), sg.vertexID(i, j+1, k),
					sg.vertexID(i, j, k+1), sg.vertexID(i+1, j, k+1),
					sg.vertexID(i+1, j+1, k+1), sg.vertexID(i, j+1, k+1),
				}
				b.Cells = append(b.Cells, c)
			}
		}
	}
	faceCounts := []int{nj * nk, nj * nk, ni * nk, ni * nk, ni * nj, ni * nj}
	for bid, name := range StructuredBoundaryNames {
		bnd := &Boundary{
			ID:     bid,
			Name:   name,
			Ghosts: make([][]*Cell, faceCounts[bid]),
		}
		for m := range bnd.Ghosts {
			for layer := 0; layer < StructuredGhostLayers; layer++ {
				bnd.Ghosts[m] = append(bnd.Ghosts[m], b.newGhost())
			}
		}
		b.Boundaries = append(b.Boundaries, bnd)
	}
	var (
		ghost = func(bid, m, layer int) *Cell {
			if layer >= StructuredGhostLayers {
				return nil
			}
			return b.Boundaries[bid].Ghosts[m][layer]
		}
		cellAt = func(i, j, k int) *Cell {
			switch {
			case i < 0:
				return ghost(West, j+nj*k, -i-1)
			case i >= ni:
				return ghost(East, j+nj*k, i-ni)
			case j < 0:
				return ghost(South, i+ni*k, -j-1)
			case j >= nj:
				return ghost(North, i+ni*k, j-nj)
			case k < 0:
				return ghost(Bottom, i+ni*j, -k-1)
			case k >= nk:
				return ghost(Top, i+ni*j, k-nk)
			}
			return b.Cells[sg.CellIndex(i, j, k)]
		}
		stencil = func(cells ...*Cell) (s []*Cell) {
			for _, c := range cells {
				if c == nil {
					break
				}
				s = append(s, c)
			}
			return
		}
		interior = func(cells ...*Cell) (s []*Cell) {
			for _, c := range cells {
				if c == nil || c.Ghost {
					break
				}
				s = append(s, c)
			}
			return
		}
		connect = func(f *Interface, left, right []*Cell, loBid, hiBid int, atLo, atHi bool) {
			f.Left, f.Right = left, right
			if !left[0].Ghost {
				left[0].addFace(f, 1)
			}
			if !right[0].Ghost {
				right[0].addFace(f, -1)
			}
			switch {
			case atLo:
				bnd := b.Boundaries[loBid]
				f.BoundaryID = loBid
				bnd.Faces = append(bnd.Faces, f)
				bnd.Outsign = append(bnd.Outsign, -1)
				bnd.Interior = append(bnd.Interior, interior(right...))
			case atHi:
				bnd := b.Boundaries[hiBid]
				f.BoundaryID = hiBid
				bnd.Faces = append(bnd.Faces, f)
				bnd.Outsign = append(bnd.Outsign, 1)
				bnd.Interior = append(bnd.Interior, interior(left...))
			}
		}
	)
	for k := 0; k < nk; k++ {
		for j := 0; j < nj; j++ {
			for i := 0; i <= ni; i++ {
				f := b.newFace()
				f.Vertices = []int{sg.vertexID(i, j, k), sg.vertexID(i, j+1, k),
					sg.vertexID(i, j+1, k+1), sg.vertexID(i, j, k+1)}
				connect(f,
					stencil(cellAt(i-1, j, k), cellAt(i-2, j, k)),
					stencil(cellAt(i, j, k), cellAt(i+1, j, k)),
					West, East, i == 0, i == ni)
			}
		}
	}
	for k := 0; k < nk; k++ {
		for j := 0; j <= nj; j++ {
			for i := 0; i < ni; i++ {
				f := b.newFace()
				f.Vertices = []int{sg.vertexID(i, j, k), sg.vertexID(i, j, k+1),
					sg.vertexID(i+1, j, k+1), sg.vertexID(i+1, j, k)}
				connect(f,
					stencil(cellAt(i, j-1, k), cellAt(i, j-2, k)),
					stencil(cellAt(i, j, k), cellAt(i, j+1, k)),
					South, North, j == 0, j == nj)
			}
		}
	}
	for k := 0; k <= nk; k++ {
		for j := 0; j < nj; j++ {
			for i := 0; i < ni; i++ {
				f := b.newFace()
				f.Vertices = []int{sg.vertexID(i, j, k), sg.vertexID(i+1, j, k),
					sg.vertexID(i+1, j+1, k), sg.vertexID(i, j+1, k)}
				connect(f,
					stencil(cellAt(i, j, k-1), cellAt(i, j, k-2)),
					stencil(cellAt(i, j, k), cellAt(i, j, k+1)),
					Bottom, Top, k == 0, k == nk)
			}
		}
	}
	err = b.ComputeGeometry(0)
	return
}

// CartesianVertices lays out a box of ni x nj x nk equal cells starting at
// origin. Coordinates are evaluated from the global index offset so that
// blocks cut from the same box share bit-identical vertices.
func CartesianVertices(origin geometry.Vector3, d geometry.Vector3, i0, ni, nj, nk int) (verts []geometry.Vector3) {
	verts = make([]geometry.Vector3, 0, (ni+1)*(nj+1)*(nk+1))
	for k := 0; k <= nk; k++ {
		for j := 0; j <= nj; j++ {
			for i := 0; i <= ni; i++ {
				verts = append(verts, geometry.Vector3{
					origin[0] + float64(i0+i)*d[0],
					origin[1] + float64(j)*d[1],
					origin[2] + float64(k)*d[2],
				})
			}
		}
	}
	return
}
