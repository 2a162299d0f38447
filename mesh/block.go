package mesh

import (
	"fmt"
	"math"

	"github.com/notargets/gofv/gas"
	"github.com/notargets/gofv/geometry"
	"github.com/notargets/gofv/state"
	"github.com/notargets/gofv/types"
)

type GridKind uint8

const (
	GridStructured GridKind = iota
	GridUnstructured
)

func (gk GridKind) String() string {
	return []string{"structured", "unstructured"}[gk]
}

// Grid is what both grid topologies offer to the solver.
type Grid interface {
	Kind() GridKind
	Vertices() []geometry.Vector3
	// VertexVelocities is nil for a grid that does not move.
	VertexVelocities() []geometry.Vector3
	// HighOrderStencil reports whether faces carry two cells per side.
	HighOrderStencil() bool
}

type VertexVelocity func(pos geometry.Vector3, t float64) geometry.Vector3

// VertexMover is only implemented by grids that support moving vertices.
type VertexMover interface {
	// PredictVertexPositions evaluates the vertex velocities for a step of
	// size dt starting at time t.
	PredictVertexPositions(vel VertexVelocity, t, dt float64)
	// MoveToLevel places the vertices at the fraction tau of the step.
	MoveToLevel(tau float64)
	// CommitStep makes the current positions the start of the next step.
	CommitStep()
}

// Block is the unit of parallel work: its cells, faces and boundaries.
type Block struct {
	ID         int
	Label      string
	Layout     state.Layout
	Gas        gas.Model
	NStages    int
	Cells      []*Cell
	Faces      []*Interface
	Ghosts     []*Cell
	Boundaries []*Boundary
	Grid       Grid
	Mover      VertexMover // nil unless the grid variant supports motion
}

func newBlock(id int, l state.Layout, gm gas.Model, nStages int, grid Grid) (b *Block, err error) {
	if nStages < 1 {
		err = fmt.Errorf("block %d: need at least one stage, have %d", id, nStages)
		return
	}
	b = &Block{
		ID:      id,
		Label:   fmt.Sprintf("block-%04d", id),
		Layout:  l,
		Gas:     gm,
		NStages: nStages,
		Grid:    grid,
	}
	if mover, ok := grid.(VertexMover); ok {
		b.Mover = mover
	}
	return
}

func (b *Block) newGhost() (c *Cell) {
	c = newCell(len(b.Cells)+len(b.Ghosts), b.Layout, b.NStages, true)
	b.Ghosts = append(b.Ghosts, c)
	return
}

func (b *Block) newFace() (f *Interface) {
	f = newInterface(len(b.Faces), b.Layout)
	b.Faces = append(b.Faces, f)
	return
}

func (b *Block) BoundaryByName(name string) (bnd *Boundary, err error) {
	for _, bnd = range b.Boundaries {
		if bnd.Name == name {
			return
		}
	}
	err = fmt.Errorf("block %d has no boundary named %q", b.ID, name)
	return nil, err
}

// ComputeGeometry evaluates face and cell geometry from the current vertex
// positions, storing cell volumes at grid time level gtl. Ghost cells on
// connected boundaries keep the geometry received from their neighbour.
func (b *Block) ComputeGeometry(gtl int) (err error) {
	var (
		verts = b.Grid.Vertices()
		vel   = b.Grid.VertexVelocities()
		pts   []geometry.Vector3
	)
	for _, f := range b.Faces {
		pts = pts[:0]
		for _, v := range f.Vertices {
			pts = append(pts, verts[v])
		}
		var n geometry.Vector3
		if f.Pos, n, f.Area, err = geometry.FaceProperties(pts); err != nil {
			err = fmt.Errorf("block %d face %d: %w", b.ID, f.ID, err)
			return
		}
		if f.Frame, err = geometry.FrameFromNormal(n); err != nil {
			err = fmt.Errorf("block %d face %d: %w", b.ID, f.ID, err)
			return
		}
		if vel != nil {
			var gv geometry.Vector3
			for _, v := range f.Vertices {
				gv = gv.Add(vel[v])
			}
			f.GridVel = gv.Scale(1. / float64(len(f.Vertices)))
		}
	}
	var (
		cents, areas []geometry.Vector3
	)
	for _, c := range b.Cells {
		pts = pts[:0]
		for _, v := range c.Vertices {
			pts = append(pts, verts[v])
		}
		c.Pos = geometry.Average(pts...)
		cents, areas = cents[:0], areas[:0]
		maxArea := 0.
		for i, f := range c.Faces {
			cents = append(cents, f.Pos.Sub(c.Pos))
			areas = append(areas, f.Frame.N.Scale(c.Outsign[i]*f.Area))
			maxArea = math.Max(maxArea, f.Area)
		}
		vol := geometry.PolyhedronVolume(cents, areas)
		if !(vol > 0) {
			err = fmt.Errorf("block %d cell %d: non-positive volume %g", b.ID, c.ID, vol)
			return
		}
		c.Volume[gtl] = vol
		c.L = vol / maxArea
	}
	for _, bnd := range b.Boundaries {
		if bnd.Kind == types.BC_Exchange {
			continue
		}
		for m, f := range bnd.Faces {
			interior := bnd.Interior[m]
			for layer, g := range bnd.Ghosts[m] {
				src := interior[min(layer, len(interior)-1)]
				g.Pos = f.Pos.Scale(2).Sub(src.Pos)
				g.Volume[gtl] = src.Volume[gtl]
				g.L = src.L
			}
		}
	}
	return
}

// CopyVolume copies the volumes of one grid level to another, used when the
// grid is fixed and every level shares the same geometry.
func (b *Block) CopyVolume(from, to int) {
	for _, c := range b.Cells {
		c.Volume[to] = c.Volume[from]
	}
	for _, g := range b.Ghosts {
		g.Volume[to] = g.Volume[from]
	}
}
