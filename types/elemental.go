package types

import (
	"fmt"
	"math"
)

/*
EdgeKey is an always positive number that stores an edge's vertices as indices in a way that can be compared
An edge between vertices [4] and [0] will always be stored as [0,4], in the ascending order of the index values
*/
type EdgeKey uint64

func NewEdgeKey(verts [2]int) (packed EdgeKey) {
	// This packs two index coordinates into two 32 bit unsigned integers to act as a hash and an indirect access method
	var (
		limit = math.MaxUint32
	)
	for _, vert := range verts {
		if vert < 0 || vert > limit {
			panic(fmt.Errorf("unable to pack two ints into a uint64, have %d and %d as inputs",
				verts[0], verts[1]))
		}
	}
	var i1, i2 int
	if verts[0] <= verts[1] {
		i1, i2 = verts[0], verts[1]
	} else {
		i1, i2 = verts[1], verts[0]
	}
	packed = EdgeKey(i1 + i2<<32)
	return
}

func (ek EdgeKey) GetVertices(rev bool) (verts [2]int) {
	var (
		enTmp EdgeKey
	)
	enTmp = ek >> 32
	verts[1] = int(enTmp)
	verts[0] = int(ek - enTmp*(1<<32))
	if rev {
		verts[0], verts[1] = verts[1], verts[0]
	}
	return
}

// EdgeUse records which polygon cells share an edge. The owner traversed the
// edge in the stored direction, the neighbour (if any) in the reverse one.
type EdgeUse struct {
	From, To  int
	Owner     int
	Neighbour int // -1 on a domain boundary
}

// EdgeMap collects the directed edges of counter-clockwise polygons so that
// every shared edge is visited once.
type EdgeMap struct {
	Edges map[EdgeKey]int
	Uses  []EdgeUse
}

func NewEdgeMap() *EdgeMap {
	return &EdgeMap{Edges: make(map[EdgeKey]int)}
}

// AddPolygon registers each edge of cell's polygon and returns the edge index
// of every side in polygon order.
func (em *EdgeMap) AddPolygon(cell int, verts []int) (edges []int, err error) {
	var (
		nv = len(verts)
	)
	edges = make([]int, nv)
	for i := 0; i < nv; i++ {
		from, to := verts[i], verts[(i+1)%nv]
		key := NewEdgeKey([2]int{from, to})
		if ind, ok := em.Edges[key]; ok {
			use := &em.Uses[ind]
			if use.Neighbour != -1 || use.From != to {
				err = fmt.Errorf("edge %v of cell %d is already shared or has inconsistent orientation",
					key.GetVertices(false), cell)
				return
			}
			use.Neighbour = cell
			edges[i] = ind
			continue
		}
		em.Edges[key] = len(em.Uses)
		edges[i] = len(em.Uses)
		em.Uses = append(em.Uses, EdgeUse{From: from, To: to, Owner: cell, Neighbour: -1})
	}
	return
}
