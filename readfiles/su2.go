package readfiles

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/notargets/gofv/gas"
	"github.com/notargets/gofv/geometry"
	"github.com/notargets/gofv/mesh"
	"github.com/notargets/gofv/state"
	"github.com/notargets/gofv/types"
)

// From here: https://su2code.github.io/docs_v7/Mesh-File/
type SU2ElementType uint8

const (
	ELType_LINE          SU2ElementType = 3
	ELType_Triangle      SU2ElementType = 5
	ELType_Quadrilateral SU2ElementType = 9
	ELType_Tetrahedral   SU2ElementType = 10
	ELType_Hexahedral    SU2ElementType = 12
	ELType_Prism         SU2ElementType = 13
	ELType_Pyramid       SU2ElementType = 14
)

// Grid is a two dimensional SU2 mesh of triangles and quadrilaterals.
type Grid struct {
	Vertices []geometry.Vector3
	Polygons [][]int
	Markers  []Marker
	// edge owner marker, either direction
	tags map[types.EdgeKey]int
}

// Marker is a named group of boundary edges.
type Marker struct {
	Name  string
	Edges [][2]int
}

func ReadSU2File(path string) (g *Grid, err error) {
	var file *os.File
	if file, err = os.Open(path); err != nil {
		return nil, fmt.Errorf("unable to open mesh file: %w", err)
	}
	defer file.Close()
	if g, err = ReadSU2(file); err != nil {
		err = fmt.Errorf("%s: %w", path, err)
	}
	return
}

// ReadSU2 reads the elements, points and markers sections, in that order.
func ReadSU2(r io.Reader) (g *Grid, err error) {
	var (
		sc  = &lineReader{s: bufio.NewScanner(r)}
		dim int
	)
	if dim, err = sc.number("NDIME"); err != nil {
		return
	}
	if dim != 2 {
		return nil, fmt.Errorf("only two dimensional meshes are read, have NDIME= %d", dim)
	}
	g = &Grid{tags: make(map[types.EdgeKey]int)}
	if err = g.readElements(sc); err != nil {
		return nil, err
	}
	if err = g.readVertices(sc); err != nil {
		return nil, err
	}
	if err = g.readMarkers(sc); err != nil {
		return nil, err
	}
	nv := len(g.Vertices)
	for k, poly := range g.Polygons {
		for _, v := range poly {
			if v < 0 || v >= nv {
				return nil, fmt.Errorf("element %d references point %d, have %d points", k, v, nv)
			}
		}
	}
	return
}

func (g *Grid) readElements(sc *lineReader) (err error) {
	var K int
	if K, err = sc.number("NELEM"); err != nil {
		return
	}
	g.Polygons = make([][]int, K)
	for k := 0; k < K; k++ {
		var (
			line   string
			fields []int
		)
		if line, err = sc.next(); err != nil {
			return
		}
		if fields, err = ints(line); err != nil || len(fields) < 1 {
			return fmt.Errorf("line %d: bad element %q", sc.line, line)
		}
		var nv int
		switch SU2ElementType(fields[0]) {
		case ELType_Triangle:
			nv = 3
		case ELType_Quadrilateral:
			nv = 4
		default:
			return fmt.Errorf("line %d: element type %d is not a triangle or quadrilateral", sc.line, fields[0])
		}
		if len(fields) < nv+1 {
			return fmt.Errorf("line %d: element needs %d points", sc.line, nv)
		}
		g.Polygons[k] = append([]int(nil), fields[1:nv+1]...)
	}
	return
}

func (g *Grid) readVertices(sc *lineReader) (err error) {
	var Nv int
	if Nv, err = sc.number("NPOIN"); err != nil {
		return
	}
	g.Vertices = make([]geometry.Vector3, Nv)
	for i := 0; i < Nv; i++ {
		var (
			line string
			x, y float64
		)
		if line, err = sc.next(); err != nil {
			return
		}
		if _, err = fmt.Sscanf(line, "%g %g", &x, &y); err != nil {
			return fmt.Errorf("line %d: unable to read coordinates: %w", sc.line, err)
		}
		g.Vertices[i] = geometry.Vector3{x, y, 0}
	}
	return
}

func (g *Grid) readMarkers(sc *lineReader) (err error) {
	var nMark int
	if nMark, err = sc.number("NMARK"); err != nil {
		return
	}
	for n := 0; n < nMark; n++ {
		var (
			m      Marker
			nEdges int
		)
		if m.Name, err = sc.token("MARKER_TAG"); err != nil {
			return
		}
		if g.MarkerIndex(m.Name) >= 0 {
			return fmt.Errorf("line %d: duplicate marker %q", sc.line, m.Name)
		}
		if nEdges, err = sc.number("MARKER_ELEMS"); err != nil {
			return
		}
		for i := 0; i < nEdges; i++ {
			var (
				line   string
				fields []int
			)
			if line, err = sc.next(); err != nil {
				return
			}
			if fields, err = ints(line); err != nil || len(fields) < 3 {
				return fmt.Errorf("line %d: bad marker element %q", sc.line, line)
			}
			if SU2ElementType(fields[0]) != ELType_LINE {
				return fmt.Errorf("line %d: markers should only contain line elements in 2D", sc.line)
			}
			e := [2]int{fields[1], fields[2]}
			if e[0] < 0 || e[1] < 0 || e[0] >= len(g.Vertices) || e[1] >= len(g.Vertices) {
				return fmt.Errorf("line %d: marker edge %v out of range", sc.line, e)
			}
			key := types.NewEdgeKey(e)
			if prev, ok := g.tags[key]; ok {
				return fmt.Errorf("line %d: edge %v is in markers %q and %q", sc.line, e,
					g.Markers[prev].Name, m.Name)
			}
			g.tags[key] = len(g.Markers)
			m.Edges = append(m.Edges, e)
		}
		g.Markers = append(g.Markers, m)
	}
	return
}

// MarkerIndex is the position of the named marker, -1 if absent.
func (g *Grid) MarkerIndex(name string) int {
	for i, m := range g.Markers {
		if m.Name == name {
			return i
		}
	}
	return -1
}

// Tagger maps a boundary edge to its marker, -1 for an edge in no marker.
func (g *Grid) Tagger() mesh.EdgeTagger {
	return func(from, to int) int {
		if m, ok := g.tags[types.NewEdgeKey([2]int{from, to})]; ok {
			return m
		}
		return -1
	}
}

// Block extrudes the grid through depth. Boundary i of the block is marker i
// and carries its name. The last boundary holds the two extrusion planes.
func (g *Grid) Block(id int, depth float64, l state.Layout, gm gas.Model, nStages int) (b *mesh.Block, err error) {
	if b, err = mesh.NewUnstructuredBlock(id, g.Vertices, g.Polygons, depth, g.Tagger(), len(g.Markers),
		l, gm, nStages); err != nil {
		return
	}
	for i, m := range g.Markers {
		b.Boundaries[i].Name = m.Name
	}
	return
}

type lineReader struct {
	s    *bufio.Scanner
	line int
}

// next returns the next line that is neither blank nor a comment.
func (lr *lineReader) next() (line string, err error) {
	for lr.s.Scan() {
		lr.line++
		line = strings.TrimSpace(lr.s.Text())
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}
		return
	}
	if err = lr.s.Err(); err == nil {
		err = fmt.Errorf("early end of file after line %d", lr.line)
	}
	return
}

// token reads "KEY= value" and returns the value.
func (lr *lineReader) token(key string) (value string, err error) {
	var line string
	if line, err = lr.next(); err != nil {
		return
	}
	ind := strings.Index(line, "=")
	if ind < 0 || strings.TrimSpace(line[:ind]) != key {
		return "", fmt.Errorf("line %d: badly formed input line [%s], expected %s=", lr.line, line, key)
	}
	if value = strings.TrimSpace(line[ind+1:]); value == "" {
		err = fmt.Errorf("line %d: %s has no value", lr.line, key)
	}
	return
}

func (lr *lineReader) number(key string) (num int, err error) {
	var token string
	if token, err = lr.token(key); err != nil {
		return
	}
	if _, err = fmt.Sscanf(token, "%d", &num); err != nil || num < 0 {
		return 0, fmt.Errorf("line %d: unable to read number from token: [%s]", lr.line, token)
	}
	return
}

func ints(line string) (vals []int, err error) {
	for _, f := range strings.Fields(line) {
		var v int
		if _, err = fmt.Sscanf(f, "%d", &v); err != nil {
			return
		}
		vals = append(vals, v)
	}
	return
}
