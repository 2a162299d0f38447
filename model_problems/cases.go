package model_problems

import (
	"fmt"

	"github.com/notargets/gofv/bc"
	"github.com/notargets/gofv/exchange"
	"github.com/notargets/gofv/gas"
	"github.com/notargets/gofv/geometry"
	"github.com/notargets/gofv/mesh"
	"github.com/notargets/gofv/readfiles"
	"github.com/notargets/gofv/solid"
	"github.com/notargets/gofv/state"
	"github.com/notargets/gofv/types"
)

// Case is a domain cut into blocks along x, with the conditions on its sides
// and its initial flow. Blocks are built on the rank that owns them.
type Case struct {
	Name   string
	Layout state.Layout
	Gas    gas.Model
	// NCells is the number of cells along x over all blocks.
	NCells, NBlocks int
	Length, Width   float64
	Links           []exchange.Link
	// Condition gives the condition of a boundary that is not connected.
	Condition func(block, boundary int) bc.Condition
	// Initial sets rho, p and velocity of the cell centred at pos.
	Initial func(pos geometry.Vector3, fs *state.FlowState)
	// Solid, when set, is the slab under every SolidCoupledWall boundary.
	Solid *solid.Config
	// Grid, when set, builds the mesh of a block in place of the cut along x.
	Grid func(id, nStages int) (*mesh.Block, error)
}

func newCase(name string, l state.Layout, gm gas.Model, nCells, nBlocks int, length, width float64) (c *Case, err error) {
	switch {
	case nBlocks < 1 || nCells < nBlocks:
		return nil, fmt.Errorf("%s: cannot cut %d cells into %d blocks", name, nCells, nBlocks)
	case nCells%nBlocks != 0:
		return nil, fmt.Errorf("%s: %d cells do not split evenly into %d blocks", name, nCells, nBlocks)
	}
	c = &Case{
		Name:    name,
		Layout:  l,
		Gas:     gm,
		NCells:  nCells,
		NBlocks: nBlocks,
		Length:  length,
		Width:   width,
	}
	for b := 0; b+1 < nBlocks; b++ {
		c.Links = append(c.Links,
			exchange.Link{Block: b, Boundary: mesh.East, PeerBlock: b + 1, PeerBoundary: mesh.West},
			exchange.Link{Block: b + 1, Boundary: mesh.West, PeerBlock: b, PeerBoundary: mesh.East},
		)
	}
	return
}

// BuildBlock makes block id with its initial flow. Neighbouring blocks share
// bit identical vertices.
func (c *Case) BuildBlock(id, nStages int) (b *mesh.Block, err error) {
	if id < 0 || id >= c.NBlocks {
		return nil, fmt.Errorf("%s has no block %d", c.Name, id)
	}
	if err = c.Layout.CheckGas(c.Gas); err != nil {
		return nil, fmt.Errorf("%s: %w", c.Name, err)
	}
	if c.Grid != nil {
		b, err = c.Grid(id, nStages)
	} else {
		var (
			ni = c.NCells / c.NBlocks
			d  = geometry.Vector3{c.Length / float64(c.NCells), c.Width, c.Width}
		)
		b, err = mesh.NewStructuredBlock(id, ni, 1, 1, mesh.CartesianVertices(geometry.Vector3{}, d, id*ni, ni, 1, 1),
			c.Layout, c.Gas, nStages)
	}
	if err != nil {
		return
	}
	for _, cell := range b.Cells {
		fs := cell.FS
		c.Initial(cell.Pos, fs)
		if err = c.Gas.UpdateThermoFromRhoP(&fs.GasState); err != nil {
			return nil, fmt.Errorf("%s block %d cell %d: %w", c.Name, id, cell.ID, err)
		}
		c.Gas.UpdateTransCoeffs(&fs.GasState)
	}
	return
}

// ends gives outflow on the two x ends of the domain and slip walls on the
// sides.
func (c *Case) ends(kind types.BCKind) func(block, boundary int) bc.Condition {
	return func(block, boundary int) bc.Condition {
		if boundary == mesh.West || boundary == mesh.East {
			return bc.Condition{Kind: kind}
		}
		return bc.Condition{Kind: types.BC_SlipWall}
	}
}

func idealGas(R, gamma float64) (gm *gas.IdealGas, err error) {
	return gas.NewIdealGas([]gas.Species{{Name: "gas", R: R, Gamma: gamma}}, nil,
		gas.Sutherland{Mu0: 1.716e-5, T0: 273.15, S: 110.4}, 0.72)
}

func singleSpecies() (l state.Layout) {
	l, _ = state.NewLayout(1, 0, 0, false, false)
	return
}

// SodShockTube is the shock tube on [0, 1] with the diaphragm at 0.5:
// rho 1, p 1 on the left and rho 0.125, p 0.1 on the right, gamma 1.4.
func SodShockTube(nCells, nBlocks int) (c *Case, err error) {
	var gm *gas.IdealGas
	if gm, err = idealGas(1, 1.4); err != nil {
		return
	}
	if c, err = newCase("sod", singleSpecies(), gm, nCells, nBlocks, 1, 0.1); err != nil {
		return
	}
	c.Condition = c.ends(types.BC_Outflow)
	c.Initial = func(pos geometry.Vector3, fs *state.FlowState) {
		fs.Vel = geometry.Vector3{}
		if pos[0] < 0.5 {
			fs.Rho, fs.P = 1, 1
		} else {
			fs.Rho, fs.P = 0.125, 0.1
		}
	}
	return
}

// UniformFlow is air at rest or in uniform motion, with no gradients
// anywhere. It stays unchanged under any consistent flux.
func UniformFlow(nCells, nBlocks int, vel geometry.Vector3) (c *Case, err error) {
	if c, err = newCase("uniform", singleSpecies(), gas.NewIdealAir(), nCells, nBlocks, 1, 0.1); err != nil {
		return
	}
	c.Condition = c.ends(types.BC_Outflow)
	c.Initial = func(pos geometry.Vector3, fs *state.FlowState) {
		fs.Rho, fs.P, fs.Vel = 1.2, 1e5, vel
	}
	return
}

// MeshFlow is uniform air in motion over an SU2 mesh extruded through depth,
// one block. Markers take the condition named in kinds, by default a slip
// wall. The extrusion planes are slip walls.
func MeshFlow(g *readfiles.Grid, depth float64, kinds map[string]types.BCKind, vel geometry.Vector3) (c *Case, err error) {
	for name, kind := range kinds {
		if g.MarkerIndex(name) < 0 {
			return nil, fmt.Errorf("mesh has no marker %q", name)
		}
		switch kind {
		case types.BC_SlipWall, types.BC_Outflow, types.BC_Inflow, types.BC_AdiabaticWall:
		default:
			return nil, fmt.Errorf("marker %q: %s is not available on a mesh case", name, kind)
		}
	}
	c = &Case{Name: "mesh", Layout: singleSpecies(), Gas: gas.NewIdealAir(), NCells: len(g.Polygons), NBlocks: 1}
	c.Grid = func(id, nStages int) (*mesh.Block, error) {
		return g.Block(id, depth, c.Layout, c.Gas, nStages)
	}
	c.Condition = func(block, boundary int) bc.Condition {
		if boundary >= len(g.Markers) {
			return bc.Condition{Kind: types.BC_SlipWall}
		}
		kind, ok := kinds[g.Markers[boundary].Name]
		if !ok {
			kind = types.BC_SlipWall
		}
		cond := bc.Condition{Kind: kind}
		if kind == types.BC_Inflow {
			// left unset on failure, Attach reports the missing state
			in := state.NewFlowState(c.Layout)
			c.Initial(geometry.Vector3{}, in)
			if c.Gas.UpdateThermoFromRhoP(&in.GasState) == nil {
				c.Gas.UpdateTransCoeffs(&in.GasState)
				cond.Inflow = in
			}
		}
		return cond
	}
	c.Initial = func(pos geometry.Vector3, fs *state.FlowState) {
		fs.Rho, fs.P, fs.Vel = 1.2, 1e5, vel
	}
	return
}

// HeatedChannel is hot air at rest over a cold slab along the north side of
// the channel. The other sides are adiabatic walls.
func HeatedChannel(nCells, nBlocks int, tGas float64, slab solid.Config) (c *Case, err error) {
	gm := gas.NewIdealAir()
	if c, err = newCase("heated_channel", singleSpecies(), gm, nCells, nBlocks, 0.1, 0.01); err != nil {
		return
	}
	c.Solid = &slab
	c.Condition = func(block, boundary int) bc.Condition {
		if boundary == mesh.North {
			return bc.Condition{Kind: types.BC_SolidCoupledWall}
		}
		return bc.Condition{Kind: types.BC_AdiabaticWall}
	}
	c.Initial = func(pos geometry.Vector3, fs *state.FlowState) {
		fs.Vel = geometry.Vector3{}
		fs.P = 1e5
		fs.Rho = fs.P / (287.1 * tGas)
	}
	return
}

// Drain removes energy at Rate per unit volume from every cell between XMin
// and XMax. A large rate drives those cells non-physical within one stage.
type Drain struct {
	Slot       int
	Rate       float64
	XMin, XMax float64
}

func (d Drain) Evaluate(t float64, pos geometry.Vector3, fs *state.FlowState, q state.ConservedQuantities) error {
	if pos[0] > d.XMin && pos[0] < d.XMax {
		q[d.Slot] -= d.Rate
	}
	return nil
}

// FailingFlow is uniform flow with a strong energy sink over [xMin, xMax].
func FailingFlow(nCells, nBlocks int, xMin, xMax float64) (c *Case, src Drain, err error) {
	if c, err = UniformFlow(nCells, nBlocks, geometry.Vector3{}); err != nil {
		return
	}
	c.Name = "failing"
	src = Drain{Slot: c.Layout.TotEnergy, Rate: 1e13, XMin: xMin, XMax: xMax}
	return
}
