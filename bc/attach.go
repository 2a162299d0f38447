package bc

import (
	"fmt"

	"github.com/notargets/gofv/flux"
	"github.com/notargets/gofv/gas"
	"github.com/notargets/gofv/mesh"
	"github.com/notargets/gofv/state"
	"github.com/notargets/gofv/types"
)

// Condition carries the parameters of one boundary condition. Only the fields
// used by Kind are read.
type Condition struct {
	Kind types.BCKind
	// Inflow is the ghost state of an inflow boundary.
	Inflow *state.FlowState
	// Flux is the flux entering the domain through a constant flux boundary.
	Flux state.ConservedQuantities
	// WallT is the temperature of a fixed temperature wall.
	WallT float64
	// Solid is the coupled solid of a solid coupled wall.
	Solid SolidSurface

	Emissivity, HBack, TBack, TInf float64
	Tol                            float64
	MaxIter                        int
}

// Physics is what every boundary of a block shares.
type Physics struct {
	Layout  state.Layout
	Gas     gas.Model
	Calc    *flux.Calculator
	Viscous bool
}

// Attach replaces the four action lists of bnd with the pipeline of the
// condition. Exchange boundaries get no actions, their ghosts are filled by
// the exchange protocol. Ghost gradients of the other boundaries are filled
// by the caller with CopyGradients once the cell gradients are known.
func Attach(bnd *mesh.Boundary, cond Condition, ph Physics) (err error) {
	bnd.PreReconstruction = nil
	bnd.PreSpatialDerivative = nil
	bnd.PostConvectiveFlux = nil
	bnd.PostDiffusiveFlux = nil
	if bnd.Kind == types.BC_Exchange || cond.Kind == types.BC_Exchange {
		bnd.Kind = types.BC_Exchange
		return
	}
	bnd.Kind = cond.Kind
	var (
		wall = func(noSlip bool) {
			bnd.PreReconstruction = mesh.ActionList{
				&Reflect{Boundary: bnd, Layout: ph.Layout, NoSlip: noSlip && ph.Viscous}}
			bnd.PostConvectiveFlux = mesh.ActionList{&WallFlux{Boundary: bnd, Calc: ph.Calc}}
		}
		viscous = func(pre, post mesh.Action) {
			if !ph.Viscous {
				return
			}
			bnd.PreSpatialDerivative = mesh.ActionList{pre}
			if post != nil {
				bnd.PostDiffusiveFlux = mesh.ActionList{post}
			}
		}
	)
	switch cond.Kind {
	case types.BC_SlipWall:
		wall(false)
	case types.BC_Inflow:
		if cond.Inflow == nil {
			return fmt.Errorf("%s: inflow needs a state", bnd)
		}
		bnd.PreReconstruction = mesh.ActionList{&FixedState{Boundary: bnd, State: cond.Inflow}}
	case types.BC_Outflow:
		bnd.PreReconstruction = mesh.ActionList{&ExtrapolateCopy{Boundary: bnd}}
	case types.BC_FixedTWall:
		wall(true)
		viscous(&FixedWallTemperature{Boundary: bnd, Gas: ph.Gas, Tw: cond.WallT}, nil)
	case types.BC_AdiabaticWall:
		wall(true)
		viscous(&NoSlipWall{Boundary: bnd, Gas: ph.Gas},
			&ZeroHeatFlux{Boundary: bnd, EnergySlot: ph.Layout.TotEnergy})
	case types.BC_ConstantFlux:
		if len(cond.Flux) != ph.Layout.N {
			return fmt.Errorf("%s: constant flux has %d values, layout has %d", bnd, len(cond.Flux), ph.Layout.N)
		}
		bnd.PreReconstruction = mesh.ActionList{&ExtrapolateCopy{Boundary: bnd}}
		bnd.PostConvectiveFlux = mesh.ActionList{&ConstantFlux{Boundary: bnd, Flux: cond.Flux}}
	case types.BC_SolidCoupledWall:
		if cond.Solid == nil {
			return fmt.Errorf("%s: solid coupled wall needs a solid", bnd)
		}
		if !ph.Viscous {
			return fmt.Errorf("%s: solid coupled wall needs viscous fluxes", bnd)
		}
		wall(true)
		viscous(&SolidCoupledWall{Boundary: bnd, Gas: ph.Gas, Solid: cond.Solid},
			&SolidHeatFlux{Boundary: bnd, Solid: cond.Solid})
	case types.BC_EnergyBalanceWall:
		if cond.MaxIter < 1 || !(cond.Tol > 0) {
			return fmt.Errorf("%s: energy balance wall needs a positive tolerance and iteration limit", bnd)
		}
		wall(true)
		viscous(&EnergyBalanceWall{Boundary: bnd, Gas: ph.Gas, Emissivity: cond.Emissivity,
			HBack: cond.HBack, TBack: cond.TBack, TInf: cond.TInf, Tol: cond.Tol, MaxIter: cond.MaxIter}, nil)
	default:
		return fmt.Errorf("%s: no boundary condition", bnd)
	}
	return
}
