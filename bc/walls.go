package bc

import (
	"fmt"
	"math"

	"github.com/notargets/gofv/flux"
	"github.com/notargets/gofv/gas"
	"github.com/notargets/gofv/mesh"
	"github.com/notargets/gofv/utils"
)

// StefanBoltzmann is in W/(m^2 K^4).
const StefanBoltzmann = 5.670374419e-8

// WallFlux replaces the convective flux of every face with the one-sided
// wall pressure flux.
type WallFlux struct {
	Boundary *mesh.Boundary
	Calc     *flux.Calculator
}

func (wf *WallFlux) Apply(t float64, stage int) (err error) {
	for m, f := range wf.Boundary.Faces {
		wf.Calc.WallFlux(f, wf.Boundary.Interior[m][0].FS, wf.Boundary.Outsign[m])
	}
	return
}

// setWallState gives face m a no-slip state at wall temperature tw and the
// interior pressure.
func setWallState(bnd *mesh.Boundary, gm gas.Model, m int, tw float64) (err error) {
	var (
		f   = bnd.Faces[m]
		src = bnd.Interior[m][0].FS
		fs  = f.FS
	)
	if !(tw > 0) {
		return fmt.Errorf("%s face %d: %w: wall temperature %g", bnd.Name, m, gas.ErrNonPhysical, tw)
	}
	fs.CopyValues(src)
	fs.Vel = f.GridVel
	fs.Rho = src.Rho * src.T / tw
	fs.T = tw
	for i := range fs.TModes {
		fs.TModes[i] = tw
	}
	if err = gm.UpdateThermoFromRhoT(&fs.GasState); err != nil {
		return fmt.Errorf("%s face %d: %w", bnd.Name, m, err)
	}
	gm.UpdateTransCoeffs(&fs.GasState)
	f.FaceState = true
	return
}

// FixedWallTemperature holds a no-slip wall at temperature Tw for the
// diffusive fluxes.
type FixedWallTemperature struct {
	Boundary *mesh.Boundary
	Gas      gas.Model
	Tw       float64
}

func (fw *FixedWallTemperature) Apply(t float64, stage int) (err error) {
	for m := range fw.Boundary.Faces {
		if err = setWallState(fw.Boundary, fw.Gas, m, fw.Tw); err != nil {
			return
		}
	}
	return
}

// NoSlipWall gives the faces a no-slip state at the adjacent cell's
// temperature.
type NoSlipWall struct {
	Boundary *mesh.Boundary
	Gas      gas.Model
}

func (ns *NoSlipWall) Apply(t float64, stage int) (err error) {
	for m := range ns.Boundary.Faces {
		if err = setWallState(ns.Boundary, ns.Gas, m, ns.Boundary.Interior[m][0].FS.T); err != nil {
			return
		}
	}
	return
}

// ZeroHeatFlux removes the conductive part of the diffusive energy flux.
type ZeroHeatFlux struct {
	Boundary   *mesh.Boundary
	EnergySlot int
}

func (zh *ZeroHeatFlux) Apply(t float64, stage int) (err error) {
	for _, f := range zh.Boundary.Faces {
		f.F[zh.EnergySlot] -= f.HeatFlux
		f.HeatFlux = 0
	}
	return
}

// SolidSurface is the gas side view of a coupled solid: the surface
// temperature under each boundary face and a sink for the heat flux the gas
// delivers into the solid.
type SolidSurface interface {
	SurfaceTemperature(face int) float64
	SetGasHeatFlux(face int, q float64)
}

// SolidCoupledWall takes its wall temperature from the solid before the
// gradients are evaluated.
type SolidCoupledWall struct {
	Boundary *mesh.Boundary
	Gas      gas.Model
	Solid    SolidSurface
}

func (sc *SolidCoupledWall) Apply(t float64, stage int) (err error) {
	for m := range sc.Boundary.Faces {
		if err = setWallState(sc.Boundary, sc.Gas, m, sc.Solid.SurfaceTemperature(m)); err != nil {
			return
		}
	}
	return
}

// SolidHeatFlux hands the conductive heat flux of every face to the solid,
// positive into the solid.
type SolidHeatFlux struct {
	Boundary *mesh.Boundary
	Solid    SolidSurface
}

func (sh *SolidHeatFlux) Apply(t float64, stage int) (err error) {
	for m, f := range sh.Boundary.Faces {
		sh.Solid.SetGasHeatFlux(m, sh.Boundary.Outsign[m]*f.HeatFlux)
	}
	return
}

// EnergyBalanceWall finds the wall temperature at which the heat conducted
// from a backing reservoir balances the heat conducted into the gas plus the
// radiated heat:
//
//	HBack*(TBack - Tw) = k*(Tw - Tgas)/d + Emissivity*sigma*(Tw^4 - TInf^4)
//
// with k and Tgas from the adjacent cell and d its distance from the face.
type EnergyBalanceWall struct {
	Boundary   *mesh.Boundary
	Gas        gas.Model
	Emissivity float64
	HBack      float64 // backing conductance, W/(m^2 K)
	TBack      float64
	TInf       float64
	Tol        float64
	MaxIter    int
	// Tw holds the last solved temperature of each face.
	Tw []float64
}

func (eb *EnergyBalanceWall) Apply(t float64, stage int) (err error) {
	if len(eb.Tw) != len(eb.Boundary.Faces) {
		eb.Tw = make([]float64, len(eb.Boundary.Faces))
	}
	for m, f := range eb.Boundary.Faces {
		var (
			c   = eb.Boundary.Interior[m][0]
			d   = math.Abs(f.Pos.Sub(c.Pos).Dot(f.Frame.N))
			tg  = c.FS.T
			kd  = c.FS.K / d
			es  = eb.Emissivity * StefanBoltzmann
			inf = math.Pow(eb.TInf, 4)
		)
		balance := func(tw float64) float64 {
			return kd*(tw-tg) + es*(math.Pow(tw, 4)-inf) - eb.HBack*(eb.TBack-tw)
		}
		hi := math.Max(math.Max(tg, eb.TBack), eb.TInf)
		rr := utils.Brent(balance, 0, hi, eb.Tol, eb.MaxIter)
		if err = rr.Err(); err != nil {
			return fmt.Errorf("%s face %d: energy balance wall temperature in [0, %g] K "+
				"(gas %g K, backing %g K): %w", eb.Boundary.Name, m, hi, tg, eb.TBack, err)
		}
		eb.Tw[m] = rr.Root
		if err = setWallState(eb.Boundary, eb.Gas, m, rr.Root); err != nil {
			return
		}
	}
	return
}
