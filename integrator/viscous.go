package integrator

import (
	"github.com/notargets/gofv/geometry"
	"github.com/notargets/gofv/mesh"
)

// faceValues gives the velocity and temperature used for face integrals:
// the boundary state when an action fixed one, else the average of the two
// adjacent cells.
func faceValues(f *mesh.Interface) (vel geometry.Vector3, T, mu, k float64) {
	if f.FaceState {
		return f.FS.Vel, f.FS.T, f.FS.Mu, f.FS.K
	}
	L, R := f.Left[0].FS, f.Right[0].FS
	vel = L.Vel.Add(R.Vel).Scale(0.5)
	T = 0.5 * (L.T + R.T)
	mu = 0.5 * (L.Mu + R.Mu)
	k = 0.5 * (L.K + R.K)
	return
}

// ComputeGradients evaluates Green-Gauss gradients of velocity and
// temperature in the interior cells of b using the volumes of level gtl.
func ComputeGradients(b *mesh.Block, gtl int) {
	for _, c := range b.Cells {
		var g mesh.Gradients
		for i, f := range c.Faces {
			vel, T, _, _ := faceValues(f)
			nA := f.Frame.N.Scale(c.Outsign[i] * f.Area)
			for d := 0; d < 3; d++ {
				g.Vel[d] = g.Vel[d].Add(nA.Scale(vel[d]))
			}
			g.T = g.T.Add(nA.Scale(T))
		}
		ooV := 1. / c.Volume[gtl]
		for d := 0; d < 3; d++ {
			g.Vel[d] = g.Vel[d].Scale(ooV)
		}
		g.T = g.T.Scale(ooV)
		c.Grad = g
	}
}

// faceGradient averages two cell gradients and replaces the component along
// the line joining the points with the direct difference.
func faceGradient(gA, gB, xA, xB geometry.Vector3, phiA, phiB float64) geometry.Vector3 {
	var (
		d    = xB.Sub(xA)
		dist = d.Norm()
		avg  = gA.Add(gB).Scale(0.5)
	)
	if !(dist > 0) {
		return avg
	}
	e := d.Scale(1 / dist)
	return avg.Add(e.Scale((phiB-phiA)/dist - avg.Dot(e)))
}

// interiorSide returns the non-ghost cell of a boundary face.
func interiorSide(f *mesh.Interface) *mesh.Cell {
	if f.Left[0].Ghost {
		return f.Right[0]
	}
	return f.Left[0]
}

// ViscousFluxes adds the Newtonian stress and Fourier conduction fluxes to
// every face of b. Faces with a boundary state use a one sided gradient from
// the interior cell to the face. The conductive part is also left in
// HeatFlux for the wall actions and the load integrals.
func ViscousFluxes(b *mesh.Block) {
	var (
		l = b.Layout
	)
	for _, f := range b.Faces {
		vel, T, mu, k := faceValues(f)
		var (
			gradV [3]geometry.Vector3
			gradT geometry.Vector3
			n     = f.Frame.N
		)
		if f.FaceState {
			c := interiorSide(f)
			for d := 0; d < 3; d++ {
				gradV[d] = faceGradient(c.Grad.Vel[d], c.Grad.Vel[d], c.Pos, f.Pos, c.FS.Vel[d], vel[d])
			}
			gradT = faceGradient(c.Grad.T, c.Grad.T, c.Pos, f.Pos, c.FS.T, T)
		} else {
			cL, cR := f.Left[0], f.Right[0]
			for d := 0; d < 3; d++ {
				gradV[d] = faceGradient(cL.Grad.Vel[d], cR.Grad.Vel[d], cL.Pos, cR.Pos, cL.FS.Vel[d], cR.FS.Vel[d])
			}
			gradT = faceGradient(cL.Grad.T, cR.Grad.T, cL.Pos, cR.Pos, cL.FS.T, cR.FS.T)
		}
		var (
			div = gradV[0][0] + gradV[1][1] + gradV[2][2]
			tn  geometry.Vector3
		)
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				tau := mu * (gradV[i][j] + gradV[j][i])
				if i == j {
					tau -= 2. / 3 * mu * div
				}
				tn[i] += tau * n[j]
			}
		}
		q := -k * gradT.Dot(n)
		f.F[l.XMom] -= tn[0]
		f.F[l.YMom] -= tn[1]
		f.F[l.ZMom] -= tn[2]
		f.F[l.TotEnergy] += q - tn.Dot(vel)
		f.HeatFlux = q
	}
}
