package flux

import (
	"fmt"
	"math"
	"strings"

	"github.com/notargets/gofv/gas"
	"github.com/notargets/gofv/mesh"
	"github.com/notargets/gofv/state"
)

type LimiterType uint8

const (
	LIMITER_VanAlbada LimiterType = iota
	LIMITER_MinMod
)

var (
	LimiterNames = map[string]LimiterType{
		"van_albada": LIMITER_VanAlbada,
		"minmod":     LIMITER_MinMod,
	}
	LimiterPrintNames = []string{"van Albada", "MinMod"}
)

func (lt LimiterType) Print() (txt string) {
	txt = LimiterPrintNames[lt]
	return
}

func (lt LimiterType) String() string {
	return []string{"van_albada", "minmod"}[lt]
}

func ParseLimiterType(label string) (lt LimiterType, err error) {
	var (
		ok bool
	)
	label = strings.ToLower(label)
	if lt, ok = LimiterNames[label]; !ok {
		err = fmt.Errorf("unable to use limiter named %s", label)
	}
	return
}

const limiterEps = 1e-12

func (lt LimiterType) limit(a, b float64) float64 {
	if a*b <= 0 {
		return 0
	}
	switch lt {
	case LIMITER_MinMod:
		if math.Abs(a) < math.Abs(b) {
			return a
		}
		return b
	default:
		return (a*(b*b+limiterEps) + b*(a*a+limiterEps)) / (a*a + b*b + 2*limiterEps)
	}
}

// Reconstructor produces the left and right face states. Second order MUSCL
// interpolation of the primitive variables is used where the face has a full
// stencil; otherwise, or when the interpolated state is not physical, the
// adjacent cell states are copied.
type Reconstructor struct {
	Layout  state.Layout
	Gas     gas.Model
	Order   int
	Limiter LimiterType

	Fallbacks int
}

func NewReconstructor(l state.Layout, gm gas.Model, order int, lim LimiterType) (r *Reconstructor, err error) {
	if order != 1 && order != 2 {
		err = fmt.Errorf("reconstruction order must be 1 or 2, have %d", order)
		return
	}
	r = &Reconstructor{Layout: l, Gas: gm, Order: order, Limiter: lim}
	return
}

// Interpolate fills L and R for face. A face whose state was fixed by a
// boundary action uses that state on the ghost side.
func (r *Reconstructor) Interpolate(face *mesh.Interface, L, R *state.FlowState) {
	var (
		l0, r0 = face.Left[0], face.Right[0]
	)
	L.CopyValues(l0.FS)
	R.CopyValues(r0.FS)
	if face.FaceState {
		if l0.Ghost {
			L.CopyValues(face.FS)
		}
		if r0.Ghost {
			R.CopyValues(face.FS)
		}
		return
	}
	if r.Order < 2 || !face.HasStencil() {
		return
	}
	var (
		l1, r1 = face.Left[1].FS, face.Right[1].FS
	)
	r.muscl(l1, l0.FS, r0.FS, L)
	r.muscl(r1, r0.FS, l0.FS, R)
	okL := r.Gas.UpdateThermoFromRhoP(&L.GasState) == nil
	okR := r.Gas.UpdateThermoFromRhoP(&R.GasState) == nil
	if !okL || !okR {
		L.CopyValues(l0.FS)
		R.CopyValues(r0.FS)
		r.Fallbacks++
		return
	}
	r.Gas.UpdateTransCoeffs(&L.GasState)
	r.Gas.UpdateTransCoeffs(&R.GasState)
}

// muscl extrapolates from cell q0 toward the face, with q1 the cell behind q0
// and qf the cell across the face.
func (r *Reconstructor) muscl(q1, q0, qf, dst *state.FlowState) {
	var (
		lim = r.Limiter
	)
	extrap := func(v1, v0, vf float64) float64 {
		return v0 + 0.5*lim.limit(v0-v1, vf-v0)
	}
	dst.Rho = extrap(q1.Rho, q0.Rho, qf.Rho)
	dst.P = extrap(q1.P, q0.P, qf.P)
	for d := 0; d < 3; d++ {
		dst.Vel[d] = extrap(q1.Vel[d], q0.Vel[d], qf.Vel[d])
	}
	if r.Layout.MultiSpecies() {
		var sum float64
		for i := range dst.MassF {
			dst.MassF[i] = math.Max(extrap(q1.MassF[i], q0.MassF[i], qf.MassF[i]), 0)
			sum += dst.MassF[i]
		}
		if sum > 0 {
			for i := range dst.MassF {
				dst.MassF[i] /= sum
			}
		}
	}
	for i := range dst.TModes {
		dst.TModes[i] = extrap(q1.TModes[i], q0.TModes[i], qf.TModes[i])
	}
	for i := range dst.Turb {
		dst.Turb[i] = extrap(q1.Turb[i], q0.Turb[i], qf.Turb[i])
	}
	if r.Layout.MHD() {
		for d := 0; d < 3; d++ {
			dst.B[d] = extrap(q1.B[d], q0.B[d], qf.B[d])
		}
		dst.Psi = extrap(q1.Psi, q0.Psi, qf.Psi)
	}
}
