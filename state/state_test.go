package state

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gofv/gas"
	"github.com/notargets/gofv/geometry"
)

func testGas(t *testing.T, nSpecies, nModes int) gas.Model {
	var (
		species = []gas.Species{{Name: "a", R: 287, Gamma: 1.4}, {Name: "b", R: 297, Gamma: 1.4},
			{Name: "c", R: 2077, Gamma: 5. / 3.}}
		modes = []gas.Mode{{Name: "vib", Cv: 500}, {Name: "elec", Cv: 50}}
	)
	gm, err := gas.NewIdealGas(species[:nSpecies], modes[:nModes], gas.Sutherland{Mu0: 1e-5}, 0.7)
	require.NoError(t, err)
	return gm
}

func TestLayoutLengths(t *testing.T) {
	for _, ns := range []int{1, 2, 3} {
		for _, nm := range []int{0, 1, 2} {
			for _, nt := range []int{0, 1, 2} {
				for _, mhd := range []bool{false, true} {
					for _, clean := range []bool{false, true} {
						l, err := NewLayout(ns, nm, nt, mhd, clean)
						if clean && !mhd {
							assert.Error(t, err)
							continue
						}
						require.NoError(t, err)
						want := 5 + nm + nt
						if ns > 1 {
							want += ns
						}
						if mhd {
							want += 3
							if clean {
								want++
							}
						}
						assert.Equal(t, want, l.N, l.String())
						assert.Len(t, l.NewConserved(), want)
						seen := map[string]bool{}
						for i := 0; i < l.N; i++ {
							seen[l.SlotName(i)] = true
						}
						assert.Len(t, seen, want)
					}
				}
			}
		}
	}
	_, err := NewLayout(0, 0, 0, false, false)
	assert.Error(t, err)
}

func TestLayoutCheckGas(t *testing.T) {
	l, err := NewLayout(2, 1, 0, false, false)
	require.NoError(t, err)
	assert.NoError(t, l.CheckGas(testGas(t, 2, 1)))
	assert.ErrorIs(t, l.CheckGas(testGas(t, 3, 1)), ErrGasMismatch)
	assert.ErrorIs(t, l.CheckGas(testGas(t, 2, 0)), ErrGasMismatch)
	assert.ErrorIs(t, l.CheckGas(gas.NewIdealAir()), ErrGasMismatch)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, ns := range []int{1, 2, 3} {
		for _, nm := range []int{0, 1, 2} {
			for _, nt := range []int{0, 2} {
				for _, mhd := range []bool{false, true} {
					name := fmt.Sprintf("species%d_modes%d_turb%d_mhd%v", ns, nm, nt, mhd)
					t.Run(name, func(t *testing.T) {
						l, err := NewLayout(ns, nm, nt, mhd, mhd)
						require.NoError(t, err)
						gm := testGas(t, ns, nm)
						fs := NewFlowState(l)
						fs.Rho, fs.T = 1.3, 350
						for i := range fs.MassF {
							fs.MassF[i] = 1. / float64(ns)
						}
						for i := range fs.TModes {
							fs.TModes[i] = 800 + 100*float64(i)
						}
						for i := range fs.Turb {
							fs.Turb[i] = 0.1 * float64(i+1)
						}
						fs.Vel = geometry.Vector3{120, -30, 7}
						if mhd {
							fs.B = geometry.Vector3{0.3, -0.2, 0.1}
							fs.Psi = 0.01
						}
						require.NoError(t, gm.UpdateThermoFromRhoT(&fs.GasState))
						U := l.NewConserved()
						Encode(l, fs, U)
						out := NewFlowState(l)
						require.NoError(t, Decode(l, gm, U, out))
						tol := 1e-9
						assert.InDelta(t, fs.Rho, out.Rho, tol)
						assert.InDelta(t, fs.P, out.P, tol*fs.P)
						assert.InDelta(t, fs.T, out.T, tol*fs.T)
						for i := 0; i < 3; i++ {
							assert.InDelta(t, fs.Vel[i], out.Vel[i], tol)
							assert.InDelta(t, fs.B[i], out.B[i], tol)
						}
						assert.InDelta(t, fs.Psi, out.Psi, tol)
						assert.InDeltaSlice(t, fs.MassF, out.MassF, tol)
						assert.InDeltaSlice(t, fs.TModes, out.TModes, tol*1e3)
						assert.InDeltaSlice(t, fs.Turb, out.Turb, tol)
						U2 := l.NewConserved()
						Encode(l, out, U2)
						for i := range U {
							assert.InDelta(t, U[i], U2[i], tol*math.Max(1, math.Abs(U[i])))
						}
					})
				}
			}
		}
	}
}

func TestDecodeNonPhysical(t *testing.T) {
	l, err := NewLayout(2, 0, 0, false, false)
	require.NoError(t, err)
	gm := testGas(t, 2, 0)
	U := l.NewConserved()
	U[l.Mass] = -1
	assert.True(t, IsNonPhysical(Decode(l, gm, U, NewFlowState(l))))

	// negative internal energy
	U[l.Mass], U[l.XMom], U[l.TotEnergy] = 1, 100, 10
	U[l.Species], U[l.Species+1] = 0.5, 0.5
	assert.True(t, IsNonPhysical(Decode(l, gm, U, NewFlowState(l))))

	// small negative mass fractions are clipped and renormalized
	U[l.XMom], U[l.TotEnergy] = 0, 2.5e5
	U[l.Species], U[l.Species+1] = 1+1e-8, -1e-8
	fs := NewFlowState(l)
	require.NoError(t, Decode(l, gm, U, fs))
	assert.Equal(t, 0., fs.MassF[1])
	assert.InDelta(t, 1., fs.MassF[0], 1e-15)

	U[l.Species], U[l.Species+1] = 1.1, -0.1
	assert.True(t, IsNonPhysical(Decode(l, gm, U, fs)))
}

func TestPackUnpack(t *testing.T) {
	l, err := NewLayout(2, 1, 1, true, true)
	require.NoError(t, err)
	fs := NewFlowState(l)
	fs.Rho, fs.P, fs.T, fs.MassF[1], fs.TModes[0], fs.Turb[0] = 1, 2, 3, 4, 5, 6
	fs.Vel, fs.B, fs.Psi = geometry.Vector3{7, 8, 9}, geometry.Vector3{10, 11, 12}, 13
	buf := make([]float64, 2*FlowStateSize(l))
	rest := Pack(fs, buf)
	assert.Len(t, rest, FlowStateSize(l))
	out := NewFlowState(l)
	Unpack(buf, out)
	assert.Equal(t, fs, out)
}
