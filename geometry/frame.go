package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var ErrDegenerateFrame = errors.New("degenerate interface frame")

const orthoTol = 1e-12

// Frame is the local (n, t1, t2) basis of an interface. Local components of a
// vector are its projections onto the three directions. For an orthonormal
// basis the inverse is the transpose; otherwise the inverse of the projection
// matrix is kept so the round trip is exact for any non-degenerate basis.
type Frame struct {
	N, T1, T2   Vector3
	orthonormal bool
	inv         [3][3]float64
}

func NewFrame(n, t1, t2 Vector3) (f Frame, err error) {
	var (
		rows = mat.NewDense(3, 3, []float64{
			n[0], n[1], n[2],
			t1[0], t1[1], t1[2],
			t2[0], t2[1], t2[2],
		})
		scale = math.Max(n.Norm(), math.Max(t1.Norm(), t2.Norm()))
		inv   mat.Dense
	)
	f = Frame{N: n, T1: t1, T2: t2}
	if scale == 0 || math.Abs(mat.Det(rows)) < 1e-12*scale*scale*scale {
		err = fmt.Errorf("%w: n=%v t1=%v t2=%v", ErrDegenerateFrame, n, t1, t2)
		return
	}
	f.orthonormal = isOrthonormal(n, t1, t2)
	if f.orthonormal {
		return
	}
	if err = inv.Inverse(rows); err != nil {
		err = fmt.Errorf("%w: %v", ErrDegenerateFrame, err)
		return
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			f.inv[i][j] = inv.At(i, j)
		}
	}
	return
}

// FrameFromNormal builds an orthonormal frame around a unit normal.
func FrameFromNormal(n Vector3) (f Frame, err error) {
	var (
		ref Vector3
		t1  Vector3
	)
	if n, err = n.Unit(); err != nil {
		err = fmt.Errorf("%w: %v", ErrDegenerateFrame, err)
		return
	}
	// Use the coordinate axis least aligned with n as the reference
	switch {
	case math.Abs(n[0]) <= math.Abs(n[1]) && math.Abs(n[0]) <= math.Abs(n[2]):
		ref = Vector3{1, 0, 0}
	case math.Abs(n[1]) <= math.Abs(n[2]):
		ref = Vector3{0, 1, 0}
	default:
		ref = Vector3{0, 0, 1}
	}
	if t1, err = ref.Sub(n.Scale(ref.Dot(n))).Unit(); err != nil {
		return
	}
	return NewFrame(n, t1, n.Cross(t1))
}

func isOrthonormal(n, t1, t2 Vector3) bool {
	near := func(a, b float64) bool { return math.Abs(a-b) < orthoTol }
	return near(n.Dot(n), 1) && near(t1.Dot(t1), 1) && near(t2.Dot(t2), 1) &&
		near(n.Dot(t1), 0) && near(n.Dot(t2), 0) && near(t1.Dot(t2), 0)
}

func (f *Frame) Orthonormal() bool {
	return f.orthonormal
}

func (f *Frame) ToLocal(v Vector3) Vector3 {
	return Vector3{v.Dot(f.N), v.Dot(f.T1), v.Dot(f.T2)}
}

func (f *Frame) ToGlobal(l Vector3) (v Vector3) {
	if f.orthonormal {
		for i := 0; i < 3; i++ {
			v[i] = l[0]*f.N[i] + l[1]*f.T1[i] + l[2]*f.T2[i]
		}
		return
	}
	for i := 0; i < 3; i++ {
		v[i] = f.inv[i][0]*l[0] + f.inv[i][1]*l[1] + f.inv[i][2]*l[2]
	}
	return
}
