package geometry

import (
	"fmt"
	"math"
)

type Vector3 [3]float64

func NewVector3(x, y, z float64) Vector3 {
	return Vector3{x, y, z}
}

func (v Vector3) Add(w Vector3) Vector3 {
	return Vector3{v[0] + w[0], v[1] + w[1], v[2] + w[2]}
}

func (v Vector3) Sub(w Vector3) Vector3 {
	return Vector3{v[0] - w[0], v[1] - w[1], v[2] - w[2]}
}

func (v Vector3) Scale(s float64) Vector3 {
	return Vector3{s * v[0], s * v[1], s * v[2]}
}

func (v Vector3) Dot(w Vector3) float64 {
	return v[0]*w[0] + v[1]*w[1] + v[2]*w[2]
}

func (v Vector3) Cross(w Vector3) Vector3 {
	return Vector3{
		v[1]*w[2] - v[2]*w[1],
		v[2]*w[0] - v[0]*w[2],
		v[0]*w[1] - v[1]*w[0],
	}
}

func (v Vector3) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

func (v Vector3) NormSq() float64 {
	return v.Dot(v)
}

func (v Vector3) Unit() (u Vector3, err error) {
	var (
		mag = v.Norm()
	)
	if mag == 0 || math.IsNaN(mag) {
		err = fmt.Errorf("cannot normalize vector %v", v)
		return
	}
	u = v.Scale(1. / mag)
	return
}

func (v Vector3) IsZero() bool {
	return v[0] == 0 && v[1] == 0 && v[2] == 0
}

// Average returns the arithmetic mean of the points.
func Average(pts ...Vector3) (c Vector3) {
	if len(pts) == 0 {
		return
	}
	for _, p := range pts {
		c = c.Add(p)
	}
	c = c.Scale(1. / float64(len(pts)))
	return
}
