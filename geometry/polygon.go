package geometry

// PolygonAreaVector returns the area-weighted normal of a (possibly
// non-planar) polygon whose vertices are ordered counter-clockwise about the
// normal. Its magnitude is the projected area.
func PolygonAreaVector(verts []Vector3) (s Vector3) {
	var (
		nv = len(verts)
		c  = Average(verts...)
	)
	for i := 0; i < nv; i++ {
		a := verts[i].Sub(c)
		b := verts[(i+1)%nv].Sub(c)
		s = s.Add(a.Cross(b).Scale(0.5))
	}
	return
}

// FaceProperties returns the centroid, unit normal and area of a polygon face.
func FaceProperties(verts []Vector3) (centroid, normal Vector3, area float64, err error) {
	var (
		s = PolygonAreaVector(verts)
	)
	area = s.Norm()
	if normal, err = s.Unit(); err != nil {
		return
	}
	var (
		nv = len(verts)
		c  = Average(verts...)
		aw float64
	)
	// area weighted centroid of the fan triangles
	for i := 0; i < nv; i++ {
		a, b := verts[i], verts[(i+1)%nv]
		ta := b.Sub(a).Cross(c.Sub(a)).Dot(normal) * 0.5
		centroid = centroid.Add(Average(a, b, c).Scale(ta))
		aw += ta
	}
	if aw != 0 {
		centroid = centroid.Scale(1. / aw)
	} else {
		centroid = c
	}
	return
}

// PolyhedronVolume applies the divergence theorem to a closed set of faces
// given by their centroids and outward area vectors.
func PolyhedronVolume(centroids, outwardAreas []Vector3) (vol float64) {
	for i := range centroids {
		vol += centroids[i].Dot(outwardAreas[i])
	}
	vol /= 3.
	return
}
