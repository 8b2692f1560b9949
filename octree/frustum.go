package octree

import "github.com/go-gl/mathgl/mgl32"

// Plane is a half-space ax + by + cz + d >= 0. Normal points to the inside.
type Plane struct {
	Normal mgl32.Vec3
	D      float32
}

// DistanceTo returns the signed distance from pt to the plane.
func (p Plane) DistanceTo(pt mgl32.Vec3) float32 {
	return p.Normal.Dot(pt) + p.D
}

// Frustum holds the six clip planes of a view frustum.
type Frustum struct {
	Planes [6]Plane // Left, Right, Bottom, Top, Near, Far
}

// FrustumFromMatrix extracts normalized planes from a world-to-clip matrix
// (Gribb/Hartmann).
func FrustumFromMatrix(m mgl32.Mat4) Frustum {
	r0, r1, r2, r3 := m.Row(0), m.Row(1), m.Row(2), m.Row(3)

	var f Frustum
	f.Planes[0] = normalizePlane(r3.Add(r0))
	f.Planes[1] = normalizePlane(r3.Sub(r0))
	f.Planes[2] = normalizePlane(r3.Add(r1))
	f.Planes[3] = normalizePlane(r3.Sub(r1))
	f.Planes[4] = normalizePlane(r3.Add(r2))
	f.Planes[5] = normalizePlane(r3.Sub(r2))
	return f
}

func normalizePlane(v mgl32.Vec4) Plane {
	n := v.Vec3()
	l := n.Len()
	if l == 0 {
		return Plane{}
	}
	return Plane{Normal: n.Mul(1 / l), D: v[3] / l}
}

// IntersectsCube returns false if c is completely outside f. For every plane
// the corner furthest along the normal is tested.
func (f *Frustum) IntersectsCube(c Cube) bool {
	max := c.Max()
	for i := range f.Planes {
		p := f.Planes[i]
		var pv mgl32.Vec3
		for axis := 0; axis < 3; axis++ {
			if p.Normal[axis] < 0 {
				pv[axis] = c.Min[axis]
			} else {
				pv[axis] = max[axis]
			}
		}
		if p.DistanceTo(pv) < 0 {
			return false
		}
	}
	return true
}
