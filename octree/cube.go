package octree

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Cube is an axis-aligned cube given by its minimum corner and edge length.
type Cube struct {
	Min        mgl32.Vec3
	EdgeLength float32
}

func (c Cube) Max() mgl32.Vec3 {
	return c.Min.Add(mgl32.Vec3{c.EdgeLength, c.EdgeLength, c.EdgeLength})
}

func (c Cube) Center() mgl32.Vec3 {
	h := c.EdgeLength / 2
	return c.Min.Add(mgl32.Vec3{h, h, h})
}

// Child returns the sub-cube for an octant. Bit 0 selects +X, bit 1 +Y, bit 2 +Z.
func (c Cube) Child(octant int) Cube {
	h := c.EdgeLength / 2
	min := c.Min
	if octant&1 != 0 {
		min[0] += h
	}
	if octant&2 != 0 {
		min[1] += h
	}
	if octant&4 != 0 {
		min[2] += h
	}
	return Cube{Min: min, EdgeLength: h}
}

// ChildIndexOf returns the octant of p relative to the cube center.
func (c Cube) ChildIndexOf(p mgl32.Vec3) int {
	center := c.Center()
	octant := 0
	if p[0] >= center[0] {
		octant |= 1
	}
	if p[1] >= center[1] {
		octant |= 2
	}
	if p[2] >= center[2] {
		octant |= 4
	}
	return octant
}

// Contains reports whether p lies inside the cube, including its faces.
func (c Cube) Contains(p mgl32.Vec3) bool {
	max := c.Max()
	for i := 0; i < 3; i++ {
		if p[i] < c.Min[i] || p[i] > max[i] {
			return false
		}
	}
	return true
}

// Corners returns the eight corners of the cube.
func (c Cube) Corners() [8]mgl32.Vec3 {
	var out [8]mgl32.Vec3
	for i := 0; i < 8; i++ {
		out[i] = c.Min
		for axis := 0; axis < 3; axis++ {
			if i&(1<<uint(axis)) != 0 {
				out[i][axis] += c.EdgeLength
			}
		}
	}
	return out
}

// CubeForNode walks from the root cube down to the cube of id.
func CubeForNode(root Cube, id NodeID) Cube {
	c := root
	for l := id.Level() - 1; l >= 0; l-- {
		c = c.Child(int(id.Index()>>(3*uint(l))) & 7)
	}
	return c
}

// BoundingCube returns the smallest cube with its minimum at the point-wise
// minimum that encloses all points. An empty input yields a unit cube at the origin.
func BoundingCube(points []Point) Cube {
	if len(points) == 0 {
		return Cube{EdgeLength: 1}
	}
	min := points[0].Position
	max := points[0].Position
	for _, p := range points[1:] {
		for i := 0; i < 3; i++ {
			min[i] = float32(math.Min(float64(min[i]), float64(p.Position[i])))
			max[i] = float32(math.Max(float64(max[i]), float64(p.Position[i])))
		}
	}
	edge := max[0] - min[0]
	if d := max[1] - min[1]; d > edge {
		edge = d
	}
	if d := max[2] - min[2]; d > edge {
		edge = d
	}
	if edge <= 0 {
		edge = 1
	}
	return Cube{Min: min, EdgeLength: edge}
}
