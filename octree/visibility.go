package octree

import (
	"cmp"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// DefaultMinScreenSize is the smallest projected extent, in pixels, of a node
	// that is still reported as visible.
	DefaultMinScreenSize = 8
	// MaxLevelOfDetail caps the subsampling hint.
	MaxLevelOfDetail = 64
)

// nodeLookup returns the metadata of a node if the octree has it.
type nodeLookup func(NodeID) (NodeMeta, bool)

// collectVisible walks the octree from the root and returns every existing
// node whose cube intersects the frustum and projects to at least
// minScreenSize pixels. Results are ordered largest on screen first.
func collectVisible(lookup nodeLookup, worldToClip mgl32.Mat4, width, height int, useLOD bool, minScreenSize float32) []VisibleNode {
	frustum := FrustumFromMatrix(worldToClip)

	var visible []VisibleNode
	open := []NodeID{RootID}
	for len(open) > 0 {
		id := open[len(open)-1]
		open = open[:len(open)-1]

		meta, ok := lookup(id)
		if !ok {
			continue
		}
		cube := meta.BoundingCube
		if !frustum.IntersectsCube(cube) {
			continue
		}
		w, h := screenExtent(cube, worldToClip, width, height)
		size := w
		if h > size {
			size = h
		}
		if size < minScreenSize {
			continue
		}

		lod := 1
		if useLOD {
			lod = levelOfDetail(meta.NumPoints, w*h)
		}
		visible = append(visible, VisibleNode{
			ID:            id,
			BoundingCube:  cube,
			LevelOfDetail: lod,
			ScreenSize:    size,
		})

		if id.Level() < MaxLevel {
			for octant := 0; octant < 8; octant++ {
				open = append(open, id.Child(octant))
			}
		}
	}

	slices.SortFunc(visible, func(a, b VisibleNode) int {
		if c := cmp.Compare(b.ScreenSize, a.ScreenSize); c != 0 {
			return c
		}
		if a.ID.Less(b.ID) {
			return -1
		}
		if b.ID.Less(a.ID) {
			return 1
		}
		return 0
	})
	return visible
}

// screenExtent projects the cube corners and returns the pixel width and
// height of their bounding rectangle, clipped to the viewport. A cube with a
// corner behind the eye covers the whole viewport.
func screenExtent(c Cube, worldToClip mgl32.Mat4, width, height int) (float32, float32) {
	minX, minY := float32(1), float32(1)
	maxX, maxY := float32(-1), float32(-1)
	for _, corner := range c.Corners() {
		clip := worldToClip.Mul4x1(corner.Vec4(1))
		if clip[3] <= 1e-6 {
			return float32(width), float32(height)
		}
		x, y := clip[0]/clip[3], clip[1]/clip[3]
		minX, maxX = min(minX, x), max(maxX, x)
		minY, maxY = min(minY, y), max(maxY, y)
	}
	minX, maxX = mgl32.Clamp(minX, -1, 1), mgl32.Clamp(maxX, -1, 1)
	minY, maxY = mgl32.Clamp(minY, -1, 1), mgl32.Clamp(maxY, -1, 1)
	return (maxX - minX) / 2 * float32(width), (maxY - minY) / 2 * float32(height)
}

// levelOfDetail returns the smallest power of two k for which numPoints/k
// points fit in pixelArea, capped at MaxLevelOfDetail.
func levelOfDetail(numPoints int64, pixelArea float32) int {
	k := 1
	for k < MaxLevelOfDetail && float32(numPoints)/float32(k) > pixelArea {
		k *= 2
	}
	return k
}
