package octree

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"go.viam.com/test"
)

func TestNodeIDString(t *testing.T) {
	id := RootID.Child(0).Child(4).Child(7)
	test.That(t, id.Level(), test.ShouldEqual, 3)
	test.That(t, id.String(), test.ShouldEqual, "r047")
	test.That(t, RootID.String(), test.ShouldEqual, "r")

	parsed, err := ParseNodeID("r047")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, parsed, test.ShouldResemble, id)
	test.That(t, parsed.Parent().String(), test.ShouldEqual, "r04")
	test.That(t, parsed.Octant(), test.ShouldEqual, 7)
	test.That(t, RootID.Parent(), test.ShouldResemble, RootID)

	for _, bad := range []string{"", "x01", "r8", "r0123456701234567012345"} {
		_, err := ParseNodeID(bad)
		test.That(t, err, test.ShouldNotBeNil)
	}
}

func TestNodeIDLess(t *testing.T) {
	a := RootID.Child(7)
	b := RootID.Child(0).Child(0)
	test.That(t, RootID.Less(a), test.ShouldBeTrue)
	test.That(t, a.Less(b), test.ShouldBeTrue)
	test.That(t, b.Less(a), test.ShouldBeFalse)
	test.That(t, RootID.Child(1).Less(RootID.Child(2)), test.ShouldBeTrue)
}

func TestCubeChildren(t *testing.T) {
	root := Cube{Min: mgl32.Vec3{-4, 0, 10}, EdgeLength: 8}
	for octant := 0; octant < 8; octant++ {
		child := root.Child(octant)
		test.That(t, child.EdgeLength, test.ShouldEqual, float32(4))
		test.That(t, root.ChildIndexOf(child.Center()), test.ShouldEqual, octant)
		test.That(t, root.Contains(child.Center()), test.ShouldBeTrue)
	}

	id := RootID.Child(3).Child(5)
	c := CubeForNode(root, id)
	test.That(t, c, test.ShouldResemble, root.Child(3).Child(5))
	test.That(t, root.Contains(mgl32.Vec3{5, 0, 10}), test.ShouldBeFalse)
}

func TestBoundingCube(t *testing.T) {
	c := BoundingCube([]Point{
		{Position: mgl32.Vec3{1, 2, 3}},
		{Position: mgl32.Vec3{4, 2, 4}},
		{Position: mgl32.Vec3{2, 7, 3}},
	})
	test.That(t, c.Min, test.ShouldResemble, mgl32.Vec3{1, 2, 3})
	test.That(t, c.EdgeLength, test.ShouldEqual, float32(5))

	test.That(t, BoundingCube(nil).EdgeLength, test.ShouldEqual, float32(1))
}

func TestNumPointsForLevelOfDetail(t *testing.T) {
	m := NodeMeta{NumPoints: 10}
	test.That(t, m.NumPointsForLevelOfDetail(0), test.ShouldEqual, int64(10))
	test.That(t, m.NumPointsForLevelOfDetail(1), test.ShouldEqual, int64(10))
	test.That(t, m.NumPointsForLevelOfDetail(3), test.ShouldEqual, int64(4))
	test.That(t, m.NumPointsForLevelOfDetail(64), test.ShouldEqual, int64(1))
}

func TestPositionEncodingRoundTrip(t *testing.T) {
	cube := Cube{Min: mgl32.Vec3{-10, -10, -10}, EdgeLength: 20}
	points := []Point{
		{Position: mgl32.Vec3{-10, -10, -10}},
		{Position: mgl32.Vec3{10, 10, 10}},
		{Position: mgl32.Vec3{1.25, -3.5, 7.75}},
	}
	for _, enc := range []PositionEncoding{Uint8, Uint16, Float32} {
		t.Run(enc.String(), func(t *testing.T) {
			buf := EncodePositions(points, cube, enc)
			test.That(t, len(buf), test.ShouldEqual, len(points)*enc.BytesPerPoint())

			step := float64(cube.EdgeLength) / 255
			switch enc {
			case Uint16:
				step = float64(cube.EdgeLength) / 65535
			case Float32:
				step = 1e-5
			}
			for i, p := range points {
				got := DecodePosition(buf, i, cube, enc)
				for axis := 0; axis < 3; axis++ {
					test.That(t, float64(got[axis]), test.ShouldAlmostEqual, float64(p.Position[axis]), step)
				}
			}

			parsed, err := ParsePositionEncoding(enc.String())
			test.That(t, err, test.ShouldBeNil)
			test.That(t, parsed, test.ShouldEqual, enc)
		})
	}
}

func TestEncodingForResolution(t *testing.T) {
	test.That(t, EncodingForResolution(0.2, 0.001), test.ShouldEqual, Uint8)
	test.That(t, EncodingForResolution(50, 0.001), test.ShouldEqual, Uint16)
	test.That(t, EncodingForResolution(1000, 0.001), test.ShouldEqual, Float32)
}

func TestNodeDataValidateAndPrefix(t *testing.T) {
	points := []Point{{Color: [3]uint8{1, 2, 3}}, {Color: [3]uint8{4, 5, 6}}, {Color: [3]uint8{7, 8, 9}}}
	cube := Cube{EdgeLength: 1}
	d := &NodeData{
		Meta:      NodeMeta{NumPoints: 3, PositionEncoding: Uint16, BoundingCube: cube},
		Positions: EncodePositions(points, cube, Uint16),
		Colors:    EncodeColors(points),
	}
	test.That(t, d.Validate(), test.ShouldBeNil)

	p := d.Prefix(2)
	test.That(t, p.Meta.NumPoints, test.ShouldEqual, int64(2))
	test.That(t, p.Colors, test.ShouldResemble, []byte{1, 2, 3, 4, 5, 6})
	test.That(t, p.Validate(), test.ShouldBeNil)

	d.Colors = d.Colors[:5]
	test.That(t, d.Validate(), test.ShouldNotBeNil)
}

func lookAt(eye, center mgl32.Vec3, width, height int) mgl32.Mat4 {
	proj := mgl32.Perspective(mgl32.DegToRad(45), float32(width)/float32(height), 0.1, 10000)
	return proj.Mul4(mgl32.LookAtV(eye, center, mgl32.Vec3{0, 0, 1}))
}

func TestFrustumIntersectsCube(t *testing.T) {
	m := lookAt(mgl32.Vec3{0, -100, 0}, mgl32.Vec3{}, 800, 600)
	f := FrustumFromMatrix(m)

	test.That(t, f.IntersectsCube(Cube{Min: mgl32.Vec3{-1, -1, -1}, EdgeLength: 2}), test.ShouldBeTrue)
	// Behind the eye.
	test.That(t, f.IntersectsCube(Cube{Min: mgl32.Vec3{-1, -210, -1}, EdgeLength: 2}), test.ShouldBeFalse)
	// Far to the side.
	test.That(t, f.IntersectsCube(Cube{Min: mgl32.Vec3{500, 0, 0}, EdgeLength: 2}), test.ShouldBeFalse)
	// Straddling the eye.
	test.That(t, f.IntersectsCube(Cube{Min: mgl32.Vec3{-5, -105, -5}, EdgeLength: 10}), test.ShouldBeTrue)

	for _, p := range f.Planes {
		test.That(t, float64(p.Normal.Len()), test.ShouldAlmostEqual, 1, 1e-5)
	}
}

func TestLevelOfDetail(t *testing.T) {
	test.That(t, levelOfDetail(100, 1000), test.ShouldEqual, 1)
	test.That(t, levelOfDetail(1000, 300), test.ShouldEqual, 4)
	test.That(t, levelOfDetail(math.MaxInt32, 1), test.ShouldEqual, MaxLevelOfDetail)
}
