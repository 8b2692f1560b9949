package scene

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"go.viam.com/test"
)

func vecAlmostEqual(t *testing.T, got, want mgl32.Vec3) {
	t.Helper()
	for i := range got {
		test.That(t, float64(got[i]), test.ShouldAlmostEqual, float64(want[i]), 1e-4)
	}
}

func TestCameraUpdateReportsMotion(t *testing.T) {
	c := NewCamera(800, 600)
	test.That(t, c.Update(), test.ShouldBeTrue)
	test.That(t, c.Update(), test.ShouldBeFalse)

	c.MoveForward = true
	test.That(t, c.Update(), test.ShouldBeTrue)
	vecAlmostEqual(t, c.Position(), mgl32.Vec3{0, 0, 300 - DefaultMovementSpeed})

	// Opposite keys cancel out.
	c.MoveBackward = true
	test.That(t, c.Update(), test.ShouldBeFalse)

	c.MoveForward, c.MoveBackward = false, false
	c.MouseDrag(400, 0)
	test.That(t, c.Update(), test.ShouldBeTrue)
	test.That(t, float64(c.Theta()), test.ShouldAlmostEqual, -3.14159, 1e-4)

	c.SetSize(0, 0)
	test.That(t, c.Update(), test.ShouldBeFalse)
	c.SetSize(1024, 768)
	test.That(t, c.Update(), test.ShouldBeTrue)
}

func TestCameraMovesAlongView(t *testing.T) {
	c := NewCamera(800, 600)
	c.SetPosRot(mgl32.Vec3{}, 90, 90)
	// Pitching up 90 degrees looks along +Y; the yaw then turns that to -X.
	vecAlmostEqual(t, c.GetForward(), mgl32.Vec3{-1, 0, 0})

	c.MoveForward = true
	c.Update()
	vecAlmostEqual(t, c.Position(), mgl32.Vec3{-DefaultMovementSpeed, 0, 0})
}

func TestCameraViewProjection(t *testing.T) {
	c := NewCamera(800, 600)
	c.Frame(mgl32.Vec3{10, 10, 10}, 20)
	m := c.GetViewProjectionMatrix()

	// The framed center lands inside the clip volume.
	clip := m.Mul4x1(mgl32.Vec4{10, 10, 10, 1})
	test.That(t, clip.W(), test.ShouldBeGreaterThan, 0)
	ndc := clip.Vec3().Mul(1 / clip.W())
	for i := 0; i < 3; i++ {
		test.That(t, ndc[i], test.ShouldBeBetween, float32(-1), float32(1))
	}

	// A point behind the camera does not.
	behind := c.Position().Sub(c.GetForward().Mul(5))
	test.That(t, m.Mul4x1(behind.Vec4(1)).W(), test.ShouldBeLessThan, 0)

	view := c.GetViewMatrix()
	eye := view.Mul4x1(c.Position().Vec4(1))
	vecAlmostEqual(t, eye.Vec3(), mgl32.Vec3{})
}

func TestMouseWheelScalesSpeed(t *testing.T) {
	c := NewCamera(800, 600)
	c.MouseWheel(1)
	test.That(t, float64(c.MovementSpeed()), test.ShouldAlmostEqual, 0.33, 1e-6)
	c.MouseWheel(-1)
	test.That(t, float64(c.MovementSpeed()), test.ShouldAlmostEqual, 0.297, 1e-6)
	c.MouseWheel(0)
	test.That(t, float64(c.MovementSpeed()), test.ShouldAlmostEqual, 0.297, 1e-6)
	for i := 0; i < 100; i++ {
		c.MouseWheel(-1)
	}
	test.That(t, c.MovementSpeed(), test.ShouldEqual, float32(MinMovementSpeed))
}

func TestViewpointRoundTrip(t *testing.T) {
	c := NewCamera(800, 600)
	c.SetPosRot(mgl32.Vec3{1, 2, 3}, 30, 60)
	c.MouseWheel(1)
	c.Update()

	path := filepath.Join(t.TempDir(), "viewpoint.json")
	test.That(t, SaveViewpoint(path, c.Viewpoint()), test.ShouldBeNil)

	other := NewCamera(640, 480)
	other.Update()
	vp, err := LoadViewpoint(path)
	test.That(t, err, test.ShouldBeNil)
	other.SetViewpoint(vp)
	test.That(t, other.Update(), test.ShouldBeTrue)
	test.That(t, other.Position(), test.ShouldResemble, c.Position())
	test.That(t, float64(other.Theta()), test.ShouldAlmostEqual, float64(c.Theta()), 1e-6)
	test.That(t, float64(other.Phi()), test.ShouldAlmostEqual, float64(c.Phi()), 1e-6)
	test.That(t, other.MovementSpeed(), test.ShouldEqual, c.MovementSpeed())
}

func TestLoadViewpointErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadViewpoint(filepath.Join(dir, "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)

	path := filepath.Join(dir, "bad.json")
	test.That(t, os.WriteFile(path, []byte("{not json"), 0o644), test.ShouldBeNil)
	_, err = LoadViewpoint(path)
	test.That(t, err, test.ShouldNotBeNil)

	test.That(t, os.WriteFile(path, []byte(`{"version":"7"}`), 0o644), test.ShouldBeNil)
	_, err = LoadViewpoint(path)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unsupported viewpoint version")
}
