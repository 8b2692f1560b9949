package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	DefaultMovementSpeed = 0.3
	MinMovementSpeed     = 0.01

	fovY      = 45
	nearPlane = 0.1
	farPlane  = 10000
)

// Camera is a fly camera. Yaw (Theta) turns about world Z, pitch (Phi) about
// the camera's X axis. The camera looks down its local -Z.
type Camera struct {
	MoveForward  bool
	MoveBackward bool
	MoveLeft     bool
	MoveRight    bool
	MoveUp       bool
	MoveDown     bool

	Width  int
	Height int

	position      mgl32.Vec3
	theta         float32
	phi           float32
	movementSpeed float32

	// moved is set by anything that changes the view outside Update.
	moved      bool
	projection mgl32.Mat4
}

func NewCamera(width, height int) *Camera {
	c := &Camera{
		position:      mgl32.Vec3{0, 0, 300},
		movementSpeed: DefaultMovementSpeed,
		moved:         true,
	}
	c.SetSize(width, height)
	return c
}

func (c *Camera) SetSize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.Width = width
	c.Height = height
	c.projection = mgl32.Perspective(mgl32.DegToRad(fovY), float32(width)/float32(height), nearPlane, farPlane)
	c.moved = true
}

// SetPosRot places the camera. Angles are in degrees.
func (c *Camera) SetPosRot(pos mgl32.Vec3, thetaDeg, phiDeg float32) {
	c.position = pos
	c.theta = mgl32.DegToRad(thetaDeg)
	c.phi = mgl32.DegToRad(phiDeg)
	c.moved = true
}

// Frame puts the camera above center, far enough to see a cube of the given
// edge length, looking at it from the side.
func (c *Camera) Frame(center mgl32.Vec3, edgeLength float32) {
	c.SetPosRot(center.Add(mgl32.Vec3{0, -1.5 * edgeLength, 0.5 * edgeLength}), 0, 70)
}

func (c *Camera) Position() mgl32.Vec3   { return c.position }
func (c *Camera) Theta() float32         { return c.theta }
func (c *Camera) Phi() float32           { return c.phi }
func (c *Camera) MovementSpeed() float32 { return c.movementSpeed }

// Update advances the camera by one frame of held movement and reports
// whether the view changed since the previous call.
func (c *Camera) Update() bool {
	moved := c.moved
	c.moved = false

	var pan mgl32.Vec3
	if c.MoveRight {
		pan[0]++
	}
	if c.MoveLeft {
		pan[0]--
	}
	if c.MoveBackward {
		pan[2]++
	}
	if c.MoveForward {
		pan[2]--
	}
	if c.MoveUp {
		pan[1]++
	}
	if c.MoveDown {
		pan[1]--
	}
	if pan.LenSqr() > 0 {
		moved = true
		c.position = c.position.Add(c.orientation().Rotate(pan.Normalize().Mul(c.movementSpeed)))
	}
	return moved
}

// MouseDrag turns the camera. A drag across the full window is one turn.
func (c *Camera) MouseDrag(dx, dy float64) {
	if c.Width == 0 || c.Height == 0 {
		return
	}
	c.theta -= float32(2 * math.Pi * dx / float64(c.Width))
	c.phi -= float32(2 * math.Pi * dy / float64(c.Height))
	c.moved = true
}

// MouseWheel scales the movement speed by 10% per notch.
func (c *Camera) MouseWheel(delta float64) {
	switch {
	case delta > 0:
		c.movementSpeed *= 1.1
	case delta < 0:
		c.movementSpeed *= 0.9
	}
	c.movementSpeed = max(c.movementSpeed, MinMovementSpeed)
}

func (c *Camera) orientation() mgl32.Quat {
	return mgl32.QuatRotate(c.theta, mgl32.Vec3{0, 0, 1}).Mul(mgl32.QuatRotate(c.phi, mgl32.Vec3{1, 0, 0}))
}

// GetForward returns the viewing direction in world space.
func (c *Camera) GetForward() mgl32.Vec3 {
	return c.orientation().Rotate(mgl32.Vec3{0, 0, -1})
}

// GetViewMatrix returns the world-to-camera transform.
func (c *Camera) GetViewMatrix() mgl32.Mat4 {
	rot := c.orientation().Inverse().Mat4()
	return rot.Mul4(mgl32.Translate3D(-c.position[0], -c.position[1], -c.position[2]))
}

func (c *Camera) GetProjectionMatrix() mgl32.Mat4 {
	return c.projection
}

// GetViewProjectionMatrix returns the world-to-clip transform used for
// culling and drawing.
func (c *Camera) GetViewProjectionMatrix() mgl32.Mat4 {
	return c.projection.Mul4(c.GetViewMatrix())
}
