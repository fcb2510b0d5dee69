package renderer

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Movement directions for Camera.Move.
type Movement int

const (
	Forward Movement = iota
	Backward
	Left
	Right
)

// Camera is a fly camera driven by keyboard movement and mouse look.
type Camera struct {
	// HOT DATA - Accessed every frame for view/projection calculations
	Position   mgl32.Vec3
	Front      mgl32.Vec3
	Up         mgl32.Vec3
	Right      mgl32.Vec3
	Projection mgl32.Mat4
	Pitch      float32
	Yaw        float32

	// COLD DATA - Configuration and input handling
	WorldUp      mgl32.Vec3
	Speed        float32
	Sensitivity  float32
	Fov          float32
	Near         float32
	Far          float32
	AspectRatio  float32
	LastX, LastY float32
	InvertMouse  bool
	firstMouse   bool
}

// NewDefaultCamera returns a camera a few units back from the origin
// looking down -Z.
func NewDefaultCamera(width, height int) *Camera {
	camera := Camera{
		Position:    mgl32.Vec3{0, 2, 8},
		WorldUp:     mgl32.Vec3{0, 1, 0},
		Pitch:       -10.0,
		Yaw:         -90.0,
		Speed:       5,
		Sensitivity: 0.1,
		Fov:         45.0,
		Near:        0.1,
		Far:         100.0,
		LastX:       float32(width) / 2,
		LastY:       float32(height) / 2,
		AspectRatio: float32(width) / float32(height),
		firstMouse:  true,
	}
	camera.updateCameraVectors()
	camera.UpdateProjection()
	return &camera
}

func (c *Camera) UpdateProjection() {
	c.Projection = mgl32.Perspective(mgl32.DegToRad(c.Fov), c.AspectRatio, c.Near, c.Far)
}

func (c *Camera) SetFov(fov float32) {
	c.Fov = mgl32.Clamp(fov, 1, 120)
	c.UpdateProjection()
}

func (c *Camera) SetAspectRatio(aspectRatio float32) {
	c.AspectRatio = aspectRatio
	c.UpdateProjection()
}

func (c *Camera) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Position.Add(c.Front), c.Up)
}

func (c *Camera) ProjectionMatrix() mgl32.Mat4 { return c.Projection }

func (c *Camera) EyePosition() mgl32.Vec3 { return c.Position }

func (c *Camera) ViewProjection() mgl32.Mat4 {
	return c.Projection.Mul4(c.ViewMatrix())
}

// Move translates the camera along its own axes. boost multiplies the speed.
func (c *Camera) Move(dir Movement, deltaTime float32, boost bool) {
	velocity := c.Speed * deltaTime
	if boost {
		velocity *= 2.5
	}
	switch dir {
	case Forward:
		c.Position = c.Position.Add(c.Front.Mul(velocity))
	case Backward:
		c.Position = c.Position.Sub(c.Front.Mul(velocity))
	case Left:
		c.Position = c.Position.Sub(c.Right.Mul(velocity))
	case Right:
		c.Position = c.Position.Add(c.Right.Mul(velocity))
	}
}

func (c *Camera) ProcessMouseMovement(xoffset, yoffset float32, constrainPitch bool) {
	xoffset *= c.Sensitivity
	yoffset *= c.Sensitivity

	c.Yaw += xoffset
	if c.InvertMouse {
		c.Pitch -= yoffset
	} else {
		c.Pitch += yoffset
	}
	if constrainPitch {
		c.Pitch = mgl32.Clamp(c.Pitch, -89.0, 89.0)
	}
	c.updateCameraVectors()
}

// OnCursorMove turns absolute cursor positions into mouse-look offsets.
func (c *Camera) OnCursorMove(x, y float64) {
	fx, fy := float32(x), float32(y)
	if c.firstMouse {
		c.LastX, c.LastY = fx, fy
		c.firstMouse = false
	}
	xoffset := fx - c.LastX
	yoffset := c.LastY - fy
	c.LastX, c.LastY = fx, fy
	c.ProcessMouseMovement(xoffset, yoffset, true)
}

// LookAt points the camera at target.
func (c *Camera) LookAt(target mgl32.Vec3) {
	d := target.Sub(c.Position)
	if d.Len() == 0 {
		return
	}
	d = d.Normalize()
	c.Yaw = mgl32.RadToDeg(math32.Atan2(d.Z(), d.X()))
	c.Pitch = mgl32.RadToDeg(math32.Asin(mgl32.Clamp(d.Y(), -1, 1)))
	c.updateCameraVectors()
}

func (c *Camera) updateCameraVectors() {
	yawRad := mgl32.DegToRad(c.Yaw)
	pitchRad := mgl32.DegToRad(c.Pitch)

	front := mgl32.Vec3{
		math32.Cos(yawRad) * math32.Cos(pitchRad),
		math32.Sin(pitchRad),
		math32.Sin(yawRad) * math32.Cos(pitchRad),
	}

	c.Front = front.Normalize()
	c.Right = c.Front.Cross(c.WorldUp).Normalize()
	c.Up = c.Right.Cross(c.Front).Normalize()
}
