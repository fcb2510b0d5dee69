package renderer

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestNewDefaultCamera(t *testing.T) {
	cam := NewDefaultCamera(800, 600)

	if cam == nil {
		t.Fatal("NewDefaultCamera returned nil")
	}
	if cam.Position == (mgl32.Vec3{0, 0, 0}) {
		t.Error("Camera position should not be at origin")
	}
	if cam.Speed <= 0 {
		t.Error("Camera speed should be positive")
	}
	if cam.Sensitivity <= 0 {
		t.Error("Camera sensitivity should be positive")
	}
	if math.Abs(float64(cam.AspectRatio)-800.0/600.0) > 1e-6 {
		t.Errorf("AspectRatio = %f, want %f", cam.AspectRatio, 800.0/600.0)
	}
}

func TestCameraViewMatrix(t *testing.T) {
	cam := NewDefaultCamera(800, 600)
	cam.Position = mgl32.Vec3{0, 0, 5}
	cam.Front = mgl32.Vec3{0, 0, -1}
	cam.Up = mgl32.Vec3{0, 1, 0}

	view := cam.ViewMatrix()

	if view.At(3, 3) != 1.0 {
		t.Error("View matrix should be valid (w component = 1)")
	}
	origin := view.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	if math.Abs(float64(origin.Z())+5) > 1e-5 {
		t.Errorf("origin should be 5 units in front of the eye, got z=%f", origin.Z())
	}
}

func TestCameraProjectionMatrix(t *testing.T) {
	cam := NewDefaultCamera(800, 600)

	proj := cam.ProjectionMatrix()

	if proj.At(3, 3) != 0.0 {
		t.Error("Perspective projection should have w=0 at (3,3)")
	}
}

func TestCameraSetAspectRatioUpdatesProjection(t *testing.T) {
	cam := NewDefaultCamera(800, 600)
	before := cam.ProjectionMatrix()

	cam.SetAspectRatio(2)

	if cam.ProjectionMatrix() == before {
		t.Error("projection should change with the aspect ratio")
	}
}

func TestCameraSetFovClamps(t *testing.T) {
	cam := NewDefaultCamera(800, 600)

	cam.SetFov(500)
	if cam.Fov != 120 {
		t.Errorf("Fov = %f, want 120", cam.Fov)
	}
	cam.SetFov(-3)
	if cam.Fov != 1 {
		t.Errorf("Fov = %f, want 1", cam.Fov)
	}
}

func TestCameraUpdateVectors(t *testing.T) {
	cam := NewDefaultCamera(800, 600)
	cam.Yaw = -90
	cam.Pitch = 0

	cam.updateCameraVectors()

	if !closeTo(cam.Front, mgl32.Vec3{0, 0, -1}, 1e-5) {
		t.Errorf("Front = %v, want (0,0,-1)", cam.Front)
	}
	if !closeTo(cam.Right, mgl32.Vec3{1, 0, 0}, 1e-5) {
		t.Errorf("Right = %v, want (1,0,0)", cam.Right)
	}
	frontLen := cam.Front.Len()
	if math.Abs(float64(frontLen)-1.0) > 0.01 {
		t.Errorf("Front vector should be normalized, length=%f", frontLen)
	}
}

func TestCameraMove(t *testing.T) {
	cam := NewDefaultCamera(800, 600)
	cam.Yaw, cam.Pitch = -90, 0
	cam.updateCameraVectors()
	cam.Position = mgl32.Vec3{}

	cam.Move(Forward, 1, false)
	if !closeTo(cam.Position, mgl32.Vec3{0, 0, -cam.Speed}, 1e-5) {
		t.Errorf("after Forward, Position = %v", cam.Position)
	}

	cam.Position = mgl32.Vec3{}
	cam.Move(Right, 1, true)
	if !closeTo(cam.Position, mgl32.Vec3{cam.Speed * 2.5, 0, 0}, 1e-5) {
		t.Errorf("after boosted Right, Position = %v", cam.Position)
	}
}

func TestCameraPitchIsConstrained(t *testing.T) {
	cam := NewDefaultCamera(800, 600)

	cam.ProcessMouseMovement(0, 100000, true)

	if cam.Pitch != 89 {
		t.Errorf("Pitch = %f, want 89", cam.Pitch)
	}
}

func TestCameraOnCursorMove(t *testing.T) {
	cam := NewDefaultCamera(800, 600)
	yaw := cam.Yaw

	// The first event only seeds the last position.
	cam.OnCursorMove(10, 10)
	if cam.Yaw != yaw {
		t.Errorf("first cursor event should not turn the camera, yaw %f -> %f", yaw, cam.Yaw)
	}

	cam.OnCursorMove(20, 10)
	want := yaw + 10*cam.Sensitivity
	if math.Abs(float64(cam.Yaw-want)) > 1e-5 {
		t.Errorf("Yaw = %f, want %f", cam.Yaw, want)
	}
}

func TestCameraInvertMouse(t *testing.T) {
	cam := NewDefaultCamera(800, 600)
	cam.Pitch = 0
	cam.InvertMouse = true

	cam.ProcessMouseMovement(0, 10, true)

	if cam.Pitch >= 0 {
		t.Errorf("inverted mouse should pitch down, got %f", cam.Pitch)
	}
}

func TestCameraLookAt(t *testing.T) {
	cam := NewDefaultCamera(800, 600)
	cam.Position = mgl32.Vec3{0, 0, 0}

	cam.LookAt(mgl32.Vec3{5, 0, 0})

	if !closeTo(cam.Front, mgl32.Vec3{1, 0, 0}, 1e-5) {
		t.Errorf("Front = %v, want (1,0,0)", cam.Front)
	}
}

// closeTo reports whether a and b are within eps of each other.
func closeTo(a, b mgl32.Vec3, eps float32) bool { return a.Sub(b).Len() < eps }
