package renderer

import (
	"Prism3D/internal/gpu"

	"github.com/go-gl/mathgl/mgl32"
)

// Mesh binds its buffers and material textures and issues its draw calls.
type Mesh interface {
	Draw(p gpu.Program)
}

// Drawable is anything the scene can rasterise.
type Drawable interface {
	Draw(p gpu.Program)
	CastsShadow() bool
	// IsDeferred selects the G-buffer pass; other objects are drawn forward.
	IsDeferred() bool
}

// Transform is a position, rotation and scale.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

func NewTransform(position mgl32.Vec3) Transform {
	return Transform{Position: position, Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{1, 1, 1}}
}

func (t Transform) Matrix() mgl32.Mat4 {
	return mgl32.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z()).
		Mul4(t.Rotation.Mat4()).
		Mul4(mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z()))
}

// MeshObject is a mesh-backed object.
type MeshObject struct {
	Mesh      Mesh
	Transform Transform
	Tint      mgl32.Vec3
	Deferred  bool
	Shadow    bool
}

func NewMeshObject(mesh Mesh, position mgl32.Vec3) *MeshObject {
	return &MeshObject{
		Mesh:      mesh,
		Transform: NewTransform(position),
		Tint:      mgl32.Vec3{1, 1, 1},
		Deferred:  true,
		Shadow:    true,
	}
}

func (o *MeshObject) Draw(p gpu.Program) {
	p.SetMat4("model", o.Transform.Matrix())
	p.SetVec3("tint", o.Tint)
	o.Mesh.Draw(p)
}

func (o *MeshObject) CastsShadow() bool { return o.Shadow }
func (o *MeshObject) IsDeferred() bool  { return o.Deferred }

// EmissiveObject is an unlit marker drawn in the forward pass with an HDR
// colour, typically placed on a point light so bloom picks it up.
type EmissiveObject struct {
	Mesh      Mesh
	Transform Transform
	Color     mgl32.Vec3
	Intensity float32
}

func NewEmissiveObject(mesh Mesh, position, color mgl32.Vec3, intensity float32) *EmissiveObject {
	t := NewTransform(position)
	t.Scale = mgl32.Vec3{0.2, 0.2, 0.2}
	return &EmissiveObject{Mesh: mesh, Transform: t, Color: color, Intensity: intensity}
}

func (o *EmissiveObject) Draw(p gpu.Program) {
	p.SetMat4("model", o.Transform.Matrix())
	p.SetVec3("tint", o.Color.Mul(o.Intensity))
	o.Mesh.Draw(p)
}

func (o *EmissiveObject) CastsShadow() bool { return false }
func (o *EmissiveObject) IsDeferred() bool  { return false }
