package renderer

import (
	"fmt"

	"Prism3D/internal/gpu"
	"Prism3D/internal/logger"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

const (
	DefaultDirectionalShadowSize = 2048
	DefaultPointShadowSize       = 1024

	pointShadowNear = 1.0
)

// ShadowCaster is a light that can render a depth map of the scene.
// A caster that does not cast shadows is skipped entirely; otherwise its
// depth target is allocated on first use and kept until the light is
// released.
type ShadowCaster interface {
	CastsShadow() bool
	SetCastsShadow(on bool)
	// ShadowMap returns the depth target, or nil before first allocation.
	ShadowMap() *RenderTarget

	// prepareShadowMap allocates the depth target on first use. size applies
	// when the light has no ShadowSize of its own.
	prepareShadowMap(dev gpu.Device, size int) error
	configureForDepthMap(dev gpu.Device, depth gpu.Program)
	releaseShadowMap()
}

// shadowMap is a depth-only target with the framebuffer that renders it.
type shadowMap struct {
	target *RenderTarget
	fb     *Framebuffer
}

func newShadowMap(dev gpu.Device, label string, kind gpu.TextureKind, size int) (*shadowMap, error) {
	target, err := NewRenderTarget(dev, RenderTargetDesc{
		Kind:   kind,
		Width:  size,
		Height: size,
		Format: gpu.FormatDepth24,
		Filter: gpu.FilterNearest,
		Wrap:   gpu.WrapClampToBorder,
	})
	if err != nil {
		return nil, fmt.Errorf("%s shadow map: %w", label, err)
	}
	fb := NewFramebuffer(dev, label)
	if err := fb.Attach(gpu.Depth, target); err != nil {
		fb.Release()
		target.Release()
		return nil, err
	}
	fb.SetDrawBuffers(0)
	if err := fb.CheckComplete(); err != nil {
		fb.Release()
		target.Release()
		return nil, err
	}
	logger.Log.Debug("Shadow map allocated",
		zap.String("light", label),
		zap.String("kind", kind.String()),
		zap.Int("size", size))
	return &shadowMap{target: target, fb: fb}, nil
}

// bindForDepth binds the map's framebuffer at shadow resolution with colour
// writes off and depth cleared.
func (s *shadowMap) bindForDepth(dev gpu.Device) {
	s.fb.Bind()
	dev.SetColorWrite(false)
	dev.SetDepthTest(true)
	dev.Clear(gpu.ClearDepthBit)
}

func (s *shadowMap) release() {
	if s == nil {
		return
	}
	s.fb.Release()
	s.target.Release()
}

// DirectionalLight is the scene's sun. Its shadow is an orthographic depth
// map rendered from a virtual position ShadowDistance units back along the
// light direction.
type DirectionalLight struct {
	Direction mgl32.Vec3
	Color     mgl32.Vec3
	Ambient   float32
	Diffuse   float32
	Specular  float32

	ShadowDistance float32
	// ShadowExtent is the half-width of the orthographic shadow volume.
	ShadowExtent float32
	ShadowNear   float32
	ShadowFar    float32
	// ShadowSize overrides the pipeline's sun shadow resolution when positive.
	ShadowSize int

	castsShadow bool
	shadow      *shadowMap
	allocations int
}

func NewDirectionalLight(direction, color mgl32.Vec3) *DirectionalLight {
	return &DirectionalLight{
		Direction:      direction,
		Color:          color,
		Ambient:        0.1,
		Diffuse:        0.8,
		Specular:       0.5,
		ShadowDistance: 25,
		ShadowExtent:   20,
		ShadowNear:     1,
		ShadowFar:      60,
	}
}

func (l *DirectionalLight) CastsShadow() bool { return l.castsShadow }

// SetCastsShadow toggles the shadow pass. The depth map is allocated lazily
// by the next frame that needs it.
func (l *DirectionalLight) SetCastsShadow(on bool) { l.castsShadow = on }

func (l *DirectionalLight) ShadowMap() *RenderTarget {
	if l.shadow == nil {
		return nil
	}
	return l.shadow.target
}

// LightView looks from the virtual light position toward the origin.
func (l *DirectionalLight) LightView() mgl32.Mat4 {
	dir := l.Direction.Normalize()
	eye := dir.Mul(-l.ShadowDistance)
	up := mgl32.Vec3{0, 1, 0}
	if math32.Abs(dir.Y()) > 0.999 {
		up = mgl32.Vec3{0, 0, 1}
	}
	return mgl32.LookAtV(eye, mgl32.Vec3{}, up)
}

func (l *DirectionalLight) LightProjection() mgl32.Mat4 {
	e := l.ShadowExtent
	return mgl32.Ortho(-e, e, -e, e, l.ShadowNear, l.ShadowFar)
}

// LightSpaceMatrix is recomputed on every call since the direction may
// change between frames.
func (l *DirectionalLight) LightSpaceMatrix() mgl32.Mat4 {
	return l.LightProjection().Mul4(l.LightView())
}

func (l *DirectionalLight) prepareShadowMap(dev gpu.Device, size int) error {
	if l.shadow != nil {
		return nil
	}
	if l.ShadowSize > 0 {
		size = l.ShadowSize
	}
	s, err := newShadowMap(dev, "sun-shadow", gpu.Texture2D, size)
	if err != nil {
		return err
	}
	l.shadow = s
	l.allocations++
	return nil
}

func (l *DirectionalLight) configureForDepthMap(dev gpu.Device, depth gpu.Program) {
	l.shadow.bindForDepth(dev)
	depth.Use()
	depth.SetMat4("lightSpaceMatrix", l.LightSpaceMatrix())
}

func (l *DirectionalLight) releaseShadowMap() {
	l.shadow.release()
	l.shadow = nil
}

// cubeFaces lists the look direction and up vector of each cube-map face in
// GL face order (+X, -X, +Y, -Y, +Z, -Z).
var cubeFaces = [6]struct{ dir, up mgl32.Vec3 }{
	{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, -1, 0}},
	{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, -1, 0}},
	{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 0, 1}},
	{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{0, 0, -1}},
	{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, -1, 0}},
	{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, -1, 0}},
}

var shadowMatrixNames = [6]string{
	"shadowMatrices[0]", "shadowMatrices[1]", "shadowMatrices[2]",
	"shadowMatrices[3]", "shadowMatrices[4]", "shadowMatrices[5]",
}

// PointLight is an omnidirectional light whose influence fades out over
// Range units. Its shadow is a depth cube map.
type PointLight struct {
	Position mgl32.Vec3
	Color    mgl32.Vec3
	Ambient  float32
	Diffuse  float32
	Specular float32
	Range    float32

	// ShadowSize overrides the pipeline's point shadow resolution when positive.
	ShadowSize int

	castsShadow bool
	shadow      *shadowMap
	allocations int
}

func NewPointLight(position, color mgl32.Vec3, influence float32) *PointLight {
	return &PointLight{
		Position: position,
		Color:    color,
		Ambient:  0.05,
		Diffuse:  1.0,
		Specular: 1.0,
		Range:    influence,
	}
}

// Attenuation derives the linear and quadratic falloff terms from Range.
func (l *PointLight) Attenuation() (linear, quadratic float32) {
	k := 13 / l.Range
	return k * 0.35, k * k * 0.44
}

func (l *PointLight) CastsShadow() bool { return l.castsShadow }

func (l *PointLight) SetCastsShadow(on bool) { l.castsShadow = on }

func (l *PointLight) ShadowMap() *RenderTarget {
	if l.shadow == nil {
		return nil
	}
	return l.shadow.target
}

// ShadowTransforms returns projection*view for each cube face in GL face
// order. The far plane is the light's range.
func (l *PointLight) ShadowTransforms() [6]mgl32.Mat4 {
	proj := mgl32.Perspective(mgl32.DegToRad(90), 1, pointShadowNear, l.Range)
	var out [6]mgl32.Mat4
	for i, f := range cubeFaces {
		view := mgl32.LookAtV(l.Position, l.Position.Add(f.dir), f.up)
		out[i] = proj.Mul4(view)
	}
	return out
}

func (l *PointLight) prepareShadowMap(dev gpu.Device, size int) error {
	if l.shadow != nil {
		return nil
	}
	if l.ShadowSize > 0 {
		size = l.ShadowSize
	}
	s, err := newShadowMap(dev, "point-shadow", gpu.TextureCube, size)
	if err != nil {
		return err
	}
	l.shadow = s
	l.allocations++
	return nil
}

func (l *PointLight) configureForDepthMap(dev gpu.Device, depth gpu.Program) {
	l.shadow.bindForDepth(dev)
	depth.Use()
	for i, m := range l.ShadowTransforms() {
		depth.SetMat4(shadowMatrixNames[i], m)
	}
	depth.SetVec3("lightPos", l.Position)
	depth.SetFloat("farPlane", l.Range)
}

func (l *PointLight) releaseShadowMap() {
	l.shadow.release()
	l.shadow = nil
}

// Release frees the light's shadow map, if any.
func (l *PointLight) Release() { l.releaseShadowMap() }

// Release frees the light's shadow map, if any.
func (l *DirectionalLight) Release() { l.releaseShadowMap() }
