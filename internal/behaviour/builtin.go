package behaviour

import (
	"Prism3D/internal/logger"
	"Prism3D/internal/renderer"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

func init() {
	Register("orbit", func() Behaviour { return NewOrbit(mgl32.Vec3{}, 0.5) })
	Register("pulse", func() Behaviour { return NewPulse(0.5, 0.35) })
	Register("shadow-toggle", func() Behaviour { return NewShadowToggle(3) })
	Register("spin", func() Behaviour { return NewSpin(45) })
	Register("bounce", func() Behaviour { return NewBounce(0.5, 2) })
}

// markersOn returns the emissive objects placed exactly on pos.
func markersOn(scene *renderer.Scene, pos mgl32.Vec3) []*renderer.EmissiveObject {
	var out []*renderer.EmissiveObject
	for _, h := range scene.ObjectHandles() {
		if e, ok := scene.Object(h).(*renderer.EmissiveObject); ok && e.Transform.Position.ApproxEqual(pos) {
			out = append(out, e)
		}
	}
	return out
}

// shadowCasters returns the mesh objects that cast shadows, which leaves
// out flat ground planes.
func shadowCasters(scene *renderer.Scene) []*renderer.MeshObject {
	var out []*renderer.MeshObject
	for _, h := range scene.ObjectHandles() {
		if o, ok := scene.Object(h).(*renderer.MeshObject); ok && o.Shadow {
			out = append(out, o)
		}
	}
	return out
}

type orbiter struct {
	light   renderer.LightHandle
	markers []*renderer.EmissiveObject
	radius  float32
	angle   float32
	height  float32
}

// Orbit circles every point light around a vertical axis through Center.
// Markers sitting on a light when the behaviour starts move with it.
type Orbit struct {
	Center mgl32.Vec3
	// Speed is in radians per second.
	Speed float32

	orbiters []orbiter
}

func NewOrbit(center mgl32.Vec3, speed float32) *Orbit {
	return &Orbit{Center: center, Speed: speed}
}

func (o *Orbit) Start(scene *renderer.Scene) {
	for _, h := range scene.LightHandles() {
		l := scene.PointLight(h)
		offset := l.Position.Sub(o.Center)
		o.orbiters = append(o.orbiters, orbiter{
			light:   h,
			markers: markersOn(scene, l.Position),
			radius:  math32.Hypot(offset.X(), offset.Z()),
			angle:   math32.Atan2(offset.Z(), offset.X()),
			height:  offset.Y(),
		})
	}
	logger.Log.Debug("Orbit started", zap.Int("lights", len(o.orbiters)))
}

func (o *Orbit) Update(scene *renderer.Scene, dt float32) {
	for i := range o.orbiters {
		orb := &o.orbiters[i]
		l := scene.PointLight(orb.light)
		if l == nil {
			continue
		}
		orb.angle += o.Speed * dt
		pos := o.Center.Add(mgl32.Vec3{
			orb.radius * math32.Cos(orb.angle),
			orb.height,
			orb.radius * math32.Sin(orb.angle),
		})
		l.Position = pos
		for _, m := range orb.markers {
			m.Transform.Position = pos
		}
	}
}

type pulsing struct {
	light       renderer.LightHandle
	color       mgl32.Vec3
	markers     []*renderer.EmissiveObject
	intensities []float32
	phase       float32
}

// Pulse scales each point light's colour, and its markers' intensity, by
// 1 + Amount*sin(2*pi*Frequency*t). Lights are spread evenly in phase.
type Pulse struct {
	Frequency float32
	Amount    float32

	elapsed float32
	lights  []pulsing
}

func NewPulse(frequency, amount float32) *Pulse {
	return &Pulse{Frequency: frequency, Amount: amount}
}

func (p *Pulse) Start(scene *renderer.Scene) {
	handles := scene.LightHandles()
	for i, h := range handles {
		l := scene.PointLight(h)
		markers := markersOn(scene, l.Position)
		intensities := make([]float32, len(markers))
		for k, m := range markers {
			intensities[k] = m.Intensity
		}
		p.lights = append(p.lights, pulsing{
			light:       h,
			color:       l.Color,
			markers:     markers,
			intensities: intensities,
			phase:       2 * math32.Pi * float32(i) / float32(len(handles)),
		})
	}
}

func (p *Pulse) Update(scene *renderer.Scene, dt float32) {
	p.elapsed += dt
	for _, pl := range p.lights {
		l := scene.PointLight(pl.light)
		if l == nil {
			continue
		}
		k := 1 + p.Amount*math32.Sin(2*math32.Pi*p.Frequency*p.elapsed+pl.phase)
		l.Color = pl.color.Mul(k)
		for i, m := range pl.markers {
			m.Intensity = pl.intensities[i] * k
		}
	}
}

// ShadowToggle flips shadow casting on one point light every Interval
// seconds, cycling through the lights in order.
type ShadowToggle struct {
	Interval float32

	elapsed float32
	next    int
}

func NewShadowToggle(interval float32) *ShadowToggle {
	return &ShadowToggle{Interval: interval}
}

func (s *ShadowToggle) Start(*renderer.Scene) {}

func (s *ShadowToggle) Update(scene *renderer.Scene, dt float32) {
	if s.Interval <= 0 {
		return
	}
	s.elapsed += dt
	for s.elapsed >= s.Interval {
		s.elapsed -= s.Interval
		handles := scene.LightHandles()
		if len(handles) == 0 {
			return
		}
		h := handles[s.next%len(handles)]
		s.next++
		l := scene.PointLight(h)
		l.SetCastsShadow(!l.CastsShadow())
		logger.Log.Debug("Point light shadow toggled",
			zap.Int("light", int(h)),
			zap.Bool("shadow", l.CastsShadow()))
	}
}

// Spin turns every shadow-casting mesh object about its vertical axis.
type Spin struct {
	// Speed is in degrees per second.
	Speed float32

	targets []*renderer.MeshObject
}

func NewSpin(speed float32) *Spin {
	return &Spin{Speed: speed}
}

func (s *Spin) Start(scene *renderer.Scene) {
	s.targets = shadowCasters(scene)
}

func (s *Spin) Update(_ *renderer.Scene, dt float32) {
	step := mgl32.QuatRotate(mgl32.DegToRad(s.Speed*dt), mgl32.Vec3{0, 1, 0})
	for _, o := range s.targets {
		o.Transform.Rotation = step.Mul(o.Transform.Rotation).Normalize()
	}
}

// Bounce moves shadow-casting mesh objects up and down around the height
// they had at Start.
type Bounce struct {
	Height float32
	Speed  float32

	elapsed float32
	targets []*renderer.MeshObject
	baseY   []float32
}

func NewBounce(height, speed float32) *Bounce {
	return &Bounce{Height: height, Speed: speed}
}

func (b *Bounce) Start(scene *renderer.Scene) {
	b.targets = shadowCasters(scene)
	b.baseY = make([]float32, len(b.targets))
	for i, o := range b.targets {
		b.baseY[i] = o.Transform.Position.Y()
	}
}

func (b *Bounce) Update(_ *renderer.Scene, dt float32) {
	b.elapsed += dt * b.Speed
	offset := math32.Sin(b.elapsed) * b.Height
	for i, o := range b.targets {
		o.Transform.Position[1] = b.baseY[i] + offset
	}
}
