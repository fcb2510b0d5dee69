package renderer

import (
	"github.com/go-gl/mathgl/mgl32"
)

// ObjectHandle addresses a drawable in the scene arena.
type ObjectHandle int

// LightHandle addresses a point light in the scene arena.
type LightHandle int

// CameraSource supplies the matrices for one frame.
type CameraSource interface {
	ViewMatrix() mgl32.Mat4
	ProjectionMatrix() mgl32.Mat4
	EyePosition() mgl32.Vec3
}

// Scene is an arena owned by the Renderer. Removed slots are left empty so
// outstanding handles never alias a different object.
type Scene struct {
	Camera CameraSource

	sun     *DirectionalLight
	objects []Drawable
	lights  []*PointLight
}

// NewScene returns an empty scene that no renderer draws.
func NewScene() *Scene {
	return &Scene{}
}

func (s *Scene) Sun() *DirectionalLight { return s.sun }

// SetSun replaces the directional light. The previous sun's shadow map is
// freed; passing nil removes the sun.
func (s *Scene) SetSun(l *DirectionalLight) {
	if s.sun != nil && s.sun != l {
		s.sun.Release()
	}
	s.sun = l
}

func (s *Scene) AddObject(d Drawable) ObjectHandle {
	s.objects = append(s.objects, d)
	return ObjectHandle(len(s.objects) - 1)
}

// Object returns the drawable for h, or nil if h was removed or is invalid.
func (s *Scene) Object(h ObjectHandle) Drawable {
	if h < 0 || int(h) >= len(s.objects) {
		return nil
	}
	return s.objects[h]
}

func (s *Scene) RemoveObject(h ObjectHandle) bool {
	if s.Object(h) == nil {
		return false
	}
	s.objects[h] = nil
	return true
}

func (s *Scene) AddPointLight(l *PointLight) LightHandle {
	s.lights = append(s.lights, l)
	return LightHandle(len(s.lights) - 1)
}

func (s *Scene) PointLight(h LightHandle) *PointLight {
	if h < 0 || int(h) >= len(s.lights) {
		return nil
	}
	return s.lights[h]
}

// RemovePointLight drops the light and frees its shadow map.
func (s *Scene) RemovePointLight(h LightHandle) bool {
	l := s.PointLight(h)
	if l == nil {
		return false
	}
	l.Release()
	s.lights[h] = nil
	return true
}

func (s *Scene) eachObject(fn func(Drawable)) {
	for _, d := range s.objects {
		if d != nil {
			fn(d)
		}
	}
}

// eachPointLight visits live lights in insertion order.
func (s *Scene) eachPointLight(fn func(*PointLight)) {
	for _, l := range s.lights {
		if l != nil {
			fn(l)
		}
	}
}

// ObjectHandles lists live drawables in insertion order.
func (s *Scene) ObjectHandles() []ObjectHandle {
	var hs []ObjectHandle
	for i, d := range s.objects {
		if d != nil {
			hs = append(hs, ObjectHandle(i))
		}
	}
	return hs
}

// LightHandles lists live point lights in insertion order.
func (s *Scene) LightHandles() []LightHandle {
	var hs []LightHandle
	for i, l := range s.lights {
		if l != nil {
			hs = append(hs, LightHandle(i))
		}
	}
	return hs
}

// ObjectCount is the number of live drawables.
func (s *Scene) ObjectCount() int {
	n := 0
	s.eachObject(func(Drawable) { n++ })
	return n
}

// PointLightCount is the number of live point lights.
func (s *Scene) PointLightCount() int {
	n := 0
	s.eachPointLight(func(*PointLight) { n++ })
	return n
}

// hasForward reports whether any live object is drawn in the forward pass.
func (s *Scene) hasForward() bool {
	for _, d := range s.objects {
		if d != nil && !d.IsDeferred() {
			return true
		}
	}
	return false
}

func (s *Scene) release() {
	s.eachPointLight(func(l *PointLight) { l.Release() })
	if s.sun != nil {
		s.sun.Release()
	}
}
