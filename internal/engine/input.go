package engine

import (
	"Prism3D/internal/renderer"
)

// Key is a key the engine reacts to. Window implementations translate their
// native key codes to these.
type Key int

const (
	KeyUnknown Key = iota
	KeyW
	KeyA
	KeyS
	KeyD
	KeyShift
	KeyEscape
	KeyF12
	KeyN
	KeyF3
)

// Keyboard reports keys currently held down.
type Keyboard interface {
	KeyDown(k Key) bool
}

var movementKeys = []struct {
	key Key
	dir renderer.Movement
}{
	{KeyW, renderer.Forward},
	{KeyS, renderer.Backward},
	{KeyA, renderer.Left},
	{KeyD, renderer.Right},
}

// moveCamera applies WASD movement for one frame. Shift moves faster.
func moveCamera(cam *renderer.Camera, kb Keyboard, dt float32) {
	boost := kb.KeyDown(KeyShift)
	for _, m := range movementKeys {
		if kb.KeyDown(m.key) {
			cam.Move(m.dir, dt, boost)
		}
	}
}
