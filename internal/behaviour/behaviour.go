// Package behaviour runs named per-frame updaters over a renderer scene.
package behaviour

import (
	"slices"

	"Prism3D/internal/renderer"
)

// Behaviour changes scene state between frames. Start runs once, before the
// first Update.
type Behaviour interface {
	Start(scene *renderer.Scene)
	Update(scene *renderer.Scene, dt float32)
}

type entry struct {
	name      string
	behaviour Behaviour
	started   bool
}

// Manager updates its behaviours in the order they were added.
type Manager struct {
	entries []entry
}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) Add(name string, b Behaviour) {
	m.entries = append(m.entries, entry{name: name, behaviour: b})
}

// Remove drops the first behaviour added under name.
func (m *Manager) Remove(name string) bool {
	i := slices.IndexFunc(m.entries, func(e entry) bool { return e.name == name })
	if i < 0 {
		return false
	}
	m.entries = slices.Delete(m.entries, i, i+1)
	return true
}

func (m *Manager) Clear() {
	m.entries = m.entries[:0]
}

func (m *Manager) Len() int { return len(m.entries) }

func (m *Manager) Names() []string {
	names := make([]string, len(m.entries))
	for i, e := range m.entries {
		names[i] = e.name
	}
	return names
}

func (m *Manager) UpdateAll(scene *renderer.Scene, dt float32) {
	for i := range m.entries {
		e := &m.entries[i]
		if !e.started {
			e.behaviour.Start(scene)
			e.started = true
		}
		e.behaviour.Update(scene, dt)
	}
}
