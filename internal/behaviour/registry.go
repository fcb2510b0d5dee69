package behaviour

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

var ErrUnknownBehaviour = errors.New("unknown behaviour")

type Constructor func() Behaviour

var registry = make(map[string]Constructor)

// Register makes a behaviour available by name. Registering a name twice
// replaces the earlier constructor.
func Register(name string, constructor Constructor) {
	registry[name] = constructor
}

// Available returns the registered names in sorted order.
func Available() []string {
	return slices.Sorted(maps.Keys(registry))
}

func Create(name string) (Behaviour, error) {
	constructor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %v)", ErrUnknownBehaviour, name, Available())
	}
	return constructor(), nil
}

// Build creates a manager running the named behaviours in order.
func Build(names []string) (*Manager, error) {
	m := NewManager()
	for _, name := range names {
		b, err := Create(name)
		if err != nil {
			return nil, err
		}
		m.Add(name, b)
	}
	return m, nil
}
