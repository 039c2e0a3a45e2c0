package launcher

import (
	"fmt"

	"oss.nandlabs.io/jobengine/managers"
)

// registry is the process-wide named-launcher table, grounded on
// managers.ItemManager[T]'s generic register/get/list surface (the same
// primitive codec uses for its codec registry).
var registry = managers.NewItemManager[*Launcher]()

// ErrNotRegistered is returned by Lookup when no launcher was registered
// under the given name.
var ErrNotRegistered = fmt.Errorf("launcher: not registered")

// Register adds l to the process-wide registry under its own name,
// overwriting any previous registration with the same name.
func Register(l *Launcher) {
	registry.Register(l.Name(), l)
}

// Unregister removes the launcher registered under name, if any.
func Unregister(name string) {
	registry.Unregister(name)
}

// Lookup returns the launcher registered under name.
func Lookup(name string) (*Launcher, error) {
	l := registry.Get(name)
	if l == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrNotRegistered)
	}
	return l, nil
}

// All returns every currently registered launcher.
func All() []*Launcher {
	return registry.Items()
}
