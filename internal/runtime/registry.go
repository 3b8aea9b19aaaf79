package runtime

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrUnknownRuntime is returned by Lookup for a name with no backend.
var ErrUnknownRuntime = errors.New("unknown runtime")

// Factory constructs a launch backend.
type Factory func() Runtime

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// Register makes a backend available to NewRegistry under name. Backends
// call it from init; registering a name again replaces the factory.
func Register(name string, factory Factory) {
	if name == "" || factory == nil {
		panic(fmt.Sprintf("runtime.Register: invalid registration for %q", name))
	}
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = factory
}

// NewRegistry instantiates every registered backend.
func NewRegistry() Registry {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	reg := make(Registry, len(factories))
	for name, factory := range factories {
		reg[name] = factory()
	}
	return reg
}

// Registry maps the runtime names used in manifests to backends.
type Registry map[string]Runtime

// Clone returns a copy that can be changed without affecting r.
func (r Registry) Clone() Registry {
	dup := make(Registry, len(r))
	for name, rt := range r {
		dup[name] = rt
	}
	return dup
}

// Lookup returns the backend for name. The error wraps ErrUnknownRuntime and
// lists the names that are available.
func (r Registry) Lookup(name string) (Runtime, error) {
	if rt := r[name]; rt != nil {
		return rt, nil
	}
	known := r.Names()
	if len(known) == 0 {
		return nil, fmt.Errorf("%w %q: no runtimes registered", ErrUnknownRuntime, name)
	}
	return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownRuntime, name, strings.Join(known, ", "))
}

// Names returns the runtime names sorted alphabetically.
func (r Registry) Names() []string {
	out := make([]string, 0, len(r))
	for name, rt := range r {
		if rt != nil {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
