package matcher

import (
	"fmt"
	"sort"
	"sync"

	"github.com/brandlens/brandlens/internal/core"
)

// Factory constructs a matcher engine.
type Factory func() Matcher

// Registry maps engine names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a registry holding the given engines.
func NewRegistry(factories map[string]Factory) *Registry {
	r := &Registry{factories: make(map[string]Factory, len(factories))}
	for name, f := range factories {
		r.factories[name] = f
	}
	return r
}

// DefaultRegistry carries every engine compiled into the binary.
var DefaultRegistry = NewRegistry(map[string]Factory{
	core.EngineFast:    func() Matcher { return NewFast() },
	core.EngineBuiltin: func() Matcher { return NewBuiltin() },
})

// Register adds or replaces an engine.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Available lists registered engine names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve picks an engine. auto prefers fast and falls back to builtin; an explicit
// engine that is unknown or not registered is a *core.ConfigError.
func (r *Registry) Resolve(engine string) (Matcher, error) {
	name, ok := core.CanonicalEngine(engine)
	if !ok {
		return nil, &core.ConfigError{Field: "matcher_engine", Reason: fmt.Sprintf("unknown engine %q", engine)}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == core.EngineAuto {
		for _, candidate := range []string{core.EngineFast, core.EngineBuiltin} {
			if f, ok := r.factories[candidate]; ok {
				return f(), nil
			}
		}
		return nil, &core.ConfigError{Field: "matcher_engine", Reason: "no matcher engine available"}
	}

	f, ok := r.factories[name]
	if !ok {
		return nil, &core.ConfigError{Field: "matcher_engine", Reason: fmt.Sprintf("engine %q is not available", name)}
	}
	return f(), nil
}

// Resolve uses DefaultRegistry.
func Resolve(engine string) (Matcher, error) {
	return DefaultRegistry.Resolve(engine)
}
