package provider

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Registry maps backend names to factories sharing one settings type.
type Registry[S any, T Provider] struct {
	mu        sync.RWMutex
	factories map[string]Factory[S, T]
}

// NewRegistry creates an empty Registry.
func NewRegistry[S any, T Provider]() *Registry[S, T] {
	return &Registry[S, T]{factories: make(map[string]Factory[S, T])}
}

// Register adds factory under name, replacing any previous one.
func (r *Registry[S, T]) Register(name string, factory Factory[S, T]) {
	r.mu.Lock()
	r.factories[name] = factory
	r.mu.Unlock()
}

// Has reports whether name is registered.
func (r *Registry[S, T]) Has(name string) bool {
	r.mu.RLock()
	_, ok := r.factories[name]
	r.mu.RUnlock()
	return ok
}

// Build creates the backend registered as name.
func (r *Registry[S, T]) Build(name string, settings S) (T, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("unknown provider %q (registered: %s)", name, strings.Join(r.Names(), ", "))
	}
	return factory(settings)
}

// Names returns the registered names in sorted order.
func (r *Registry[S, T]) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	r.mu.RUnlock()
	slices.Sort(names)
	return names
}
