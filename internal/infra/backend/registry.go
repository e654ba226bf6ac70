package backend

import (
	"errors"
	"fmt"
	"sync"
)

// ErrBackendNotFound is returned when a route names an unregistered backend.
var ErrBackendNotFound = errors.New("backend not found")

// Registry resolves backend names to handles. It is injected once at
// construction; resolution failures are typed, never nil dereferences.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
	monitors map[string]*Monitor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		backends: make(map[string]Backend),
		monitors: make(map[string]*Monitor),
	}
}

// monitored is implemented by backends that track their own health.
type monitored interface {
	Monitor() *Monitor
}

// Register adds a backend under its name. Backends that carry their own
// monitor keep it; others get a fresh one.
func (r *Registry) Register(b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[b.Name()] = b
	if m, ok := b.(monitored); ok {
		r.monitors[b.Name()] = m.Monitor()
	} else {
		r.monitors[b.Name()] = NewMonitor()
	}
}

// Resolve returns the backend registered under name.
func (r *Registry) Resolve(name string) (Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotFound, name)
	}
	return b, nil
}

// Monitor returns the monitor paired with a backend, or nil if unregistered.
func (r *Registry) Monitor(name string) *Monitor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.monitors[name]
}

// Names returns all registered backend names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	return names
}

// Stats returns a snapshot of every backend monitor.
func (r *Registry) Stats() map[string]MonitorStats {
	r.mu.RLock()
	monitors := make(map[string]*Monitor, len(r.monitors))
	for name, m := range r.monitors {
		monitors[name] = m
	}
	r.mu.RUnlock()

	out := make(map[string]MonitorStats, len(monitors))
	for name, m := range monitors {
		out[name] = m.Stats()
	}
	return out
}
