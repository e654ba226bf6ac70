package breaker

import "sync"

// Registry owns all named breakers behind one coarse lock. Callers receive
// breaker handles or Status snapshots, never references into shared maps.
type Registry struct {
	mu       sync.RWMutex
	cfg      Config
	breakers map[string]*Breaker
}

// NewRegistry creates a registry; cfg applies to every breaker it creates.
func NewRegistry(cfg Config) *Registry {
	return &Registry{
		cfg:      cfg,
		breakers: make(map[string]*Breaker),
	}
}

// GetOrCreate returns the breaker for name, creating it on first use.
func (r *Registry) GetOrCreate(name string) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[name]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[name]; ok {
		return b
	}
	b = New(name, r.cfg)
	r.breakers[name] = b
	return b
}

// Get returns the breaker for name, or nil if none exists.
func (r *Registry) Get(name string) *Breaker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.breakers[name]
}

// Snapshots returns a point-in-time status of every registered breaker.
func (r *Registry) Snapshots() map[string]Status {
	r.mu.RLock()
	names := make([]*Breaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		names = append(names, b)
	}
	r.mu.RUnlock()

	out := make(map[string]Status, len(names))
	for _, b := range names {
		out[b.Name()] = b.Status()
	}
	return out
}

// ResetAll returns every breaker to the Closed state.
func (r *Registry) ResetAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.breakers {
		b.Reset()
	}
}
