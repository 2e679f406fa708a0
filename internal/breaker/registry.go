package breaker

import (
	"sync"
	"time"
)

// Registry hands out one breaker per name. It is owned by whoever builds it
// (the orchestrator in production) rather than living in a package global.
type Registry struct {
	threshold int
	cooldown  time.Duration
	observer  Observer
	now       func() time.Time

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// Option configures a Registry.
type Option func(*Registry)

// WithObserver registers a callback for state changes of every breaker.
func WithObserver(o Observer) Option {
	return func(r *Registry) { r.observer = o }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry creates an empty registry whose breakers share the threshold and cooldown.
func NewRegistry(threshold int, cooldown time.Duration, opts ...Option) *Registry {
	r := &Registry{
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
		breakers:  make(map[string]*Breaker),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the breaker for name, creating it on first use.
func (r *Registry) Get(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[name]; ok {
		return b
	}
	b := New(name, r.threshold, r.cooldown)
	b.now = r.now
	b.observer = r.observer
	r.breakers[name] = b
	return b
}

// Snapshot returns the state of every breaker created so far.
func (r *Registry) Snapshot() map[string]State {
	r.mu.Lock()
	list := make([]*Breaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		list = append(list, b)
	}
	r.mu.Unlock()

	out := make(map[string]State, len(list))
	for _, b := range list {
		out[b.Name()] = b.State()
	}
	return out
}
