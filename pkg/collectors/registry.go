package collectors

import "errors"

// Registry holds the counters a process samples, in registration order.
type Registry struct {
	counters []*Counter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		counters: make([]*Counter, 0),
	}
}

// Register adds a counter to the registry.
func (r *Registry) Register(c *Counter) {
	r.counters = append(r.counters, c)
}

// Counters returns all registered counters.
func (r *Registry) Counters() []*Counter {
	return r.counters
}

// GetByName returns a counter by name, or nil if not found.
func (r *Registry) GetByName(name string) *Counter {
	for _, c := range r.counters {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// GetByKind returns the first counter of the given kind, or nil.
func (r *Registry) GetByKind(kind Kind) *Counter {
	for _, c := range r.counters {
		if c.Kind() == kind {
			return c
		}
	}
	return nil
}

// Close releases every counter's backend.
func (r *Registry) Close() error {
	var errs []error
	for _, c := range r.counters {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
