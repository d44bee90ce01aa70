// Package collectors provides the performance counter abstraction that turns
// platform load backends into per-sub-unit utilization samples.
package collectors

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Sample holds one utilization fraction per sub-unit (CPU core, GPU engine
// group). An empty sample means the backend has no fresh data yet.
type Sample []float64

// Backend is a platform load source. Implementations live in the cpu, gpu and
// memory subpackages.
type Backend interface {
	// Load returns the current utilization vector, or an empty sample when
	// a rate cannot be computed yet.
	Load() (Sample, error)

	// Close releases any OS handles held by the backend.
	Close() error
}

// Factory builds a backend. It is called once, on the first Load.
type Factory func() (Backend, error)

// Kind tags the variant of device a counter samples.
type Kind string

const (
	KindCPU    Kind = "cpu"
	KindGPU    Kind = "gpu"
	KindMemory Kind = "memory"
	KindNull   Kind = "null"
)

// Counter is a named performance counter with a lazily constructed backend.
// It is not safe for concurrent use.
type Counter struct {
	name     string
	kind     Kind
	subUnits int
	factory  Factory
	logger   *logrus.Logger

	backend Backend
	initErr error
}

// CounterOption configures a Counter.
type CounterOption func(*Counter)

// WithLogger sets the logger used for backend lifecycle messages.
func WithLogger(logger *logrus.Logger) CounterOption {
	return func(c *Counter) {
		c.logger = logger
	}
}

// NewCounter creates a counter for the named device. A sub-unit count of zero
// or less is treated as one.
func NewCounter(name string, kind Kind, subUnits int, factory Factory, opts ...CounterOption) *Counter {
	if subUnits <= 0 {
		subUnits = 1
	}
	c := &Counter{
		name:     name,
		kind:     kind,
		subUnits: subUnits,
		factory:  factory,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.SetLevel(logrus.WarnLevel)
	}
	return c
}

// Name returns the device name.
func (c *Counter) Name() string {
	return c.name
}

// Kind returns the device variant.
func (c *Counter) Kind() Kind {
	return c.kind
}

// SubUnits returns the declared sub-unit count, at least one.
func (c *Counter) SubUnits() int {
	return c.subUnits
}

// Load samples the backend, building it on first use. Once construction has
// failed the counter is unusable and every call returns the same error.
func (c *Counter) Load() (Sample, error) {
	if c.initErr != nil {
		return nil, c.initErr
	}
	if c.backend == nil {
		if c.factory == nil {
			c.initErr = fmt.Errorf("%s: no backend factory: %w", c.name, ErrBackendInitFailed)
			return nil, c.initErr
		}
		c.logger.WithFields(logrus.Fields{
			"device": c.name,
			"kind":   c.kind,
		}).Debug("Initializing counter backend")

		backend, err := c.factory()
		if err != nil {
			c.initErr = initFailed(c.name, err)
			c.logger.WithFields(logrus.Fields{
				"device": c.name,
				"error":  err,
			}).Warn("Counter backend initialization failed")
			return nil, c.initErr
		}
		c.backend = backend
	}

	sample, err := c.backend.Load()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.name, err)
	}
	if len(sample) != 0 && len(sample) != c.subUnits {
		return nil, fmt.Errorf("%s: got %d values for %d sub-units: %w",
			c.name, len(sample), c.subUnits, ErrSubUnitMismatch)
	}
	return sample, nil
}

// Close releases the backend if it was built. The counter must not be used
// afterwards.
func (c *Counter) Close() error {
	if c.backend == nil {
		return nil
	}
	err := c.backend.Close()
	c.backend = nil
	c.initErr = fmt.Errorf("%s: counter closed: %w", c.name, ErrBackendInitFailed)
	return err
}

// NullBackend never has data. It stands in for devices the platform cannot
// sample.
type NullBackend struct{}

// Load always returns an empty sample.
func (NullBackend) Load() (Sample, error) { return nil, nil }

// Close is a no-op.
func (NullBackend) Close() error { return nil }

// NullFactory builds a NullBackend.
func NullFactory() (Backend, error) { return NullBackend{}, nil }
