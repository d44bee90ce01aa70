// Package gpu samples GPU utilization per physical adapter.
//
// Each adapter (sub-unit) owns one or more engine groups. A group is a
// wildcard counter path that may expand to any number of engine instances,
// and the adapter's load is the sum over every matched instance of every
// group. The sum is not clamped: several busy engines can push it above 1.
//
// The counter namespace is abstracted by Query. Windows uses PDH
// ("\GPU Engine(...)\Utilization Percentage"); Linux uses DRM sysfs
// gpu_busy_percent files.
package gpu

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/danpilch/devmon/pkg/clock"
	"github.com/danpilch/devmon/pkg/collectors"
)

// DefaultMinInterval is the minimum spacing between two samples. Load sleeps
// out the remainder instead of returning early.
const DefaultMinInterval = 500 * time.Millisecond

// CounterHandle identifies a counter added to a Query.
type CounterHandle uintptr

// Query is a live counter namespace sharing one collection cycle.
type Query interface {
	// Expand resolves a wildcard path to the concrete paths that exist now.
	// No match is an empty result, not an error.
	Expand(pattern string) ([]string, error)

	// Add registers a concrete path. Values read through the handle are
	// fractions (raw percentages scaled by 1/100).
	Add(path string) (CounterHandle, error)

	// Collect takes one snapshot of every added counter.
	Collect() error

	// Value returns the counter's formatted value from the last Collect.
	// Errors wrapping collectors.ErrTransientCounter are recoverable.
	Value(h CounterHandle) (float64, error)

	// Close releases the query and every counter added to it.
	Close() error
}

// EngineGroup is a named wildcard pattern. Pattern contains one %d verb
// replaced by the adapter index.
type EngineGroup struct {
	Name    string
	Pattern string
}

// Path returns the group's pattern for the given adapter index.
func (g EngineGroup) Path(index int) string {
	return fmt.Sprintf(g.Pattern, index)
}

// Source describes a platform counter namespace.
type Source struct {
	Name     string
	Open     func() (Query, error)
	Groups   []EngineGroup
	Adapters AdapterLister
}

// Options configures a GPU backend.
type Options struct {
	// SubUnits fixes the adapter count (indices 0..SubUnits-1). Zero
	// enumerates adapters through the source.
	SubUnits int

	// Vendor keeps only adapters with this PCI vendor id. Zero keeps all.
	Vendor uint32

	// MinInterval defaults to DefaultMinInterval.
	MinInterval time.Duration

	Clock  clock.Clock
	Logger *logrus.Logger

	// Source defaults to the platform source.
	Source *Source
}

func (o Options) withDefaults() Options {
	if o.MinInterval <= 0 {
		o.MinInterval = DefaultMinInterval
	}
	if o.Clock == nil {
		o.Clock = clock.Real()
	}
	if o.Logger == nil {
		o.Logger = logrus.New()
		o.Logger.SetLevel(logrus.WarnLevel)
	}
	if o.Source == nil {
		src := PlatformSource()
		o.Source = &src
	}
	return o
}

type subUnit struct {
	adapter Adapter
	// groups[g] holds the handles matched by Source.Groups[g].
	groups [][]CounterHandle
}

// Collector is the GPU backend. It owns its query exclusively.
type Collector struct {
	query       Query
	source      string
	groups      []EngineGroup
	units       []subUnit
	minInterval time.Duration
	clock       clock.Clock
	logger      *logrus.Logger

	lastSample time.Time
	fatal      error
}

// New builds a GPU backend on the configured source.
func New(opts Options) (collectors.Backend, error) {
	c, err := newCollector(opts)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// SubUnitCount returns how many sub-units a backend built with opts would
// expose, without opening a query.
func SubUnitCount(opts Options) (int, error) {
	opts = opts.withDefaults()
	adapters, err := resolveAdapters(*opts.Source, opts)
	if err != nil {
		return 0, err
	}
	return len(adapters), nil
}

func newCollector(opts Options) (*Collector, error) {
	opts = opts.withDefaults()
	src := *opts.Source

	if src.Open == nil {
		return nil, fmt.Errorf("gpu source %q: %w", src.Name, collectors.ErrUnsupported)
	}
	adapters, err := resolveAdapters(src, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", collectors.ErrBackendInitFailed, err)
	}

	query, err := src.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %s query: %w", collectors.ErrBackendInitFailed, src.Name, err)
	}

	c := &Collector{
		query:       query,
		source:      src.Name,
		groups:      src.Groups,
		minInterval: opts.MinInterval,
		clock:       opts.Clock,
		logger:      opts.Logger,
	}
	if err := c.addCounters(adapters); err != nil {
		query.Close()
		return nil, fmt.Errorf("%w: %w", collectors.ErrBackendInitFailed, err)
	}

	// Rate counters need two snapshots; prime the first one now.
	if err := query.Collect(); err != nil && !errors.Is(err, collectors.ErrTransientCounter) {
		query.Close()
		return nil, fmt.Errorf("%w: prime %s query: %w", collectors.ErrBackendInitFailed, src.Name, err)
	}
	c.lastSample = c.clock.Now()
	return c, nil
}

func (c *Collector) addCounters(adapters []Adapter) error {
	matched := 0
	c.units = make([]subUnit, len(adapters))
	for i, adapter := range adapters {
		unit := subUnit{
			adapter: adapter,
			groups:  make([][]CounterHandle, len(c.groups)),
		}
		for g, group := range c.groups {
			pattern := group.Path(adapter.Index)
			paths, err := c.query.Expand(pattern)
			if err != nil {
				return fmt.Errorf("expand %q: %w", pattern, err)
			}
			for _, path := range paths {
				h, err := c.query.Add(path)
				if err != nil {
					return fmt.Errorf("add counter %q: %w", path, err)
				}
				unit.groups[g] = append(unit.groups[g], h)
			}
			matched += len(paths)

			c.logger.WithFields(logrus.Fields{
				"source":  c.source,
				"adapter": adapter.Index,
				"group":   group.Name,
				"matches": len(paths),
			}).Debug("Expanded GPU engine counters")
		}
		c.units[i] = unit
	}
	if matched == 0 {
		return fmt.Errorf("no %s engine counters matched for %d adapters", c.source, len(adapters))
	}
	return nil
}

// SubUnits returns the adapter count.
func (c *Collector) SubUnits() int {
	return len(c.units)
}

// Adapters returns the adapters being sampled, in sub-unit order.
func (c *Collector) Adapters() []Adapter {
	out := make([]Adapter, len(c.units))
	for i, u := range c.units {
		out[i] = u.adapter
	}
	return out
}

// Load waits until MinInterval has passed since the previous sample, takes
// one snapshot and sums every engine counter per adapter.
func (c *Collector) Load() (collectors.Sample, error) {
	if c.fatal != nil {
		return nil, c.fatal
	}

	since := c.clock.Now().Sub(c.lastSample)
	if since >= 0 && since < c.minInterval {
		c.clock.Sleep(c.minInterval - since)
	}
	c.lastSample = c.clock.Now()

	if err := c.query.Collect(); err != nil {
		if errors.Is(err, collectors.ErrTransientCounter) {
			c.logger.WithFields(logrus.Fields{
				"source": c.source,
				"error":  err,
			}).Debug("GPU query collection skipped")
			return nil, nil
		}
		return nil, fmt.Errorf("collect %s query: %w", c.source, err)
	}

	load := make(collectors.Sample, len(c.units))
	for i, unit := range c.units {
		var value float64
		for _, handles := range unit.groups {
			for _, h := range handles {
				v, err := c.query.Value(h)
				if err != nil {
					if errors.Is(err, collectors.ErrTransientCounter) {
						c.logger.WithFields(logrus.Fields{
							"source":  c.source,
							"adapter": unit.adapter.Index,
							"error":   err,
						}).Debug("Skipping GPU counter value")
						continue
					}
					c.fatal = fmt.Errorf("read %s counter: %w", c.source, err)
					return nil, c.fatal
				}
				value += v
			}
		}
		load[i] = value
	}
	return load, nil
}

// Close releases the query and its counters.
func (c *Collector) Close() error {
	if c.query == nil {
		return nil
	}
	err := c.query.Close()
	c.query = nil
	c.fatal = errors.New("gpu collector closed")
	return err
}
