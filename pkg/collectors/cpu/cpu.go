// Package cpu provides per-core CPU load backends.
//
// Load is derived from idle time: for each core, one minus the fraction of
// wall time the core spent idle (idle + iowait) since the previous sample.
// Values are not clamped and may drift slightly outside [0, 1] from tick
// rounding.
package cpu

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/danpilch/devmon/pkg/clock"
	"github.com/danpilch/devmon/pkg/collectors"
)

// MinInterval is the shortest spacing between two samples. Calls arriving
// sooner return an empty sample instead of a noisy rate.
const MinInterval = 100 * time.Millisecond

// Options configures a CPU backend.
type Options struct {
	// StatPath overrides /proc/stat (Linux only).
	StatPath string

	// Clock defaults to clock.Real().
	Clock clock.Clock

	Logger *logrus.Logger
}

func (o Options) withDefaults() Options {
	if o.StatPath == "" {
		o.StatPath = "/proc/stat"
	}
	if o.Clock == nil {
		o.Clock = clock.Real()
	}
	if o.Logger == nil {
		o.Logger = logrus.New()
		o.Logger.SetLevel(logrus.WarnLevel)
	}
	return o
}

// idleReader returns cumulative idle ticks per core.
type idleReader func() ([]uint64, error)

// rateBackend turns cumulative idle ticks into per-core load.
type rateBackend struct {
	read           idleReader
	ticksPerSecond float64
	clock          clock.Clock
	logger         *logrus.Logger
	source         string

	prevIdle []uint64
	prevTime time.Time
	fatal    error
}

func newRateBackend(source string, read idleReader, ticksPerSecond float64, opts Options) (*rateBackend, error) {
	if ticksPerSecond <= 0 {
		return nil, fmt.Errorf("invalid clock tick rate %v", ticksPerSecond)
	}
	idle, err := read()
	if err != nil {
		return nil, fmt.Errorf("read %s baseline: %w", source, err)
	}
	return &rateBackend{
		read:           read,
		ticksPerSecond: ticksPerSecond,
		clock:          opts.Clock,
		logger:         opts.Logger,
		source:         source,
		prevIdle:       idle,
		prevTime:       opts.Clock.Now(),
	}, nil
}

// Load returns the per-core load since the previous non-empty sample. A
// failed read yields an empty sample and keeps the baseline; only a change in
// core count is returned, and it sticks.
func (b *rateBackend) Load() (collectors.Sample, error) {
	if b.fatal != nil {
		return nil, b.fatal
	}
	idle, err := b.read()
	if err != nil {
		if errors.Is(err, collectors.ErrCoreCountChanged) {
			b.fatal = err
			return nil, err
		}
		b.logger.WithFields(logrus.Fields{
			"source": b.source,
			"error":  err,
		}).Debug("Idle read failed, skipping sample")
		return nil, nil
	}

	now := b.clock.Now()
	elapsed := now.Sub(b.prevTime)
	if elapsed <= MinInterval {
		b.logger.WithFields(logrus.Fields{
			"source":  b.source,
			"elapsed": elapsed,
		}).Debug("Sample requested too soon, skipping")
		return nil, nil
	}

	seconds := elapsed.Seconds()
	load := make(collectors.Sample, len(idle))
	for i, cur := range idle {
		var prev uint64
		if i < len(b.prevIdle) {
			prev = b.prevIdle[i]
		}
		idleDiff := float64(cur) - float64(prev)
		load[i] = 1.0 - idleDiff/b.ticksPerSecond/seconds
	}
	b.prevIdle = idle
	b.prevTime = now
	return load, nil
}

// Close is a no-op; the backend holds no OS handles between calls.
func (b *rateBackend) Close() error {
	return nil
}
