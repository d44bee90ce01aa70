package cpu

import (
	"fmt"

	gopsutilcpu "github.com/shirou/gopsutil/v3/cpu"

	"github.com/danpilch/devmon/pkg/collectors"
)

// portableTicksPerSecond converts gopsutil's idle seconds into integer
// microsecond ticks.
const portableTicksPerSecond = 1e6

// NewPortable builds a backend on gopsutil per-CPU times. It works on every
// platform gopsutil supports and applies the same rate rule as the /proc/stat
// backend.
func NewPortable(opts Options) (collectors.Backend, error) {
	opts = opts.withDefaults()

	nCores, err := gopsutilcpu.Counts(true)
	if err != nil {
		return nil, fmt.Errorf("logical core count: %w", err)
	}

	opts.Logger.WithField("cores", nCores).Debug("Opening gopsutil CPU backend")

	backend, err := newRateBackend("gopsutil", func() ([]uint64, error) {
		return readPortableIdle(nCores)
	}, portableTicksPerSecond, opts)
	if err != nil {
		return nil, err
	}
	return backend, nil
}

func readPortableIdle(nCores int) ([]uint64, error) {
	times, err := gopsutilcpu.Times(true)
	if err != nil {
		return nil, err
	}
	if len(times) > nCores {
		return nil, fmt.Errorf("%d cores reported, %d recorded at startup: %w",
			len(times), nCores, collectors.ErrCoreCountChanged)
	}
	return idleFromTimes(times, nCores), nil
}

func idleFromTimes(times []gopsutilcpu.TimesStat, nCores int) []uint64 {
	idle := make([]uint64, nCores)
	for i, t := range times {
		idle[i] = uint64((t.Idle + t.Iowait) * portableTicksPerSecond)
	}
	return idle
}

// PortableCoreCount returns the sub-unit count of a NewPortable backend.
func PortableCoreCount() (int, error) {
	return gopsutilcpu.Counts(true)
}
