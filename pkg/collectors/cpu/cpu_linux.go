//go:build linux

package cpu

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/tklauser/go-sysconf"
	"github.com/tklauser/numcpus"

	"github.com/danpilch/devmon/pkg/collectors"
)

// CoreCount returns the number of configured cores.
func CoreCount() (int, error) {
	return numcpus.GetConfigured()
}

// New returns the /proc/stat backend.
func New(opts Options) (collectors.Backend, error) {
	return NewProcStat(opts)
}

// NewProcStat builds a backend reading jiffies from /proc/stat. The core
// count and clock tick rate are fixed at construction.
func NewProcStat(opts Options) (collectors.Backend, error) {
	opts = opts.withDefaults()

	nCores, err := numcpus.GetConfigured()
	if err != nil {
		return nil, fmt.Errorf("configured core count: %w", err)
	}
	clockTicks, err := sysconf.Sysconf(sysconf.SC_CLK_TCK)
	if err != nil {
		return nil, fmt.Errorf("sysconf(SC_CLK_TCK): %w", err)
	}

	opts.Logger.WithFields(logrus.Fields{
		"cores":       nCores,
		"clock_ticks": clockTicks,
		"path":        opts.StatPath,
	}).Debug("Opening /proc/stat CPU backend")

	path := opts.StatPath
	backend, err := newRateBackend("/proc/stat", func() ([]uint64, error) {
		return readIdleFile(path, nCores)
	}, float64(clockTicks), opts)
	if err != nil {
		return nil, err
	}
	return backend, nil
}
