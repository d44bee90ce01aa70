// Package memory samples physical memory and swap usage.
package memory

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sirupsen/logrus"

	"github.com/danpilch/devmon/pkg/collectors"
)

// Sub-unit layout of a memory sample.
const (
	RAM = iota
	Swap

	SubUnits = 2
)

// Options configures the memory backend.
type Options struct {
	Logger *logrus.Logger
}

type statReader func() (*mem.VirtualMemoryStat, *mem.SwapMemoryStat, error)

func readStats() (*mem.VirtualMemoryStat, *mem.SwapMemoryStat, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return nil, nil, fmt.Errorf("virtual memory: %w", err)
	}
	sw, err := mem.SwapMemory()
	if err != nil {
		return nil, nil, fmt.Errorf("swap memory: %w", err)
	}
	return vm, sw, nil
}

// Collector reports [ram used fraction, swap used fraction].
type Collector struct {
	read   statReader
	logger *logrus.Logger
}

// New builds the memory backend and checks that the statistics are readable.
func New(opts Options) (collectors.Backend, error) {
	c, err := newCollector(readStats, opts)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func newCollector(read statReader, opts Options) (*Collector, error) {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
		opts.Logger.SetLevel(logrus.WarnLevel)
	}
	if _, _, err := read(); err != nil {
		return nil, err
	}
	return &Collector{read: read, logger: opts.Logger}, nil
}

// Load reads current usage. Memory is not a rate, so every call yields a
// sample.
func (c *Collector) Load() (collectors.Sample, error) {
	vm, sw, err := c.read()
	if err != nil {
		return nil, err
	}
	sample := make(collectors.Sample, SubUnits)
	sample[RAM] = ramUsage(vm)
	sample[Swap] = swapUsage(sw)

	c.logger.WithFields(logrus.Fields{
		"total":     vm.Total,
		"available": vm.Available,
		"swapTotal": sw.Total,
	}).Trace("Memory sample")
	return sample, nil
}

func (c *Collector) Close() error { return nil }

// ramUsage counts reclaimable cache as free: used = total - available.
func ramUsage(vm *mem.VirtualMemoryStat) float64 {
	if vm.Total == 0 {
		return 0
	}
	available := vm.Available
	if available == 0 {
		available = vm.Free + vm.Buffers + vm.Cached
	}
	if available > vm.Total {
		return 0
	}
	return float64(vm.Total-available) / float64(vm.Total)
}

func swapUsage(sw *mem.SwapMemoryStat) float64 {
	if sw.Total == 0 {
		return 0
	}
	return float64(sw.Used) / float64(sw.Total)
}
