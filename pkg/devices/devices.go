// Package devices builds the performance counters described by a config.
package devices

import (
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/danpilch/devmon/pkg/clock"
	"github.com/danpilch/devmon/pkg/collectors"
	"github.com/danpilch/devmon/pkg/collectors/cpu"
	"github.com/danpilch/devmon/pkg/collectors/gpu"
	"github.com/danpilch/devmon/pkg/collectors/memory"
	"github.com/danpilch/devmon/pkg/config"
)

// Counter names.
const (
	NameCPU    = "CPU"
	NameGPU    = "GPU"
	NameMemory = "Memory"
)

// Build registers one counter per configured device. Backends are not opened
// here; a device whose sub-unit count cannot be determined gets a null
// counter so the rest of the pipeline keeps running.
func Build(cfg *config.Config, clk clock.Clock, logger *logrus.Logger) (*collectors.Registry, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}
	if clk == nil {
		clk = clock.Real()
	}

	registry := collectors.NewRegistry()
	for _, device := range cfg.Devices {
		var (
			counter *collectors.Counter
			err     error
		)
		switch device {
		case config.DeviceCPU:
			counter, err = newCPUCounter(cfg.CPU, clk, logger)
		case config.DeviceGPU:
			counter, err = newGPUCounter(cfg.GPU, clk, logger)
		case config.DeviceMemory:
			counter = collectors.NewCounter(NameMemory, collectors.KindMemory, memory.SubUnits, func() (collectors.Backend, error) {
				return memory.New(memory.Options{Logger: logger})
			}, collectors.WithLogger(logger))
		default:
			err = fmt.Errorf("unknown device %q", device)
		}
		if err != nil {
			registry.Close()
			return nil, err
		}
		registry.Register(counter)
	}
	return registry, nil
}

func newCPUCounter(cfg config.CPUConfig, clk clock.Clock, logger *logrus.Logger) (*collectors.Counter, error) {
	opts := cpu.Options{StatPath: cfg.StatPath, Clock: clk, Logger: logger}

	var (
		factory collectors.Factory
		count   func() (int, error)
	)
	switch cfg.Backend {
	case config.CPUBackendProcStat:
		factory = func() (collectors.Backend, error) { return cpu.NewProcStat(opts) }
		count = cpu.CoreCount
	case config.CPUBackendPortable:
		factory = func() (collectors.Backend, error) { return cpu.NewPortable(opts) }
		count = cpu.PortableCoreCount
	case config.CPUBackendAuto, "":
		factory = func() (collectors.Backend, error) { return cpu.New(opts) }
		count = cpu.CoreCount
	default:
		return nil, fmt.Errorf("unknown cpu backend %q", cfg.Backend)
	}

	cores, err := count()
	if err != nil {
		logger.WithError(err).Warn("Cannot determine core count, CPU counter disabled")
		return collectors.NewCounter(NameCPU, collectors.KindNull, 1, collectors.NullFactory,
			collectors.WithLogger(logger)), nil
	}
	return collectors.NewCounter(NameCPU, collectors.KindCPU, cores, factory, collectors.WithLogger(logger)), nil
}

func newGPUCounter(cfg config.GPUConfig, clk clock.Clock, logger *logrus.Logger) (*collectors.Counter, error) {
	vendor, err := gpu.ParseVendor(cfg.Vendor)
	if err != nil {
		return nil, err
	}
	opts := gpu.Options{
		SubUnits:    cfg.SubUnits,
		Vendor:      vendor,
		MinInterval: cfg.MinInterval,
		Clock:       clk,
		Logger:      logger,
	}
	if cfg.SysfsRoot != "" {
		src := gpu.SysfsSource(filepath.Clean(cfg.SysfsRoot))
		opts.Source = &src
	}

	adapters, err := gpu.SubUnitCount(opts)
	if err != nil {
		logger.WithError(err).Warn("No GPU adapters available, GPU counter disabled")
		return collectors.NewCounter(NameGPU, collectors.KindNull, 1, collectors.NullFactory,
			collectors.WithLogger(logger)), nil
	}
	return collectors.NewCounter(NameGPU, collectors.KindGPU, adapters, func() (collectors.Backend, error) {
		return gpu.New(opts)
	}, collectors.WithLogger(logger)), nil
}
