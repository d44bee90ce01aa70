package crosscheck

import (
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/danpilch/devmon/pkg/clock"
	"github.com/danpilch/devmon/pkg/collectors"
	"github.com/danpilch/devmon/pkg/collectors/cpu"
	"github.com/danpilch/devmon/pkg/collectors/memory"
)

// DefaultGroups returns the CPU and swap groups available on this platform:
// every CPU backend, and the memory backend plus any platform reading. RAM is
// left out of the comparison because sysinfo(2) has no MemAvailable figure;
// it is still bounds checked.
func DefaultGroups(clk clock.Clock, logger *logrus.Logger) []Group {
	opts := cpu.Options{Clock: clk, Logger: logger}

	cpuGroup := Group{Metric: "CPU Utilization", Kind: collectors.KindCPU}
	if n, err := cpu.CoreCount(); err == nil && runtime.GOOS == "linux" {
		cpuGroup.Candidates = append(cpuGroup.Candidates, Candidate{
			Name: "procstat",
			Source: collectors.NewCounter("procstat", collectors.KindCPU, n, func() (collectors.Backend, error) {
				return cpu.NewProcStat(opts)
			}, collectors.WithLogger(logger)),
		})
	}
	if n, err := cpu.PortableCoreCount(); err == nil {
		cpuGroup.Candidates = append(cpuGroup.Candidates, Candidate{
			Name: "gopsutil",
			Source: collectors.NewCounter("gopsutil", collectors.KindCPU, n, func() (collectors.Backend, error) {
				return cpu.NewPortable(opts)
			}, collectors.WithLogger(logger)),
		})
	}

	memGroup := Group{
		Metric:   "Swap Utilization",
		Kind:     collectors.KindMemory,
		SubUnits: []int{memory.Swap},
		Candidates: []Candidate{{
			Name: "gopsutil",
			Source: collectors.NewCounter("gopsutil", collectors.KindMemory, memory.SubUnits, func() (collectors.Backend, error) {
				return memory.New(memory.Options{Logger: logger})
			}, collectors.WithLogger(logger)),
		}},
	}
	if src, err := platformMemorySource(); err == nil {
		memGroup.Fixed = append(memGroup.Fixed, src)
	} else {
		logger.WithError(err).Debug("No platform memory reading")
	}

	return []Group{cpuGroup, memGroup}
}
