//go:build !linux

package cpu

import (
	"fmt"

	gopsutilcpu "github.com/shirou/gopsutil/v3/cpu"

	"github.com/danpilch/devmon/pkg/collectors"
)

// CoreCount returns the number of logical cores.
func CoreCount() (int, error) {
	return gopsutilcpu.Counts(true)
}

// New returns the gopsutil backend; /proc/stat is Linux only.
func New(opts Options) (collectors.Backend, error) {
	return NewPortable(opts)
}

// NewProcStat is unavailable off Linux.
func NewProcStat(opts Options) (collectors.Backend, error) {
	return nil, fmt.Errorf("/proc/stat backend: %w", collectors.ErrUnsupported)
}
