//go:build linux

package crosscheck

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// platformMemorySource reads swap usage from sysinfo(2). RAM goes into
// RawData only.
func platformMemorySource() (Source, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return Source{}, err
	}
	ram, swap, err := sysinfoUsage(info)
	if err != nil {
		return Source{}, err
	}
	return Source{
		Name:    "sysinfo",
		Value:   swap,
		Samples: 1,
		RawData: fmt.Sprintf("%.3f %.3f", ram, swap),
	}, nil
}

// sysinfoUsage returns RAM and swap used fractions. Buffers count as free;
// sysinfo has no page cache figure, so RAM reads higher than MemAvailable
// based figures on cache-heavy hosts.
func sysinfoUsage(info unix.Sysinfo_t) (ram, swap float64, err error) {
	unit := uint64(info.Unit)
	if unit == 0 {
		unit = 1
	}
	total := uint64(info.Totalram) * unit
	free := uint64(info.Freeram) * unit
	buffers := uint64(info.Bufferram) * unit
	if total == 0 {
		return 0, 0, errors.New("total RAM is 0")
	}
	if free+buffers <= total {
		ram = float64(total-free-buffers) / float64(total)
	}

	swapTotal := uint64(info.Totalswap) * unit
	if swapTotal > 0 {
		swapFree := uint64(info.Freeswap) * unit
		if swapFree <= swapTotal {
			swap = float64(swapTotal-swapFree) / float64(swapTotal)
		}
	}
	return ram, swap, nil
}
