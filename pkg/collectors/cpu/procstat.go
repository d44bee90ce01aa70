package cpu

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/danpilch/devmon/pkg/collectors"
)

// readIdleFile reads per-core idle ticks from a /proc/stat formatted file.
func readIdleFile(path string, nCores int) ([]uint64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return parseIdle(file, nCores)
}

// parseIdle extracts idle + iowait ticks for every "cpuN" line:
//
//	cpuN user nice system idle iowait irq softirq steal ...
//
// The aggregate "cpu" line and lines with fewer than five counters are
// skipped. Cores missing from the input keep zero. A core id at or beyond
// nCores means the topology changed since startup.
func parseIdle(r io.Reader, nCores int) ([]uint64, error) {
	idle := make([]uint64, nCores)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 6 || !strings.HasPrefix(fields[0], "cpu") {
			continue
		}
		coreID, err := strconv.ParseUint(strings.TrimPrefix(fields[0], "cpu"), 10, 64)
		if err != nil {
			continue
		}

		values, ok := parseCounters(fields[1:6])
		if !ok {
			continue
		}
		if coreID >= uint64(nCores) {
			return nil, fmt.Errorf("core %d seen, %d recorded at startup: %w",
				coreID, nCores, collectors.ErrCoreCountChanged)
		}
		// values: 0=user 1=nice 2=system 3=idle 4=iowait
		idle[coreID] = values[3] + values[4]
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return idle, nil
}

func parseCounters(fields []string) ([]uint64, bool) {
	values := make([]uint64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return nil, false
		}
		values[i] = v
	}
	return values, true
}
