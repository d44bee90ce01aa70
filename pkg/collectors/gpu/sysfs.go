package gpu

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/danpilch/devmon/pkg/collectors"
)

// DRM sysfs layout, relative to the sysfs root.
const (
	drmClassDir      = "class/drm"
	busyPercentGroup = "class/drm/card%d/device/gpu_busy_percent"
)

var cardNamePattern = regexp.MustCompile(`^card(\d+)$`)

var errInvalidHandle = errors.New("invalid counter handle")

// SysfsSource returns a source reading DRM gpu_busy_percent files under
// root (normally /sys). Each card is one adapter with a single engine group.
func SysfsSource(root string) Source {
	return Source{
		Name: "sysfs",
		Open: func() (Query, error) {
			return newSysfsQuery(), nil
		},
		Groups: []EngineGroup{{
			Name:    "busy",
			Pattern: filepath.Join(root, busyPercentGroup),
		}},
		Adapters: func() ([]Adapter, error) {
			return listSysfsAdapters(root)
		},
	}
}

// sysfsQuery implements Query over plain files holding a percentage.
type sysfsQuery struct {
	paths  []string
	values []float64
	errs   []error
	closed bool
}

func newSysfsQuery() *sysfsQuery {
	return &sysfsQuery{}
}

func (q *sysfsQuery) Expand(pattern string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

func (q *sysfsQuery) Add(path string) (CounterHandle, error) {
	if q.closed {
		return 0, errors.New("query closed")
	}
	if _, err := os.Stat(path); err != nil {
		return 0, err
	}
	q.paths = append(q.paths, path)
	q.values = append(q.values, 0)
	q.errs = append(q.errs, errNotCollected)
	return CounterHandle(len(q.paths) - 1), nil
}

var errNotCollected = fmt.Errorf("%w: no data collected yet", collectors.ErrTransientCounter)

func (q *sysfsQuery) Collect() error {
	if q.closed {
		return errors.New("query closed")
	}
	for i, path := range q.paths {
		v, err := readPercent(path)
		if err != nil {
			// Cards can vanish or be runtime-suspended between reads.
			q.errs[i] = fmt.Errorf("%w: %w", collectors.ErrTransientCounter, err)
			continue
		}
		q.values[i] = v / 100
		q.errs[i] = nil
	}
	return nil
}

func (q *sysfsQuery) Value(h CounterHandle) (float64, error) {
	i := int(h)
	if q.closed || i < 0 || i >= len(q.paths) {
		return 0, fmt.Errorf("%w %d", errInvalidHandle, h)
	}
	if q.errs[i] != nil {
		return 0, q.errs[i]
	}
	return q.values[i], nil
}

func (q *sysfsQuery) Close() error {
	q.closed = true
	q.paths, q.values, q.errs = nil, nil, nil
	return nil
}

func readPercent(path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
}

// listSysfsAdapters enumerates root/class/drm/cardN entries. Connector
// entries such as card0-DP-1 are skipped.
func listSysfsAdapters(root string) ([]Adapter, error) {
	entries, err := os.ReadDir(filepath.Join(root, drmClassDir))
	if err != nil {
		return nil, err
	}

	var adapters []Adapter
	for _, e := range entries {
		m := cardNamePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		index, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		device := filepath.Join(root, drmClassDir, e.Name(), "device")
		adapters = append(adapters, Adapter{
			Index:    index,
			Name:     cardDisplayName(e.Name(), device),
			VendorID: readVendor(device),
		})
	}
	sort.Slice(adapters, func(i, j int) bool {
		return adapters[i].Index < adapters[j].Index
	})
	return adapters, nil
}

func readVendor(device string) uint32 {
	data, err := os.ReadFile(filepath.Join(device, "vendor"))
	if err != nil {
		return 0
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(string(data)), "0x"), 16, 32)
	if err != nil {
		return 0
	}
	return uint32(v)
}

func cardDisplayName(card, device string) string {
	driver, err := os.Readlink(filepath.Join(device, "driver"))
	if err != nil {
		return card
	}
	return fmt.Sprintf("%s (%s)", card, filepath.Base(driver))
}
