// Package monitor aggregates per-sub-unit device load samples into a running
// mean and a bounded history window.
package monitor

import "github.com/danpilch/devmon/pkg/collectors"

// LoadSource is the capability a DeviceMonitor samples. *collectors.Counter
// satisfies it.
type LoadSource interface {
	Load() (collectors.Sample, error)
	SubUnits() int
}

type namedSource interface {
	Name() string
}

// DeviceMonitor keeps a sliding window of samples and a running sum per
// sub-unit. It is not safe for concurrent use.
//
// With a history size above one the sum accumulates every sample collected
// since construction, so the mean covers all samples and not only the ones
// still in the window. With a history size of one or less the sum holds the
// last sample only.
type DeviceMonitor struct {
	source      LoadSource
	historySize int
	samples     int
	sum         []float64
	history     [][]float64
}

// New creates a monitor over source. A history size of zero disables
// collection, one tracks the last value only, more keeps a window.
func New(source LoadSource, historySize int) *DeviceMonitor {
	if historySize < 0 {
		historySize = 0
	}
	n := 1
	if source != nil && source.SubUnits() > 0 {
		n = source.SubUnits()
	}
	return &DeviceMonitor{
		source:      source,
		historySize: historySize,
		sum:         make([]float64, n),
	}
}

// Name returns the source's device name when it has one.
func (m *DeviceMonitor) Name() string {
	if ns, ok := m.source.(namedSource); ok {
		return ns.Name()
	}
	return ""
}

// SubUnits returns the number of values in each mean.
func (m *DeviceMonitor) SubUnits() int {
	return len(m.sum)
}

// HistorySize returns the window capacity.
func (m *DeviceMonitor) HistorySize() int {
	return m.historySize
}

// SamplesNumber returns the count of successful collections.
func (m *DeviceMonitor) SamplesNumber() int {
	return m.samples
}

// SetHistorySize sets the window capacity to max(size, 1) and drops the
// oldest entries so at most size remain. The running sum is left as is.
func (m *DeviceMonitor) SetHistorySize(size int) {
	if size < 0 {
		size = 0
	}
	m.historySize = max(size, 1)
	keep := min(size, len(m.history))
	drop := len(m.history) - keep
	if drop > 0 {
		clear(m.history[:drop])
		m.history = m.history[drop:]
	}
}

// CollectData polls the source once. An empty sample changes nothing. Source
// errors are returned without touching any state.
func (m *DeviceMonitor) CollectData() error {
	if m.source == nil || m.historySize == 0 {
		return nil
	}
	load, err := m.source.Load()
	if err != nil {
		return err
	}
	if len(load) == 0 {
		return nil
	}

	n := min(len(load), len(m.sum))
	for i := 0; i < n; i++ {
		if m.historySize > 1 {
			m.sum[i] += load[i]
		} else {
			m.sum[i] = load[i]
		}
	}
	m.samples++

	m.history = append(m.history, append([]float64(nil), load...))
	if len(m.history) > m.historySize {
		m.history[0] = nil
		m.history = m.history[1:]
	}
	return nil
}

// LastHistory returns a copy of the window, oldest first.
func (m *DeviceMonitor) LastHistory() [][]float64 {
	out := make([][]float64, len(m.history))
	for i, s := range m.history {
		out[i] = append([]float64(nil), s...)
	}
	return out
}

// MeanDeviceLoad returns the mean load per sub-unit, or the last load when
// the history size is one or less. All zeros before the first sample.
func (m *DeviceMonitor) MeanDeviceLoad() []float64 {
	mean := make([]float64, len(m.sum))
	if m.samples == 0 {
		return mean
	}
	for i, s := range m.sum {
		if m.historySize > 1 {
			mean[i] = s / float64(m.samples)
		} else {
			mean[i] = s
		}
	}
	return mean
}
