package output

import (
	"fmt"

	"github.com/danpilch/devmon/pkg/collectors"
	"github.com/danpilch/devmon/pkg/monitor"
)

// DeviceReport is a point-in-time view of one device monitor.
type DeviceReport struct {
	Device   string          `json:"device"`
	Kind     collectors.Kind `json:"kind"`
	Samples  int             `json:"samples"`
	SubUnits []SubUnitReport `json:"sub_units"`

	// Mean is the average of the sub-unit means.
	Mean   float64 `json:"mean"`
	Status Status  `json:"status"`

	trend []float64
}

// SubUnitReport holds one core, adapter or memory pool.
type SubUnitReport struct {
	Label   string  `json:"label"`
	Current float64 `json:"current"`
	Mean    float64 `json:"mean"`

	trend []float64
}

// NewDeviceReport snapshots a monitor.
func NewDeviceReport(kind collectors.Kind, m *monitor.DeviceMonitor, thresholds Thresholds) DeviceReport {
	history := m.LastHistory()
	means := m.MeanDeviceLoad()

	var last []float64
	if len(history) > 0 {
		last = history[len(history)-1]
	}

	r := DeviceReport{
		Device:   m.Name(),
		Kind:     kind,
		Samples:  m.SamplesNumber(),
		SubUnits: make([]SubUnitReport, len(means)),
		Mean:     average(means),
		trend:    Trend(history),
	}
	for i, mean := range means {
		sub := SubUnitReport{
			Label: SubUnitLabel(kind, i),
			Mean:  mean,
			trend: Column(history, i),
		}
		if i < len(last) {
			sub.Current = last[i]
		}
		r.SubUnits[i] = sub
	}

	if r.Samples == 0 {
		r.Status = StatusUnknown
	} else {
		r.Status = thresholds.Evaluate(means)
	}
	return r
}

// SubUnitLabel names sub-unit i of a device kind.
func SubUnitLabel(kind collectors.Kind, i int) string {
	switch kind {
	case collectors.KindCPU:
		return fmt.Sprintf("core%d", i)
	case collectors.KindGPU:
		return fmt.Sprintf("gpu%d", i)
	case collectors.KindMemory:
		switch i {
		case 0:
			return "ram"
		case 1:
			return "swap"
		}
	}
	return fmt.Sprintf("%d", i)
}
