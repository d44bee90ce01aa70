package output

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpilch/devmon/pkg/clock"
	"github.com/danpilch/devmon/pkg/collectors"
)

// scriptedSource replays samples; the last one repeats.
type scriptedSource struct {
	name     string
	subUnits int
	samples  []collectors.Sample
	err      error
	calls    int
}

func (s *scriptedSource) Name() string  { return s.name }
func (s *scriptedSource) SubUnits() int { return s.subUnits }

func (s *scriptedSource) Load() (collectors.Sample, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	sample := s.samples[0]
	if len(s.samples) > 1 {
		s.samples = s.samples[1:]
	}
	return sample, nil
}

func TestParseKeys(t *testing.T) {
	tests := []struct {
		keys    string
		want    []MonitorType
		wantErr error
	}{
		{"", []MonitorType{}, nil},
		{"h", nil, nil},
		{"cdm", []MonitorType{CPUAverage, DistributionCPU, Memory}, nil},
		{"GmgC", []MonitorType{CPUAverage, Memory, GPU}, nil},
		{"ch", nil, ErrHideCombination},
		{"hh", nil, ErrHideCombination},
		{"cx", nil, ErrUnknownMonitorKey},
	}
	for _, test := range tests {
		t.Run(test.keys, func(t *testing.T) {
			got, err := ParseKeys(test.keys)
			if test.wantErr != nil {
				assert.ErrorIs(t, err, test.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.want, got)
		})
	}
}

func newTestPresenter(clk clock.Clock, cpu, mem, gpu *scriptedSource, enabled ...MonitorType) *Presenter {
	cfg := PresenterConfig{Enabled: enabled, HistorySize: 10, Clock: clk}
	if cpu != nil {
		cfg.CPU = cpu
	}
	if mem != nil {
		cfg.Memory = mem
	}
	if gpu != nil {
		cfg.GPU = gpu
	}
	return NewPresenter(cfg)
}

func TestHandleKey(t *testing.T) {
	p := newTestPresenter(clock.Fake(time.Now()), nil, nil, nil, CPUAverage)

	p.HandleKey('m')
	assert.True(t, p.Enabled(Memory))
	p.HandleKey('C')
	assert.False(t, p.Enabled(CPUAverage))
	p.HandleKey('z')

	p.HandleKey('h')
	for _, m := range []MonitorType{CPUAverage, DistributionCPU, Memory, GPU} {
		assert.False(t, p.Enabled(m), m.String())
	}
	p.HandleKey('H')
	for _, m := range []MonitorType{CPUAverage, DistributionCPU, Memory, GPU} {
		assert.True(t, p.Enabled(m), m.String())
	}
}

func TestHandleKeyResizesWindows(t *testing.T) {
	cpu := &scriptedSource{name: "CPU", subUnits: 1, samples: []collectors.Sample{{0.5}}}
	mem := &scriptedSource{name: "Memory", subUnits: 2, samples: []collectors.Sample{{0.5, 0}}}
	p := newTestPresenter(clock.Fake(time.Now()), cpu, mem, nil, CPUAverage, DistributionCPU)

	assert.Equal(t, 10, p.cpu.HistorySize())
	assert.Zero(t, p.memory.HistorySize(), "never shown")

	// per-core view off, distribution still on: mean-only window
	p.HandleKey('c')
	assert.Equal(t, 1, p.cpu.HistorySize())
	assert.True(t, p.active(p.cpu))

	p.HandleKey('d')
	assert.Equal(t, 1, p.cpu.HistorySize())
	assert.False(t, p.active(p.cpu))

	p.HandleKey('c')
	assert.Equal(t, 10, p.cpu.HistorySize())

	p.HandleKey('m')
	assert.Equal(t, 10, p.memory.HistorySize())

	p.HandleKey('h')
	assert.Equal(t, 1, p.cpu.HistorySize())
	assert.Equal(t, 1, p.memory.HistorySize())
	assert.False(t, p.active(p.cpu))
	assert.False(t, p.active(p.memory))

	p.HandleKey('h')
	assert.Equal(t, 10, p.cpu.HistorySize())
	assert.Equal(t, 10, p.memory.HistorySize())
}

func TestDistributionOnlyReportsLastSample(t *testing.T) {
	clk := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	cpu := &scriptedSource{name: "CPU", subUnits: 2, samples: []collectors.Sample{{0.2, 0.4}, {0.6, 0.8}}}
	p := newTestPresenter(clk, cpu, nil, nil, DistributionCPU)
	require.Equal(t, 1, p.cpu.HistorySize())

	p.Collect()
	clk.Advance(time.Second)
	p.Collect()

	assert.Equal(t, 2, cpu.calls)
	assert.Len(t, p.cpu.LastHistory(), 1)
	assert.Equal(t, []string{
		"Resources usage:",
		"\tMean CPU utilization: 70.0%",
	}, p.ReportMeans())
}

func TestHidingDropsHistory(t *testing.T) {
	clk := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	gpu := &scriptedSource{name: "GPU", subUnits: 1, samples: []collectors.Sample{{0.3}}}
	p := newTestPresenter(clk, nil, nil, gpu, GPU)

	p.Collect()
	clk.Advance(time.Second)
	p.Collect()
	require.Len(t, p.gpu.LastHistory(), 2)

	p.HandleKey('g')
	assert.Empty(t, p.gpu.LastHistory())

	clk.Advance(time.Second)
	p.Collect()
	assert.Equal(t, 2, gpu.calls)
}

func TestCollectIsThrottled(t *testing.T) {
	clk := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	cpu := &scriptedSource{name: "CPU", subUnits: 1, samples: []collectors.Sample{{0.5}}}
	p := newTestPresenter(clk, cpu, nil, nil, CPUAverage, DistributionCPU)

	p.Collect()
	p.Collect()
	assert.Equal(t, 1, cpu.calls, "one CPU poll serves both CPU views")

	clk.Advance(999 * time.Millisecond)
	p.Collect()
	assert.Equal(t, 1, cpu.calls)

	clk.Advance(time.Millisecond)
	p.Collect()
	assert.Equal(t, 2, cpu.calls)
}

func TestCollectSkipsHiddenMonitors(t *testing.T) {
	clk := clock.Fake(time.Now())
	cpu := &scriptedSource{name: "CPU", subUnits: 1, samples: []collectors.Sample{{0.5}}}
	mem := &scriptedSource{name: "Memory", subUnits: 2, samples: []collectors.Sample{{0.5, 0}}}
	p := newTestPresenter(clk, cpu, mem, nil, Memory)

	p.Collect()
	assert.Zero(t, cpu.calls)
	assert.Equal(t, 1, mem.calls)
}

func TestCollectErrorDisablesMonitor(t *testing.T) {
	clk := clock.Fake(time.Now())
	cpu := &scriptedSource{name: "CPU", subUnits: 1, err: collectors.ErrCoreCountChanged}
	gpu := &scriptedSource{name: "GPU", subUnits: 1, samples: []collectors.Sample{{0.1}}}
	p := newTestPresenter(clk, cpu, nil, gpu, CPUAverage, DistributionCPU, GPU)

	p.Collect()
	assert.False(t, p.Enabled(CPUAverage))
	assert.False(t, p.Enabled(DistributionCPU))
	assert.True(t, p.Enabled(GPU))

	clk.Advance(time.Second)
	p.Collect()
	assert.Equal(t, 1, cpu.calls)
	assert.Equal(t, 2, gpu.calls)
}

func TestReportMeans(t *testing.T) {
	clk := clock.Fake(time.Now())
	cpu := &scriptedSource{name: "CPU", subUnits: 2, samples: []collectors.Sample{{0.5, 0.25}, {0.7, 0.35}}}
	mem := &scriptedSource{name: "Memory", subUnits: 2, samples: []collectors.Sample{{0.5, 0.1}}}
	gpu := &scriptedSource{name: "GPU", subUnits: 1, samples: []collectors.Sample{{1.2}}}
	p := newTestPresenter(clk, cpu, mem, gpu, CPUAverage, DistributionCPU, Memory, GPU)

	p.Collect()
	clk.Advance(time.Second)
	p.Collect()

	assert.Equal(t, []string{
		"Resources usage:",
		"\tMean core utilization: 60.0% 30.0%",
		"\tMean CPU utilization: 45.0%",
		"\tMemory mean usage: 50.0%",
		"\tSwap mean usage: 10.0%",
		"\tMean GPU utilization: 120.0%",
	}, p.ReportMeans())
}

func TestReportMeansNothingVisible(t *testing.T) {
	cpu := &scriptedSource{name: "CPU", subUnits: 1, samples: []collectors.Sample{{0.5}}}
	p := newTestPresenter(clock.Fake(time.Now()), cpu, nil, nil)
	assert.Nil(t, p.ReportMeans())

	// Views without a source are not reported.
	p.HandleKey('g')
	assert.Nil(t, p.ReportMeans())
}

func TestView(t *testing.T) {
	clk := clock.Fake(time.Now())
	cpu := &scriptedSource{name: "CPU", subUnits: 2, samples: []collectors.Sample{{0.2, 0.9}}}
	p := newTestPresenter(clk, cpu, nil, nil, CPUAverage, DistributionCPU)
	p.Collect()

	view := p.View()
	assert.Contains(t, view, "core0")
	assert.Contains(t, view, "core1")
	assert.Contains(t, view, "90.0%")
	assert.Contains(t, view, "55.0%")

	p.HandleKey('h')
	assert.Contains(t, p.View(), "all monitors hidden")
}

func TestMonitorTypeString(t *testing.T) {
	assert.Equal(t, "gpu", GPU.String())
	assert.Equal(t, "MonitorType(9)", MonitorType(9).String())
}
