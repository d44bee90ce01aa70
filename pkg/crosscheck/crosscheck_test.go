package crosscheck

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpilch/devmon/pkg/clock"
	"github.com/danpilch/devmon/pkg/collectors"
)

type constSource struct {
	sample collectors.Sample
	err    error
	calls  int
}

func (s *constSource) SubUnits() int { return len(s.sample) }

func (s *constSource) Load() (collectors.Sample, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	// The first call establishes a baseline, like a rate backend.
	if s.calls == 1 {
		return nil, nil
	}
	return s.sample, nil
}

func TestCrossCheck(t *testing.T) {
	v := NewValidator()
	tests := []struct {
		name      string
		values    []float64
		consensus float64
		status    ValidationStatus
	}{
		{"single source", []float64{0.4}, 0.4, StatusValid},
		{"close", []float64{0.40, 0.42}, 0.41, StatusValid},
		{"suspect", []float64{0.30, 0.44}, 0.37, StatusSuspect},
		{"conflict", []float64{0.10, 0.20, 0.90}, 0.20, StatusConflict},
		{"near zero stays valid", []float64{0.001, 0.004}, 0.0025, StatusValid},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			sources := make([]Source, len(test.values))
			for i, val := range test.values {
				sources[i] = Source{Name: "s", Value: val}
			}
			r := v.CrossCheck("CPU", sources)
			assert.InDelta(t, test.consensus, r.Consensus, 1e-9)
			assert.Equal(t, test.status, r.Status)
		})
	}

	assert.Equal(t, StatusValid, v.CrossCheck("empty", nil).Status)
}

func TestRunSanityChecks(t *testing.T) {
	cpu := RunSanityChecks("procstat", collectors.KindCPU, []float64{0.5, -0.01, -0.2, 1.5})
	require.Len(t, cpu, 4)
	assert.True(t, cpu[0].Passed)
	assert.True(t, cpu[1].Passed, "tick rounding is tolerated")
	assert.False(t, cpu[2].Passed)
	assert.False(t, cpu[3].Passed)
	assert.Equal(t, "procstat cpu[3]", cpu[3].Check)

	gpu := RunSanityChecks("pdh", collectors.KindGPU, []float64{1.7})
	require.Len(t, gpu, 1)
	assert.True(t, gpu[0].Passed)
	assert.Contains(t, gpu[0].Details, "summed over engines")
}

func TestRun(t *testing.T) {
	clk := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	a := &constSource{sample: collectors.Sample{0.2, 0.4}}
	b := &constSource{sample: collectors.Sample{0.4, 0.6}}
	broken := &constSource{err: errors.New("no backend")}

	groups := []Group{
		{
			Metric: "CPU Utilization",
			Kind:   collectors.KindCPU,
			Candidates: []Candidate{
				{Name: "a", Source: a},
				{Name: "b", Source: b},
				{Name: "broken", Source: broken},
			},
		},
		{
			Metric: "Memory Utilization",
			Kind:   collectors.KindMemory,
			Fixed:  []Source{{Name: "fixed", Value: 0.5, Samples: 1}},
		},
	}
	validations, sanity := Run(groups, Options{Samples: 3, Interval: time.Second, Clock: clk})

	assert.Equal(t, 4, a.calls)
	assert.Equal(t, 1, broken.calls, "failed sources are not polled again")
	assert.Equal(t, []time.Duration{time.Second, time.Second, time.Second}, clk.Sleeps())

	require.Len(t, validations, 2)
	cpu := validations[0]
	require.Len(t, cpu.Sources, 2)
	assert.Equal(t, "a", cpu.Sources[0].Name)
	assert.Equal(t, 3, cpu.Sources[0].Samples)
	assert.InDelta(t, 0.3, cpu.Sources[0].Value, 1e-9)
	assert.Equal(t, "0.200 0.400", cpu.Sources[0].RawData)
	assert.InDelta(t, 0.4, cpu.Consensus, 1e-9)
	assert.Equal(t, StatusSuspect, cpu.Status)

	assert.Equal(t, "Memory Utilization", validations[1].Metric)
	assert.InDelta(t, 0.5, validations[1].Consensus, 1e-9)

	assert.Len(t, sanity, 4)
}

func TestRunComparesSelectedSubUnits(t *testing.T) {
	clk := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	// cache-heavy RAM figure disagrees; swap agrees with the fixed reading
	mem := &constSource{sample: collectors.Sample{0.9, 0.1}}

	groups := []Group{{
		Metric:     "Swap Utilization",
		Kind:       collectors.KindMemory,
		Candidates: []Candidate{{Name: "gopsutil", Source: mem}},
		Fixed:      []Source{{Name: "sysinfo", Value: 0.12, Samples: 1}},
		SubUnits:   []int{1},
	}}
	validations, sanity := Run(groups, Options{Samples: 2, Clock: clk})

	require.Len(t, validations, 1)
	v := validations[0]
	require.Len(t, v.Sources, 2)
	assert.InDelta(t, 0.1, v.Sources[1].Value, 1e-9)
	assert.Equal(t, "0.900 0.100", v.Sources[1].RawData)
	assert.Equal(t, StatusValid, v.Status)
	assert.Len(t, sanity, 2, "every sub-unit is still bounds checked")
}

func TestPick(t *testing.T) {
	values := []float64{0.1, 0.2, 0.3}
	assert.Equal(t, values, pick(values, nil))
	assert.Equal(t, []float64{0.3, 0.1}, pick(values, []int{2, 0}))
	assert.Equal(t, []float64{0.2}, pick(values, []int{1, 7, -1}))
}

func TestReport(t *testing.T) {
	validations := []ValidationResult{NewValidator().CrossCheck("CPU Utilization", []Source{
		{Name: "procstat", Value: 0.25},
		{Name: "gopsutil", Value: 0.26},
	})}
	sanity := []SanityResult{
		{Check: "procstat cpu[0]", Passed: true},
		{Check: "procstat cpu[1]", Passed: false, Details: "negative load"},
	}

	var buf bytes.Buffer
	Report(&buf, "host-1", validations, sanity)
	out := buf.String()
	assert.Contains(t, out, "Cross-Check Validation Report (host-1)")
	assert.Contains(t, out, "procstat=25.0%")
	assert.Contains(t, out, "1 of 2 sanity checks failed.")

	buf.Reset()
	require.NoError(t, ReportJSON(&buf, "host-1", validations, sanity))
	var decoded struct {
		Host        string             `json:"host"`
		Validations []ValidationResult `json:"validations"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "host-1", decoded.Host)
	assert.Equal(t, StatusValid, decoded.Validations[0].Status)
}
