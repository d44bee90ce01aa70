package crosscheck

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/danpilch/devmon/pkg/clock"
	"github.com/danpilch/devmon/pkg/collectors"
	"github.com/danpilch/devmon/pkg/monitor"
)

// Candidate is one backend measuring a metric.
type Candidate struct {
	Name   string
	Source monitor.LoadSource
}

// Group is a metric measured by several candidates. Fixed holds readings
// taken once, outside the sampling loop. SubUnits picks the sub-units whose
// mean is compared; empty compares all of them.
type Group struct {
	Metric     string
	Kind       collectors.Kind
	Candidates []Candidate
	Fixed      []Source
	SubUnits   []int
}

// Options configures a cross-check run.
type Options struct {
	Samples  int
	Interval time.Duration
	Clock    clock.Clock
	Logger   *logrus.Logger
}

func (o Options) withDefaults() Options {
	if o.Samples < 1 {
		o.Samples = 5
	}
	if o.Interval <= 0 {
		o.Interval = time.Second
	}
	if o.Clock == nil {
		o.Clock = clock.Real()
	}
	if o.Logger == nil {
		o.Logger = logrus.New()
		o.Logger.SetLevel(logrus.WarnLevel)
	}
	return o
}

// Run samples every candidate of every group in lockstep, then cross-checks
// the mean loads and runs sanity checks on each candidate's sub-unit means.
func Run(groups []Group, opts Options) ([]ValidationResult, []SanityResult) {
	opts = opts.withDefaults()
	validator := NewValidator()

	type sampler struct {
		group   int
		name    string
		monitor *monitor.DeviceMonitor
		failed  bool
	}
	var samplers []*sampler
	for g, group := range groups {
		for _, c := range group.Candidates {
			samplers = append(samplers, &sampler{
				group:   g,
				name:    c.Name,
				monitor: monitor.New(c.Source, opts.Samples+1),
			})
		}
	}

	// One extra round: rate backends spend their first Load on a baseline.
	for round := 0; round <= opts.Samples; round++ {
		if round > 0 {
			opts.Clock.Sleep(opts.Interval)
		}
		for _, p := range samplers {
			if p.failed {
				continue
			}
			if err := p.monitor.CollectData(); err != nil {
				p.failed = true
				opts.Logger.WithFields(logrus.Fields{
					"metric": groups[p.group].Metric,
					"source": p.name,
					"error":  err,
				}).Warn("Cross-check source failed")
			}
		}
	}

	var (
		validations []ValidationResult
		sanity      []SanityResult
	)
	for g, group := range groups {
		sources := append([]Source(nil), group.Fixed...)
		for _, p := range samplers {
			if p.group != g || p.failed || p.monitor.SamplesNumber() == 0 {
				continue
			}
			means := p.monitor.MeanDeviceLoad()
			sources = append(sources, Source{
				Name:    p.name,
				Value:   average(pick(means, group.SubUnits)),
				Samples: p.monitor.SamplesNumber(),
				RawData: formatMeans(means),
			})
			sanity = append(sanity, RunSanityChecks(p.name, group.Kind, means)...)
		}
		if len(sources) > 0 {
			validations = append(validations, validator.CrossCheck(group.Metric, sources))
		}
	}
	return validations, sanity
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func pick(values []float64, idx []int) []float64 {
	if len(idx) == 0 {
		return values
	}
	out := make([]float64, 0, len(idx))
	for _, i := range idx {
		if i >= 0 && i < len(values) {
			out = append(out, values[i])
		}
	}
	return out
}

func formatMeans(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%.3f", v)
	}
	return strings.Join(parts, " ")
}
