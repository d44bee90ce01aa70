// Package benchmark measures how long each counter's Load takes and how much
// the sampled values vary.
package benchmark

import (
	"fmt"
	"io"
	"math"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/danpilch/devmon/pkg/clock"
	"github.com/danpilch/devmon/pkg/collectors"
)

// Source is anything with a named Load, such as *collectors.Counter.
type Source interface {
	Name() string
	Load() (collectors.Sample, error)
}

// Options configures a benchmark run.
type Options struct {
	Iterations int
	Warmup     int

	// Clock times each Load. Defaults to real time.
	Clock clock.Clock
}

// DefaultOptions returns sensible benchmark defaults.
func DefaultOptions() Options {
	return Options{
		Iterations: 20,
		Warmup:     3,
	}
}

// Result holds the measurements of one source. Latencies are sorted.
type Result struct {
	Counter     string
	Latencies   []time.Duration
	P50         time.Duration
	P95         time.Duration
	P99         time.Duration
	Empty       int
	Errors      int
	LastError   error
	ValueStdDev float64

	// WarmupError is the first error returned by an untimed warmup call.
	WarmupError error
}

// Overhead holds the tool's own resource usage.
type Overhead struct {
	AllocBytes uint64
	AllocCount uint64
	GCPauses   uint32
}

// Run measures every source in turn. Warmup calls are not timed; rate
// backends spend them establishing a baseline.
func Run(sources []Source, opts Options) []Result {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	opts.Iterations = max(opts.Iterations, 1)

	results := make([]Result, 0, len(sources))
	for _, src := range sources {
		var warmupErr error
		for i := 0; i < opts.Warmup; i++ {
			if _, err := src.Load(); err != nil && warmupErr == nil {
				warmupErr = err
			}
		}
		r := measure(src, opts)
		r.WarmupError = warmupErr
		results = append(results, r)
	}
	return results
}

func measure(src Source, opts Options) Result {
	r := Result{
		Counter:   src.Name(),
		Latencies: make([]time.Duration, 0, opts.Iterations),
	}

	var values []float64
	for i := 0; i < opts.Iterations; i++ {
		start := opts.Clock.Now()
		sample, err := src.Load()
		r.Latencies = append(r.Latencies, opts.Clock.Now().Sub(start))

		switch {
		case err != nil:
			r.Errors++
			r.LastError = err
		case len(sample) == 0:
			r.Empty++
		default:
			values = append(values, sample...)
		}
	}

	slices.Sort(r.Latencies)
	r.P50 = percentile(r.Latencies, 0.50)
	r.P95 = percentile(r.Latencies, 0.95)
	r.P99 = percentile(r.Latencies, 0.99)
	r.ValueStdDev = stddev(values)
	return r
}

// MeasureOverhead returns the process's allocation and GC counters.
func MeasureOverhead() Overhead {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return Overhead{
		AllocBytes: m.TotalAlloc,
		AllocCount: m.Mallocs,
		GCPauses:   m.NumGC,
	}
}

var (
	bmTitle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	bmHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	bmCell   = lipgloss.NewStyle().Padding(0, 1)
	bmDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	bmBold   = lipgloss.NewStyle().Bold(true)
)

// RenderResults writes a latency table, the last error of each failing
// source and the tool's overhead.
func RenderResults(w io.Writer, results []Result, overhead Overhead) {
	fmt.Fprintln(w, bmTitle.Render("Self-Benchmark Results"))

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			r.Counter,
			r.P50.String(),
			r.P95.String(),
			r.P99.String(),
			fmt.Sprintf("%d/%d", r.Empty, r.Errors),
			fmt.Sprintf("%.4f", r.ValueStdDev),
		})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(bmDim).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return bmHeader
			}
			return bmCell
		}).
		Headers("COUNTER", "P50", "P95", "P99", "EMPTY/ERR", "VALUE STDDEV").
		Rows(rows...)
	fmt.Fprintln(w, t)

	for _, r := range results {
		if r.WarmupError != nil {
			fmt.Fprintf(w, "%s %s\n", r.Counter, bmDim.Render("warmup error: "+r.WarmupError.Error()))
		}
		if r.LastError != nil {
			fmt.Fprintf(w, "%s %s\n", r.Counter, bmDim.Render("last error: "+r.LastError.Error()))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, bmTitle.Render("Tool Overhead"))
	fmt.Fprintln(w, bmDim.Render(strings.Repeat("─", 40)))
	fmt.Fprintf(w, "  Memory allocated: %s\n", bmBold.Render(formatBytes(overhead.AllocBytes)))
	fmt.Fprintf(w, "  Allocations:      %s\n", bmBold.Render(fmt.Sprint(overhead.AllocCount)))
	fmt.Fprintf(w, "  GC pauses:        %s\n", bmBold.Render(fmt.Sprint(overhead.GCPauses)))
}

// percentile uses the nearest-rank method on sorted latencies.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(p * float64(len(sorted))))
	return sorted[min(max(rank-1, 0), len(sorted)-1)]
}

// stddev is the population standard deviation.
func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return math.Sqrt(sq / float64(len(values)))
}

func formatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
