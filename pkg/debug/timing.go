// Package debug instruments load sources for the run command's --timing and
// --dump-raw flags.
package debug

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/danpilch/devmon/pkg/clock"
	"github.com/danpilch/devmon/pkg/collectors"
	"github.com/danpilch/devmon/pkg/monitor"
)

var (
	debugTitle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	debugHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	debugDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// SourceTiming accumulates Load durations of one source.
type SourceTiming struct {
	Name   string
	Calls  int
	Empty  int
	Errors int
	Total  time.Duration
	Max    time.Duration
}

// Mean returns the average Load duration.
func (t SourceTiming) Mean() time.Duration {
	if t.Calls == 0 {
		return 0
	}
	return t.Total / time.Duration(t.Calls)
}

// TimedSource wraps a load source to record how long each Load takes.
type TimedSource struct {
	inner  monitor.LoadSource
	name   string
	clock  clock.Clock
	Timing SourceTiming
}

// NewTimedSource wraps a source with timing instrumentation. A nil clock uses
// real time.
func NewTimedSource(src monitor.LoadSource, name string, clk clock.Clock) *TimedSource {
	if clk == nil {
		clk = clock.Real()
	}
	return &TimedSource{
		inner:  src,
		name:   name,
		clock:  clk,
		Timing: SourceTiming{Name: name},
	}
}

// Name returns the wrapped source's name.
func (t *TimedSource) Name() string {
	return t.name
}

// SubUnits returns the wrapped source's sub-unit count.
func (t *TimedSource) SubUnits() int {
	return t.inner.SubUnits()
}

// Load runs the wrapped source and records the duration.
func (t *TimedSource) Load() (collectors.Sample, error) {
	start := t.clock.Now()
	sample, err := t.inner.Load()
	d := t.clock.Now().Sub(start)

	t.Timing.Calls++
	t.Timing.Total += d
	t.Timing.Max = max(t.Timing.Max, d)
	switch {
	case err != nil:
		t.Timing.Errors++
	case len(sample) == 0:
		t.Timing.Empty++
	}
	return sample, err
}

// TimingReport prints a styled timing summary for all timed sources.
func TimingReport(w io.Writer, timings []SourceTiming) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, debugTitle.Render("Counter Timing Report"))
	fmt.Fprintln(w, debugDim.Render(strings.Repeat("═", 64)))
	fmt.Fprintf(w, "  %s %s %s %s %s\n",
		debugHeader.Render("COUNTER     "),
		debugHeader.Render("CALLS"),
		debugHeader.Render("EMPTY/ERR"),
		debugHeader.Render("MEAN        "),
		debugHeader.Render("MAX         "))
	fmt.Fprintln(w, "  "+debugDim.Render(strings.Repeat("─", 64)))

	var total time.Duration
	for _, t := range timings {
		fmt.Fprintf(w, "  %-14s %7d %5d/%-5d %-14v %v\n",
			t.Name, t.Calls, t.Empty, t.Errors, t.Mean(), t.Max)
		total += t.Total
	}
	fmt.Fprintln(w, "  "+debugDim.Render(strings.Repeat("─", 64)))
	fmt.Fprintf(w, "  %-14s %v\n",
		lipgloss.NewStyle().Bold(true).Render("TOTAL"), total)
}
