package output

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/danpilch/devmon/pkg/clock"
	"github.com/danpilch/devmon/pkg/collectors"
	"github.com/danpilch/devmon/pkg/monitor"
)

// MonitorType is one togglable view of the presenter.
type MonitorType int

const (
	// CPUAverage shows the per-core mean load.
	CPUAverage MonitorType = iota
	// DistributionCPU shows the mean load over all cores.
	DistributionCPU
	// Memory shows RAM and swap usage.
	Memory
	// GPU shows per-adapter load.
	GPU
)

func (t MonitorType) String() string {
	switch t {
	case CPUAverage:
		return "cpu"
	case DistributionCPU:
		return "cpu-distribution"
	case Memory:
		return "memory"
	case GPU:
		return "gpu"
	}
	return fmt.Sprintf("MonitorType(%d)", int(t))
}

var keyToMonitor = map[rune]MonitorType{
	'C': CPUAverage,
	'D': DistributionCPU,
	'M': Memory,
	'G': GPU,
}

// CollectInterval is the minimum spacing between two presenter collections.
const CollectInterval = time.Second

var (
	ErrUnknownMonitorKey = errors.New("unknown monitor type")
	ErrHideCombination   = errors.New("can't show and hide monitors at the same time")
)

// ParseKeys turns a key string such as "cdm" into monitor types. "h" alone
// selects nothing.
func ParseKeys(keys string) ([]MonitorType, error) {
	if keys == "h" {
		return nil, nil
	}
	seen := make(map[MonitorType]bool)
	for _, k := range keys {
		if k == 'h' {
			return nil, ErrHideCombination
		}
		t, ok := keyToMonitor[unicode.ToUpper(k)]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownMonitorKey, k)
		}
		seen[t] = true
	}
	out := make([]MonitorType, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// PresenterConfig wires the presenter to its load sources. Nil sources are
// never sampled.
type PresenterConfig struct {
	CPU    monitor.LoadSource
	Memory monitor.LoadSource
	GPU    monitor.LoadSource

	Enabled     []MonitorType
	HistorySize int
	Thresholds  Thresholds

	Clock  clock.Clock
	Logger *logrus.Logger
}

// Presenter owns one monitor per device and the set of visible views.
type Presenter struct {
	cpu    *monitor.DeviceMonitor
	memory *monitor.DeviceMonitor
	gpu    *monitor.DeviceMonitor

	enabled     map[MonitorType]bool
	historySize int
	thresholds  Thresholds
	clock       clock.Clock
	logger      *logrus.Logger

	lastCollect time.Time
	collected   bool
}

// NewPresenter creates a presenter. Visible monitors keep at least two
// samples so their means average over time.
func NewPresenter(cfg PresenterConfig) *Presenter {
	historySize := max(cfg.HistorySize, 2)
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
		cfg.Logger.SetLevel(logrus.WarnLevel)
	}
	if cfg.Thresholds == (Thresholds{}) {
		cfg.Thresholds = DefaultThresholds()
	}

	p := &Presenter{
		enabled:     make(map[MonitorType]bool),
		historySize: historySize,
		thresholds:  cfg.Thresholds,
		clock:       cfg.Clock,
		logger:      cfg.Logger,
	}
	if cfg.CPU != nil {
		p.cpu = monitor.New(cfg.CPU, 0)
	}
	if cfg.Memory != nil {
		p.memory = monitor.New(cfg.Memory, 0)
	}
	if cfg.GPU != nil {
		p.gpu = monitor.New(cfg.GPU, 0)
	}
	for _, t := range cfg.Enabled {
		p.enabled[t] = true
	}
	p.resize()
	return p
}

// resize maps the visible views onto window sizes. The per-core view needs
// the full window; the distribution view alone runs the CPU monitor with a
// window of one, so its mean is the last sample. A hidden monitor is shrunk
// to one and its history dropped.
func (p *Presenter) resize() {
	if p.cpu != nil {
		switch {
		case p.enabled[CPUAverage]:
			p.cpu.SetHistorySize(p.historySize)
		case p.enabled[DistributionCPU]:
			p.cpu.SetHistorySize(1)
		case p.cpu.HistorySize() != 0:
			p.cpu.SetHistorySize(0)
		}
	}
	for _, m := range []struct {
		monitor *monitor.DeviceMonitor
		view    MonitorType
	}{{p.memory, Memory}, {p.gpu, GPU}} {
		if m.monitor == nil {
			continue
		}
		if p.enabled[m.view] {
			m.monitor.SetHistorySize(p.historySize)
		} else if m.monitor.HistorySize() != 0 {
			m.monitor.SetHistorySize(0)
		}
	}
}

// active reports whether a monitor's window asks for collection.
func (p *Presenter) active(m *monitor.DeviceMonitor) bool {
	if m == nil {
		return false
	}
	if m == p.cpu && p.enabled[DistributionCPU] {
		return m.HistorySize() >= 1
	}
	return m.HistorySize() > 1
}

// Enabled reports whether a view is visible.
func (p *Presenter) Enabled(t MonitorType) bool {
	return p.enabled[t]
}

// HandleKey toggles the view bound to key. H hides every view, or shows all
// of them when none is visible. Other keys are ignored.
func (p *Presenter) HandleKey(key rune) {
	key = unicode.ToUpper(key)
	if key == 'H' {
		if p.anyEnabled() {
			clear(p.enabled)
		} else {
			for _, t := range keyToMonitor {
				p.enabled[t] = true
			}
		}
		p.resize()
		return
	}
	if t, ok := keyToMonitor[key]; ok {
		p.enabled[t] = !p.enabled[t]
		p.resize()
	}
}

func (p *Presenter) anyEnabled() bool {
	for _, on := range p.enabled {
		if on {
			return true
		}
	}
	return false
}

// Collect polls every monitor whose window is open, at most once per
// CollectInterval. A monitor whose collection fails is logged and its views
// are hidden.
func (p *Presenter) Collect() {
	now := p.clock.Now()
	if p.collected && now.Sub(p.lastCollect) < CollectInterval {
		return
	}
	p.collected = true
	p.lastCollect = now

	p.collect(p.cpu, CPUAverage, DistributionCPU)
	p.collect(p.memory, Memory)
	p.collect(p.gpu, GPU)
}

func (p *Presenter) collect(m *monitor.DeviceMonitor, views ...MonitorType) {
	if !p.active(m) {
		return
	}
	if err := m.CollectData(); err != nil {
		p.logger.WithFields(logrus.Fields{
			"device": m.Name(),
			"error":  err,
		}).Warn("Collection failed, disabling monitor")
		for _, v := range views {
			p.enabled[v] = false
		}
		p.resize()
	}
}

// ReportMeans returns the mean usage of every visible view. The first line is
// a header; the slice is empty when nothing is visible.
func (p *Presenter) ReportMeans() []string {
	var lines []string
	if p.enabled[CPUAverage] && p.cpu != nil {
		lines = append(lines, "\tMean core utilization: "+joinPercents(p.cpu.MeanDeviceLoad()))
	}
	if p.enabled[DistributionCPU] && p.cpu != nil {
		lines = append(lines, "\tMean CPU utilization: "+formatPercent(average(p.cpu.MeanDeviceLoad())))
	}
	if p.enabled[Memory] && p.memory != nil {
		means := p.memory.MeanDeviceLoad()
		lines = append(lines, "\tMemory mean usage: "+formatPercent(means[0]))
		if len(means) > 1 {
			lines = append(lines, "\tSwap mean usage: "+formatPercent(means[1]))
		}
	}
	if p.enabled[GPU] && p.gpu != nil {
		lines = append(lines, "\tMean GPU utilization: "+joinPercents(p.gpu.MeanDeviceLoad()))
	}
	if len(lines) == 0 {
		return nil
	}
	return append([]string{"Resources usage:"}, lines...)
}

func joinPercents(loads []float64) string {
	parts := make([]string, len(loads))
	for i, v := range loads {
		parts[i] = formatPercent(v)
	}
	return strings.Join(parts, " ")
}

var (
	labelStyle = lipgloss.NewStyle().Bold(true).Width(12)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// View renders the visible views with their current load and trend.
func (p *Presenter) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Resources usage"))
	b.WriteString("\n")

	if p.enabled[CPUAverage] && p.cpu != nil {
		r := NewDeviceReport(collectors.KindCPU, p.cpu, p.thresholds)
		for _, sub := range r.SubUnits {
			p.viewLine(&b, sub.Label, sub.Current, sub.trend)
		}
	}
	if p.enabled[DistributionCPU] && p.cpu != nil {
		r := NewDeviceReport(collectors.KindCPU, p.cpu, p.thresholds)
		p.viewLine(&b, "CPU", last(r.trend), r.trend)
	}
	if p.enabled[Memory] && p.memory != nil {
		r := NewDeviceReport(collectors.KindMemory, p.memory, p.thresholds)
		for _, sub := range r.SubUnits {
			p.viewLine(&b, sub.Label, sub.Current, sub.trend)
		}
	}
	if p.enabled[GPU] && p.gpu != nil {
		r := NewDeviceReport(collectors.KindGPU, p.gpu, p.thresholds)
		for _, sub := range r.SubUnits {
			p.viewLine(&b, sub.Label, sub.Current, sub.trend)
		}
	}
	if !p.anyEnabled() {
		b.WriteString(dimStyle.Render("all monitors hidden"))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("c: cores  d: cpu  m: memory  g: gpu  h: hide/show  q: quit"))
	return b.String()
}

func (p *Presenter) viewLine(b *strings.Builder, label string, current float64, trend []float64) {
	style := statusStyles[p.thresholds.EvaluateUtilization(current)]
	if len(trend) == 0 {
		style = statusStyles[StatusUnknown]
	}
	fmt.Fprintf(b, "%s %s %s\n",
		labelStyle.Render(label),
		style.Render(fmt.Sprintf("%6.1f%%", current*100)),
		Sparkline(trend))
}

func last(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}
