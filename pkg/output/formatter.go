// Package output renders device load reports and drives the interactive
// resource presenter.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Format represents the output format type.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatTSV   Format = "tsv"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTable, FormatJSON, FormatTSV:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q", s)
}

// Formatter handles output formatting.
type Formatter struct {
	format     Format
	writer     io.Writer
	host       string
	showTrends bool
}

// NewFormatter creates a new formatter.
func NewFormatter(format Format, writer io.Writer) *Formatter {
	return &Formatter{
		format: format,
		writer: writer,
	}
}

// SetHost sets the host label printed with each report.
func (f *Formatter) SetHost(host string) {
	f.host = host
}

// SetShowTrends adds a sparkline column built from each monitor's history.
func (f *Formatter) SetShowTrends(show bool) {
	f.showTrends = show
}

// Render outputs the reports in the configured format.
func (f *Formatter) Render(reports []DeviceReport) error {
	switch f.format {
	case FormatJSON:
		return f.renderJSON(reports)
	case FormatTSV:
		return f.renderTSV(reports)
	default:
		return f.renderTable(reports)
	}
}

// renderJSON writes one JSON document per call so repeated renders form a
// JSON lines stream.
func (f *Formatter) renderJSON(reports []DeviceReport) error {
	output := struct {
		Host      string         `json:"host,omitempty"`
		Timestamp time.Time      `json:"timestamp"`
		Devices   []DeviceReport `json:"devices"`
	}{
		Host:      f.host,
		Timestamp: time.Now().UTC(),
		Devices:   reports,
	}

	return json.NewEncoder(f.writer).Encode(output)
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12"))

	statusStyles = map[Status]lipgloss.Style{
		StatusOK:      lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true), // Green
		StatusWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true), // Yellow
		StatusError:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),  // Red
		StatusUnknown: lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Bold(true),  // Gray
	}
)

// renderTable outputs reports as a styled table, one row per sub-unit.
func (f *Formatter) renderTable(reports []DeviceReport) error {
	title := "Device Load"
	if f.host != "" {
		title += " on " + f.host
	}
	fmt.Fprintln(f.writer, titleStyle.Render(title))
	fmt.Fprintln(f.writer, strings.Repeat("═", 60))

	var rows [][]string
	for _, r := range reports {
		statusStyle := statusStyles[r.Status]
		for i, sub := range r.SubUnits {
			device := ""
			status := ""
			if i == 0 {
				device = fmt.Sprintf("%s (%d)", r.Device, r.Samples)
				status = statusStyle.Render(strings.ToUpper(string(r.Status)))
			}
			row := []string{
				device,
				sub.Label,
				formatPercent(sub.Current),
				formatPercent(sub.Mean),
				status,
			}
			if f.showTrends {
				row = append(row, Sparkline(sub.trend))
			}
			rows = append(rows, row)
		}
	}

	headers := []string{"DEVICE", "UNIT", "CURRENT", "MEAN", "STATUS"}
	if f.showTrends {
		headers = append(headers, "TREND")
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)

	fmt.Fprintln(f.writer, t)
	f.renderSummary(reports)
	return nil
}

// renderSummary outputs the per-device mean line.
func (f *Formatter) renderSummary(reports []DeviceReport) {
	parts := make([]string, 0, len(reports))
	for _, r := range reports {
		parts = append(parts, statusStyles[r.Status].Render(
			fmt.Sprintf("%s %s", r.Device, formatPercent(r.Mean))))
	}
	if len(parts) == 0 {
		fmt.Fprintln(f.writer, statusStyles[StatusUnknown].Render("No devices"))
		return
	}
	fmt.Fprintf(f.writer, "Mean: %s\n", strings.Join(parts, ", "))
}

// renderTSV outputs reports as tab-separated values.
func (f *Formatter) renderTSV(reports []DeviceReport) error {
	fmt.Fprintln(f.writer, "DEVICE\tKIND\tUNIT\tSAMPLES\tCURRENT\tMEAN\tSTATUS")

	for _, r := range reports {
		for _, sub := range r.SubUnits {
			fmt.Fprintf(f.writer, "%s\t%s\t%s\t%d\t%.4f\t%.4f\t%s\n",
				r.Device, r.Kind, sub.Label, r.Samples,
				sub.Current, sub.Mean, r.Status)
		}
	}

	return nil
}

func formatPercent(load float64) string {
	return fmt.Sprintf("%.1f%%", load*100)
}
