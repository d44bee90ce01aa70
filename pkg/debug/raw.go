package debug

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// DumpHistory prints every retained sample of a monitor, oldest first, with
// the running means.
func DumpHistory(w io.Writer, name string, history [][]float64, means []float64) {
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	fmt.Fprintln(w)
	fmt.Fprintln(w, title.Render(fmt.Sprintf("Raw History: %s (%d samples)", name, len(history))))
	fmt.Fprintln(w, dim.Render(strings.Repeat("═", 64)))

	for i, sample := range history {
		fmt.Fprintf(w, "  %4d  %s\n", i, formatRow(sample))
	}
	fmt.Fprintln(w, "  "+dim.Render(strings.Repeat("─", 64)))
	fmt.Fprintf(w, "  mean  %s\n", formatRow(means))
}

func formatRow(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%.4f", v)
	}
	return strings.Join(parts, " ")
}
