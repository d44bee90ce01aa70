package crosscheck

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	statusStyles = map[ValidationStatus]lipgloss.Style{
		StatusValid:    passStyle,
		StatusSuspect:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		StatusConflict: failStyle,
	}
)

// Report writes the backend comparison as a table followed by the sanity
// check list.
func Report(w io.Writer, host string, validations []ValidationResult, sanity []SanityResult) {
	title := "Cross-Check Validation Report"
	if host != "" {
		title += " (" + host + ")"
	}
	fmt.Fprintln(w, titleStyle.Render(title))
	fmt.Fprintln(w, dimStyle.Render(strings.Repeat("═", 60)))

	if len(validations) > 0 {
		fmt.Fprintln(w, validationTable(validations))
	}
	if len(sanity) > 0 {
		writeSanity(w, sanity)
	}
}

func validationTable(validations []ValidationResult) *table.Table {
	var rows [][]string
	for _, v := range validations {
		for i, s := range v.Sources {
			metric, consensus, status := "", "", ""
			if i == 0 {
				metric = v.Metric
				consensus = percent(v.Consensus)
				status = statusStyles[v.Status].Render(strings.ToUpper(string(v.Status)))
			}
			rows = append(rows, []string{
				metric,
				fmt.Sprintf("%s=%s", s.Name, percent(s.Value)),
				fmt.Sprintf("%.1fpp", s.Deviation*100),
				consensus,
				status,
			})
		}
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("METRIC", "SOURCE", "DEVIATION", "CONSENSUS", "STATUS").
		Rows(rows...)
}

func writeSanity(w io.Writer, sanity []SanityResult) {
	fmt.Fprintln(w, titleStyle.Render("Sanity Checks"))

	failed := 0
	for _, s := range sanity {
		mark := passStyle.Render("PASS")
		if !s.Passed {
			mark = failStyle.Render("FAIL")
			failed++
		}
		fmt.Fprintf(w, "  [%s] %-32s %s\n", mark, s.Check, dimStyle.Render(s.Details))
	}

	if failed == 0 {
		fmt.Fprintln(w, passStyle.Render(fmt.Sprintf("All %d sanity checks passed.", len(sanity))))
		return
	}
	fmt.Fprintln(w, failStyle.Render(fmt.Sprintf("%d of %d sanity checks failed.", failed, len(sanity))))
}

func percent(load float64) string {
	return fmt.Sprintf("%.1f%%", load*100)
}

// ReportJSON writes the same results as one indented JSON document.
func ReportJSON(w io.Writer, host string, validations []ValidationResult, sanity []SanityResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Host        string             `json:"host,omitempty"`
		Validations []ValidationResult `json:"validations"`
		Sanity      []SanityResult     `json:"sanity"`
	}{host, validations, sanity})
}
