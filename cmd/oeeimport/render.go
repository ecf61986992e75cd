package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/JonMunkholm/oeedash/internal/core"
	"github.com/JonMunkholm/oeedash/internal/oee"
	"github.com/JonMunkholm/oeedash/internal/service"
)

const (
	colorTitle   = lipgloss.Color("62")  // Purple
	colorOK      = lipgloss.Color("40")  // Green
	colorWarn    = lipgloss.Color("214") // Orange
	colorMuted   = lipgloss.Color("244") // Dim gray
	colorBorders = lipgloss.Color("240")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorTitle)
	okStyle      = lipgloss.NewStyle().Foreground(colorOK)
	warnStyle    = lipgloss.NewStyle().Foreground(colorWarn)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	labelStyle   = lipgloss.NewStyle().Width(20)
	sectionStyle = lipgloss.NewStyle().MarginTop(1)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorders)).
		Headers(headers...)
}

// renderReport summarises one import for the terminal.
func renderReport(out *service.ImportOutcome, backend string) string {
	r := out.Import.Report

	lines := []string{
		titleStyle.Render(fmt.Sprintf("%s  %s", out.Import.FileName, r.Kind)),
		mutedStyle.Render(fmt.Sprintf("format %s  encoding %s  store %s  import %s",
			out.Format, orDash(out.Encoding), backend, out.Import.ID)),
		"",
		stat("Uploaded rows", r.OriginalRows),
		stat("Passed validation", r.PassedRows),
		stat("Accepted", r.AcceptedRows),
		stat("Rejected", r.RejectedRows) + mutedStyle.Render(fmt.Sprintf("  (%.2f%%)", r.RejectionRate)),
		stat("Corrections", r.Corrections),
		stat("Synthetic rows", r.SyntheticRows),
		stat("Final rows", r.FinalRows),
	}

	if r.OverrideApplied {
		lines = append(lines, warnStyle.Render("! too few rows passed validation; all uploaded rows were kept"))
	}
	for _, w := range r.Warnings {
		lines = append(lines, warnStyle.Render("! "+w))
	}
	if len(r.UnmatchedFields) > 0 {
		lines = append(lines, warnStyle.Render("! no column found for: "+strings.Join(r.UnmatchedFields, ", ")))
	}

	if len(r.Violations) > 0 {
		t := newTable("Violation", "Rows")
		for _, k := range r.ViolationKeys() {
			t.Row(k, fmt.Sprint(r.Violations[k]))
		}
		lines = append(lines, sectionStyle.Render(t.String()))
	}
	if len(r.Rejections) > 0 {
		t := newTable("Rejected row", "Reasons")
		for _, rej := range r.Rejections {
			t.Row(fmt.Sprint(rej.Row), strings.Join(rej.Reasons, "; "))
		}
		lines = append(lines, sectionStyle.Render(t.String()))
		if hidden := r.RejectedRows - len(r.Rejections); hidden > 0 {
			lines = append(lines, mutedStyle.Render(fmt.Sprintf("  and %d more rejected rows", hidden)))
		}
	}
	if len(r.Backfilled) > 0 {
		t := newTable("Backfilled field", "Values")
		for _, k := range sortedKeys(r.Backfilled) {
			t.Row(k, fmt.Sprint(r.Backfilled[k]))
		}
		lines = append(lines, sectionStyle.Render(t.String()))
	}

	lines = append(lines, "", okStyle.Render(r.Message()))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// renderFieldRules prints the accepted headers and formats of one kind.
func renderFieldRules(def core.KindDefinition) string {
	t := newTable("Field", "Type", "Required", "Accepted headers", "Format")
	for _, rule := range core.FieldRules(def) {
		required := ""
		if rule.Required {
			required = "yes"
		}
		t.Row(rule.Field, rule.Type, required, strings.Join(rule.Aliases, ", "), ruleFormat(rule))
	}

	parts := []string{titleStyle.Render(fmt.Sprintf("%s (%s)", def.Kind, def.Label)), t.String()}
	if def.CorrectionDoc != "" {
		parts = append(parts, mutedStyle.Render("Correction: "+def.CorrectionDoc))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...) + "\n"
}

func ruleFormat(rule core.FieldRule) string {
	var parts []string
	switch {
	case rule.Example != "":
		parts = append(parts, "e.g. "+rule.Example)
	case len(rule.Values) > 0:
		parts = append(parts, strings.Join(rule.Values, " / "))
	}
	if rule.Range != nil {
		parts = append(parts, fmt.Sprintf("%g..%g", rule.Range.Min, rule.Range.Max))
	}
	if rule.Default != nil {
		parts = append(parts, fmt.Sprintf("default %v", rule.Default))
	}
	return strings.Join(parts, ", ")
}

// renderOEE prints per-device metrics in percent.
func renderOEE(s oee.Summary) string {
	t := newTable("Device", "Availability", "Performance", "Quality", "OEE", "TEEP")
	for _, d := range s.Devices {
		t.Row(d.DeviceID, pct(d.Availability), pct(d.Performance), pct(d.Quality), pct(d.OEE), pct(d.TEEP))
	}

	header := titleStyle.Render(fmt.Sprintf("OEE %s to %s",
		s.Window.Start.Format("2006-01-02"), s.Window.End.Format("2006-01-02")))
	footer := okStyle.Render(fmt.Sprintf("average OEE %s  average TEEP %s", pct(s.AverageOEE), pct(s.AverageTEEP)))
	return lipgloss.JoinVertical(lipgloss.Left, header, t.String(), footer)
}

func stat(label string, n int) string {
	return labelStyle.Render(label) + fmt.Sprint(n)
}

func pct(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
