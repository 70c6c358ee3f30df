package output

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/brandlens/brandlens/internal/core"
)

// TableFormatter renders results as ASCII tables.
type TableFormatter struct{}

// FormatReport renders the aggregated components, a per-locale breakdown when more
// than one locale was evaluated, and any warnings.
func (f *TableFormatter) FormatReport(report *core.UniquenessReport) (string, error) {
	if report == nil {
		return "", nil
	}

	notes := componentNotes(report)

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle(fmt.Sprintf("%s (%s engine, %s aggregation)", report.Title, report.Engine, report.Aggregation))
	t.AppendHeader(table.Row{"Component", "Score", "Notes"})
	for _, name := range report.SortedComponents() {
		t.AppendRow(table.Row{string(name), report.Components[name], notes[name]})
	}
	t.AppendFooter(table.Row{"Overall", report.OverallScore, string(report.Grade)})

	var sb strings.Builder
	sb.WriteString(t.Render())

	if len(report.Locales) > 1 {
		sb.WriteString("\n")
		sb.WriteString(localeTable(report))
	}

	if extra := extraExplanations(report); len(extra) > 0 {
		sb.WriteString("\n")
		for _, line := range extra {
			sb.WriteString("  " + line + "\n")
		}
	}
	return sb.String(), nil
}

func localeTable(report *core.UniquenessReport) string {
	names := report.SortedComponents()

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	header := table.Row{"Locale", "Weight"}
	for _, name := range names {
		header = append(header, string(name))
	}
	t.AppendHeader(header)

	for _, rep := range report.Locales {
		row := table.Row{rep.Locale.Label(), rep.Locale.Weight}
		for _, name := range names {
			cs, ok := rep.Components[name]
			if !ok {
				row = append(row, "-")
				continue
			}
			cell := fmt.Sprintf("%d", cs.Score)
			if cs.Warning() != "" {
				cell += " !"
			}
			row = append(row, cell)
		}
		t.AppendRow(row)
	}
	return t.Render()
}

// FormatBatch renders one row per title.
func (f *TableFormatter) FormatBatch(results []core.BatchResult) (string, error) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)

	header := table.Row{"Title", "Score", "Grade"}
	for _, name := range core.ComponentNames() {
		header = append(header, string(name))
	}
	header = append(header, "Notes")
	t.AppendHeader(header)

	for _, result := range results {
		if result.Report == nil {
			row := table.Row{result.Title, "-", "error"}
			for range core.ComponentNames() {
				row = append(row, "")
			}
			t.AppendRow(append(row, result.Error))
			continue
		}
		report := result.Report
		row := table.Row{result.Title, report.OverallScore, string(report.Grade)}
		for _, name := range core.ComponentNames() {
			row = append(row, report.Components[name])
		}
		warnings := 0
		for _, line := range report.Explanations {
			if strings.HasPrefix(line, "Warning [") {
				warnings++
			}
		}
		note := ""
		if warnings > 0 {
			note = fmt.Sprintf("%d warning(s)", warnings)
		}
		t.AppendRow(append(row, note))
	}

	return t.Render(), nil
}

// FormatDomain renders the check-www result.
func (f *TableFormatter) FormatDomain(check *DomainReport) (string, error) {
	if check == nil || check.Result == nil {
		return "", nil
	}
	r := check.Result

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendRow(table.Row{"Domain", r.Domain})
	t.AppendRow(table.Row{"Status", availabilityLabel(r)})
	if r.Registrar != "" {
		t.AppendRow(table.Row{"Registrar", r.Registrar})
	}
	if r.Expiration != "" {
		t.AppendRow(table.Row{"Expires", r.Expiration})
	}
	if r.Note != "" {
		t.AppendRow(table.Row{"Note", r.Note})
	}
	if check.DoHProvider != "" {
		t.AppendRow(table.Row{"www (" + check.DoHProvider + ")", wwwLabel(check)})
	}
	if r.Provenance.FromCache {
		t.AppendRow(table.Row{"Source", r.Provenance.Source + " (cached)"})
	} else if r.Provenance.Source != "" {
		t.AppendRow(table.Row{"Source", r.Provenance.Source})
	}
	return t.Render(), nil
}
