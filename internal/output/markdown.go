package output

import (
	"fmt"
	"strings"

	"github.com/brandlens/brandlens/internal/core"
)

// MarkdownFormatter renders results as markdown tables.
type MarkdownFormatter struct{}

func (f *MarkdownFormatter) FormatReport(report *core.UniquenessReport) (string, error) {
	if report == nil {
		return "", nil
	}

	notes := componentNotes(report)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s uniqueness\n\n", escapeMarkdownCell(report.Title)))
	sb.WriteString(fmt.Sprintf("**Score**: %d/100 (%s)\n\n", report.OverallScore, report.Grade))
	sb.WriteString("| Component | Score | Notes |\n")
	sb.WriteString("|-----------|-------|-------|\n")
	for _, name := range report.SortedComponents() {
		sb.WriteString(fmt.Sprintf("| %s | %d | %s |\n",
			escapeMarkdownCell(string(name)),
			report.Components[name],
			escapeMarkdownCell(notes[name]),
		))
	}

	if len(report.Locales) > 1 {
		names := report.SortedComponents()
		sb.WriteString("\n| Locale |")
		for _, name := range names {
			sb.WriteString(" " + string(name) + " |")
		}
		sb.WriteString("\n|--------|" + strings.Repeat("---|", len(names)) + "\n")
		for _, rep := range report.Locales {
			sb.WriteString("| " + escapeMarkdownCell(rep.Locale.Label()) + " |")
			for _, name := range names {
				sb.WriteString(fmt.Sprintf(" %d |", rep.Components[name].Score))
			}
			sb.WriteString("\n")
		}
	}

	if extra := extraExplanations(report); len(extra) > 0 {
		sb.WriteString("\n")
		for _, line := range extra {
			sb.WriteString("- " + line + "\n")
		}
	}
	return sb.String(), nil
}

func (f *MarkdownFormatter) FormatBatch(results []core.BatchResult) (string, error) {
	var sb strings.Builder
	sb.WriteString("| Title | Score | Grade | Error |\n")
	sb.WriteString("|-------|-------|-------|-------|\n")
	for _, result := range results {
		if result.Report == nil {
			sb.WriteString(fmt.Sprintf("| %s | - | - | %s |\n", escapeMarkdownCell(result.Title), escapeMarkdownCell(result.Error)))
			continue
		}
		sb.WriteString(fmt.Sprintf("| %s | %d | %s | |\n",
			escapeMarkdownCell(result.Title),
			result.Report.OverallScore,
			result.Report.Grade,
		))
	}
	return sb.String(), nil
}

func (f *MarkdownFormatter) FormatDomain(check *DomainReport) (string, error) {
	if check == nil || check.Result == nil {
		return "", nil
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s\n\n", escapeMarkdownCell(check.Result.Domain)))
	sb.WriteString(fmt.Sprintf("- **Status**: %s\n", availabilityLabel(check.Result)))
	if check.Result.Registrar != "" {
		sb.WriteString(fmt.Sprintf("- **Registrar**: %s\n", check.Result.Registrar))
	}
	if check.DoHProvider != "" {
		sb.WriteString(fmt.Sprintf("- **www** (%s): %s\n", check.DoHProvider, wwwLabel(check)))
	}
	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
