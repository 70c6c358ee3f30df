package output

import (
	"fmt"
	"strings"

	"github.com/brandlens/brandlens/internal/core"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatYAML     Format = "yaml"
)

// Formatter renders evaluation results.
type Formatter interface {
	FormatReport(report *core.UniquenessReport) (string, error)
	FormatBatch(results []core.BatchResult) (string, error)
	FormatDomain(check *DomainReport) (string, error)
}

// DomainReport is the check-www result: the authoritative RDAP answer plus the
// optional www DNS probe.
type DomainReport struct {
	Result      *core.DomainResult `json:"result" yaml:"result"`
	DoHProvider string             `json:"doh_provider,omitempty" yaml:"doh_provider,omitempty"`
	WWWResolves *bool              `json:"www_resolves,omitempty" yaml:"www_resolves,omitempty"`
	WWWError    string             `json:"www_error,omitempty" yaml:"www_error,omitempty"`
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	case string(FormatYAML), "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	case FormatYAML:
		return &YAMLFormatter{}
	default:
		return &TableFormatter{}
	}
}

// componentNotes maps each component to the reason recorded in its summary line,
// "domain: 25/25 (.com is available)" -> ".com is available".
func componentNotes(report *core.UniquenessReport) map[core.ComponentName]string {
	notes := make(map[core.ComponentName]string, len(report.Components))
	for _, line := range report.Explanations {
		for _, name := range report.SortedComponents() {
			prefix := string(name) + ": "
			if !strings.HasPrefix(line, prefix) {
				continue
			}
			if open := strings.Index(line, "("); open >= 0 && strings.HasSuffix(line, ")") {
				notes[name] = line[open+1 : len(line)-1]
			}
		}
	}
	return notes
}

// extraExplanations returns warnings and verification links, i.e. every explanation
// that is not a component summary.
func extraExplanations(report *core.UniquenessReport) []string {
	var out []string
	for _, line := range report.Explanations {
		summary := false
		for _, name := range report.SortedComponents() {
			if strings.HasPrefix(line, string(name)+": ") {
				summary = true
				break
			}
		}
		if !summary {
			out = append(out, line)
		}
	}
	return out
}

func availabilityLabel(result *core.DomainResult) string {
	if result == nil {
		return "unknown"
	}
	label := result.Available.String()
	if !result.Authoritative {
		label += " (non-authoritative)"
	}
	return label
}

func wwwLabel(check *DomainReport) string {
	switch {
	case check.WWWError != "":
		return "error: " + check.WWWError
	case check.WWWResolves == nil:
		return "not probed"
	case *check.WWWResolves:
		return "resolves"
	default:
		return "no A record"
	}
}
