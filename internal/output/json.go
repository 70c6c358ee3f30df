package output

import (
	"encoding/json"

	"github.com/brandlens/brandlens/internal/core"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

func (f *JSONFormatter) FormatReport(report *core.UniquenessReport) (string, error) {
	if report == nil {
		return "", nil
	}
	return f.marshal(report)
}

func (f *JSONFormatter) FormatBatch(results []core.BatchResult) (string, error) {
	if results == nil {
		results = []core.BatchResult{}
	}
	return f.marshal(results)
}

func (f *JSONFormatter) FormatDomain(check *DomainReport) (string, error) {
	if check == nil {
		return "", nil
	}
	return f.marshal(check)
}

func (f *JSONFormatter) marshal(v any) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
