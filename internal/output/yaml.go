package output

import (
	"bytes"
	"encoding/json"

	"gopkg.in/yaml.v3"

	"github.com/brandlens/brandlens/internal/core"
)

// YAMLFormatter renders results as YAML. Field names and order follow the JSON
// encoding.
type YAMLFormatter struct{}

func (f *YAMLFormatter) FormatReport(report *core.UniquenessReport) (string, error) {
	if report == nil {
		return "", nil
	}
	return marshalYAML(report)
}

func (f *YAMLFormatter) FormatBatch(results []core.BatchResult) (string, error) {
	if results == nil {
		results = []core.BatchResult{}
	}
	return marshalYAML(results)
}

func (f *YAMLFormatter) FormatDomain(check *DomainReport) (string, error) {
	if check == nil {
		return "", nil
	}
	return marshalYAML(check)
}

func marshalYAML(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return "", err
	}
	blockStyle(&node)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// blockStyle clears the flow and quoting styles inherited from JSON.
func blockStyle(node *yaml.Node) {
	if node.Kind != yaml.ScalarNode || node.Tag == "!!str" {
		node.Style = 0
	}
	for _, child := range node.Content {
		blockStyle(child)
	}
}
