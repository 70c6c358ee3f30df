package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brandlens/brandlens/internal/core"
	"github.com/brandlens/brandlens/internal/output"
)

// outputSink is where a rendered report goes. path is "-" for stdout.
type outputSink struct {
	writer io.Writer
	close  func() error
	path   string
}

var extensions = map[output.Format]string{
	output.FormatJSON:     "json",
	output.FormatMarkdown: "md",
	output.FormatYAML:     "yaml",
}

func outputExtension(format output.Format) string {
	if ext, ok := extensions[format]; ok {
		return ext
	}
	return "txt"
}

var nonFilename = regexp.MustCompile(`[^a-z0-9._-]+`)

// sanitizeFilename turns a title into a lowercase, dash-separated file stem.
func sanitizeFilename(value string) string {
	clean := nonFilename.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), "-")
	if clean = strings.Trim(clean, "-."); clean == "" {
		return "output"
	}
	return clean
}

func addOutputFlags(cmd *cobra.Command, formats string) {
	cmd.Flags().StringP("output", "o", string(output.FormatTable), "Output format: "+formats)
	cmd.Flags().String("out", "", "Write output to a file (default stdout)")
	cmd.Flags().String("out-dir", "", "Write output to a directory")
}

func outputFormat(cmd *cobra.Command) (output.Format, error) {
	value, err := cmd.Flags().GetString("output")
	if err != nil {
		return "", err
	}
	format, err := output.ParseFormat(value)
	if err != nil {
		return "", &core.ValidationError{Field: "output", Reason: err.Error()}
	}
	return format, nil
}

// openTarget opens the sink selected by --out or --out-dir. Directory output goes
// to <out-dir>/<name>.<ext>; with neither flag the sink is stdout.
func openTarget(cmd *cobra.Command, name string, format output.Format) (*outputSink, error) {
	outPath, _ := cmd.Flags().GetString("out")
	outDir, _ := cmd.Flags().GetString("out-dir")
	outPath, outDir = strings.TrimSpace(outPath), strings.TrimSpace(outDir)

	switch {
	case outPath != "" && outDir != "":
		return nil, &core.ValidationError{Field: "out", Reason: "--out and --out-dir are mutually exclusive"}
	case outDir != "":
		outPath = filepath.Join(outDir, sanitizeFilename(name)+"."+outputExtension(format))
	case outPath == "" || outPath == "-":
		return &outputSink{writer: os.Stdout, close: func() error { return nil }, path: "-"}, nil
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	file, err := os.Create(outPath) // #nosec G304 -- operator-chosen output path
	if err != nil {
		return nil, err
	}
	if abs, err := filepath.Abs(outPath); err == nil {
		outPath = abs
	}
	return &outputSink{writer: file, close: file.Close, path: outPath}, nil
}
