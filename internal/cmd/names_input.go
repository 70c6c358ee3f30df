package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/brandlens/brandlens/internal/core"
)

// resolveTitles returns titles from positional args or, when set, a titles file.
func resolveTitles(positional []string, titlesFile string) ([]string, error) {
	trimmed := strings.TrimSpace(titlesFile)
	if trimmed != "" {
		if len(positional) > 0 {
			return nil, &core.ValidationError{Field: "titles", Reason: "cannot combine positional titles with a titles file"}
		}
		return readTitlesFile(trimmed)
	}

	titles := make([]string, 0, len(positional))
	for _, raw := range positional {
		if title := strings.TrimSpace(raw); title != "" {
			titles = append(titles, title)
		}
	}
	if len(titles) == 0 {
		return nil, &core.ValidationError{Field: "titles", Reason: "at least one title is required"}
	}
	return titles, nil
}

// readTitlesFile reads one title per line from path ("-" is stdin). Blank lines and
// lines starting with '#' are skipped.
func readTitlesFile(path string) ([]string, error) {
	var reader io.Reader
	if path == "-" {
		reader = os.Stdin
	} else {
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer file.Close() // nolint:errcheck
		reader = file
	}
	return readTitles(reader)
}

func readTitles(reader io.Reader) ([]string, error) {
	titles := make([]string, 0)
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		titles = append(titles, raw)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read titles: %w", err)
	}

	if len(titles) == 0 {
		return nil, &core.ValidationError{Field: "titles", Reason: "no titles found"}
	}
	return titles, nil
}
