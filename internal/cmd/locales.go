package cmd

import (
	"encoding/json"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/brandlens/brandlens/internal/config"
	"github.com/brandlens/brandlens/internal/core"
	"github.com/brandlens/brandlens/internal/output"
)

var localesCmd = &cobra.Command{
	Use:   "locales",
	Short: "List locale presets",
	Long:  "List the built-in locale presets and any locales defined under locales.custom in the config file.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}
		cfg, err := loadConfig(cmd.Context())
		if err != nil {
			return err
		}

		rows := localeRows(cfg)
		if format == output.FormatJSON {
			payload, err := json.MarshalIndent(rows, "", "  ")
			if err != nil {
				return err
			}
			return writeRendered(cmd, "locales", format, string(payload))
		}

		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"Name", "Country", "hl", "gl", "Location", "Language", "Default", "Description"})
		for _, row := range rows {
			def := ""
			if row.Default {
				def = "yes"
			}
			l := row.Locale
			t.AppendRow(table.Row{l.Name, l.Country, l.HL, l.GL, l.LocationCode, l.LanguageCode, def, row.Description})
		}
		return writeRendered(cmd, "locales", format, t.Render())
	},
}

type localeRow struct {
	Locale      core.LocaleSpec `json:"locale"`
	Description string          `json:"description,omitempty"`
	Custom      bool            `json:"custom,omitempty"`
	Default     bool            `json:"default,omitempty"`
}

func localeRows(cfg *config.Config) []localeRow {
	defaults := map[string]bool{}
	for _, l := range cfg.DefaultLocales() {
		defaults[l.Name] = true
	}

	rows := make([]localeRow, 0, len(core.BuiltInLocales)+len(cfg.Locales.Custom))
	for _, preset := range core.BuiltInLocales {
		if _, overridden := cfg.Locales.Custom[preset.Locale.Name]; overridden {
			continue
		}
		rows = append(rows, localeRow{Locale: preset.Locale, Description: preset.Description, Default: defaults[preset.Locale.Name]})
	}

	names := make([]string, 0, len(cfg.Locales.Custom))
	for name := range cfg.Locales.Custom {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		spec := cfg.Locales.Custom[name]
		if spec.Name == "" {
			spec.Name = name
		}
		rows = append(rows, localeRow{Locale: spec, Description: "custom", Custom: true, Default: defaults[spec.Name]})
	}
	return rows
}

func init() {
	rootCmd.AddCommand(localesCmd)
	addOutputFlags(localesCmd, "table|json")
}
