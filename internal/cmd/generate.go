package cmd

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brandlens/brandlens/internal/core"
	"github.com/brandlens/brandlens/internal/core/namegen"
	"github.com/brandlens/brandlens/internal/output"
)

var generateCmd = &cobra.Command{
	Use:   "generate <keyword> [keyword...]",
	Short: "Generate brand name ideas from keywords",
	Long: `Generate deterministic brand name ideas by combining each keyword with a fixed
set of prefixes, an optional style infix and suffixes. With --evaluate every idea is
scored the same way as 'batch'.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().String("style", "", "Style hint: "+strings.Join(namegen.Styles(), "|"))
	generateCmd.Flags().Int("limit", namegen.DefaultLimit, "Maximum number of ideas")
	generateCmd.Flags().Bool("evaluate", false, "Evaluate every generated idea")
	generateCmd.Flags().Bool("no-history", false, "Do not record evaluations")
	addScoringFlags(generateCmd.Flags())
	addLocaleFlags(generateCmd.Flags())
	addOutputFlags(generateCmd, "table|json|markdown|yaml")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	styleFlag, _ := cmd.Flags().GetString("style")
	style, err := namegen.ParseStyle(styleFlag)
	if err != nil {
		return &core.ValidationError{Field: "style", Reason: err.Error()}
	}
	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		return &core.ValidationError{Field: "limit", Reason: "must be positive"}
	}

	names := namegen.Generate(args, style, limit)
	if len(names) == 0 {
		return &core.ValidationError{Field: "keywords", Reason: "no usable letters or digits"}
	}

	if evaluate, _ := cmd.Flags().GetBool("evaluate"); !evaluate {
		return writeNames(cmd, format, names)
	}

	if err := validateScoringFlags(cmd.Flags()); err != nil {
		return err
	}
	bindFlags(cmd, scoringFlagKeys)

	noCache, _ := cmd.Flags().GetBool("no-cache")
	rt, err := openRuntime(cmd.Context(), !noCache)
	if err != nil {
		return err
	}
	defer rt.Close()

	locales, err := resolveLocaleFlags(cmd.Flags(), rt.cfg)
	if err != nil {
		return err
	}
	results, err := evaluateTitles(cmd, rt, names, locales)
	if err != nil {
		return err
	}
	rendered, err := output.NewFormatter(format).FormatBatch(results)
	if err != nil {
		return err
	}
	return writeRendered(cmd, "generate", format, rendered)
}

func writeNames(cmd *cobra.Command, format output.Format, names []string) error {
	var rendered string
	switch format {
	case output.FormatJSON:
		payload, err := json.MarshalIndent(names, "", "  ")
		if err != nil {
			return err
		}
		rendered = string(payload)
	case output.FormatMarkdown, output.FormatYAML:
		lines := make([]string, 0, len(names))
		for _, name := range names {
			lines = append(lines, "- "+name)
		}
		rendered = strings.Join(lines, "\n")
	default:
		rendered = strings.Join(names, "\n")
	}
	return writeRendered(cmd, "generate", format, rendered)
}
