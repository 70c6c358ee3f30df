package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/brandlens/brandlens/internal/config"
	"github.com/brandlens/brandlens/internal/core"
	"github.com/brandlens/brandlens/internal/observability"
	"github.com/brandlens/brandlens/internal/output"
)

// scoringFlagKeys maps config keys to the shared scoring flags.
var scoringFlagKeys = map[string]string{
	"uniqueness.matcher_engine": "engine",
	"uniqueness.aggregation":    "aggregation",
	"providers.timeout":         "timeout",
	"providers.sequential":      "sequential",
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <title>",
	Short: "Evaluate how unique a title is",
	Long: `Evaluate a brand or app title against .com availability, two app store
suggestion sources and web search results, and report a 0-100 score and grade.

Titles with spaces may be quoted or passed as several arguments.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	addScoringFlags(evaluateCmd.Flags())
	addLocaleFlags(evaluateCmd.Flags())
	addOutputFlags(evaluateCmd, "table|json|markdown|yaml")
	evaluateCmd.Flags().Bool("no-history", false, "Do not record the evaluation")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	title := strings.TrimSpace(strings.Join(args, " "))

	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	if err := validateScoringFlags(cmd.Flags()); err != nil {
		return err
	}
	bindFlags(cmd, scoringFlagKeys)

	noCache, _ := cmd.Flags().GetBool("no-cache")
	rt, err := openRuntime(ctx, !noCache)
	if err != nil {
		return err
	}
	defer rt.Close()

	locales, err := resolveLocaleFlags(cmd.Flags(), rt.cfg)
	if err != nil {
		return err
	}

	started := time.Now()
	report, err := rt.evaluator.Evaluate(ctx, title, locales, rt.cfg.Uniqueness)
	if err != nil {
		return err
	}
	observability.CLILogger.Debug("Evaluation finished",
		zap.String("title", report.Title),
		zap.Int("score", report.OverallScore),
		zap.Duration("elapsed", time.Since(started)))

	if noHistory, _ := cmd.Flags().GetBool("no-history"); !noHistory {
		rt.save(ctx, report)
	}

	rendered, err := output.NewFormatter(format).FormatReport(report)
	if err != nil {
		return err
	}
	return writeRendered(cmd, "evaluate."+title, format, rendered)
}

func addScoringFlags(flags *pflag.FlagSet) {
	flags.String("engine", "", "Matcher engine: auto|fast|builtin (default from config)")
	flags.String("aggregation", "", "Locale aggregation: min|weighted (default from config)")
	flags.Duration("timeout", 0, "Per-provider call timeout (default from config)")
	flags.Bool("sequential", false, "Call providers one at a time")
	flags.Bool("no-cache", false, "Bypass the provider result cache")
}

func validateScoringFlags(flags *pflag.FlagSet) error {
	if value, _ := flags.GetString("engine"); value != "" {
		if _, ok := core.CanonicalEngine(value); !ok {
			return &core.ValidationError{Field: "engine", Reason: fmt.Sprintf("unknown matcher engine %q", value)}
		}
	}
	if value, _ := flags.GetString("aggregation"); value != "" {
		if _, ok := core.ParseAggregationMode(value); !ok {
			return &core.ValidationError{Field: "aggregation", Reason: fmt.Sprintf("unknown aggregation mode %q", value)}
		}
	}
	if value, _ := flags.GetDuration("timeout"); value < 0 {
		return &core.ValidationError{Field: "timeout", Reason: "must not be negative"}
	}
	return nil
}

func addLocaleFlags(flags *pflag.FlagSet) {
	flags.StringSlice("locale", nil, "Locale preset (repeatable, see 'locales')")
	flags.String("country", "", "Store country for a custom locale (e.g. us)")
	flags.String("hl", "", "Interface language for a custom locale (default en)")
	flags.String("gl", "", "Search country for a custom locale (default country)")
	flags.Int("location-code", 0, "SERP location code for a custom locale")
	flags.String("language-code", "", "SERP language code for a custom locale (default hl)")
	flags.Float64("weight", 1, "Weight of the custom locale in weighted aggregation")
}

// resolveLocaleFlags returns the preset locales named with --locale followed by the
// custom locale described by the field flags. With neither, the configured
// defaults apply.
func resolveLocaleFlags(flags *pflag.FlagSet, cfg *config.Config) ([]core.LocaleSpec, error) {
	presets, _ := flags.GetStringSlice("locale")
	locales, err := core.ResolveLocales(presets, cfg.Locales.Custom)
	if err != nil {
		return nil, err
	}

	if changed(flags, "country", "hl", "gl", "location-code", "language-code", "weight") {
		country, _ := flags.GetString("country")
		hl, _ := flags.GetString("hl")
		gl, _ := flags.GetString("gl")
		locationCode, _ := flags.GetInt("location-code")
		languageCode, _ := flags.GetString("language-code")
		weight, _ := flags.GetFloat64("weight")

		custom := customLocale(country, hl, gl, locationCode, languageCode, weight)
		if err := core.ValidateLocale(custom); err != nil {
			return nil, err
		}
		locales = append(locales, custom)
	}

	if len(locales) == 0 {
		return cfg.DefaultLocales(), nil
	}
	return locales, nil
}

func customLocale(country, hl, gl string, locationCode int, languageCode string, weight float64) core.LocaleSpec {
	country = strings.ToLower(strings.TrimSpace(country))
	hl = strings.ToLower(strings.TrimSpace(hl))
	if hl == "" {
		hl = "en"
	}
	gl = strings.ToUpper(strings.TrimSpace(gl))
	if gl == "" {
		gl = strings.ToUpper(country)
	}
	if country == "" {
		country = strings.ToLower(gl)
	}
	languageCode = strings.TrimSpace(languageCode)
	if languageCode == "" {
		languageCode = hl
	}
	return core.LocaleSpec{
		Name:         "custom",
		Country:      country,
		HL:           hl,
		GL:           gl,
		LocationCode: locationCode,
		LanguageCode: languageCode,
		Weight:       weight,
	}
}

// writeRendered writes rendered output to the command's output target.
func writeRendered(cmd *cobra.Command, name string, format output.Format, rendered string) error {
	sink, err := openTarget(cmd, name, format)
	if err != nil {
		return err
	}
	defer func() { _ = sink.close() }()

	if _, err := fmt.Fprintln(sink.writer, strings.TrimRight(rendered, "\n")); err != nil {
		return err
	}
	if sink.path != "-" {
		observability.CLILogger.Info("Output written", zap.String("path", sink.path))
	}
	return nil
}
