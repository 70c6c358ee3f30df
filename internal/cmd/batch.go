package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/brandlens/brandlens/internal/core"
	"github.com/brandlens/brandlens/internal/observability"
	"github.com/brandlens/brandlens/internal/output"
)

var batchCmd = &cobra.Command{
	Use:   "batch <file|->",
	Short: "Evaluate many titles from a file",
	Long: `Evaluate every title in a file (one per line, '#' comments allowed) or stdin
when the argument is '-'. Titles run on a worker pool; a failing title is reported
in its row and does not stop the batch.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	addScoringFlags(batchCmd.Flags())
	addLocaleFlags(batchCmd.Flags())
	addOutputFlags(batchCmd, "table|json|markdown|yaml")
	batchCmd.Flags().Int("workers", 0, "Titles evaluated concurrently (default from config)")
	batchCmd.Flags().Bool("no-history", false, "Do not record the evaluations")
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	if err := validateScoringFlags(cmd.Flags()); err != nil {
		return err
	}
	titles, err := readTitlesFile(args[0])
	if err != nil {
		return err
	}

	keys := map[string]string{"workers": "workers"}
	for key, name := range scoringFlagKeys {
		keys[key] = name
	}
	bindFlags(cmd, keys)

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

	results, err := evaluateTitles(cmd, rt, titles, locales)
	if err != nil {
		return err
	}

	rendered, err := output.NewFormatter(format).FormatBatch(results)
	if err != nil {
		return err
	}
	return writeRendered(cmd, "batch", format, rendered)
}

// evaluateTitles runs a batch and records each finished report.
func evaluateTitles(cmd *cobra.Command, rt *appRuntime, titles []string, locales []core.LocaleSpec) ([]core.BatchResult, error) {
	ctx := cmd.Context()
	startedAt := time.Now()

	results, err := rt.evaluator.EvaluateBatch(ctx, titles, locales, rt.cfg.Uniqueness, rt.cfg.Workers)
	if err != nil {
		return nil, err
	}

	noHistory, _ := cmd.Flags().GetBool("no-history")
	failed := 0
	for _, result := range results {
		if result.Error != "" {
			failed++
			continue
		}
		if !noHistory {
			rt.save(ctx, result.Report)
		}
	}
	if failed > 0 {
		observability.CLILogger.Warn("Some titles could not be evaluated", zap.Int("failed", failed))
	}
	logThroughput(len(results), startedAt)
	return results, nil
}

func logThroughput(count int, startedAt time.Time) {
	if count <= 0 {
		return
	}
	elapsed := time.Since(startedAt)
	if elapsed <= 0 {
		return
	}
	rate := float64(count) / elapsed.Seconds()
	observability.CLILogger.Info(
		"Batch throughput",
		zap.Int("titles", count),
		zap.Duration("elapsed", elapsed),
		zap.Float64("rate_per_sec", rate),
	)
}
