package cmd

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/brandlens/brandlens/internal/core"
	"github.com/brandlens/brandlens/internal/core/store"
	"github.com/brandlens/brandlens/internal/output"
)

var historyCmd = &cobra.Command{
	Use:   "history [title]",
	Short: "Show recorded evaluations",
	Long:  "Show recorded evaluations, newest first. With a title, only that title's evaluations are listed.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}
		if format != output.FormatJSON && format != output.FormatTable {
			return &core.ValidationError{Field: "output", Reason: "history supports table and json"}
		}
		limit, _ := cmd.Flags().GetInt("limit")

		cfg, err := loadConfig(cmd.Context())
		if err != nil {
			return err
		}
		db, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		title := ""
		if len(args) == 1 {
			title = strings.TrimSpace(args[0])
		}
		records, err := db.RecentEvaluations(cmd.Context(), title, limit)
		if err != nil {
			return err
		}

		rendered, err := renderHistory(format, records)
		if err != nil {
			return err
		}
		return writeRendered(cmd, "history", format, rendered)
	},
}

type historyEntry struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	OverallScore int        `json:"overall_score"`
	Grade        core.Grade `json:"grade"`
	Engine       string     `json:"engine,omitempty"`
	EvaluatedAt  time.Time  `json:"evaluated_at"`
}

func renderHistory(format output.Format, records []store.EvaluationRecord) (string, error) {
	entries := make([]historyEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, historyEntry{
			ID:           rec.ID,
			Title:        rec.Title,
			OverallScore: rec.OverallScore,
			Grade:        rec.Grade,
			Engine:       rec.Engine,
			EvaluatedAt:  rec.EvaluatedAt,
		})
	}

	if format == output.FormatJSON {
		payload, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return "", err
		}
		return string(payload), nil
	}

	if len(entries) == 0 {
		return "No recorded evaluations.", nil
	}
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"ID", "Title", "Score", "Grade", "Engine", "Evaluated"})
	for _, e := range entries {
		t.AppendRow(table.Row{e.ID, e.Title, e.OverallScore, string(e.Grade), e.Engine, e.EvaluatedAt.Format(time.RFC3339)})
	}
	return t.Render(), nil
}

func init() {
	rootCmd.AddCommand(historyCmd)
	addOutputFlags(historyCmd, "table|json")
	historyCmd.Flags().Int("limit", 20, "Maximum number of evaluations")
}
