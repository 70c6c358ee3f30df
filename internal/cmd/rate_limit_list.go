package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/spf13/cobra"

	"github.com/brandlens/brandlens/internal/core/engine"
	"github.com/brandlens/brandlens/internal/core/store"
	"github.com/brandlens/brandlens/internal/output"
)

var rateLimitListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored rate limit windows per provider host",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}
		if format != output.FormatJSON && format != output.FormatTable {
			return fmt.Errorf("unsupported output format: %s", format)
		}

		cfg, err := loadConfig(cmd.Context())
		if err != nil {
			return err
		}
		db, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		all, _ := cmd.Flags().GetBool("all")
		prefix, _ := cmd.Flags().GetString("prefix")
		query := store.RateLimitQuery{All: all, Prefix: strings.TrimSpace(prefix)}
		if !query.All && query.Prefix == "" {
			query.All = true
		}

		entries, err := db.ListRateLimits(cmd.Context(), query)
		if err != nil {
			return err
		}

		limiter := &engine.RateLimiter{}
		limiter.ApplyOverrides(cfg.RateLimits)
		limiter.ApplySafetyMargin(cfg.RateLimitMargin)
		views := rateLimitViews(limiter, entries, time.Now().UTC())

		if format == output.FormatJSON {
			payload, err := json.MarshalIndent(views, "", "  ")
			if err != nil {
				return err
			}
			return writeRendered(cmd, "rate-limit.list", format, string(payload))
		}
		return writeRendered(cmd, "rate-limit.list", format, drawRateLimits(views))
	},
}

type rateLimitView struct {
	Endpoint     string     `json:"endpoint"`
	RequestCount int        `json:"request_count"`
	Limit        int        `json:"limit"`
	Window       string     `json:"window"`
	WindowStart  time.Time  `json:"window_start"`
	BackoffUntil *time.Time `json:"backoff_until,omitempty"`
	Last429At    *time.Time `json:"last_429_at,omitempty"`
	Blocked      bool       `json:"blocked"`
}

func rateLimitViews(limiter *engine.RateLimiter, entries []store.RateLimitEntry, now time.Time) []rateLimitView {
	views := make([]rateLimitView, 0, len(entries))
	for _, entry := range entries {
		limit := limiter.EffectiveLimit(entry.Endpoint)
		count := entry.State.RequestCount
		if now.After(entry.State.WindowStart.Add(limit.WindowDuration)) {
			count = 0
		}
		backoff := entry.State.BackoffUntil != nil && now.Before(*entry.State.BackoffUntil)
		views = append(views, rateLimitView{
			Endpoint:     entry.Endpoint,
			RequestCount: count,
			Limit:        limit.RequestsPerWindow,
			Window:       limit.WindowDuration.String(),
			WindowStart:  entry.State.WindowStart,
			BackoffUntil: entry.State.BackoffUntil,
			Last429At:    entry.State.Last429At,
			Blocked:      backoff || count >= limit.RequestsPerWindow,
		})
	}
	return views
}

func drawRateLimits(views []rateLimitView) string {
	lines := []string{"Rate Limits", ""}
	if len(views) == 0 {
		lines = append(lines, "(no stored rate limit state)")
		return ascii.DrawBox(strings.Join(lines, "\n"), 0)
	}

	for _, v := range views {
		backoff := "-"
		if v.BackoffUntil != nil {
			backoff = v.BackoffUntil.UTC().Format(time.RFC3339)
		}
		status := "open"
		if v.Blocked {
			status = "blocked"
		}
		lines = append(lines, fmt.Sprintf("%s: %d/%d per %s, %s, backoff_until=%s", v.Endpoint, v.RequestCount, v.Limit, v.Window, status, backoff))
	}
	return ascii.DrawBox(strings.Join(lines, "\n"), 0)
}

func init() {
	addOutputFlags(rateLimitListCmd, "table|json")
	rateLimitListCmd.Flags().Bool("all", false, "List all endpoints")
	rateLimitListCmd.Flags().String("prefix", "", "List endpoints with matching prefix")
}
