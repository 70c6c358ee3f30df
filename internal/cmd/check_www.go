package cmd

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brandlens/brandlens/internal/core"
	"github.com/brandlens/brandlens/internal/core/checker"
	"github.com/brandlens/brandlens/internal/output"
)

var checkWWWCmd = &cobra.Command{
	Use:   "check-www <brand> [brand...]",
	Short: "Check .com availability and whether www resolves",
	Long: `Look up <brand>.com over RDAP and, unless --doh none, whether www.<brand>.com
has an A record via DNS-over-HTTPS. Availability always comes from RDAP; the www
probe is informational.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheckWWW,
}

func init() {
	rootCmd.AddCommand(checkWWWCmd)

	checkWWWCmd.Flags().String("doh", "", "DoH resolver: google|cloudflare|none (default from config)")
	checkWWWCmd.Flags().Bool("json", false, "Output JSON")
	checkWWWCmd.Flags().Int("concurrency", 4, "Lookups in flight when checking several brands")
	checkWWWCmd.Flags().Bool("no-cache", false, "Bypass the provider result cache")
}

func runCheckWWW(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	doh, _ := cmd.Flags().GetString("doh")
	doh = strings.ToLower(strings.TrimSpace(doh))
	if doh != "" && doh != "none" && !validDoHProvider(doh) {
		return &core.ValidationError{Field: "doh", Reason: "must be one of " + strings.Join(append(checker.DoHProviders(), "none"), ", ")}
	}
	bindFlags(cmd, map[string]string{"providers.domain.doh_provider": "doh"})

	noCache, _ := cmd.Flags().GetBool("no-cache")
	rt, err := openRuntime(ctx, !noCache)
	if err != nil {
		return err
	}
	defer rt.Close()

	concurrency, _ := cmd.Flags().GetInt("concurrency")
	outcomes := rt.domain.CheckMany(ctx, args, concurrency)
	probe := rt.dohProbe(doh)

	reports := make([]*output.DomainReport, 0, len(outcomes))
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			return outcome.Err
		}
		reports = append(reports, checkWWW(ctx, probe, outcome.Result))
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		var payload []byte
		if len(reports) == 1 {
			payload, err = json.MarshalIndent(reports[0], "", "  ")
		} else {
			payload, err = json.MarshalIndent(reports, "", "  ")
		}
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(append(payload, '\n'))
		return err
	}

	formatter := output.NewFormatter(output.FormatTable)
	for _, report := range reports {
		rendered, err := formatter.FormatDomain(report)
		if err != nil {
			return err
		}
		if _, err := cmd.OutOrStdout().Write([]byte(strings.TrimRight(rendered, "\n") + "\n")); err != nil {
			return err
		}
	}
	return nil
}

// checkWWW attaches the www probe outcome to a domain result. Probe failures are
// recorded on the report rather than returned.
func checkWWW(ctx context.Context, probe *checker.DoHProbe, result *core.DomainResult) *output.DomainReport {
	report := &output.DomainReport{Result: result}
	if probe == nil || result == nil {
		return report
	}
	report.DoHProvider = probe.Provider
	resolves, err := probe.WWWResolves(ctx, result.Domain)
	if err != nil {
		report.WWWError = err.Error()
		return report
	}
	report.WWWResolves = &resolves
	return report
}

func validDoHProvider(name string) bool {
	for _, known := range checker.DoHProviders() {
		if name == known {
			return true
		}
	}
	return false
}
