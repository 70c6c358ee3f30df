package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"

	"github.com/brandlens/brandlens/internal/core/matcher"
)

type versionReport struct {
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	Commit    string   `json:"commit"`
	BuildDate string   `json:"build_date"`
	Go        string   `json:"go"`
	Gofulmen  string   `json:"gofulmen"`
	Crucible  string   `json:"crucible"`
	Engines   []string `json:"matcher_engines"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version information. Use --extended for build, Go, Crucible and matcher engine details.",
	RunE: func(cmd *cobra.Command, args []string) error {
		identity := GetAppIdentity()
		extended, _ := cmd.Flags().GetBool("extended")
		asJSON, _ := cmd.Flags().GetBool("json")
		out := cmd.OutOrStdout()

		version := crucible.GetVersion()
		report := versionReport{
			Name:      identity.BinaryName,
			Version:   versionInfo.Version,
			Commit:    versionInfo.Commit,
			BuildDate: versionInfo.BuildDate,
			Go:        runtime.Version(),
			Gofulmen:  version.Gofulmen,
			Crucible:  version.Crucible,
			Engines:   matcher.DefaultRegistry.Available(),
		}

		if asJSON {
			payload, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, string(payload))
			return err
		}

		_, _ = fmt.Fprintf(out, "%s %s\n", report.Name, report.Version)
		if !extended {
			return nil
		}
		_, _ = fmt.Fprintf(out, "Commit: %s\n", report.Commit)
		_, _ = fmt.Fprintf(out, "Built: %s\n", report.BuildDate)
		_, _ = fmt.Fprintf(out, "Go: %s\n\n", report.Go)
		_, _ = fmt.Fprintf(out, "Gofulmen: %s\n", report.Gofulmen)
		_, _ = fmt.Fprintf(out, "Crucible: %s\n", report.Crucible)
		_, _ = fmt.Fprintf(out, "Matcher engines: %v\n", report.Engines)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolP("extended", "e", false, "show extended version information")
	versionCmd.Flags().Bool("json", false, "output JSON")
}
