package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the persisted provider result cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete cached provider results",
	Long: `Delete cached provider results. Use --provider to limit the reset to one source
(rdap, appfollow, playstore, dataforseo, doh), --all to clear every provider, or
--expired to drop only entries past their TTL.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, _ := cmd.Flags().GetString("provider")
		provider = strings.TrimSpace(provider)
		all, _ := cmd.Flags().GetBool("all")
		expired, _ := cmd.Flags().GetBool("expired")

		if provider == "" && !all && !expired {
			return errors.New("specify --provider, --all or --expired")
		}
		if provider != "" && all {
			return errors.New("--provider and --all are mutually exclusive")
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

		var deleted int64
		if expired && provider == "" && !all {
			deleted, err = db.PurgeExpiredCache(cmd.Context())
		} else {
			deleted, err = db.ClearCache(cmd.Context(), provider)
		}
		if err != nil {
			return err
		}

		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d cache entr(ies)\n", deleted)
		return err
	},
}

func init() {
	cacheClearCmd.Flags().String("provider", "", "Only clear entries for this provider")
	cacheClearCmd.Flags().Bool("all", false, "Clear every provider")
	cacheClearCmd.Flags().Bool("expired", false, "Only remove expired entries")

	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
