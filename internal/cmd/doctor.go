package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/brandlens/brandlens/internal/config"
	"github.com/brandlens/brandlens/internal/core/checker"
	"github.com/brandlens/brandlens/internal/observability"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long:  "Run diagnostic checks on configuration, the store and provider credentials, and suggest fixes for common issues.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		log := observability.CLILogger
		const total = 6
		allChecks := true

		log.Info(fmt.Sprintf("[1/%d] Runtime... ✅ %s %s/%s", total, runtime.Version(), runtime.GOOS, runtime.GOARCH))

		version := crucible.GetVersion()
		if version.Crucible != "" && version.Gofulmen != "" {
			log.Info(fmt.Sprintf("[2/%d] Gofulmen/Crucible... ✅ %s / %s", total, version.Gofulmen, version.Crucible))
		} else {
			log.Warn(fmt.Sprintf("[2/%d] Gofulmen/Crucible... ⚠️  version metadata unavailable", total))
			allChecks = false
		}

		configPath := config.DefaultConfigPath()
		switch {
		case config.ConfigFile != "":
			log.Info(fmt.Sprintf("[3/%d] Config file... ✅ %s (explicit)", total, config.ConfigFile))
		case configPath != "" && fileExists(configPath):
			log.Info(fmt.Sprintf("[3/%d] Config file... ✅ %s", total, configPath))
		default:
			log.Info(fmt.Sprintf("[3/%d] Config file... ✅ none, using built-in defaults", total))
		}

		cfg, err := loadConfig(ctx)
		if err != nil {
			log.Error(fmt.Sprintf("[4/%d] Configuration... ❌ %v", total, err))
			log.Info("")
			log.Warn("⚠️  Fix the configuration first; remaining checks skipped.")
			return
		}
		log.Info(fmt.Sprintf("[4/%d] Configuration... ✅ engine=%s aggregation=%s locales=%s", total,
			cfg.Uniqueness.MatcherEngine, cfg.Uniqueness.Aggregation, strings.Join(cfg.Locales.Default, ",")))

		if db, err := openStore(ctx, cfg); err != nil {
			log.Warn(fmt.Sprintf("[5/%d] Store... ⚠️  %v (evaluations will use the memory cache)", total, err))
			allChecks = false
		} else {
			_ = db.Close()
			log.Info(fmt.Sprintf("[5/%d] Store... ✅ %s", total, describeStore(cfg.Store)), zap.String("driver", cfg.Store.Driver))
		}

		if err := checker.LoadDotEnv(envFiles(cfg)...); err != nil {
			log.Warn("Failed to load env file", zap.Error(err))
		}
		if missing := missingCredentials(credentialsFor(cfg)); len(missing) > 0 {
			names := make([]string, 0, len(missing))
			for _, name := range missing {
				names = append(names, string(name))
			}
			log.Warn(fmt.Sprintf("[6/%d] Provider credentials... ⚠️  missing for %s", total, strings.Join(names, ", ")))
			log.Info("       Set APPFOLLOW_API_KEY and DATAFORSEO_LOGIN/DATAFORSEO_PASSWORD in the environment or " + cfg.Providers.EnvFile)
			allChecks = false
		} else {
			log.Info(fmt.Sprintf("[6/%d] Provider credentials... ✅ configured", total))
		}

		log.Info("")
		if allChecks {
			log.Info("✅ All checks passed!")
		} else {
			log.Warn("⚠️  Some checks need attention. Affected components score neutral until fixed.")
		}
	},
}

var doctorValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Context())
		if err != nil {
			return err
		}
		observability.CLILogger.Info("Config is valid",
			zap.String("matcher_engine", cfg.Uniqueness.MatcherEngine),
			zap.Int("total_weight", cfg.Uniqueness.TotalWeight()))
		return nil
	},
}

var doctorResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove the user config file and/or local database",
	RunE: func(cmd *cobra.Command, args []string) error {
		resetConfig, _ := cmd.Flags().GetBool("config")
		resetData, _ := cmd.Flags().GetBool("data")
		if all, _ := cmd.Flags().GetBool("all"); all {
			resetConfig, resetData = true, true
		}
		if !resetConfig && !resetData {
			return fmt.Errorf("specify --config, --data, or --all")
		}

		if resetConfig {
			if err := removeFile("Config", config.DefaultConfigPath()); err != nil {
				return err
			}
		}
		if resetData {
			cfg, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.Store.URL) != "" {
				return fmt.Errorf("remote store configured; database reset is not supported")
			}
			absPath, _ := filepath.Abs(cfg.Store.Path)
			if err := removeFile("Database", absPath); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.AddCommand(doctorValidateCmd)
	doctorCmd.AddCommand(doctorResetCmd)

	doctorResetCmd.Flags().Bool("config", false, "remove user config file")
	doctorResetCmd.Flags().Bool("data", false, "remove local database")
	doctorResetCmd.Flags().Bool("all", false, "remove config and data")
}

func removeFile(label, path string) error {
	if strings.TrimSpace(path) == "" {
		observability.CLILogger.Warn(label + " path not resolved; skipping")
		return nil
	}
	err := os.Remove(path)
	switch {
	case err == nil:
		observability.CLILogger.Info(label+" removed", zap.String("path", path))
	case os.IsNotExist(err):
		observability.CLILogger.Info(label+" already removed", zap.String("path", path))
	default:
		return fmt.Errorf("remove %s: %w", strings.ToLower(label), err)
	}
	return nil
}

func describeStore(cfg config.StoreConfig) string {
	if strings.TrimSpace(cfg.URL) != "" {
		return cfg.URL + " (remote)"
	}
	absPath, _ := filepath.Abs(cfg.Path)
	if info, err := os.Stat(absPath); err == nil {
		return fmt.Sprintf("%s (%s)", absPath, formatFileSize(info.Size()))
	}
	return absPath
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// formatFileSize returns a human-readable file size
func formatFileSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)
	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}
