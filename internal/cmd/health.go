package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/brandlens/brandlens/internal/core/checker"
	errwrap "github.com/brandlens/brandlens/internal/errors"
	"github.com/brandlens/brandlens/internal/observability"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long:  "Run a self-health check to verify the application can start successfully.",
	Run: func(cmd *cobra.Command, args []string) {
		if observability.CLILogger == nil {
			ExitWithCodeStderr(foundry.ExitConfigInvalid, "Logger not initialized", errwrap.NewConfigInvalidError("Logger not initialized"))
			return
		}
		observability.CLILogger.Info("Running health check...")

		if versionInfo.Version == "" {
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Version information missing", errwrap.NewConfigInvalidError("Version information missing"))
			return
		}
		observability.CLILogger.Debug("Version check passed", zap.String("version", versionInfo.Version))
		observability.CLILogger.Info("✅ Version information available")

		cfg, err := loadConfig(cmd.Context())
		if err != nil {
			ExitWithCode(observability.CLILogger, ExitCodeFor(err), "Configuration invalid", errwrap.WrapConfigInvalid(cmd.Context(), err, "configuration invalid"))
			return
		}
		observability.CLILogger.Info("✅ Configuration loaded",
			zap.String("matcher_engine", cfg.Uniqueness.MatcherEngine),
			zap.String("aggregation", string(cfg.Uniqueness.Aggregation)))

		_ = checker.LoadDotEnv(envFiles(cfg)...)
		for _, name := range missingCredentials(credentialsFor(cfg)) {
			observability.CLILogger.Warn("⚠️  Provider credentials missing; component will score neutral", zap.String("component", string(name)))
		}

		observability.CLILogger.Info("✅ All health checks passed")
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
