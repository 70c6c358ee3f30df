package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/brandlens/brandlens/internal/appid"
	"github.com/brandlens/brandlens/internal/config"
	"github.com/brandlens/brandlens/internal/observability"
)

var (
	cfgFile  string
	verbose  bool
	logLevel string

	// App identity loaded from .fulmen/app.yaml
	appIdentity *appidentity.Identity

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// GetAppIdentity returns the loaded app identity (only valid after initConfig)
func GetAppIdentity() *appidentity.Identity {
	return appIdentity
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	// NOTE: initConfig() overwrites these from app identity.
	Use:   filepath.Base(os.Args[0]),
	Short: "Score how distinct a brand or app name is",
	Long: `Score how distinct a brand or app name is across domains, app stores and search.

Use the subcommands to perform specific operations.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Disable global telemetry early to prevent config loading from emitting
	// metrics to stdout. Server mode will initialize proper telemetry later.
	disabledConfig := &telemetry.Config{Enabled: false}
	if sys, err := telemetry.NewSystem(disabledConfig); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	// Load app identity early for help text (before cobra processes --help)
	if identity, err := appid.Get(context.Background()); err == nil && identity != nil {
		appIdentity = identity
		applyIdentity(identity)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional; defaults to app identity config path)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: trace|debug|info|warn|error")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig wires the explicit config path and the CLI logger.
func initConfig() {
	identity, err := appid.Get(context.Background())
	if err != nil {
		ExitWithCodeStderr(foundry.ExitFileNotFound, "Failed to load app identity from .fulmen/app.yaml", err)
	}
	appIdentity = identity
	applyIdentity(identity)

	config.ConfigFile = strings.TrimSpace(cfgFile)
	viper.SetEnvPrefix(strings.TrimSuffix(identity.EnvPrefix, "_"))
	viper.AutomaticEnv()

	level := strings.TrimSpace(logLevel)
	if level == "" {
		level = os.Getenv(identity.EnvPrefix + "LOG_LEVEL")
	}
	observability.InitCLILogger(identity.BinaryName, level, verbose)
	if config.ConfigFile != "" {
		observability.CLILogger.Debug("Using config file", zap.String("path", config.ConfigFile))
	}
}

func applyIdentity(identity *appidentity.Identity) {
	if identity == nil {
		return
	}
	if identity.BinaryName != "" {
		rootCmd.Use = identity.BinaryName
	}
	if identity.Description != "" {
		rootCmd.Short = identity.Description
		rootCmd.Long = fmt.Sprintf("%s - %s\n\nUse the subcommands to perform specific operations.", identity.BinaryName, identity.Description)
	}
	if f := rootCmd.PersistentFlags().Lookup("config"); f != nil && identity.ConfigName != "" {
		f.Usage = fmt.Sprintf("config file (default is ./%s.yaml or $XDG_CONFIG_HOME/%s/config.yaml)", identity.BinaryName, identity.ConfigName)
	}
}

// bindFlags binds command flags to config keys for this invocation. Only flags the
// user actually set become overrides.
func bindFlags(cmd *cobra.Command, keys map[string]string) {
	for key, name := range keys {
		if f := cmd.Flags().Lookup(name); f != nil {
			_ = viper.BindPFlag(key, f)
		}
	}
}

// loadConfig resolves configuration with bound flag values as the runtime layer.
func loadConfig(ctx context.Context) (*config.Config, error) {
	return config.Load(ctx, flagOverrides(viper.GetViper()))
}

// overrideKeys are the config keys a command flag may override.
var overrideKeys = []string{
	"logging.level",
	"uniqueness.matcher_engine",
	"uniqueness.aggregation",
	"providers.timeout",
	"providers.sequential",
	"providers.domain.doh_provider",
	"server.host",
	"server.port",
	"workers",
}

func flagOverrides(v *viper.Viper) map[string]any {
	out := map[string]any{}
	for _, key := range overrideKeys {
		if !v.IsSet(key) {
			continue
		}
		value := v.Get(key)
		if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		setPath(out, strings.Split(key, "."), value)
	}
	return out
}

func setPath(dst map[string]any, path []string, value any) {
	for _, part := range path[:len(path)-1] {
		next, ok := dst[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			dst[part] = next
		}
		dst = next
	}
	dst[path[len(path)-1]] = value
}

// changed reports whether any of the named flags was set on the command line.
func changed(flags *pflag.FlagSet, names ...string) bool {
	for _, name := range names {
		if flags.Changed(name) {
			return true
		}
	}
	return false
}
