// Package config provides centralized configuration management for BrandLens.
// Resolution is layered:
// Layer 1: embedded defaults (brandlens-defaults.yaml)
// Layer 2: config file (--config, $BRANDLENS_CONFIG, ./brandlens.yaml, XDG config dir)
// Layer 3: environment variables and runtime overrides
package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/fulmenhq/gofulmen/appidentity"
	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"

	"github.com/brandlens/brandlens/internal/appid"
	"github.com/brandlens/brandlens/internal/core"
)

//go:embed brandlens-defaults.yaml
var defaultsYAML []byte

var (
	// appConfig holds the current application configuration
	appConfig   *Config
	configMu    sync.RWMutex
	appIdentity *appidentity.Identity

	// ConfigFile, when set, is the explicit config file path (the --config flag).
	ConfigFile string
)

// EnvVarSpec defines environment variable mappings for config fields
// following the pattern: {PREFIX}{NAME} maps to config path
type EnvVarSpec = gfconfig.EnvVarSpec

// Environment variable types
const (
	EnvString = gfconfig.EnvString
	EnvInt    = gfconfig.EnvInt
	EnvBool   = gfconfig.EnvBool
)

// Load resolves configuration through every layer and validates the scoring
// section. Scoring problems are returned as *core.ConfigError.
//
// This function is safe to call multiple times (e.g., for config reload)
func Load(ctx context.Context, runtimeOverrides ...map[string]any) (*Config, error) {
	if appIdentity == nil {
		identity, err := appid.Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load app identity: %w", err)
		}
		appIdentity = identity
	}

	merged := map[string]any{}
	var defaults map[string]any
	if err := yaml.Unmarshal(defaultsYAML, &defaults); err != nil {
		return nil, fmt.Errorf("failed to parse embedded defaults: %w", err)
	}
	mergeMaps(merged, defaults)

	path, err := resolveConfigFile()
	if err != nil {
		return nil, err
	}
	if path != "" {
		fileLayer, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		mergeMaps(merged, fileLayer)
	}

	envOverrides, err := gfconfig.LoadEnvOverrides(getEnvSpecs())
	if err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}
	if envOverrides == nil {
		envOverrides = map[string]any{}
	}
	if value := strings.TrimSpace(os.Getenv(envPrefix() + "RATE_LIMIT_MARGIN")); value != "" {
		margin, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid rate limit margin: %w", err)
		}
		envOverrides["rate_limit_margin"] = margin
	}
	mergeMaps(merged, envOverrides)

	for _, overrides := range runtimeOverrides {
		mergeMaps(merged, overrides)
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
			localeWeightHook(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(merged); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	setConfig(cfg)
	return cfg, nil
}

// Validate checks the scoring section and user-defined locales.
func (c *Config) Validate() error {
	if err := c.Uniqueness.Validate(); err != nil {
		return err
	}
	for name, locale := range c.Locales.Custom {
		if err := core.ValidateLocale(locale); err != nil {
			return &core.ConfigError{Field: "locales.custom." + name, Reason: err.Error()}
		}
	}
	if _, err := core.ResolveLocales(c.Locales.Default, c.Locales.Custom); err != nil {
		return &core.ConfigError{Field: "locales.default", Reason: err.Error()}
	}
	return nil
}

// localeWeightHook gives a configured locale without a weight key the default weight.
func localeWeightHook() mapstructure.DecodeHookFuncType {
	localeType := reflect.TypeOf(core.LocaleSpec{})
	return func(_ reflect.Type, to reflect.Type, data any) (any, error) {
		if to != localeType {
			return data, nil
		}
		raw, ok := data.(map[string]any)
		if !ok {
			return data, nil
		}
		if _, ok := raw["weight"]; ok {
			return data, nil
		}
		filled := make(map[string]any, len(raw)+1)
		for k, v := range raw {
			filled[k] = v
		}
		filled["weight"] = core.DefaultLocaleWeight
		return filled, nil
	}
}

// DefaultLocales resolves the configured default locale names.
func (c *Config) DefaultLocales() []core.LocaleSpec {
	locales, err := core.ResolveLocales(c.Locales.Default, c.Locales.Custom)
	if err != nil || len(locales) == 0 {
		return []core.LocaleSpec{core.DefaultLocale()}
	}
	return locales
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// resolveConfigFile picks the first config file that exists. An explicit path that
// does not exist is an error; discovered paths are optional.
func resolveConfigFile() (string, error) {
	explicit := strings.TrimSpace(ConfigFile)
	if explicit == "" {
		explicit = strings.TrimSpace(os.Getenv(envPrefix() + "CONFIG"))
	}
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file %s: %w", explicit, err)
		}
		return explicit, nil
	}

	_, binaryName := appNamesForPaths()
	candidates := []string{binaryName + ".yaml"}
	if path := DefaultConfigPath(); path != "" {
		candidates = append(candidates, path)
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("config file %s: %w", candidate, err)
		}
	}
	return "", nil
}

func readConfigFile(path string) (map[string]any, error) {
	// #nosec G304 -- path comes from the operator (flag, env, or XDG location)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	layer := map[string]any{}
	if err := yaml.Unmarshal(raw, &layer); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return layer, nil
}

// mergeMaps copies src into dst, descending into nested maps so a layer only
// replaces the keys it sets.
func mergeMaps(dst, src map[string]any) {
	for key, value := range src {
		srcMap, srcIsMap := value.(map[string]any)
		dstMap, dstIsMap := dst[key].(map[string]any)
		if srcIsMap && dstIsMap {
			mergeMaps(dstMap, srcMap)
			continue
		}
		if srcIsMap {
			copied := map[string]any{}
			mergeMaps(copied, srcMap)
			dst[key] = copied
			continue
		}
		dst[key] = value
	}
}

func envPrefix() string {
	prefix := "BRANDLENS_"
	if appIdentity != nil && appIdentity.EnvPrefix != "" {
		prefix = appIdentity.EnvPrefix
	}
	if !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}
	return prefix
}

// getEnvSpecs returns environment variable specifications for config mapping
// Maps {PREFIX}{NAME} environment variables to config paths
func getEnvSpecs() []EnvVarSpec {
	prefix := envPrefix()

	return []EnvVarSpec{
		// Scoring
		{Name: prefix + "MATCHER_ENGINE", Path: []string{"uniqueness", "matcher_engine"}, Type: EnvString},
		{Name: prefix + "AGGREGATION", Path: []string{"uniqueness", "aggregation"}, Type: EnvString},
		{Name: prefix + "NEAR_MATCH_THRESHOLD", Path: []string{"uniqueness", "near_match_threshold"}, Type: EnvInt},

		// Providers
		{Name: prefix + "PROVIDER_TIMEOUT", Path: []string{"providers", "timeout"}, Type: EnvString},
		{Name: prefix + "SEQUENTIAL", Path: []string{"providers", "sequential"}, Type: EnvBool},
		{Name: prefix + "ENV_FILE", Path: []string{"providers", "env_file"}, Type: EnvString},
		{Name: prefix + "APPFOLLOW_BASE_URL", Path: []string{"providers", "appfollow", "base_url"}, Type: EnvString},
		{Name: prefix + "PLAYSTORE_BASE_URL", Path: []string{"providers", "playstore", "base_url"}, Type: EnvString},
		{Name: prefix + "DATAFORSEO_BASE_URL", Path: []string{"providers", "dataforseo", "base_url"}, Type: EnvString},
		{Name: prefix + "DATAFORSEO_DEPTH", Path: []string{"providers", "dataforseo", "depth"}, Type: EnvInt},
		{Name: prefix + "RDAP_SERVER", Path: []string{"providers", "domain", "rdap_server"}, Type: EnvString},
		{Name: prefix + "DOH_PROVIDER", Path: []string{"providers", "domain", "doh_provider"}, Type: EnvString},

		// Locales
		{Name: prefix + "LOCALES", Path: []string{"locales", "default"}, Type: EnvString},

		// Server config
		{Name: prefix + "HOST", Path: []string{"server", "host"}, Type: EnvString},
		{Name: prefix + "PORT", Path: []string{"server", "port"}, Type: EnvInt},
		// Duration fields are parsed as strings and converted by mapstructure decode hook
		{Name: prefix + "READ_TIMEOUT", Path: []string{"server", "read_timeout"}, Type: EnvString},
		{Name: prefix + "WRITE_TIMEOUT", Path: []string{"server", "write_timeout"}, Type: EnvString},
		{Name: prefix + "IDLE_TIMEOUT", Path: []string{"server", "idle_timeout"}, Type: EnvString},
		{Name: prefix + "SHUTDOWN_TIMEOUT", Path: []string{"server", "shutdown_timeout"}, Type: EnvString},
		{Name: prefix + "ADMIN_TOKEN", Path: []string{"server", "admin_token"}, Type: EnvString},

		{Name: prefix + "LOG_LEVEL", Path: []string{"logging", "level"}, Type: EnvString},
		{Name: prefix + "LOG_PROFILE", Path: []string{"logging", "profile"}, Type: EnvString},

		// Store config
		{Name: prefix + "DB_DRIVER", Path: []string{"store", "driver"}, Type: EnvString},
		{Name: prefix + "DB_PATH", Path: []string{"store", "path"}, Type: EnvString},
		{Name: prefix + "DB_URL", Path: []string{"store", "url"}, Type: EnvString},
		{Name: prefix + "DB_AUTH_TOKEN", Path: []string{"store", "auth_token"}, Type: EnvString},

		// Cache config
		{Name: prefix + "CACHE_ENABLED", Path: []string{"cache", "enabled"}, Type: EnvBool},
		{Name: prefix + "CACHE_BACKEND", Path: []string{"cache", "backend"}, Type: EnvString},
		{Name: prefix + "CACHE_HITS_TTL", Path: []string{"cache", "hits_ttl"}, Type: EnvString},

		{Name: prefix + "METRICS_ENABLED", Path: []string{"metrics", "enabled"}, Type: EnvBool},
		{Name: prefix + "METRICS_PORT", Path: []string{"metrics", "port"}, Type: EnvInt},
		{Name: prefix + "HEALTH_ENABLED", Path: []string{"health", "enabled"}, Type: EnvBool},

		{Name: prefix + "WORKERS", Path: []string{"workers"}, Type: EnvInt},
	}
}

// appNamesForPaths returns the config name and binary name from app identity,
// falling back to "brandlens" if not set.
func appNamesForPaths() (configName string, binaryName string) {
	configName = "brandlens"
	binaryName = "brandlens"
	if appIdentity == nil {
		return configName, binaryName
	}

	if strings.TrimSpace(appIdentity.ConfigName) != "" {
		configName = appIdentity.ConfigName
	}
	if strings.TrimSpace(appIdentity.BinaryName) != "" {
		binaryName = appIdentity.BinaryName
	}
	return configName, binaryName
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configName, _ := appNamesForPaths()
	configDir := gfconfig.GetAppConfigDir(configName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultStorePath returns the XDG-compliant path to the database file.
func DefaultStorePath() string {
	configName, binaryName := appNamesForPaths()
	dataDir := gfconfig.GetAppDataDir(configName)
	if strings.TrimSpace(dataDir) == "" {
		return "./" + binaryName + ".db"
	}
	return filepath.Join(dataDir, binaryName+".db")
}
