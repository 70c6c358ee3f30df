package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandlens/brandlens/internal/core"
)

// isolate points every discovery location at empty temp dirs.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("BRANDLENS_CONFIG", "")

	oldWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(oldWD) })

	ConfigFile = ""
	t.Cleanup(func() { ConfigFile = "" })
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("LoadDefaults", func(t *testing.T) {
		isolate(t)

		cfg, err := Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, core.DefaultUniquenessConfig(), cfg.Uniqueness)

		assert.Equal(t, 20*time.Second, cfg.Providers.Timeout)
		assert.Equal(t, "https://rdap.verisign.com/com/v1", cfg.Providers.Domain.RDAPServer)
		assert.Equal(t, 50, cfg.Providers.DataForSEO.Depth)
		assert.Equal(t, []string{"us"}, cfg.Locales.Default)

		assert.Equal(t, "localhost", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

		assert.Equal(t, "libsql", cfg.Store.Driver)
		expectedStorePath := filepath.Join(gfconfig.GetAppDataDir("brandlens"), "brandlens.db")
		assert.Equal(t, expectedStorePath, cfg.Store.Path)

		assert.True(t, cfg.Cache.Enabled)
		assert.Equal(t, "store", cfg.Cache.Backend)
		assert.Equal(t, 5*time.Minute, cfg.Cache.AvailableTTL)
		assert.Equal(t, time.Hour, cfg.Cache.TakenTTL)
		assert.Equal(t, 6*time.Hour, cfg.Cache.HitsTTL)

		assert.Equal(t, 0.9, cfg.RateLimitMargin)
		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, "SIMPLE", cfg.Logging.Profile)
		assert.True(t, cfg.Metrics.Enabled)
		assert.Equal(t, 9090, cfg.Metrics.Port)
		assert.Equal(t, 4, cfg.Workers)
	})

	t.Run("ConfigFileLayer", func(t *testing.T) {
		isolate(t)

		path := filepath.Join(t.TempDir(), "custom.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
uniqueness:
  aggregation: weighted
  weights:
    searchrank: 40
locales:
  default: [us, lab]
  custom:
    lab:
      country: nz
      hl: en
      gl: NZ
      location_code: 2554
      language_code: en
      weight: 2
`), 0o600))
		ConfigFile = path

		cfg, err := Load(ctx)
		require.NoError(t, err)

		assert.Equal(t, core.AggregationWeighted, cfg.Uniqueness.Aggregation)
		assert.Equal(t, 40, cfg.Uniqueness.Weight(core.ComponentSearchRank))
		assert.Equal(t, 25, cfg.Uniqueness.Weight(core.ComponentDomain))

		locales := cfg.DefaultLocales()
		require.Len(t, locales, 2)
		assert.Equal(t, "NZ", locales[1].GL)
		assert.Equal(t, 2.0, locales[1].Weight)
	})

	t.Run("CustomLocaleWeightDefaultsToOne", func(t *testing.T) {
		isolate(t)

		path := filepath.Join(t.TempDir(), "custom.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
locales:
  default: [lab, still]
  custom:
    lab:
      country: nz
      hl: en
      gl: NZ
      location_code: 2554
      language_code: en
    still:
      country: se
      hl: sv
      gl: SE
      location_code: 2752
      language_code: sv
      weight: 0
`), 0o600))
		ConfigFile = path

		cfg, err := Load(ctx)
		require.NoError(t, err)

		assert.Equal(t, core.DefaultLocaleWeight, cfg.Locales.Custom["lab"].Weight)
		assert.Zero(t, cfg.Locales.Custom["still"].Weight)
	})

	t.Run("DiscoversWorkingDirectoryFile", func(t *testing.T) {
		isolate(t)
		require.NoError(t, os.WriteFile("brandlens.yaml", []byte("workers: 9\n"), 0o600))

		cfg, err := Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, 9, cfg.Workers)
	})

	t.Run("MissingExplicitFile", func(t *testing.T) {
		isolate(t)
		ConfigFile = filepath.Join(t.TempDir(), "missing.yaml")

		_, err := Load(ctx)
		require.Error(t, err)
	})

	t.Run("InvalidScoringIsConfigError", func(t *testing.T) {
		isolate(t)
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("uniqueness:\n  matcher_engine: neural\n"), 0o600))
		ConfigFile = path

		_, err := Load(ctx)
		var ce *core.ConfigError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "matcher_engine", ce.Field)
	})

	t.Run("RuntimeOverrides", func(t *testing.T) {
		isolate(t)
		overrides := map[string]any{
			"server": map[string]any{
				"port": 9000,
				"host": "0.0.0.0",
			},
			"logging": map[string]any{
				"level": "debug",
			},
		}

		cfg, err := Load(ctx, overrides)
		require.NoError(t, err)

		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, "SIMPLE", cfg.Logging.Profile)
		assert.Equal(t, 9090, cfg.Metrics.Port)
	})

	t.Run("EnvOverrides", func(t *testing.T) {
		isolate(t)
		t.Setenv("BRANDLENS_PORT", "3000")
		t.Setenv("BRANDLENS_LOG_LEVEL", "warn")
		t.Setenv("BRANDLENS_METRICS_ENABLED", "false")
		t.Setenv("BRANDLENS_RATE_LIMIT_MARGIN", "0.8")
		t.Setenv("BRANDLENS_MATCHER_ENGINE", "builtin")
		t.Setenv("BRANDLENS_PROVIDER_TIMEOUT", "5s")

		cfg, err := Load(ctx)
		require.NoError(t, err)

		assert.Equal(t, 3000, cfg.Server.Port)
		assert.Equal(t, "warn", cfg.Logging.Level)
		assert.False(t, cfg.Metrics.Enabled)
		assert.Equal(t, 0.8, cfg.RateLimitMargin)
		assert.Equal(t, "builtin", cfg.Uniqueness.MatcherEngine)
		assert.Equal(t, 5*time.Second, cfg.Providers.Timeout)
	})

	t.Run("ConfigPrecedence", func(t *testing.T) {
		isolate(t)
		require.NoError(t, os.WriteFile("brandlens.yaml", []byte("server:\n  port: 3500\n"), 0o600))
		t.Setenv("BRANDLENS_PORT", "4000")

		cfg, err := Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4000, cfg.Server.Port)

		cfg, err = Load(ctx, map[string]any{"server": map[string]any{"port": 5000}})
		require.NoError(t, err)
		assert.Equal(t, 5000, cfg.Server.Port)
	})
}

func TestGetConfigReturnsLastLoaded(t *testing.T) {
	isolate(t)

	cfg, err := Load(context.Background(), map[string]any{"workers": 7})
	require.NoError(t, err)

	current := GetConfig()
	require.NotNil(t, current)
	assert.Equal(t, cfg.Workers, current.Workers)
}

func TestEnvSpecs(t *testing.T) {
	isolate(t)
	_, err := Load(context.Background())
	require.NoError(t, err)

	envVarNames := make(map[string]bool)
	for _, spec := range getEnvSpecs() {
		envVarNames[spec.Name] = true
	}

	for _, name := range []string{"BRANDLENS_LOG_LEVEL", "BRANDLENS_PORT", "BRANDLENS_HOST", "BRANDLENS_METRICS_PORT", "BRANDLENS_DB_PATH", "BRANDLENS_MATCHER_ENGINE"} {
		assert.True(t, envVarNames[name], name)
	}
}

func TestMergeMapsKeepsSiblings(t *testing.T) {
	dst := map[string]any{"server": map[string]any{"host": "localhost", "port": 8080}}
	mergeMaps(dst, map[string]any{"server": map[string]any{"port": 9000}, "workers": 2})

	assert.Equal(t, map[string]any{"host": "localhost", "port": 9000}, dst["server"])
	assert.Equal(t, 2, dst["workers"])
}
