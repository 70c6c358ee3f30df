package config

import (
	"time"

	"github.com/brandlens/brandlens/internal/core"
)

// Config represents the complete application configuration. It is resolved in
// layers: embedded defaults, then the config file, then BRANDLENS_* environment
// variables, then runtime overrides.
type Config struct {
	Uniqueness core.UniquenessConfig `mapstructure:"uniqueness"`
	Providers  ProvidersConfig       `mapstructure:"providers"`
	Locales    LocalesConfig         `mapstructure:"locales"`
	Server     ServerConfig          `mapstructure:"server"`
	Store      StoreConfig           `mapstructure:"store"`
	Cache      CacheConfig           `mapstructure:"cache"`
	Logging    LoggingConfig         `mapstructure:"logging"`
	Metrics    MetricsConfig         `mapstructure:"metrics"`
	Health     HealthConfig          `mapstructure:"health"`
	Workers    int                   `mapstructure:"workers"`

	RateLimits      map[string]int `mapstructure:"rate_limits"`
	RateLimitMargin float64        `mapstructure:"rate_limit_margin"`
}

// ProvidersConfig configures the evidence providers.
type ProvidersConfig struct {
	// Timeout bounds each provider call made during an evaluation.
	Timeout    time.Duration `mapstructure:"timeout"`
	Sequential bool          `mapstructure:"sequential"`
	// RequestsPerSecond paces calls per provider host within one process.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	// EnvFile is loaded with godotenv before credentials are read.
	EnvFile string `mapstructure:"env_file"`

	AppFollow  AppFollowConfig  `mapstructure:"appfollow"`
	PlayStore  PlayStoreConfig  `mapstructure:"playstore"`
	DataForSEO DataForSEOConfig `mapstructure:"dataforseo"`
	Domain     DomainConfig     `mapstructure:"domain"`
}

// AppFollowConfig configures the ASO suggestion provider.
type AppFollowConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

// PlayStoreConfig configures the store web search provider.
type PlayStoreConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	UserAgent string `mapstructure:"user_agent"`
}

// DataForSEOConfig configures the SERP provider.
type DataForSEOConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	Login    string `mapstructure:"login"`
	Password string `mapstructure:"password"`
	Depth    int    `mapstructure:"depth"`
}

// DomainConfig configures RDAP lookups and the DoH www probe.
type DomainConfig struct {
	RDAPServer  string        `mapstructure:"rdap_server"`
	Timeout     time.Duration `mapstructure:"timeout"`
	DoHProvider string        `mapstructure:"doh_provider"`
	DoHBaseURL  string        `mapstructure:"doh_base_url"`
}

// LocalesConfig names the default locales and any user-defined ones.
type LocalesConfig struct {
	Default []string                   `mapstructure:"default"`
	Custom  map[string]core.LocaleSpec `mapstructure:"custom"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// AdminToken enables POST /admin/signal when set.
	AdminToken string `mapstructure:"admin_token"`
}

// StoreConfig selects the persistence backend for the provider cache and rate
// limit windows. Driver is libsql (local file or Turso) or sqlite.
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// CacheConfig contains provider result cache configuration.
type CacheConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Backend is "store" (persisted) or "memory" (process local).
	Backend      string        `mapstructure:"backend"`
	AvailableTTL time.Duration `mapstructure:"available_ttl"`
	TakenTTL     time.Duration `mapstructure:"taken_ttl"`
	HitsTTL      time.Duration `mapstructure:"hits_ttl"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level
	// Valid values: SIMPLE, STRUCTURED, ENTERPRISE
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}
