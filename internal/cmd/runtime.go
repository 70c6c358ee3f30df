package cmd

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/brandlens/brandlens/internal/config"
	"github.com/brandlens/brandlens/internal/core"
	"github.com/brandlens/brandlens/internal/core/checker"
	"github.com/brandlens/brandlens/internal/core/engine"
	"github.com/brandlens/brandlens/internal/core/store"
	"github.com/brandlens/brandlens/internal/metrics"
	"github.com/brandlens/brandlens/internal/observability"
)

// appRuntime holds everything a command needs to evaluate titles.
type appRuntime struct {
	cfg       *config.Config
	store     *store.Store
	base      checker.Base
	domain    *checker.DomainChecker
	evaluator *engine.Evaluator
}

// openRuntime loads configuration and credentials and builds the providers. A store
// that cannot be opened is logged and replaced by the in-memory cache.
func openRuntime(ctx context.Context, useCache bool) (*appRuntime, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	if err := checker.LoadDotEnv(envFiles(cfg)...); err != nil {
		observability.CLILogger.Warn("Failed to load env file", zap.Error(err))
	}

	db, err := openStore(ctx, cfg)
	if err != nil {
		observability.CLILogger.Warn("Store unavailable, using in-memory cache", zap.Error(err))
		db = nil
	}

	rt := newRuntime(cfg, db, useCache)
	return rt, nil
}

func newRuntime(cfg *config.Config, db *store.Store, useCache bool) *appRuntime {
	base := newBase(cfg, db, useCache)
	creds := credentialsFor(cfg)

	domain := &checker.DomainChecker{
		Base:    base,
		Timeout: cfg.Providers.Domain.Timeout,
	}
	domain.BaseURL = cfg.Providers.Domain.RDAPServer

	appFollow := &checker.AppFollowProvider{Base: base, APIKey: creds.AppFollowAPIKey}
	appFollow.BaseURL = cfg.Providers.AppFollow.BaseURL

	playStore := &checker.PlayStoreProvider{Base: base, UserAgent: cfg.Providers.PlayStore.UserAgent}
	playStore.BaseURL = cfg.Providers.PlayStore.BaseURL

	serp := &checker.DataForSEOProvider{
		Base:     base,
		Login:    creds.DataForSEOLogin,
		Password: creds.DataForSEOPassword,
		Depth:    cfg.Providers.DataForSEO.Depth,
	}
	serp.BaseURL = cfg.Providers.DataForSEO.BaseURL

	evaluator := &engine.Evaluator{
		Providers: engine.Providers{
			Domain:    domain,
			AppStoreA: appFollow,
			AppStoreB: playStore,
			Search:    serp,
		},
		Timeout:    cfg.Providers.Timeout,
		Sequential: cfg.Providers.Sequential,
		Logger:     observability.Logger(),
		Observer:   metrics.EvaluationRecorder{},
	}

	return &appRuntime{cfg: cfg, store: db, base: base, domain: domain, evaluator: evaluator}
}

func newBase(cfg *config.Config, db *store.Store, useCache bool) checker.Base {
	limiter := &engine.RateLimiter{}
	if db != nil {
		limiter.Store = db
	}
	limiter.ApplyOverrides(cfg.RateLimits)
	limiter.ApplySafetyMargin(cfg.RateLimitMargin)

	timeout := cfg.Providers.Timeout
	if timeout <= 0 {
		timeout = engine.DefaultCallTimeout
	}

	return checker.Base{
		Client:  &http.Client{Timeout: timeout},
		Limiter: limiter,
		Pacer:   checker.NewPacer(cfg.Providers.RequestsPerSecond, 0),
		Cache:   resultCache(cfg, db),
		CachePolicy: checker.CachePolicy{
			AvailableTTL: cfg.Cache.AvailableTTL,
			TakenTTL:     cfg.Cache.TakenTTL,
			HitsTTL:      cfg.Cache.HitsTTL,
		},
		UseCache:    useCache && cfg.Cache.Enabled,
		ToolVersion: versionInfo.Version,
	}
}

func resultCache(cfg *config.Config, db *store.Store) checker.ResultCache {
	if db != nil && !strings.EqualFold(strings.TrimSpace(cfg.Cache.Backend), "memory") {
		return db
	}
	return checker.NewMemoryCache(cfg.Cache.HitsTTL, 10*time.Minute)
}

func credentialsFor(cfg *config.Config) checker.Credentials {
	configured := checker.Credentials{
		AppFollowAPIKey:    strings.TrimSpace(cfg.Providers.AppFollow.APIKey),
		DataForSEOLogin:    strings.TrimSpace(cfg.Providers.DataForSEO.Login),
		DataForSEOPassword: strings.TrimSpace(cfg.Providers.DataForSEO.Password),
	}
	return configured.Merge(checker.CredentialsFromEnv())
}

func envFiles(cfg *config.Config) []string {
	if path := strings.TrimSpace(cfg.Providers.EnvFile); path != "" {
		return []string{path}
	}
	return nil
}

// missingCredentials names the providers that will answer credentials_missing.
func missingCredentials(creds checker.Credentials) []core.ComponentName {
	var out []core.ComponentName
	if creds.AppFollowAPIKey == "" {
		out = append(out, core.ComponentAppStoreA)
	}
	if creds.DataForSEOLogin == "" || creds.DataForSEOPassword == "" {
		out = append(out, core.ComponentSearchRank)
	}
	return out
}

// dohProbe builds the www probe for provider, or nil when disabled.
func (rt *appRuntime) dohProbe(provider string) *checker.DoHProbe {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		provider = rt.cfg.Providers.Domain.DoHProvider
	}
	if provider == "" || provider == "none" {
		return nil
	}
	probe := &checker.DoHProbe{Base: rt.base, Provider: provider}
	probe.BaseURL = rt.cfg.Providers.Domain.DoHBaseURL
	return probe
}

// save persists a report when a store is open. Failures are logged only.
func (rt *appRuntime) save(ctx context.Context, report *core.UniquenessReport) {
	if rt.store == nil || report == nil {
		return
	}
	if _, err := rt.store.SaveEvaluation(ctx, report); err != nil {
		observability.CLILogger.Warn("Failed to record evaluation", zap.String("title", report.Title), zap.Error(err))
	}
}

func (rt *appRuntime) Close() {
	if rt != nil && rt.store != nil {
		_ = rt.store.Close()
	}
}
