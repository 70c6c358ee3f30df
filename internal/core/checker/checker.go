package checker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/brandlens/brandlens/internal/core"
	"github.com/brandlens/brandlens/internal/core/engine"
)

// Provider names used for caching, rate limits and metrics.
const (
	SourceRDAP       = "rdap"
	SourceAppFollow  = "appfollow"
	SourcePlayStore  = "playstore"
	SourceDataForSEO = "dataforseo"
	SourceDoH        = "doh"
)

// Base carries the plumbing every provider shares.
type Base struct {
	Client      *http.Client
	BaseURL     string
	Limiter     *engine.RateLimiter
	Pacer       *Pacer
	Cache       ResultCache
	CachePolicy CachePolicy
	UseCache    bool
	Clock       func() time.Time
	ToolVersion string
}

func (b *Base) now() time.Time {
	if b != nil && b.Clock != nil {
		return b.Clock()
	}
	return time.Now().UTC()
}

func (b *Base) httpClient() *http.Client {
	if b != nil && b.Client != nil {
		return b.Client
	}
	return &http.Client{Timeout: 15 * time.Second}
}

func (b *Base) baseURL(fallback string) string {
	if b != nil && strings.TrimSpace(b.BaseURL) != "" {
		return strings.TrimRight(strings.TrimSpace(b.BaseURL), "/")
	}
	return fallback
}

// acquire waits on the pacer and consults the persisted window limiter for the
// endpoint host. A closed window is reported as a rate_limited provider error.
func (b *Base) acquire(ctx context.Context, provider, rawURL string) error {
	endpoint := hostOf(rawURL)
	if b.Pacer != nil {
		if err := b.Pacer.Wait(ctx, endpoint); err != nil {
			return core.NewProviderError(provider, err)
		}
	}
	if b.Limiter == nil || endpoint == "" {
		return nil
	}
	wait, err := b.Limiter.Reserve(ctx, endpoint)
	if err != nil {
		// Store failures do not block lookups.
		return nil
	}
	if wait > 0 {
		return &core.ProviderError{
			Provider: provider,
			Kind:     core.ProviderRateLimited,
			Status:   http.StatusTooManyRequests,
			Err:      fmt.Errorf("rate limited, retry in %s", wait.Round(time.Second)),
		}
	}
	return nil
}

// backoff records a 429 for the endpoint so later calls wait it out.
func (b *Base) backoff(ctx context.Context, rawURL string, resp *http.Response) {
	if b.Limiter == nil {
		return
	}
	wait, _ := retryAfterHeader(resp)
	if wait <= 0 {
		wait = time.Minute
	}
	_ = b.Limiter.Backoff(ctx, hostOf(rawURL), wait)
}

// cachedHits returns a cached hit list for (provider, key) when caching is on.
func (b *Base) cachedHits(ctx context.Context, provider, key string) (*core.HitList, bool) {
	if b == nil || !b.UseCache || b.Cache == nil {
		return nil, false
	}
	payload, expires, err := b.Cache.GetCachedPayload(ctx, provider, key)
	if err != nil || payload == nil {
		return nil, false
	}
	var hits core.HitList
	if err := json.Unmarshal(payload, &hits); err != nil {
		return nil, false
	}
	hits.Provenance.FromCache = true
	hits.Provenance.CacheExpiresAt = expires
	return &hits, true
}

func (b *Base) cacheHits(ctx context.Context, provider, key string, hits *core.HitList) {
	if b == nil || !b.UseCache || b.Cache == nil || hits == nil {
		return
	}
	ttl := cachePolicyWithDefaults(b.CachePolicy).HitsTTL
	payload, err := json.Marshal(hits)
	if err != nil {
		return
	}
	_ = b.Cache.SetCachedPayload(ctx, provider, key, payload, ttl)
}

func (b *Base) provenance(source string, requestedAt time.Time) core.Provenance {
	return core.Provenance{
		RequestedAt: requestedAt,
		ResolvedAt:  b.now(),
		Source:      source,
		ToolVersion: b.ToolVersion,
	}
}

func cacheKey(parts ...string) string {
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		cleaned = append(cleaned, strings.ToLower(strings.TrimSpace(p)))
	}
	return strings.Join(cleaned, "|")
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}

func requireTitle(title string) (string, error) {
	value := strings.TrimSpace(title)
	if value == "" {
		return "", &core.ValidationError{Field: "title", Reason: "must not be empty"}
	}
	return value, nil
}

// transportError maps a failed http.Client.Do to a provider error. Context
// cancellation is passed through unchanged.
func transportError(provider string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return core.NewProviderError(provider, err)
}
