package engine

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/brandlens/brandlens/internal/core"
)

// RateLimiter enforces per-endpoint request windows persisted in a RateLimitStore,
// so quotas survive across CLI invocations. A nil limiter or a nil Store allows
// everything.
type RateLimiter struct {
	Store  RateLimitStore
	Limits map[string]RateLimit
	Clock  func() time.Time
	Margin float64

	mu sync.Mutex
}

// RateLimit is a request quota per window.
type RateLimit struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// RateLimitStore stores rate limit state.
type RateLimitStore interface {
	GetRateLimit(ctx context.Context, endpoint string) (*core.RateLimitState, error)
	UpdateRateLimit(ctx context.Context, endpoint string, state *core.RateLimitState) error
}

// DefaultLimits are conservative quotas per provider host. Hosts matching no entry
// fall back to the "rdap" entry for rdap.* hosts, then to 30 per minute.
var DefaultLimits = map[string]RateLimit{
	"rdap.verisign.com":  {RequestsPerWindow: 30, WindowDuration: time.Minute},
	"rdap":               {RequestsPerWindow: 20, WindowDuration: time.Minute},
	"api.appfollow.io":   {RequestsPerWindow: 60, WindowDuration: time.Minute},
	"play.google.com":    {RequestsPerWindow: 20, WindowDuration: time.Minute},
	"api.dataforseo.com": {RequestsPerWindow: 120, WindowDuration: time.Minute},
	"dns.google":         {RequestsPerWindow: 300, WindowDuration: time.Minute},
	"cloudflare-dns.com": {RequestsPerWindow: 300, WindowDuration: time.Minute},
}

var fallbackLimit = RateLimit{RequestsPerWindow: 30, WindowDuration: time.Minute}

// Reserve counts one request against endpoint's window. When the window is full or
// a backoff is active nothing is recorded and the remaining wait is returned.
// Store errors fail open: the request is allowed and the error returned.
func (r *RateLimiter) Reserve(ctx context.Context, endpoint string) (time.Duration, error) {
	if r == nil || r.Store == nil {
		return 0, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	state, err := r.load(ctx, endpoint, now)
	if err != nil {
		return 0, err
	}
	if state.BackoffUntil != nil && now.Before(*state.BackoffUntil) {
		return state.BackoffUntil.Sub(now), nil
	}

	limit := r.EffectiveLimit(endpoint)
	windowEnd := state.WindowStart.Add(limit.WindowDuration)
	if !now.Before(windowEnd) {
		state.RequestCount = 0
		state.WindowStart = now
		windowEnd = now.Add(limit.WindowDuration)
	}
	if state.RequestCount >= limit.RequestsPerWindow {
		return windowEnd.Sub(now), nil
	}

	state.RequestCount++
	return 0, r.Store.UpdateRateLimit(ctx, endpoint, state)
}

// Backoff closes endpoint for retryAfter after a 429 response.
func (r *RateLimiter) Backoff(ctx context.Context, endpoint string, retryAfter time.Duration) error {
	if r == nil || r.Store == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	state, err := r.load(ctx, endpoint, now)
	if err != nil {
		return err
	}
	state.Last429At = &now
	if retryAfter > 0 {
		until := now.Add(retryAfter)
		state.BackoffUntil = &until
	}
	return r.Store.UpdateRateLimit(ctx, endpoint, state)
}

func (r *RateLimiter) load(ctx context.Context, endpoint string, now time.Time) (*core.RateLimitState, error) {
	state, err := r.Store.GetRateLimit(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return &core.RateLimitState{WindowStart: now}, nil
	}
	if state.WindowStart.IsZero() {
		state.WindowStart = now
	}
	return state, nil
}

// ApplyOverrides replaces quotas for the named hosts with a per-minute count.
// Blank hosts and non-positive counts are ignored.
func (r *RateLimiter) ApplyOverrides(overrides map[string]int) {
	if r == nil || len(overrides) == 0 {
		return
	}
	if r.Limits == nil {
		r.Limits = make(map[string]RateLimit, len(DefaultLimits)+len(overrides))
		for host, limit := range DefaultLimits {
			r.Limits[host] = limit
		}
	}
	for host, perMinute := range overrides {
		host = strings.TrimSpace(host)
		if host == "" || perMinute <= 0 {
			continue
		}
		r.Limits[host] = RateLimit{RequestsPerWindow: perMinute, WindowDuration: time.Minute}
	}
}

// ApplySafetyMargin scales every quota by margin, which must lie in (0, 1].
func (r *RateLimiter) ApplySafetyMargin(margin float64) {
	if r == nil || margin <= 0 || margin > 1 {
		return
	}
	r.Margin = margin
}

// EffectiveLimit returns the quota applied to endpoint after overrides and margin.
func (r *RateLimiter) EffectiveLimit(endpoint string) RateLimit {
	if r == nil {
		return RateLimit{RequestsPerWindow: 1, WindowDuration: time.Minute}
	}
	limits := r.Limits
	if limits == nil {
		limits = DefaultLimits
	}

	limit, ok := limits[endpoint]
	if !ok && strings.HasPrefix(endpoint, "rdap.") {
		limit, ok = limits["rdap"]
	}
	if !ok {
		limit = fallbackLimit
	}

	if r.Margin > 0 && r.Margin <= 1 {
		limit.RequestsPerWindow = int(math.Max(1, math.Floor(float64(limit.RequestsPerWindow)*r.Margin)))
	}
	return limit
}

func (r *RateLimiter) now() time.Time {
	if r != nil && r.Clock != nil {
		return r.Clock()
	}
	return time.Now().UTC()
}
