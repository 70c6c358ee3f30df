package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandlens/brandlens/internal/core"
)

type memoryRateStore struct {
	mu    sync.Mutex
	state map[string]core.RateLimitState
	err   error
}

func (m *memoryRateStore) GetRateLimit(ctx context.Context, endpoint string) (*core.RateLimitState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	val, ok := m.state[endpoint]
	if !ok {
		return nil, nil
	}
	return &val, nil
}

func (m *memoryRateStore) UpdateRateLimit(ctx context.Context, endpoint string, state *core.RateLimitState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		m.state = make(map[string]core.RateLimitState)
	}
	m.state[endpoint] = *state
	return nil
}

func TestReserveWindow(t *testing.T) {
	ctx := context.Background()
	store := &memoryRateStore{}
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := &RateLimiter{
		Store:  store,
		Limits: map[string]RateLimit{"api.appfollow.io": {RequestsPerWindow: 2, WindowDuration: time.Minute}},
		Clock:  func() time.Time { return clock },
	}

	for i := 0; i < 2; i++ {
		wait, err := limiter.Reserve(ctx, "api.appfollow.io")
		require.NoError(t, err)
		require.Zero(t, wait)
	}

	clock = clock.Add(15 * time.Second)
	wait, err := limiter.Reserve(ctx, "api.appfollow.io")
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, wait)
	assert.Equal(t, 2, store.state["api.appfollow.io"].RequestCount, "denied requests are not counted")

	clock = clock.Add(time.Minute)
	wait, err = limiter.Reserve(ctx, "api.appfollow.io")
	require.NoError(t, err)
	assert.Zero(t, wait)
	assert.Equal(t, 1, store.state["api.appfollow.io"].RequestCount)
}

func TestReserveIsAtomicUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	store := &memoryRateStore{}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := &RateLimiter{
		Store:  store,
		Limits: map[string]RateLimit{"play.google.com": {RequestsPerWindow: 5, WindowDuration: time.Minute}},
		Clock:  func() time.Time { return now },
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wait, err := limiter.Reserve(ctx, "play.google.com")
			if err == nil && wait == 0 {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 5, granted)
}

func TestBackoffClosesEndpoint(t *testing.T) {
	ctx := context.Background()
	store := &memoryRateStore{}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := &RateLimiter{Store: store, Clock: func() time.Time { return now }}

	require.NoError(t, limiter.Backoff(ctx, "play.google.com", 30*time.Second))
	require.NotNil(t, store.state["play.google.com"].Last429At)

	wait, err := limiter.Reserve(ctx, "play.google.com")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, wait)

	now = now.Add(31 * time.Second)
	wait, err = limiter.Reserve(ctx, "play.google.com")
	require.NoError(t, err)
	assert.Zero(t, wait)
}

func TestReserveFailsOpenOnStoreError(t *testing.T) {
	boom := errors.New("database is locked")
	limiter := &RateLimiter{Store: &memoryRateStore{err: boom}}

	wait, err := limiter.Reserve(context.Background(), "dns.google")
	require.ErrorIs(t, err, boom)
	assert.Zero(t, wait)
}

func TestEffectiveLimit(t *testing.T) {
	limiter := &RateLimiter{}
	assert.Equal(t, DefaultLimits["rdap"], limiter.EffectiveLimit("rdap.nic.example"))
	assert.Equal(t, fallbackLimit, limiter.EffectiveLimit("example.org"))

	limiter.ApplyOverrides(map[string]int{"dns.google": 5, " ": 9, "play.google.com": 0})
	assert.Equal(t, RateLimit{RequestsPerWindow: 5, WindowDuration: time.Minute}, limiter.EffectiveLimit("dns.google"))
	assert.Equal(t, DefaultLimits["play.google.com"], limiter.EffectiveLimit("play.google.com"))

	limiter.ApplySafetyMargin(0.5)
	assert.Equal(t, 2, limiter.EffectiveLimit("dns.google").RequestsPerWindow)
	assert.Equal(t, 60, limiter.EffectiveLimit("api.dataforseo.com").RequestsPerWindow)

	limiter.ApplySafetyMargin(1.5)
	assert.Equal(t, 0.5, limiter.Margin, "out of range margins are ignored")

	var none *RateLimiter
	wait, err := none.Reserve(context.Background(), "dns.google")
	require.NoError(t, err)
	assert.Zero(t, wait)
	assert.Equal(t, 1, none.EffectiveLimit("dns.google").RequestsPerWindow)
}
