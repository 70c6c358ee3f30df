package checker

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Pacer smooths request bursts per endpoint host. The persisted window limits live
// in engine.RateLimiter; the pacer only spaces calls within a process.
type Pacer struct {
	mu           sync.RWMutex
	limiters     map[string]*rate.Limiter
	overrides    map[string]rate.Limit
	defaultRate  rate.Limit
	defaultBurst int
}

// NewPacer creates a pacer allowing requestsPerSecond per host.
func NewPacer(requestsPerSecond float64, burst int) *Pacer {
	if burst <= 0 {
		burst = 2
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 2
	}
	return &Pacer{
		limiters:     make(map[string]*rate.Limiter),
		overrides:    make(map[string]rate.Limit),
		defaultRate:  rate.Limit(requestsPerSecond),
		defaultBurst: burst,
	}
}

// SetHostRate overrides the rate for one host.
func (p *Pacer) SetHostRate(host string, requestsPerSecond float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.overrides[host] = rate.Limit(requestsPerSecond)
	if limiter, ok := p.limiters[host]; ok {
		limiter.SetLimit(rate.Limit(requestsPerSecond))
	}
}

// Wait blocks until host may be called or ctx ends.
func (p *Pacer) Wait(ctx context.Context, host string) error {
	if p == nil || host == "" {
		return nil
	}
	return p.limiter(host).Wait(ctx)
}

func (p *Pacer) limiter(host string) *rate.Limiter {
	p.mu.RLock()
	limiter, ok := p.limiters[host]
	p.mu.RUnlock()
	if ok {
		return limiter
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if limiter, ok := p.limiters[host]; ok {
		return limiter
	}
	limit := p.defaultRate
	if override, ok := p.overrides[host]; ok {
		limit = override
	}
	limiter = rate.NewLimiter(limit, p.defaultBurst)
	p.limiters[host] = limiter
	return limiter
}
