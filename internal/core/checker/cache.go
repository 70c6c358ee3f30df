package checker

import (
	"context"
	"time"

	"github.com/brandlens/brandlens/internal/core"
)

// ResultCache stores encoded provider results keyed by provider and lookup key.
// A miss returns a nil payload and no error.
type ResultCache interface {
	GetCachedPayload(ctx context.Context, provider, key string) ([]byte, *time.Time, error)
	SetCachedPayload(ctx context.Context, provider, key string, payload []byte, ttl time.Duration) error
}

// CachePolicy controls cache TTLs for provider results.
type CachePolicy struct {
	AvailableTTL time.Duration
	TakenTTL     time.Duration
	HitsTTL      time.Duration
}

func cachePolicyWithDefaults(policy CachePolicy) CachePolicy {
	if policy.AvailableTTL == 0 {
		policy.AvailableTTL = 5 * time.Minute
	}
	if policy.TakenTTL == 0 {
		policy.TakenTTL = time.Hour
	}
	if policy.HitsTTL == 0 {
		policy.HitsTTL = 6 * time.Hour
	}
	return policy
}

// domainTTL returns how long a domain result may be reused. Unknown results are not
// cached.
func domainTTL(policy CachePolicy, availability core.Availability) time.Duration {
	policy = cachePolicyWithDefaults(policy)

	switch availability {
	case core.AvailabilityAvailable:
		return policy.AvailableTTL
	case core.AvailabilityTaken:
		return policy.TakenTTL
	default:
		return 0
	}
}
