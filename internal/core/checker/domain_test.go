package checker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/brandlens/brandlens/internal/core"
)

const takenDomainBody = `{
  "objectClassName": "domain",
  "ldhName": "zynthrex.com",
  "status": ["active"],
  "events": [{"eventAction": "expiration", "eventDate": "2027-12-26T00:00:00Z"}]
}`

func noDelay() time.Duration { return 0 }

func TestDomainLabel(t *testing.T) {
	tests := map[string]string{
		"Zynthrex":        "zynthrex",
		"  Brand Name!! ": "brand-name",
		"a--b__c":         "a-b-c",
		"Café":            "xn--caf-dma",
	}
	for input, want := range tests {
		got, err := DomainLabel(input)
		require.NoError(t, err, input)
		require.Equal(t, want, got, input)
	}

	_, err := DomainLabel(" -- ")
	var ve *core.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestDomainCheckerAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/domain/zynthrex.com", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	checker := &DomainChecker{Base: Base{BaseURL: server.URL}}

	result, err := checker.CheckDomain(context.Background(), "Zynthrex")
	require.NoError(t, err)
	require.Equal(t, core.AvailabilityAvailable, result.Available)
	require.True(t, result.Authoritative)
	require.Equal(t, http.StatusNotFound, result.StatusCode)
	require.Equal(t, "zynthrex.com", result.Domain)
	require.Equal(t, SourceRDAP, result.Provenance.Source)
}

func TestDomainCheckerTaken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rdap+json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(takenDomainBody))
	}))
	defer server.Close()

	checker := &DomainChecker{Base: Base{BaseURL: server.URL}}

	result, err := checker.CheckDomain(context.Background(), "zynthrex")
	require.NoError(t, err)
	require.Equal(t, core.AvailabilityTaken, result.Available)
	require.True(t, result.Authoritative)
	require.Equal(t, http.StatusOK, result.StatusCode)
	require.Equal(t, "2027-12-26T00:00:00Z", result.Expiration)
}

func TestDomainCheckerTransientRetriesOnce(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	checker := &DomainChecker{Base: Base{BaseURL: server.URL}, RetryDelay: noDelay}

	result, err := checker.CheckDomain(context.Background(), "zynthrex")
	require.NoError(t, err)
	require.Equal(t, core.AvailabilityUnknown, result.Available)
	require.Equal(t, "transient", result.Note)
	require.Equal(t, int32(2), calls.Load())
}

func TestDomainCheckerRetrySucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	checker := &DomainChecker{Base: Base{BaseURL: server.URL}, RetryDelay: noDelay}

	result, err := checker.CheckDomain(context.Background(), "zynthrex")
	require.NoError(t, err)
	require.Equal(t, core.AvailabilityAvailable, result.Available)
}

func TestDomainCheckerNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	checker := &DomainChecker{Base: Base{BaseURL: url}, RetryDelay: noDelay}

	_, err := checker.CheckDomain(context.Background(), "zynthrex")
	require.Error(t, err)
	var pe *core.ProviderError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, SourceRDAP, pe.Provider)
}

func TestDomainCheckerCachesAuthoritativeResults(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	checker := &DomainChecker{Base: Base{BaseURL: server.URL, Cache: NewMemoryCache(time.Minute, time.Minute), UseCache: true, ToolVersion: "test"}}

	_, err := checker.CheckDomain(context.Background(), "zynthrex")
	require.NoError(t, err)
	result, err := checker.CheckDomain(context.Background(), "Zynthrex")
	require.NoError(t, err)
	require.True(t, result.Provenance.FromCache)
	require.NotNil(t, result.Provenance.CacheExpiresAt)
	require.Equal(t, int32(1), calls.Load())
}

func TestDomainCheckerDoesNotCacheTransient(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	checker := &DomainChecker{Base: Base{BaseURL: server.URL, Cache: NewMemoryCache(time.Minute, time.Minute), UseCache: true}, RetryDelay: noDelay}

	for i := 0; i < 2; i++ {
		result, err := checker.CheckDomain(context.Background(), "zynthrex")
		require.NoError(t, err)
		require.Equal(t, core.AvailabilityUnknown, result.Available)
	}
	require.Equal(t, int32(4), calls.Load())
}

func TestCheckManyKeepsOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/domain/taken.com" {
			w.Header().Set("Content-Type", "application/rdap+json")
			_, _ = w.Write([]byte(`{"objectClassName":"domain","ldhName":"taken.com"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	checker := &DomainChecker{Base: Base{BaseURL: server.URL}}
	outcomes := checker.CheckMany(context.Background(), []string{"free-one", "taken", "--", "free-two"}, 3)

	require.Len(t, outcomes, 4)
	require.Equal(t, core.AvailabilityAvailable, outcomes[0].Result.Available)
	require.Equal(t, core.AvailabilityTaken, outcomes[1].Result.Available)
	require.Error(t, outcomes[2].Err)
	require.Equal(t, "free-two", outcomes[3].Brand)
}

func TestDoHProbe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/dns-json", r.Header.Get("Accept"))
		if r.URL.Query().Get("name") == "www.zynthrex.com" {
			_, _ = w.Write([]byte(`{"Status":3}`))
			return
		}
		_, _ = w.Write([]byte(`{"Status":0,"Answer":[{"data":"93.184.216.34"}]}`))
	}))
	defer server.Close()

	probe := &DoHProbe{Base: Base{BaseURL: server.URL}, Provider: "cloudflare"}

	ok, err := probe.WWWResolves(context.Background(), "example.com")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = probe.WWWResolves(context.Background(), "zynthrex.com")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = (&DoHProbe{Provider: "quad9"}).WWWResolves(context.Background(), "example.com")
	var ve *core.ValidationError
	require.ErrorAs(t, err, &ve)
}
