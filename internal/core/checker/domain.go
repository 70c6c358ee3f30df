package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/openrdap/rdap"
	"golang.org/x/net/idna"
	"golang.org/x/text/unicode/norm"

	"github.com/brandlens/brandlens/internal/core"
)

// DefaultRDAPServer is Verisign's authoritative RDAP base for .com.
const DefaultRDAPServer = "https://rdap.verisign.com/com/v1"

var (
	labelInvalid = regexp.MustCompile(`[^\p{L}\p{N}-]+`)
	labelDashes  = regexp.MustCompile(`-+`)
)

// DomainChecker performs RDAP availability checks for <label>.com.
type DomainChecker struct {
	Base
	RDAP    *rdap.Client
	Timeout time.Duration

	// RetryDelay returns the pause before the single retry on 429/5xx. Nil uses a
	// 500-1000ms jitter.
	RetryDelay func() time.Duration
}

// DomainLabel turns brand text into a DNS label: lowercase, every run of characters
// other than letters, digits and '-' becomes '-', dashes collapse and are trimmed,
// and non-ASCII labels are converted to punycode.
func DomainLabel(brand string) (string, error) {
	s := strings.ToLower(norm.NFC.String(strings.TrimSpace(brand)))
	s = labelInvalid.ReplaceAllString(s, "-")
	s = strings.Trim(labelDashes.ReplaceAllString(s, "-"), "-")
	if s == "" {
		return "", &core.ValidationError{Field: "brand", Reason: "empty label after normalization"}
	}
	ascii, err := idna.Lookup.ToASCII(s)
	if err != nil {
		return "", &core.ValidationError{Field: "brand", Reason: fmt.Sprintf("invalid label %q: %v", s, err)}
	}
	return ascii, nil
}

// CheckDomain looks up <label>.com. A 404 is an authoritative "available"; a domain
// object is an authoritative "taken"; 429 and 5xx are retried once and then reported
// as unknown with note "transient". Transport failures return a provider error.
func (d *DomainChecker) CheckDomain(ctx context.Context, brand string) (*core.DomainResult, error) {
	if d == nil {
		return nil, fmt.Errorf("domain checker is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	label, err := DomainLabel(brand)
	if err != nil {
		return nil, err
	}
	domain := label + ".com"
	requestedAt := d.now()

	if cached, ok := d.cachedDomain(ctx, domain); ok {
		return cached, nil
	}

	serverURL, err := url.Parse(d.baseURL(DefaultRDAPServer))
	if err != nil {
		return nil, fmt.Errorf("invalid rdap server url: %w", err)
	}
	requestURL := rdapDomainURL(serverURL, domain)

	client := d.RDAP
	if client == nil {
		client = &rdap.Client{HTTP: d.httpClient()}
	}

	var last *core.DomainResult
	for attempt := 0; attempt < 2; attempt++ {
		if err := d.acquire(ctx, SourceRDAP, requestURL); err != nil {
			return nil, err
		}

		req := rdap.NewDomainRequest(domain).WithServer(serverURL)
		if d.Timeout > 0 {
			req.Timeout = d.Timeout
		}
		req = req.WithContext(ctx)

		resp, reqErr := client.Do(req)
		statusCode := responseStatus(resp)

		if reqErr == nil {
			if obj, ok := resp.Object.(*rdap.Domain); ok {
				result := d.result(label, domain, core.AvailabilityTaken, true, statusCode, "", requestedAt)
				result.Registrar = findRegistrar(obj)
				result.Expiration = findEventDate(obj.Events, "expiration")
				d.cacheDomain(ctx, result)
				return result, nil
			}
			return nil, &core.ProviderError{Provider: SourceRDAP, Kind: core.ProviderMalformed, Status: statusCode, Err: fmt.Errorf("unexpected rdap object %T", resp.Object)}
		}

		if isNotFound(reqErr) || statusCode == http.StatusNotFound {
			result := d.result(label, domain, core.AvailabilityAvailable, true, http.StatusNotFound, "", requestedAt)
			d.cacheDomain(ctx, result)
			return result, nil
		}

		if statusCode == http.StatusTooManyRequests || (statusCode >= 500 && statusCode <= 599) {
			if statusCode == http.StatusTooManyRequests && d.Limiter != nil {
				if wait := rdapRetryAfter(resp); wait > 0 {
					_ = d.Limiter.Backoff(ctx, serverURL.Hostname(), wait)
				}
			}
			last = d.result(label, domain, core.AvailabilityUnknown, true, statusCode, "transient", requestedAt)
			if attempt == 0 {
				if err := sleepContext(ctx, d.retryDelay()); err != nil {
					return nil, core.NewProviderError(SourceRDAP, err)
				}
				continue
			}
			return last, nil
		}

		if statusCode != 0 {
			return nil, &core.ProviderError{Provider: SourceRDAP, Kind: core.ProviderHTTPStatus, Status: statusCode, Err: reqErr}
		}
		return nil, transportError(SourceRDAP, reqErr)
	}

	if last == nil {
		last = d.result(label, domain, core.AvailabilityUnknown, false, 0, "unreachable", requestedAt)
	}
	return last, nil
}

func (d *DomainChecker) result(label, domain string, availability core.Availability, authoritative bool, status int, note string, requestedAt time.Time) *core.DomainResult {
	return &core.DomainResult{
		Label:         label,
		Domain:        domain,
		Available:     availability,
		Authoritative: authoritative,
		StatusCode:    status,
		Note:          note,
		Provenance:    d.provenance(SourceRDAP, requestedAt),
	}
}

func (d *DomainChecker) retryDelay() time.Duration {
	if d.RetryDelay != nil {
		return d.RetryDelay()
	}
	// #nosec G404 -- jitter only
	return 500*time.Millisecond + time.Duration(rand.Int63n(int64(500*time.Millisecond)))
}

func (d *DomainChecker) cachedDomain(ctx context.Context, domain string) (*core.DomainResult, bool) {
	if !d.UseCache || d.Cache == nil {
		return nil, false
	}
	payload, expires, err := d.Cache.GetCachedPayload(ctx, SourceRDAP, domain)
	if err != nil || payload == nil {
		return nil, false
	}
	var result core.DomainResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, false
	}
	result.Provenance.FromCache = true
	result.Provenance.CacheExpiresAt = expires
	if result.Provenance.ToolVersion == "" {
		result.Provenance.ToolVersion = d.ToolVersion
	}
	return &result, true
}

func (d *DomainChecker) cacheDomain(ctx context.Context, result *core.DomainResult) {
	if !d.UseCache || d.Cache == nil || result == nil {
		return
	}
	ttl := domainTTL(d.CachePolicy, result.Available)
	if ttl <= 0 {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return
	}
	_ = d.Cache.SetCachedPayload(ctx, SourceRDAP, result.Domain, payload, ttl)
}

func rdapDomainURL(server *url.URL, domain string) string {
	if server == nil {
		return ""
	}

	temp := *server
	temp.RawQuery = ""
	temp.Fragment = ""
	base := temp.String()
	if base == "" {
		return ""
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + "domain/" + strings.TrimSpace(domain)
}

func responseStatus(resp *rdap.Response) int {
	if resp == nil || len(resp.HTTP) == 0 || resp.HTTP[0] == nil || resp.HTTP[0].Response == nil {
		return 0
	}
	return resp.HTTP[0].Response.StatusCode
}

func rdapRetryAfter(resp *rdap.Response) time.Duration {
	if resp == nil || len(resp.HTTP) == 0 || resp.HTTP[0] == nil {
		return 0
	}
	wait, _ := retryAfterHeader(resp.HTTP[0].Response)
	return wait
}

func findRegistrar(domain *rdap.Domain) string {
	if domain == nil {
		return ""
	}

	for _, entity := range domain.Entities {
		for _, role := range entity.Roles {
			if role == "registrar" && entity.VCard != nil {
				return entity.VCard.Name()
			}
		}
	}

	return ""
}

func findEventDate(events []rdap.Event, action string) string {
	for _, event := range events {
		if event.Action == action {
			return event.Date
		}
	}
	return ""
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}

	clientErr, ok := err.(*rdap.ClientError)
	if !ok {
		return false
	}

	return clientErr.Type == rdap.ObjectDoesNotExist
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
