package checker

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/brandlens/brandlens/internal/core"
)

// DoH resolver endpoints.
var dohEndpoints = map[string]string{
	"google":     "https://dns.google/resolve",
	"cloudflare": "https://cloudflare-dns.com/dns-query",
}

// DoHProviders lists the supported resolver names.
func DoHProviders() []string {
	return []string{"google", "cloudflare"}
}

// DoHProbe checks whether www.<domain> has an A record via DNS-over-HTTPS. It is
// diagnostic only; availability always comes from RDAP.
type DoHProbe struct {
	Base
	Provider string
}

type dohAnswer struct {
	Data string `json:"data"`
}

type dohResponse struct {
	Status int         `json:"Status"`
	Answer []dohAnswer `json:"Answer"`
}

// WWWResolves reports whether www.<domain> resolves to at least one address.
func (p *DoHProbe) WWWResolves(ctx context.Context, domain string) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	provider := strings.ToLower(strings.TrimSpace(p.Provider))
	if provider == "" {
		provider = "google"
	}
	endpoint, ok := dohEndpoints[provider]
	if !ok {
		return false, &core.ValidationError{Field: "doh provider", Reason: fmt.Sprintf("must be one of %s", strings.Join(DoHProviders(), ", "))}
	}
	endpoint = p.baseURL(endpoint)

	query := url.Values{}
	query.Set("name", "www."+strings.TrimSpace(domain))
	query.Set("type", "A")
	requestURL := endpoint + "?" + query.Encode()

	if err := p.acquire(ctx, SourceDoH, requestURL); err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/dns-json")

	resp, err := p.httpClient().Do(req)
	if err != nil {
		return false, transportError(SourceDoH, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := readBody(resp)
	if err != nil {
		return false, transportError(SourceDoH, err)
	}
	if resp.StatusCode != http.StatusOK {
		return false, statusError(SourceDoH, resp, body)
	}

	var payload dohResponse
	if err := decodeJSON(SourceDoH, body, &payload); err != nil {
		return false, err
	}
	if payload.Status != 0 {
		return false, nil
	}
	for _, answer := range payload.Answer {
		if strings.TrimSpace(answer.Data) != "" {
			return true, nil
		}
	}
	return false, nil
}
