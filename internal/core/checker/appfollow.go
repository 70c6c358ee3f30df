package checker

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/brandlens/brandlens/internal/core"
)

const defaultAppFollowURL = "https://api.appfollow.io"

// AppFollowProvider fetches ASO search suggestions for a title.
type AppFollowProvider struct {
	Base
	APIKey string
}

type appFollowSuggestion struct {
	DisplayTerm string `json:"displayTerm"`
	Term        string `json:"term"`
}

func (p *AppFollowProvider) Name() string { return SourceAppFollow }

// Fetch returns suggestions in API order with 1-based positions.
func (p *AppFollowProvider) Fetch(ctx context.Context, title string, locale core.LocaleSpec) (*core.HitList, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	title, err := requireTitle(title)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.APIKey) == "" {
		return nil, &core.ProviderError{Provider: SourceAppFollow, Kind: core.ProviderCredentialsMissing, Err: errMissing("APPFOLLOW_API_KEY")}
	}

	country := strings.ToLower(strings.TrimSpace(locale.Country))
	if country == "" {
		country = "us"
	}
	key := cacheKey(country, title)
	if cached, ok := p.cachedHits(ctx, SourceAppFollow, key); ok {
		return cached, nil
	}

	query := url.Values{}
	query.Set("term", title)
	query.Set("country", country)
	requestURL := p.baseURL(defaultAppFollowURL) + "/api/v2/aso/suggests?" + query.Encode()
	requestedAt := p.now()

	if err := p.acquire(ctx, SourceAppFollow, requestURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-AppFollow-API-Token", p.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient().Do(req)
	if err != nil {
		return nil, transportError(SourceAppFollow, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := readBody(resp)
	if err != nil {
		return nil, transportError(SourceAppFollow, err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		p.backoff(ctx, requestURL, resp)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(SourceAppFollow, resp, body)
	}

	var items []appFollowSuggestion
	if err := decodeJSON(SourceAppFollow, body, &items); err != nil {
		return nil, err
	}

	hits := &core.HitList{Provenance: p.provenance(SourceAppFollow, requestedAt)}
	for _, item := range items {
		term := item.DisplayTerm
		if term == "" {
			term = item.Term
		}
		if term == "" {
			continue
		}
		hits.Hits = append(hits.Hits, core.RankedHit{Text: term, Position: len(hits.Hits) + 1})
	}

	p.cacheHits(ctx, SourceAppFollow, key, hits)
	return hits, nil
}
