package checker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/brandlens/brandlens/internal/core"
)

const (
	defaultDataForSEOURL = "https://api.dataforseo.com"
	dataForSEOTaskOK     = 20000
	defaultSERPDepth     = 50
)

// DataForSEOProvider fetches Google organic results through the DataForSEO live
// SERP API.
type DataForSEOProvider struct {
	Base
	Login    string
	Password string
	Depth    int
}

type serpTask struct {
	Keyword      string `json:"keyword"`
	SEDomain     string `json:"se_domain"`
	LocationCode int    `json:"location_code"`
	LanguageCode string `json:"language_code"`
	Device       string `json:"device"`
	OS           string `json:"os"`
	Depth        int    `json:"depth"`
}

type serpResponse struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
	Tasks         []struct {
		StatusCode    int    `json:"status_code"`
		StatusMessage string `json:"status_message"`
		Result        []struct {
			CheckURL string     `json:"check_url"`
			Items    []serpItem `json:"items"`
		} `json:"result"`
	} `json:"tasks"`
}

type serpItem struct {
	Type         string `json:"type"`
	RankAbsolute int    `json:"rank_absolute"`
	Title        string `json:"title"`
	URL          string `json:"url"`
}

func (p *DataForSEOProvider) Name() string { return SourceDataForSEO }

// Fetch returns organic results as (title, rank_absolute) ordered by rank, plus the
// verification URL reported by the API.
func (p *DataForSEOProvider) Fetch(ctx context.Context, title string, locale core.LocaleSpec) (*core.HitList, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	title, err := requireTitle(title)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.Login) == "" || strings.TrimSpace(p.Password) == "" {
		return nil, &core.ProviderError{Provider: SourceDataForSEO, Kind: core.ProviderCredentialsMissing, Err: errMissing("DATAFORSEO_LOGIN/DATAFORSEO_PASSWORD")}
	}

	location := locale.LocationCode
	if location == 0 {
		location = core.DefaultLocale().LocationCode
	}
	language := strings.TrimSpace(locale.LanguageCode)
	if language == "" {
		language = "en"
	}
	key := cacheKey(strconv.Itoa(location), language, title)
	if cached, ok := p.cachedHits(ctx, SourceDataForSEO, key); ok {
		return cached, nil
	}

	depth := p.Depth
	if depth <= 0 {
		depth = defaultSERPDepth
	}
	payload, err := json.Marshal([]serpTask{{
		Keyword:      title,
		SEDomain:     "google.com",
		LocationCode: location,
		LanguageCode: language,
		Device:       "desktop",
		OS:           "macos",
		Depth:        depth,
	}})
	if err != nil {
		return nil, err
	}

	requestURL := p.baseURL(defaultDataForSEOURL) + "/v3/serp/google/organic/live/advanced"
	requestedAt := p.now()
	if err := p.acquire(ctx, SourceDataForSEO, requestURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(p.Login, p.Password)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient().Do(req)
	if err != nil {
		return nil, transportError(SourceDataForSEO, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := readBody(resp)
	if err != nil {
		return nil, transportError(SourceDataForSEO, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, statusError(SourceDataForSEO, resp, body)
	case resp.StatusCode == http.StatusTooManyRequests:
		p.backoff(ctx, requestURL, resp)
		return nil, statusError(SourceDataForSEO, resp, body)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		perr := statusError(SourceDataForSEO, resp, body)
		perr.Kind = core.ProviderAPIResponse
		return nil, perr
	}

	var decoded serpResponse
	if err := decodeJSON(SourceDataForSEO, body, &decoded); err != nil {
		return nil, err
	}
	if len(decoded.Tasks) > 0 && decoded.Tasks[0].StatusCode != 0 && decoded.Tasks[0].StatusCode != dataForSEOTaskOK {
		return nil, &core.ProviderError{
			Provider: SourceDataForSEO,
			Kind:     core.ProviderAPIResponse,
			Status:   resp.StatusCode,
			Err:      fmt.Errorf("task status %d: %s", decoded.Tasks[0].StatusCode, decoded.Tasks[0].StatusMessage),
		}
	}

	hits := &core.HitList{Provenance: p.provenance(SourceDataForSEO, requestedAt)}
	if len(decoded.Tasks) > 0 && len(decoded.Tasks[0].Result) > 0 {
		result := decoded.Tasks[0].Result[0]
		hits.CheckURL = result.CheckURL
		for _, item := range result.Items {
			if item.Type != "organic" || item.RankAbsolute <= 0 || strings.TrimSpace(item.Title) == "" {
				continue
			}
			hits.Hits = append(hits.Hits, core.RankedHit{Text: item.Title, Position: item.RankAbsolute})
		}
	}
	sort.SliceStable(hits.Hits, func(i, j int) bool { return hits.Hits[i].Position < hits.Hits[j].Position })

	p.cacheHits(ctx, SourceDataForSEO, key, hits)
	return hits, nil
}
