package checker

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/brandlens/brandlens/internal/core"
)

const (
	defaultPlayStoreURL = "https://play.google.com"
	maxPlayLabels       = 100
)

// PlayStoreProvider scrapes the public store search page for app titles.
type PlayStoreProvider struct {
	Base
	UserAgent string
}

func (p *PlayStoreProvider) Name() string { return SourcePlayStore }

// Fetch searches for the quoted title and returns the distinct aria-label values in
// page order, capped at 100.
func (p *PlayStoreProvider) Fetch(ctx context.Context, title string, locale core.LocaleSpec) (*core.HitList, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	title, err := requireTitle(title)
	if err != nil {
		return nil, err
	}

	hl := strings.TrimSpace(locale.HL)
	if hl == "" {
		hl = "en"
	}
	gl := strings.TrimSpace(locale.GL)
	if gl == "" {
		gl = "US"
	}
	key := cacheKey(hl, gl, title)
	if cached, ok := p.cachedHits(ctx, SourcePlayStore, key); ok {
		return cached, nil
	}

	query := url.Values{}
	query.Set("q", `"`+title+`"`)
	query.Set("c", "apps")
	query.Set("hl", hl)
	query.Set("gl", gl)
	requestURL := p.baseURL(defaultPlayStoreURL) + "/store/search?" + query.Encode()
	requestedAt := p.now()

	if err := p.acquire(ctx, SourcePlayStore, requestURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}
	ua := p.UserAgent
	if ua == "" {
		ua = browserUserAgent
	}
	req.Header.Set("User-Agent", ua)

	resp, err := p.httpClient().Do(req)
	if err != nil {
		return nil, transportError(SourcePlayStore, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := readBody(resp)
	if err != nil {
		return nil, transportError(SourcePlayStore, err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		p.backoff(ctx, requestURL, resp)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(SourcePlayStore, resp, body)
	}

	labels, err := ariaLabels(body, maxPlayLabels)
	if err != nil {
		return nil, &core.ProviderError{Provider: SourcePlayStore, Kind: core.ProviderMalformed, Err: err}
	}

	hits := &core.HitList{Provenance: p.provenance(SourcePlayStore, requestedAt)}
	for i, label := range labels {
		hits.Hits = append(hits.Hits, core.RankedHit{Text: label, Position: i + 1})
	}

	p.cacheHits(ctx, SourcePlayStore, key, hits)
	return hits, nil
}

// ariaLabels walks the document and collects distinct non-empty aria-label values.
func ariaLabels(page []byte, limit int) ([]string, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}

	var labels []string
	seen := make(map[string]struct{})

	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			for _, attr := range n.Attr {
				if attr.Key != "aria-label" {
					continue
				}
				value := strings.TrimSpace(attr.Val)
				if value == "" {
					continue
				}
				if _, ok := seen[value]; ok {
					continue
				}
				seen[value] = struct{}{}
				labels = append(labels, value)
				if len(labels) >= limit {
					return false
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(doc)

	return labels, nil
}
