package checker

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandlens/brandlens/internal/core"
)

func requireProviderKind(t *testing.T, err error, kind core.ProviderErrorKind) {
	t.Helper()
	var pe *core.ProviderError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, kind, pe.Kind)
}

func TestAppFollowFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v2/aso/suggests", r.URL.Path)
		require.Equal(t, "secret", r.Header.Get("X-AppFollow-API-Token"))
		require.Equal(t, "zynthrex", r.URL.Query().Get("term"))
		require.Equal(t, "de", r.URL.Query().Get("country"))
		_, _ = w.Write([]byte(`[{"displayTerm":"Zynthrex Weather"},{"term":"zynthrex pro"},{"other":1},{"displayTerm":"","term":"Zyn"}]`))
	}))
	defer server.Close()

	provider := &AppFollowProvider{Base: Base{BaseURL: server.URL, Client: server.Client()}, APIKey: "secret"}
	locale := core.DefaultLocale()
	locale.Country = "DE"

	hits, err := provider.Fetch(context.Background(), "zynthrex", locale)
	require.NoError(t, err)
	require.Equal(t, []core.RankedHit{
		{Text: "Zynthrex Weather", Position: 1},
		{Text: "zynthrex pro", Position: 2},
		{Text: "Zyn", Position: 3},
	}, hits.Hits)
	require.Equal(t, SourceAppFollow, hits.Provenance.Source)
}

func TestAppFollowErrors(t *testing.T) {
	_, err := (&AppFollowProvider{}).Fetch(context.Background(), "zynthrex", core.DefaultLocale())
	requireProviderKind(t, err, core.ProviderCredentialsMissing)

	tests := []struct {
		status int
		body   string
		kind   core.ProviderErrorKind
	}{
		{http.StatusUnauthorized, "", core.ProviderUnauthorized},
		{http.StatusForbidden, "", core.ProviderForbidden},
		{http.StatusBadGateway, "", core.ProviderHTTPStatus},
		{http.StatusOK, "{not json", core.ProviderMalformed},
	}
	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			_, _ = w.Write([]byte(tt.body))
		}))
		provider := &AppFollowProvider{Base: Base{BaseURL: server.URL}, APIKey: "k"}
		_, err := provider.Fetch(context.Background(), "zynthrex", core.DefaultLocale())
		requireProviderKind(t, err, tt.kind)
		server.Close()
	}
}

func TestAppFollowUsesCache(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`[{"term":"zynthrex"}]`))
	}))
	defer server.Close()

	provider := &AppFollowProvider{
		Base:   Base{BaseURL: server.URL, Cache: NewMemoryCache(time.Minute, time.Minute), UseCache: true},
		APIKey: "k",
	}
	for i := 0; i < 3; i++ {
		hits, err := provider.Fetch(context.Background(), "Zynthrex", core.DefaultLocale())
		require.NoError(t, err)
		require.Len(t, hits.Hits, 1)
		require.Equal(t, i > 0, hits.Provenance.FromCache)
	}
	require.Equal(t, int32(1), calls.Load())
}

func TestPlayStoreFetch(t *testing.T) {
	page := `<html><body>
<div aria-label="Zynthrex Weather"><span aria-label="Zynthrex Weather"></span></div>
<a aria-label=" Calendar Pro ">x</a>
<button aria-label="">y</button>
<img aria-label="Stars">
</body></html>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/store/search", r.URL.Path)
		require.Equal(t, `"Zynthrex"`, r.URL.Query().Get("q"))
		require.Equal(t, "apps", r.URL.Query().Get("c"))
		require.Equal(t, "de", r.URL.Query().Get("hl"))
		require.Equal(t, "DE", r.URL.Query().Get("gl"))
		require.Contains(t, r.Header.Get("User-Agent"), "Mozilla")
		_, _ = w.Write([]byte(page))
	}))
	defer server.Close()

	locale, ok := core.FindLocalePreset("de")
	require.True(t, ok)

	provider := &PlayStoreProvider{Base: Base{BaseURL: server.URL}}
	hits, err := provider.Fetch(context.Background(), "Zynthrex", *locale)
	require.NoError(t, err)
	require.Equal(t, []string{"Zynthrex Weather", "Calendar Pro", "Stars"}, hits.Texts())
	require.Equal(t, 3, hits.Hits[2].Position)
}

func TestPlayStoreNonOK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	provider := &PlayStoreProvider{Base: Base{BaseURL: server.URL}}
	_, err := provider.Fetch(context.Background(), "Zynthrex", core.DefaultLocale())
	requireProviderKind(t, err, core.ProviderHTTPStatus)
}

func TestAriaLabelsCap(t *testing.T) {
	page := "<div>"
	for i := 0; i < 150; i++ {
		page += `<a aria-label="app ` + string(rune('a'+i%26)) + string(rune('a'+i/26)) + `"></a>`
	}
	labels, err := ariaLabels([]byte(page+"</div>"), maxPlayLabels)
	require.NoError(t, err)
	assert.Len(t, labels, maxPlayLabels)
}

const serpBody = `{
  "status_code": 20000,
  "tasks": [{
    "status_code": 20000,
    "result": [{
      "check_url": "https://www.google.com/search?q=zynthrex",
      "items": [
        {"type": "organic", "rank_absolute": 7, "title": "Zynthrex Labs"},
        {"type": "people_also_ask", "rank_absolute": 2, "title": "What is zynthrex?"},
        {"type": "organic", "rank_absolute": 1, "title": "Weather Today"},
        {"type": "organic", "title": "No rank"}
      ]
    }]
  }]
}`

func TestDataForSEOFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v3/serp/google/organic/live/advanced", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "me@example.com", user)
		require.Equal(t, "pw", pass)

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var tasks []serpTask
		require.NoError(t, json.Unmarshal(raw, &tasks))
		require.Len(t, tasks, 1)
		require.Equal(t, "Zynthrex", tasks[0].Keyword)
		require.Equal(t, 2276, tasks[0].LocationCode)
		require.Equal(t, "de", tasks[0].LanguageCode)
		require.Equal(t, "google.com", tasks[0].SEDomain)
		require.Equal(t, defaultSERPDepth, tasks[0].Depth)

		_, _ = w.Write([]byte(serpBody))
	}))
	defer server.Close()

	locale, _ := core.FindLocalePreset("de")
	provider := &DataForSEOProvider{Base: Base{BaseURL: server.URL}, Login: "me@example.com", Password: "pw"}

	hits, err := provider.Fetch(context.Background(), "Zynthrex", *locale)
	require.NoError(t, err)
	require.Equal(t, "https://www.google.com/search?q=zynthrex", hits.CheckURL)
	require.Equal(t, []core.RankedHit{
		{Text: "Weather Today", Position: 1},
		{Text: "Zynthrex Labs", Position: 7},
	}, hits.Hits)
}

func TestDataForSEOErrors(t *testing.T) {
	_, err := (&DataForSEOProvider{Login: "x"}).Fetch(context.Background(), "Zynthrex", core.DefaultLocale())
	requireProviderKind(t, err, core.ProviderCredentialsMissing)

	tests := []struct {
		status int
		body   string
		kind   core.ProviderErrorKind
	}{
		{http.StatusUnauthorized, "", core.ProviderUnauthorized},
		{http.StatusForbidden, "", core.ProviderForbidden},
		{http.StatusInternalServerError, "", core.ProviderAPIResponse},
		{http.StatusOK, `{"tasks":[{"status_code":40501,"status_message":"Invalid Field"}]}`, core.ProviderAPIResponse},
		{http.StatusOK, `[`, core.ProviderMalformed},
	}
	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			_, _ = w.Write([]byte(tt.body))
		}))
		provider := &DataForSEOProvider{Base: Base{BaseURL: server.URL}, Login: "u", Password: "p"}
		_, err := provider.Fetch(context.Background(), "Zynthrex", core.DefaultLocale())
		requireProviderKind(t, err, tt.kind)
		server.Close()
	}
}

func TestProviderTimeoutClassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	provider := &PlayStoreProvider{Base: Base{BaseURL: server.URL}}
	_, err := provider.Fetch(ctx, "Zynthrex", core.DefaultLocale())
	requireProviderKind(t, err, core.ProviderTimeout)
}

func TestCredentialsFromEnv(t *testing.T) {
	t.Setenv("APPFOLLOW_API_KEY", "af")
	t.Setenv("DATAFORSEO_LOGIN", "")
	t.Setenv("DATAFORSEO_EMAIL", "me@example.com")
	t.Setenv("DATAFORSEO_PASS", "pw")

	creds := CredentialsFromEnv()
	require.Equal(t, "af", creds.AppFollowAPIKey)
	require.Equal(t, "me@example.com", creds.DataForSEOLogin)
	require.Equal(t, "pw", creds.DataForSEOPassword)

	merged := Credentials{AppFollowAPIKey: "explicit"}.Merge(creds)
	require.Equal(t, "explicit", merged.AppFollowAPIKey)
	require.Equal(t, "pw", merged.DataForSEOPassword)
}

func TestPacerWaitHonorsContext(t *testing.T) {
	pacer := NewPacer(0.001, 1)
	require.NoError(t, pacer.Wait(context.Background(), "example.com"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.Error(t, pacer.Wait(ctx, "example.com"))
	require.NoError(t, pacer.Wait(context.Background(), "other.example.com"))
}
