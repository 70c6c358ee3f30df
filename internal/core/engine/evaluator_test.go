package engine

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandlens/brandlens/internal/core"
	"github.com/brandlens/brandlens/internal/core/matcher"
)

type stubDomain struct {
	result *core.DomainResult
	err    error
	calls  atomic.Int32
}

func (s *stubDomain) CheckDomain(ctx context.Context, brand string) (*core.DomainResult, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	out := *s.result
	return &out, nil
}

type stubHits struct {
	name     string
	hits     []core.RankedHit
	byLocale map[string][]core.RankedHit
	checkURL string
	err      error
	delay    time.Duration
	calls    atomic.Int32
}

func (s *stubHits) Name() string { return s.name }

func (s *stubHits) Fetch(ctx context.Context, title string, locale core.LocaleSpec) (*core.HitList, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return nil, s.err
	}
	hits := s.hits
	if v, ok := s.byLocale[locale.Label()]; ok {
		hits = v
	}
	return &core.HitList{Hits: hits, CheckURL: s.checkURL}, nil
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes map[core.ComponentName][]string
	grades   []core.Grade
}

func (r *recordingObserver) ProviderCall(component core.ComponentName, provider, outcome string, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = make(map[core.ComponentName][]string)
	}
	r.outcomes[component] = append(r.outcomes[component], outcome)
}

func (r *recordingObserver) Evaluation(grade core.Grade, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grades = append(r.grades, grade)
}

func available() *stubDomain {
	return &stubDomain{result: &core.DomainResult{Domain: "zynthrex.com", Available: core.AvailabilityAvailable, Authoritative: true}}
}

func cleanProviders() Providers {
	return Providers{
		Domain:    available(),
		AppStoreA: &stubHits{name: "appfollow"},
		AppStoreB: &stubHits{name: "playstore"},
		Search:    &stubHits{name: "dataforseo"},
	}
}

func locale(name string, weight float64) core.LocaleSpec {
	preset, ok := core.FindLocalePreset(name)
	if !ok {
		panic("unknown preset " + name)
	}
	out := *preset
	out.Weight = weight
	return out
}

func TestEvaluateDistinctWhenNothingMatches(t *testing.T) {
	evaluator := &Evaluator{Providers: cleanProviders()}

	report, err := evaluator.Evaluate(context.Background(), "Zynthrex", nil, core.DefaultUniquenessConfig())
	require.NoError(t, err)

	assert.Equal(t, 100, report.OverallScore)
	assert.Equal(t, core.GradeDistinct, report.Grade)
	assert.Equal(t, map[core.ComponentName]int{
		core.ComponentDomain:     25,
		core.ComponentAppStoreA:  25,
		core.ComponentAppStoreB:  20,
		core.ComponentSearchRank: 30,
	}, report.Components)
	require.Len(t, report.Locales, 1)
	assert.Equal(t, "us", report.Locales[0].Locale.Name)
	assert.Len(t, report.Locales[0].Components, 4)
	assert.Equal(t, "fast", report.Engine)
	assert.Equal(t, core.AggregationMin, report.Aggregation)
	require.Len(t, report.Explanations, 4)
	assert.Equal(t, "domain: 25/25 (.com is available)", report.Explanations[0])
	assert.Equal(t, "appstore-a: 25/25 (no near matches)", report.Explanations[1])
}

func TestEvaluateNeutralOnProviderFailure(t *testing.T) {
	providers := cleanProviders()
	providers.AppStoreA = &stubHits{
		name: "appfollow",
		err:  &core.ProviderError{Provider: "appfollow", Kind: core.ProviderUnauthorized, Status: 401},
	}
	observer := &recordingObserver{}
	evaluator := &Evaluator{Providers: providers, Observer: observer}

	report, err := evaluator.Evaluate(context.Background(), "Zynthrex", nil, core.DefaultUniquenessConfig())
	require.NoError(t, err)

	assert.Equal(t, 12, report.Components[core.ComponentAppStoreA])
	assert.Equal(t, 25+12+20+30, report.OverallScore)
	assert.Equal(t, core.GradeDistinct, report.Grade)

	var warnings []string
	for _, line := range report.Explanations {
		if strings.HasPrefix(line, "Warning") {
			warnings = append(warnings, line)
		}
	}
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "Warning [appstore-a] (us)")
	assert.Contains(t, warnings[0], "unauthorized")

	assert.Equal(t, []string{"unauthorized"}, observer.outcomes[core.ComponentAppStoreA])
	assert.Equal(t, []string{"ok"}, observer.outcomes[core.ComponentSearchRank])
	assert.Equal(t, []core.Grade{core.GradeDistinct}, observer.grades)
}

func TestEvaluateAllProvidersFail(t *testing.T) {
	boom := errors.New("connection refused")
	providers := Providers{
		Domain:    &stubDomain{err: boom},
		AppStoreA: &stubHits{name: "appfollow", err: boom},
		AppStoreB: &stubHits{name: "playstore", err: boom},
		Search:    &stubHits{name: "dataforseo", err: boom},
	}
	evaluator := &Evaluator{Providers: providers}

	report, err := evaluator.Evaluate(context.Background(), "Zynthrex", []core.LocaleSpec{locale("us", 1), locale("gb", 1)}, core.DefaultUniquenessConfig())
	require.NoError(t, err)

	assert.Equal(t, 12+12+10+15, report.OverallScore)
	assert.Equal(t, core.GradeBorderline, report.Grade)
	for _, rep := range report.Locales {
		require.Len(t, rep.Components, 4)
		for _, cs := range rep.Components {
			assert.NotEmpty(t, cs.Warning())
		}
	}

	warnings := 0
	for _, line := range report.Explanations {
		if strings.HasPrefix(line, "Warning") {
			warnings++
			assert.Contains(t, line, "network")
		}
	}
	// one shared domain warning plus three per locale
	assert.Equal(t, 1+3*2, warnings)
}

func TestEvaluateMissingProvidersAreNeutral(t *testing.T) {
	evaluator := &Evaluator{Providers: Providers{Domain: available()}}

	report, err := evaluator.Evaluate(context.Background(), "Zynthrex", nil, core.DefaultUniquenessConfig())
	require.NoError(t, err)
	assert.Equal(t, 25+12+10+15, report.OverallScore)
}

func TestEvaluateIdentityCandidateIgnoredForPenalties(t *testing.T) {
	providers := cleanProviders()
	providers.AppStoreA = &stubHits{name: "appfollow", hits: []core.RankedHit{{Text: "BrandName", Position: 1}}}
	evaluator := &Evaluator{Providers: providers}

	report, err := evaluator.Evaluate(context.Background(), "BrandName", nil, core.DefaultUniquenessConfig())
	require.NoError(t, err)

	stats := report.Locales[0].Features[core.ComponentAppStoreA]
	assert.Equal(t, 100, stats.MaxScore)
	assert.Zero(t, stats.N95)
	assert.Zero(t, stats.N90)
	assert.Zero(t, stats.N80)
	assert.Nil(t, stats.TopHitPos)
	assert.Equal(t, 25, report.Components[core.ComponentAppStoreA])
}

func TestEvaluateTopPositionComesFromProvider(t *testing.T) {
	providers := cleanProviders()
	providers.AppStoreA = &stubHits{name: "appfollow", hits: []core.RankedHit{
		{Text: "Calendar", Position: 1},
		{Text: "calendar", Position: 2},
		{Text: "Calendar!", Position: 3},
		{Text: "Zynthrex Weather", Position: 4},
	}}
	evaluator := &Evaluator{Providers: providers}

	report, err := evaluator.Evaluate(context.Background(), "Zynthrex", nil, core.DefaultUniquenessConfig())
	require.NoError(t, err)

	stats := report.Locales[0].Features[core.ComponentAppStoreA]
	require.NotNil(t, stats.TopHitPos)
	assert.Equal(t, 4, *stats.TopHitPos)
	assert.Equal(t, 1, stats.N90)
	assert.Equal(t, 21, report.Components[core.ComponentAppStoreA])
}

func TestEvaluateAggregatesAcrossLocales(t *testing.T) {
	near := []core.RankedHit{{Text: "Zynthrex Weather", Position: 1}}
	locales := []core.LocaleSpec{locale("us", 1), locale("de", 3)}

	for _, tt := range []struct {
		mode core.AggregationMode
		want int
	}{
		{core.AggregationMin, 18},
		{core.AggregationWeighted, 20},
	} {
		providers := cleanProviders()
		providers.AppStoreA = &stubHits{name: "appfollow", byLocale: map[string][]core.RankedHit{"de": near}}
		cfg := core.DefaultUniquenessConfig()
		cfg.Aggregation = tt.mode

		report, err := (&Evaluator{Providers: providers}).Evaluate(context.Background(), "Zynthrex", locales, cfg)
		require.NoError(t, err)

		require.Len(t, report.Locales, 2)
		assert.Equal(t, "us", report.Locales[0].Locale.Name)
		assert.Equal(t, "de", report.Locales[1].Locale.Name)
		assert.Equal(t, 25, report.Locales[0].Components[core.ComponentAppStoreA].Score)
		assert.Equal(t, 18, report.Locales[1].Components[core.ComponentAppStoreA].Score)
		assert.Equal(t, tt.want, report.Components[core.ComponentAppStoreA], tt.mode)
	}
}

func TestEvaluateChecksDomainOnce(t *testing.T) {
	providers := cleanProviders()
	domain := providers.Domain.(*stubDomain)
	search := providers.Search.(*stubHits)
	evaluator := &Evaluator{Providers: providers}

	_, err := evaluator.Evaluate(context.Background(), "Zynthrex", []core.LocaleSpec{locale("us", 1), locale("gb", 1), locale("fr", 1)}, core.DefaultUniquenessConfig())
	require.NoError(t, err)
	assert.Equal(t, int32(1), domain.calls.Load())
	assert.Equal(t, int32(3), search.calls.Load())
}

func TestEvaluateSearchVerificationURL(t *testing.T) {
	providers := cleanProviders()
	providers.Search = &stubHits{
		name:     "dataforseo",
		checkURL: "https://www.google.com/search?q=zynthrex",
		hits:     []core.RankedHit{{Text: "Unrelated News", Position: 1}, {Text: "Zynthrex Labs", Position: 2}},
	}
	evaluator := &Evaluator{Providers: providers}

	report, err := evaluator.Evaluate(context.Background(), "Zynthrex", nil, core.DefaultUniquenessConfig())
	require.NoError(t, err)

	assert.Contains(t, report.Explanations, "Search verification URL (en-2840): https://www.google.com/search?q=zynthrex")
	assert.Less(t, report.Components[core.ComponentSearchRank], 30)
	best, ok := report.Locales[0].Components[core.ComponentSearchRank].Details["best_rank"].AsInt()
	require.True(t, ok)
	assert.Equal(t, 2, best)
}

func TestEvaluateConfigErrorIsFatal(t *testing.T) {
	providers := cleanProviders()
	cfg := core.DefaultUniquenessConfig()
	cfg.Weights[core.ComponentAppStoreB] = -1

	_, err := (&Evaluator{Providers: providers}).Evaluate(context.Background(), "Zynthrex", nil, cfg)
	var ce *core.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, int32(0), providers.Domain.(*stubDomain).calls.Load())
}

func TestEvaluateUnavailableEngineIsFatal(t *testing.T) {
	registry := matcher.NewRegistry(map[string]matcher.Factory{
		core.EngineBuiltin: func() matcher.Matcher { return matcher.NewBuiltin() },
	})
	cfg := core.DefaultUniquenessConfig()
	cfg.MatcherEngine = core.EngineFast

	_, err := (&Evaluator{Providers: cleanProviders(), Registry: registry}).Evaluate(context.Background(), "Zynthrex", nil, cfg)
	var ce *core.ConfigError
	require.ErrorAs(t, err, &ce)

	cfg.MatcherEngine = core.EngineAuto
	report, err := (&Evaluator{Providers: cleanProviders(), Registry: registry}).Evaluate(context.Background(), "Zynthrex", nil, cfg)
	require.NoError(t, err)
	assert.Equal(t, "builtin", report.Engine)
}

func TestEvaluateRejectsEmptyTitle(t *testing.T) {
	for _, title := range []string{"", "   ", "--!!"} {
		_, err := (&Evaluator{Providers: cleanProviders()}).Evaluate(context.Background(), title, nil, core.DefaultUniquenessConfig())
		var ve *core.ValidationError
		require.ErrorAs(t, err, &ve, "title %q", title)
	}
}

func TestEvaluateRejectsNonLatinTitle(t *testing.T) {
	_, err := (&Evaluator{Providers: cleanProviders()}).Evaluate(context.Background(), "東京", nil, core.DefaultUniquenessConfig())
	var ve *core.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "title", ve.Field)
	assert.Contains(t, ve.Reason, "non-Latin")
}

func TestEvaluateRejectsInvalidLocale(t *testing.T) {
	bad := locale("us", -1)
	_, err := (&Evaluator{Providers: cleanProviders()}).Evaluate(context.Background(), "Zynthrex", []core.LocaleSpec{bad}, core.DefaultUniquenessConfig())
	var ve *core.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestEvaluatePerCallTimeout(t *testing.T) {
	providers := cleanProviders()
	providers.AppStoreB = &stubHits{name: "playstore", delay: 2 * time.Second}
	evaluator := &Evaluator{Providers: providers, Timeout: 50 * time.Millisecond}

	start := time.Now()
	report, err := evaluator.Evaluate(context.Background(), "Zynthrex", nil, core.DefaultUniquenessConfig())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)

	assert.Equal(t, 10, report.Components[core.ComponentAppStoreB])
	assert.Contains(t, report.Locales[0].Components[core.ComponentAppStoreB].Warning(), "timeout")
	assert.Equal(t, 25, report.Components[core.ComponentAppStoreA])
}

func TestEvaluateCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&Evaluator{Providers: cleanProviders()}).Evaluate(ctx, "Zynthrex", nil, core.DefaultUniquenessConfig())
	require.ErrorIs(t, err, context.Canceled)
}

func TestEvaluateSequentialMatchesConcurrent(t *testing.T) {
	build := func() Providers {
		providers := cleanProviders()
		providers.AppStoreA = &stubHits{name: "appfollow", hits: []core.RankedHit{{Text: "Zynthrex Weather", Position: 2}, {Text: "Calendar", Position: 1}}}
		providers.AppStoreB = &stubHits{name: "playstore", hits: []core.RankedHit{{Text: "Zynthrexx", Position: 1}}}
		return providers
	}
	locales := []core.LocaleSpec{locale("us", 1), locale("jp", 2)}
	cfg := core.DefaultUniquenessConfig()

	sequential, err := (&Evaluator{Providers: build(), Sequential: true}).Evaluate(context.Background(), "Zynthrex", locales, cfg)
	require.NoError(t, err)
	concurrent, err := (&Evaluator{Providers: build()}).Evaluate(context.Background(), "Zynthrex", locales, cfg)
	require.NoError(t, err)

	assert.Equal(t, sequential.Components, concurrent.Components)
	assert.Equal(t, sequential.Explanations, concurrent.Explanations)
}

func TestEvaluateOverallIsSumOfComponents(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	pool := []string{"Zynthrex", "Zynthrex Pro", "zynthrex.io", "Weather", "Zyn", "Synthrex", "BrandName"}
	randomHits := func() []core.RankedHit {
		n := rng.Intn(5)
		out := make([]core.RankedHit, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, core.RankedHit{Text: pool[rng.Intn(len(pool))], Position: 1 + rng.Intn(20)})
		}
		return out
	}

	for i := 0; i < 40; i++ {
		providers := Providers{
			Domain:    &stubDomain{result: &core.DomainResult{Available: core.Availability(rng.Intn(3))}},
			AppStoreA: &stubHits{name: "a", hits: randomHits()},
			AppStoreB: &stubHits{name: "b", hits: randomHits()},
			Search:    &stubHits{name: "s", hits: randomHits()},
		}
		if rng.Intn(4) == 0 {
			providers.AppStoreB = &stubHits{name: "b", err: errors.New("down")}
		}
		cfg := core.DefaultUniquenessConfig()
		if rng.Intn(2) == 0 {
			cfg.Aggregation = core.AggregationWeighted
		}

		report, err := (&Evaluator{Providers: providers}).Evaluate(context.Background(), "Zynthrex", []core.LocaleSpec{locale("us", 1), locale("in", 2)}, cfg)
		require.NoError(t, err)

		sum := 0
		for name, score := range report.Components {
			require.GreaterOrEqual(t, score, 0)
			require.LessOrEqual(t, score, cfg.Weight(name))
			sum += score
		}
		require.Equal(t, sum, report.OverallScore)
	}
}

func TestEvaluateBatchKeepsOrder(t *testing.T) {
	ev := &Evaluator{Providers: cleanProviders()}
	titles := []string{"Zynthrex", "  ", "Quorvane", "Blipster"}

	results, err := ev.EvaluateBatch(context.Background(), titles, nil, core.DefaultUniquenessConfig(), 2)
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, "Zynthrex", results[0].Title)
	require.NotNil(t, results[0].Report)
	assert.Equal(t, 100, results[0].Report.OverallScore)

	assert.Nil(t, results[1].Report)
	assert.Contains(t, results[1].Error, "title")

	assert.Equal(t, "Quorvane", results[2].Title)
	assert.Equal(t, "Blipster", results[3].Title)
	for _, r := range results {
		assert.False(t, r.CompletedAt.IsZero())
	}
}

func TestEvaluateBatchRejectsInvalidConfig(t *testing.T) {
	ev := &Evaluator{Providers: cleanProviders()}
	cfg := core.DefaultUniquenessConfig()
	cfg.NearMatchThreshold = 150

	_, err := ev.EvaluateBatch(context.Background(), []string{"Zynthrex"}, nil, cfg, 2)
	var ce *core.ConfigError
	require.ErrorAs(t, err, &ce)
}
