package engine

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/brandlens/brandlens/internal/core"
	"github.com/brandlens/brandlens/internal/core/matcher"
	"github.com/brandlens/brandlens/internal/core/scoring"
)

// DefaultCallTimeout bounds a single provider call.
const DefaultCallTimeout = 20 * time.Second

// DomainChecker resolves .com availability for a brand.
type DomainChecker interface {
	CheckDomain(ctx context.Context, brand string) (*core.DomainResult, error)
}

// HitProvider returns ranked candidate terms for a title in one locale.
type HitProvider interface {
	Name() string
	Fetch(ctx context.Context, title string, locale core.LocaleSpec) (*core.HitList, error)
}

// Providers are the four evidence sources an evaluation consults.
type Providers struct {
	Domain    DomainChecker
	AppStoreA HitProvider
	AppStoreB HitProvider
	Search    HitProvider
}

// Observer receives provider and evaluation outcomes.
type Observer interface {
	ProviderCall(component core.ComponentName, provider, outcome string, elapsed time.Duration)
	Evaluation(grade core.Grade, elapsed time.Duration)
}

// Evaluator runs uniqueness evaluations.
type Evaluator struct {
	Providers   Providers
	Registry    *matcher.Registry
	Timeout     time.Duration
	Sequential  bool
	Concurrency int
	Clock       func() time.Time
	Logger      *logging.Logger
	Observer    Observer
}

type fetchOutcome struct {
	hits *core.HitList
	err  error
}

type domainOutcome struct {
	result *core.DomainResult
	err    error
}

// Evaluate scores title across locales. Invalid configuration or an empty title is
// returned as an error; provider failures only degrade the affected component.
func (e *Evaluator) Evaluate(ctx context.Context, title string, locales []core.LocaleSpec, cfg core.UniquenessConfig) (*core.UniquenessReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	started := time.Now()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if matcher.Normalize(title) == "" {
		reason := "must contain at least one letter or digit"
		if strings.IndexFunc(title, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) >= 0 {
			reason = "must contain at least one Latin letter or ASCII digit after folding; non-Latin scripts are not matched"
		}
		return nil, &core.ValidationError{Field: "title", Reason: reason}
	}
	m, err := e.registry().Resolve(cfg.MatcherEngine)
	if err != nil {
		return nil, err
	}
	if len(locales) == 0 {
		locales = []core.LocaleSpec{core.DefaultLocale()}
	}
	for _, locale := range locales {
		if err := core.ValidateLocale(locale); err != nil {
			return nil, err
		}
	}
	mode, _ := core.ParseAggregationMode(string(cfg.Aggregation))

	domain, fetched := e.gather(ctx, title, locales)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reports := make([]core.LocaleReport, 0, len(locales))
	var warnings []string
	for i, locale := range locales {
		report := e.buildLocale(m, title, locale, cfg, domain, fetched[i])
		for _, name := range core.ComponentNames() {
			msg := report.Components[name].Warning()
			if msg == "" {
				continue
			}
			// The domain outcome is shared by every locale; warn once.
			if name == core.ComponentDomain {
				if i == 0 {
					warnings = append(warnings, scoring.Warning(name, "", msg))
				}
				continue
			}
			warnings = append(warnings, scoring.Warning(name, locale.Label(), msg))
		}
		reports = append(reports, report)
	}

	components, err := scoring.Aggregate(reports, mode, core.ComponentNames())
	if err != nil {
		return nil, err
	}

	report := core.NewUniquenessReport(title, components, reports)
	report.Grade = scoring.Bin(report.OverallScore, cfg.Thresholds)
	report.Engine = m.Name()
	report.Aggregation = mode
	report.EvaluatedAt = e.now()

	for _, name := range core.ComponentNames() {
		report.Explanations = append(report.Explanations, scoring.Summarize(name, components[name], cfg.Weight(name), reports))
	}
	report.Explanations = append(report.Explanations, warnings...)
	for _, rep := range reports {
		if rep.CheckURL != "" {
			report.Explanations = append(report.Explanations, scoring.VerificationURL(rep.Locale, rep.CheckURL))
		}
	}

	if e.Observer != nil {
		e.Observer.Evaluation(report.Grade, time.Since(started))
	}
	e.debug("evaluation complete",
		zap.String("title", title),
		zap.Int("overall_score", report.OverallScore),
		zap.String("grade", string(report.Grade)),
		zap.Int("locales", len(locales)),
		zap.Int("warnings", len(warnings)))

	return report, nil
}

// gather runs the domain check once and every hit provider for every locale.
func (e *Evaluator) gather(ctx context.Context, title string, locales []core.LocaleSpec) (domainOutcome, [][]fetchOutcome) {
	var g errgroup.Group
	if !e.Sequential {
		g.SetLimit(e.concurrency())
	}
	run := func(fn func()) {
		if e.Sequential {
			fn()
			return
		}
		g.Go(func() error {
			fn()
			return nil
		})
	}

	var domain domainOutcome
	run(func() { domain = e.checkDomain(ctx, title) })

	fetched := make([][]fetchOutcome, len(locales))
	for i, locale := range locales {
		fetched[i] = make([]fetchOutcome, 3)
		for j, job := range e.hitJobs() {
			run(func() { fetched[i][j] = e.fetch(ctx, job.name, job.provider, title, locale) })
		}
	}
	_ = g.Wait()

	return domain, fetched
}

type hitJob struct {
	name     core.ComponentName
	provider HitProvider
}

func (e *Evaluator) hitJobs() []hitJob {
	return []hitJob{
		{name: core.ComponentAppStoreA, provider: e.Providers.AppStoreA},
		{name: core.ComponentAppStoreB, provider: e.Providers.AppStoreB},
		{name: core.ComponentSearchRank, provider: e.Providers.Search},
	}
}

func (e *Evaluator) checkDomain(ctx context.Context, title string) domainOutcome {
	if e.Providers.Domain == nil {
		return domainOutcome{err: notConfigured(core.ComponentDomain)}
	}
	start := time.Now()
	result, err := callWithTimeout(ctx, e.timeout(), func(callCtx context.Context) (*core.DomainResult, error) {
		return e.Providers.Domain.CheckDomain(callCtx, title)
	})
	if err == nil && result == nil {
		err = &core.ProviderError{Provider: string(core.ComponentDomain), Kind: core.ProviderMalformed, Err: errors.New("empty result")}
	}
	if err != nil {
		err = classify(string(core.ComponentDomain), err)
	}
	e.observe(core.ComponentDomain, string(core.ComponentDomain), err, time.Since(start))
	return domainOutcome{result: result, err: err}
}

func (e *Evaluator) fetch(ctx context.Context, name core.ComponentName, provider HitProvider, title string, locale core.LocaleSpec) fetchOutcome {
	if provider == nil {
		return fetchOutcome{err: notConfigured(name)}
	}
	start := time.Now()
	hits, err := callWithTimeout(ctx, e.timeout(), func(callCtx context.Context) (*core.HitList, error) {
		return provider.Fetch(callCtx, title, locale)
	})
	if err != nil {
		err = classify(provider.Name(), err)
	} else if hits == nil {
		hits = &core.HitList{}
	}
	e.observe(name, provider.Name(), err, time.Since(start))
	if err != nil {
		e.warn("provider call failed",
			zap.String("component", string(name)),
			zap.String("provider", provider.Name()),
			zap.String("locale", locale.Label()),
			zap.Error(err))
	}
	return fetchOutcome{hits: hits, err: err}
}

func (e *Evaluator) buildLocale(m matcher.Matcher, title string, locale core.LocaleSpec, cfg core.UniquenessConfig, domain domainOutcome, fetched []fetchOutcome) core.LocaleReport {
	report := core.LocaleReport{
		Locale:     locale,
		Components: make(map[core.ComponentName]core.ComponentScore, 4),
		Features:   make(map[core.ComponentName]core.MatchStats, 3),
	}

	weight := cfg.Weight(core.ComponentDomain)
	if domain.err != nil {
		report.Components[core.ComponentDomain] = scoring.Neutral(core.ComponentDomain, weight, domain.err.Error())
	} else {
		report.Components[core.ComponentDomain] = scoring.ScoreDomain(*domain.result, weight, cfg.DomainTakenRatio)
	}

	for j, job := range e.hitJobs() {
		out := fetched[j]
		weight := cfg.Weight(job.name)
		if out.err != nil {
			report.Components[job.name] = scoring.Neutral(job.name, weight, out.err.Error())
			continue
		}

		if job.name == core.ComponentSearchRank {
			matches := matcher.FilterNearMatches(m, title, out.hits.Hits, cfg.NearMatchThreshold)
			stats := matcher.HitStats(m, title, matches)
			report.Features[job.name] = stats
			report.Components[job.name] = scoring.ScoreSearchRank(stats, matches, weight, cfg.Penalties.Search)
			report.CheckURL = out.hits.CheckURL
			continue
		}

		policy := cfg.Penalties.AppStoreA
		if job.name == core.ComponentAppStoreB {
			policy = cfg.Penalties.AppStoreB
		}
		hits := matcher.Dedupe(out.hits.Hits)
		stats := matcher.HitStats(m, title, hits)
		report.Features[job.name] = stats
		report.Components[job.name] = scoring.ScoreAppStore(job.name, stats, hits, weight, policy)
	}

	return report
}

// callWithTimeout runs fn under its own deadline and stops waiting once the deadline
// passes even if fn ignores its context.
func callWithTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		value, err := fn(callCtx)
		done <- result{value: value, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-callCtx.Done():
		var zero T
		return zero, callCtx.Err()
	}
}

func classify(provider string, err error) error {
	var pe *core.ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return core.NewProviderError(provider, err)
}

func notConfigured(name core.ComponentName) error {
	return &core.ProviderError{Provider: string(name), Kind: core.ProviderCredentialsMissing, Err: errors.New("provider not configured")}
}

func (e *Evaluator) observe(name core.ComponentName, provider string, err error, elapsed time.Duration) {
	if e.Observer == nil {
		return
	}
	outcome := "ok"
	var pe *core.ProviderError
	if errors.As(err, &pe) {
		outcome = string(pe.Kind)
	} else if err != nil {
		outcome = "error"
	}
	e.Observer.ProviderCall(name, provider, outcome, elapsed)
}

func (e *Evaluator) registry() *matcher.Registry {
	if e.Registry != nil {
		return e.Registry
	}
	return matcher.DefaultRegistry
}

func (e *Evaluator) timeout() time.Duration {
	if e.Timeout > 0 {
		return e.Timeout
	}
	return DefaultCallTimeout
}

func (e *Evaluator) concurrency() int {
	if e.Concurrency > 0 {
		return e.Concurrency
	}
	return 8
}

func (e *Evaluator) now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now().UTC()
}

func (e *Evaluator) debug(msg string, fields ...zap.Field) {
	if e.Logger != nil {
		e.Logger.Debug(msg, fields...)
	}
}

func (e *Evaluator) warn(msg string, fields ...zap.Field) {
	if e.Logger != nil {
		e.Logger.Warn(msg, fields...)
	}
}
