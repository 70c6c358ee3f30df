package engine

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/brandlens/brandlens/internal/core"
)

// EvaluateBatch evaluates titles with at most workers evaluations in flight.
// Results keep input order; per-title failures are reported in BatchResult.Error.
// Fatal configuration errors abort the batch before any provider is called.
func (e *Evaluator) EvaluateBatch(ctx context.Context, titles []string, locales []core.LocaleSpec, cfg core.UniquenessConfig, workers int) ([]core.BatchResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := e.registry().Resolve(cfg.MatcherEngine); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = 1
	}

	results := make([]core.BatchResult, len(titles))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, title := range titles {
		g.Go(func() error {
			title = strings.TrimSpace(title)
			result := core.BatchResult{Title: title}
			report, err := e.Evaluate(ctx, title, locales, cfg)
			if err != nil {
				result.Error = err.Error()
			} else {
				result.Report = report
			}
			result.CompletedAt = e.now()
			results[i] = result
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}
