package checker

import (
	"context"
	"sync"

	"github.com/brandlens/brandlens/internal/core"
)

// DomainOutcome pairs a brand with its lookup result or error.
type DomainOutcome struct {
	Brand  string
	Result *core.DomainResult
	Err    error
}

// CheckMany checks every brand with at most concurrency lookups in flight. Outcomes
// keep input order.
func (d *DomainChecker) CheckMany(ctx context.Context, brands []string, concurrency int) []DomainOutcome {
	if ctx == nil {
		ctx = context.Background()
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	outcomes := make([]DomainOutcome, len(brands))
	jobs := make(chan int)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for idx := range jobs {
			result, err := d.CheckDomain(ctx, brands[idx])
			outcomes[idx] = DomainOutcome{Brand: brands[idx], Result: result, Err: err}
		}
	}

	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go worker()
	}
	for idx := range brands {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	return outcomes
}
