package extract

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Runner fans page extractions out across a worker pool with a global rate
// limit. Workers write into caller-owned index slots, so results keep the
// input order regardless of completion order.
type Runner struct {
	Concurrency int           // Maximum number of concurrent extractions
	RateLimit   int           // Requests per second (global)
	Timeout     time.Duration // Timeout for each extraction
}

// DefaultRunner returns the runner settings used when the caller does not
// configure concurrency.
func DefaultRunner() Runner {
	return Runner{Concurrency: 5, RateLimit: 10, Timeout: 20 * time.Second}
}

// Run invokes work for every URL. work receives the URL's index in the input
// slice and must confine its writes to that index.
func (r Runner) Run(ctx context.Context, urls []string, work func(ctx context.Context, i int, url string)) {
	concurrency := r.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	rateLimit := r.RateLimit
	if rateLimit <= 0 {
		rateLimit = 1
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	limiter := rate.NewLimiter(rate.Limit(rateLimit), rateLimit)
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, u := range urls {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			if err := limiter.Wait(ctx); err != nil {
				return
			}

			workCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			work(workCtx, i, u)
		}(i, u)
	}

	wg.Wait()
}
