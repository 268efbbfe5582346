// Package conmap applies a function over a slice with a bounded number of
// in-flight calls, preserving input order in the output.
package conmap

import (
	"context"
	"sync"
)

// Map runs fn over items with at most limit concurrent invocations. Result
// order matches input order regardless of completion order. fn owns its own
// failure policy: a failed item never cancels or blocks the others. A limit
// below 1 is treated as 1. Remaining items are skipped cooperatively once ctx
// is cancelled; their results hold the zero value and ctx.Err().
func Map[T, R any](ctx context.Context, items []T, limit int, fn func(context.Context, T) (R, error)) ([]R, []error) {
	if limit < 1 {
		limit = 1
	}

	results := make([]R, len(items))
	errs := make([]error, len(items))

	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for i := range items {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i], errs[i] = fn(ctx, items[i])
		}(i)
	}

	wg.Wait()
	return results, errs
}
