// Package dispatch runs an operation over many paths with a fixed concurrency
// ceiling. A failing item is logged and dropped; it never fails the batch.
package dispatch

import (
	"context"
	"sync"

	"github.com/phuslu/log"
	"golang.org/x/sync/errgroup"
)

// Map calls fn for every item, at most jobs at a time, and returns the results of
// the calls that succeeded in completion order. Items are started in input order.
func Map[T any](ctx context.Context, jobs int, items []string, fn func(context.Context, string) (T, error)) []T {
	if jobs < 1 {
		jobs = 1
	}

	var (
		mu      sync.Mutex
		results = make([]T, 0, len(items))
		g       errgroup.Group
	)
	g.SetLimit(jobs)

	for _, item := range items {
		if ctx.Err() != nil {
			log.Warn().Str("path", item).Err(ctx.Err()).Msg("not dispatched")
			continue
		}
		g.Go(func() error {
			res, err := fn(ctx, item)
			if err != nil {
				log.Warn().Str("path", item).Err(err).Msg("dropping item")
				return nil
			}
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Each is Map for operations that only have side effects. It returns the number
// of items that succeeded.
func Each(ctx context.Context, jobs int, items []string, fn func(context.Context, string) error) int {
	ok := Map(ctx, jobs, items, func(ctx context.Context, item string) (struct{}, error) {
		return struct{}{}, fn(ctx, item)
	})
	return len(ok)
}
