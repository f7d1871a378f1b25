// Package worker runs per-genome jobs on a bounded number of goroutines.
package worker

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Map applies fn to every item with at most workers calls in flight and
// returns the results in input order. The first error cancels the remaining
// jobs. Done, when set, is called once per finished item.
func Map[T, R any](ctx context.Context, items []T, workers int, fn func(context.Context, T) (R, error), done func()) ([]R, error) {
	if workers < 1 {
		workers = 1
	}
	out := make([]R, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := fn(gctx, item)
			if err != nil {
				return err
			}
			out[i] = r
			if done != nil {
				done()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
